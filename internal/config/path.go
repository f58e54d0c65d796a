package config

const (
	//? These paths must match the paths in the embed directive

	StaticLocalDir = "static"
	StaticURLPath  = "/" + StaticLocalDir + "/"

	TemplatesLocalDir = "templates"

	TemplateLayout = "layout.html"
	TemplateHome   = "home.html"
	TemplateLogin  = "login.html"
	TemplateEditor = "editor.html"
	TemplateViewer = "viewer.html"
	TemplateShared = "shared.html"
)
