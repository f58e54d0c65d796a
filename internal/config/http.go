package config

const (
	HCType          = "Content-Type"
	HETag           = "ETag"
	HCacheControl   = "Cache-Control"
	HHxRedirect     = "Hx-Redirect"
	HHxRefresh      = "Hx-Refresh"
	HHxTrigger      = "Hx-Trigger"
	HContentDisp    = "Content-Disposition"
	HeaderAuthorize = "Authorization"

	CTypeCSS      = "text/css"
	CTypeHTML     = "text/html"
	CTypeJSON     = "application/json"
	CTypeMarkdown = "text/markdown; charset=utf-8"
	CTypeSSE      = "text/event-stream"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)

const (
	CookieTheme       = "theme"
	CookieSyntaxTheme = "syntax-theme"
	CookieDraftID     = "draft-id"
	CookieAuthToken   = "auth_token"
	CookieClerk       = "__session"
)
