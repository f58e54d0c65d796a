// Package routes defines HTTP route constants for the application.
package routes

const (
	// Static and assets
	RobotsPath     = "/robots.txt"
	MetricsPath    = "/metrics"
	ThemeToggle    = "/theme/toggle"
	SyntaxThemeSet = "/syntax-theme/set"
	SyntaxThemeGet = "/syntax-theme/{theme}"

	// Pages
	RootPath   = "/"
	SharedList = "/shared"

	// Editor
	Editor        = "/editor"
	EditorNew     = "/editor/new"
	EditorState   = "/editor/{id}/state"
	EditorContent = "/editor/{id}/content"
	EditorTitle   = "/editor/{id}/title"
	EditorSave    = "/editor/{id}/save"
	EditorShare   = "/editor/{id}/share"
	EditorToggle  = "/editor/{id}/toggle"
	EditorDismiss = "/editor/{id}/dismiss"
	EditorPreview = "/editor/{id}/preview"
	EditorEvents  = "/editor/{id}/events"

	// Viewer
	Resume         = "/resumes/{id}"
	ResumeComments = "/resumes/{id}/comments"
	ResumeShare    = "/resumes/{id}/share"
	ResumeReview   = "/resumes/{id}/review"
	ResumeDownload = "/resumes/{id}/download"
	ShareLink      = "/s/{token}"

	// Auth routes
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"
	AuthLogin     = "/auth/login"
	AuthSocial    = "/auth/social/{provider}"
	AuthLogout    = "/auth/logout"
	WebhookUser   = "/webhook/user"
)

// ResumePath returns the viewer path of a resume.
func ResumePath(id string) string {
	return "/resumes/" + id
}
