package model

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/theme"
)

type PageData struct {
	SiteName    string
	SiteTagline string

	PageURL string

	Theme string

	SyntaxCSS   template.CSS
	SyntaxTheme string

	// Display name of the signed-in user, empty for guests.
	UserName string
}

func NewPageData(r *http.Request) *PageData {
	syntaxTheme := theme.GetSyntaxThemeFromRequest(r)

	return &PageData{
		SiteName:    config.AppConfig.Site.Name,
		SiteTagline: config.AppConfig.Site.Tagline,
		PageURL:     r.URL.Path,
		Theme:       theme.GetThemeFromRequest(r),
		SyntaxTheme: syntaxTheme,
		SyntaxCSS:   theme.GenerateSyntaxCSS(syntaxTheme),
	}
}

func (pd *PageData) IsEditor() bool {
	return strings.HasPrefix(pd.PageURL, "/editor")
}

func (pd *PageData) IsActive(prefix string) bool {
	if prefix == "/" {
		return pd.PageURL == "/"
	}
	return strings.HasPrefix(pd.PageURL, prefix)
}
