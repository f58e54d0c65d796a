// Package theme resolves the page theme and generates syntax highlighting CSS
// for rendered resume previews.
package theme

import (
	"html/template"
	"net/http"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/debemdeboas/resumark/internal/cache"
	"github.com/debemdeboas/resumark/internal/config"
)

func GetThemeFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(config.CookieTheme); err == nil {
		if cookie.Value == config.LightTheme || cookie.Value == config.DarkTheme {
			return cookie.Value
		}
	}
	return config.AppConfig.Theme.Default
}

func GetDefaultSyntaxTheme(theme string) string {
	if theme == config.DarkTheme {
		return config.AppConfig.Theme.SyntaxHighlighting.DefaultDark
	}
	return config.AppConfig.Theme.SyntaxHighlighting.DefaultLight
}

func GetSyntaxThemeFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(config.CookieSyntaxTheme); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return GetDefaultSyntaxTheme(GetThemeFromRequest(r))
}

func GetSyntaxThemes() []string {
	styleNames := styles.Names()
	slices.Sort(styleNames)
	return styleNames
}

func GetFormatter() *html.Formatter {
	return html.New(
		html.WithClasses(true),
		html.TabWidth(4),
		html.WrapLongLines(true),
	)
}

func GenerateSyntaxCSS(theme string) template.CSS {
	if css, ok := cache.GetSyntaxCSS(theme); ok {
		return css
	}

	var buf strings.Builder
	style := styles.Get(theme)

	bg := style.Get(chroma.Background)
	if !bg.Colour.IsSet() {
		// Chroma themes without a foreground colour get one picked from the
		// background luminance so code stays readable.
		luminance := (0.299*float64(bg.Background.Red()) +
			0.587*float64(bg.Background.Green()) +
			0.114*float64(bg.Background.Blue())) / 255
		if luminance > 0.5 {
			buf.WriteString(".chroma { color: #181818; }\n")
		}
	}

	GetFormatter().WriteCSS(&buf, style)

	css := template.CSS(buf.String())
	cache.SetSyntaxCSS(theme, css)
	return css
}

// Opposite returns the theme the toggle switches to.
func Opposite(theme string) string {
	if theme == config.DarkTheme {
		return config.LightTheme
	}
	return config.DarkTheme
}

// GetThemeIcon returns the toggle icon shown while theme is active.
func GetThemeIcon(theme string) template.HTML {
	if theme == config.LightTheme {
		return template.HTML(config.DarkThemeIcon)
	}
	return template.HTML(config.LightThemeIcon)
}
