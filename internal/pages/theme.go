package pages

import (
	"fmt"
	"net/http"

	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/theme"
	"github.com/debemdeboas/resumark/internal/util"
)

func serveRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HCType, "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("User-agent: *\nDisallow: /editor\n"))
}

// serveThemeToggle flips the page theme cookie and returns the icon for the
// new theme. The syntax theme follows unless the user picked one.
func serveThemeToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	newTheme := theme.Opposite(theme.GetThemeFromRequest(r))

	http.SetCookie(w, &http.Cookie{
		Name:  config.CookieTheme,
		Value: newTheme,
		Path:  "/",
	})

	syntaxTheme := theme.GetDefaultSyntaxTheme(newTheme)
	if cookie, err := r.Cookie(config.CookieSyntaxTheme); err == nil && cookie.Value != "" {
		syntaxTheme = cookie.Value
	}

	w.Header().Set(config.HHxTrigger, fmt.Sprintf(`{"themeChanged":{"value":%q,"syntaxTheme":%q}}`, newTheme, syntaxTheme))
	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(theme.GetThemeIcon(newTheme)))
}

func writeSyntaxCSS(w http.ResponseWriter, syntaxTheme string) {
	themeStyle := []byte(theme.GenerateSyntaxCSS(syntaxTheme))
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HETag, util.ContentHash(themeStyle))
	w.WriteHeader(http.StatusOK)
	w.Write(themeStyle)
}

func serveSyntaxThemeSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	syntaxTheme := r.FormValue("syntax-theme-select")
	if syntaxTheme == "" {
		http.Error(w, "theme required", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieSyntaxTheme,
		Value:    syntaxTheme,
		Path:     "/",
		HttpOnly: true,
	})

	writeSyntaxCSS(w, syntaxTheme)
}

func serveSyntaxThemeGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	writeSyntaxCSS(w, r.PathValue("theme"))
}
