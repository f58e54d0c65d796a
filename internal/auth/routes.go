package auth

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/debemdeboas/resumark/internal/routes"
	"github.com/rs/zerolog"
)

const (
	FlashSocialUnavailable = "social-unavailable"
	FlashSignedOut         = "signed-out"
)

var flashMessages = map[string]string{
	FlashSocialUnavailable: "Social login is not available right now. Please try again later.",
	FlashSignedOut:         "You have been signed out.",
}

// LoginPageHandler serves the login page: social buttons, plus the key
// login form when admin is set.
func LoginPageHandler(admin *Ed25519AuthProvider, social *ClerkAuthProvider, tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())

		redirectURL := r.URL.Query().Get("redirect")
		if redirectURL == "" {
			redirectURL = routes.RootPath
		}

		data := struct {
			*model.PageData
			RedirectURL   string
			Providers     []SocialProvider
			SocialEnabled bool
			AdminLogin    bool
			Flash         string
		}{
			PageData:      model.NewPageData(r),
			RedirectURL:   redirectURL,
			Providers:     SocialProviders,
			SocialEnabled: social.Enabled(),
			AdminLogin:    admin != nil,
			Flash:         flashMessages[r.URL.Query().Get("flash")],
		}

		w.Header().Set(config.HCType, config.CTypeHTML)
		w.Header().Add(config.HHxRedirect, redirectURL)
		if r.URL.Query().Get("refresh") == "true" {
			w.Header().Set(config.HHxRedirect, routes.AuthLogin)
		}

		if err := tmpl.ExecuteTemplate(w, config.TemplateLayout, data); err != nil {
			l.Error().Err(err).Msg("Failed to render login page")
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		}
	}
}

// LogoutHandler clears both auth cookies.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{config.CookieAuthToken, config.CookieClerk} {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}

	w.Header().Add(config.HHxRedirect, routes.RootPath)
	http.Redirect(w, r, routes.AuthLogin+"?flash="+FlashSignedOut, http.StatusFound)
}

// RegisterRoutes registers the login, logout, social login and webhook
// routes, and the key login routes when admin is set.
func RegisterRoutes(mux *http.ServeMux, admin *Ed25519AuthProvider, social *ClerkAuthProvider, fs fs.FS) error {
	tmpl, err := template.ParseFS(
		fs,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+config.TemplateLogin,
	)
	if err != nil {
		return fmt.Errorf("failed to load login template: %w", err)
	}

	if admin != nil {
		mux.HandleFunc(routes.AuthChallenge, Ed25519ChallengeHandler(admin))
		mux.HandleFunc(routes.AuthVerify, Ed25519VerifyHandler(admin))
	}
	mux.HandleFunc("GET "+routes.AuthLogin, LoginPageHandler(admin, social, tmpl))
	mux.HandleFunc("GET "+routes.AuthSocial, social.SocialLoginHandler())
	mux.HandleFunc(routes.AuthLogout, LogoutHandler)
	mux.HandleFunc("POST "+routes.WebhookUser, social.HandleWebhookUser)

	authLogger.Debug().Bool("admin_login", admin != nil).Bool("social_login", social.Enabled()).Msg("Auth routes registered")
	return nil
}
