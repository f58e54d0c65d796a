package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/db"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/debemdeboas/resumark/internal/routes"
	"github.com/rs/zerolog"
)

// SocialProvider is an OAuth provider offered on the login page.
type SocialProvider struct {
	ID   string
	Name string
}

var SocialProviders = []SocialProvider{
	{ID: "google", Name: "Google"},
	{ID: "github", Name: "GitHub"},
}

func findSocialProvider(id string) (SocialProvider, bool) {
	for _, p := range SocialProviders {
		if p.ID == id {
			return p, true
		}
	}
	return SocialProvider{}, false
}

// ClerkAuthProvider authenticates users signed in through Clerk. It is
// disabled when no secret key is configured.
type ClerkAuthProvider struct {
	db        db.DB
	enabled   bool
	signInURL string

	cookieExtractor clerkhttp.AuthorizationOption
}

func NewClerkAuthProvider(clerkKey, signInURL string, database db.DB) *ClerkAuthProvider {
	if clerkKey != "" {
		clerk.SetKey(clerkKey)
	}

	return &ClerkAuthProvider{
		db:        database,
		enabled:   clerkKey != "",
		signInURL: signInURL,
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie(config.CookieClerk)
			if err != nil {
				return ""
			}
			return cookie.Value
		}),
	}
}

// Enabled reports whether social login can be offered.
func (c *ClerkAuthProvider) Enabled() bool {
	return c != nil && c.enabled && c.signInURL != ""
}

func (c *ClerkAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	if c == nil || !c.enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return clerkhttp.WithHeaderAuthorization(c.cookieExtractor)
}

func (c *ClerkAuthProvider) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	claims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok {
		return "", errors.New("failed to get session claims from context")
	}
	return model.UserID(claims.Subject), nil
}

func (c *ClerkAuthProvider) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	userID, err := c.GetUserIDFromSession(r)
	if err != nil {
		return "", unauthorized(w, r, err)
	}
	return userID, nil
}

// DisplayName returns the username recorded by the user webhook, asking
// Clerk when the user is not known locally.
func (c *ClerkAuthProvider) DisplayName(ctx context.Context, id model.UserID) (string, error) {
	if c.db != nil {
		var name string
		err := c.db.QueryRow(ctx, "SELECT username FROM users WHERE id = ?", string(id)).Scan(&name)
		if err == nil && name != "" {
			return name, nil
		}
	}

	if !c.enabled {
		return "", ErrNoUser
	}

	usr, err := clerkuser.Get(ctx, string(id))
	if err != nil {
		return "", err
	}
	if usr.Username != nil && *usr.Username != "" {
		return *usr.Username, nil
	}
	if usr.FirstName != nil {
		return *usr.FirstName, nil
	}
	return usr.ID, nil
}

// SocialLoginHandler sends the browser to the Clerk sign-in page for the
// provider. Without a Clerk configuration it returns to the login page with
// a flash message.
func (c *ClerkAuthProvider) SocialLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())

		provider, ok := findSocialProvider(r.PathValue("provider"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		if !c.Enabled() {
			l.Warn().Str("provider", provider.ID).Msg("Social login requested but Clerk is not configured")
			http.Redirect(w, r, routes.AuthLogin+"?flash="+FlashSocialUnavailable, http.StatusFound)
			return
		}

		redirect := r.URL.Query().Get("redirect")
		if redirect == "" {
			redirect = routes.RootPath
		}

		target, err := url.Parse(c.signInURL)
		if err != nil {
			l.Error().Err(err).Str("sign_in_url", c.signInURL).Msg("Invalid Clerk sign-in URL")
			http.Redirect(w, r, routes.AuthLogin+"?flash="+FlashSocialUnavailable, http.StatusFound)
			return
		}
		q := target.Query()
		q.Set("redirect_url", absoluteURL(r, redirect))
		target.RawQuery = q.Encode()

		l.Info().Str("provider", provider.ID).Msg("Redirecting to social login")
		http.Redirect(w, r, target.String(), http.StatusFound)
	}
}

func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}

func (c *ClerkAuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	type EventPayload struct {
		Data struct {
			clerk.User
		} `json:"data"`

		Type string `json:"type"`
	}

	var payload EventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		l.Error().Err(err).Msg("Error decoding webhook payload")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if c == nil || c.db == nil {
		l.Warn().Str("type", payload.Type).Msg("User webhook ignored, no user database")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	usr := payload.Data.User
	ul := l.With().Str("user_id", usr.ID).Str("type", payload.Type).Logger()

	switch payload.Type {
	case "user.created", "user.updated":
		username, email := webhookIdentity(&usr)
		if username == "" {
			ul.Warn().Msg("No username or external account for user")
			http.Error(w, "No external accounts found", http.StatusBadRequest)
			return
		}

		_, err := c.db.Exec(r.Context(),
			`INSERT INTO users (id, username, email) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET username = excluded.username, email = excluded.email`,
			usr.ID, username, email)
		if err != nil {
			ul.Error().Err(err).Msg("Error saving user")
			http.Error(w, "Error saving user", http.StatusInternalServerError)
			return
		}

		ul.Info().Str("username", username).Msg("User saved")
		if payload.Type == "user.created" {
			w.WriteHeader(http.StatusCreated)
		} else {
			w.WriteHeader(http.StatusNoContent)
		}
	case "user.deleted":
		if _, err := c.db.Exec(r.Context(), "DELETE FROM users WHERE id = ?", usr.ID); err != nil {
			ul.Error().Err(err).Msg("Error deleting user")
			http.Error(w, "Error deleting user", http.StatusInternalServerError)
			return
		}

		ul.Info().Msg("User deleted")
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
	}
}

// webhookIdentity picks the username and email of a user, preferring the
// Clerk username over the first Google or GitHub account.
func webhookIdentity(usr *clerk.User) (username, email string) {
	for _, acc := range usr.ExternalAccounts {
		if acc == nil || (acc.Provider != "oauth_google" && acc.Provider != "oauth_github") {
			continue
		}
		if acc.Username != nil {
			username = *acc.Username
		}
		email = acc.EmailAddress
		if username == "" {
			username = acc.EmailAddress
		}
		break
	}

	if usr.Username != nil && *usr.Username != "" {
		username = *usr.Username
	}
	if email == "" && len(usr.EmailAddresses) > 0 && usr.EmailAddresses[0] != nil {
		email = usr.EmailAddresses[0].EmailAddress
	}
	return username, email
}
