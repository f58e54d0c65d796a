package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/debemdeboas/resumark/internal/config"
	"github.com/rs/zerolog"
)

func writeChallenge(w http.ResponseWriter, r *http.Request, challenge []byte) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	err := json.NewEncoder(w).Encode(map[string]string{
		"challenge": base64.StdEncoding.EncodeToString(challenge),
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to write challenge")
	}
}

// Ed25519ChallengeHandler serves the current challenge on GET and issues a
// new one on POST.
func Ed25519ChallengeHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeChallenge(w, r, provider.GetChallenge())
		case http.MethodPost:
			if err := provider.RefreshChallenge(); err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to refresh challenge")
				http.Error(w, config.ErrRefreshChallengeFmt, http.StatusInternalServerError)
				return
			}
			writeChallenge(w, r, provider.GetChallenge())
		default:
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		}
	}
}

// Ed25519VerifyHandler checks the signature in the auth header and stores it
// in the auth cookie for a day.
func Ed25519VerifyHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}

		authHeader := r.Header.Get(provider.headerName)
		if authHeader == "" {
			http.Error(w, config.ErrAuthHeaderRequired, http.StatusUnauthorized)
			return
		}

		signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader))
		if err != nil {
			authLogger.Debug().Err(err).Msg("Failed to decode signature")
			http.Error(w, config.ErrInvalidSignatureFormat, http.StatusUnauthorized)
			return
		}

		if !provider.verify(signature) {
			authLogger.Warn().Str("remote_addr", r.RemoteAddr).Msg("Signature verification failed")
			http.Error(w, config.ErrInvalidSignature, http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     provider.cookieName,
			Value:    base64.StdEncoding.EncodeToString(signature),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			Secure:   r.TLS != nil,
			MaxAge:   3600 * 24,
		})

		w.WriteHeader(http.StatusOK)
	}
}
