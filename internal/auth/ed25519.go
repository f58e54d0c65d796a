package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/rs/zerolog"
)

const challengeSize = 32

// Ed25519AuthProvider authenticates the administrator by a signature over
// the current server challenge.
type Ed25519AuthProvider struct {
	publicKey  ed25519.PublicKey
	headerName string
	cookieName string
	userID     model.UserID

	mu        sync.RWMutex
	challenge []byte
}

func NewEd25519AuthProvider(publicKeyPEM string, headerName string, userID model.UserID) (*Ed25519AuthProvider, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	publicKey, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("key is not an Ed25519 public key")
	}

	challenge, err := newChallenge()
	if err != nil {
		return nil, err
	}

	return &Ed25519AuthProvider{
		publicKey:  publicKey,
		headerName: headerName,
		cookieName: config.CookieAuthToken,
		userID:     userID,
		challenge:  challenge,
	}, nil
}

func newChallenge() ([]byte, error) {
	challenge := make([]byte, challengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}
	return challenge, nil
}

// verify reports whether signature signs the current challenge.
func (p *Ed25519AuthProvider) verify(signature []byte) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ed25519.Verify(p.publicKey, p.challenge, signature)
}

// WithHeaderAuthorization returns middleware that puts the administrator id
// in the request context when the request carries a valid signature, in the
// auth header or else in the auth cookie. Requests without one pass through.
func (p *Ed25519AuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := zerolog.Ctx(r.Context())

			var signature []byte
			var err error

			authHeader := r.Header.Get(p.headerName)
			if p.headerName != "" && authHeader != "" {
				signature, err = base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader))
				if err != nil {
					l.Debug().Err(err).Msg("Failed to decode signature from header")
				}
			} else if cookie, cerr := r.Cookie(p.cookieName); cerr == nil && cookie.Value != "" {
				signature, err = base64.StdEncoding.DecodeString(cookie.Value)
				if err != nil {
					l.Debug().Err(err).Msg("Failed to decode signature from cookie")
				}
			}

			if len(signature) > 0 && p.verify(signature) {
				next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), p.userID)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (p *Ed25519AuthProvider) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return "", ErrNoUser
	}
	return userID, nil
}

// HandleWebhookUser is a no-op for this simple provider
func (p *Ed25519AuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GetChallenge returns a copy of the challenge that needs to be signed.
func (p *Ed25519AuthProvider) GetChallenge() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]byte(nil), p.challenge...)
}

// RefreshChallenge replaces the challenge, invalidating every issued signature.
func (p *Ed25519AuthProvider) RefreshChallenge() error {
	challenge, err := newChallenge()
	if err != nil {
		authLogger.Error().Err(err).Msg("Failed to generate challenge")
		return err
	}

	p.mu.Lock()
	p.challenge = challenge
	p.mu.Unlock()
	return nil
}

func (p *Ed25519AuthProvider) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	userID, err := p.GetUserIDFromSession(r)
	if err != nil {
		return "", unauthorized(w, r, err)
	}
	return userID, nil
}
