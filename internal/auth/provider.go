// Package auth resolves the signed in user. The administrator signs a
// server challenge with an Ed25519 key; everyone else signs in through a
// Clerk social login.
package auth

import (
	"net/http"

	"github.com/debemdeboas/resumark/internal/model"
	"github.com/rs/zerolog"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

type AuthProvider interface {
	WithHeaderAuthorization() func(http.Handler) http.Handler

	GetUserIDFromSession(r *http.Request) (model.UserID, error)

	EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error)

	HandleWebhookUser(w http.ResponseWriter, r *http.Request)
}

// Chain tries each provider in order and returns the first user found.
type Chain []AuthProvider

func (c Chain) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(c) - 1; i >= 0; i-- {
			next = c[i].WithHeaderAuthorization()(next)
		}
		return next
	}
}

func (c Chain) GetUserIDFromSession(r *http.Request) (model.UserID, error) {
	err := ErrNoUser
	for _, p := range c {
		var id model.UserID
		if id, err = p.GetUserIDFromSession(r); err == nil {
			return id, nil
		}
	}
	return "", err
}

func (c Chain) EnforceUserAndGetID(w http.ResponseWriter, r *http.Request) (model.UserID, error) {
	id, err := c.GetUserIDFromSession(r)
	if err != nil {
		return "", unauthorized(w, r, err)
	}
	return id, nil
}

// HandleWebhookUser forwards to the chained Clerk provider, the only one
// that receives user webhooks.
func (c Chain) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	for _, p := range c {
		if _, ok := p.(*ClerkAuthProvider); ok {
			p.HandleWebhookUser(w, r)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
