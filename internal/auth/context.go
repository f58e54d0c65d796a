package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/debemdeboas/resumark/internal/routes"
	"github.com/rs/zerolog"
)

var ErrNoUser = errors.New("no user ID in context")

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const ContextKeyUserID ContextKey = "userID"

func ContextWithUserID(ctx context.Context, userID model.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

func UserIDFromContext(ctx context.Context) (model.UserID, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(model.UserID)
	return userID, ok
}

func unauthorized(w http.ResponseWriter, r *http.Request, err error) error {
	zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Unauthorized access attempt")

	w.Header().Add(config.HHxRedirect, routes.AuthLogin)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	return err
}
