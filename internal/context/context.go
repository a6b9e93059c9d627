package context

import (
	"context"
	"net/http"

	"github.com/prelink-app/identity/internal/models"
)

type contextKey string

const (
	authenticatedUserContextKey = contextKey("authenticatedUser")
)

func ContextSetAuthenticatedUser(r *http.Request, user *models.AuthUser) *http.Request {
	ctx := context.WithValue(r.Context(), authenticatedUserContextKey, user)
	return r.WithContext(ctx)
}

func ContextGetAuthenticatedUser(r *http.Request) *models.AuthUser {
	user, ok := r.Context().Value(authenticatedUserContextKey).(*models.AuthUser)
	if !ok {
		return nil
	}

	return user
}
