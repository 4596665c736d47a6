package main

import (
	"context"
	"net/http"

	"github.com/inkwell-cms/inkwell/internal/identityservice"
)

type contextKey string

const userContextKey = contextKey("user")

func (app *application) createUserContext(r *http.Request, user *identityservice.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

func (app *application) getUserContext(r *http.Request) *identityservice.User {
	user, ok := r.Context().Value(userContextKey).(*identityservice.User)
	if !ok {
		return nil
	}
	return user
}
