// Package identity signs users in and out against an account backend.
// Session cookies are handled separately by the auth package.
package identity

import (
	"context"
	"errors"
)

// Result is the outcome of an account operation. Message is user-facing.
// UserID is set on successful sign-in and sign-up.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}

// Provider is an account backend.
type Provider interface {
	SignIn(ctx context.Context, email, password string) Result
	SignUp(ctx context.Context, email, password, name string) Result
	SignOut(ctx context.Context, userID string) Result
	ResetPassword(ctx context.Context, email string) Result
}

// ResetConfirmer completes a password reset started by ResetPassword.
// Only providers that issue their own reset tokens implement it.
type ResetConfirmer interface {
	ConfirmReset(ctx context.Context, token, newPassword string) Result
}

// UserChecker reports whether a session's user still exists.
type UserChecker interface {
	Exists(ctx context.Context, userID string) bool
}

var ErrUnknownUser = errors.New("unknown_user")

func ok(msg string, userID string) Result { return Result{Success: true, Message: msg, UserID: userID} }

func fail(msg string) Result { return Result{Message: msg} }
