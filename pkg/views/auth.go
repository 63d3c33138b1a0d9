package views

import (
	"context"
	"fmt"

	"github.com/txn2/gamebuddy/pkg/backend"
	"github.com/txn2/gamebuddy/pkg/mutation"
	"github.com/txn2/gamebuddy/pkg/session"
)

// SessionState is the read side of session.Manager.
type SessionState interface {
	Wait(ctx context.Context) error
	IsAuthenticated() bool
}

// RequireAuth waits for the session restore to finish, then returns
// session.ErrNoSession when signed out.
func RequireAuth(ctx context.Context, s SessionState) error {
	if err := s.Wait(ctx); err != nil {
		return err
	}
	if !s.IsAuthenticated() {
		return fmt.Errorf("checking session: %w", session.ErrNoSession)
	}
	return nil
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Username string
	Password string
}

// Submit signs in. The password is cleared from the form afterwards.
func (f *LoginForm) Submit(ctx context.Context, a *mutation.Accounts) mutation.Result {
	r := a.Login(ctx, f.Username, f.Password)
	f.Password = ""
	return r
}

// SignupForm is the account creation form.
type SignupForm struct {
	backend.SignupRequest
}

// Validate checks the form without sending anything.
func (f *SignupForm) Validate() error {
	return mutation.ValidateSignup(f.SignupRequest)
}

// Submit creates the account and signs in. Passwords are cleared from the
// form afterwards.
func (f *SignupForm) Submit(ctx context.Context, a *mutation.Accounts) mutation.Result {
	r := a.Signup(ctx, f.SignupRequest)
	f.Password, f.ConfirmPassword = "", ""
	return r
}
