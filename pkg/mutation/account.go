package mutation

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/txn2/gamebuddy/pkg/backend"
	"github.com/txn2/gamebuddy/pkg/session"
)

const (
	msgLoginOK          = "Signed in."
	msgLoginFailed      = "Login failed. Please check your username and password."
	msgLoginMissing     = "Please enter both username and password."
	msgSignupOK         = "Account created."
	msgSignupFailed     = "Sign up failed. Please try again."
	msgSignupMissing    = "Please fill in all fields."
	msgPasswordMismatch = "Passwords do not match."
	msgPasswordOK       = "Password changed."
	msgPasswordFailed   = "Failed to change password."
	msgPasswordMissing  = "Please fill in all password fields."
	msgAvatarOK         = "Profile image updated."
	msgAvatarRemoved    = "Profile image removed."
	msgAvatarFailed     = "Failed to update profile image."
	msgAvatarMissing    = "Please choose an image."
	msgSessionSave      = "Signed in, but the session could not be saved."
)

// AccountAPI is the backend surface used by Accounts.
type AccountAPI interface {
	Login(ctx context.Context, username, password string) (session.User, string, error)
	Signup(ctx context.Context, req backend.SignupRequest) (session.User, string, error)
	ChangePassword(ctx context.Context, req backend.ChangePasswordRequest) (string, error)
	UploadProfileImage(ctx context.Context, fileName string, content io.Reader) (session.User, error)
	DeleteProfileImage(ctx context.Context) (session.User, error)
}

// SessionWriter is the part of session.Manager that account mutations
// update after the server confirms.
type SessionWriter interface {
	Login(ctx context.Context, user session.User, token string) error
	UpdateUser(ctx context.Context, user session.User) error
	ReplaceToken(ctx context.Context, token string) error
}

// Accounts runs sign-in, sign-up, password and profile image mutations and
// writes confirmed results into the session.
type Accounts struct {
	api  AccountAPI
	sess SessionWriter
}

// NewAccounts creates an account coordinator.
func NewAccounts(api AccountAPI, sess SessionWriter) *Accounts {
	return &Accounts{api: api, sess: sess}
}

// Login signs in and stores the session.
func (a *Accounts) Login(ctx context.Context, username, password string) Result {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return failed(invalid("username", msgLoginMissing), msgLoginFailed)
	}

	user, token, err := a.api.Login(ctx, username, password)
	if err != nil {
		return failed(err, msgLoginFailed)
	}
	if err := a.sess.Login(ctx, user, token); err != nil {
		return failed(fmt.Errorf("storing session: %w", err), msgSessionSave)
	}
	return succeeded(msgLoginOK)
}

// ValidateSignup checks the signup form before anything is sent.
func ValidateSignup(req backend.SignupRequest) error {
	fields := []struct{ name, value string }{
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
		{"username", req.Username},
		{"password", req.Password},
		{"confirm_password", req.ConfirmPassword},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return invalid(f.name, msgSignupMissing)
		}
	}
	if req.Password != req.ConfirmPassword {
		return invalid("confirm_password", msgPasswordMismatch)
	}
	return nil
}

// Signup creates an account and signs in with it.
func (a *Accounts) Signup(ctx context.Context, req backend.SignupRequest) Result {
	if err := ValidateSignup(req); err != nil {
		return failed(err, msgSignupFailed)
	}

	user, token, err := a.api.Signup(ctx, req)
	if err != nil {
		return failed(err, msgSignupFailed)
	}
	if err := a.sess.Login(ctx, user, token); err != nil {
		return failed(fmt.Errorf("storing session: %w", err), msgSessionSave)
	}
	return succeeded(msgSignupOK)
}

// ChangePassword changes the password and stores the reissued token.
func (a *Accounts) ChangePassword(ctx context.Context, req backend.ChangePasswordRequest) Result {
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return failed(invalid("new_password", msgPasswordMissing), msgPasswordFailed)
	}
	if req.NewPassword != req.ConfirmPassword {
		return failed(invalid("confirm_password", msgPasswordMismatch), msgPasswordFailed)
	}

	token, err := a.api.ChangePassword(ctx, req)
	if err != nil {
		return failed(err, msgPasswordFailed)
	}
	if token != "" {
		if err := a.sess.ReplaceToken(ctx, token); err != nil {
			return failed(fmt.Errorf("storing reissued token: %w", err), msgPasswordFailed)
		}
	}
	return succeeded(msgPasswordOK)
}

// SetAvatar uploads a new profile image and stores the returned user.
func (a *Accounts) SetAvatar(ctx context.Context, fileName string, content io.Reader) Result {
	if content == nil || strings.TrimSpace(fileName) == "" {
		return failed(invalid(backend.ProfileImageField, msgAvatarMissing), msgAvatarFailed)
	}

	user, err := a.api.UploadProfileImage(ctx, fileName, content)
	if err != nil {
		return failed(err, msgAvatarFailed)
	}
	if err := a.sess.UpdateUser(ctx, user); err != nil {
		return failed(fmt.Errorf("storing user: %w", err), msgAvatarFailed)
	}
	return succeeded(msgAvatarOK)
}

// RemoveAvatar deletes the profile image and stores the returned user.
func (a *Accounts) RemoveAvatar(ctx context.Context) Result {
	user, err := a.api.DeleteProfileImage(ctx)
	if err != nil {
		return failed(err, msgAvatarFailed)
	}
	if err := a.sess.UpdateUser(ctx, user); err != nil {
		return failed(fmt.Errorf("storing user: %w", err), msgAvatarFailed)
	}
	return succeeded(msgAvatarRemoved)
}

// Verify interface compliance.
var (
	_ WishlistAPI   = (*backend.Client)(nil)
	_ ReviewAPI     = (*backend.Client)(nil)
	_ AccountAPI    = (*backend.Client)(nil)
	_ SessionWriter = (*session.Manager)(nil)
)
