package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/txn2/gamebuddy/pkg/apiclient"
	"github.com/txn2/gamebuddy/pkg/session"
)

// ProfileImageField is the multipart field carrying a new avatar.
const ProfileImageField = "profile_image"

const (
	msgLoginFailed    = "Login failed. Please check your username and password."
	msgSignupFailed   = "Sign up failed. Please try again."
	msgLogoutFailed   = "Logout failed."
	msgUserFailed     = "Failed to load user information."
	msgPasswordFailed = "Failed to change password."
	msgImageFailed    = "Failed to update profile image."
)

// SignupRequest is the signup form.
type SignupRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePasswordRequest is the change-password form.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	User  session.User `json:"user"`
	Token string       `json:"token"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a user and token. Bad credentials come
// back as an APIError and leave any existing session alone.
func (c *Client) Login(ctx context.Context, username, password string) (session.User, string, error) {
	return c.authenticate(ctx, loginPath, credentials{Username: username, Password: password}, msgLoginFailed)
}

// Signup creates an account and signs it in.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (session.User, string, error) {
	return c.authenticate(ctx, signupPath, req, msgSignupFailed)
}

func (c *Client) authenticate(ctx context.Context, path string, body any, fallback string) (session.User, string, error) {
	resp, err := c.api.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      path,
		JSON:      body,
		Anonymous: true,
	})
	if err != nil {
		return session.User{}, "", fmt.Errorf("authenticating: %w", err)
	}
	if err := resp.Err(fallback); err != nil {
		return session.User{}, "", err
	}

	var out authResponse
	if err := resp.Decode(&out); err != nil {
		return session.User{}, "", fmt.Errorf("authenticating: %w", err)
	}
	if out.Token == "" {
		return session.User{}, "", fmt.Errorf("authenticating: %w: response has no token", apiclient.ErrMalformed)
	}
	return out.User, out.Token, nil
}

// Invalidate asks the server to revoke token. The request carries token
// explicitly so it works after the local session is gone, and a 401 on it
// does not start another teardown.
func (c *Client) Invalidate(ctx context.Context, token string) error {
	resp, err := c.api.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      logoutPath,
		Header:    http.Header{"Authorization": {"Token " + token}},
		Anonymous: true,
	})
	if err != nil {
		return fmt.Errorf("invalidating token: %w", err)
	}
	return resp.Err(msgLogoutFailed)
}

// CurrentUser fetches the signed-in user.
func (c *Client) CurrentUser(ctx context.Context) (session.User, error) {
	resp, err := c.api.Get(ctx, currentUserPath, nil)
	if err != nil {
		return session.User{}, fmt.Errorf("fetching current user: %w", err)
	}
	return decodeUser(resp, msgUserFailed)
}

// ChangePassword changes the password and returns the reissued token.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (string, error) {
	resp, err := c.api.Post(ctx, changePasswordPath, req)
	if err != nil {
		return "", fmt.Errorf("changing password: %w", err)
	}
	if err := resp.Err(msgPasswordFailed); err != nil {
		return "", err
	}

	var out tokenResponse
	if err := resp.Decode(&out); err != nil {
		return "", fmt.Errorf("changing password: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("changing password: %w: response has no token", apiclient.ErrMalformed)
	}
	return out.Token, nil
}

// UploadProfileImage replaces the avatar and returns the updated user.
func (c *Client) UploadProfileImage(ctx context.Context, fileName string, content io.Reader) (session.User, error) {
	resp, err := c.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   profileImagePath,
		Files:  []apiclient.FilePart{{Field: ProfileImageField, FileName: fileName, Content: content}},
	})
	if err != nil {
		return session.User{}, fmt.Errorf("uploading profile image: %w", err)
	}
	return decodeUser(resp, msgImageFailed)
}

// DeleteProfileImage removes the avatar and returns the updated user. When
// the server answers without a body the user is fetched again.
func (c *Client) DeleteProfileImage(ctx context.Context) (session.User, error) {
	resp, err := c.api.Delete(ctx, profileImagePath)
	if err != nil {
		return session.User{}, fmt.Errorf("removing profile image: %w", err)
	}
	if err := resp.Err(msgImageFailed); err != nil {
		return session.User{}, err
	}
	if !resp.IsJSON() {
		return c.CurrentUser(ctx)
	}
	return decodeUser(resp, msgImageFailed)
}

func decodeUser(resp *apiclient.Response, fallback string) (session.User, error) {
	if err := resp.Err(fallback); err != nil {
		return session.User{}, err
	}
	var u session.User
	if err := resp.Decode(&u); err != nil {
		return session.User{}, fmt.Errorf("decoding user: %w", err)
	}
	if u.ID == 0 && u.Username == "" {
		return session.User{}, fmt.Errorf("decoding user: %w: response has no user", apiclient.ErrMalformed)
	}
	return u, nil
}

// Verify interface compliance.
var _ session.Invalidator = (*Client)(nil)
