package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/txn2/gamebuddy/pkg/backend"
	"github.com/txn2/gamebuddy/pkg/mutation"
	"github.com/txn2/gamebuddy/pkg/views"
)

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "gamebuddy version %s\n", Version)
		},
	}
}

// report prints a successful result or turns a failed one into an error.
func (a *app) report(cmd *cobra.Command, r mutation.Result) error {
	if !r.OK() {
		return a.done(errors.New(r.Message))
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), r.Message)
	return a.done(nil)
}

func (a *app) loginCommand() *cobra.Command {
	form := &views.LoginForm{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if form.Password == "" {
				pw, err := a.readLine("Password: ")
				if err != nil {
					return err
				}
				form.Password = pw
			}
			return a.report(cmd, form.Submit(cmd.Context(), a.platform.Accounts()))
		},
	}
	cmd.Flags().StringVarP(&form.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&form.Password, "password", "p", "", "password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (a *app) signupCommand() *cobra.Command {
	form := &views.SignupForm{}
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if form.Password == "" {
				if form.Password, err = a.readLine("Password: "); err != nil {
					return err
				}
			}
			if form.ConfirmPassword, err = a.readLine("Confirm password: "); err != nil {
				return err
			}
			return a.report(cmd, form.Submit(cmd.Context(), a.platform.Accounts()))
		},
	}
	cmd.Flags().StringVar(&form.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&form.LastName, "last", "", "last name")
	cmd.Flags().StringVarP(&form.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&form.Password, "password", "p", "", "password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and revoke the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess := a.platform.Session()
			if err := sess.Wait(cmd.Context()); err != nil {
				return err
			}
			if !sess.IsAuthenticated() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			if err := sess.Logout(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireAuth(cmd.Context()); err != nil {
				return err
			}
			u, err := a.platform.Backend().CurrentUser(cmd.Context())
			if err != nil {
				return a.done(err)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s (%s)\n", u.Username, u.DisplayName())
			if u.Email != "" {
				_, _ = fmt.Fprintf(out, "email: %s\n", u.Email)
			}
			if u.ProfileImage != "" {
				_, _ = fmt.Fprintf(out, "avatar: %s\n", u.ProfileImage)
			}
			return a.done(nil)
		},
	}
}

func (a *app) passwdCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireAuth(cmd.Context()); err != nil {
				return err
			}
			var req backend.ChangePasswordRequest
			var err error
			if req.CurrentPassword, err = a.readLine("Current password: "); err != nil {
				return err
			}
			if req.NewPassword, err = a.readLine("New password: "); err != nil {
				return err
			}
			if req.ConfirmPassword, err = a.readLine("Confirm new password: "); err != nil {
				return err
			}
			return a.report(cmd, a.platform.Profile().ChangePassword(cmd.Context(), req))
		},
	}
}

func (a *app) avatarCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Manage the profile image",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set FILE",
			Short: "Upload a new profile image",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireAuth(cmd.Context()); err != nil {
					return err
				}
				// #nosec G304 -- path is the user's own argument
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening image: %w", err)
				}
				defer func() { _ = f.Close() }()
				return a.report(cmd, a.platform.Profile().SetAvatar(cmd.Context(), filepath.Base(args[0]), f))
			},
		},
		&cobra.Command{
			Use:   "remove",
			Short: "Remove the profile image",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.requireAuth(cmd.Context()); err != nil {
					return err
				}
				return a.report(cmd, a.platform.Profile().RemoveAvatar(cmd.Context()))
			},
		},
	)
	return cmd
}
