package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinicops/clinic-console/internal"
	"github.com/clinicops/clinic-console/internal/session"
)

var (
	loginEmail    string
	loginPassword string

	registerEmail     string
	registerPassword  string
	registerFirstName string
	registerLastName  string
	registerExtra     []string

	whoamiVerify bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the clinic API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			if err := deps.Session.Signin(ctx, loginEmail, loginPassword); err != nil {
				return fmt.Errorf("login failed: %s", internal.ErrorMessage(err))
			}
			fmt.Printf("Signed in as %s (%s)\n", deps.Session.FullName(), loginEmail)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the local session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			deps.Session.Signout(ctx)
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			extra := make(map[string]string, len(registerExtra))
			for _, pair := range registerExtra {
				key, value, found := strings.Cut(pair, "=")
				if !found {
					return fmt.Errorf("invalid --extra value %q, want key=value", pair)
				}
				extra[key] = value
			}

			params := session.RegisterParams{
				Email:     registerEmail,
				Password:  registerPassword,
				FirstName: registerFirstName,
				LastName:  registerLastName,
				Extra:     extra,
			}
			if err := deps.Session.Signup(ctx, params); err != nil {
				return fmt.Errorf("registration failed: %s", internal.ErrorMessage(err))
			}
			fmt.Printf("Account created, signed in as %s\n", deps.Session.FullName())
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			if whoamiVerify {
				if err := deps.Session.VerifyAuth(ctx); err != nil && !internal.IsNotAuthenticated(err) {
					return fmt.Errorf("verification failed: %s", internal.ErrorMessage(err))
				}
			}

			snap := deps.Session.Snapshot()
			if !snap.IsAuthenticated {
				fmt.Println("Not signed in.")
				return nil
			}
			user := snap.User
			fmt.Printf("User:        %s\n", user.FullName())
			fmt.Printf("Email:       %s\n", user.Email)
			fmt.Printf("Type:        %s\n", user.UserType)
			fmt.Printf("Status:      %s\n", snap.Status())
			if len(user.Roles) > 0 {
				fmt.Printf("Roles:       %s\n", strings.Join(user.Roles, ", "))
			}
			if len(user.Permissions) > 0 {
				fmt.Printf("Permissions: %s\n", strings.Join(user.Permissions, ", "))
			}
			return nil
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Ask the server whether the session is still valid",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			err := deps.Session.VerifyAuth(ctx)
			switch {
			case err == nil:
				fmt.Printf("Session valid for %s\n", deps.Session.FullName())
			case internal.IsNotAuthenticated(err):
				// Expected outcome for a client with no live session.
				fmt.Println("No active session.")
			default:
				return fmt.Errorf("verification failed: %s", internal.ErrorMessage(err))
			}
			return nil
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rotate the session credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDeps(func(ctx context.Context, deps *Dependencies) error {
			if err := deps.Session.RefreshToken(ctx); err != nil {
				return fmt.Errorf("refresh failed: %s", internal.ErrorMessage(err))
			}
			fmt.Println("Session refreshed.")
			return nil
		})
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	registerCmd.Flags().StringVar(&registerEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "account password")
	registerCmd.Flags().StringVar(&registerFirstName, "first-name", "", "first name")
	registerCmd.Flags().StringVar(&registerLastName, "last-name", "", "last name")
	registerCmd.Flags().StringArrayVar(&registerExtra, "extra", nil, "additional key=value fields")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("password")

	whoamiCmd.Flags().BoolVar(&whoamiVerify, "verify", false, "confirm the session with the server before printing")
}
