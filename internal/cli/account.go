package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"sparklab/internal/client"
)

func NewRegisterCmd(configPath *string) *cobra.Command {
	var id, email, name, password string
	var age int
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a STUDENT or TEACHER account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			pwd, err := promptPassword(password)
			if err != nil {
				return err
			}
			if _, err := deps.api.Register(cmd.Context(), email, name, pwd, id, age); err != nil {
				return friendly(err)
			}
			user, err := deps.session.Login(cmd.Context(), deps.api, id, pwd)
			if err != nil {
				return friendly(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! You are signed in as %s (%s).\n", user.UserName, user.UserID, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "account ID, starting with STUDENT or TEACHER")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().IntVar(&age, "age", 0, "age")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func NewLoginCmd(configPath *string) *cobra.Command {
	var id, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			pwd, err := promptPassword(password)
			if err != nil {
				return err
			}
			user, err := deps.session.Login(cmd.Context(), deps.api, id, pwd)
			if err != nil {
				return friendly(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s).\n", user.UserID, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "account ID")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func NewLogoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			if err := deps.session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func NewWhoamiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			user, ok := deps.session.CurrentUser()
			if !ok {
				return client.ErrNotLoggedIn
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", user.UserID, user.UserName, user.Email, user.Role)
			return nil
		},
	}
}

// friendly turns API errors into messages for kids and teachers at the terminal.
func friendly(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	return err
}
