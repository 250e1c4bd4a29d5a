package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agadir/task-manager/internal/core/validation"
)

func newRegisterCmd(rt *runtime) *cobra.Command {
	var form validation.RegisterForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readSecret(cmd.InOrStdin(), form.Password)
			if err != nil {
				return err
			}
			form.Password = password
			if form.ConfirmPassword == "" {
				form.ConfirmPassword = password
			}

			if err := rt.app.Sessions.Register(cmd.Context(), form); err != nil {
				return err
			}
			return rt.printer(cmd).welcome(rt.app.Sessions.Session().User)
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&form.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "Password (read from stdin when omitted)")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "Password confirmation (defaults to --password)")
	return cmd
}

func newLoginCmd(rt *runtime) *cobra.Command {
	var form validation.LoginForm

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readSecret(cmd.InOrStdin(), form.Password)
			if err != nil {
				return err
			}
			form.Password = password

			if err := rt.app.Sessions.Login(cmd.Context(), form); err != nil {
				return err
			}
			return rt.printer(cmd).welcome(rt.app.Sessions.Session().User)
		},
	}
	cmd.Flags().StringVar(&form.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "Password (read from stdin when omitted)")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt.app.Sessions.Logout(cmd.Context())
			return rt.printer(cmd).message("signed out")
		},
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			return rt.printer(cmd).user(rt.app.Sessions.Session().User)
		},
	}
}

func readLine(in io.Reader) (string, error) {
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(sc.Text(), "\r"), nil
}
