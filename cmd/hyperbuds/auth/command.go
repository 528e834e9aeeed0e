package authcmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperbuds/hyperbuds-client/internal/auth"
	"github.com/hyperbuds/hyperbuds-client/internal/business"
	"github.com/hyperbuds/hyperbuds-client/internal/cmdutils"
)

// EnvPassword is read when no --password flag is given.
const EnvPassword = "HYPERBUDS_PASSWORD"

func Cmd(buildInfo string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in and out of HyperBuds",
	}

	cmd.AddCommand(
		loginCmd(buildInfo),
		signupCmd(buildInfo),
		logoutCmd(buildInfo),
		forgotPasswordCmd(buildInfo),
		verifyEmailCmd(buildInfo),
	)

	return cmd
}

func loginCmd(buildInfo string) *cobra.Command {
	var creds auth.Credentials

	cmd := cmdutils.CobraCommand(
		"login",
		"Sign in",
		"Sign in with an email or username. The session is stored on this device.",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			creds.Password = passwordOrEnv(creds.Password)

			res, err := app.Auth.Login(ctx, creds)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, res.User)
		}),
	)

	cmd.Flags().StringVarP(&creds.Identifier, "identifier", "u", "", "email or username")
	cmd.Flags().StringVar(&creds.Password, "password", "", "password (default $"+EnvPassword+")")
	_ = cmd.MarkFlagRequired("identifier")

	return cmd
}

func signupCmd(buildInfo string) *cobra.Command {
	var reg auth.Registration

	cmd := cmdutils.CobraCommand(
		"signup",
		"Create an account",
		"Create an account. Depending on the backend the device is signed in right away or after email verification.",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			reg.Password = passwordOrEnv(reg.Password)

			res, err := app.Auth.Signup(ctx, reg)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, res)
		}),
	)

	cmd.Flags().StringVar(&reg.Email, "email", "", "email address")
	cmd.Flags().StringVar(&reg.Username, "username", "", "username")
	cmd.Flags().StringVar(&reg.DisplayName, "display-name", "", "display name")
	cmd.Flags().StringVar(&reg.Password, "password", "", "password (default $"+EnvPassword+")")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func logoutCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"logout",
		"Sign out",
		"Revoke the session at the backend and remove it from this device.",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, _ cmdutils.Invocation) error {
			return app.Auth.Logout(ctx)
		}),
	)
}

func forgotPasswordCmd(buildInfo string) *cobra.Command {
	cmd := cmdutils.CobraCommand(
		"forgot-password <email>",
		"Request a password reset email",
		"Request a password reset email",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			return app.Auth.ForgotPassword(ctx, inv.Args[0])
		}),
	)
	cmd.Args = cobra.ExactArgs(1)

	return cmd
}

func verifyEmailCmd(buildInfo string) *cobra.Command {
	cmd := cmdutils.CobraCommand(
		"verify-email [email]",
		"Resend the verification email",
		"Resend the verification email, retrying with backoff. Without an email the signed-in account is used.",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			var email string
			if len(inv.Args) > 0 {
				email = inv.Args[0]
			}

			return app.Auth.SendVerificationEmail(ctx, email)
		}),
	)
	cmd.Args = cobra.MaximumNArgs(1)

	return cmd
}

func passwordOrEnv(password string) string {
	if password != "" {
		return password
	}

	return strings.TrimRight(os.Getenv(EnvPassword), "\r\n")
}
