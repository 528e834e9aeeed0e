package sessioncmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperbuds/hyperbuds-client/internal/business"
	"github.com/hyperbuds/hyperbuds-client/internal/cmdutils"
)

type status struct {
	SignedIn     bool       `json:"signedIn"`
	DisplayName  string     `json:"displayName,omitempty"`
	IssuedAt     *time.Time `json:"issuedAt,omitempty"`
	RefreshState string     `json:"refreshState"`
	LastError    string     `json:"lastError,omitempty"`
}

func Cmd(buildInfo string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and refresh the device session",
	}

	cmd.AddCommand(
		statusCmd(buildInfo),
		refreshCmd(buildInfo),
	)

	return cmd
}

func statusCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"status",
		"Show whether this device is signed in",
		"Show whether this device is signed in. Tokens are never printed.",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			s, err := app.Sessions.Current(ctx)
			if err != nil {
				return err
			}

			name, err := app.Profiles.DisplayName(ctx)
			if err != nil {
				return err
			}

			state, lastErr := app.Sessions.State()
			out := status{
				SignedIn:     s.SignedIn(),
				DisplayName:  name,
				RefreshState: state.String(),
			}
			if !s.IssuedAt.IsZero() {
				out.IssuedAt = &s.IssuedAt
			}
			if lastErr != nil {
				out.LastError = lastErr.Error()
			}

			return cmdutils.PrintJSON(inv.Out, out)
		}),
	)
}

func refreshCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"refresh",
		"Exchange the refresh token for a new access token",
		"Exchange the refresh token for a new access token",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			if _, err := app.Sessions.ForceRefresh(ctx); err != nil {
				return err
			}

			s, err := app.Sessions.Current(ctx)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, status{
				SignedIn:     s.SignedIn(),
				IssuedAt:     &s.IssuedAt,
				RefreshState: "idle",
			})
		}),
	)
}
