package matchingcmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hyperbuds/hyperbuds-client/internal/business"
	"github.com/hyperbuds/hyperbuds-client/internal/cmdutils"
	"github.com/hyperbuds/hyperbuds-client/internal/matching"
)

func Cmd(buildInfo string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matching",
		Short: "Find creators to collaborate with",
	}

	cmd.AddCommand(
		suggestionsCmd(buildInfo),
		leaderboardCmd(buildInfo),
	)

	return cmd
}

func suggestionsCmd(buildInfo string) *cobra.Command {
	var limit int

	cmd := cmdutils.CobraCommand(
		"suggestions",
		"List collaboration suggestions",
		"List collaboration suggestions, best match first.",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			suggestions, err := app.Matching.Suggestions(ctx, limit)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, suggestions)
		}),
	)

	cmd.Flags().IntVar(&limit, "limit", matching.DefaultLimit, "number of suggestions")

	return cmd
}

func leaderboardCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"leaderboard",
		"Show the creator leaderboard",
		"Show the creator leaderboard",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			entries, err := app.Matching.Leaderboard(ctx)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, entries)
		}),
	)
}
