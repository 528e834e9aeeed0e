package profilecmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperbuds/hyperbuds-client/internal/business"
	"github.com/hyperbuds/hyperbuds-client/internal/cmdutils"
	"github.com/hyperbuds/hyperbuds-client/internal/profile"
)

func Cmd(buildInfo string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and edit your creator profile",
	}

	cmd.AddCommand(
		meCmd(buildInfo),
		showCmd(buildInfo),
		updateCmd(buildInfo),
		uploadCmd(buildInfo),
		prefCmd(buildInfo),
	)

	return cmd
}

func meCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"me",
		"Show the signed-in account",
		"Show the signed-in account",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			user, err := app.Profiles.Me(ctx)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, user)
		}),
	)
}

func showCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"show",
		"Show your creator profile",
		"Show your creator profile",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			p, err := app.Profiles.Profile(ctx)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, p)
		}),
	)
}

func updateCmd(buildInfo string) *cobra.Command {
	var (
		cmd                        *cobra.Command
		displayName, bio, location string
		niches                     []string
	)

	cmd = cmdutils.CobraCommand(
		"update",
		"Change profile fields",
		"Change profile fields. Only the given flags are sent.",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			var u profile.Update
			if cmd.Flags().Changed("display-name") {
				u.DisplayName = &displayName
			}
			if cmd.Flags().Changed("bio") {
				u.Bio = &bio
			}
			if cmd.Flags().Changed("location") {
				u.Location = &location
			}
			if cmd.Flags().Changed("niche") {
				u.Niches = niches
			}

			p, err := app.Profiles.UpdateProfile(ctx, u)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, p)
		}),
	)

	cmd.Flags().StringVar(&displayName, "display-name", "", "display name")
	cmd.Flags().StringVar(&bio, "bio", "", "short biography")
	cmd.Flags().StringVar(&location, "location", "", "location")
	cmd.Flags().StringSliceVar(&niches, "niche", nil, "content niches, repeatable")

	return cmd
}

func uploadCmd(buildInfo string) *cobra.Command {
	var kind, contentType string

	cmd := cmdutils.CobraCommand(
		"upload <file>",
		"Upload an avatar or gallery image",
		"Upload an avatar or gallery image",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			path := inv.Args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			media, err := app.Profiles.UploadMedia(ctx, profile.MediaUpload{
				Filename:    filepath.Base(path),
				ContentType: contentType,
				Kind:        kind,
				Data:        data,
			})
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, media)
		}),
	)
	cmd.Args = cobra.ExactArgs(1)

	cmd.Flags().StringVar(&kind, "kind", "", "avatar or gallery")
	cmd.Flags().StringVar(&contentType, "content-type", "", "media type, detected from the file when empty")

	return cmd
}

func prefCmd(buildInfo string) *cobra.Command {
	cmd := cmdutils.CobraCommand(
		"pref <name> [value]",
		"Read or set a local preference",
		"Read a preference stored on this device, or set it when a value is given.",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			name := inv.Args[0]
			if len(inv.Args) == 2 {
				return app.Profiles.SetPreference(ctx, name, inv.Args[1])
			}

			value, ok, err := app.Profiles.Preference(ctx, name)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("preference %q is not set", name)
			}

			_, err = fmt.Fprintln(inv.Out, value)

			return err
		}),
	)
	cmd.Args = cobra.RangeArgs(1, 2)

	return cmd
}
