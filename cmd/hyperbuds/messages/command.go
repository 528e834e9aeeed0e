package messagescmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperbuds/hyperbuds-client/internal/business"
	"github.com/hyperbuds/hyperbuds-client/internal/cmdutils"
	"github.com/hyperbuds/hyperbuds-client/internal/messaging"
)

func Cmd(buildInfo string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Read and send direct messages",
	}

	cmd.AddCommand(
		listCmd(buildInfo),
		showCmd(buildInfo),
		sendCmd(buildInfo),
	)

	return cmd
}

func listCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"list",
		"List conversations",
		"List conversations",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			conversations, err := app.Messaging.Conversations(ctx)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, conversations)
		}),
	)
}

func showCmd(buildInfo string) *cobra.Command {
	var (
		limit  int
		before string
	)

	cmd := cmdutils.CobraCommand(
		"show <conversation-id>",
		"Show the messages of a conversation",
		"Show the messages of a conversation, oldest first. Use --before with an RFC 3339 time to page back.",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			page := messaging.PageRequest{Limit: limit}
			if before != "" {
				t, err := time.Parse(time.RFC3339, before)
				if err != nil {
					return err
				}
				page.Before = t
			}

			messages, err := app.Messaging.Messages(ctx, inv.Args[0], page)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, messages)
		}),
	)
	cmd.Args = cobra.ExactArgs(1)

	cmd.Flags().IntVar(&limit, "limit", messaging.DefaultPageSize, "number of messages")
	cmd.Flags().StringVar(&before, "before", "", "only messages sent before this time")

	return cmd
}

func sendCmd(buildInfo string) *cobra.Command {
	cmd := cmdutils.CobraCommand(
		"send <conversation-id> <text>",
		"Send a message",
		"Send a message",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			thread := app.Messaging.Thread(inv.Args[0])
			thread.SetDraft(inv.Args[1])

			msg, err := thread.SendDraft(ctx)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, msg)
		}),
	)
	cmd.Args = cobra.ExactArgs(2)

	return cmd
}
