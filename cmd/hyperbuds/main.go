package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	authcmd "github.com/hyperbuds/hyperbuds-client/cmd/hyperbuds/auth"
	matchingcmd "github.com/hyperbuds/hyperbuds-client/cmd/hyperbuds/matching"
	messagescmd "github.com/hyperbuds/hyperbuds-client/cmd/hyperbuds/messages"
	paymentscmd "github.com/hyperbuds/hyperbuds-client/cmd/hyperbuds/payments"
	profilecmd "github.com/hyperbuds/hyperbuds-client/cmd/hyperbuds/profile"
	sessioncmd "github.com/hyperbuds/hyperbuds-client/cmd/hyperbuds/session"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

var (
	// BuildInfo will be set by the build system
	BuildInfo = "{}"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "HyperBuds CLI Version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		value, err := utils.ExtractFromComplexValue(BuildInfo)
		if err != nil {
			return err
		}

		slog.InfoContext(cmd.Context(), value)

		return nil
	},
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hyperbuds",
		Short:         "HyperBuds CLI",
		Long:          "Command line client for the HyperBuds creator collaboration platform.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(
		versionCmd,
		authcmd.Cmd(BuildInfo),
		sessioncmd.Cmd(BuildInfo),
		profilecmd.Cmd(BuildInfo),
		matchingcmd.Cmd(BuildInfo),
		messagescmd.Cmd(BuildInfo),
		paymentscmd.Cmd(BuildInfo),
	)

	return cmd
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancelOnSignal()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slogctx.Debug(ctx, "Command failed", "error", err)

		msg := serviceerr.UserMessage(err)
		if msg == serviceerr.MessageGeneric {
			msg = err.Error()
		}
		_, _ = fmt.Fprintln(os.Stderr, msg)

		return err
	}

	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
