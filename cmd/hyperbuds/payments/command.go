package paymentscmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hyperbuds/hyperbuds-client/internal/business"
	"github.com/hyperbuds/hyperbuds-client/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Plans, subscription and payment history",
	}

	cmd.AddCommand(
		plansCmd(buildInfo),
		subscriptionCmd(buildInfo),
		checkoutCmd(buildInfo),
		cancelCmd(buildInfo),
		historyCmd(buildInfo),
	)

	return cmd
}

func plansCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"plans",
		"List subscription plans",
		"List subscription plans",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			plans, err := app.Payments.Plans(ctx)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, plans)
		}),
	)
}

func subscriptionCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"subscription",
		"Show the current subscription",
		"Show the current subscription",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			sub, err := app.Payments.Subscription(ctx)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, sub)
		}),
	)
}

func checkoutCmd(buildInfo string) *cobra.Command {
	cmd := cmdutils.CobraCommand(
		"checkout <plan-id>",
		"Start a checkout for a plan",
		"Start a checkout for a plan and print the payment page URL.",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			checkout, err := app.Payments.Checkout(ctx, inv.Args[0])
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, checkout)
		}),
	)
	cmd.Args = cobra.ExactArgs(1)

	return cmd
}

func cancelCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"cancel",
		"Cancel the subscription",
		"Cancel the subscription at the end of the current period.",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			sub, err := app.Payments.CancelSubscription(ctx)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, sub)
		}),
	)
}

func historyCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"history",
		"List past payments",
		"List past payments",
		buildInfo,
		cmdutils.RunAsJob,
		cmdutils.WithApp(func(ctx context.Context, app *business.App, inv cmdutils.Invocation) error {
			payments, err := app.Payments.History(ctx)
			if err != nil {
				return err
			}

			return cmdutils.PrintJSON(inv.Out, payments)
		}),
	)
}
