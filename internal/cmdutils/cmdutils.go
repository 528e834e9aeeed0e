package cmdutils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/hyperbuds/hyperbuds-client/internal/business"
	"github.com/hyperbuds/hyperbuds-client/internal/config"
)

var configPaths = []string{
	"/etc/hyperbuds",
	"$HOME/.hyperbuds",
	".",
}

// Invocation is what a command receives besides its configuration.
type Invocation struct {
	Args []string
	Out  io.Writer
}

type BusinessFunc func(ctx context.Context, cfg *config.Config, inv Invocation) error

type WrapperFunc func(ctx context.Context, fn BusinessFunc, cfg *config.Config, inv Invocation) error

func CobraCommand(
	use, short, long, buildInfo string,
	wrapperFunc WrapperFunc,
	businesFunc BusinessFunc,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(buildInfo)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			inv := Invocation{Args: args, Out: cmd.OutOrStdout()}

			err = wrapperFunc(cmd.Context(), businesFunc, cfg, inv)
			if err != nil {
				return fmt.Errorf("running %s: %w", cmd.Name(), err)
			}

			return nil
		},
	}
}

// RunAsJob runs a one-shot command. Telemetry is exported when the config asks for it.
func RunAsJob(ctx context.Context, fn BusinessFunc, cfg *config.Config, inv Invocation) error {
	return run(ctx, cfg.ExportTelemetry, fn, cfg, inv)
}

func run(ctx context.Context, withTelemetry bool, fn BusinessFunc, cfg *config.Config, inv Invocation) error {
	// LoggerConfig
	err := logger.InitAsDefault(cfg.Logger, cfg.Application)
	if err != nil {
		return oops.In("cli").
			Wrapf(err, "Failed to initialise the logger")
	}
	slogctx.Debug(ctx, "Starting the command", slog.Any("args", inv.Args), slog.String("baseURL", cfg.API.BaseURL))

	// OpenTelemetry
	if withTelemetry {
		err = otlp.Init(ctx, &cfg.Application, &cfg.Telemetry, &cfg.Logger)
		if err != nil {
			return oops.In("cli").Wrapf(err, "Failed to load the telemetry")
		}
	}

	// Business Logic
	err = fn(ctx, cfg, inv)
	if err != nil {
		return oops.In("cli").Wrapf(err, "Failed to run the command")
	}

	return nil
}

// WithApp turns fn into a BusinessFunc that gets an initialised business.App.
func WithApp(fn func(ctx context.Context, app *business.App, inv Invocation) error) BusinessFunc {
	return func(ctx context.Context, cfg *config.Config, inv Invocation) error {
		app, closeFn, err := business.Init(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initialising the application: %w", err)
		}

		defer closeFn()

		return fn(ctx, app, inv)
	}
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}

func loadConfig(buildInfo string) (*config.Config, error) {
	defaultValues := map[string]any{}
	cfg := &config.Config{}

	err := commoncfg.LoadConfig(
		cfg,
		defaultValues,
		configPaths...,
	)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	// Update Version
	err = commoncfg.UpdateConfigVersion(
		&cfg.BaseConfig,
		buildInfo,
	)
	if err != nil {
		return nil, fmt.Errorf("updating the version configuration: %w", err)
	}

	cfg.ApplyEnvironment(os.Getenv)

	return cfg, nil
}
