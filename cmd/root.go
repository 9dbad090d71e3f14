package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/cropdoc/cmd/directory"
	"github.com/tphakala/cropdoc/cmd/file"
	"github.com/tphakala/cropdoc/cmd/history"
	"github.com/tphakala/cropdoc/cmd/knowledge"
	"github.com/tphakala/cropdoc/cmd/label"
	"github.com/tphakala/cropdoc/cmd/serve"
	"github.com/tphakala/cropdoc/cmd/telegram"
	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
)

const sentryFlushTimeout = 2 * time.Second

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "cropdoc",
		Short:        "Plant leaf disease diagnosis",
		Long:         "Diagnose plant leaf diseases from photos and look up treatment and prevention advice.",
		SilenceUsage: true,
		Version:      settings.Version,
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		file.Command(settings),
		directory.Command(settings),
		label.Command(settings),
		knowledge.Command(settings),
		history.Command(settings),
		serve.Command(settings),
		telegram.Command(settings),
	)

	return rootCmd
}

// Execute runs the command line and releases logging and telemetry on the way out.
func Execute(ctx context.Context, settings *conf.Settings, args []string) error {
	rootCmd := RootCommand(settings)
	rootCmd.SetArgs(args)

	var cl *logger.CentralLogger
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		var err error
		cl, err = initialize(settings)
		return err
	}

	err := rootCmd.ExecuteContext(ctx)

	if cl != nil {
		_ = cl.Close()
	}
	errors.FlushSentry(sentryFlushTimeout)
	return err
}

// initialize sets up logging and telemetry once flags are parsed.
func initialize(settings *conf.Settings) (*logger.CentralLogger, error) {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}

	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}
	logger.SetGlobal(cl)

	if settings.Telemetry.Enabled {
		if err := errors.InitSentry(settings.Telemetry.DSN, settings.Telemetry.Environment, settings.Version); err != nil {
			cl.Module("main").Warn("telemetry disabled", logger.Error(err))
		}
	}

	return cl, nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&settings.Output.JSON, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().StringVar(&settings.Knowledge.Path, "knowledge", viper.GetString("knowledge.path"), "Path to a custom knowledge base yaml file")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
