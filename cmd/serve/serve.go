package serve

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/cropdoc/internal/api"
	"github.com/tphakala/cropdoc/internal/app"
	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
)

// Command creates the serve command, which runs the HTTP API and, when
// enabled, the Telegram bot until interrupted.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the diagnosis HTTP API",
		Long:  "Start the HTTP API and any enabled integrations: scan history, MQTT, notifications and the Telegram bot.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings) error {
	if !settings.WebServer.Enabled && !settings.Telegram.Enabled {
		return errors.Newf("neither the web server nor the Telegram bot is enabled").
			Component("serve").
			Category(errors.CategoryConfiguration).
			Build()
	}

	a, err := app.New(cmd.Context(), settings, app.Options{History: true, Events: true})
	if err != nil {
		return err
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(cmd.Context())

	if settings.WebServer.Enabled {
		srv, err := api.New(settings, a.Analyzer, api.WithDataStore(a.Store), api.WithMetrics(a.Metrics))
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Run(ctx) })
	}

	if settings.Telegram.Enabled {
		bot, err := a.NewTelegramBot()
		if err != nil {
			return err
		}
		g.Go(func() error { return bot.Run(ctx) })
	}

	return g.Wait()
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVarP(&settings.WebServer.Port, "port", "p", viper.GetString("webserver.port"), "HTTP listen port")
	cmd.Flags().BoolVar(&settings.Telegram.Enabled, "telegram", viper.GetBool("telegram.enabled"), "Also run the Telegram bot")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
