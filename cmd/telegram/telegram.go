package telegram

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/cropdoc/internal/app"
	"github.com/tphakala/cropdoc/internal/conf"
)

// Command creates the telegram command, which runs only the bot.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Run the Telegram diagnosis bot",
		Long:  "Answer leaf photos sent to the configured Telegram bot with a diagnosis. Uses the telegram.token setting.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cmd.Context(), settings, app.Options{History: true, Events: true})
			if err != nil {
				return err
			}
			defer a.Close()

			bot, err := a.NewTelegramBot()
			if err != nil {
				return err
			}
			return bot.Run(cmd.Context())
		},
	}
}
