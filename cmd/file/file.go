package file

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/cropdoc/internal/analysis"
	"github.com/tphakala/cropdoc/internal/app"
	"github.com/tphakala/cropdoc/internal/conf"
)

// Command creates the file command for diagnosing a single image.
func Command(settings *conf.Settings) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "file [image]",
		Short: "Diagnose a single leaf image",
		Long:  "Classify one leaf photo and print the diagnosis with treatment and prevention advice.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]

			a, err := app.New(cmd.Context(), settings, app.Options{History: save})
			if err != nil {
				return err
			}
			defer a.Close()

			return analysis.FileAnalysis(cmd.Context(), a.Analyzer, settings.Input.Path, cmd.OutOrStdout(), settings.Output.JSON)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Store the scan in the configured history database")

	return cmd
}
