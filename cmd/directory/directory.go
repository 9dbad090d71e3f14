package directory

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/cropdoc/internal/analysis"
	"github.com/tphakala/cropdoc/internal/app"
	"github.com/tphakala/cropdoc/internal/conf"
)

// Command creates a new cobra.Command for directory analysis.
func Command(settings *conf.Settings) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "directory [path]",
		Short: "Diagnose all leaf images in a directory",
		Long:  "Provide a directory path to diagnose every jpg, png, gif, bmp, tiff and webp image within it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]

			a, err := app.New(cmd.Context(), settings, app.Options{History: save})
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = analysis.DirectoryAnalysis(cmd.Context(), a.Analyzer, settings.Input.Path,
				settings.Input.Recursive, settings.Input.Workers, cmd.OutOrStdout(), settings.Output.JSON)
			return err
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Store scans in the configured history database")

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags defines flags specific to the directory command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVarP(&settings.Input.Recursive, "recursive", "r", false, "Recursively analyze subdirectories")
	cmd.Flags().IntVarP(&settings.Input.Workers, "workers", "w", viper.GetInt("input.workers"), "Concurrent classifications, 0 uses one per CPU")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
