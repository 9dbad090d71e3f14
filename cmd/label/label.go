package label

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/cropdoc/internal/analysis"
	"github.com/tphakala/cropdoc/internal/app"
	"github.com/tphakala/cropdoc/internal/conf"
)

// Command creates the label command, which diagnoses a classifier label
// without an image.
func Command(settings *conf.Settings) *cobra.Command {
	var score float64

	cmd := &cobra.Command{
		Use:   "label [label]",
		Short: "Diagnose a classifier label",
		Long:  "Resolve a raw classifier label such as Tomato___Early_blight against the knowledge base without classifying an image.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := app.LoadResolver(settings)
			if err != nil {
				return err
			}

			report := resolver.Diagnose(args[0], score)
			if settings.Output.JSON {
				return analysis.WriteJSON(cmd.OutOrStdout(), report)
			}
			return analysis.WriteReportText(cmd.OutOrStdout(), "", report)
		},
	}

	cmd.Flags().Float64VarP(&score, "score", "s", 1.0, "Classifier confidence between 0 and 1")

	return cmd
}
