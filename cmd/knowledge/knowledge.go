package knowledge

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/cropdoc/internal/analysis"
	"github.com/tphakala/cropdoc/internal/app"
	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/diagnosis"
	kbase "github.com/tphakala/cropdoc/internal/knowledge"
)

// entry is one knowledge base row in JSON output.
type entry struct {
	Key   string                 `json:"key"`
	Kind  diagnosis.SolutionKind `json:"kind"`
	Entry diagnosis.Solution     `json:"entry"`
}

// Command creates the knowledge command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Inspect the disease knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return list(cmd.OutOrStdout(), settings)
		},
	}

	cmd.AddCommand(showCommand(settings), validateCommand())

	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show [label]",
		Short: "Show the knowledge base entry a label resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := app.LoadResolver(settings)
			if err != nil {
				return err
			}

			sol := resolver.Resolve(args[0])
			e := entry{Key: diagnosis.Canonicalize(args[0]), Kind: sol.Kind(), Entry: sol}
			if settings.Output.JSON {
				return analysis.WriteJSON(cmd.OutOrStdout(), e)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "# %s (%s)\n", e.Key, e.Kind)
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(sol); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a custom knowledge base file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := kbase.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d disease and %d healthy entries\n",
				args[0], len(kb.DiseaseKeys()), len(kb.HealthyKeys()))
			return nil
		},
	}
}

func list(w io.Writer, settings *conf.Settings) error {
	resolver, err := app.LoadResolver(settings)
	if err != nil {
		return err
	}
	kb := resolver.KnowledgeBase()

	if settings.Output.JSON {
		entries := make([]entry, 0, kb.Len())
		for _, key := range append(kb.DiseaseKeys(), kb.HealthyKeys()...) {
			sol, _ := kb.Lookup(key)
			entries = append(entries, entry{Key: key, Kind: sol.Kind(), Entry: sol})
		}
		return analysis.WriteJSON(w, entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tCROP\tCONDITION\tSEVERITY")
	for _, key := range kb.DiseaseKeys() {
		e, _ := kb.Disease(key)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", key, e.Crop, e.Disease, e.Severity)
	}
	for _, key := range kb.HealthyKeys() {
		e, _ := kb.Healthy(key)
		fmt.Fprintf(tw, "%s\t%s\t%s\t-\n", key, e.Crop, "Healthy")
	}
	return tw.Flush()
}
