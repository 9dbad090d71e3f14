// Package history implements the scan history commands.
package history

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/cropdoc/internal/analysis"
	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/datastore"
	"github.com/tphakala/cropdoc/internal/errors"
)

// listing is the JSON output of the list command.
type listing struct {
	Scans []datastore.Scan `json:"scans"`
	Total int64            `json:"total"`
}

// Command creates the history command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	var filter datastore.ScanFilter

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(settings, func(store datastore.Interface) error {
				scans, total, err := store.List(filter)
				if err != nil {
					return err
				}
				if settings.Output.JSON {
					return analysis.WriteJSON(cmd.OutOrStdout(), listing{Scans: scans, Total: total})
				}
				return writeScans(cmd.OutOrStdout(), scans, total)
			})
		},
	}

	cmd.Flags().StringVar(&filter.Crop, "crop", "", "Only scans of this crop")
	cmd.Flags().StringVar(&filter.Status, "status", "", "Only scans with this status (healthy, diseased)")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", datastore.DefaultListLimit, "Maximum number of scans")

	cmd.AddCommand(statsCommand(settings), migrateCommand(settings))
	return cmd
}

func statsCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize saved scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(settings, func(store datastore.Interface) error {
				stats, err := store.Stats()
				if err != nil {
					return err
				}
				if settings.Output.JSON {
					return analysis.WriteJSON(cmd.OutOrStdout(), stats)
				}
				return writeStats(cmd.OutOrStdout(), stats)
			})
		},
	}
}

func migrateCommand(settings *conf.Settings) *cobra.Command {
	var (
		to        string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy saved scans to another database",
		Long: `Copy every saved scan from the configured database to the one named by --to.
The target uses its connection settings from the configuration file. Scans that
already exist in the target are skipped, so an interrupted run can be repeated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := targetSettings(settings, to)
			if err != nil {
				return err
			}
			return withStore(settings, func(src datastore.Interface) error {
				return withStore(target, func(dst datastore.Interface) error {
					result, err := datastore.Copy(cmd.Context(), src, dst, batchSize)
					if err != nil {
						return err
					}
					if settings.Output.JSON {
						return analysis.WriteJSON(cmd.OutOrStdout(), result)
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d scans copied, %d already present\n", result.Copied, result.Skipped)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target database: sqlite, mysql or postgres")
	cmd.Flags().IntVar(&batchSize, "batch-size", datastore.DefaultBatchSize, "Scans read per query")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// targetSettings returns a copy of settings with only the named backend
// enabled. The target must differ from the backend currently in use.
func targetSettings(settings *conf.Settings, backend string) (*conf.Settings, error) {
	backend = strings.ToLower(backend)
	if backend == datastore.Kind(settings) {
		return nil, errors.Newf("%s is already the configured database", backend).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}

	target := *settings
	target.Output.SQLite.Enabled = backend == "sqlite"
	target.Output.MySQL.Enabled = backend == "mysql"
	target.Output.Postgres.Enabled = backend == "postgres"
	if datastore.Kind(&target) == "" {
		return nil, errors.Newf("unknown target database %q", backend).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}
	return &target, nil
}

// withStore opens the history database for the duration of fn.
func withStore(settings *conf.Settings, fn func(datastore.Interface) error) error {
	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no scan history database is enabled").
			Component("cli").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func writeScans(w io.Writer, scans []datastore.Scan, total int64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tCROP\tDISEASE\tSTATUS\tCONFIDENCE")
	for _, s := range scans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f%%\n",
			s.PublicID, s.CreatedAt.Local().Format(time.DateTime), s.Crop, s.Disease, s.Status, s.Confidence)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d of %d scans\n", len(scans), total)
	return err
}

func writeStats(w io.Writer, stats datastore.Stats) error {
	fmt.Fprintf(w, "Total scans: %d\n", stats.Total)
	for _, s := range stats.ByStatus {
		fmt.Fprintf(w, "  %-9s %d\n", s.Status, s.Count)
	}
	if len(stats.TopDiseases) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nMost frequent diseases:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, d := range stats.TopDiseases {
		fmt.Fprintf(tw, "  %s\t%s\t%d\n", d.Crop, d.Disease, d.Count)
	}
	return tw.Flush()
}
