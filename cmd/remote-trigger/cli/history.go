package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/davarch/remote-trigger/internal/infrastructure/audit_sqlite"
	"github.com/spf13/cobra"
)

var (
	historyJob   string
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent trigger steps from the audit store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		store, err := audit_sqlite.Open(cfg.Audit.Path)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		entries, err := store.Recent(cmd.Context(), historyJob, historyLimit)
		if err != nil {
			return err
		}

		if historyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "STARTED\tSERVER\tJOB\tBUILD\tSTATUS\tDURATION\tERROR")
		for _, e := range entries {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				e.Started().Local().Format(time.DateTime),
				e.Server, e.Job, e.BuildNumber, e.Status,
				e.Duration().Round(time.Second), e.Error,
			)
		}
		_ = w.Flush()
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyJob, "job", "", "only show this job")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of entries")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print JSON")
	rootCmd.AddCommand(historyCmd)
}
