package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var recalculateCmd = &cobra.Command{
	Use:   "recalculate [project-id...]",
	Short: "Recompute stored project progress and status",
	Long: `Recalculate rebuilds the progress and status of the given projects from
their tasks, or of every project when no ids are given. Use it to repair
aggregates left stale by a failed recalculation.`,
	RunE: runRecalculate,
}

func init() {
	rootCmd.AddCommand(recalculateCmd)
}

func runRecalculate(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	results, err := rt.service().Reconcile(cmd.Context(), args...)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROJECT\tPROGRESS\tSTATUS")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%.1f\t%s\n", r.ProjectID, r.Progress, r.Status)
	}
	_ = w.Flush()

	if err != nil {
		return fmt.Errorf("recalculate: %w", err)
	}
	return nil
}
