package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index the documents in a directory",
	Long: `Walks the directory, splits every .txt, .md and .pdf file into
chunks, embeds them and upserts them into the vector index. Re-running
over unchanged files is a no-op; modified files are re-indexed in
place.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	dir := a.cfg.DataDir
	if len(args) == 1 {
		dir = args[0]
	}

	report, err := a.svc.IngestDir(cmd.Context(), dir)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Indexed %d documents (%d chunks) from %s\n", report.Documents, report.Chunks, dir)
	if len(report.Skipped) > 0 {
		cmd.Printf("Skipped %d files:\n", len(report.Skipped))
		for _, s := range report.Skipped {
			cmd.Printf("  %s: %s\n", s.Path, s.Reason)
		}
	}
	return nil
}
