package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieves the most relevant passages and asks the local model to
answer using only those passages. When the model runtime is not
available the retrieved passages are shown on their own.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top", "k", 0, "number of context passages (default from config)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ans, err := a.svc.Ask(cmd.Context(), args[0], askTopK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if len(ans.Sources) == 0 {
		cmd.Println("No matching passages found. Have you run `docqa ingest`?")
		return nil
	}

	if ans.Synthesized {
		cmd.Println(ans.Text)
		cmd.Println()
	} else {
		cmd.Println("Answer synthesis is unavailable; showing the most relevant passages.")
		cmd.Println()
	}

	cmd.Println("Sources:")
	for i, r := range ans.Sources {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, r.Chunk.Citation(), r.Score)
		if !ans.Synthesized {
			cmd.Printf("      %s\n", r.Chunk.Excerpt(160))
		}
	}
	return nil
}
