package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/advisorystack/csaf-walker/internal/csaf"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a local advisory file and print its identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read advisory: %w", err)
		}
		doc, err := csaf.ParseDocument(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n",
			doc.Document.Tracking.ID,
			doc.Document.Tracking.InitialReleaseDate,
			doc.Document.Title)
		return nil
	},
}
