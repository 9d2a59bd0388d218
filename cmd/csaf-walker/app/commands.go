// Package app provides the command-line surface of csaf-walker.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/advisorystack/csaf-walker/internal/versions"
)

// NewRootCmd creates the root command of csaf-walker.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "csaf-walker",
		DisableAutoGenTag: true,
		Short:             "Walk, verify, and validate CSAF advisory providers",
		Long: `csaf-walker discovers a CSAF provider's document index, retrieves every
advisory with its companion digest and signature files, verifies integrity
and authenticity against a configured trust policy, and validates the
documents against the CSAF schema and a set of lint rules.`,
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				fmt.Println("Error displaying help:", err)
			}
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Println("Error binding verbose flag:", err)
	}

	rootCmd.AddCommand(walkCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format version info: %w", err)
			}
			fmt.Println(string(output))
			return nil
		}
		fmt.Printf("csaf-walker %s (commit %s, built %s, %s, %s)\n",
			info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
		return nil
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
