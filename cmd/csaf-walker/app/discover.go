package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/advisorystack/csaf-walker/internal/config"
	"github.com/advisorystack/csaf-walker/internal/fetch"
	"github.com/advisorystack/csaf-walker/internal/logger"
	"github.com/advisorystack/csaf-walker/internal/source"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <source>",
	Short: "Resolve and print a provider's metadata",
	Long: `Discover resolves a source (URL, bare domain, or local path) to its
provider-metadata.json using the CSAF discovery process and prints the
resolved metadata.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	log, err := logger.New(viper.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	client := fetch.NewClient(fetch.Options{
		Timeout:    config.DefaultTimeout,
		RetryLimit: config.DefaultRetryLimit,
		Logger:     log.Named("fetch"),
	})
	locator := source.NewLocator(client, log.Named("source"))

	md, err := locator.LoadProviderMetadata(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(md)
}
