package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/advisorystack/csaf-walker/internal/config"
	"github.com/advisorystack/csaf-walker/internal/logger"
	"github.com/advisorystack/csaf-walker/internal/telemetry"
	"github.com/advisorystack/csaf-walker/internal/validate"
	"github.com/advisorystack/csaf-walker/internal/verify"
	"github.com/advisorystack/csaf-walker/internal/walker"
)

var walkCmd = &cobra.Command{
	Use:   "walk",
	Short: "Walk a provider's advisories and stream the outcomes",
	Long: `Walk discovers a provider's document index and runs the full pipeline for
every advisory: conditional retrieval, digest and signature verification,
and schema plus lint validation. One JSON outcome per document is written
to stdout as soon as it is produced.

The provider may be given as a provider-metadata.json URL, a bare domain
(the CSAF discovery process is followed), or a local file path.`,
	RunE: runWalk,
}

func init() {
	walkCmd.Flags().String("config", "", "Path to configuration file (YAML format)")
	walkCmd.Flags().String("source", "", "Provider source (URL, domain, or local path)")
	walkCmd.Flags().String("cache-dir", "", "Directory for the cross-pass cache store")

	for _, flag := range []string{"config", "source", "cache-dir"} {
		if err := viper.BindPFlag(flag, walkCmd.Flags().Lookup(flag)); err != nil {
			fmt.Printf("Error binding %s flag: %v\n", flag, err)
		}
	}
}

func runWalk(_ *cobra.Command, _ []string) error {
	log, err := logger.New(viper.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := loadWalkConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewWalkMetrics(prometheus.NewRegistry())
	w, err := walker.New(cfg,
		walker.WithLogger(log),
		walker.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Close()
	}()

	encoder := json.NewEncoder(os.Stdout)
	counts := map[walker.Status]int{}
	sink := func(out walker.Outcome) {
		counts[out.Status]++
		if err := encoder.Encode(outcomeView(out)); err != nil {
			log.Error("Failed to write outcome", zap.Error(err))
		}
	}

	if err := w.Walk(ctx, sink); err != nil {
		return err
	}

	log.Info("Walk summary",
		zap.Int("ok", counts[walker.StatusOk]),
		zap.Int("trustFailed", counts[walker.StatusTrustFailed]),
		zap.Int("validationFailed", counts[walker.StatusValidationFailed]),
		zap.Int("fetchFailed", counts[walker.StatusFetchFailed]))
	return nil
}

// loadWalkConfig merges the optional configuration file with the CLI flags.
// Flags win over file values.
func loadWalkConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if path := viper.GetString("config"); path != "" {
		loaded, err := config.NewConfigLoader().LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}
	if source := viper.GetString("source"); source != "" {
		cfg.Source = source
	}
	if cacheDir := viper.GetString("cache-dir"); cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// view is the JSON shape written to stdout for one outcome.
type view struct {
	URL       string              `json:"url"`
	Status    walker.Status       `json:"status"`
	CacheHit  bool                `json:"cacheHit,omitempty"`
	FetchedAt time.Time           `json:"fetchedAt"`
	Trust     *verify.TrustResult `json:"trust,omitempty"`
	Findings  []validate.Finding  `json:"findings,omitempty"`
	Error     string              `json:"error,omitempty"`
}

func outcomeView(out walker.Outcome) view {
	v := view{
		URL:       out.Descriptor.DocumentURL,
		Status:    out.Status,
		CacheHit:  out.CacheHit,
		FetchedAt: out.FetchedAt,
		Trust:     out.Trust,
		Findings:  out.Findings,
	}
	if out.Err != nil {
		v.Error = out.Err.Error()
	}
	return v
}
