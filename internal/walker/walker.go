// Package walker coordinates the per-descriptor pipeline: discovery,
// retrieval, verification, and validation, streaming one outcome per
// discovered descriptor to a caller-supplied sink.
package walker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/advisorystack/csaf-walker/internal/cache"
	"github.com/advisorystack/csaf-walker/internal/config"
	"github.com/advisorystack/csaf-walker/internal/fetch"
	"github.com/advisorystack/csaf-walker/internal/source"
	"github.com/advisorystack/csaf-walker/internal/telemetry"
	"github.com/advisorystack/csaf-walker/internal/validate"
	"github.com/advisorystack/csaf-walker/internal/verify"
)

// SignaturePolicyFindingID marks the warning finding emitted when a missing
// signature is tolerated by the optional policy.
const SignaturePolicyFindingID = "signature-policy"

// Sink receives each outcome as soon as it is produced. Calls are
// serialized; the sink does not need to be safe for concurrent use.
type Sink func(Outcome)

// Walker drives one or more walk passes over a provider's index.
type Walker struct {
	cfg      *config.Config
	client   *fetch.Client
	locator  *source.Locator
	verifier *verify.Verifier
	engine   *validate.Engine
	store    cache.Store
	keyring  openpgp.EntityList
	metrics  *telemetry.WalkMetrics
	logger   *zap.Logger

	fingerprint string
}

// Option configures a Walker.
type Option func(*Walker)

// WithMetrics attaches Prometheus instruments to the walker.
func WithMetrics(m *telemetry.WalkMetrics) Option {
	return func(w *Walker) {
		w.metrics = m
	}
}

// WithLogger sets the walker's logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Walker) {
		w.logger = l
	}
}

// WithStore overrides the cache store. Mostly useful in tests; by default
// the store is opened under the configured cache directory.
func WithStore(s cache.Store) Option {
	return func(w *Walker) {
		w.store = s
	}
}

// New builds a walker from a validated configuration. Configuration-level
// faults (bad key material, unknown rules) fail here, before any walk
// starts.
func New(cfg *config.Config, opts ...Option) (*Walker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	w := &Walker{
		cfg:         cfg,
		logger:      zap.NewNop(),
		fingerprint: cfg.Fingerprint(),
	}
	for _, opt := range opts {
		opt(w)
	}

	keyring, err := verify.LoadKeyring(cfg.TrustedKeys)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted key material: %w", err)
	}
	w.keyring = keyring

	engine, err := validate.NewEngine(cfg.Rules, w.logger.Named("validate"))
	if err != nil {
		return nil, err
	}
	w.engine = engine

	w.client = fetch.NewClient(fetch.Options{
		Timeout:    cfg.RequestTimeout(),
		RetryLimit: cfg.Retries(),
		RateLimit:  cfg.RequestsPerSecond(),
		Logger:     w.logger.Named("fetch"),
		OnRetry:    func(error) { w.metrics.RecordRetry() },
	})
	w.locator = source.NewLocator(w.client, w.logger.Named("source"))
	w.verifier = &verify.Verifier{
		Algorithms: cfg.HashAlgorithms,
		Policy:     verify.Policy(cfg.SignaturePolicy),
	}

	if w.store == nil {
		if cfg.CacheDir == "" {
			w.store = cache.NewNopStore()
		} else {
			store, err := cache.OpenFileStore(cfg.CacheDir)
			if err != nil {
				return nil, err
			}
			w.store = store
		}
	}
	return w, nil
}

// Close releases the walker's cache store.
func (w *Walker) Close() error {
	return w.store.Close()
}

// Walk runs one pass: discovers the provider index and streams one outcome
// per descriptor to the sink. Per-descriptor failures become outcomes;
// the returned error is reserved for a failed root discovery, a failed cache
// commit, or cancellation.
func (w *Walker) Walk(ctx context.Context, sink Sink) error {
	passID := uuid.NewString()
	start := time.Now()
	w.logger.Info("Starting walk pass",
		zap.String("pass", passID),
		zap.String("source", w.cfg.Source),
		zap.Int("maxConcurrency", w.cfg.MaxConcurrency))

	md, err := w.locator.LoadProviderMetadata(ctx, w.cfg.Source)
	if err != nil {
		return err
	}

	var sinkMu sync.Mutex
	emitOutcome := func(out Outcome) {
		w.metrics.RecordOutcome(string(out.Status))
		sinkMu.Lock()
		defer sinkMu.Unlock()
		sink(out)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(w.cfg.MaxConcurrency))

	emitted := 0
	emit := func(desc source.Descriptor) error {
		// Acquire before spawning so discovery pauses once the pool is
		// saturated and stops promptly on cancellation.
		if err := sem.Acquire(groupCtx, 1); err != nil {
			return err
		}
		emitted++
		group.Go(func() error {
			defer sem.Release(1)
			emitOutcome(w.process(groupCtx, desc))
			return nil
		})
		return nil
	}
	onSkip := func(skip source.SkippedEntry) {
		w.metrics.RecordSkippedEntry()
		w.logger.Warn("Skipping malformed index entry",
			zap.String("feed", skip.Feed),
			zap.String("entry", skip.Entry),
			zap.String("reason", skip.Reason))
	}

	streamErr := w.locator.Stream(ctx, md, emit, onSkip)

	// Workers never return errors, so Wait only synchronizes completion.
	// Outcomes already computed are emitted even when the walk was
	// cancelled mid-discovery.
	_ = group.Wait()

	if err := w.store.Commit(); err != nil {
		return fmt.Errorf("failed to persist walk cache: %w", err)
	}

	w.logger.Info("Walk pass finished",
		zap.String("pass", passID),
		zap.Int("descriptors", emitted),
		zap.Duration("elapsed", time.Since(start)))

	if streamErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return streamErr
	}
	return nil
}

// process runs the full pipeline for one descriptor. It never fails: every
// error is captured in the returned outcome.
func (w *Walker) process(ctx context.Context, desc source.Descriptor) Outcome {
	start := time.Now()
	defer func() {
		w.metrics.ObserveDocumentDuration(time.Since(start).Seconds())
	}()

	validators, prior := w.cacheValidators(desc)

	res, err := w.client.Document(ctx, desc.DocumentURL, validators)
	if err != nil {
		w.logger.Warn("Fetch failed",
			zap.String("url", desc.DocumentURL),
			zap.Bool("transient", fetch.IsTransient(err)),
			zap.Error(err))
		return Outcome{
			Descriptor: desc,
			Status:     StatusFetchFailed,
			FetchedAt:  time.Now(),
			Err:        err,
		}
	}

	if res.NotModified && prior != nil {
		w.metrics.RecordCacheHit()
		return Outcome{
			Descriptor: desc,
			Status:     statusOf(prior.Trust, prior.Findings),
			CacheHit:   true,
			FetchedAt:  res.FetchedAt,
			Trust:      prior.Trust,
			Findings:   prior.Findings,
		}
	}

	w.metrics.RecordFetchedBytes(len(res.Body))

	trust := w.verifyDocument(ctx, desc, res.Body)
	findings := w.engine.Validate(validate.Document{URL: desc.DocumentURL, Bytes: res.Body})
	if trust.MissingSignatureWarning() {
		findings = append(findings, validate.Finding{
			RuleID:   SignaturePolicyFindingID,
			Severity: validate.SeverityWarning,
			Message:  "document has no detached signature; accepted under the optional signature policy",
		})
	}

	w.store.Put(desc.DocumentURL, &cache.Entry{
		ETag:              res.ETag,
		LastModified:      res.LastModified,
		UpdatedAt:         res.FetchedAt,
		Trust:             &trust,
		Findings:          findings,
		ConfigFingerprint: w.fingerprint,
	})

	return Outcome{
		Descriptor:  desc,
		Status:      statusOf(&trust, findings),
		FetchedAt:   res.FetchedAt,
		ContentType: res.ContentType,
		Trust:       &trust,
		Findings:    findings,
	}
}

// cacheValidators returns the conditional-GET validators for a descriptor.
// A prior entry produced under a different trust or rule configuration is
// ignored, forcing a full refetch and fresh verification.
func (w *Walker) cacheValidators(desc source.Descriptor) (fetch.Validators, *cache.Entry) {
	entry, ok := w.store.Get(desc.DocumentURL)
	if !ok || entry.ConfigFingerprint != w.fingerprint {
		return fetch.Validators{}, nil
	}
	return fetch.Validators{ETag: entry.ETag, LastModified: entry.LastModified}, entry
}

// verifyDocument retrieves the companion digest and signature files and runs
// verification. Companion absence is encoded as unavailable inputs, never as
// a failure.
func (w *Walker) verifyDocument(ctx context.Context, desc source.Descriptor, body []byte) verify.TrustResult {
	input := verify.Input{
		Document:           body,
		Digests:            map[string][]byte{},
		SignatureAnnounced: desc.SignatureURL != "",
	}

	for _, alg := range w.cfg.HashAlgorithms {
		digestURL, ok := desc.DigestURLs[alg]
		if !ok {
			continue
		}
		digestBody, err := w.client.Companion(ctx, digestURL)
		if err != nil {
			w.logger.Debug("Digest companion unavailable",
				zap.String("url", digestURL), zap.Error(err))
			continue
		}
		if digestBody != nil {
			input.Digests[alg] = digestBody
			break
		}
	}

	if desc.SignatureURL != "" {
		sig, err := w.client.Companion(ctx, desc.SignatureURL)
		if err != nil {
			w.logger.Debug("Signature companion unavailable",
				zap.String("url", desc.SignatureURL), zap.Error(err))
			// A failed companion fetch is Unavailable, not Missing.
			input.SignatureAnnounced = false
		}
		input.Signature = sig
	}

	return w.verifier.Verify(input, w.keyring)
}
