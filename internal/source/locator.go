// Package source resolves a provider's index into a stream of advisory
// descriptors. It implements the CSAF provider-metadata discovery process
// and traverses both ROLIE feeds and directory-based distributions.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/advisorystack/csaf-walker/internal/csaf"
	"github.com/advisorystack/csaf-walker/internal/fetch"
)

// WellKnownMetadataPath is the standard location of provider-metadata.json.
const WellKnownMetadataPath = "/.well-known/csaf/provider-metadata.json"

// EmitFunc receives each discovered descriptor. Returning an error stops
// discovery.
type EmitFunc func(Descriptor) error

// SkipFunc receives entries that were skipped because they are malformed.
type SkipFunc func(SkippedEntry)

// Locator resolves a root source into provider metadata and streams the
// advisory descriptors it lists. Retries are the retrieval client's concern,
// not the locator's.
type Locator struct {
	client *fetch.Client
	logger *zap.Logger
}

// NewLocator creates a new Locator.
func NewLocator(client *fetch.Client, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{client: client, logger: logger}
}

// LoadProviderMetadata resolves a source string into provider metadata.
// The source may be a full URL of a provider-metadata.json document, a local
// file path, or a bare domain. For a bare domain the CSAF discovery process
// is followed: the well-known location first, then the security.txt
// locations.
func (l *Locator) LoadProviderMetadata(ctx context.Context, src string) (*csaf.ProviderMetadata, error) {
	// A source with a scheme or an existing local path is used directly.
	if isDirect(src) {
		md, err := l.fetchMetadata(ctx, src)
		if err != nil {
			return nil, &DiscoveryError{Source: src, Err: err}
		}
		return md, nil
	}

	// Well-known approach.
	wellKnown := "https://" + src + WellKnownMetadataPath
	l.logger.Debug("Trying well-known metadata location", zap.String("url", wellKnown))
	md, err := l.fetchMetadataOptional(ctx, wellKnown)
	if err != nil {
		return nil, &DiscoveryError{Source: src, Err: err}
	}
	if md != nil {
		return md, nil
	}

	// security.txt approaches, new location before the legacy one.
	for _, path := range []string{"/.well-known/security.txt", "/security.txt"} {
		secURL := "https://" + src + path
		l.logger.Debug("Trying security.txt metadata location", zap.String("url", secURL))
		metaURL, err := l.metadataURLFromSecurityTxt(ctx, secURL)
		if err != nil {
			return nil, &DiscoveryError{Source: src, Err: err}
		}
		if metaURL == "" {
			continue
		}
		// The security.txt pointed at the URL, so a miss here is an error.
		md, err := l.fetchMetadata(ctx, metaURL)
		if err != nil {
			return nil, &DiscoveryError{Source: src, Err: err}
		}
		return md, nil
	}

	return nil, &DiscoveryError{Source: src, Err: fmt.Errorf("unable to discover provider metadata")}
}

// Stream walks all distributions of the provider metadata and emits a
// descriptor for every advisory found, in the index's natural order. A
// malformed entry is reported through onSkip and skipped. A malformed or
// unreachable feed or directory index is likewise reported and skipped so
// the remaining distributions still stream; only the root metadata lookup
// in LoadProviderMetadata is fatal.
func (l *Locator) Stream(ctx context.Context, md *csaf.ProviderMetadata, emit EmitFunc, onSkip SkipFunc) error {
	if onSkip == nil {
		onSkip = func(SkippedEntry) {}
	}
	position := 0
	for _, dist := range md.Distributions {
		if dist.Rolie != nil {
			for _, feed := range dist.Rolie.Feeds {
				n, err := l.streamRolieFeed(ctx, feed, position, emit, onSkip)
				if err != nil {
					if !l.skipFeed(ctx, feed.URL, err, onSkip) {
						return err
					}
					continue
				}
				position += n
			}
		}
		if dist.DirectoryURL != "" {
			n, err := l.streamDirectory(ctx, dist.DirectoryURL, position, emit, onSkip)
			if err != nil {
				if !l.skipFeed(ctx, dist.DirectoryURL, err, onSkip) {
					return err
				}
				continue
			}
			position += n
		}
	}
	l.logger.Info("Discovery complete", zap.Int("descriptors", position))
	return nil
}

// skipFeed reports an unreadable feed or directory index through onSkip and
// returns true if the walk should continue with the remaining distributions.
// Cancellation and emit errors are not skippable.
func (l *Locator) skipFeed(ctx context.Context, feedURL string, err error, onSkip SkipFunc) bool {
	var de *DiscoveryError
	if !errors.As(err, &de) || ctx.Err() != nil {
		return false
	}
	l.logger.Warn("Skipping unreadable distribution",
		zap.String("feed", feedURL),
		zap.Error(err))
	onSkip(SkippedEntry{Feed: feedURL, Reason: err.Error()})
	return true
}

// fetchMetadata retrieves and parses a provider-metadata.json document.
func (l *Locator) fetchMetadata(ctx context.Context, rawURL string) (*csaf.ProviderMetadata, error) {
	res, err := l.client.Document(ctx, rawURL, fetch.Validators{})
	if err != nil {
		return nil, err
	}
	var md csaf.ProviderMetadata
	if err := json.Unmarshal(res.Body, &md); err != nil {
		return nil, fmt.Errorf("failed to parse provider metadata from %s: %w", rawURL, err)
	}
	return &md, nil
}

// fetchMetadataOptional is fetchMetadata, except that a 404 is not an error.
func (l *Locator) fetchMetadataOptional(ctx context.Context, rawURL string) (*csaf.ProviderMetadata, error) {
	body, err := l.client.Companion(ctx, rawURL)
	if err != nil || body == nil {
		return nil, err
	}
	var md csaf.ProviderMetadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, fmt.Errorf("failed to parse provider metadata from %s: %w", rawURL, err)
	}
	return &md, nil
}

// metadataURLFromSecurityTxt extracts the first https CSAF entry of a
// security.txt document. A missing document or missing entry returns "".
func (l *Locator) metadataURLFromSecurityTxt(ctx context.Context, rawURL string) (string, error) {
	body, err := l.client.Companion(ctx, rawURL)
	if err != nil || body == nil {
		return "", err
	}
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(line), "csaf:") {
			continue
		}
		value := strings.TrimSpace(line[len("csaf:"):])
		u, err := url.Parse(value)
		if err != nil || u.Scheme != "https" {
			continue
		}
		return value, nil
	}
	return "", nil
}

// isDirect reports whether src can be fetched as-is instead of running the
// domain discovery process.
func isDirect(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return true
	}
	switch u.Scheme {
	case "http", "https", "file":
		return true
	}
	// Paths like ./testdata/provider-metadata.json have no scheme but
	// contain separators a bare domain never has.
	return strings.ContainsAny(src, "/\\")
}
