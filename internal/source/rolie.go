package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/advisorystack/csaf-walker/internal/csaf"
	"github.com/advisorystack/csaf-walker/internal/fetch"
)

// streamRolieFeed fetches one ROLIE feed document and emits a descriptor per
// entry. It returns the number of descriptors emitted.
func (l *Locator) streamRolieFeed(
	ctx context.Context, ref csaf.FeedReference, base int, emit EmitFunc, onSkip SkipFunc,
) (int, error) {
	res, err := l.client.Document(ctx, ref.URL, fetch.Validators{})
	if err != nil {
		return 0, &DiscoveryError{Source: ref.URL, Err: err}
	}

	var feed csaf.RolieFeed
	if err := json.Unmarshal(res.Body, &feed); err != nil {
		return 0, &DiscoveryError{Source: ref.URL, Err: fmt.Errorf("failed to parse ROLIE feed: %w", err)}
	}

	l.logger.Debug("Walking ROLIE feed",
		zap.String("feed", ref.URL),
		zap.String("tlp", ref.TLPLabel),
		zap.Int("entries", len(feed.Feed.Entry)))

	emitted := 0
	for _, entry := range feed.Feed.Entry {
		desc, err := descriptorFromEntry(entry, ref, base+emitted)
		if err != nil {
			onSkip(SkippedEntry{Feed: ref.URL, Entry: entry.ID, Reason: err.Error()})
			continue
		}
		if err := emit(desc); err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}

// descriptorFromEntry builds a descriptor from a single ROLIE entry. An
// entry without a resolvable document URL is malformed.
func descriptorFromEntry(entry csaf.FeedEntry, ref csaf.FeedReference, position int) (Descriptor, error) {
	desc := Descriptor{
		DigestURLs: map[string]string{},
		Position:   position,
		Feed:       ref.URL,
		TLPLabel:   ref.TLPLabel,
	}

	for _, link := range entry.Link {
		switch link.Rel {
		case "self":
			desc.DocumentURL = link.HRef
		case "hash":
			if alg := digestAlgorithmFromURL(link.HRef); alg != "" {
				desc.DigestURLs[alg] = link.HRef
			}
		case "signature":
			desc.SignatureURL = link.HRef
		}
	}
	if desc.DocumentURL == "" && entry.Content != nil {
		desc.DocumentURL = entry.Content.Src
	}
	if desc.DocumentURL == "" {
		return Descriptor{}, fmt.Errorf("entry carries no document URL")
	}
	return desc, nil
}

// digestAlgorithmFromURL maps a digest file URL to the algorithm it carries,
// based on the conventional file suffix.
func digestAlgorithmFromURL(rawURL string) string {
	switch {
	case strings.HasSuffix(rawURL, ".sha512"):
		return "sha512"
	case strings.HasSuffix(rawURL, ".sha256"):
		return "sha256"
	}
	return ""
}
