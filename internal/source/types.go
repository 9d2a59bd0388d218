package source

import "fmt"

// Descriptor identifies one advisory document discovered in a provider's
// index, together with the URLs of its companion files. A Descriptor is
// immutable once created.
type Descriptor struct {
	// DocumentURL is the location of the advisory document itself.
	DocumentURL string

	// DigestURLs maps a digest algorithm name (sha256, sha512) to the URL of
	// the companion digest file, when the index announced one.
	DigestURLs map[string]string

	// SignatureURL is the location of the detached OpenPGP signature, when
	// the index announced one.
	SignatureURL string

	// Position is the zero-based position in discovery order.
	Position int

	// Feed is the feed or directory URL the descriptor was discovered in.
	Feed string

	// TLPLabel is the TLP label of the feed, when known.
	TLPLabel string
}

// SkippedEntry reports a malformed entry inside an otherwise valid index.
// Skipped entries do not abort discovery.
type SkippedEntry struct {
	Feed   string
	Entry  string
	Reason string
}

// DiscoveryError indicates that an index was unreachable or malformed. For
// the root provider metadata it is fatal for the whole walk; for a single
// feed or directory index the affected distribution is skipped instead.
type DiscoveryError struct {
	Source string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to discover provider index for %s: %v", e.Source, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
