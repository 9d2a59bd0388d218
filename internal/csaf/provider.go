// Package csaf contains the wire models for CSAF provider metadata, ROLIE
// feeds, and the advisory documents themselves.
package csaf

// ProviderMetadata is the provider-metadata.json document an advisory
// publisher serves to describe its distributions.
type ProviderMetadata struct {
	CanonicalURL      string         `json:"canonical_url"`
	LastUpdated       string         `json:"last_updated"`
	ListOnCSAFOrg     bool           `json:"list_on_CSAF_aggregators,omitempty"`
	MetadataVersion   string         `json:"metadata_version"`
	Publisher         Publisher      `json:"publisher"`
	Distributions     []Distribution `json:"distributions"`
	PublicOpenPGPKeys []PGPKey       `json:"public_openpgp_keys,omitempty"`
	Role              string         `json:"role,omitempty"`
}

// Publisher identifies the issuing party of a provider or document.
type Publisher struct {
	Category  string `json:"category"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// Distribution describes one way a provider publishes documents: either a
// set of ROLIE feeds or a plain directory listing.
type Distribution struct {
	DirectoryURL string `json:"directory_url,omitempty"`
	Rolie        *Rolie `json:"rolie,omitempty"`
}

// Rolie groups the ROLIE feeds of a distribution.
type Rolie struct {
	Feeds []FeedReference `json:"feeds"`
}

// FeedReference points at a single ROLIE feed document.
type FeedReference struct {
	Summary  string `json:"summary,omitempty"`
	TLPLabel string `json:"tlp_label,omitempty"`
	URL      string `json:"url"`
}

// PGPKey references a public OpenPGP key the provider signs documents with.
type PGPKey struct {
	Fingerprint string `json:"fingerprint,omitempty"`
	URL         string `json:"url"`
}
