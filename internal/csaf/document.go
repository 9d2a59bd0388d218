package csaf

import (
	"encoding/json"
	"fmt"
)

// Document is a partial view of a CSAF advisory, parsed only as deep as the
// walker needs. Validation works on the raw bytes, not on this struct.
type Document struct {
	Document DocumentMeta `json:"document"`
}

// DocumentMeta is the /document object of an advisory.
type DocumentMeta struct {
	Category    string    `json:"category"`
	CSAFVersion string    `json:"csaf_version"`
	Title       string    `json:"title"`
	Publisher   Publisher `json:"publisher"`
	Tracking    Tracking  `json:"tracking"`
}

// Tracking is the /document/tracking object of an advisory.
type Tracking struct {
	ID                 string     `json:"id"`
	Status             string     `json:"status"`
	Version            string     `json:"version"`
	InitialReleaseDate string     `json:"initial_release_date"`
	CurrentReleaseDate string     `json:"current_release_date"`
	RevisionHistory    []Revision `json:"revision_history"`
}

// Revision is one entry of the tracking revision history.
type Revision struct {
	Date    string `json:"date"`
	Number  string `json:"number"`
	Summary string `json:"summary"`
}

// ParseDocument decodes the parts of an advisory the walker inspects.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse advisory document: %w", err)
	}
	return &doc, nil
}
