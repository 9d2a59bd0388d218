package walker

import (
	"time"

	"github.com/advisorystack/csaf-walker/internal/source"
	"github.com/advisorystack/csaf-walker/internal/validate"
	"github.com/advisorystack/csaf-walker/internal/verify"
)

// Status is the overall result of one descriptor's pipeline.
type Status string

// Walk outcome statuses, worst first.
const (
	// StatusFetchFailed means the document could not be retrieved; no trust
	// result or findings were attempted.
	StatusFetchFailed Status = "fetch_failed"

	// StatusTrustFailed means digest or signature verification failed.
	// Validation still ran and its findings are present.
	StatusTrustFailed Status = "trust_failed"

	// StatusValidationFailed means the document is trusted but carries at
	// least one error-severity finding.
	StatusValidationFailed Status = "validation_failed"

	// StatusOk means the document is trusted and valid.
	StatusOk Status = "ok"
)

// Outcome is the terminal result for one discovered descriptor. It is handed
// to the sink exactly once and never mutated afterwards.
type Outcome struct {
	// Descriptor identifies the advisory this outcome belongs to.
	Descriptor source.Descriptor

	// Status is the overall result.
	Status Status

	// CacheHit reports that the server answered 304 and the trust result and
	// findings were reused from the prior pass.
	CacheHit bool

	// FetchedAt is the time the document (or the 304 answer) was received.
	FetchedAt time.Time

	// ContentType is the Content-Type of a freshly fetched document.
	ContentType string

	// Trust is the verification result. Nil when the fetch failed.
	Trust *verify.TrustResult

	// Findings is the ordered validation result. Nil when the fetch failed.
	Findings []validate.Finding

	// Err carries the classified fetch error for StatusFetchFailed.
	Err error
}

// statusOf combines a trust result and findings into the overall status. A
// failed trust result dominates validation errors.
func statusOf(trust *verify.TrustResult, findings []validate.Finding) Status {
	if trust != nil && !trust.Passed() {
		return StatusTrustFailed
	}
	if validate.HasErrors(findings) {
		return StatusValidationFailed
	}
	return StatusOk
}
