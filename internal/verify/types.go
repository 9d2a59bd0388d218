package verify

// Policy selects how a missing detached signature affects a document's
// overall trust.
type Policy string

// Supported signature policies.
const (
	// PolicyRequired fails a document without a signature.
	PolicyRequired Policy = "required"

	// PolicyOptional accepts a missing signature with a warning.
	PolicyOptional Policy = "optional"

	// PolicyIgnore pays no attention to missing signatures. An invalid
	// signature still fails: broken authenticity evidence is never ignored.
	PolicyIgnore Policy = "ignore"
)

// DigestOutcome is the result of the digest check.
type DigestOutcome string

// Digest check outcomes.
const (
	DigestMatch       DigestOutcome = "match"
	DigestMismatch    DigestOutcome = "mismatch"
	DigestUnavailable DigestOutcome = "unavailable"
)

// SignatureOutcome is the result of the signature check.
type SignatureOutcome string

// Signature check outcomes.
const (
	SignatureVerified    SignatureOutcome = "verified"
	SignatureInvalid     SignatureOutcome = "invalid"
	SignatureUnknownKey  SignatureOutcome = "unknown-key"
	SignatureMissing     SignatureOutcome = "missing"
	SignatureUnavailable SignatureOutcome = "unavailable"
)

// TrustResult is the combined outcome of digest and signature verification
// for one document under one policy.
type TrustResult struct {
	Digest          DigestOutcome    `json:"digest"`
	DigestAlgorithm string           `json:"digestAlgorithm,omitempty"`
	Signature       SignatureOutcome `json:"signature"`
	KeyFingerprint  string           `json:"keyFingerprint,omitempty"`
	Policy          Policy           `json:"policy"`
}

// Passed reports whether the document is trusted under the applied policy.
func (t TrustResult) Passed() bool {
	if t.Digest == DigestMismatch {
		return false
	}
	switch t.Signature {
	case SignatureInvalid, SignatureUnknownKey:
		return false
	case SignatureMissing, SignatureUnavailable:
		return t.Policy != PolicyRequired
	}
	return true
}

// MissingSignatureWarning reports whether the caller should surface a
// warning for an absent signature that the policy tolerated.
func (t TrustResult) MissingSignatureWarning() bool {
	return t.Policy == PolicyOptional &&
		(t.Signature == SignatureMissing || t.Signature == SignatureUnavailable)
}
