// Package verify checks the integrity and authenticity of retrieved advisory
// documents: digest comparison against companion digest files and detached
// OpenPGP signature verification against an explicit set of trusted keys.
package verify

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	pgperrors "github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/opencontainers/go-digest"
)

// Input carries everything the verifier needs for one document. Absent
// companion material is encoded as missing map entries or nil bytes, never
// as an error.
type Input struct {
	// Document holds the exact retrieved bytes.
	Document []byte

	// Digests maps an algorithm name to the raw bytes of the companion
	// digest file. Only companions that were actually retrieved appear.
	Digests map[string][]byte

	// Signature holds the detached signature bytes, nil when absent.
	Signature []byte

	// SignatureAnnounced reports whether the index announced a signature
	// URL. An announced but absent signature is Missing; an unannounced one
	// is Unavailable.
	SignatureAnnounced bool
}

// Verifier runs the digest and signature checks under a fixed algorithm
// preference and policy. Key material is passed per call so key rotation
// needs no verifier state.
type Verifier struct {
	// Algorithms is the ordered list of accepted digest algorithms; the
	// first one with a companion file wins.
	Algorithms []string

	// Policy is the signature policy recorded in every result.
	Policy Policy
}

// Verify produces the trust result for one document. It never fails: absent
// inputs become Unavailable outcomes.
func (v *Verifier) Verify(in Input, keyring openpgp.EntityList) TrustResult {
	result := TrustResult{Policy: v.Policy}
	result.Digest, result.DigestAlgorithm = v.checkDigest(in)
	result.Signature, result.KeyFingerprint = v.checkSignature(in, keyring)
	return result
}

// checkDigest compares the document bytes against the first available
// companion digest file in algorithm preference order.
func (v *Verifier) checkDigest(in Input) (DigestOutcome, string) {
	for _, alg := range v.Algorithms {
		body, ok := in.Digests[alg]
		if !ok || len(body) == 0 {
			continue
		}
		expected := parseDigestFile(body)
		if expected == "" {
			// A digest file we cannot parse gives us nothing to compare;
			// close but wrong values below still count as a mismatch.
			return DigestMismatch, alg
		}
		actual := digest.Algorithm(alg).FromBytes(in.Document).Encoded()
		if strings.EqualFold(expected, actual) {
			return DigestMatch, alg
		}
		return DigestMismatch, alg
	}
	return DigestUnavailable, ""
}

// checkSignature verifies the detached signature against the trusted keys.
// The first key that validates wins and its fingerprint is recorded.
func (*Verifier) checkSignature(in Input, keyring openpgp.EntityList) (SignatureOutcome, string) {
	if len(in.Signature) == 0 {
		if in.SignatureAnnounced {
			return SignatureMissing, ""
		}
		return SignatureUnavailable, ""
	}

	var signer *openpgp.Entity
	var err error
	if isArmored(in.Signature) {
		signer, err = openpgp.CheckArmoredDetachedSignature(
			keyring, bytes.NewReader(in.Document), bytes.NewReader(in.Signature), nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(
			keyring, bytes.NewReader(in.Document), bytes.NewReader(in.Signature), nil)
	}
	if err != nil {
		if errors.Is(err, pgperrors.ErrUnknownIssuer) {
			return SignatureUnknownKey, ""
		}
		return SignatureInvalid, ""
	}
	return SignatureVerified, fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint)
}

// isArmored reports whether the signature bytes carry an ASCII-armored
// signature block rather than a binary one. The check must happen before
// verification: running the wrong decoder turns an unknown-issuer result
// into a parse failure.
func isArmored(sig []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(sig), []byte("-----BEGIN PGP SIGNATURE-----"))
}

// parseDigestFile extracts the hex digest from a companion digest file. The
// conventional format is "<hex>  <filename>"; a bare hex value also parses.
func parseDigestFile(body []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(body)), "\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	value := fields[0]
	for _, r := range value {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHex {
			return ""
		}
	}
	return value
}
