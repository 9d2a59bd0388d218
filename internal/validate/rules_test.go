package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesByName(t *testing.T) {
	t.Parallel()

	t.Run("empty selection enables all rules", func(t *testing.T) {
		t.Parallel()
		rules, err := RulesByName(nil)
		require.NoError(t, err)
		assert.Len(t, rules, len(builtinRules))
	})

	t.Run("selection preserves order", func(t *testing.T) {
		t.Parallel()
		rules, err := RulesByName([]string{RuleFilename, RuleTrackingID})
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, RuleFilename, rules[0].ID())
		assert.Equal(t, RuleTrackingID, rules[1].ID())
	})

	t.Run("unknown name", func(t *testing.T) {
		t.Parallel()
		_, err := RulesByName([]string{"bogus"})
		assert.ErrorContains(t, err, `unknown validation rule "bogus"`)
	})
}

func TestTrackingIDRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		doc         []byte
		wantFinding bool
	}{
		{name: "valid", doc: []byte(validAdvisory)},
		{
			name:        "missing",
			doc:         mutatedAdvisory(t, `"id": "EXAMPLE-2024-0001",`, ``),
			wantFinding: true,
		},
		{
			name:        "whitespace",
			doc:         mutatedAdvisory(t, "EXAMPLE-2024-0001", "EXAMPLE 2024 0001"),
			wantFinding: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			findings := trackingIDRule{}.Check(Document{Bytes: tt.doc})
			if !tt.wantFinding {
				assert.Empty(t, findings)
				return
			}
			require.Len(t, findings, 1)
			assert.Equal(t, RuleTrackingID, findings[0].RuleID)
			assert.Equal(t, SeverityError, findings[0].Severity)
		})
	}
}

func TestRevisionHistoryRule(t *testing.T) {
	t.Parallel()

	t.Run("sorted history passes", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, revisionHistoryRule{}.Check(Document{Bytes: []byte(validAdvisory)}))
	})

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()
		doc := []byte(`{"document": {"tracking": {"revision_history": []}}}`)
		findings := revisionHistoryRule{}.Check(Document{Bytes: doc})
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityError, findings[0].Severity)
		assert.Contains(t, findings[0].Message, "empty")
	})

	t.Run("unsorted history warns", func(t *testing.T) {
		t.Parallel()
		doc := []byte(`{"document": {"tracking": {"revision_history": [
			{"date": "2024-02-01T00:00:00Z", "number": "2", "summary": "Later"},
			{"date": "2024-01-10T00:00:00Z", "number": "1", "summary": "Earlier"}
		]}}}`)
		findings := revisionHistoryRule{}.Check(Document{Bytes: doc})
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityWarning, findings[0].Severity)
		assert.Equal(t, "/document/tracking/revision_history/1/date", findings[0].Location)
	})

	t.Run("unparsable date", func(t *testing.T) {
		t.Parallel()
		doc := []byte(`{"document": {"tracking": {"revision_history": [
			{"date": "yesterday", "number": "1", "summary": "Initial"}
		]}}}`)
		findings := revisionHistoryRule{}.Check(Document{Bytes: doc})
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityError, findings[0].Severity)
	})
}

func TestReleaseDatesRule(t *testing.T) {
	t.Parallel()

	t.Run("ordered dates pass", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, releaseDatesRule{}.Check(Document{Bytes: []byte(validAdvisory)}))
	})

	t.Run("current before initial", func(t *testing.T) {
		t.Parallel()
		doc := mutatedAdvisory(t, `"current_release_date": "2024-02-01T00:00:00Z"`,
			`"current_release_date": "2023-12-01T00:00:00Z"`)
		findings := releaseDatesRule{}.Check(Document{Bytes: doc})
		require.Len(t, findings, 1)
		assert.Equal(t, RuleReleaseDates, findings[0].RuleID)
		assert.Equal(t, SeverityError, findings[0].Severity)
	})

	t.Run("unparsable dates are left to the schema", func(t *testing.T) {
		t.Parallel()
		doc := mutatedAdvisory(t, `"initial_release_date": "2024-01-10T00:00:00Z"`,
			`"initial_release_date": "January"`)
		assert.Empty(t, releaseDatesRule{}.Check(Document{Bytes: doc}))
	})
}

func TestTLPLabelRule(t *testing.T) {
	t.Parallel()

	t.Run("label present", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, tlpLabelRule{}.Check(Document{Bytes: []byte(validAdvisory)}))
	})

	t.Run("label absent warns", func(t *testing.T) {
		t.Parallel()
		doc := mutatedAdvisory(t, `"distribution": {"tlp": {"label": "WHITE"}},`, ``)
		findings := tlpLabelRule{}.Check(Document{Bytes: doc})
		require.Len(t, findings, 1)
		assert.Equal(t, RuleTLPLabel, findings[0].RuleID)
		assert.Equal(t, SeverityWarning, findings[0].Severity)
	})
}

func TestFilenameRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		url         string
		wantFinding bool
	}{
		{name: "conforming filename", url: "https://example.com/2024/example-2024-0001.json"},
		{name: "wrong filename", url: "https://example.com/2024/advisory.json", wantFinding: true},
		{name: "uppercase filename", url: "https://example.com/EXAMPLE-2024-0001.json", wantFinding: true},
		{name: "no URL known"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			findings := filenameRule{}.Check(Document{URL: tt.url, Bytes: []byte(validAdvisory)})
			if !tt.wantFinding {
				assert.Empty(t, findings)
				return
			}
			require.Len(t, findings, 1)
			assert.Equal(t, RuleFilename, findings[0].RuleID)
			assert.Contains(t, findings[0].Message, "example-2024-0001.json")
		})
	}
}

func TestLatestVersionRule(t *testing.T) {
	t.Parallel()

	t.Run("version matches newest revision", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, latestVersionRule{}.Check(Document{Bytes: []byte(validAdvisory)}))
	})

	t.Run("version behind newest revision", func(t *testing.T) {
		t.Parallel()
		doc := mutatedAdvisory(t, `"version": "2"`, `"version": "1"`)
		findings := latestVersionRule{}.Check(Document{Bytes: doc})
		require.Len(t, findings, 1)
		assert.Equal(t, RuleLatestVersion, findings[0].RuleID)
		assert.Equal(t, SeverityError, findings[0].Severity)
	})
}

func TestProductRefsRule(t *testing.T) {
	t.Parallel()

	t.Run("no product tree", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, productRefsRule{}.Check(Document{Bytes: []byte(validAdvisory)}))
	})

	t.Run("resolvable references pass", func(t *testing.T) {
		t.Parallel()
		doc := []byte(`{
			"product_tree": {
				"branches": [
					{"category": "product_name", "name": "Widget", "branches": [
						{"category": "product_version", "name": "1.0", "product": {"product_id": "CSAFPID-0001", "name": "Widget 1.0"}}
					]}
				],
				"full_product_names": [{"product_id": "CSAFPID-0002", "name": "Widget 2.0"}],
				"relationships": [{
					"product_reference": "CSAFPID-0001",
					"relates_to_product_reference": "CSAFPID-0002",
					"full_product_name": {"product_id": "CSAFPID-0003", "name": "Widget 1.0 on Widget 2.0"}
				}]
			},
			"vulnerabilities": [
				{"cve": "CVE-2024-12345", "product_status": {"known_affected": ["CSAFPID-0001", "CSAFPID-0003"]}}
			]
		}`)
		assert.Empty(t, productRefsRule{}.Check(Document{Bytes: doc}))
	})

	t.Run("dangling references are errors", func(t *testing.T) {
		t.Parallel()
		doc := []byte(`{
			"product_tree": {
				"full_product_names": [{"product_id": "CSAFPID-0001", "name": "Widget 1.0"}],
				"relationships": [{"product_reference": "CSAFPID-MISSING"}]
			},
			"vulnerabilities": [
				{"product_status": {"known_affected": ["CSAFPID-0001", "CSAFPID-GHOST"]}}
			]
		}`)

		findings := productRefsRule{}.Check(Document{Bytes: doc})
		require.Len(t, findings, 2)
		assert.Equal(t, "/product_tree/relationships/0/product_reference", findings[0].Location)
		assert.Contains(t, findings[0].Message, "CSAFPID-MISSING")
		assert.Equal(t, "/vulnerabilities/0/product_status/known_affected", findings[1].Location)
		assert.Contains(t, findings[1].Message, "CSAFPID-GHOST")
	})
}

func TestDerivedFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want string
	}{
		{"EXAMPLE-2024-0001", "example-2024-0001.json"},
		{"cisco-sa-20190513-secureboot", "cisco-sa-20190513-secureboot.json"},
		{"RHSA-2024:0001", "rhsa-2024_0001.json"},
		{"Adv With Spaces", "adv_with_spaces.json"},
		{"a+b_c-d", "a+b_c-d.json"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, derivedFilename(tt.id))
		})
	}
}
