package validate

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Built-in rule identifiers.
const (
	RuleTrackingID      = "tracking-id"
	RuleRevisionHistory = "revision-history"
	RuleReleaseDates    = "release-dates"
	RuleTLPLabel        = "tlp-label"
	RuleFilename        = "filename"
	RuleLatestVersion   = "latest-version"
	RuleProductRefs     = "product-references"
)

// builtinRules holds the registry of available rules, assembled once at
// startup. Rules are selected from configuration by ID, never discovered
// dynamically.
var builtinRules = []Rule{
	trackingIDRule{},
	revisionHistoryRule{},
	releaseDatesRule{},
	tlpLabelRule{},
	filenameRule{},
	latestVersionRule{},
	productRefsRule{},
}

// AllRuleIDs returns the identifiers of every built-in rule, in evaluation
// order.
func AllRuleIDs() []string {
	ids := make([]string, 0, len(builtinRules))
	for _, r := range builtinRules {
		ids = append(ids, r.ID())
	}
	return ids
}

// RulesByName resolves rule names to rules. An empty selection enables all
// built-in rules; an unknown name is an error.
func RulesByName(names []string) ([]Rule, error) {
	if len(names) == 0 {
		return builtinRules, nil
	}
	byID := make(map[string]Rule, len(builtinRules))
	for _, r := range builtinRules {
		byID[r.ID()] = r
	}
	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		r, ok := byID[name]
		if !ok {
			return nil, fmt.Errorf("unknown validation rule %q", name)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// trackingIDRule checks that the tracking ID is present and free of
// whitespace.
type trackingIDRule struct{}

func (trackingIDRule) ID() string { return RuleTrackingID }

func (trackingIDRule) Check(doc Document) []Finding {
	id := gjson.GetBytes(doc.Bytes, "document.tracking.id").String()
	if id == "" {
		return []Finding{{
			RuleID:   RuleTrackingID,
			Severity: SeverityError,
			Location: "/document/tracking/id",
			Message:  "tracking ID is missing or empty",
		}}
	}
	if strings.ContainsAny(id, " \t\n") {
		return []Finding{{
			RuleID:   RuleTrackingID,
			Severity: SeverityError,
			Location: "/document/tracking/id",
			Message:  fmt.Sprintf("tracking ID %q contains whitespace", id),
		}}
	}
	return nil
}

// revisionHistoryRule checks that the revision history is non-empty and
// sorted by date.
type revisionHistoryRule struct{}

func (revisionHistoryRule) ID() string { return RuleRevisionHistory }

func (revisionHistoryRule) Check(doc Document) []Finding {
	history := gjson.GetBytes(doc.Bytes, "document.tracking.revision_history").Array()
	if len(history) == 0 {
		return []Finding{{
			RuleID:   RuleRevisionHistory,
			Severity: SeverityError,
			Location: "/document/tracking/revision_history",
			Message:  "revision history is empty",
		}}
	}

	var findings []Finding
	var previous time.Time
	for i, rev := range history {
		raw := rev.Get("date").String()
		date, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			findings = append(findings, Finding{
				RuleID:   RuleRevisionHistory,
				Severity: SeverityError,
				Location: fmt.Sprintf("/document/tracking/revision_history/%d/date", i),
				Message:  fmt.Sprintf("revision date %q is not a RFC 3339 timestamp", raw),
			})
			continue
		}
		if i > 0 && date.Before(previous) {
			findings = append(findings, Finding{
				RuleID:   RuleRevisionHistory,
				Severity: SeverityWarning,
				Location: fmt.Sprintf("/document/tracking/revision_history/%d/date", i),
				Message:  "revision history is not sorted by date",
			})
		}
		previous = date
	}
	return findings
}

// releaseDatesRule checks that the current release date is not before the
// initial release date.
type releaseDatesRule struct{}

func (releaseDatesRule) ID() string { return RuleReleaseDates }

func (releaseDatesRule) Check(doc Document) []Finding {
	initial, err1 := time.Parse(time.RFC3339, gjson.GetBytes(doc.Bytes, "document.tracking.initial_release_date").String())
	current, err2 := time.Parse(time.RFC3339, gjson.GetBytes(doc.Bytes, "document.tracking.current_release_date").String())
	if err1 != nil || err2 != nil {
		// Unparsable dates are the schema's finding, not this rule's.
		return nil
	}
	if current.Before(initial) {
		return []Finding{{
			RuleID:   RuleReleaseDates,
			Severity: SeverityError,
			Location: "/document/tracking/current_release_date",
			Message:  "current release date is before the initial release date",
		}}
	}
	return nil
}

// tlpLabelRule checks that a TLP label is declared.
type tlpLabelRule struct{}

func (tlpLabelRule) ID() string { return RuleTLPLabel }

func (tlpLabelRule) Check(doc Document) []Finding {
	label := gjson.GetBytes(doc.Bytes, "document.distribution.tlp.label")
	if !label.Exists() {
		return []Finding{{
			RuleID:   RuleTLPLabel,
			Severity: SeverityWarning,
			Location: "/document/distribution",
			Message:  "document declares no TLP label",
		}}
	}
	return nil
}

// filenameRule checks that the published filename is derived from the
// tracking ID the way the CSAF standard prescribes.
type filenameRule struct{}

func (filenameRule) ID() string { return RuleFilename }

func (filenameRule) Check(doc Document) []Finding {
	if doc.URL == "" {
		return nil
	}
	id := gjson.GetBytes(doc.Bytes, "document.tracking.id").String()
	if id == "" {
		return nil
	}
	want := derivedFilename(id)
	got := path.Base(urlPath(doc.URL))
	if got != want {
		return []Finding{{
			RuleID:   RuleFilename,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("document is published as %q, expected %q", got, want),
		}}
	}
	return nil
}

// latestVersionRule checks that the tracking version matches the newest
// revision history entry.
type latestVersionRule struct{}

func (latestVersionRule) ID() string { return RuleLatestVersion }

func (latestVersionRule) Check(doc Document) []Finding {
	version := gjson.GetBytes(doc.Bytes, "document.tracking.version").String()
	history := gjson.GetBytes(doc.Bytes, "document.tracking.revision_history").Array()
	if version == "" || len(history) == 0 {
		return nil
	}
	newest := history[len(history)-1].Get("number").String()
	if version != newest {
		return []Finding{{
			RuleID:   RuleLatestVersion,
			Severity: SeverityError,
			Location: "/document/tracking/version",
			Message:  fmt.Sprintf("tracking version %q does not match the newest revision %q", version, newest),
		}}
	}
	return nil
}

// productRefsRule checks that every product ID referenced by a vulnerability
// or a product relationship is defined somewhere in the product tree.
type productRefsRule struct{}

func (productRefsRule) ID() string { return RuleProductRefs }

func (productRefsRule) Check(doc Document) []Finding {
	tree := gjson.GetBytes(doc.Bytes, "product_tree")
	if !tree.Exists() {
		return nil
	}

	defined := map[string]bool{}
	collectProductIDs(tree, defined)

	var findings []Finding
	report := func(location, id string) {
		findings = append(findings, Finding{
			RuleID:   RuleProductRefs,
			Severity: SeverityError,
			Location: location,
			Message:  fmt.Sprintf("product ID %q is not defined in the product tree", id),
		})
	}

	tree.Get("relationships").ForEach(func(i, rel gjson.Result) bool {
		for _, key := range []string{"product_reference", "relates_to_product_reference"} {
			if id := rel.Get(key).String(); id != "" && !defined[id] {
				report(fmt.Sprintf("/product_tree/relationships/%d/%s", i.Int(), key), id)
			}
		}
		return true
	})

	gjson.GetBytes(doc.Bytes, "vulnerabilities").ForEach(func(i, vuln gjson.Result) bool {
		vuln.Get("product_status").ForEach(func(status, ids gjson.Result) bool {
			ids.ForEach(func(_, id gjson.Result) bool {
				if v := id.String(); v != "" && !defined[v] {
					report(fmt.Sprintf("/vulnerabilities/%d/product_status/%s", i.Int(), status.String()), v)
				}
				return true
			})
			return true
		})
		return true
	})
	return findings
}

// collectProductIDs walks the product tree and records every product_id
// definition. Branches nest arbitrarily, so the walk is recursive over the
// raw JSON structure.
func collectProductIDs(node gjson.Result, defined map[string]bool) {
	if !node.IsObject() && !node.IsArray() {
		return
	}
	node.ForEach(func(key, value gjson.Result) bool {
		if key.String() == "product_id" && value.Type == gjson.String {
			defined[value.String()] = true
			return true
		}
		// Relationship references reuse the product_id vocabulary but are
		// uses, not definitions.
		if key.String() == "relationships" {
			value.ForEach(func(_, rel gjson.Result) bool {
				collectProductIDs(rel.Get("full_product_name"), defined)
				return true
			})
			return true
		}
		collectProductIDs(value, defined)
		return true
	})
}

// derivedFilename lowercases the tracking ID and replaces everything outside
// [+a-z0-9-_] with underscores, per the CSAF filename requirement.
func derivedFilename(trackingID string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(trackingID) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String() + ".json"
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}
