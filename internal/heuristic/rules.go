package heuristic

import (
	"fmt"
	"strings"

	"github.com/nao1215/urlscan/internal/model"
)

// Condition decides whether a tier applies to a measured feature value.
// Boolean features are measured as 0 or 1.
type Condition func(value int) bool

// Above matches values strictly greater than n.
func Above(n int) Condition {
	return func(value int) bool { return value > n }
}

// AtLeast matches values greater than or equal to n.
func AtLeast(n int) Condition {
	return func(value int) bool { return value >= n }
}

// Equal matches exactly n.
func Equal(n int) Condition {
	return func(value int) bool { return value == n }
}

// IsTrue matches a boolean feature that is set.
func IsTrue() Condition {
	return Equal(1)
}

// IsFalse matches a boolean feature that is not set.
func IsFalse() Condition {
	return Equal(0)
}

// Tier is one step of a rule's ladder.
type Tier struct {
	// When is the condition on the measured value.
	When Condition

	// Delta is added to the risk score when the tier matches.
	Delta int

	// Reason is the message recorded when the tier matches.
	// A "%d" verb is replaced with the measured value.
	Reason string
}

// FormatReason renders the tier reason for a measured value.
func (t Tier) FormatReason(value int) string {
	if strings.Contains(t.Reason, "%d") {
		return fmt.Sprintf(t.Reason, value)
	}
	return t.Reason
}

// Rule scores one feature.
type Rule struct {
	// Feature is the feature name, matching model.FeatureNames.
	Feature string

	// Measure reads the feature out of a vector.
	Measure func(fv model.FeatureVector) int

	// Tiers are ordered from highest to lowest. The first match wins.
	Tiers []Tier
}

// Evaluate applies the rule to a feature vector.
// It returns the delta and reason of the first matching tier, and false when
// no tier matches.
func (r Rule) Evaluate(fv model.FeatureVector) (int, string, bool) {
	value := r.Measure(fv)
	for _, tier := range r.Tiers {
		if tier.When(value) {
			return tier.Delta, tier.FormatReason(value), true
		}
	}
	return 0, "", false
}

// RuleTable is the ordered set of rules used by Score.
var RuleTable = []Rule{
	{
		Feature: "url_length",
		Measure: func(fv model.FeatureVector) int { return fv.URLLength },
		Tiers: []Tier{
			{When: Above(200), Delta: 15, Reason: "Very long URL (%d characters)"},
			{When: Above(100), Delta: 8, Reason: "Long URL (%d characters)"},
		},
	},
	{
		Feature: "dot_count",
		Measure: func(fv model.FeatureVector) int { return fv.DotCount },
		Tiers: []Tier{
			{When: Above(5), Delta: 20, Reason: "Excessive dots (%d) - possible subdomain obfuscation"},
			{When: Above(3), Delta: 10, Reason: "Multiple dots (%d)"},
		},
	},
	{
		Feature: "hyphen_count",
		Measure: func(fv model.FeatureVector) int { return fv.HyphenCount },
		Tiers: []Tier{
			{When: Above(5), Delta: 15, Reason: "Excessive hyphens (%d)"},
			{When: Above(3), Delta: 7, Reason: "Multiple hyphens (%d)"},
		},
	},
	{
		Feature: "special_char_count",
		Measure: func(fv model.FeatureVector) int { return fv.SpecialCharCount },
		Tiers: []Tier{
			{When: Above(10), Delta: 20, Reason: "Many special characters (%d)"},
			{When: Above(5), Delta: 10, Reason: "Special characters present (%d)"},
		},
	},
	{
		Feature: "has_ip",
		Measure: func(fv model.FeatureVector) int { return boolValue(fv.HasIP) },
		Tiers: []Tier{
			{When: IsTrue(), Delta: 25, Reason: "URL contains IP address instead of domain name"},
		},
	},
	{
		Feature: "suspicious_keyword_count",
		Measure: func(fv model.FeatureVector) int { return fv.SuspiciousKeywordCount },
		Tiers: []Tier{
			{When: AtLeast(3), Delta: 25, Reason: "Multiple suspicious keywords (%d)"},
			{When: Equal(2), Delta: 15, Reason: "Suspicious keywords detected (%d)"},
			{When: Equal(1), Delta: 8, Reason: "Suspicious keyword detected"},
		},
	},
	{
		Feature: "has_https",
		Measure: func(fv model.FeatureVector) int { return boolValue(fv.HasHTTPS) },
		Tiers: []Tier{
			{When: IsFalse(), Delta: 15, Reason: "URL does not use HTTPS encryption"},
		},
	},
	{
		Feature: "subdomain_count",
		Measure: func(fv model.FeatureVector) int { return fv.SubdomainCount },
		Tiers: []Tier{
			{When: Above(3), Delta: 15, Reason: "Excessive subdomains (%d)"},
			{When: Above(1), Delta: 7, Reason: "Multiple subdomains (%d)"},
		},
	},
	{
		Feature: "has_shortening_service",
		Measure: func(fv model.FeatureVector) int { return boolValue(fv.HasShorteningService) },
		Tiers: []Tier{
			{When: IsTrue(), Delta: 10, Reason: "URL uses a shortening service"},
		},
	},
}

func boolValue(b bool) int {
	if b {
		return 1
	}
	return 0
}
