package heuristic

import (
	"reflect"
	"testing"

	"github.com/nao1215/urlscan/internal/model"
)

// TestScoreNoRuleFires tests the fallback reason for a clean vector.
func TestScoreNoRuleFires(t *testing.T) {
	t.Parallel()

	score, reasons := Score(model.FeatureVector{URLLength: 22, DotCount: 2, HasHTTPS: true, SubdomainCount: 1})

	if score != 0 {
		t.Errorf("expected score 0, got %d", score)
	}
	if !reflect.DeepEqual(reasons, []string{model.NoSuspiciousPatternsReason}) {
		t.Errorf("unexpected reasons: %v", reasons)
	}
}

// TestScoreURL tests the heuristic path end to end.
func TestScoreURL(t *testing.T) {
	t.Parallel()

	t.Run("google is safe", func(t *testing.T) {
		t.Parallel()

		res := ScoreURL("https://www.google.com")
		if res.RiskScore != 0 || res.Verdict != model.VerdictSafe {
			t.Errorf("unexpected result: %+v", res)
		}
		if len(res.Reasons) != 1 || res.Reasons[0] != "No suspicious patterns detected" {
			t.Errorf("unexpected reasons: %v", res.Reasons)
		}
	})

	t.Run("IP login URL is suspicious", func(t *testing.T) {
		t.Parallel()

		res := ScoreURL("http://192.168.1.1/login/verify/account")
		want := []string{
			"URL contains IP address instead of domain name",
			"Multiple suspicious keywords (3)",
			"URL does not use HTTPS encryption",
		}
		if res.RiskScore != 65 {
			t.Errorf("expected score 65, got %d", res.RiskScore)
		}
		if res.Verdict != model.VerdictSuspicious {
			t.Errorf("expected suspicious, got %v", res.Verdict)
		}
		if !reflect.DeepEqual(res.Reasons, want) {
			t.Errorf("got reasons %v, expected %v", res.Reasons, want)
		}
	})

	t.Run("shortener over http", func(t *testing.T) {
		t.Parallel()

		res := ScoreURL("http://bit.ly/free-prize")
		// free, prize, no https, shortener
		if res.RiskScore != 15+15+10 {
			t.Errorf("expected score 40, got %d (%v)", res.RiskScore, res.Reasons)
		}
	})
}

// TestTiersDoNotStack tests that only the highest matching tier counts.
func TestTiersDoNotStack(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		fv     model.FeatureVector
		score  int
		reason string
	}{
		{"long", model.FeatureVector{URLLength: 150, HasHTTPS: true}, 8, "Long URL (150 characters)"},
		{"very long", model.FeatureVector{URLLength: 201, HasHTTPS: true}, 15, "Very long URL (201 characters)"},
		{"length boundary", model.FeatureVector{URLLength: 200, HasHTTPS: true}, 8, "Long URL (200 characters)"},
		{"multiple dots", model.FeatureVector{DotCount: 4, HasHTTPS: true}, 10, "Multiple dots (4)"},
		{"excessive dots", model.FeatureVector{DotCount: 7, HasHTTPS: true}, 20, "Excessive dots (7) - possible subdomain obfuscation"},
		{"multiple hyphens", model.FeatureVector{HyphenCount: 4, HasHTTPS: true}, 7, "Multiple hyphens (4)"},
		{"excessive hyphens", model.FeatureVector{HyphenCount: 6, HasHTTPS: true}, 15, "Excessive hyphens (6)"},
		{"special present", model.FeatureVector{SpecialCharCount: 6, HasHTTPS: true}, 10, "Special characters present (6)"},
		{"many special", model.FeatureVector{SpecialCharCount: 11, HasHTTPS: true}, 20, "Many special characters (11)"},
		{"one keyword", model.FeatureVector{SuspiciousKeywordCount: 1, HasHTTPS: true}, 8, "Suspicious keyword detected"},
		{"two keywords", model.FeatureVector{SuspiciousKeywordCount: 2, HasHTTPS: true}, 15, "Suspicious keywords detected (2)"},
		{"five keywords", model.FeatureVector{SuspiciousKeywordCount: 5, HasHTTPS: true}, 25, "Multiple suspicious keywords (5)"},
		{"multiple subdomains", model.FeatureVector{SubdomainCount: 2, HasHTTPS: true}, 7, "Multiple subdomains (2)"},
		{"excessive subdomains", model.FeatureVector{SubdomainCount: 4, HasHTTPS: true}, 15, "Excessive subdomains (4)"},
		{"shortener", model.FeatureVector{HasShorteningService: true, HasHTTPS: true}, 10, "URL uses a shortening service"},
		{"no https", model.FeatureVector{}, 15, "URL does not use HTTPS encryption"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			score, reasons := Score(tc.fv)
			if score != tc.score {
				t.Errorf("expected score %d, got %d", tc.score, score)
			}
			if len(reasons) != 1 || reasons[0] != tc.reason {
				t.Errorf("expected reasons [%q], got %v", tc.reason, reasons)
			}
		})
	}
}

// TestScoreClamp tests that the sum of every rule is clamped to 100.
func TestScoreClamp(t *testing.T) {
	t.Parallel()

	fv := model.FeatureVector{
		URLLength:              300,
		DotCount:               10,
		HyphenCount:            10,
		SpecialCharCount:       20,
		HasIP:                  true,
		SuspiciousKeywordCount: 4,
		HasHTTPS:               false,
		SubdomainCount:         6,
		HasShorteningService:   true,
	}

	score, reasons := Score(fv)
	if score != model.MaxRiskScore {
		t.Errorf("expected clamped score 100, got %d", score)
	}
	if len(reasons) != len(RuleTable) {
		t.Errorf("expected one reason per rule, got %d", len(reasons))
	}
	if reasons[0] != "Very long URL (300 characters)" || reasons[len(reasons)-1] != "URL uses a shortening service" {
		t.Errorf("reasons are not in table order: %v", reasons)
	}
}

// TestScoreDeterministic tests that repeated scoring gives identical output.
func TestScoreDeterministic(t *testing.T) {
	t.Parallel()

	fv := model.FeatureVector{URLLength: 120, DotCount: 5, HyphenCount: 4, SuspiciousKeywordCount: 2, SubdomainCount: 3}
	firstScore, firstReasons := Score(fv)

	for range 10 {
		score, reasons := Score(fv)
		if score != firstScore || !reflect.DeepEqual(reasons, firstReasons) {
			t.Fatalf("non-deterministic output: %d %v vs %d %v", score, reasons, firstScore, firstReasons)
		}
	}
}

// TestRuleEvaluate tests a single rule in isolation.
func TestRuleEvaluate(t *testing.T) {
	t.Parallel()

	rules := make(map[string]Rule, len(RuleTable))
	for _, r := range RuleTable {
		rules[r.Feature] = r
	}

	for _, name := range model.FeatureNames {
		if _, ok := rules[name]; !ok {
			t.Errorf("no rule for feature %s", name)
		}
	}

	delta, reason, ok := rules["has_ip"].Evaluate(model.FeatureVector{HasIP: true})
	if !ok || delta != 25 || reason != "URL contains IP address instead of domain name" {
		t.Errorf("unexpected has_ip result: %d %q %v", delta, reason, ok)
	}

	if _, _, ok := rules["has_ip"].Evaluate(model.FeatureVector{}); ok {
		t.Error("expected has_ip rule not to fire")
	}
}

// TestScoreWith tests scoring with a custom table.
func TestScoreWith(t *testing.T) {
	t.Parallel()

	rules := []Rule{{
		Feature: "negative",
		Measure: func(model.FeatureVector) int { return 1 },
		Tiers:   []Tier{{When: IsTrue(), Delta: -40, Reason: "trusted"}},
	}}

	score, reasons := ScoreWith(rules, model.FeatureVector{})
	if score != 0 {
		t.Errorf("expected negative sum clamped to 0, got %d", score)
	}
	if len(reasons) != 1 || reasons[0] != "trusted" {
		t.Errorf("unexpected reasons: %v", reasons)
	}
}
