package heuristic

import (
	"github.com/nao1215/urlscan/internal/feature"
	"github.com/nao1215/urlscan/internal/model"
)

// Score runs every rule of RuleTable over the feature vector.
// The returned score is clamped to [0, 100] and reasons is never empty.
func Score(fv model.FeatureVector) (int, []string) {
	return ScoreWith(RuleTable, fv)
}

// ScoreWith is Score over a caller-provided rule table.
func ScoreWith(rules []Rule, fv model.FeatureVector) (int, []string) {
	total := 0
	reasons := make([]string, 0, len(rules))

	for _, rule := range rules {
		delta, reason, ok := rule.Evaluate(fv)
		if !ok {
			continue
		}
		total += delta
		reasons = append(reasons, reason)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, model.NoSuspiciousPatternsReason)
	}
	return model.ClampScore(total), reasons
}

// Evaluate scores the vector and maps the score to a verdict.
func Evaluate(fv model.FeatureVector) model.ScoreResult {
	score, reasons := Score(fv)
	return model.ScoreResult{
		RiskScore: score,
		Reasons:   reasons,
		Verdict:   model.VerdictFor(score),
	}
}

// ScoreURL extracts features from a URL and evaluates them.
// It is the heuristic-only path, without any classifier.
func ScoreURL(rawURL string) model.ScoreResult {
	return Evaluate(feature.Extract(rawURL))
}
