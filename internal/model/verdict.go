package model

import "fmt"

// Verdict thresholds on the final risk score.
const (
	// SuspiciousThreshold is the lowest score classified as suspicious.
	SuspiciousThreshold = 30

	// MaliciousThreshold is the lowest score classified as malicious.
	MaliciousThreshold = 70

	// MinRiskScore and MaxRiskScore bound every risk score.
	MinRiskScore = 0
	MaxRiskScore = 100
)

// Verdict represents the risk tier of a scanned URL.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. Verdicts are ordered from least
// to most dangerous, so `v >= VerdictSuspicious` reads naturally. The String()
// method provides the lowercase wire form used by the API ("safe", ...).
type Verdict int

const (
	// VerdictSafe indicates a URL with a risk score below 30.
	VerdictSafe Verdict = iota

	// VerdictSuspicious indicates a URL with a risk score in [30, 70).
	VerdictSuspicious

	// VerdictMalicious indicates a URL with a risk score of 70 or more.
	VerdictMalicious
)

// VerdictFor maps a final risk score to its verdict.
// The mapping is stateless and has no hysteresis: 29 is safe, 30 is suspicious,
// 69 is suspicious and 70 is malicious.
func VerdictFor(score int) Verdict {
	switch {
	case score >= MaliciousThreshold:
		return VerdictMalicious
	case score >= SuspiciousThreshold:
		return VerdictSuspicious
	default:
		return VerdictSafe
	}
}

// String returns the lowercase name of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictSafe:
		return "safe"
	case VerdictSuspicious:
		return "suspicious"
	case VerdictMalicious:
		return "malicious"
	default:
		return "unknown"
	}
}

// ParseVerdict converts a verdict name back to a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "safe":
		return VerdictSafe, nil
	case "suspicious":
		return VerdictSuspicious, nil
	case "malicious":
		return VerdictMalicious, nil
	default:
		return VerdictSafe, fmt.Errorf("unknown verdict %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler so verdicts serialize as strings.
func (v Verdict) MarshalText() ([]byte, error) {
	if v < VerdictSafe || v > VerdictMalicious {
		return nil, fmt.Errorf("invalid verdict value %d", int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// VerdictInfo contains user-facing guidance for a verdict.
type VerdictInfo struct {
	Verdict        Verdict
	Summary        string
	Recommendation string
}

// verdictInfoMapping is the single source of truth for how each verdict is
// explained to users in text and Markdown reports.
var verdictInfoMapping = map[Verdict]VerdictInfo{
	VerdictSafe: {
		Verdict:        VerdictSafe,
		Summary:        "No strong indicators of phishing or malware were found.",
		Recommendation: "The URL looks safe, but always check the address before entering credentials.",
	},
	VerdictSuspicious: {
		Verdict:        VerdictSuspicious,
		Summary:        "The URL shows patterns commonly seen in phishing or malware links.",
		Recommendation: "Proceed with caution and do not enter passwords or payment details.",
	},
	VerdictMalicious: {
		Verdict:        VerdictMalicious,
		Summary:        "The URL matches many high-risk patterns.",
		Recommendation: "Do not visit this URL.",
	},
}

// GetVerdictInfo returns the guidance for a verdict.
// Unknown verdicts fall back to the malicious guidance.
func GetVerdictInfo(v Verdict) VerdictInfo {
	if info, ok := verdictInfoMapping[v]; ok {
		return info
	}
	return verdictInfoMapping[VerdictMalicious]
}
