package model

// FeatureCount is the number of dimensions in a FeatureVector.
const FeatureCount = 9

// FeatureNames lists the feature names in their fixed vector order.
// The classifier persists this list with every model so that a snapshot
// trained on a different vector shape is rejected at load time.
var FeatureNames = [FeatureCount]string{
	"url_length",
	"dot_count",
	"hyphen_count",
	"special_char_count",
	"has_ip",
	"suspicious_keyword_count",
	"has_https",
	"subdomain_count",
	"has_shortening_service",
}

// FeatureVector is the fixed 9-dimensional description of a URL used by both
// the rule engine and the classifier.
//
// A FeatureVector is a value object: it is computed once per URL and never
// mutated afterwards. All counts are non-negative and all booleans are
// defined, even for malformed hostnames.
type FeatureVector struct {
	// URLLength is the number of characters in the full URL.
	URLLength int `json:"url_length"`

	// DotCount is the number of '.' characters.
	DotCount int `json:"dot_count"`

	// HyphenCount is the number of '-' characters.
	HyphenCount int `json:"hyphen_count"`

	// SpecialCharCount is the number of characters outside the URL allow-set.
	SpecialCharCount int `json:"special_char_count"`

	// HasIP is true when the host is an IP literal (or a dotted quad appears in the URL).
	HasIP bool `json:"has_ip"`

	// SuspiciousKeywordCount is the number of distinct phishing keywords present.
	SuspiciousKeywordCount int `json:"suspicious_keyword_count"`

	// HasHTTPS is true when the URL starts with https://.
	HasHTTPS bool `json:"has_https"`

	// SubdomainCount is the number of host labels beyond domain and TLD.
	SubdomainCount int `json:"subdomain_count"`

	// HasShorteningService is true when the host belongs to a known URL shortener.
	HasShorteningService bool `json:"has_shortening_service"`
}

// Values returns the vector as numbers in FeatureNames order.
// Booleans are cast to 0 or 1.
func (f FeatureVector) Values() []float64 {
	return []float64{
		float64(f.URLLength),
		float64(f.DotCount),
		float64(f.HyphenCount),
		float64(f.SpecialCharCount),
		boolToFloat(f.HasIP),
		float64(f.SuspiciousKeywordCount),
		boolToFloat(f.HasHTTPS),
		float64(f.SubdomainCount),
		boolToFloat(f.HasShorteningService),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
