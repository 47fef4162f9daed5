// Package feature turns a raw URL string into a model.FeatureVector.
//
// # Purpose
//
// Every signal the rule scorer and the classifier look at is computed here,
// once per URL. The package holds nine independent functions, one per
// feature, plus Extract which runs all of them.
//
// # Totality
//
// Each function accepts any string, including empty, malformed or non-ASCII
// input. When the host cannot be parsed the function returns the "absent"
// value (0 or false). Nothing in this package returns an error or panics.
//
// # Host Parsing
//
// Host-based features (HasIP, SubdomainCount, HasShorteningService) share
// one hostname lookup. A structured parse with net/url is tried first. When
// that fails, the authority section is cut out of the string by hand: the
// text between "//" and the first "/", "?" or "#", without user info and
// without the port.
//
// # IP Detection
//
// HasIP also scans the whole string for a dotted quad when the host itself
// is not an IP literal. This can flag a URL that merely carries an address in
// its path or query, for example a redirect parameter. The behavior is kept
// so that scores stay comparable with models trained on earlier data.
package feature
