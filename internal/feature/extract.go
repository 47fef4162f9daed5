package feature

import (
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/urlscan/internal/model"
)

// SuspiciousKeywords are words commonly found in phishing and malware URLs.
// A keyword counts once no matter how often it appears.
var SuspiciousKeywords = []string{
	"login", "verify", "update", "secure", "bank", "free",
	"account", "confirm", "validate", "activate", "suspended",
	"urgent", "click", "limited", "offer", "prize", "winner",
	"phishing", "malware", "virus", "download", "install",
}

// ShorteningDomains are hosts of known URL shortening services.
var ShorteningDomains = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly",
	"is.gd", "short.link", "rebrand.ly", "cutt.ly",
}

// dottedQuadRegex finds an IPv4-looking sequence anywhere in a string.
var dottedQuadRegex = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

// Extract computes the full feature vector for a URL.
func Extract(rawURL string) model.FeatureVector {
	return model.FeatureVector{
		URLLength:              URLLength(rawURL),
		DotCount:               DotCount(rawURL),
		HyphenCount:            HyphenCount(rawURL),
		SpecialCharCount:       SpecialCharCount(rawURL),
		HasIP:                  HasIP(rawURL),
		SuspiciousKeywordCount: SuspiciousKeywordCount(rawURL),
		HasHTTPS:               HasHTTPS(rawURL),
		SubdomainCount:         SubdomainCount(rawURL),
		HasShorteningService:   HasShorteningService(rawURL),
	}
}

// URLLength returns the number of characters in the URL.
// Multi-byte characters count as one.
func URLLength(rawURL string) int {
	return utf8.RuneCountInString(rawURL)
}

// DotCount returns the number of '.' characters.
// Many dots often mean a long chain of subdomains.
func DotCount(rawURL string) int {
	return strings.Count(rawURL, ".")
}

// HyphenCount returns the number of '-' characters.
func HyphenCount(rawURL string) int {
	return strings.Count(rawURL, "-")
}

// SpecialCharCount returns the number of characters that are not letters,
// digits or one of ":/?=&-._~".
func SpecialCharCount(rawURL string) int {
	count := 0
	for _, r := range rawURL {
		if !isAllowedURLRune(r) {
			count++
		}
	}
	return count
}

func isAllowedURLRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune(":/?=&-._~", r)
}

// HasIP reports whether the URL points at an IP address instead of a domain.
// The host is checked first; when it is not an IP literal the whole string is
// searched for a dotted quad.
func HasIP(rawURL string) bool {
	host := Hostname(rawURL)
	if host != "" {
		if _, err := netip.ParseAddr(host); err == nil {
			return true
		}
	}
	return dottedQuadRegex.MatchString(rawURL)
}

// SuspiciousKeywordCount returns how many distinct SuspiciousKeywords occur
// in the URL, ignoring case.
func SuspiciousKeywordCount(rawURL string) int {
	// A Caser keeps state between calls, so one is built per URL.
	lower := cases.Lower(language.Und).String(rawURL)

	count := 0
	for _, keyword := range SuspiciousKeywords {
		if strings.Contains(lower, keyword) {
			count++
		}
	}
	return count
}

// HasHTTPS reports whether the URL starts with "https://", ignoring case.
func HasHTTPS(rawURL string) bool {
	const prefix = "https://"
	return len(rawURL) >= len(prefix) && strings.EqualFold(rawURL[:len(prefix)], prefix)
}

// SubdomainCount returns the number of host labels in front of the
// registered domain and TLD. IP hosts and unparsable hosts have none.
func SubdomainCount(rawURL string) int {
	host := Hostname(rawURL)
	if host == "" {
		return 0
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return 0
	}

	labels := strings.Split(host, ".")
	if len(labels) > 2 {
		return len(labels) - 2
	}
	return 0
}

// HasShorteningService reports whether the host contains one of the
// ShorteningDomains.
func HasShorteningService(rawURL string) bool {
	host := Hostname(rawURL)
	if host == "" {
		return false
	}
	for _, domain := range ShorteningDomains {
		if strings.Contains(host, domain) {
			return true
		}
	}
	return false
}

// Hostname returns the lowercased host of the URL without port or brackets,
// or "" when the URL has no authority section.
func Hostname(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return strings.ToLower(u.Hostname())
	}
	return strings.ToLower(authorityHost(rawURL))
}

// authorityHost cuts the host out of a URL that net/url refused to parse.
func authorityHost(rawURL string) string {
	_, rest, found := strings.Cut(rawURL, "//")
	if !found {
		return ""
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}

	if strings.HasPrefix(rest, "[") {
		if end := strings.Index(rest, "]"); end > 0 {
			return rest[1:end]
		}
		return ""
	}
	host, _, _ := strings.Cut(rest, ":")
	return host
}
