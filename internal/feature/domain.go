package feature

import (
	"encoding/hex"
	"net/netip"
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/net/publicsuffix"
)

// RegistrableDomain returns the eTLD+1 of the URL host, such as
// "example.co.uk" for "https://login.example.co.uk/". It returns "" for IP
// hosts, bare public suffixes and URLs without a host.
//
// The domain is not a scoring feature. It groups scans in history and
// reports so that all pages of one site can be listed together.
func RegistrableDomain(rawURL string) string {
	host := strings.TrimSuffix(Hostname(rawURL), ".")
	if host == "" {
		return ""
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return ""
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return domain
}

// Fingerprint returns a stable hex digest of the URL, used as the cache key
// and as the lookup column in scan history.
//
// Surrounding whitespace is ignored. Everything else, including case in the
// path, is significant because it also changes the feature vector.
func Fingerprint(rawURL string) string {
	sum := sha3.Sum256([]byte(strings.TrimSpace(rawURL)))
	return hex.EncodeToString(sum[:])
}
