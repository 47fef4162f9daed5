// Package cache stores finished scan reports so that the HTTP API can answer
// repeated lookups of the same URL without scoring it again.
//
// The redis implementation keys reports by the SHA3 fingerprint of the URL
// and expires them after a TTL. Cache failures are never fatal: callers treat
// an error like a miss and scan the URL.
package cache
