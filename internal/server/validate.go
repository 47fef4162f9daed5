package server

import (
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"
)

// URL length limits, counted after the scheme is added.
const (
	MinURLLength = 4
	MaxURLLength = 2048
)

// Validation errors. Their messages are returned to clients as-is.
var (
	// ErrMissingURL is returned when the request carries no URL at all.
	ErrMissingURL = errors.New("url is required")

	// ErrURLTooLong is returned for URLs longer than MaxURLLength.
	ErrURLTooLong = errors.New("URL too long (max 2048 characters)")

	// ErrURLTooShort is returned for URLs shorter than MinURLLength.
	ErrURLTooShort = errors.New("URL too short")

	// ErrInvalidURL is returned when the input is not an http(s) URL with a host.
	ErrInvalidURL = errors.New("Invalid URL format") //nolint:staticcheck // client-facing message
)

// NormalizeURL trims the input, adds https:// when no http(s) scheme is
// present and checks that the result is a usable http(s) URL.
func NormalizeURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", ErrMissingURL
	}

	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}

	n := utf8.RuneCountInString(u)
	if n > MaxURLLength {
		return "", ErrURLTooLong
	}
	if n < MinURLLength {
		return "", ErrURLTooShort
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if parsed.Hostname() == "" || strings.ContainsAny(parsed.Hostname(), " \t") {
		return "", ErrInvalidURL
	}
	return u, nil
}
