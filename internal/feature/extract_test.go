package feature

import (
	"testing"

	"github.com/nao1215/urlscan/internal/model"
)

// TestHasIP tests IP address detection.
func TestHasIP(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		url      string
		expected bool
	}{
		{"IPv4 host", "http://192.168.1.1/x", true},
		{"IPv4 host with port", "http://10.0.0.1:8080/", true},
		{"IPv6 host", "http://[::1]:8080/", true},
		{"domain host", "https://example.com", false},
		{"dotted quad in query", "https://example.com/redirect?to=10.0.0.1", true},
		{"dotted quad without scheme", "192.168.0.1/admin", true},
		{"empty", "", false},
		{"unterminated IPv6 host", "http://[::1", false},
		{"version number", "https://example.com/v1.2.3", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasIP(tc.url); got != tc.expected {
				t.Errorf("HasIP(%q) = %v, expected %v", tc.url, got, tc.expected)
			}
		})
	}
}

// TestHasHTTPS tests the scheme check.
func TestHasHTTPS(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		url      string
		expected bool
	}{
		{"https://example.com", true},
		{"HTTPS://EXAMPLE.COM", true},
		{"http://x", false},
		{"https:/x", false},
		{"ftp://example.com", false},
		{"", false},
	}

	for _, tc := range testCases {
		if got := HasHTTPS(tc.url); got != tc.expected {
			t.Errorf("HasHTTPS(%q) = %v, expected %v", tc.url, got, tc.expected)
		}
	}
}

// TestCharacterCounts tests the plain counting features.
func TestCharacterCounts(t *testing.T) {
	t.Parallel()

	t.Run("dots", func(t *testing.T) {
		t.Parallel()
		if got := DotCount("a.b.c.d"); got != 3 {
			t.Errorf("expected 3 dots, got %d", got)
		}
		if got := DotCount(""); got != 0 {
			t.Errorf("expected 0 dots, got %d", got)
		}
	})

	t.Run("hyphens", func(t *testing.T) {
		t.Parallel()
		if got := HyphenCount("https://my-secure-bank-login.com"); got != 3 {
			t.Errorf("expected 3 hyphens, got %d", got)
		}
	})

	t.Run("length counts characters", func(t *testing.T) {
		t.Parallel()
		if got := URLLength("https://exämple.com"); got != 19 {
			t.Errorf("expected 19 characters, got %d", got)
		}
	})

	t.Run("special characters", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			url      string
			expected int
		}{
			{"https://example.com/path?a=1&b=2~x_y", 0},
			{"https://example.com/a b!c", 2},
			{"https://example.com/%20", 1},
			{"https://exämple.com", 1},
			{"https://example.com/#@$", 3},
		}
		for _, tc := range testCases {
			if got := SpecialCharCount(tc.url); got != tc.expected {
				t.Errorf("SpecialCharCount(%q) = %d, expected %d", tc.url, got, tc.expected)
			}
		}
	})
}

// TestSuspiciousKeywordCount tests distinct keyword counting.
func TestSuspiciousKeywordCount(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		url      string
		expected int
	}{
		{"none", "https://www.google.com", 0},
		{"three in path", "http://192.168.1.1/login/verify/account", 3},
		{"repeated keyword counts once", "https://login.example.com/login/login", 1},
		{"case insensitive", "https://SECURE-Bank-LOGIN.com", 3},
		{"empty", "", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := SuspiciousKeywordCount(tc.url); got != tc.expected {
				t.Errorf("SuspiciousKeywordCount(%q) = %d, expected %d", tc.url, got, tc.expected)
			}
		})
	}
}

// TestSubdomainCount tests subdomain counting on the parsed host.
func TestSubdomainCount(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		url      string
		expected int
	}{
		{"bare domain", "https://example.com", 0},
		{"www", "https://www.google.com", 1},
		{"deep chain", "https://a.b.c.example.com/x", 4},
		{"port is ignored", "https://a.b.example.com:8443/", 2},
		{"IPv4 host", "http://192.168.1.1/x", 0},
		{"no host", "example.com/path", 0},
		{"empty", "", 0},
		{"unparsable host falls back to authority", "http://a b.example.com/", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := SubdomainCount(tc.url); got != tc.expected {
				t.Errorf("SubdomainCount(%q) = %d, expected %d", tc.url, got, tc.expected)
			}
		})
	}
}

// TestHasShorteningService tests shortener host matching.
func TestHasShorteningService(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		url      string
		expected bool
	}{
		{"https://bit.ly/abc", true},
		{"https://BIT.LY/abc", true},
		{"http://tinyurl.com/xyz", true},
		{"https://example.com/bit.ly", false},
		{"https://www.google.com", false},
		{"", false},
	}

	for _, tc := range testCases {
		if got := HasShorteningService(tc.url); got != tc.expected {
			t.Errorf("HasShorteningService(%q) = %v, expected %v", tc.url, got, tc.expected)
		}
	}
}

// TestExtract tests the full feature vector.
func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("benign URL", func(t *testing.T) {
		t.Parallel()

		got := Extract("https://www.google.com")
		want := model.FeatureVector{
			URLLength:      22,
			DotCount:       2,
			HasHTTPS:       true,
			SubdomainCount: 1,
		}
		if got != want {
			t.Errorf("got %+v, expected %+v", got, want)
		}
	})

	t.Run("IP phishing URL", func(t *testing.T) {
		t.Parallel()

		got := Extract("http://192.168.1.1/login/verify/account")
		want := model.FeatureVector{
			URLLength:              39,
			DotCount:               3,
			HasIP:                  true,
			SuspiciousKeywordCount: 3,
		}
		if got != want {
			t.Errorf("got %+v, expected %+v", got, want)
		}
	})

	t.Run("never panics on odd input", func(t *testing.T) {
		t.Parallel()

		inputs := []string{"", "://", "http://", "http://[", "%%%", "http://@:/", "\x00\xff", "日本語"}
		for _, in := range inputs {
			fv := Extract(in)
			for i, v := range fv.Values() {
				if v < 0 {
					t.Errorf("Extract(%q): %s is negative", in, model.FeatureNames[i])
				}
			}
		}
	})
}
