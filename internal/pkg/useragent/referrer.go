package useragent

import (
	"net/url"
	"strings"

	"go.elara.ws/pcre"
)

var hostFallbackRegex = pcre.MustCompile(`(?i)^https?://([^/:?#]+)`)

// ExtractHost returns the lowercased hostname of a referrer URL, or ""
// when the value is empty or cannot be parsed. Browsers occasionally
// report referrers that url.Parse rejects (stray spaces, unescaped
// characters), so a regex fallback still salvages the leading
// scheme://host portion.
func ExtractHost(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname())
	}

	if m := hostFallbackRegex.FindStringSubmatch(rawURL); len(m) > 1 {
		return strings.ToLower(m[1])
	}

	return ""
}
