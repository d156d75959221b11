package impl

import (
	"net/url"
	"strings"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
)

// blockedSchemes are link schemes that can never be fetched.
var blockedSchemes = map[string]bool{
	"mailto":     true,
	"tel":        true,
	"javascript": true,
	"whatsapp":   true,
	"data":       true,
	"file":       true,
}

// defaultBlockedDomains filters social platforms out of extracted link sets.
var defaultBlockedDomains = []string{
	"linkedin.com",
	"x.com",
	"twitter.com",
	"facebook.com",
	"instagram.com",
	"youtube.com",
	"tiktok.com",
	"pinterest.com",
	"reddit.com",
	"snapchat.com",
	"discord.com",
	"telegram.org",
}

// NormalizeURL canonicalizes a raw URL: trims whitespace, drops a leading
// "www.", defaults the scheme to https, lowercases the host, guarantees a
// path of at least "/", and strips the fragment. Non-http(s) URLs are
// rejected.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", models.NewValidationError("url is empty")
	}
	trimmed = strings.TrimPrefix(trimmed, "www.")
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", models.NewValidationError("invalid url %q", raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", models.NewValidationError("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", models.NewValidationError("url %q has no host", raw)
	}

	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	parsed.Fragment = ""
	return parsed.String(), nil
}

// FilterURLs drops empties, blocked schemes, and links whose host contains a
// blocked domain. extraBlockedDomains extends the built-in social denylist.
func FilterURLs(urls []string, extraBlockedDomains []string) []string {
	blocked := make([]string, 0, len(defaultBlockedDomains)+len(extraBlockedDomains))
	blocked = append(blocked, defaultBlockedDomains...)
	blocked = append(blocked, extraBlockedDomains...)

	filtered := make([]string, 0, len(urls))
	for _, raw := range urls {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		parsed, err := url.Parse(trimmed)
		if err != nil {
			continue
		}
		if blockedSchemes[strings.ToLower(parsed.Scheme)] {
			continue
		}
		host := strings.ToLower(parsed.Host)
		skip := false
		for _, domain := range blocked {
			if domain != "" && strings.Contains(host, domain) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		filtered = append(filtered, trimmed)
	}
	return filtered
}

// ensureTrailingSlash is used when pinning the page's own URL to the front
// of its link set.
func ensureTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.RawQuery != "" {
		return u
	}
	return u + "/"
}
