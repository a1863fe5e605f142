package parsing

import (
	"net/url"
	"strings"

	"github.com/jonathan/candidate-pipeline/internal/types"
)

// NormalizeEmail lowercases and trims an email address. Values without an @ become empty.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	email = strings.TrimPrefix(email, "mailto:")
	if !strings.Contains(email, "@") {
		return ""
	}
	return email
}

// NormalizeURL adds a scheme to bare links such as "github.com/ada".
// Values that still do not parse as an absolute URL with a host are dropped.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || !strings.Contains(u.Host, ".") {
		return ""
	}
	return u.String()
}

// NormalizeURLs normalizes and de-duplicates links, preserving first-seen order
func NormalizeURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		u := NormalizeURL(raw)
		key := strings.TrimSuffix(strings.ToLower(u), "/")
		if u == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out
}

func postProcess(resume *types.ParsedResume) {
	resume.Normalize()
	resume.Email = NormalizeEmail(resume.Email)
	resume.URLs = NormalizeURLs(resume.URLs)
}
