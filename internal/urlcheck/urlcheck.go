// Package urlcheck validates link URLs and normalizes newsletter image CDN
// URLs before they are attached to blocks or stored.
package urlcheck

import (
	"regexp"
	"strings"
)

const maxURLLength = 2000

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	bareDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][-a-zA-Z0-9]*\.[a-zA-Z]{2,}`)
	hostShapePattern  = regexp.MustCompile(`^https?://[a-zA-Z0-9][-a-zA-Z0-9.]*[a-zA-Z0-9]`)

	beehiivProxyPattern = regexp.MustCompile(`^(https://media\.beehiiv\.com/)cdn-cgi/image/[^/]+/([^?]*)`)
	wpProxyPattern      = regexp.MustCompile(`^https://i\d\.wp\.com/(stratechery\.com/[^?]+)`)
)

// Validate repairs and validates a candidate link URL. It returns the accepted
// URL and true, or "" and false when the candidate cannot yield a usable link.
func Validate(raw string) (string, bool) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", false
	}

	// Quoted-printable soft line breaks survive inside href values.
	u = strings.ReplaceAll(u, "=\r\n", "")
	u = strings.ReplaceAll(u, "=\n", "")
	u = whitespacePattern.ReplaceAllString(u, "")

	switch {
	case strings.HasPrefix(u, "//"):
		u = "https:" + u
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "mailto:"):
	default:
		if !bareDomainPattern.MatchString(u) {
			return "", false
		}
		u = "https://" + u
	}

	if strings.HasPrefix(u, "mailto:") {
		return u, true
	}

	if !hostShapePattern.MatchString(u) {
		return "", false
	}
	if len(u) > maxURLLength {
		u = u[:maxURLLength]
	}
	return u, true
}

// RewriteImage maps known image-proxy URL shapes to their canonical origin
// form. Unrecognized URLs pass through unchanged.
func RewriteImage(u string) string {
	if u == "" {
		return u
	}

	if strings.Contains(u, "media.beehiiv.com/cdn-cgi") {
		if m := beehiivProxyPattern.FindStringSubmatch(u); m != nil {
			return m[1] + m[2]
		}
	}

	if m := wpProxyPattern.FindStringSubmatch(u); m != nil {
		return "https://" + m[1]
	}

	return u
}

// StripQuery drops the query string from a URL, keeping everything before '?'.
func StripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
