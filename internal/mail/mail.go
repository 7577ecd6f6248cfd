// Package mail derives newsletter metadata from raw email headers and
// bodies: the display tag for a sender, the dedup fingerprint of a message,
// the canonical article URL, and the message classification.
package mail

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	netmail "net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"notionsync/internal/urlcheck"
)

// Message is one fetched newsletter email, decoded and ready to sync.
type Message struct {
	ID           string
	Subject      string
	From         string
	DateHeader   string
	InternalDate string // epoch milliseconds, as reported by the mailbox
	BodyHTML     string
	BodyText     string
}

// Type classifies a message by what the newsletter published.
type Type string

const (
	TypeArticle Type = "Article"
	TypeChat    Type = "Chat"
)

var (
	angleAddrPattern = regexp.MustCompile(`<([^>]+)>`)
	localPartPattern = regexp.MustCompile(`^([^@]+)@`)
)

// SenderTag maps a From header to a short display tag. Known senders resolve
// through the sources map (address substring, case-insensitive); unknown ones
// fall back to the address local part with any +suffix stripped.
func SenderTag(from string, sources map[string]string) string {
	if strings.TrimSpace(from) == "" {
		return "unknown"
	}

	addr := from
	if m := angleAddrPattern.FindStringSubmatch(from); m != nil {
		addr = m[1]
	}

	lower := strings.ToLower(addr)
	for key, name := range sources {
		if strings.Contains(lower, strings.ToLower(key)) {
			return name
		}
	}

	if m := localPartPattern.FindStringSubmatch(addr); m != nil {
		tag := strings.ToLower(m[1])
		if i := strings.Index(tag, "+"); i >= 0 {
			tag = tag[:i]
		}
		return tag
	}

	return "unknown"
}

// Fingerprint identifies a synced article for dedup purposes. Only the date
// portion of the timestamp participates, so re-deliveries on the same day
// collapse to one fingerprint.
func Fingerprint(subject, senderTag, date string) string {
	if len(date) > 10 {
		date = date[:10]
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%s", subject, senderTag, date)))
	return hex.EncodeToString(sum[:])[:16]
}

var articleURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)View in browser\s*\(\s*(https://[^\s)]+)`),
	regexp.MustCompile(`(?i)x-newsletter:\s*(https://[^\s]+)`),
	regexp.MustCompile(`(?i)View this post on the web at\s+(https://[^\s<>"]+)`),
	regexp.MustCompile(`(?i)https://[a-zA-Z0-9-]+\.substack\.com/p/[a-zA-Z0-9-]+`),
	regexp.MustCompile(`(?i)https://newsletter\.[a-zA-Z0-9-]+\.com/p/[a-zA-Z0-9-]+`),
}

// ArticleURL finds the canonical web URL of the article inside a message
// body, trying the common newsletter header phrasings first and bare
// publication links last. The query string is dropped.
func ArticleURL(text string) string {
	if text == "" {
		return ""
	}
	for _, pattern := range articleURLPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		url := m[0]
		if len(m) > 1 {
			url = m[1]
		}
		return urlcheck.StripQuery(url)
	}
	return ""
}

// IsWelcome reports whether a message is a subscription welcome email,
// which never carries article content.
func IsWelcome(subject string) bool {
	return strings.HasPrefix(strings.ToLower(subject), "welcome to ")
}

// Classify distinguishes chat-thread notifications from regular articles.
func Classify(subject, articleURL string) Type {
	if strings.Contains(strings.ToLower(subject), "new thread from") ||
		strings.Contains(articleURL, "/chat/") {
		return TypeChat
	}
	return TypeArticle
}

// EventTime resolves when the message arrived, preferring the mailbox's
// internal timestamp over the Date header. Falls back to now.
func (m *Message) EventTime(now func() time.Time) time.Time {
	if m.InternalDate != "" {
		if ms, err := strconv.ParseInt(m.InternalDate, 10, 64); err == nil && ms > 0 {
			return time.UnixMilli(ms)
		}
	}
	if m.DateHeader != "" {
		if t, err := netmail.ParseDate(m.DateHeader); err == nil {
			return t
		}
	}
	return now()
}
