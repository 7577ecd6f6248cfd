// Package archive writes a local markdown copy of every synced newsletter,
// independent of the destination database.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
)

const maxSlugLength = 60

type Writer struct {
	dir    string
	policy *bluemonday.Policy
}

func NewWriter(dir string) *Writer {
	return &Writer{
		dir:    dir,
		policy: bluemonday.UGCPolicy(),
	}
}

// Save converts the message body to markdown and writes it as a dated file,
// returning the path. The HTML is sanitized before conversion so tracking
// markup and scripts never reach the archive.
func (w *Writer) Save(subject, sender string, date time.Time, bodyHTML string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	clean := w.policy.Sanitize(bodyHTML)
	body, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("convert archive markdown: %w", err)
	}
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))

	var doc strings.Builder
	fmt.Fprintf(&doc, "# %s\n\n", subject)
	fmt.Fprintf(&doc, "- Source: %s\n", sender)
	fmt.Fprintf(&doc, "- Date: %s\n\n", date.Format("2006-01-02 15:04"))
	doc.WriteString(body)
	doc.WriteString("\n")

	path := filepath.Join(w.dir, Filename(subject, sender, date))
	if err := os.WriteFile(path, []byte(doc.String()), 0o644); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	return path, nil
}

var nonSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Filename builds the dated archive filename for a message:
// <date>-<sender>-<subject>.md with empty parts dropped.
func Filename(subject, sender string, date time.Time) string {
	parts := []string{date.Format("2006-01-02")}
	if slug := Slugify(sender); slug != "" {
		parts = append(parts, slug)
	}
	if slug := Slugify(subject); slug != "" {
		parts = append(parts, slug)
	}
	if len(parts) == 1 {
		parts = append(parts, "untitled")
	}
	return strings.Join(parts, "-") + ".md"
}

// Slugify lowercases text and collapses every non-alphanumeric sequence into
// a single hyphen.
func Slugify(text string) string {
	slug := nonSlugPattern.ReplaceAllString(strings.ToLower(text), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[:maxSlugLength], "-")
	}
	return slug
}
