package block

import (
	"html"
	"regexp"
	"strings"

	"notionsync/internal/urlcheck"
)

var (
	stylePattern   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptPattern  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	previewPattern = regexp.MustCompile(`(?is)<div[^>]*class="preview"[^>]*>.*?</div>`)

	// Footer removal stays anchored and non-greedy; the text patterns are
	// bounded so a stray "Unsubscribe" mid-article cannot swallow the rest
	// of the document.
	footerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<div[^>]*class="[^"]*footer[^"]*"[^>]*>.*?</div>`),
		regexp.MustCompile(`(?i)Forwarded this email\?[^<]{0,200}`),
		regexp.MustCompile(`(?i)Unsubscribe[^<]{0,500}`),
	}

	imgTagPattern = regexp.MustCompile(`(?i)<img[^>]+>`)
	imgSrcPattern = regexp.MustCompile(`(?i)src=["']([^"']+)["']`)

	// One alternation matching every block-level element we understand.
	// First alternative wins at each position; matches never overlap.
	elementPattern = regexp.MustCompile(
		`(?is)(<h[1-6][^>]*>.*?</h[1-6]>)|(<blockquote[^>]*>.*?</blockquote>)|(<ul[^>]*>.*?</ul>)|(<ol[^>]*>.*?</ol>)|(<p[^>]*>.*?</p>)`)

	softBreakPattern = regexp.MustCompile(`=\r?\n`)
	formatCharRange  = regexp.MustCompile("[\\x{034f}\\x{200b}-\\x{200f}\\x{2028}-\\x{202f}\\x{205f}-\\x{206f}\\x{feff}]")
)

// trackingHints mark image URLs that are tracking pixels or layout spacers;
// matching URLs are never materialized as blocks.
var trackingHints = []string{"tracking", "pixel", "1x1", "spacer", "blank"}

// decodeQuotedPrintable removes soft line breaks and decodes =XX escapes.
// Invalid escapes are kept literally so a body that was never QP-encoded
// passes through intact.
func decodeQuotedPrintable(s string) string {
	s = softBreakPattern.ReplaceAllString(s, "")
	if !strings.ContainsRune(s, '=') {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '=' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				sb.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// preprocess normalizes a raw email HTML body: transfer-encoding and entity
// decode, then style/script/preview/footer boilerplate removal.
func preprocess(body string) string {
	body = decodeQuotedPrintable(body)
	body = html.UnescapeString(body)
	body = formatCharRange.ReplaceAllString(body, "")

	body = stylePattern.ReplaceAllString(body, "")
	body = scriptPattern.ReplaceAllString(body, "")
	body = previewPattern.ReplaceAllString(body, "")
	for _, p := range footerPatterns {
		body = p.ReplaceAllString(body, "")
	}
	return body
}

type imageRef struct {
	offset int
	url    string
}

// discoverImages scans the preprocessed body for <img> tags, recording byte
// offset and the rewritten absolute URL of every image that is not a
// tracking pixel or spacer.
func discoverImages(body string) []imageRef {
	var images []imageRef
	for _, loc := range imgTagPattern.FindAllStringIndex(body, -1) {
		tag := body[loc[0]:loc[1]]
		m := imgSrcPattern.FindStringSubmatch(tag)
		if m == nil {
			continue
		}
		src := html.UnescapeString(m[1])
		if !strings.HasPrefix(src, "http") {
			continue
		}
		if isTrackingURL(src) {
			continue
		}
		images = append(images, imageRef{offset: loc[0], url: urlcheck.RewriteImage(src)})
	}
	return images
}

func isTrackingURL(u string) bool {
	lower := strings.ToLower(u)
	for _, hint := range trackingHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// FromHTML converts a raw newsletter HTML body into an ordered block
// document. Images are interleaved at the block boundary nearest their byte
// offset in the source; an image inside a matched element's span is deferred
// to the following boundary.
func FromHTML(body string) []Block {
	if body == "" {
		return nil
	}

	body = preprocess(body)
	images := discoverImages(body)

	var (
		blocks   []Block
		imageIdx int
	)

	// Every discovered image is emitted exactly once, in offset order. An
	// image whose offset lands inside a matched element's span is deferred
	// to the following flush boundary rather than splitting the block.
	flushImagesBefore := func(limit int) {
		for imageIdx < len(images) && images[imageIdx].offset < limit {
			blocks = append(blocks, Block{Kind: Image, ImageURL: images[imageIdx].url})
			imageIdx++
		}
	}

	for _, loc := range elementPattern.FindAllStringIndex(body, -1) {
		flushImagesBefore(loc[0])
		blocks = append(blocks, buildBlocks(body[loc[0]:loc[1]])...)
	}
	flushImagesBefore(len(body) + 1)

	return blocks
}
