package block

import "strings"

const fingerprintPrefixLen = 100

// Fingerprint is the dedup key for a non-image block: its kind plus the
// lowercased, trimmed prefix of its text.
func Fingerprint(b *Block) string {
	text := b.Text()
	if r := []rune(text); len(r) > fingerprintPrefixLen {
		text = string(r[:fingerprintPrefixLen])
	}
	return string(b.Kind) + ":" + strings.TrimSpace(strings.ToLower(text))
}

// Deduplicate drops every non-image block whose fingerprint was already seen
// earlier in the document; the first occurrence survives. Image blocks always
// pass through. The pass is idempotent.
func Deduplicate(blocks []Block) []Block {
	seen := make(map[string]struct{}, len(blocks))
	out := make([]Block, 0, len(blocks))

	for _, b := range blocks {
		if b.Kind == Image {
			out = append(out, b)
			continue
		}
		fp := Fingerprint(&b)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, b)
	}
	return out
}
