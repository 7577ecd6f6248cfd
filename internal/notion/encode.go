package notion

import (
	"strings"

	"notionsync/internal/block"
	"notionsync/internal/urlcheck"
)

const maxTitleLength = 200

// EncodeBlocks converts parsed document blocks into the API's block payloads,
// preserving order.
func EncodeBlocks(blocks []block.Block) []map[string]any {
	out := make([]map[string]any, 0, len(blocks))
	for i := range blocks {
		if encoded := encodeBlock(&blocks[i]); encoded != nil {
			out = append(out, encoded)
		}
	}
	return out
}

func encodeBlock(b *block.Block) map[string]any {
	if b.Kind == block.Image {
		if b.ImageURL == "" {
			return nil
		}
		return map[string]any{
			"object": "block",
			"type":   string(block.Image),
			"image": map[string]any{
				"type":     "external",
				"external": map[string]any{"url": b.ImageURL},
			},
		}
	}

	rich := encodeRuns(b.Runs)
	if len(rich) == 0 {
		return nil
	}
	return map[string]any{
		"object":       "block",
		"type":         string(b.Kind),
		string(b.Kind): map[string]any{"rich_text": rich},
	}
}

func encodeRuns(runs []block.Run) []map[string]any {
	out := make([]map[string]any, 0, len(runs))
	for _, r := range runs {
		if r.Text == "" {
			continue
		}

		text := map[string]any{"content": r.Text}
		if r.Link != "" {
			text["link"] = map[string]any{"url": r.Link}
		}

		rt := map[string]any{
			"type": "text",
			"text": text,
		}
		if ann := encodeAnnotations(r.Annotations); ann != nil {
			rt["annotations"] = ann
		}
		out = append(out, rt)
	}
	return out
}

func encodeAnnotations(a block.Annotations) map[string]any {
	if !a.Bold && !a.Italic && !a.Underline && !a.Code && a.Color == "" {
		return nil
	}

	ann := map[string]any{}
	if a.Bold {
		ann["bold"] = true
	}
	if a.Italic {
		ann["italic"] = true
	}
	if a.Underline {
		ann["underline"] = true
	}
	if a.Code {
		ann["code"] = true
	}
	if a.Color != "" {
		ann["color"] = a.Color
	}
	return ann
}

// SanitizeBlocks is the final defensive pass before upload: link URLs are
// revalidated or stripped, images without an http(s) URL are dropped, and
// text blocks whose rich text emptied out are dropped.
func SanitizeBlocks(blocks []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(blocks))

	for _, b := range blocks {
		kind, _ := b["type"].(string)

		if kind == string(block.Image) {
			if imageURL(b) != "" {
				out = append(out, b)
			}
			continue
		}

		payload, _ := b[kind].(map[string]any)
		rich, _ := payload["rich_text"].([]map[string]any)
		if rich == nil {
			// Round-tripped payloads decode as []any.
			if raw, ok := payload["rich_text"].([]any); ok {
				for _, item := range raw {
					if m, ok := item.(map[string]any); ok {
						rich = append(rich, m)
					}
				}
			}
		}

		kept := make([]map[string]any, 0, len(rich))
		for _, rt := range rich {
			sanitizeLink(rt)
			kept = append(kept, rt)
		}
		if len(kept) == 0 {
			continue
		}

		out = append(out, map[string]any{
			"object": "block",
			"type":   kind,
			kind:     map[string]any{"rich_text": kept},
		})
	}
	return out
}

func imageURL(b map[string]any) string {
	payload, _ := b["image"].(map[string]any)
	external, _ := payload["external"].(map[string]any)
	url, _ := external["url"].(string)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return ""
	}
	return url
}

func sanitizeLink(rt map[string]any) {
	text, _ := rt["text"].(map[string]any)
	if text == nil {
		return
	}
	link, _ := text["link"].(map[string]any)
	if link == nil {
		return
	}
	url, _ := link["url"].(string)

	if fixed, ok := urlcheck.Validate(url); ok {
		link["url"] = fixed
	} else {
		delete(text, "link")
	}
}

// Properties assembles the page property payload for one synced message.
type Properties struct {
	Title   string
	Date    string // ISO 8601, minute precision
	Sender  string
	Type    string
	URL     string
	Tickers []string
	Status  string // empty means no status property
}

func (p Properties) Encode() map[string]any {
	title := p.Title
	if r := []rune(title); len(r) > maxTitleLength {
		title = string(r[:maxTitleLength])
	}
	sender := p.Sender
	if r := []rune(sender); len(r) > 100 {
		sender = string(r[:100])
	}

	props := map[string]any{
		"Name": map[string]any{
			"title": []map[string]any{
				{"type": "text", "text": map[string]any{"content": title}},
			},
		},
		"Date": map[string]any{
			"date": map[string]any{"start": p.Date},
		},
		"发件人": map[string]any{
			"select": map[string]any{"name": sender},
		},
		"类型": map[string]any{
			"select": map[string]any{"name": p.Type},
		},
	}

	if p.URL != "" {
		if fixed, ok := urlcheck.Validate(p.URL); ok {
			props["URL"] = map[string]any{"url": fixed}
		}
	}

	if len(p.Tickers) > 0 {
		options := make([]map[string]any, 0, len(p.Tickers))
		for _, t := range p.Tickers {
			options = append(options, map[string]any{"name": t})
		}
		props["提及公司"] = map[string]any{"multi_select": options}
	}

	if p.Status != "" {
		props["状态"] = map[string]any{"select": map[string]any{"name": p.Status}}
	}

	return props
}
