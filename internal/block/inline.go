package block

import (
	"html"
	"regexp"
	"strings"

	"notionsync/internal/urlcheck"
)

const maxRunLength = 2000

var (
	brPattern   = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
	tagName     = regexp.MustCompile(`^</?([a-zA-Z][a-zA-Z0-9]*)`)
	hrefPattern = regexp.MustCompile(`(?i)href=["']([^"']+)["']`)
)

// invisible formatting characters stripped from every flushed run:
// soft hyphen, zero-width space/non-joiner/joiner, word joiner, BOM, CGJ.
func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u00ad', '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff', '\u034f':
			return -1
		}
		return r
	}, s)
}

type token struct {
	tag  bool
	text string
}

// tokenize splits an HTML fragment into an ordered stream of tag and text
// tokens, preserving every byte of the input.
func tokenize(fragment string) []token {
	var tokens []token
	last := 0
	for _, loc := range tagPattern.FindAllStringIndex(fragment, -1) {
		if loc[0] > last {
			tokens = append(tokens, token{text: fragment[last:loc[0]]})
		}
		tokens = append(tokens, token{tag: true, text: fragment[loc[0]:loc[1]]})
		last = loc[1]
	}
	if last < len(fragment) {
		tokens = append(tokens, token{text: fragment[last:]})
	}
	return tokens
}

type inlineState struct {
	bold      bool
	italic    bool
	underline bool
	code      bool
	inLink    bool
	link      string
}

// ParseRuns converts the inner HTML of one block-level element into ordered
// annotated runs. Formatting flags toggle on the bounded inline vocabulary;
// every toggle flushes the text accumulated so far under the pre-toggle state,
// so a run's annotations are uniform across its whole span. Unbalanced markup
// is tolerated: a close tag only acts when its flag is currently set.
func ParseRuns(fragment string) []Run {
	if fragment == "" {
		return nil
	}

	fragment = brPattern.ReplaceAllString(fragment, "\n")

	var (
		runs    []Run
		pending strings.Builder
		state   inlineState
	)

	flush := func() {
		if pending.Len() == 0 {
			return
		}
		text := stripInvisible(html.UnescapeString(pending.String()))
		pending.Reset()
		if text == "" {
			return
		}
		if r := []rune(text); len(r) > maxRunLength {
			text = string(r[:maxRunLength])
		}
		run := Run{
			Text: text,
			Annotations: Annotations{
				Bold:      state.bold,
				Italic:    state.italic,
				Underline: state.underline,
				Code:      state.code,
			},
		}
		if state.inLink && state.link != "" {
			run.Link = state.link
		}
		runs = append(runs, run)
	}

	for _, tok := range tokenize(fragment) {
		if !tok.tag {
			pending.WriteString(tok.text)
			continue
		}

		m := tagName.FindStringSubmatch(tok.text)
		if m == nil {
			continue
		}
		name := strings.ToLower(m[1])
		closing := strings.HasPrefix(tok.text, "</")

		switch name {
		case "strong", "b":
			if closing == state.bold {
				flush()
				state.bold = !closing
			}
		case "em", "i":
			if closing == state.italic {
				flush()
				state.italic = !closing
			}
		case "u":
			if closing == state.underline {
				flush()
				state.underline = !closing
			}
		case "code":
			if closing == state.code {
				flush()
				state.code = !closing
			}
		case "a":
			if closing {
				if state.inLink {
					flush()
					state.inLink = false
					state.link = ""
				}
				continue
			}
			flush()
			state.inLink = true
			state.link = ""
			if href := hrefPattern.FindStringSubmatch(tok.text); href != nil {
				if validated, ok := urlcheck.Validate(href[1]); ok {
					state.link = validated
				}
			}
		}
	}
	flush()

	// Whitespace-only runs never survive parsing.
	kept := runs[:0]
	for _, r := range runs {
		if strings.TrimSpace(r.Text) != "" {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
