// Package translate selects translatable blocks, packs their text into
// size-bounded batches for an external translation oracle, and merges the
// recovered translations back onto the originating blocks.
//
// The oracle is a free-form text channel: its response carries zero or more
// "[Pk] text" markers with no ordering or completeness guarantee. Units the
// response fails to cover stay untranslated; a failed batch degrades to
// untranslated for all its units and never aborts later batches.
package translate

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"notionsync/internal/block"
)

// Oracle sends one batch of texts for translation and returns the raw
// response. It is injected so the batcher can be tested without a network.
type Oracle func(ctx context.Context, texts []string) (string, error)

// Options bound batch sizes and eligibility thresholds.
type Options struct {
	MaxBatchChars int           // close a batch once its running rune count exceeds this
	MaxBatchUnits int           // or once it holds this many units
	MinTextLen    int           // minimum trimmed length for body blocks
	MinHeadingLen int           // minimum trimmed length for headings
	CJKThreshold  float64       // skip blocks whose CJK-ideograph ratio exceeds this
	Delay         time.Duration // pause between successive oracle calls
}

func DefaultOptions() Options {
	return Options{
		MaxBatchChars: 6000,
		MaxBatchUnits: 80,
		MinTextLen:    20,
		MinHeadingLen: 5,
		CJKThreshold:  0.3,
		Delay:         300 * time.Millisecond,
	}
}

const maxTranslationLength = 1900

var (
	markerPattern     = regexp.MustCompile(`\[P(\d+)\]`)
	tickerLinePattern = regexp.MustCompile(`^\$?[A-Z]{2,5}\s+[+-]?\d`)
)

// Eligible reports whether a block's text qualifies for translation.
func Eligible(b *block.Block, opts Options) bool {
	if !b.Kind.Translatable() {
		return false
	}

	text := strings.TrimSpace(b.Text())
	if text == "" {
		return false
	}

	min := opts.MinTextLen
	if b.Kind.IsHeading() {
		min = opts.MinHeadingLen
	}
	if utf8.RuneCountInString(text) < min {
		return false
	}

	if cjkRatio(text) > opts.CJKThreshold {
		return false
	}

	// Ticker tables and stat rows inside lists are data, not prose.
	if b.Kind.IsList() && isNumericLine(text) {
		return false
	}

	return true
}

func cjkRatio(text string) float64 {
	total, cjk := 0, 0
	for _, r := range text {
		total++
		if r >= 0x4e00 && r <= 0x9fff {
			cjk++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(cjk) / float64(total)
}

func isNumericLine(text string) bool {
	if tickerLinePattern.MatchString(text) {
		return true
	}

	total, numeric := 0, 0
	for _, r := range text {
		total++
		if (r >= '0' && r <= '9') || strings.ContainsRune("$%+-.,", r) {
			numeric++
		}
	}
	return total > 0 && float64(numeric)/float64(total) > 0.3
}

type unit struct {
	blockIndex int
	text       string
}

// pack greedily partitions units into batches in document order. A unit is
// never split across batches; the unit that pushes the running rune count
// over budget closes its own batch.
func pack(units []unit, opts Options) [][]unit {
	var (
		batches [][]unit
		current []unit
		chars   int
	)

	for _, u := range units {
		current = append(current, u)
		chars += utf8.RuneCountInString(u.text)
		if chars > opts.MaxBatchChars || len(current) >= opts.MaxBatchUnits {
			batches = append(batches, current)
			current = nil
			chars = 0
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// ParseResponse recovers per-unit translations from an oracle response for a
// batch of n units. Markers outside 1..n, duplicated markers, and units the
// response never mentions all resolve to "" (no translation available).
func ParseResponse(resp string, n int) []string {
	out := make([]string, n)
	if n == 0 || resp == "" {
		return out
	}

	locs := markerPattern.FindAllStringSubmatchIndex(resp, -1)
	counts := make(map[int]int, len(locs))
	for i, loc := range locs {
		k, err := strconv.Atoi(resp[loc[2]:loc[3]])
		if err != nil || k < 1 || k > n {
			continue
		}
		counts[k]++

		end := len(resp)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out[k-1] = strings.TrimSpace(resp[loc[1]:end])
	}

	for k, c := range counts {
		if c > 1 {
			out[k-1] = ""
		}
	}
	return out
}

// Apply translates every eligible block in place, appending a newline run
// and an italicized translated run to each block the oracle covered. Blocks
// with no recovered translation keep their original runs untouched.
func Apply(ctx context.Context, blocks []block.Block, oracle Oracle, opts Options, progress io.Writer) {
	if oracle == nil || len(blocks) == 0 {
		return
	}
	if progress == nil {
		progress = io.Discard
	}

	var units []unit
	for i := range blocks {
		if Eligible(&blocks[i], opts) {
			units = append(units, unit{blockIndex: i, text: blocks[i].Text()})
		}
	}
	if len(units) == 0 {
		return
	}

	batches := pack(units, opts)
	_, _ = fmt.Fprintf(progress, "translating %d blocks in %d batches\n", len(units), len(batches))

	for i, batch := range batches {
		if i > 0 && opts.Delay > 0 {
			select {
			case <-time.After(opts.Delay):
			case <-ctx.Done():
				return
			}
		}

		texts := make([]string, len(batch))
		for j, u := range batch {
			texts[j] = u.text
		}

		resp, err := oracle(ctx, texts)
		if err != nil {
			_, _ = fmt.Fprintf(progress, "translation batch %d/%d failed: %v\n", i+1, len(batches), err)
			continue
		}

		for j, translated := range ParseResponse(resp, len(batch)) {
			if translated == "" {
				continue
			}
			appendTranslation(&blocks[batch[j].blockIndex], translated)
		}
	}
}

func appendTranslation(b *block.Block, translated string) {
	if r := []rune(translated); len(r) > maxTranslationLength {
		translated = string(r[:maxTranslationLength])
	}
	b.Runs = append(b.Runs,
		block.Run{Text: "\n"},
		block.Run{
			Text:        translated,
			Annotations: block.Annotations{Italic: true, Color: "gray"},
		},
	)
}
