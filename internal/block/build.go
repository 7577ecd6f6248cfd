package block

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	headingPattern  = regexp.MustCompile(`(?is)^<h([1-6])[^>]*>(.*)</h[1-6]>$`)
	quotePattern    = regexp.MustCompile(`(?is)^<blockquote[^>]*>(.*)</blockquote>$`)
	listItemPattern = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
)

// buildBlocks maps one matched block-level element to its block variants.
// Lists explode into one block per <li>. Elements whose inline content yields
// no runs produce no block at all.
func buildBlocks(element string) []Block {
	lower := strings.ToLower(element)

	switch {
	case strings.HasPrefix(lower, "<h"):
		m := headingPattern.FindStringSubmatch(element)
		if m == nil {
			return nil
		}
		level, _ := strconv.Atoi(m[1])
		runs := ParseRuns(m[2])
		if len(runs) == 0 {
			return nil
		}
		return []Block{{Kind: headingKind(level), Runs: runs}}

	case strings.HasPrefix(lower, "<blockquote"):
		m := quotePattern.FindStringSubmatch(element)
		if m == nil {
			return nil
		}
		runs := ParseRuns(m[1])
		if len(runs) == 0 {
			return nil
		}
		return []Block{{Kind: Quote, Runs: runs}}

	case strings.HasPrefix(lower, "<ul"):
		return listBlocks(element, BulletItem)

	case strings.HasPrefix(lower, "<ol"):
		return listBlocks(element, NumberItem)

	default:
		runs := ParseRuns(element)
		if len(runs) == 0 {
			return nil
		}
		return []Block{{Kind: Paragraph, Runs: runs}}
	}
}

func listBlocks(element string, kind Kind) []Block {
	var blocks []Block
	for _, m := range listItemPattern.FindAllStringSubmatch(element, -1) {
		runs := ParseRuns(m[1])
		if len(runs) == 0 {
			continue
		}
		blocks = append(blocks, Block{Kind: kind, Runs: runs})
	}
	return blocks
}
