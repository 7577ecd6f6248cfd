// Package block converts raw newsletter HTML into an ordered block document:
// headings, paragraphs, quotes, list items, and images, each non-image block
// holding a sequence of annotated text runs.
package block

import "strings"

// Kind identifies a block variant. The values double as the block-store type
// names so the document can be encoded without a mapping table.
type Kind string

const (
	Heading1   Kind = "heading_1"
	Heading2   Kind = "heading_2"
	Heading3   Kind = "heading_3"
	Paragraph  Kind = "paragraph"
	Quote      Kind = "quote"
	BulletItem Kind = "bulleted_list_item"
	NumberItem Kind = "numbered_list_item"
	Image      Kind = "image"
)

// Translatable reports whether blocks of this kind carry prose that the
// translation batcher may consider.
func (k Kind) Translatable() bool {
	switch k {
	case Heading1, Heading2, Heading3, Paragraph, Quote, BulletItem, NumberItem:
		return true
	}
	return false
}

// IsHeading reports whether the kind is one of the three heading levels.
func (k Kind) IsHeading() bool {
	return k == Heading1 || k == Heading2 || k == Heading3
}

// IsList reports whether the kind is a list item.
func (k Kind) IsList() bool {
	return k == BulletItem || k == NumberItem
}

// Annotations is the formatting state attached to a single run.
type Annotations struct {
	Bold      bool
	Italic    bool
	Underline bool
	Code      bool
	Color     string // "" means default
}

// Run is a maximal span of text sharing one annotation state. Link is empty
// or an already-validated URL.
type Run struct {
	Text        string
	Link        string
	Annotations Annotations
}

// Block is one structural unit of the output document. Image blocks carry
// ImageURL and no runs; every other kind carries at least one run.
type Block struct {
	Kind     Kind
	Runs     []Run
	ImageURL string
}

// Text returns the concatenated run text of the block.
func (b *Block) Text() string {
	if len(b.Runs) == 1 {
		return b.Runs[0].Text
	}
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func headingKind(level int) Kind {
	if level > 3 {
		level = 3
	}
	switch level {
	case 1:
		return Heading1
	case 2:
		return Heading2
	}
	return Heading3
}
