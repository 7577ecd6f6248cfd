package block

import (
	"strings"
	"testing"
)

func TestFromHTMLBuildsOrderedDocument(t *testing.T) {
	t.Parallel()

	body := `
<h1>Weekly Wrap</h1>
<p>Markets were <strong>volatile</strong> this week.</p>
<blockquote>Stay liquid.</blockquote>
<ul><li>First point</li><li>Second point</li></ul>
<ol><li>Step one</li><li>Step two</li></ol>
<p>Closing thoughts.</p>`

	blocks := FromHTML(body)
	wantKinds := []Kind{Heading1, Paragraph, Quote, BulletItem, BulletItem, NumberItem, NumberItem, Paragraph}
	if len(blocks) != len(wantKinds) {
		t.Fatalf("block count = %d, want %d; blocks = %+v", len(blocks), len(wantKinds), blocks)
	}
	for i, want := range wantKinds {
		if blocks[i].Kind != want {
			t.Fatalf("block[%d].Kind = %q, want %q", i, blocks[i].Kind, want)
		}
	}
	if got := blocks[3].Text(); got != "First point" {
		t.Fatalf("first bullet text = %q", got)
	}
}

func TestFromHTMLClampsHeadingLevels(t *testing.T) {
	t.Parallel()

	blocks := FromHTML("<h5>Deep heading</h5>")
	if len(blocks) != 1 {
		t.Fatalf("block count = %d, want 1", len(blocks))
	}
	if blocks[0].Kind != Heading3 {
		t.Fatalf("kind = %q, want %q", blocks[0].Kind, Heading3)
	}
}

func TestFromHTMLInterleavesImagesByOffset(t *testing.T) {
	t.Parallel()

	body := `<img src="https://cdn.example.com/top.png">` +
		`<p>First paragraph.</p>` +
		`<img src="https://cdn.example.com/middle.png">` +
		`<p>Second paragraph.</p>` +
		`<img src="https://cdn.example.com/bottom.png">`

	blocks := FromHTML(body)
	wantKinds := []Kind{Image, Paragraph, Image, Paragraph, Image}
	if len(blocks) != len(wantKinds) {
		t.Fatalf("block count = %d, want %d; blocks = %+v", len(blocks), len(wantKinds), blocks)
	}
	for i, want := range wantKinds {
		if blocks[i].Kind != want {
			t.Fatalf("block[%d].Kind = %q, want %q", i, blocks[i].Kind, want)
		}
	}
	if blocks[0].ImageURL != "https://cdn.example.com/top.png" {
		t.Fatalf("first image URL = %q", blocks[0].ImageURL)
	}
	if blocks[4].ImageURL != "https://cdn.example.com/bottom.png" {
		t.Fatalf("trailing image URL = %q", blocks[4].ImageURL)
	}
}

func TestFromHTMLDefersInSpanImagesToNextBoundary(t *testing.T) {
	t.Parallel()

	body := `<p>Before <img src="https://cdn.example.com/inline.png"> after.</p><p>Next.</p>`

	blocks := FromHTML(body)
	count := 0
	imageIdx := -1
	for i, b := range blocks {
		if b.Kind == Image {
			count++
			imageIdx = i
		}
	}
	if count != 1 {
		t.Fatalf("image appears %d times, want exactly once; blocks = %+v", count, blocks)
	}
	if imageIdx != 1 {
		t.Fatalf("in-span image at index %d, want 1 (after its enclosing paragraph)", imageIdx)
	}
}

func TestFromHTMLExcludesTrackingImages(t *testing.T) {
	t.Parallel()

	body := `<img src="https://email.example.com/o/tracking-open.gif">` +
		`<img src="https://cdn.example.com/spacer.gif">` +
		`<img src="https://cdn.example.com/real-photo.jpg">` +
		`<p>Body.</p>`

	blocks := FromHTML(body)
	if len(blocks) != 2 {
		t.Fatalf("block count = %d, want 2; blocks = %+v", len(blocks), blocks)
	}
	if blocks[0].Kind != Image || blocks[0].ImageURL != "https://cdn.example.com/real-photo.jpg" {
		t.Fatalf("surviving image = %+v", blocks[0])
	}
}

func TestFromHTMLStripsBoilerplate(t *testing.T) {
	t.Parallel()

	body := `<style>p { color: red }</style>` +
		`<script>track()</script>` +
		`<div class="preview">Preview teaser text</div>` +
		`<p>Real content.</p>` +
		`<div class="email-footer">Manage preferences</div>` +
		`<p>Unsubscribe from this list at any time.</p>`

	blocks := FromHTML(body)
	for _, b := range blocks {
		text := b.Text()
		if strings.Contains(text, "Preview teaser") || strings.Contains(text, "color: red") ||
			strings.Contains(text, "track()") || strings.Contains(text, "Manage preferences") ||
			strings.Contains(text, "Unsubscribe") {
			t.Fatalf("boilerplate leaked into blocks: %q", text)
		}
	}
	if len(blocks) != 1 || blocks[0].Text() != "Real content." {
		t.Fatalf("blocks = %+v, want single real paragraph", blocks)
	}
}

func TestFromHTMLDropsEmptyBlocks(t *testing.T) {
	t.Parallel()

	blocks := FromHTML("<p>   </p><p>&nbsp;</p><ul><li>  </li></ul><p>kept</p>")
	if len(blocks) != 1 {
		t.Fatalf("block count = %d, want 1; blocks = %+v", len(blocks), blocks)
	}
	if blocks[0].Text() != "kept" {
		t.Fatalf("text = %q", blocks[0].Text())
	}
}

func TestFromHTMLDecodesQuotedPrintable(t *testing.T) {
	t.Parallel()

	body := "<p>Margin =3D 42% this qu=\r\narter.</p>"
	blocks := FromHTML(body)
	if len(blocks) != 1 {
		t.Fatalf("block count = %d, want 1", len(blocks))
	}
	if got := blocks[0].Text(); got != "Margin = 42% this quarter." {
		t.Fatalf("text = %q", got)
	}
}

func TestFromHTMLRewritesImageCDNURLs(t *testing.T) {
	t.Parallel()

	body := `<img src="https://media.beehiiv.com/cdn-cgi/image/quality=80/uploads/chart.png"><p>x</p>`
	blocks := FromHTML(body)
	if len(blocks) != 2 {
		t.Fatalf("block count = %d, want 2", len(blocks))
	}
	if blocks[0].ImageURL != "https://media.beehiiv.com/uploads/chart.png" {
		t.Fatalf("image URL = %q", blocks[0].ImageURL)
	}
}

func TestFromHTMLEmptyBody(t *testing.T) {
	t.Parallel()

	if blocks := FromHTML(""); blocks != nil {
		t.Fatalf("blocks = %+v, want nil", blocks)
	}
}
