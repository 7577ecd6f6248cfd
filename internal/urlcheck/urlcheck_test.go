package urlcheck

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "https passthrough", in: "https://example.com/post", want: "https://example.com/post", ok: true},
		{name: "http passthrough", in: "http://example.com", want: "http://example.com", ok: true},
		{name: "mailto passthrough", in: "mailto:editor@example.com", want: "mailto:editor@example.com", ok: true},
		{name: "protocol relative", in: "//cdn.example.com/a.png", want: "https://cdn.example.com/a.png", ok: true},
		{name: "bare domain", in: "example.com/page", want: "https://example.com/page", ok: true},
		{name: "soft line break removed", in: "https://exam=\nple.com/x", want: "https://example.com/x", ok: true},
		{name: "embedded whitespace removed", in: "https://example.com/a b", want: "https://example.com/ab", ok: true},
		{name: "empty", in: "", ok: false},
		{name: "whitespace only", in: "   ", ok: false},
		{name: "relative path", in: "/relative/path", ok: false},
		{name: "javascript scheme", in: "javascript:alert(1)", ok: false},
		{name: "scheme without host shape", in: "https://%%%", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Validate(tt.in)
			if ok != tt.ok {
				t.Fatalf("Validate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("Validate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateCapsLength(t *testing.T) {
	t.Parallel()

	long := "https://example.com/" + strings.Repeat("a", 3000)
	got, ok := Validate(long)
	if !ok {
		t.Fatalf("Validate() ok = false, want true")
	}
	if len(got) != 2000 {
		t.Fatalf("len = %d, want 2000", len(got))
	}
}

func TestRewriteImage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "beehiiv proxy segment stripped",
			in:   "https://media.beehiiv.com/cdn-cgi/image/fit=scale-down,format=auto/uploads/asset/file/abc.png?t=1",
			want: "https://media.beehiiv.com/uploads/asset/file/abc.png",
		},
		{
			name: "stratechery wp proxy unwrapped",
			in:   "https://i0.wp.com/stratechery.com/wp-content/chart.png?resize=600",
			want: "https://stratechery.com/wp-content/chart.png",
		},
		{
			name: "plain url untouched",
			in:   "https://substackcdn.com/image/fetch/photo.jpeg",
			want: "https://substackcdn.com/image/fetch/photo.jpeg",
		},
		{name: "empty untouched", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RewriteImage(tt.in); got != tt.want {
				t.Fatalf("RewriteImage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripQuery(t *testing.T) {
	t.Parallel()

	if got := StripQuery("https://example.com/p/post?utm=1"); got != "https://example.com/p/post" {
		t.Fatalf("StripQuery() = %q", got)
	}
	if got := StripQuery("https://example.com/p/post"); got != "https://example.com/p/post" {
		t.Fatalf("StripQuery() without query = %q", got)
	}
}
