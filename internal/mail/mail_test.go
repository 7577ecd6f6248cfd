package mail

import (
	"regexp"
	"testing"
	"time"
)

func TestSenderTag(t *testing.T) {
	t.Parallel()

	sources := map[string]string{
		"semianalysis@substack.com": "SemiAnalysis",
		"citrini@substack.com":      "Citrini",
	}

	cases := []struct {
		name string
		from string
		want string
	}{
		{"mapped bare address", "semianalysis@substack.com", "SemiAnalysis"},
		{"mapped display name form", "SemiAnalysis <SemiAnalysis@Substack.com>", "SemiAnalysis"},
		{"unmapped falls back to local part", "Some Writer <newsletter@example.com>", "newsletter"},
		{"plus suffix stripped", "reader+tag@example.com", "reader"},
		{"empty", "", "unknown"},
		{"no at sign", "not-an-address", "unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := SenderTag(tc.from, sources); got != tc.want {
				t.Fatalf("SenderTag(%q) = %q, want %q", tc.from, got, tc.want)
			}
		})
	}
}

func TestFingerprintUsesDateOnly(t *testing.T) {
	t.Parallel()

	morning := Fingerprint("Weekly Wrap", "Citrini", "2026-08-24T08:00")
	evening := Fingerprint("Weekly Wrap", "Citrini", "2026-08-24T21:30")
	if morning != evening {
		t.Fatalf("same-day fingerprints differ: %q vs %q", morning, evening)
	}

	nextDay := Fingerprint("Weekly Wrap", "Citrini", "2026-08-25T08:00")
	if morning == nextDay {
		t.Fatalf("different-day fingerprints collide: %q", morning)
	}

	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(morning) {
		t.Fatalf("fingerprint format = %q, want 16 hex chars", morning)
	}
}

func TestFingerprintDistinguishesSubjectAndSender(t *testing.T) {
	t.Parallel()

	base := Fingerprint("Weekly Wrap", "Citrini", "2026-08-24")
	if base == Fingerprint("Daily Note", "Citrini", "2026-08-24") {
		t.Fatal("subject not part of fingerprint")
	}
	if base == Fingerprint("Weekly Wrap", "SemiAnalysis", "2026-08-24") {
		t.Fatal("sender not part of fingerprint")
	}
}

func TestArticleURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want string
	}{
		{
			"view in browser",
			"View in browser (https://example.substack.com/p/weekly-wrap?utm=email)\nbody",
			"https://example.substack.com/p/weekly-wrap",
		},
		{
			"x-newsletter header",
			"x-newsletter: https://newsletter.example.com/p/the-post\n",
			"https://newsletter.example.com/p/the-post",
		},
		{
			"view this post on the web",
			`View this post on the web at https://example.substack.com/p/deep-dive`,
			"https://example.substack.com/p/deep-dive",
		},
		{
			"bare substack link",
			"read more at https://semianalysis.substack.com/p/gpu-economics today",
			"https://semianalysis.substack.com/p/gpu-economics",
		},
		{
			"no url",
			"plain text with no links",
			"",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ArticleURL(tc.text); got != tc.want {
				t.Fatalf("ArticleURL() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsWelcome(t *testing.T) {
	t.Parallel()

	if !IsWelcome("Welcome to SemiAnalysis!") {
		t.Fatal("welcome subject not detected")
	}
	if !IsWelcome("welcome to the newsletter") {
		t.Fatal("case-insensitive welcome not detected")
	}
	if IsWelcome("A warm welcome to new subscribers") {
		t.Fatal("mid-subject welcome misclassified")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	if got := Classify("New thread from Citrini", ""); got != TypeChat {
		t.Fatalf("Classify(thread subject) = %q, want chat", got)
	}
	if got := Classify("Weekly Wrap", "https://example.substack.com/chat/1234"); got != TypeChat {
		t.Fatalf("Classify(chat url) = %q, want chat", got)
	}
	if got := Classify("Weekly Wrap", "https://example.substack.com/p/weekly-wrap"); got != TypeArticle {
		t.Fatalf("Classify(article) = %q, want article", got)
	}
}

func TestEventTime(t *testing.T) {
	t.Parallel()

	fallback := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fallback }

	m := &Message{InternalDate: "1756000000000", DateHeader: "Mon, 24 Aug 2026 08:00:00 +0000"}
	if got := m.EventTime(now); got.UnixMilli() != 1756000000000 {
		t.Fatalf("EventTime preferred header over internal date: %v", got)
	}

	m = &Message{DateHeader: "Mon, 24 Aug 2026 08:00:00 +0000"}
	got := m.EventTime(now)
	if got.UTC().Hour() != 8 || got.UTC().Day() != 24 {
		t.Fatalf("EventTime from header = %v", got)
	}

	m = &Message{InternalDate: "not-a-number", DateHeader: "garbage"}
	if got := m.EventTime(now); !got.Equal(fallback) {
		t.Fatalf("EventTime fallback = %v, want %v", got, fallback)
	}
}
