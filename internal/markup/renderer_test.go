package markup

import (
	"testing"

	"Archimedes/internal/domain"
)

func TestRenderSpanStyles(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		span domain.Span
		want string
	}{
		{"plain", domain.Text("hello", domain.Style{}), "hello"},
		{"bold", domain.Text("hello", domain.Style{Bold: true}), "**hello**"},
		{"italic", domain.Text("hello", domain.Style{Italic: true}), "*hello*"},
		{"strike", domain.Text("hello", domain.Style{Strike: true}), "~~hello~~"},
		{"bold italic", domain.Text("hello", domain.Style{Bold: true, Italic: true}), "***hello***"},
		{"code wins", domain.Text("x := 1", domain.Style{Bold: true, Italic: true, Code: true}), "`x := 1`"},
		{"bold over strike", domain.Text("gone", domain.Style{Bold: true, Strike: true}), "**gone**"},
		{"code with backtick", domain.Text("a`b", domain.Style{Code: true}), "`` a`b ``"},
		{"whitespace outside markers", domain.Text(" hi ", domain.Style{Bold: true}), " **hi** "},
		{"whitespace only", domain.Text("  ", domain.Style{Italic: true}), "  "},
		{"link", domain.Link("docs", "https://example.org", domain.Style{}), "[docs](https://example.org)"},
		{"styled link", domain.Link("docs", "https://example.org", domain.Style{Bold: true}), "[**docs**](https://example.org)"},
		{"link without text", domain.Link("", "https://example.org", domain.Style{}), "[https://example.org](https://example.org)"},
		{"link without url", domain.Link("docs", "", domain.Style{Italic: true}), "*docs*"},
		{"user mention", domain.UserMention("U123"), "<@U123>"},
		{"channel mention", domain.ChannelMention("C42"), "<#C42>"},
		{"mention without id", domain.Span{Kind: domain.SpanMention, Text: "@someone", Mention: &domain.Mention{Type: domain.MentionUser}}, "@someone"},
		{"unknown kind", domain.Span{Kind: "emoji", Text: "wave"}, "wave"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := renderSpan(tc.span)
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRenderBlocks(t *testing.T) {
	t.Parallel()

	doc := domain.Document{Blocks: []domain.Block{
		{Kind: domain.BlockHeading, Level: 2, Spans: []domain.Span{domain.Text("Weekly", domain.Style{})}},
		domain.Paragraph(
			domain.Text("Thanks ", domain.Style{}),
			domain.UserMention("U1"),
			domain.Text(" for the scoop.", domain.Style{}),
		),
		{Kind: domain.BlockQuote, Spans: []domain.Span{domain.Text("line one\nline two", domain.Style{})}},
		{Kind: domain.BlockParagraph},
		{Kind: domain.BlockList, Ordered: true, Items: []domain.ListItem{
			{Spans: []domain.Span{domain.Text("first", domain.Style{})}},
			{Indent: 1, Spans: []domain.Span{domain.Text("nested", domain.Style{})}},
			{Indent: 1, Spans: []domain.Span{domain.Text("nested again", domain.Style{})}},
			{Spans: []domain.Span{domain.Text("second", domain.Style{})}},
			{Indent: 1, Spans: []domain.Span{domain.Text("restarted", domain.Style{})}},
		}},
		{Kind: domain.BlockList, Items: []domain.ListItem{
			{Spans: []domain.Span{domain.Text("bullet", domain.Style{Bold: true})}},
		}},
	}}

	want := "## Weekly\n\n" +
		"Thanks <@U1> for the scoop.\n\n" +
		"> line one\n> line two\n\n" +
		"1. first\n    1. nested\n    2. nested again\n2. second\n    1. restarted\n\n" +
		"- **bullet**"

	if got := Render(doc); got != want {
		t.Fatalf("unexpected markup:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderHeadingLevelClamp(t *testing.T) {
	t.Parallel()

	for level, want := range map[int]string{0: "# h", -3: "# h", 3: "### h", 9: "###### h"} {
		doc := domain.Document{Blocks: []domain.Block{{Kind: domain.BlockHeading, Level: level, Spans: []domain.Span{domain.Text("h", domain.Style{})}}}}
		if got := Render(doc); got != want {
			t.Fatalf("level %d: expected %q, got %q", level, want, got)
		}
	}
}

func TestRenderTotalAndDeterministic(t *testing.T) {
	t.Parallel()

	doc := domain.Document{Blocks: []domain.Block{
		{Kind: "table", Spans: []domain.Span{domain.Text("cell", domain.Style{})}},
		{Kind: domain.BlockHeading},
		{Kind: domain.BlockList},
		{Kind: domain.BlockParagraph, Spans: []domain.Span{{Kind: domain.SpanMention}}},
	}}

	first := Render(doc)
	if first != "cell" {
		t.Fatalf("expected unknown block as paragraph, got %q", first)
	}
	for i := 0; i < 5; i++ {
		if again := Render(doc); again != first {
			t.Fatalf("render is not deterministic: %q vs %q", first, again)
		}
	}

	if got := Render(domain.Document{}); got != "" {
		t.Fatalf("expected empty output for empty document, got %q", got)
	}
}

func TestRenderAdjacentStyledSpans(t *testing.T) {
	t.Parallel()

	bold := domain.Style{Bold: true}
	italic := domain.Style{Italic: true}
	cases := []struct {
		name  string
		spans []domain.Span
		want  string
	}{
		{"italic before word", []domain.Span{domain.Text("foo", italic), domain.Text("bar", domain.Style{})}, "*foo*bar"},
		{"same style merged", []domain.Span{domain.Text("a", bold), domain.Text("b", bold)}, "**ab**"},
		{"merged keeps outer whitespace", []domain.Span{domain.Text(" a", bold), domain.Text("b ", bold)}, " **ab** "},
		{"plain runs merged", []domain.Span{domain.Text("a", domain.Style{}), domain.Text("b", domain.Style{})}, "ab"},
		{"mention not merged", []domain.Span{domain.Text("hi ", domain.Style{}), domain.UserMention("U1"), domain.Text("!", domain.Style{})}, "hi <@U1>!"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Render(domain.Document{Blocks: []domain.Block{domain.Paragraph(tc.spans...)}}); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCoalesceLeavesInputUntouched(t *testing.T) {
	t.Parallel()

	spans := []domain.Span{domain.Text("a", domain.Style{}), domain.Text("b", domain.Style{})}
	_ = renderSpans(spans)
	if spans[0].Text != "a" || spans[1].Text != "b" {
		t.Fatalf("input spans mutated: %+v", spans)
	}
}
