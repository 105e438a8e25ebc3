package newsletter

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestRenderNewsletter(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	out, err := renderer.Render(Email{
		Subject: "Weekly <digest>",
		Intro:   "Hello **readers**, see [the site](https://example.org).",
		Stories: []Story{
			{Headline: "Robots win", Article: "Thanks Alex for ~~nothing~~ everything.", ImageURL: "https://example.org/robot.png"},
			{Headline: "Second _story_", Article: "> quoted\n\n- one\n- two"},
		},
		Conclusion: "Bye, unresolved <@U9> stays text.",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out.HTML))
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}

	if got := doc.Find("title").Text(); got != "Weekly <digest>" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := doc.Find("div.story").Length(); got != 2 {
		t.Fatalf("expected 2 story sections, got %d", got)
	}
	if got := doc.Find("div.story h2").First().Text(); got != "Robots win" {
		t.Fatalf("unexpected first headline %q", got)
	}
	if doc.Find("div.story h2 em").Length() != 1 {
		t.Fatal("expected inline markdown in headline")
	}
	if doc.Find("del").Length() != 1 {
		t.Fatal("expected strikethrough to be rendered")
	}
	if doc.Find("blockquote").Length() != 1 || doc.Find("li").Length() != 2 {
		t.Fatal("expected quote and list in second story")
	}

	link := doc.Find("a[href='https://example.org']")
	if link.Length() != 1 {
		t.Fatalf("expected intro link, html: %s", out.HTML)
	}
	if target, _ := link.Attr("target"); target != "_blank" {
		t.Fatalf("expected target=_blank, got %q", target)
	}
	if style, _ := link.Attr("style"); !strings.Contains(style, "color:#1264a3") {
		t.Fatalf("expected inline link style, got %q", style)
	}
	if style, _ := doc.Find("p").First().Attr("style"); !strings.Contains(style, "font-size:16px") {
		t.Fatalf("expected inline paragraph style, got %q", style)
	}
	if src, _ := doc.Find("img").Attr("src"); src != "https://example.org/robot.png" {
		t.Fatalf("unexpected image src %q", src)
	}

	if !strings.Contains(doc.Find("div.conclusion").Text(), "<@U9>") {
		t.Fatalf("expected unresolved token kept as text, got %q", doc.Find("div.conclusion").Text())
	}

	if !strings.Contains(out.Text, "Robots win") || !strings.Contains(out.Text, "**readers**") {
		t.Fatalf("unexpected plain text rendition:\n%s", out.Text)
	}
	if strings.Contains(out.Text, "<div") {
		t.Fatalf("plain text still contains markup:\n%s", out.Text)
	}
}

func TestRenderEmptySections(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	out, err := renderer.Render(Email{Subject: "s", Stories: []Story{{Headline: "Only"}}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out.HTML))
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if doc.Find("div.intro").Length() != 0 || doc.Find("div.conclusion").Length() != 0 {
		t.Fatal("expected empty intro and conclusion to be omitted")
	}
}

func TestRenderIntrawordEmphasis(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := renderer.Render(Email{Subject: "Weekly", Intro: "*foo*bar and ***both***"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out.HTML))
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if got := doc.Find("div.intro em").First().Text(); got != "foo" {
		t.Fatalf("expected emphasis on foo, got %q", got)
	}
	if doc.Find("div.intro strong").Length() != 1 {
		t.Fatal("expected bold italic run to keep its strong element")
	}
}
