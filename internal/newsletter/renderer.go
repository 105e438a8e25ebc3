// Package newsletter renders the publish batch as an HTML email with inline
// styles and a plain-text alternative.
package newsletter

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/newsletter.html.tmpl
var templateFS embed.FS

// Story is one resolved story section of the email.
type Story struct {
	Headline string
	Article  string
	ImageURL string
}

// Email is the resolved Markdown content of a newsletter.
type Email struct {
	Subject    string
	Intro      string
	Conclusion string
	Stories    []Story
}

// Output is the rendered email.
type Output struct {
	HTML string
	Text string
}

// inlineStyles is applied element by element; email clients drop <style>.
var inlineStyles = []struct {
	selector string
	style    string
}{
	{"body", "margin:0;padding:0;background-color:#f6f6f6;"},
	{"div.container", "max-width:600px;margin:0 auto;padding:24px;background-color:#ffffff;font-family:Helvetica,Arial,sans-serif;color:#1d1c1d;line-height:1.5;"},
	{"h1", "font-size:26px;margin:16px 0 8px;"},
	{"h2", "font-size:22px;margin:16px 0 8px;"},
	{"h3, h4, h5, h6", "font-size:18px;margin:12px 0 6px;"},
	{"p", "font-size:16px;margin:0 0 12px;"},
	{"a", "color:#1264a3;text-decoration:underline;"},
	{"blockquote", "margin:0 0 12px;padding-left:12px;border-left:4px solid #dddddd;color:#555555;"},
	{"code", "font-family:Menlo,Consolas,monospace;font-size:14px;background-color:#f2f2f2;padding:1px 4px;"},
	{"pre", "background-color:#f2f2f2;padding:12px;overflow:auto;"},
	{"ul, ol", "margin:0 0 12px;padding-left:24px;"},
	{"img", "max-width:100%;height:auto;"},
	{"hr", "border:none;border-top:1px solid #e5e5e5;margin:24px 0;"},
}

type templateStory struct {
	Headline template.HTML
	Article  template.HTML
	ImageURL string
}

type templateData struct {
	Subject    string
	Intro      template.HTML
	Conclusion template.HTML
	Stories    []templateStory
}

// Renderer converts resolved Markdown into the newsletter email. It is safe
// for concurrent use.
type Renderer struct {
	markdown  goldmark.Markdown
	layout    *template.Template
	converter *md.Converter
}

// NewRenderer parses the embedded layout.
func NewRenderer() (*Renderer, error) {
	layout, err := template.ParseFS(templateFS, "templates/newsletter.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse newsletter template: %w", err)
	}

	return &Renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		),
		layout:    layout,
		converter: md.NewConverter("", true, nil),
	}, nil
}

// Render produces the HTML email and its plain-text rendition.
func (r *Renderer) Render(email Email) (Output, error) {
	data := templateData{Subject: email.Subject}

	var err error
	if data.Intro, err = r.toHTML(email.Intro); err != nil {
		return Output{}, fmt.Errorf("convert intro: %w", err)
	}
	if data.Conclusion, err = r.toHTML(email.Conclusion); err != nil {
		return Output{}, fmt.Errorf("convert conclusion: %w", err)
	}
	for i, story := range email.Stories {
		article, err := r.toHTML(story.Article)
		if err != nil {
			return Output{}, fmt.Errorf("convert story %d: %w", i, err)
		}
		data.Stories = append(data.Stories, templateStory{
			Headline: r.inline(story.Headline),
			Article:  article,
			ImageURL: story.ImageURL,
		})
	}

	var buf bytes.Buffer
	if err := r.layout.Execute(&buf, data); err != nil {
		return Output{}, fmt.Errorf("execute newsletter template: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return Output{}, fmt.Errorf("parse newsletter html: %w", err)
	}
	applyInlineStyles(doc)

	html, err := doc.Html()
	if err != nil {
		return Output{}, fmt.Errorf("serialize newsletter html: %w", err)
	}

	body, err := doc.Find("div.container").Html()
	if err != nil {
		return Output{}, fmt.Errorf("serialize newsletter body: %w", err)
	}
	text, err := r.converter.ConvertString(body)
	if err != nil {
		return Output{}, fmt.Errorf("convert newsletter text: %w", err)
	}

	return Output{HTML: html, Text: strings.TrimSpace(text)}, nil
}

func (r *Renderer) toHTML(markdown string) (template.HTML, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// inline renders a single-line field without the wrapping paragraph.
func (r *Renderer) inline(markdown string) template.HTML {
	out, err := r.toHTML(markdown)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(markdown))
	}
	s := strings.TrimSpace(string(out))
	if strings.HasPrefix(s, "<p>") && strings.HasSuffix(s, "</p>") && strings.Count(s, "<p>") == 1 {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "<p>"), "</p>")
	}
	return template.HTML(s)
}

func applyInlineStyles(doc *goquery.Document) {
	for _, rule := range inlineStyles {
		doc.Find(rule.selector).Each(func(_ int, sel *goquery.Selection) {
			style := rule.style
			if existing, ok := sel.Attr("style"); ok && existing != "" {
				style += existing
			}
			sel.SetAttr("style", style)
		})
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		sel.SetAttr("target", "_blank")
		sel.SetAttr("rel", "noopener noreferrer")
	})
}
