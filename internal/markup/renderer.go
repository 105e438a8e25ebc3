// Package markup renders rich documents into GitHub-flavoured Markdown.
package markup

import (
	"strconv"
	"strings"
	"unicode"

	"Archimedes/internal/domain"
)

const (
	blockSeparator = "\n\n"
	listIndent     = "    "
	quotePrefix    = "> "
	maxHeading     = 6
)

// Render converts doc into markup. It never fails: unknown block kinds are
// treated as paragraphs and unknown span kinds as plain text.
func Render(doc domain.Document) string {
	parts := make([]string, 0, len(doc.Blocks))
	for _, block := range doc.Blocks {
		out := renderBlock(block)
		if strings.TrimSpace(out) == "" {
			continue
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, blockSeparator)
}

func renderBlock(block domain.Block) string {
	switch block.Kind {
	case domain.BlockHeading:
		text := renderSpans(block.Spans)
		if strings.TrimSpace(text) == "" {
			return ""
		}
		return strings.Repeat("#", headingLevel(block.Level)) + " " + text
	case domain.BlockQuote:
		text := renderSpans(block.Spans)
		if strings.TrimSpace(text) == "" {
			return ""
		}
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			lines[i] = quotePrefix + line
		}
		return strings.Join(lines, "\n")
	case domain.BlockList:
		return renderList(block)
	default:
		return renderSpans(block.Spans)
	}
}

func headingLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > maxHeading {
		return maxHeading
	}
	return level
}

// renderList numbers ordered items per indent level; moving back to a
// shallower level restarts the counters of the deeper ones.
func renderList(block domain.Block) string {
	if len(block.Items) == 0 {
		return ""
	}

	counters := map[int]int{}
	lines := make([]string, 0, len(block.Items))
	for _, item := range block.Items {
		indent := item.Indent
		if indent < 0 {
			indent = 0
		}
		for level := range counters {
			if level > indent {
				delete(counters, level)
			}
		}

		marker := "- "
		if block.Ordered {
			counters[indent]++
			marker = strconv.Itoa(counters[indent]) + ". "
		}
		lines = append(lines, strings.Repeat(listIndent, indent)+marker+renderSpans(item.Spans))
	}
	return strings.Join(lines, "\n")
}

func renderSpans(spans []domain.Span) string {
	var b strings.Builder
	for _, span := range coalesce(spans) {
		b.WriteString(renderSpan(span))
	}
	return b.String()
}

// coalesce merges adjacent text spans sharing a style, so neighbouring runs
// never produce touching delimiters such as "**a****b**".
func coalesce(spans []domain.Span) []domain.Span {
	out := make([]domain.Span, 0, len(spans))
	for _, span := range spans {
		if n := len(out); n > 0 && span.Kind == domain.SpanText && out[n-1].Kind == domain.SpanText && out[n-1].Style == span.Style {
			out[n-1].Text += span.Text
			continue
		}
		out = append(out, span)
	}
	return out
}

func renderSpan(span domain.Span) string {
	switch span.Kind {
	case domain.SpanMention:
		return renderMention(span)
	case domain.SpanLink:
		if span.Link == "" {
			return styled(span.Text, span.Style)
		}
		text := span.Text
		if strings.TrimSpace(text) == "" {
			text = span.Link
		}
		return "[" + styled(text, span.Style) + "](" + span.Link + ")"
	default:
		return styled(span.Text, span.Style)
	}
}

func renderMention(span domain.Span) string {
	if span.Mention == nil || span.Mention.ID == "" {
		return span.Text
	}
	switch span.Mention.Type {
	case domain.MentionUser:
		return "<@" + span.Mention.ID + ">"
	case domain.MentionChannel:
		return "<#" + span.Mention.ID + ">"
	default:
		return span.Text
	}
}

// styled applies exactly one format with precedence
// code > bold+italic > bold > italic > strike. Surrounding whitespace is
// kept outside the markers so the output stays valid Markdown.
func styled(text string, style domain.Style) string {
	core := strings.TrimSpace(text)
	if core == "" {
		return text
	}
	lead := text[:len(text)-len(strings.TrimLeftFunc(text, unicode.IsSpace))]
	trail := text[len(strings.TrimRightFunc(text, unicode.IsSpace)):]

	var marked string
	switch {
	case style.Code:
		if strings.Contains(core, "`") {
			marked = "`` " + core + " ``"
		} else {
			marked = "`" + core + "`"
		}
	case style.Bold && style.Italic:
		marked = "***" + core + "***"
	case style.Bold:
		marked = "**" + core + "**"
	case style.Italic:
		marked = "*" + core + "*"
	case style.Strike:
		marked = "~~" + core + "~~"
	default:
		return text
	}
	return lead + marked + trail
}
