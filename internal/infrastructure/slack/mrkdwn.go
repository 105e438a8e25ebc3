package slack

import (
	"regexp"
	"strings"
)

var (
	codeSpan       = regexp.MustCompile("``\\s.*?\\s``|`[^`\n]+`")
	headingLine    = regexp.MustCompile(`(?m)^#{1,6}\s+(.+?)\s*$`)
	markdownLink   = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	starRun        = regexp.MustCompile(`\*{2,}|\*([^*\s](?:[^*\n]*[^*\s])?)\*`)
	boldItalicRun  = regexp.MustCompile(`\*\*\*(.+?)\*\*\*`)
	boldRun        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	strikethrough  = regexp.MustCompile(`~~(.+?)~~`)
	doubleBacktick = regexp.MustCompile("^``\\s(.*?)\\s``$")
)

// ToMrkdwn converts the Markdown produced by the renderer into the chat
// platform's mrkdwn dialect. Code spans are copied untouched.
func ToMrkdwn(markdown string) string {
	var b strings.Builder
	last := 0
	for _, loc := range codeSpan.FindAllStringIndex(markdown, -1) {
		b.WriteString(convertText(markdown[last:loc[0]]))
		b.WriteString(convertCode(markdown[loc[0]:loc[1]]))
		last = loc[1]
	}
	b.WriteString(convertText(markdown[last:]))
	return b.String()
}

func convertText(text string) string {
	if text == "" {
		return text
	}
	text = starRun.ReplaceAllStringFunc(text, italicRun)
	text = headingLine.ReplaceAllString(text, "*$1*")
	text = markdownLink.ReplaceAllString(text, "<$2|$1>")
	text = boldItalicRun.ReplaceAllString(text, "*_${1}_*")
	text = boldRun.ReplaceAllString(text, "*$1*")
	text = strikethrough.ReplaceAllString(text, "~$1~")
	return text
}

// italicRun rewrites a single-star emphasis as mrkdwn italic and leaves
// bold delimiter runs for the later substitutions.
func italicRun(match string) string {
	if strings.HasPrefix(match, "**") {
		return match
	}
	return "_" + match[1:len(match)-1] + "_"
}

// convertCode unwraps double-backtick spans, which mrkdwn does not know.
func convertCode(code string) string {
	if match := doubleBacktick.FindStringSubmatch(code); match != nil {
		return "`" + match[1] + "`"
	}
	return code
}
