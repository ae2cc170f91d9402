package pipeline

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	quoteHeaderRe = regexp.MustCompile(`(?i)On .* wrote:\n[\s\S]*`)
	quotedLineRe  = regexp.MustCompile(`(?m)\n>.*$`)
	signatureRe   = regexp.MustCompile(`\n\s*--\s*\n[\s\S]*$`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	blockTagRe    = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/tr|/h[1-6])\s*/?>`)
)

var strictPolicy = bluemonday.StrictPolicy()

// Clean strips the quoted reply introduced by an "On ... wrote:" line,
// lines quoted with '>', a trailing "--" signature block, and collapses
// whitespace. Clean(Clean(x)) == Clean(x).
func Clean(body string) string {
	s := strings.ReplaceAll(body, "\r\n", "\n")
	s = quoteHeaderRe.ReplaceAllString(s, "")
	s = quotedLineRe.ReplaceAllString(s, "")
	s = signatureRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanHTML converts an HTML body to plain text. Block-level tags become
// line breaks so the quote and signature rules in Clean still apply.
func CleanHTML(body string) string {
	s := blockTagRe.ReplaceAllString(body, "\n")
	s = strictPolicy.Sanitize(s)
	return html.UnescapeString(s)
}

// BodyText picks the text to process: text when present, otherwise the
// HTML body converted to text.
func BodyText(text, htmlBody string) string {
	if strings.TrimSpace(text) != "" || htmlBody == "" {
		return text
	}
	return CleanHTML(htmlBody)
}
