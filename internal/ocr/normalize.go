package ocr

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses noisy whitespace for display.
// Conservative: keeps line breaks; collapses >2 newlines into a single blank line.
// Counting always runs on the raw recognized text, never on this.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Preview returns at most max characters of text, followed by a note with
// the full length when it was cut.
func Preview(text string, max int) string {
	total := utf8.RuneCountInString(text)
	if max <= 0 || total <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + fmt.Sprintf("\n\n... (showing first %d characters of %d total)", max, total)
}
