package scraper

import (
	"regexp"
	"strings"
)

var blockTagPattern = regexp.MustCompile(`(?i)</(p|div|li|tr|td|th|h[1-6]|br)\s*>|<br\s*/?>`)

// spaceBlocks puts a newline after block-level closing tags so adjacent cells and
// paragraphs do not run together when converted to text.
func spaceBlocks(html string) string {
	return blockTagPattern.ReplaceAllStringFunc(html, func(tag string) string {
		return tag + "\n"
	})
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// collapseLines trims each line, collapses inner whitespace and drops empty lines.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = collapseSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
