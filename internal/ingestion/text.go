package ingestion

import (
	"regexp"
	"strings"
)

var (
	multiSpace   = regexp.MustCompile(`[ \t\x{00a0}]+`)
	excessBlanks = regexp.MustCompile(`\n\n\n+`)
)

// CleanText normalizes extracted résumé text while preserving its line structure.
// Page breaks become newlines, runs of spaces collapse, and at most one blank line separates blocks.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\f", "\n")

	lines := strings.Split(content, "\n")
	cleanedLines := make([]string, 0, len(lines))
	for _, line := range lines {
		cleanedLines = append(cleanedLines, cleanLine(line))
	}

	result := strings.Join(cleanedLines, "\n")
	result = removeExcessiveBlankLines(result)
	return strings.TrimSpace(result)
}

// cleanLine cleans a single line while preserving bullets
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	if strings.TrimSpace(line) == "" {
		return ""
	}

	trimmed := strings.TrimLeft(line, " \t")
	if isBulletLine(trimmed) {
		marker, rest, _ := strings.Cut(trimmed, " ")
		return marker + " " + multiSpace.ReplaceAllString(strings.TrimSpace(rest), " ")
	}

	return multiSpace.ReplaceAllString(trimmed, " ")
}

// isBulletLine checks if a line is a bullet list item
func isBulletLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") ||
		strings.HasPrefix(trimmed, "• ") || strings.HasPrefix(trimmed, "· ")
}

// removeExcessiveBlankLines reduces consecutive blank lines to one
func removeExcessiveBlankLines(content string) string {
	return excessBlanks.ReplaceAllString(content, "\n\n")
}
