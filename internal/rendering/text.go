package rendering

import "strings"

// SanitizeText prepares text for the PDF core fonts. Line endings are
// normalised to \n, tabs become spaces and other control characters are dropped.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var result strings.Builder
	result.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n':
			result.WriteRune(r)
		case r == '\t':
			result.WriteString("    ")
		case r < 0x20 || r == 0x7f:
			// dropped
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}

// TranscriptParagraphs splits a transcript into its non-blank lines.
func TranscriptParagraphs(transcript string) []string {
	var paragraphs []string
	for _, line := range strings.Split(SanitizeText(transcript), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return paragraphs
}
