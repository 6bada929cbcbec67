package transcription

import "strings"

// Utterance is one speaker-attributed segment returned by the provider.
type Utterance struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   int64   `json:"start,omitempty"`
	End     int64   `json:"end,omitempty"`
	Conf    float64 `json:"confidence,omitempty"`
}

// FormatUtterances renders utterances as "Speaker <id>: <text>" lines in provider order.
// Utterances with empty text are dropped.
func FormatUtterances(utterances []Utterance) string {
	lines := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if u.Text == "" {
			continue
		}
		lines = append(lines, "Speaker "+u.Speaker+": "+u.Text)
	}
	return strings.Join(lines, "\n")
}
