package types

// Notes keys produced by the notes generator.
const (
	NotesKeyTitle           = "title"
	NotesKeyTopicsDiscussed = "topics_discussed"
	NotesKeyDecisionsMade   = "decisions_made"
	NotesKeyActionItems     = "action_items"
	NotesKeyKeyPoints       = "key_points"
)

// Notes is the structured meeting summary extracted from a transcript.
// It is kept as a raw JSON object; the renderer enforces the key set.
type Notes map[string]any

// Title returns the notes title, or an empty string when absent or not a string.
func (n Notes) Title() string {
	s, _ := n[NotesKeyTitle].(string)
	return s
}

// Has reports whether key is present.
func (n Notes) Has(key string) bool {
	_, ok := n[key]
	return ok
}

// List returns the string items stored under key, skipping non-string entries.
// A missing key yields nil.
func (n Notes) List(key string) []string {
	switch v := n[key].(type) {
	case []string:
		return v
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
		return items
	default:
		return nil
	}
}
