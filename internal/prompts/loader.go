// Package prompts loads the LLM prompt templates embedded from JSON files.
// Each file maps a prompt key to a template using {{.Key}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// cache stores parsed prompt files by filename
var (
	cache   = make(map[string]map[string]string)
	cacheMu sync.RWMutex
)

// Get retrieves a prompt by filename and key.
// The filename should not include the path (e.g., "notes.json").
// Returns an error if the file or key is not found.
func Get(filename, key string) (string, error) {
	prompts, err := loadFile(filename)
	if err != nil {
		return "", err
	}

	prompt, exists := prompts[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}

	return prompt, nil
}

// Format replaces template placeholders in the form {{.Key}} with values from data.
// Placeholders without a value are left as-is.
func Format(template string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, fmt.Sprintf("{{.%s}}", key), value)
	}
	// A single pass keeps placeholder-looking text inside values untouched.
	return strings.NewReplacer(pairs...).Replace(template)
}

// FormatStrict is Format, but fails if the template references a key missing from data.
func FormatStrict(template string, data map[string]string) (string, error) {
	for _, key := range placeholders(template) {
		if _, ok := data[key]; !ok {
			return "", fmt.Errorf("prompt placeholder {{.%s}} has no value", key)
		}
	}
	return Format(template, data), nil
}

// placeholders lists the keys referenced by {{.Key}} markers in template.
func placeholders(template string) []string {
	var keys []string
	rest := template
	for {
		start := strings.Index(rest, "{{.")
		if start < 0 {
			return keys
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return keys
		}
		keys = append(keys, rest[start+3:start+end])
		rest = rest[start+end+2:]
	}
}

// loadFile loads and caches a prompt file.
func loadFile(filename string) (map[string]string, error) {
	// Check cache first
	cacheMu.RLock()
	if prompts, exists := cache[filename]; exists {
		cacheMu.RUnlock()
		return prompts, nil
	}
	cacheMu.RUnlock()

	// Load from embedded filesystem
	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var prompts map[string]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	// Cache the result
	cacheMu.Lock()
	cache[filename] = prompts
	cacheMu.Unlock()

	return prompts, nil
}

// ClearCache clears the prompt cache.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]string)
	cacheMu.Unlock()
}
