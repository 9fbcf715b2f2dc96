// Package jsonutil extracts and decodes JSON from language-model replies,
// which often wrap the payload in markdown fences or surrounding prose.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a reply contains no JSON object or array.
var ErrNoJSON = errors.New("no JSON content found")

// StripMarkdownFences removes a surrounding ```json ... ``` (or bare ```)
// block. Text without an opening fence is returned trimmed.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}
	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}

// ExtractJSON returns the span from the first '{' or '[' to the last
// matching closing delimiter.
func ExtractJSON(text string) (string, error) {
	obj := strings.Index(text, "{")
	arr := strings.Index(text, "[")
	if obj == -1 && arr == -1 {
		return "", ErrNoJSON
	}

	start, closer := obj, "}"
	if obj == -1 || (arr != -1 && arr < obj) {
		start, closer = arr, "]"
	}

	rest := text[start:]
	end := strings.LastIndex(rest, closer)
	if end == -1 {
		return "", fmt.Errorf("no closing %s found", closer)
	}
	return rest[:end+1], nil
}

// ParseJSON strips fences, extracts the JSON span and decodes it into T.
func ParseJSON[T any](raw string) (T, error) {
	var out T
	span, err := ExtractJSON(StripMarkdownFences(raw))
	if err != nil {
		return out, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}
	if err := json.Unmarshal([]byte(span), &out); err != nil {
		var zero T
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview(span, 200))
	}
	return out, nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
