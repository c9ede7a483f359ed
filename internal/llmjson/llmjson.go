// Package llmjson decodes JSON objects out of raw model output. Model text
// is untrusted: it may be wrapped in markdown fences or surrounded by prose,
// so decoding first narrows the text to the outermost object literal and
// only then applies a strict decode.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"
)

type DecodeError struct {
	Reason  string
	Snippet string
}

func (e *DecodeError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("llmjson: %s; snippet=%q", e.Reason, e.Snippet)
	}
	return "llmjson: " + e.Reason
}

// Decode extracts the outermost JSON object from raw and unmarshals it into
// out. It returns a *DecodeError when no object can be recovered.
func Decode(raw string, out any) error {
	cleaned, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &DecodeError{Reason: "invalid JSON object: " + err.Error(), Snippet: snippet(cleaned)}
	}
	return nil
}

// DecodeMap is Decode into a generic map.
func DecodeMap(raw string) (map[string]any, error) {
	var m map[string]any
	if err := Decode(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Extract strips markdown fences and narrows raw to the span between the
// first '{' and the last '}'.
func Extract(raw string) (string, error) {
	cleaned := stripFences(strings.TrimSpace(raw))

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return "", &DecodeError{Reason: "no JSON object found", Snippet: snippet(cleaned)}
	}
	return cleaned[start : end+1], nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	// Drop the opening fence line (``` or ```json).
	lines = lines[1:]
	for len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
