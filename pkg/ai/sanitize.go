package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// extractJSON decodes the model answer, falling back to the outermost {...}
// span when the object is wrapped in prose or code fences.
func extractJSON(s string) (map[string]any, error) {
	var out map[string]any
	err := json.Unmarshal([]byte(s), &out)
	if err == nil && out != nil {
		return out, nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		var sub map[string]any
		if err2 := json.Unmarshal([]byte(s[start:end+1]), &sub); err2 == nil && sub != nil {
			return sub, nil
		}
	}
	if err == nil {
		err = fmt.Errorf("answer is not a JSON object")
	}
	return nil, fmt.Errorf("non-json answer: %w", err)
}

var (
	boldStars       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderscores = regexp.MustCompile(`__(.+?)__`)
	italicStars     = regexp.MustCompile(`(^|[^\w*])\*([^*\s](?:[^*]*[^*\s])?)\*([^\w*]|$)`)
	italicUnders    = regexp.MustCompile(`(^|[^\w])_([^_\s](?:[^_]*[^_\s])?)_([^\w]|$)`)
)

func stripMarkdown(s string) string {
	s = boldStars.ReplaceAllString(s, "$1")
	s = boldUnderscores.ReplaceAllString(s, "$1")
	s = italicStars.ReplaceAllString(s, "$1$2$3")
	s = italicUnders.ReplaceAllString(s, "$1$2$3")
	return strings.TrimSpace(s)
}

// cleanContent strips markdown emphasis from every string and trailing
// periods from list items, in place.
func cleanContent(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = cleanContent(val)
		}
		return t
	case []any:
		for i, val := range t {
			if s, ok := val.(string); ok {
				t[i] = strings.TrimRight(stripMarkdown(s), ".")
				continue
			}
			t[i] = cleanContent(val)
		}
		return t
	case string:
		return stripMarkdown(t)
	default:
		return v
	}
}

// checkStructure verifies the answer kept every experience entry of the base.
func checkStructure(out, base map[string]any) error {
	want := countItems(base["professional_experience"])
	got := countItems(out["professional_experience"])
	if got < want {
		return fmt.Errorf("professional_experience has %d entries, base CV has %d", got, want)
	}
	return nil
}

func countItems(v any) int {
	if arr, ok := v.([]any); ok {
		return len(arr)
	}
	return 0
}
