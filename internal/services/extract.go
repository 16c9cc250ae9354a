package services

import (
	"encoding/json"
	"regexp"
	"strings"

	"quizgen/internal/models"
)

var fencedArray = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")

// ExtractJSONArray recovers the JSON array from a model reply. A fenced block
// wins; otherwise everything from the first '[' to the last ']' is taken.
// The bracket fallback is greedy on purpose and can span stray brackets in prose.
func ExtractJSONArray(content string) (string, error) {
	if m := fencedArray.FindStringSubmatch(content); m != nil {
		return m[1], nil
	}

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return "", &ExtractionError{Text: content}
	}
	return content[start : end+1], nil
}

// ParseItems decodes the extracted array. Elements that are not objects come
// back as nil items so the normalizer can reject them individually.
func ParseItems(raw string) ([]models.RawModelItem, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, &ParseError{Snippet: raw, Err: err}
	}

	items := make([]models.RawModelItem, len(elems))
	for i, elem := range elems {
		var item map[string]any
		if err := json.Unmarshal(elem, &item); err != nil {
			continue
		}
		items[i] = item
	}
	return items, nil
}
