package llm

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractJSON pulls the JSON payload out of model output that may be wrapped
// in markdown fences or surrounded by prose. Objects win over arrays; text
// with neither is returned trimmed.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, "```"); i != -1 {
		rest := text[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl != -1 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j != -1 {
			rest = rest[:j]
		}
		text = strings.TrimSpace(rest)
	}

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start != -1 && end > start {
		return text[start : end+1]
	}
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

// DecodeJSON extracts and unmarshals a JSON payload into v.
func DecodeJSON(text string, v any) error {
	payload := ExtractJSON(text)
	if payload == "" {
		return eris.New("llm: empty response")
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return eris.Wrap(err, "llm: decode json response")
	}
	return nil
}
