package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var thinkTagRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ExtractJSON pulls a JSON object out of an LLM response. Models often wrap
// the payload in markdown fences, prose, or reasoning tags; this strips all
// of that and returns the first balanced object.
func ExtractJSON(response string) string {
	cleaned := thinkTagRegex.ReplaceAllString(response, "")
	cleaned = strings.TrimSpace(cleaned)

	if strings.Contains(cleaned, "```") {
		if start := strings.Index(cleaned, "```"); start != -1 {
			rest := cleaned[start+3:]
			// Skip an optional language hint like "json".
			if nl := strings.Index(rest, "\n"); nl != -1 {
				rest = rest[nl+1:]
			}
			if end := strings.Index(rest, "```"); end != -1 {
				cleaned = strings.TrimSpace(rest[:end])
			}
		}
	}

	if strings.HasPrefix(cleaned, "{") && strings.HasSuffix(cleaned, "}") {
		return cleaned
	}

	return extractBalancedObject(cleaned)
}

// extractBalancedObject returns the first brace-balanced object in s,
// ignoring braces inside string literals.
func extractBalancedObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// ParseJSONResponse extracts and unmarshals a JSON object from an LLM
// response into T.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	extracted := ExtractJSON(response)
	if extracted == "" {
		return result, fmt.Errorf("no JSON object found in response")
	}

	if err := json.Unmarshal([]byte(extracted), &result); err != nil {
		return result, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return result, nil
}
