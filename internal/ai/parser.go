package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var thinkTagRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinkTags removes DeepSeek R1 reasoning tags from the response.
func StripThinkTags(text string) string {
	return strings.TrimSpace(thinkTagRegex.ReplaceAllString(text, ""))
}

// ParseCommentary parses the model's JSON object.
// Handles: bare JSON, markdown code fences, JSON embedded in prose.
func ParseCommentary(text string) (*Commentary, error) {
	cleaned := StripThinkTags(text)

	// Remove markdown code fences
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return nil, fmt.Errorf("empty AI response")
	}

	var c Commentary
	if err := json.Unmarshal([]byte(cleaned), &c); err == nil && c.Verdict != "" {
		return &c, nil
	}

	// Try extracting the JSON object from the text
	jsonStart := strings.Index(cleaned, "{")
	jsonEnd := strings.LastIndex(cleaned, "}")
	if jsonStart >= 0 && jsonEnd > jsonStart {
		substr := cleaned[jsonStart : jsonEnd+1]
		if err := json.Unmarshal([]byte(substr), &c); err == nil && c.Verdict != "" {
			return &c, nil
		}
	}

	return nil, fmt.Errorf("failed to parse AI response as JSON: %.200s", cleaned)
}

// Render formats a commentary as plain text for storage and notifications.
func (c *Commentary) Render() string {
	var sb strings.Builder
	sb.WriteString(c.Verdict)
	if len(c.Highlights) > 0 {
		sb.WriteString("\n\nСильные стороны:")
		for _, h := range c.Highlights {
			sb.WriteString("\n- " + h)
		}
	}
	if len(c.Risks) > 0 {
		sb.WriteString("\n\nРиски:")
		for _, r := range c.Risks {
			sb.WriteString("\n- " + r)
		}
	}
	return sb.String()
}
