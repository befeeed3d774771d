package llm

import "strings"

// StripMarkdownFences removes markdown code fences that models wrap around
// JSON output despite instructions not to.
func StripMarkdownFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
