package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseStructured decodes a structured LLM response, tolerating markdown
// code fences around the JSON body.
func parseStructured(content string, dest any) error {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		var jsonLines []string
		inBlock := false
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inBlock = !inBlock
				continue
			}
			if inBlock {
				jsonLines = append(jsonLines, line)
			}
		}
		content = strings.Join(jsonLines, "\n")
	}

	if err := json.Unmarshal([]byte(content), dest); err != nil {
		return fmt.Errorf("parse structured response: %w", err)
	}
	return nil
}
