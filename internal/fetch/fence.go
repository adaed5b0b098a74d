// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import "strings"

// StripFence removes a code fence that wraps an entire answer, as models
// sometimes return ```markdown ... ``` around the whole document. Fences
// inside the text are left alone.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}

	first, rest, ok := strings.Cut(text, "\n")
	if !ok {
		return text
	}
	switch lang := strings.TrimSpace(strings.TrimPrefix(first, "```")); lang {
	case "", "md", "markdown":
	default:
		return text
	}

	inner := strings.TrimSuffix(rest, "```")
	if strings.Contains(inner, "\n```") {
		return text
	}
	return strings.TrimSpace(inner)
}
