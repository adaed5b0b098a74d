// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"text/template"
)

// ErrUnknownPrompt reports a prompt key with no template.
var ErrUnknownPrompt = errors.New("unknown prompt")

// PromptData is the value prompt templates execute against.
type PromptData struct {
	Subject string
}

// PromptSet holds parsed prompt templates by key.
type PromptSet struct {
	templates map[string]*template.Template
}

// NewPromptSet parses every template in prompts. Templates reference
// fields of PromptData, e.g. {{.Subject}}.
func NewPromptSet(prompts map[string]string) (*PromptSet, error) {
	set := &PromptSet{templates: make(map[string]*template.Template, len(prompts))}
	for key, src := range prompts {
		tmpl, err := template.New(key).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parsing prompt %q: %w", key, err)
		}
		set.templates[key] = tmpl
	}
	return set, nil
}

// Render executes the template for key.
func (s *PromptSet) Render(key string, data PromptData) (string, error) {
	tmpl, ok := s.templates[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrompt, key)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt %q: %w", key, err)
	}
	return buf.String(), nil
}

// Missing returns the keys that have no template, sorted and deduplicated.
func (s *PromptSet) Missing(keys []string) []string {
	seen := make(map[string]bool)
	var missing []string
	for _, k := range keys {
		if _, ok := s.templates[k]; !ok && !seen[k] {
			seen[k] = true
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}
