// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SectionSpec describes one entry of a caller-provided outline.
type SectionSpec struct {
	// Title is the section heading, without any enumeration prefix.
	Title string `json:"title" yaml:"title"`

	// PromptKey names the prompt whose response becomes the section body.
	// Structural-only sections leave it empty.
	PromptKey string `json:"prompt,omitempty" yaml:"prompt,omitempty"`

	// Depth overrides the heading depth. Zero means parent depth + 1.
	Depth int `json:"depth,omitempty" yaml:"depth,omitempty"`

	// Sections lists the subsections in document order.
	Sections []SectionSpec `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// OutlineSpec holds an article structure, usually loaded from outline.yaml.
type OutlineSpec struct {
	// Title is the article title. It is informational; the exported
	// document starts at the first section.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Subject is substituted into prompt templates (e.g. a ticker symbol).
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`

	// Prompts maps prompt keys to text/template sources.
	Prompts map[string]string `json:"prompts,omitempty" yaml:"prompts,omitempty"`

	// Sections lists the top-level sections in document order.
	Sections []SectionSpec `json:"sections" yaml:"sections"`
}

// PromptKeys returns every prompt key referenced by the outline in document order.
func (s OutlineSpec) PromptKeys() []string {
	var keys []string
	var walk func([]SectionSpec)
	walk = func(sections []SectionSpec) {
		for _, sec := range sections {
			if sec.PromptKey != "" {
				keys = append(keys, sec.PromptKey)
			}
			walk(sec.Sections)
		}
	}
	walk(s.Sections)
	return keys
}
