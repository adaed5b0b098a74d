// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outline

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/article-engine/pkg/types"
)

//go:embed default_outline.yaml
var defaultOutline []byte

// DefaultSpec returns the built-in company overview outline: an Intro
// section holding Cost and Customer subsections.
func DefaultSpec() (*types.OutlineSpec, error) {
	spec, err := ParseSpec(defaultOutline)
	if err != nil {
		return nil, fmt.Errorf("default outline: %w", err)
	}
	return spec, nil
}

// LoadSpec reads an outline YAML file.
func LoadSpec(path string) (*types.OutlineSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading outline: %w", err)
	}
	return ParseSpec(data)
}

// ParseSpec decodes outline YAML.
func ParseSpec(data []byte) (*types.OutlineSpec, error) {
	var spec types.OutlineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing outline: %w", err)
	}
	return &spec, nil
}

// MarshalSpec encodes an outline as YAML.
func MarshalSpec(spec *types.OutlineSpec) ([]byte, error) {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encoding outline: %w", err)
	}
	return data, nil
}

// Build constructs a tree from an outline, inserting sections in document
// order. It stops at the first section the tree rejects.
func Build(spec *types.OutlineSpec) (*Tree, error) {
	t := New()
	var add func(parent Path, sections []types.SectionSpec) error
	add = func(parent Path, sections []types.SectionSpec) error {
		for _, s := range sections {
			p, err := t.Insert(parent, &Node{Title: s.Title, Depth: s.Depth, PromptKey: s.PromptKey})
			if err != nil {
				return err
			}
			if err := add(p, s.Sections); err != nil {
				return err
			}
		}
		return nil
	}
	if err := add(Path{}, spec.Sections); err != nil {
		return nil, fmt.Errorf("building outline: %w", err)
	}
	return t, nil
}
