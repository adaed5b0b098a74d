// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wikitext cleans model output and turns it into MediaWiki markup.
//
// The pipeline for one section body is Normalize (drop enumeration prefixes
// from headings), Relevel (move headings to the depth the section occupies in
// the article) and Convert (Markdown to MediaWiki). Normalize and Relevel
// understand both Markdown ATX headings and wiki headings, so they also work
// on bodies that were already converted.
package wikitext

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxDepth is the deepest heading the exported document can carry. Depth d
// renders with d+1 '=' delimiters and MediaWiki stops at six.
const MaxDepth = 5

// ErrInvalidDepth reports a heading that would land outside [1, MaxDepth].
var ErrInvalidDepth = errors.New("invalid heading depth")

// DepthError records which heading could not be moved and where it would have gone.
type DepthError struct {
	Line  int // 1-based line number in the block
	Depth int // depth the heading would have had
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("heading on line %d would have depth %d (valid 1-%d): %v",
		e.Line, e.Depth, MaxDepth, ErrInvalidDepth)
}

func (e *DepthError) Unwrap() error { return ErrInvalidDepth }

type dialect int

const (
	dialectMarkdown dialect = iota
	dialectWiki
)

// atxPattern matches a Markdown ATX heading: indent, marker, gap, title,
// optional closing sequence, trailing space.
var atxPattern = regexp.MustCompile(`^( {0,3})(#{1,6})([ \t]+)(.*?)([ \t]+#+)?([ \t]*)$`)

// wikiPattern matches a MediaWiki heading. Opening and closing runs must be
// the same length; that is checked after matching. A single "=" is the page
// title level, which article bodies never use, so runs start at two.
var wikiPattern = regexp.MustCompile(`^(={2,6})([ \t]*)(.+?)([ \t]*)(={2,6})([ \t]*)$`)

// heading is one parsed heading line. Everything except depth and title is
// kept verbatim so rendering a heading back changes only what was edited.
type heading struct {
	dialect dialect
	depth   int
	title   string

	indent  string // markdown leading spaces
	gap     string // whitespace between opening marker and title
	closing string // markdown closing sequence, or whitespace before the wiki closing run
	trail   string // trailing whitespace
}

func parseHeading(line string) (*heading, bool) {
	if m := atxPattern.FindStringSubmatch(line); m != nil {
		return &heading{
			dialect: dialectMarkdown,
			depth:   len(m[2]),
			indent:  m[1],
			gap:     m[3],
			title:   m[4],
			closing: m[5],
			trail:   m[6],
		}, true
	}
	if m := wikiPattern.FindStringSubmatch(line); m != nil {
		if len(m[1]) != len(m[5]) || strings.Trim(m[3], "= \t") == "" {
			return nil, false
		}
		return &heading{
			dialect: dialectWiki,
			depth:   len(m[1]) - 1,
			gap:     m[2],
			title:   m[3],
			closing: m[4],
			trail:   m[6],
		}, true
	}
	return nil, false
}

func (h *heading) String() string {
	if h.dialect == dialectMarkdown {
		return h.indent + strings.Repeat("#", h.depth) + h.gap + h.title + h.closing + h.trail
	}
	marks := strings.Repeat("=", h.depth+1)
	return marks + h.gap + h.title + h.closing + marks + h.trail
}

// blockTracker follows fenced code and preformatted blocks line by line so
// '#' comments in code are not mistaken for headings.
type blockTracker struct {
	fence    string // opening fence run (``` or ~~~), empty when outside
	closeTag string // wiki closing tag, empty when outside
}

var preOpenPattern = regexp.MustCompile(`(?i)<(pre|syntaxhighlight|source|nowiki)\b[^>]*>`)

// inside reports whether line belongs to a code block and advances the state.
func (t *blockTracker) inside(line string) bool {
	trimmed := strings.TrimLeft(line, " ")
	if t.fence != "" {
		if strings.HasPrefix(trimmed, t.fence) && strings.Trim(trimmed, t.fence[:1]+" \t") == "" {
			t.fence = ""
		}
		return true
	}
	if t.closeTag != "" {
		if strings.Contains(strings.ToLower(line), t.closeTag) {
			t.closeTag = ""
		}
		return true
	}
	if len(line)-len(trimmed) <= 3 {
		for _, ch := range []string{"`", "~"} {
			if strings.HasPrefix(trimmed, ch+ch+ch) {
				n := len(trimmed) - len(strings.TrimLeft(trimmed, ch))
				t.fence = strings.Repeat(ch, n)
				return true
			}
		}
	}
	if m := preOpenPattern.FindStringSubmatchIndex(line); m != nil {
		tag := "</" + strings.ToLower(line[m[2]:m[3]]) + ">"
		if !strings.Contains(strings.ToLower(line[m[1]:]), tag) {
			t.closeTag = tag
		}
		return true
	}
	return false
}

// mapHeadings calls fn for every heading outside code blocks and rebuilds the
// text from the possibly modified headings. Line endings are preserved.
func mapHeadings(text string, fn func(lineNo int, h *heading) error) (string, error) {
	lines := strings.Split(text, "\n")
	var tracker blockTracker
	changed := false
	for i, line := range lines {
		if tracker.inside(line) {
			continue
		}
		body, cr := strings.CutSuffix(line, "\r")
		h, ok := parseHeading(body)
		if !ok {
			continue
		}
		if err := fn(i+1, h); err != nil {
			return "", err
		}
		out := h.String()
		if cr {
			out += "\r"
		}
		if out != line {
			lines[i] = out
			changed = true
		}
	}
	if !changed {
		return text, nil
	}
	return strings.Join(lines, "\n"), nil
}

// Headings returns the depth of every heading in text, in order.
func Headings(text string) []int {
	var depths []int
	_, _ = mapHeadings(text, func(_ int, h *heading) error {
		depths = append(depths, h.depth)
		return nil
	})
	return depths
}
