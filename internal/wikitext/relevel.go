// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wikitext

// Relevel moves every heading in text so that the shallowest one lands at
// targetBaseDepth, keeping relative nesting. Fresh model output always starts
// at depth 1, so for it this is a shift by targetBaseDepth-1; text that was
// already re-leveled (for example a body whose section moved) is shifted from
// wherever its headings currently are.
//
// Text without headings is returned unchanged for any target. A heading that
// would end up shallower than 1 or deeper than MaxDepth fails with a
// *DepthError wrapping ErrInvalidDepth; nothing is clamped.
func Relevel(text string, targetBaseDepth int) (string, error) {
	depths := Headings(text)
	if len(depths) == 0 {
		return text, nil
	}
	shallowest := depths[0]
	for _, d := range depths[1:] {
		shallowest = min(shallowest, d)
	}
	return Shift(text, targetBaseDepth-shallowest)
}

// Shift adds offset to the depth of every heading in text.
func Shift(text string, offset int) (string, error) {
	return mapHeadings(text, func(lineNo int, h *heading) error {
		depth := h.depth + offset
		if depth < 1 || depth > MaxDepth {
			return &DepthError{Line: lineNo, Depth: depth}
		}
		h.depth = depth
		return nil
	})
}
