// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outline

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound reports a path that does not address a node.
	ErrPathNotFound = errors.New("path not found")

	// ErrDuplicateSection reports two siblings with the same title at the same depth.
	ErrDuplicateSection = errors.New("duplicate section")

	// ErrInvalidMove reports a move of the root or of a subtree under itself.
	ErrInvalidMove = errors.New("invalid move")

	// ErrEmptyTitle reports a section without a title.
	ErrEmptyTitle = errors.New("section title is required")
)

// Error carries the operation and path of a failed tree mutation.
type Error struct {
	Op    string // insert, move, set-body, lookup, resolve
	Path  Path
	Title string
	Err   error
}

func (e *Error) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("outline %s at %s (%q): %v", e.Op, e.Path, e.Title, e.Err)
	}
	return fmt.Sprintf("outline %s at %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
