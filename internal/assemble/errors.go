// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPolicy reports an assembler built without a failure policy.
	ErrNoPolicy = errors.New("failure policy must be chosen explicitly (abort or placeholder)")

	// ErrUnknownPolicy reports a failure policy the assembler does not know.
	ErrUnknownPolicy = errors.New("unknown failure policy")
)

// FetchError records a section whose text could not be produced, either
// because the fetch collaborator failed or because the answer could not be
// fitted under its heading.
type FetchError struct {
	Path      string
	Title     string
	PromptKey string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("section %s %q (prompt %q): %v", e.Path, e.Title, e.PromptKey, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
