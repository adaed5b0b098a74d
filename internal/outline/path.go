// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outline

import (
	"fmt"
	"strconv"
	"strings"
)

// Path addresses a node by child indices from the root. The empty path is
// the root itself.
type Path []int

// String renders the path as dotted 1-based positions ("1.2"), the way
// section numbers read in the article.
func (p Path) String() string {
	if len(p) == 0 {
		return "root"
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx + 1)
	}
	return strings.Join(parts, ".")
}

// Child returns a new path addressing child i of p.
func (p Path) Child(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, i)
}

// Parent returns the path of p's parent. The root has no parent.
func (p Path) Parent() (Path, bool) {
	if len(p) == 0 {
		return nil, false
	}
	return p[:len(p)-1 : len(p)-1], true
}

// HasPrefix reports whether p equals prefix or lies underneath it.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// ParsePath reads a dotted 1-based path such as "1.2". "root" and "" are
// the root.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "root" {
		return Path{}, nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("parsing path %q: position %q is not a positive number", s, part)
		}
		p[i] = n - 1
	}
	return p, nil
}
