// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package outline holds the article's section hierarchy. A Tree keeps an
// implicit root at depth 0; each section sits at least one level below its
// parent and renders as a wiki heading with depth+1 equals signs.
package outline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pdiddy/article-engine/internal/wikitext"
	"github.com/pdiddy/article-engine/pkg/types"
)

// Node is one section of the article. Nodes handed out by Lookup and Walk
// belong to the tree; change them through Tree methods only.
type Node struct {
	Title     string
	Depth     int
	PromptKey string
	Body      string
	Children  []*Node
}

// Tree is an ordered section hierarchy safe for concurrent use.
type Tree struct {
	mu   sync.RWMutex
	root *Node
}

// New returns an empty tree holding only the root.
func New() *Tree {
	return &Tree{root: &Node{}}
}

// Insert appends n, with its children, as the last child of the node at
// parent. A node whose Depth is zero is placed one level below its parent.
// It returns the path of the inserted node.
func (t *Tree) Insert(parent Path, n *Node) (Path, error) {
	if n == nil {
		return nil, &Error{Op: "insert", Path: parent, Err: ErrEmptyTitle}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.lookup(parent)
	if !ok {
		return nil, &Error{Op: "insert", Path: parent, Title: n.Title, Err: ErrPathNotFound}
	}

	depths := make(map[*Node]int)
	if err := resolveDepths(p.Depth, n, depths); err != nil {
		return nil, &Error{Op: "insert", Path: parent, Title: n.Title, Err: err}
	}
	if hasSibling(p.Children, n.Title, depths[n], nil) {
		return nil, &Error{Op: "insert", Path: parent, Title: n.Title, Err: ErrDuplicateSection}
	}

	for node, d := range depths {
		node.Depth = d
	}
	p.Children = append(p.Children, n)
	return parent.Child(len(p.Children) - 1), nil
}

// resolveDepths fills in depths for n's subtree without touching the nodes.
func resolveDepths(parentDepth int, n *Node, out map[*Node]int) error {
	if strings.TrimSpace(n.Title) == "" {
		return ErrEmptyTitle
	}
	d := n.Depth
	if d == 0 {
		d = parentDepth + 1
	}
	if d <= parentDepth || d > wikitext.MaxDepth {
		return fmt.Errorf("section %q at depth %d under depth %d: %w", n.Title, d, parentDepth, wikitext.ErrInvalidDepth)
	}
	out[n] = d

	for i, c := range n.Children {
		if err := resolveDepths(d, c, out); err != nil {
			return err
		}
		for _, prev := range n.Children[:i] {
			if prev.Title == c.Title && out[prev] == out[c] {
				return fmt.Errorf("section %q under %q: %w", c.Title, n.Title, ErrDuplicateSection)
			}
		}
	}
	return nil
}

func hasSibling(siblings []*Node, title string, depth int, skip *Node) bool {
	for _, s := range siblings {
		if s != skip && s.Title == title && s.Depth == depth {
			return true
		}
	}
	return false
}

// Move detaches the subtree at src and re-attaches it as child destIndex of
// destParent, where destIndex counts the destination's children after the
// detach. Depths shift by the same amount across the subtree and populated
// bodies are re-leveled to sit under their new headings. Nothing changes
// when Move returns an error. It returns the subtree's new path.
func (t *Tree) Move(src, destParent Path, destIndex int) (Path, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fail := func(err error) (Path, error) {
		return nil, &Error{Op: "move", Path: src, Err: err}
	}

	srcParentPath, ok := src.Parent()
	if !ok {
		return fail(ErrInvalidMove)
	}
	srcParent, ok := t.lookup(srcParentPath)
	if !ok {
		return fail(ErrPathNotFound)
	}
	idx := src[len(src)-1]
	if idx < 0 || idx >= len(srcParent.Children) {
		return fail(ErrPathNotFound)
	}
	node := srcParent.Children[idx]

	dest, ok := t.lookup(destParent)
	if !ok {
		return nil, &Error{Op: "move", Path: destParent, Err: ErrPathNotFound}
	}
	if destParent.HasPrefix(src) {
		return nil, &Error{Op: "move", Path: src, Title: node.Title, Err: fmt.Errorf("%w: destination %s lies inside the moved subtree", ErrInvalidMove, destParent)}
	}

	room := len(dest.Children)
	if dest == srcParent {
		room--
	}
	if destIndex < 0 || destIndex > room {
		return nil, &Error{Op: "move", Path: destParent.Child(destIndex), Title: node.Title, Err: ErrPathNotFound}
	}

	delta := dest.Depth + 1 - node.Depth
	if hasSibling(dest.Children, node.Title, node.Depth+delta, node) {
		return nil, &Error{Op: "move", Path: src, Title: node.Title, Err: ErrDuplicateSection}
	}

	type change struct {
		depth int
		body  string
	}
	plan := make(map[*Node]change)
	var planErr error
	walkNodes(node, func(n *Node) bool {
		d := n.Depth + delta
		if d < 1 || d > wikitext.MaxDepth {
			planErr = fmt.Errorf("section %q would sit at depth %d: %w", n.Title, d, wikitext.ErrInvalidDepth)
			return false
		}
		body := n.Body
		if body != "" {
			var err error
			if body, err = wikitext.Relevel(body, d+1); err != nil {
				planErr = fmt.Errorf("re-leveling body of %q: %w", n.Title, err)
				return false
			}
		}
		plan[n] = change{depth: d, body: body}
		return true
	})
	if planErr != nil {
		return nil, &Error{Op: "move", Path: src, Title: node.Title, Err: planErr}
	}

	srcParent.Children = append(srcParent.Children[:idx:idx], srcParent.Children[idx+1:]...)
	dest.Children = append(dest.Children, nil)
	copy(dest.Children[destIndex+1:], dest.Children[destIndex:])
	dest.Children[destIndex] = node
	for n, c := range plan {
		n.Depth = c.depth
		n.Body = c.body
	}

	return t.pathOf(node), nil
}

// SetBody stores the wiki body of the node at p. A root body renders as the
// article lead, ahead of the first heading.
func (t *Tree) SetBody(p Path, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.lookup(p)
	if !ok {
		return &Error{Op: "set-body", Path: p, Err: ErrPathNotFound}
	}
	n.Body = body
	return nil
}

// Lookup returns the node at p.
func (t *Tree) Lookup(p Path) (*Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.lookup(p)
	if !ok {
		return nil, &Error{Op: "lookup", Path: p, Err: ErrPathNotFound}
	}
	return n, nil
}

// Resolve finds a section by the titles along its branch, e.g.
// Resolve("Intro", "Cost").
func (t *Tree) Resolve(titles ...string) (Path, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cur := t.root
	var p Path
	for _, title := range titles {
		found := -1
		for i, c := range cur.Children {
			if c.Title == title {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, &Error{Op: "resolve", Path: p, Title: title, Err: ErrPathNotFound}
		}
		p = p.Child(found)
		cur = cur.Children[found]
	}
	return p, nil
}

// Walk calls fn for every section in document order. It works on a snapshot
// of the structure, so fn may call SetBody.
func (t *Tree) Walk(fn func(Path, *Node) error) error {
	type entry struct {
		path Path
		node *Node
	}
	var entries []entry

	t.mu.RLock()
	var visit func(p Path, n *Node)
	visit = func(p Path, n *Node) {
		for i, c := range n.Children {
			cp := p.Child(i)
			entries = append(entries, entry{path: cp, node: c})
			visit(cp, c)
		}
	}
	visit(nil, t.root)
	t.mu.RUnlock()

	for _, e := range entries {
		if err := fn(e.path, e.node); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of sections, not counting the root.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := -1
	walkNodes(t.root, func(*Node) bool { n++; return true })
	return n
}

// Serialize renders the article: each heading followed by its body, sections
// separated by a blank line, ending in a single newline.
func (t *Tree) Serialize() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var chunks []string
	if lead := strings.TrimRight(t.root.Body, "\n"); lead != "" {
		chunks = append(chunks, lead)
	}
	for _, c := range t.root.Children {
		walkNodes(c, func(n *Node) bool {
			chunk := HeadingLine(n.Depth, n.Title)
			if body := strings.TrimRight(n.Body, "\n"); body != "" {
				chunk += "\n" + body
			}
			chunks = append(chunks, chunk)
			return true
		})
	}
	if len(chunks) == 0 {
		return ""
	}
	return strings.Join(chunks, "\n\n") + "\n"
}

// HeadingLine renders a section heading at depth, e.g. "== Intro ==" at 1.
func HeadingLine(depth int, title string) string {
	marks := strings.Repeat("=", depth+1)
	return marks + " " + title + " " + marks
}

// Summary lists the sections one per line with their paths and prompt keys,
// indented by depth.
func (t *Tree) Summary() string {
	var b strings.Builder
	_ = t.Walk(func(p Path, n *Node) error {
		fmt.Fprintf(&b, "%s%s %s", strings.Repeat("  ", n.Depth-1), p, n.Title)
		if n.PromptKey != "" {
			fmt.Fprintf(&b, " [%s]", n.PromptKey)
		}
		b.WriteByte('\n')
		return nil
	})
	return b.String()
}

// Sections converts the tree back into outline sections. Depth is recorded
// only where a section sits deeper than its parent's next level.
func (t *Tree) Sections() []types.SectionSpec {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return toSections(t.root)
}

func toSections(parent *Node) []types.SectionSpec {
	var out []types.SectionSpec
	for _, c := range parent.Children {
		s := types.SectionSpec{
			Title:     c.Title,
			PromptKey: c.PromptKey,
			Sections:  toSections(c),
		}
		if c.Depth != parent.Depth+1 {
			s.Depth = c.Depth
		}
		out = append(out, s)
	}
	return out
}

func (t *Tree) lookup(p Path) (*Node, bool) {
	n := t.root
	for _, idx := range p {
		if idx < 0 || idx >= len(n.Children) {
			return nil, false
		}
		n = n.Children[idx]
	}
	return n, true
}

func (t *Tree) pathOf(target *Node) Path {
	var found Path
	var search func(p Path, n *Node) bool
	search = func(p Path, n *Node) bool {
		for i, c := range n.Children {
			cp := p.Child(i)
			if c == target {
				found = cp
				return true
			}
			if search(cp, c) {
				return true
			}
		}
		return false
	}
	search(Path{}, t.root)
	return found
}

// walkNodes visits n and its descendants in pre-order until fn returns false.
func walkNodes(n *Node, fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !walkNodes(c, fn) {
			return false
		}
	}
	return true
}
