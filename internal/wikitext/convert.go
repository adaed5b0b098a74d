// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wikitext

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Convert translates Markdown into MediaWiki markup. It is a pure function
// of its input. Constructs it does not know are emitted as their source text.
func Convert(markdown string) string {
	source := []byte(markdown)
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	r := &wikiRenderer{source: source}
	return strings.Join(r.blocks(doc), "\n\n")
}

// wikiRenderer walks a goldmark AST and writes MediaWiki markup.
type wikiRenderer struct {
	source []byte
}

func (r *wikiRenderer) blocks(parent ast.Node) []string {
	var out []string
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if s := r.block(n); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *wikiRenderer) block(n ast.Node) string {
	switch n := n.(type) {
	case *ast.Heading:
		marks := strings.Repeat("=", min(n.Level+1, MaxDepth+1))
		return marks + " " + strings.TrimSpace(r.inline(n, true)) + " " + marks
	case *ast.Paragraph:
		return escapeLineStarts(strings.TrimRight(r.inline(n, false), " \n"))
	case *ast.TextBlock:
		return escapeLineStarts(strings.TrimRight(r.inline(n, false), " \n"))
	case *ast.List:
		return strings.Join(r.list(n, ""), "\n")
	case *ast.FencedCodeBlock:
		lang := string(n.Language(r.source))
		if lang == "" {
			return "<pre>\n" + r.lines(n) + "</pre>"
		}
		return `<syntaxhighlight lang="` + lang + `">` + "\n" + r.lines(n) + "</syntaxhighlight>"
	case *ast.CodeBlock:
		return "<pre>\n" + r.lines(n) + "</pre>"
	case *ast.Blockquote:
		return "<blockquote>\n" + strings.Join(r.blocks(n), "\n\n") + "\n</blockquote>"
	case *ast.ThematicBreak:
		return "----"
	case *ast.HTMLBlock:
		out := r.lines(n)
		if n.HasClosure() {
			out += string(n.ClosureLine.Value(r.source))
		}
		return strings.TrimRight(out, "\n")
	case *east.Table:
		return r.table(n)
	default:
		return r.literal(n)
	}
}

// lineStartMarkup holds the characters that open a wiki list, indent or
// definition when they begin a line.
const lineStartMarkup = "*#:;"

// escapeLineStarts keeps paragraph text from turning into wiki block markup.
// Leading blanks are dropped (a leading space means preformatted text) and a
// leading list character is wrapped in nowiki.
func escapeLineStarts(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimLeft(line, " \t")
		if line != "" && strings.IndexByte(lineStartMarkup, line[0]) >= 0 {
			line = "<nowiki>" + line[:1] + "</nowiki>" + line[1:]
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// list renders one list level. prefix carries the markers of enclosing lists
// so nesting comes out as "**" or "#*".
func (r *wikiRenderer) list(l *ast.List, prefix string) []string {
	marker := "*"
	if l.IsOrdered() {
		marker = "#"
	}
	p := prefix + marker

	var lines []string
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if nested, ok := c.(*ast.List); ok {
				lines = append(lines, r.list(nested, p)...)
				continue
			}
			var content string
			switch c := c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				content = strings.TrimSpace(r.inline(c, true))
			default:
				content = strings.ReplaceAll(r.block(c), "\n", " ")
			}
			if first {
				lines = append(lines, p+" "+content)
				first = false
			} else {
				lines = append(lines, p+": "+content)
			}
		}
		if first && item.FirstChild() == nil {
			lines = append(lines, p)
		}
	}
	return lines
}

func (r *wikiRenderer) table(t *east.Table) string {
	lines := []string{`{| class="wikitable"`}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		mark := "|"
		if _, ok := row.(*east.TableHeader); ok {
			mark = "!"
		}
		lines = append(lines, "|-")
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			content := strings.TrimSpace(r.inline(cell, true))
			if tc, ok := cell.(*east.TableCell); ok && tc.Alignment != east.AlignNone {
				lines = append(lines, mark+` style="text-align:`+tc.Alignment.String()+`" | `+content)
				continue
			}
			lines = append(lines, mark+" "+content)
		}
	}
	lines = append(lines, "|}")
	return strings.Join(lines, "\n")
}

// inline renders the inline children of n. With oneLine set, soft line
// breaks become spaces, which keeps list items and headings on one line.
func (r *wikiRenderer) inline(n ast.Node, oneLine bool) string {
	var b strings.Builder
	r.inlineChildren(&b, n, oneLine)
	return b.String()
}

func (r *wikiRenderer) inlineChildren(b *strings.Builder, n ast.Node, oneLine bool) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.writeInline(b, c, oneLine)
	}
}

func (r *wikiRenderer) writeInline(b *strings.Builder, n ast.Node, oneLine bool) {
	switch n := n.(type) {
	case *ast.Text:
		value := n.Segment.Value(r.source)
		if !n.IsRaw() {
			value = util.UnescapePunctuations(value)
		}
		b.Write(value)
		switch {
		case n.HardLineBreak():
			b.WriteString("<br />")
			if !oneLine {
				b.WriteString("\n")
			}
		case n.SoftLineBreak():
			if oneLine {
				b.WriteString(" ")
			} else {
				b.WriteString("\n")
			}
		}
	case *ast.String:
		b.Write(n.Value)
	case *ast.Emphasis:
		mark := "''"
		if n.Level >= 2 {
			mark = "'''"
		}
		b.WriteString(mark)
		r.inlineChildren(b, n, oneLine)
		b.WriteString(mark)
	case *ast.CodeSpan:
		b.WriteString("<code>")
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Text:
				b.Write(c.Segment.Value(r.source))
			case *ast.String:
				b.Write(c.Value)
			}
		}
		b.WriteString("</code>")
	case *ast.Link:
		b.WriteString(wikiLink(string(n.Destination), strings.TrimSpace(r.inline(n, true))))
	case *ast.Image:
		b.WriteString(wikiLink(string(n.Destination), strings.TrimSpace(r.inline(n, true))))
	case *ast.AutoLink:
		b.WriteString(wikiLink(string(n.URL(r.source)), string(n.Label(r.source))))
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(r.source))
		}
	case *east.Strikethrough:
		b.WriteString("<s>")
		r.inlineChildren(b, n, oneLine)
		b.WriteString("</s>")
	case *east.TaskCheckBox:
		if n.IsChecked {
			b.WriteString("☑")
		} else {
			b.WriteString("☐")
		}
	default:
		r.inlineChildren(b, n, oneLine)
	}
}

// wikiLink renders a link target. Absolute URLs become external links,
// anything else is treated as a page name.
func wikiLink(dest, label string) string {
	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "mailto:") {
		if label == "" || label == dest {
			return dest
		}
		return "[" + dest + " " + label + "]"
	}
	if dest == "" {
		return label
	}
	if label == "" || label == dest {
		return "[[" + dest + "]]"
	}
	return "[[" + dest + "|" + label + "]]"
}

// lines returns the raw source lines of a block node.
func (r *wikiRenderer) lines(n ast.Node) string {
	var buf bytes.Buffer
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		buf.Write(seg.Value(r.source))
	}
	return buf.String()
}

// literal is the fallback for block kinds without a wiki rendering: the
// source text goes through untouched.
func (r *wikiRenderer) literal(n ast.Node) string {
	if n.Type() != ast.TypeBlock {
		return r.inline(n, false)
	}
	if n.Lines().Len() > 0 {
		return strings.TrimRight(r.lines(n), "\n")
	}
	return strings.Join(r.blocks(n), "\n\n")
}
