// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wikitext

import (
	"regexp"
	"strings"
)

// enumerationPattern matches an enumeration token at the start of a title:
// dotted numbers (2.1, 1.2.3.), a number with a separator (1. 2) 3:), a
// single letter with a separator (A. b)) or a roman numeral written in one
// case (IV. xii)). A bare number with no separator ("2024 Outlook") is part of
// the title. The first group holds a roman numeral, the second an emphasis run
// closing right after the token.
var enumerationPattern = regexp.MustCompile(
	`^(?:\d+(?:\.\d+)+\.?|\d+[.):]|[A-Za-z][.)]|([IVXLCDM]{2,}|[ivxlcdm]{2,})[.)])(\*\*|__|'''|''|\*|_)?[ \t]+`)

// romanPattern accepts well-formed roman numerals, so words such as "Mix." or
// "DIM." stay in the title.
var romanPattern = regexp.MustCompile(`^(?i:M{0,3}(?:CM|CD|D?C{0,3})(?:XC|XL|L?X{0,3})(?:IX|IV|V?I{0,3}))$`)

// emphasisOpenPattern matches a Markdown or wiki emphasis run wrapping a title.
var emphasisOpenPattern = regexp.MustCompile(`^(\*\*|__|'''|''|\*|_)`)

// Normalize removes enumeration prefixes such as "1.", "2.1" or "A." from
// heading titles. Heading markers, whitespace and the remaining title are kept
// as they were. Text without headings is returned unchanged.
func Normalize(text string) string {
	out, _ := mapHeadings(text, func(_ int, h *heading) error {
		h.title = stripEnumeration(h.title)
		return nil
	})
	return out
}

func stripEnumeration(title string) string {
	open := emphasisOpenPattern.FindString(title)
	rest := title[len(open):]

	m := enumerationPattern.FindStringSubmatchIndex(rest)
	if m == nil {
		return title
	}
	if m[2] >= 0 && !romanPattern.MatchString(rest[m[2]:m[3]]) {
		return title
	}
	remainder := rest[m[1]:]
	if strings.Trim(remainder, "*_' \t") == "" {
		return title
	}

	closing := ""
	if m[4] >= 0 {
		closing = rest[m[4]:m[5]]
	}
	switch {
	case closing == "":
		return open + remainder
	case closing == open:
		// "**1.** Revenue": the emphasis only wrapped the number.
		return remainder
	default:
		return title
	}
}
