// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wikitext

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBlock = "# Revenue\n\nThe company sells widgets.\n\n## Segments\n\nTwo of them.\n\n# Margins\n"

func TestRelevel(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		target int
		want   string
	}{
		{
			name:   "shift markdown down two",
			in:     sampleBlock,
			target: 3,
			want:   "### Revenue\n\nThe company sells widgets.\n\n#### Segments\n\nTwo of them.\n\n### Margins\n",
		},
		{
			name:   "target one keeps native depth",
			in:     sampleBlock,
			target: 1,
			want:   sampleBlock,
		},
		{
			name:   "wiki headings",
			in:     "== A ==\ntext\n=== B ===",
			target: 2,
			want:   "=== A ===\ntext\n==== B ====",
		},
		{
			name:   "already leveled text moves from its shallowest heading",
			in:     "### A\n#### B",
			target: 2,
			want:   "## A\n### B",
		},
		{
			name:   "single equals line is text",
			in:     "= 5 =\n## A",
			target: 2,
			want:   "= 5 =\n## A",
		},
		{
			name:   "code fence comments stay",
			in:     "# Title\n```sh\n# comment\n```",
			target: 2,
			want:   "## Title\n```sh\n# comment\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Relevel(tt.in, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelevelRoundTrip(t *testing.T) {
	for _, target := range []int{1, 2, 3, 4} {
		shifted, err := Relevel(sampleBlock, target)
		require.NoError(t, err)

		restored, err := Relevel(shifted, 1)
		require.NoError(t, err)
		assert.Equal(t, Headings(sampleBlock), Headings(restored), "target %d", target)
	}
}

func TestRelevelNoHeadings(t *testing.T) {
	in := "plain paragraph\n\n- a list\n- 1. not a heading"
	for _, target := range []int{-3, 0, 1, 4, 99} {
		got, err := Relevel(in, target)
		require.NoError(t, err, "target %d", target)
		assert.Equal(t, in, got, "target %d", target)
	}
}

func TestRelevelInvalidDepth(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		target   int
		wantLine int
	}{
		{name: "zero target", in: "# A", target: 0, wantLine: 1},
		{name: "negative target", in: "text\n# A", target: -2, wantLine: 2},
		{name: "too deep", in: "# A\n## B", target: MaxDepth, wantLine: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Relevel(tt.in, tt.target)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDepth))

			var depthErr *DepthError
			require.True(t, errors.As(err, &depthErr))
			assert.Equal(t, tt.wantLine, depthErr.Line)
		})
	}
}

func TestShift(t *testing.T) {
	got, err := Shift("### a\nbody\n#### b", -2)
	require.NoError(t, err)
	assert.Equal(t, "# a\nbody\n## b", got)

	back, err := Shift(got, 2)
	require.NoError(t, err)
	assert.Equal(t, "### a\nbody\n#### b", back)
}

func TestHeadings(t *testing.T) {
	assert.Equal(t, []int{1, 2, 1}, Headings(sampleBlock))
	assert.Equal(t, []int{1, 2}, Headings("== a ==\n=== b ==="))
	assert.Empty(t, Headings("no headings here"))
	assert.Empty(t, Headings("====\n#hashtag"))
	assert.Empty(t, Headings("= x ="))
}
