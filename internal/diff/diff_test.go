// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int, change map[int]string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if s, ok := change[i]; ok {
			b.WriteString(s + "\n")
			continue
		}
		fmt.Fprintf(&b, "l%d\n", i)
	}
	return b.String()
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		before      string
		after       string
		wantUnified string
		wantAdded   int
		wantRemoved int
		wantHunks   int
	}{
		{
			name:   "identical",
			before: "a\nb\n",
			after:  "a\nb\n",
		},
		{
			name:        "single line change",
			before:      "a\nb\nc\n",
			after:       "a\nB\nc\n",
			wantUnified: "--- a/f.txt\n+++ b/f.txt\n@@ -1,3 +1,3 @@\n a\n-b\n+B\n c\n",
			wantAdded:   1,
			wantRemoved: 1,
			wantHunks:   1,
		},
		{
			name:        "pure insertion",
			before:      "a\nc\n",
			after:       "a\nb\nc\n",
			wantUnified: "--- a/f.txt\n+++ b/f.txt\n@@ -1,2 +1,3 @@\n a\n+b\n c\n",
			wantAdded:   1,
			wantHunks:   1,
		},
		{
			name:        "new file",
			before:      "",
			after:       "x\n",
			wantUnified: "--- a/f.txt\n+++ b/f.txt\n@@ -0,0 +1,1 @@\n+x\n",
			wantAdded:   1,
			wantHunks:   1,
		},
		{
			name:        "distant changes make two hunks",
			before:      numbered(20, nil),
			after:       numbered(20, map[int]string{2: "two", 18: "eighteen"}),
			wantAdded:   2,
			wantRemoved: 2,
			wantHunks:   2,
		},
		{
			name:        "nearby changes share a hunk",
			before:      numbered(20, nil),
			after:       numbered(20, map[int]string{5: "five", 10: "ten"}),
			wantAdded:   2,
			wantRemoved: 2,
			wantHunks:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Compute("f.txt", []byte(tt.before), []byte(tt.after))
			require.NoError(t, err)
			if tt.wantUnified != "" {
				assert.Equal(t, tt.wantUnified, d.Unified)
			}
			assert.Equal(t, tt.before == tt.after, d.Empty())
			assert.Equal(t, tt.wantAdded, d.Metrics.LinesAdded)
			assert.Equal(t, tt.wantRemoved, d.Metrics.LinesRemoved)
			assert.Equal(t, tt.wantHunks, d.Metrics.Hunks)
			assert.Equal(t, len(tt.before), d.Metrics.BytesBefore)
			assert.Equal(t, len(tt.after), d.Metrics.BytesAfter)
			assert.EqualValues(t, tt.wantAdded, d.Metrics.Added+d.Metrics.Changed)
			assert.EqualValues(t, tt.wantRemoved, d.Metrics.Deleted+d.Metrics.Changed)
		})
	}
}

func TestCompute_NoTrailingNewline(t *testing.T) {
	d, err := Compute("f.txt", []byte("a\nb"), []byte("a\nc"))
	require.NoError(t, err)
	assert.Contains(t, d.Unified, "-b\n\\ No newline at end of file\n+c\n\\ No newline at end of file\n")
	assert.Equal(t, 1, d.Metrics.Hunks)
}

func TestCompute_Deterministic(t *testing.T) {
	before := numbered(30, nil)
	after := numbered(30, map[int]string{3: "x", 15: "y", 27: "z"})
	first, err := Compute("f", []byte(before), []byte(after))
	require.NoError(t, err)
	for range 5 {
		again, err := Compute("f", []byte(before), []byte(after))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAssess(t *testing.T) {
	before := numbered(20, nil)
	after := numbered(20, map[int]string{7: "seven"})
	d, err := Compute("f", []byte(before), []byte(after))
	require.NoError(t, err)

	d.Assess("short\nreplacement\n")
	assert.Zero(t, d.Metrics.Efficiency)
	assert.Empty(t, d.Metrics.Tip)

	d.Assess(after)
	assert.InDelta(t, 5.0, d.Metrics.Efficiency, 0.01)
	assert.Contains(t, d.Metrics.Tip, "5%")

	full, err := Compute("f", []byte(before), []byte(numbered(20, map[int]string{1: "a", 2: "b", 3: "c", 4: "d", 5: "e", 6: "f", 7: "g"})))
	require.NoError(t, err)
	full.Assess(after)
	assert.InDelta(t, 35.0, full.Metrics.Efficiency, 0.01)
	assert.Empty(t, full.Metrics.Tip)
}
