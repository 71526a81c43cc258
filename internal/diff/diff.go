// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package diff computes unified diffs and change metrics between two
// buffers. Computation is pure and deterministic.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	godiff "github.com/sourcegraph/go-diff/diff"
)

const (
	contextLines = 3

	// Replacements shorter than this are not assessed for efficiency.
	efficiencyMinLines = 10
	efficiencyTipBelow = 30.0
)

// Metrics summarizes a diff.
type Metrics struct {
	LinesAdded   int `json:"lines_added"`
	LinesRemoved int `json:"lines_removed"`
	Hunks        int `json:"hunks"`
	BytesBefore  int `json:"bytes_before"`
	BytesAfter   int `json:"bytes_after"`

	// Read back from the parsed unified diff.
	Added   int32 `json:"added"`
	Changed int32 `json:"changed"`
	Deleted int32 `json:"deleted"`

	// Set by Assess for replacements over ten lines.
	Efficiency float64 `json:"efficiency,omitempty"`
	Tip        string  `json:"tip,omitempty"`
}

// Diff is a unified diff with its metrics.
type Diff struct {
	Path    string  `json:"path"`
	Unified string  `json:"unified"`
	Metrics Metrics `json:"metrics"`
}

// Empty reports whether the buffers were identical.
func (d *Diff) Empty() bool { return d.Unified == "" }

// Compute returns the unified diff from before to after, labelled with
// path, using three lines of context.
func Compute(path string, before, after []byte) (*Diff, error) {
	d := &Diff{
		Path: path,
		Metrics: Metrics{
			BytesBefore: len(before),
			BytesAfter:  len(after),
		},
	}
	if string(before) == string(after) {
		return d, nil
	}

	lines := lineOps(string(before), string(after))
	hunks := group(lines)

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)
	for _, h := range hunks {
		h.write(&b, lines)
	}
	d.Unified = b.String()

	for _, l := range lines {
		switch l.op {
		case diffmatchpatch.DiffInsert:
			d.Metrics.LinesAdded++
		case diffmatchpatch.DiffDelete:
			d.Metrics.LinesRemoved++
		}
	}
	d.Metrics.Hunks = len(hunks)

	fd, err := godiff.ParseFileDiff([]byte(d.Unified))
	if err != nil {
		return nil, fmt.Errorf("reading back diff for %s: %w", path, err)
	}
	st := fd.Stat()
	d.Metrics.Added, d.Metrics.Changed, d.Metrics.Deleted = st.Added, st.Changed, st.Deleted
	return d, nil
}

// Assess records how much of a replacement actually changed the buffer.
// Only replacements longer than ten lines are assessed; below 30% a tip
// suggests a narrower target.
func (d *Diff) Assess(replacement string) {
	n := countLines(replacement)
	if n <= efficiencyMinLines {
		return
	}
	changed := max(d.Metrics.LinesAdded, d.Metrics.LinesRemoved)
	pct := min(100, float64(changed)*100/float64(n))
	d.Metrics.Efficiency = pct
	if pct < efficiencyTipBelow {
		d.Metrics.Tip = fmt.Sprintf(
			"only %.0f%% of the %d replacement lines changed the file; target a smaller node or use replace_exact",
			pct, n)
	}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

type line struct {
	op     diffmatchpatch.Operation
	text   string
	noEOL  bool
	oldNum int
	newNum int
}

// lineOps runs a line-mode diff and flattens it into one entry per line.
func lineOps(before, after string) []line {
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table)

	var out []line
	oldNum, newNum := 0, 0
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			l := line{op: d.Type, text: strings.TrimSuffix(text, "\n"), noEOL: !strings.HasSuffix(text, "\n")}
			if d.Type != diffmatchpatch.DiffInsert {
				oldNum++
			}
			if d.Type != diffmatchpatch.DiffDelete {
				newNum++
			}
			l.oldNum, l.newNum = oldNum, newNum
			out = append(out, l)
		}
	}
	return out
}

func splitLines(s string) []string {
	var out []string
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

type hunk struct{ from, to int }

// group clusters changed lines into hunks, merging changes whose context
// windows overlap.
func group(lines []line) []hunk {
	var hunks []hunk
	for i, l := range lines {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		from := max(0, i-contextLines)
		to := min(len(lines), i+contextLines+1)
		if n := len(hunks); n > 0 && from <= hunks[n-1].to {
			hunks[n-1].to = to
			continue
		}
		hunks = append(hunks, hunk{from: from, to: to})
	}
	return hunks
}

func (h hunk) write(b *strings.Builder, lines []line) {
	oldCount, newCount := 0, 0
	oldStart, newStart := 0, 0
	for _, l := range lines[h.from:h.to] {
		if l.op != diffmatchpatch.DiffInsert {
			if oldCount == 0 {
				oldStart = l.oldNum
			}
			oldCount++
		}
		if l.op != diffmatchpatch.DiffDelete {
			if newCount == 0 {
				newStart = l.newNum
			}
			newCount++
		}
	}
	// An empty side is anchored at the line preceding the hunk.
	if oldCount == 0 {
		oldStart = lines[h.from].oldNum
	}
	if newCount == 0 {
		newStart = lines[h.from].newNum
	}
	fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)

	for _, l := range lines[h.from:h.to] {
		prefix := byte(' ')
		switch l.op {
		case diffmatchpatch.DiffInsert:
			prefix = '+'
		case diffmatchpatch.DiffDelete:
			prefix = '-'
		}
		b.WriteByte(prefix)
		b.WriteString(l.text)
		b.WriteByte('\n')
		if l.noEOL {
			b.WriteString("\\ No newline at end of file\n")
		}
	}
}
