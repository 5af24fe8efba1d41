package ui

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffOp classifies a diff line.
type DiffOp int

const (
	DiffEqual DiffOp = iota
	DiffInsert
	DiffDelete
	// DiffHunk marks a run of elided unchanged lines.
	DiffHunk
)

// DiffLine is one rendered line of a line diff.
type DiffLine struct {
	Op   DiffOp
	Text string
}

// LineDiff compares before and after line by line. Unchanged runs further
// than context lines from a change collapse into a single DiffHunk line;
// a negative context keeps every line. Identical inputs yield nil.
func LineDiff(before, after string, context int) []DiffLine {
	if before == after {
		return nil
	}

	dmp := diffmatchpatch.New()
	a, b, index := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), index)

	var all []DiffLine
	for _, d := range diffs {
		op := DiffEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = DiffInsert
		case diffmatchpatch.DiffDelete:
			op = DiffDelete
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			all = append(all, DiffLine{Op: op, Text: strings.TrimSuffix(l, "\n")})
		}
	}
	if context < 0 {
		return all
	}

	keep := make([]bool, len(all))
	for i, l := range all {
		if l.Op == DiffEqual {
			continue
		}
		for j := max(0, i-context); j <= min(len(all)-1, i+context); j++ {
			keep[j] = true
		}
	}

	out := make([]DiffLine, 0, len(all))
	skipped := 0
	flush := func() {
		if skipped > 0 {
			out = append(out, DiffLine{Op: DiffHunk, Text: fmt.Sprintf("@@ %d unchanged lines @@", skipped)})
			skipped = 0
		}
	}
	for i, l := range all {
		if !keep[i] {
			skipped++
			continue
		}
		flush()
		out = append(out, l)
	}
	flush()
	return out
}

// DiffStats counts inserted and deleted lines.
func DiffStats(lines []DiffLine) (inserted, deleted int) {
	for _, l := range lines {
		switch l.Op {
		case DiffInsert:
			inserted++
		case DiffDelete:
			deleted++
		}
	}
	return inserted, deleted
}
