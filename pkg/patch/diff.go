package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LineKind classifies one line within a hunk.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdd
	LineRemove
)

// HunkLine is a single context, added, or removed line.
type HunkLine struct {
	Kind LineKind
	Text string
}

// Hunk is one contiguous block of changes from a unified diff. The start and
// count fields come from the "@@ -a,b +c,d @@" header; they are a placement
// hint only, since file content may have drifted since the diff was made.
type Hunk struct {
	OriginalStart int
	OriginalCount int
	NewStart      int
	NewCount      int
	Lines         []HunkLine
}

// Patch is a parsed unified diff: the source/target headers and one or more
// hunks. IsCreation is set when the source header names /dev/null.
type Patch struct {
	SourceFile        string
	TargetFile        string
	Hunks             []Hunk
	IsCreation        bool
	NoTrailingNewline bool
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// ParseUnifiedDiff parses standard unified diff text: optional "---"/"+++"
// file headers followed by "@@" hunks with leading-space context lines,
// "-" removals and "+" additions. A "\ No newline at end of file" marker
// after the final line records that the target content has no trailing
// newline.
func ParseUnifiedDiff(text string) (*Patch, error) {
	p := &Patch{}
	var current *Hunk

	for _, line := range splitLines(text) {
		switch {
		case strings.HasPrefix(line, "--- "):
			p.SourceFile = strings.TrimSpace(strings.TrimPrefix(line, "--- "))
			if stripPrefixMarker(p.SourceFile) == "/dev/null" {
				p.IsCreation = true
			}
		case strings.HasPrefix(line, "+++ "):
			p.TargetFile = strings.TrimSpace(strings.TrimPrefix(line, "+++ "))
		case strings.HasPrefix(line, "@@"):
			m := hunkHeaderRe.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("patch: malformed hunk header %q", line)
			}
			h := Hunk{
				OriginalStart: atoiDefault(m[1], 1),
				OriginalCount: atoiDefault(m[2], 1),
				NewStart:      atoiDefault(m[3], 1),
				NewCount:      atoiDefault(m[4], 1),
			}
			p.Hunks = append(p.Hunks, h)
			current = &p.Hunks[len(p.Hunks)-1]
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file"
			p.NoTrailingNewline = true
		case current != nil:
			switch {
			case strings.HasPrefix(line, "+"):
				current.Lines = append(current.Lines, HunkLine{Kind: LineAdd, Text: line[1:]})
			case strings.HasPrefix(line, "-"):
				current.Lines = append(current.Lines, HunkLine{Kind: LineRemove, Text: line[1:]})
			case strings.HasPrefix(line, " "):
				current.Lines = append(current.Lines, HunkLine{Kind: LineContext, Text: line[1:]})
			case line == "":
				// Some transports strip the single leading space from
				// blank context lines.
				current.Lines = append(current.Lines, HunkLine{Kind: LineContext, Text: ""})
			default:
				return nil, fmt.Errorf("patch: unexpected line %q in hunk", line)
			}
		}
	}

	if len(p.Hunks) == 0 {
		return nil, fmt.Errorf("patch: no hunks found in diff")
	}
	return p, nil
}

// stripPrefixMarker removes the conventional "a/" or "b/" git prefix.
func stripPrefixMarker(name string) string {
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// match returns the lines the hunk expects to find in the current content
// (context plus removals, in order).
func (h Hunk) match() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == LineContext || l.Kind == LineRemove {
			out = append(out, l.Text)
		}
	}
	return out
}

// replacement returns the lines the hunk produces (context plus additions,
// in order).
func (h Hunk) replacement() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == LineContext || l.Kind == LineAdd {
			out = append(out, l.Text)
		}
	}
	return out
}

// AddedLines returns only the added lines, used for /dev/null creation
// diffs where the whole target content is additions.
func (h Hunk) AddedLines() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == LineAdd {
			out = append(out, l.Text)
		}
	}
	return out
}

// applyHunk locates the hunk's context+removed lines as a contiguous exact
// run within lines and replaces that run with the context+added lines. The
// header's original start is tried first as a hint; when it does not match,
// the whole file is scanned. It returns ErrPatchFailed when the run cannot
// be located, leaving the input untouched.
func applyHunk(lines []string, h Hunk) ([]string, error) {
	match := h.match()
	repl := h.replacement()

	if len(match) == 0 {
		// Pure insertion: the header start is the only placement we have.
		pos := h.OriginalStart
		if pos > len(lines) {
			pos = len(lines)
		}
		if pos < 0 {
			pos = 0
		}
		return spliceLines(lines, pos, 0, repl), nil
	}

	pos, ok := findRun(lines, match, h.OriginalStart-1)
	if !ok {
		return nil, ErrPatchFailed
	}
	return spliceLines(lines, pos, len(match), repl), nil
}

// findRun searches for match as a contiguous run in lines, preferring the
// hinted position before scanning from the top.
func findRun(lines, match []string, hint int) (int, bool) {
	if hint >= 0 && runMatchesAt(lines, match, hint) {
		return hint, true
	}
	for i := 0; i+len(match) <= len(lines); i++ {
		if runMatchesAt(lines, match, i) {
			return i, true
		}
	}
	return 0, false
}

func runMatchesAt(lines, match []string, pos int) bool {
	if pos+len(match) > len(lines) {
		return false
	}
	for i, m := range match {
		if lines[pos+i] != m {
			return false
		}
	}
	return true
}

// spliceLines replaces the run [pos, pos+count) with repl, copying so the
// input slice is never aliased or mutated.
func spliceLines(lines []string, pos, count int, repl []string) []string {
	out := make([]string, 0, len(lines)-count+len(repl))
	out = append(out, lines[:pos]...)
	out = append(out, repl...)
	out = append(out, lines[pos+count:]...)
	return out
}

// splitLines splits content into lines, normalizing line endings. Empty
// content yields an empty slice, and a trailing newline does not produce a
// trailing empty line.
func splitLines(content string) []string {
	if content == "" {
		return []string{}
	}
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// LineChanges counts the lines added and removed by a patch, for callers
// that report edit metadata.
type LineChanges struct {
	LinesAdded   int
	LinesRemoved int
}

// Stats totals the added and removed lines across all hunks.
func (p *Patch) Stats() LineChanges {
	var c LineChanges
	for _, h := range p.Hunks {
		for _, l := range h.Lines {
			switch l.Kind {
			case LineAdd:
				c.LinesAdded++
			case LineRemove:
				c.LinesRemoved++
			}
		}
	}
	return c
}
