// Package patch mutates a single vfs.FileSystem through search/replace
// edits and unified diffs. Every operation computes the full replacement
// content before writing, so a failed patch never leaves a file partially
// written.
package patch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/recallhq/chronofs/pkg/vfs"
)

var (
	// ErrSearchNotFound is returned when the search block of a
	// search/replace edit is absent from the file. Stable literal matched
	// by tool layers.
	ErrSearchNotFound = errors.New("Search block not found")

	// ErrPatchFailed is returned when a diff hunk's context cannot be
	// located in the current file content. Stable literal matched by tool
	// layers.
	ErrPatchFailed = errors.New("Failed to apply patch")
)

// Manager applies patches to exactly one filesystem instance.
type Manager struct {
	fs *vfs.FileSystem
}

// NewManager returns a Manager bound to fs.
func NewManager(fs *vfs.FileSystem) *Manager {
	return &Manager{fs: fs}
}

// ApplySearchReplace replaces the first occurrence of search in the file at
// path with replace. Repeated calls perform independent sequential
// replacements, not a single global substitution.
func (m *Manager) ApplySearchReplace(path, search, replace string) error {
	content, err := m.fs.ReadFile(path)
	if err != nil {
		return err
	}
	idx := strings.Index(content, search)
	if idx < 0 {
		return ErrSearchNotFound
	}
	updated := content[:idx] + replace + content[idx+len(search):]
	return m.fs.WriteFile(path, updated)
}

// ApplyUnifiedDiff applies a unified diff to the file at path. A diff whose
// source header names /dev/null creates the file from the added lines,
// regardless of any prior state. Otherwise each hunk is located by exact
// content match and replaced in order; if any hunk cannot be located the
// file is left byte-for-byte unchanged and ErrPatchFailed is returned.
func (m *Manager) ApplyUnifiedDiff(path, diffText string) error {
	p, err := ParseUnifiedDiff(diffText)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPatchFailed, err)
	}

	if p.IsCreation {
		added := p.Hunks[0].AddedLines()
		content := strings.Join(added, "\n")
		if len(added) > 0 && !p.NoTrailingNewline {
			content += "\n"
		}
		return m.fs.WriteFile(path, content)
	}

	current, err := m.fs.ReadFile(path)
	if err != nil {
		return err
	}

	hadTrailingNewline := strings.HasSuffix(current, "\n")
	var lines []string
	if current != "" {
		lines = strings.Split(strings.TrimSuffix(current, "\n"), "\n")
	}

	for _, h := range p.Hunks {
		lines, err = applyHunk(lines, h)
		if err != nil {
			return err
		}
	}

	updated := strings.Join(lines, "\n")
	if len(lines) > 0 && hadTrailingNewline && !p.NoTrailingNewline {
		updated += "\n"
	}
	return m.fs.WriteFile(path, updated)
}
