// Package vfs provides an in-memory hierarchical filesystem used as the
// replay target for session time-travel. A FileSystem is created empty (root
// directory only), mutated in place, and discarded when no longer needed;
// there is no shared global instance. It is not safe for unsynchronized
// concurrent mutation from multiple goroutines.
package vfs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrInvalidPath is returned when a path normalizes to zero segments.
	ErrInvalidPath = errors.New("vfs: invalid path")

	// ErrNotFound is returned when no node exists at the requested path.
	// The message is a stable literal that tool layers match on.
	ErrNotFound = errors.New("File not found")

	// ErrTypeMismatch is returned when a file is used as a directory or a
	// directory as a file.
	ErrTypeMismatch = errors.New("vfs: type mismatch")
)

type nodeKind int

const (
	kindFile nodeKind = iota
	kindDir
)

// node is the tagged union behind the tree: a file carries content and a
// modification time, a directory carries named children. Children are owned
// exclusively by their parent, so the structure is always a tree.
type node struct {
	kind     nodeKind
	content  string
	modTime  time.Time
	children map[string]*node
}

func newDirNode() *node {
	return &node{kind: kindDir, children: make(map[string]*node)}
}

// FileSystem is an in-memory tree of files and directories. The root is
// always a directory and is never absent.
type FileSystem struct {
	root *node
}

// New returns an empty filesystem containing only the root directory.
func New() *FileSystem {
	return &FileSystem{root: newDirNode()}
}

// splitPath normalizes a path by splitting on "/" and discarding empty
// segments. No resolution of "." or ".." is performed: a segment named ".."
// is an ordinary directory name, not an instruction to move up a level.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// lookup resolves a path to its node. Zero segments resolve to the root
// directory; reads on the root are valid even though mutations reject it.
func (fs *FileSystem) lookup(path string) (*node, error) {
	current := fs.root
	for _, seg := range splitPath(path) {
		if current.kind != kindDir {
			return nil, fmt.Errorf("%w: %q is not a directory", ErrTypeMismatch, seg)
		}
		child, ok := current.children[seg]
		if !ok {
			return nil, ErrNotFound
		}
		current = child
	}
	return current, nil
}

// ensureDir walks the given segments from the root, creating missing
// directories along the way. It fails if any segment resolves to a file.
func (fs *FileSystem) ensureDir(segments []string) (*node, error) {
	current := fs.root
	for _, seg := range segments {
		child, ok := current.children[seg]
		if !ok {
			child = newDirNode()
			current.children[seg] = child
		}
		if child.kind != kindDir {
			return nil, fmt.Errorf("%w: %q is a file, not a directory", ErrTypeMismatch, seg)
		}
		current = child
	}
	return current, nil
}

// WriteFile creates or overwrites the file at path, creating all missing
// parent directories. The file's modification time is set to now.
func (fs *FileSystem) WriteFile(path, content string) error {
	return fs.writeFileAt(path, content, time.Now())
}

func (fs *FileSystem) writeFileAt(path, content string, modTime time.Time) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	parent, err := fs.ensureDir(segments[:len(segments)-1])
	if err != nil {
		return err
	}
	name := segments[len(segments)-1]
	if existing, ok := parent.children[name]; ok && existing.kind == kindDir {
		return fmt.Errorf("%w: %q is a directory", ErrTypeMismatch, name)
	}
	parent.children[name] = &node{kind: kindFile, content: content, modTime: modTime}
	return nil
}

// ReadFile returns the content of the file at path.
func (fs *FileSystem) ReadFile(path string) (string, error) {
	n, err := fs.lookup(path)
	if err != nil {
		return "", err
	}
	if n.kind != kindFile {
		return "", fmt.Errorf("%w: %q is a directory", ErrTypeMismatch, path)
	}
	return n.content, nil
}

// Exists reports whether a file or directory exists at path. It never
// returns an error; the root always exists.
func (fs *FileSystem) Exists(path string) bool {
	_, err := fs.lookup(path)
	return err == nil
}

// Mkdir creates the full directory chain for path. Calling it twice for the
// same path is a no-op. Creating a directory where a file already exists
// fails with ErrTypeMismatch.
func (fs *FileSystem) Mkdir(path string) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	_, err := fs.ensureDir(segments)
	return err
}

// ReadDir returns the names of the entries in the directory at path, sorted
// lexicographically. The empty or root path lists the root directory.
func (fs *FileSystem) ReadDir(path string) ([]string, error) {
	n, err := fs.lookup(path)
	if err != nil {
		return nil, err
	}
	if n.kind != kindDir {
		return nil, fmt.Errorf("%w: %q is a file", ErrTypeMismatch, path)
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes the node at path, including an entire subtree when the node
// is a directory. Removing the root is rejected as an invalid path.
func (fs *FileSystem) Remove(path string) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	parent, err := fs.lookup("/" + strings.Join(segments[:len(segments)-1], "/"))
	if err != nil {
		return err
	}
	if parent.kind != kindDir {
		return fmt.Errorf("%w: parent of %q is a file", ErrTypeMismatch, path)
	}
	name := segments[len(segments)-1]
	if _, ok := parent.children[name]; !ok {
		return ErrNotFound
	}
	delete(parent.children, name)
	return nil
}

// Entry describes one node during a Walk.
type Entry struct {
	Path    string
	IsDir   bool
	Content string
	ModTime time.Time
}

// Walk visits every node below the root in depth-first, lexicographic order.
// Paths are absolute ("/a/b/c.txt"). Returning an error from fn stops the
// walk and propagates the error.
func (fs *FileSystem) Walk(fn func(e Entry) error) error {
	return walkNode(fs.root, "", fn)
}

func walkNode(n *node, prefix string, fn func(e Entry) error) error {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		child := n.children[name]
		childPath := prefix + "/" + name
		entry := Entry{Path: childPath, IsDir: child.kind == kindDir}
		if child.kind == kindFile {
			entry.Content = child.content
			entry.ModTime = child.modTime
		}
		if err := fn(entry); err != nil {
			return err
		}
		if child.kind == kindDir {
			if err := walkNode(child, childPath, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
