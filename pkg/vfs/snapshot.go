package vfs

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// SnapshotFile is one file captured in a Snapshot.
type SnapshotFile struct {
	Path    string    `cbor:"path"`
	Content string    `cbor:"content"`
	ModTime time.Time `cbor:"mod_time"`
}

// Snapshot is a complete, serializable capture of a filesystem tree:
// every file with its full path and content, and every directory path
// including empty directories. Loading a snapshot into a fresh FileSystem
// reproduces identical read results for every path.
type Snapshot struct {
	Files []SnapshotFile `cbor:"files"`
	Dirs  []string       `cbor:"dirs"`
}

// CreateSnapshot serializes the whole tree. Files and directories are listed
// in depth-first lexicographic order, so snapshots of identical trees are
// identical.
func (fs *FileSystem) CreateSnapshot() Snapshot {
	var snap Snapshot
	_ = fs.Walk(func(e Entry) error {
		if e.IsDir {
			snap.Dirs = append(snap.Dirs, e.Path)
			return nil
		}
		snap.Files = append(snap.Files, SnapshotFile{
			Path:    e.Path,
			Content: e.Content,
			ModTime: e.ModTime,
		})
		return nil
	})
	return snap
}

// LoadSnapshot populates the filesystem to match a previously captured
// snapshot. It is intended for a freshly created, empty FileSystem.
func (fs *FileSystem) LoadSnapshot(snap Snapshot) error {
	for _, dir := range snap.Dirs {
		if err := fs.Mkdir(dir); err != nil {
			return fmt.Errorf("vfs: load snapshot dir %q: %w", dir, err)
		}
	}
	for _, f := range snap.Files {
		if err := fs.writeFileAt(f.Path, f.Content, f.ModTime); err != nil {
			return fmt.Errorf("vfs: load snapshot file %q: %w", f.Path, err)
		}
	}
	return nil
}

// snapshotWire has the same layout as Snapshot but no MarshalBinary /
// UnmarshalBinary methods, so encoding it with cbor does not re-enter
// those methods.
type snapshotWire Snapshot

// MarshalBinary encodes the snapshot as deterministic CBOR, suitable for
// transfer or at-rest storage.
func (s Snapshot) MarshalBinary() ([]byte, error) {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	mode, err := opts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("vfs: snapshot encoder: %w", err)
	}
	b, err := mode.Marshal(snapshotWire(s))
	if err != nil {
		return nil, fmt.Errorf("vfs: encode snapshot: %w", err)
	}
	return b, nil
}

// UnmarshalBinary decodes a snapshot produced by MarshalBinary.
func (s *Snapshot) UnmarshalBinary(data []byte) error {
	if err := cbor.Unmarshal(data, (*snapshotWire)(s)); err != nil {
		return fmt.Errorf("vfs: decode snapshot: %w", err)
	}
	return nil
}
