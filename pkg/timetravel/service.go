// Package timetravel is the query façade over rehydration: "what did the
// filesystem look like at time T during session S?"
package timetravel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gobwas/glob"

	"github.com/recallhq/chronofs/pkg/rehydrate"
	"github.com/recallhq/chronofs/pkg/vfs"
)

// Service answers point-in-time filesystem queries through one Rehydrator.
type Service struct {
	rehydrator *rehydrate.Rehydrator
}

// NewService returns a Service backed by r.
func NewService(r *rehydrate.Rehydrator) *Service {
	return &Service{rehydrator: r}
}

// ListFiles returns the entry names of the directory at path as it existed
// at ts. A session with no recorded history, or a path that did not exist
// yet, yields an empty list rather than an error.
func (s *Service) ListFiles(ctx context.Context, sessionID string, ts time.Time, path string) ([]string, error) {
	fs, err := s.rehydrator.Rehydrate(ctx, sessionID, ts)
	if err != nil {
		return nil, err
	}
	names, err := fs.ReadDir(path)
	if errors.Is(err, vfs.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return names, nil
}

// FindFiles returns the absolute paths of every file at ts whose path
// matches pattern. Patterns use glob syntax with "/" separators, so
// "/src/**/*.go" matches nested Go files.
func (s *Service) FindFiles(ctx context.Context, sessionID string, ts time.Time, pattern string) ([]string, error) {
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("timetravel: compile pattern %q: %w", pattern, err)
	}
	fs, err := s.rehydrator.Rehydrate(ctx, sessionID, ts)
	if err != nil {
		return nil, err
	}
	matches := []string{}
	_ = fs.Walk(func(e vfs.Entry) error {
		if !e.IsDir && matcher.Match(e.Path) {
			matches = append(matches, e.Path)
		}
		return nil
	})
	return matches, nil
}

// GetFilesystemState returns the full rehydrated filesystem at ts for
// further direct reads. The caller owns the returned instance.
func (s *Service) GetFilesystemState(ctx context.Context, sessionID string, ts time.Time) (*vfs.FileSystem, error) {
	return s.rehydrator.Rehydrate(ctx, sessionID, ts)
}

// GetZippedState returns the state at ts as a compressed zip archive. The
// archive is byte-for-byte reproducible from the same snapshot: entries are
// sorted, timestamps zeroed, and the compression level fixed.
func (s *Service) GetZippedState(ctx context.Context, sessionID string, ts time.Time) ([]byte, error) {
	fs, err := s.rehydrator.Rehydrate(ctx, sessionID, ts)
	if err != nil {
		return nil, err
	}
	return buildArchive(fs.CreateSnapshot(), sessionID, ts)
}
