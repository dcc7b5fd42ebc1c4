// Package rehydrate reconstructs point-in-time filesystem state by replaying
// a session's recorded file-touch history into a fresh vfs.FileSystem.
// Replay is a pure fold over a totally ordered event sequence, so two calls
// for the same session and timestamp against an unchanged history produce
// identical read results.
package rehydrate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/recallhq/chronofs/pkg/graph"
	"github.com/recallhq/chronofs/pkg/patch"
	"github.com/recallhq/chronofs/pkg/vfs"
)

// Rehydrator replays session histories fetched from a graph.Client. Distinct
// Rehydrate calls are independent: each allocates its own filesystem, so
// they may run concurrently.
type Rehydrator struct {
	client graph.Client
	logger *slog.Logger
}

// New returns a Rehydrator reading from client. A nil logger falls back to
// slog.Default().
func New(client graph.Client, logger *slog.Logger) *Rehydrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rehydrator{client: client, logger: logger}
}

// Rehydrate returns a freshly built filesystem reflecting every event of
// sessionID with an effective time at or before asOf. It issues exactly one
// query; the replay that follows is bounded, synchronous computation.
//
// Replay is best-effort reconstruction: an event that no longer applies
// cleanly (for example a diff whose base content has drifted because an
// earlier event was itself skipped) is skipped with a warning, never
// aborting the whole replay.
func (r *Rehydrator) Rehydrate(ctx context.Context, sessionID string, asOf time.Time) (*vfs.FileSystem, error) {
	if !r.client.IsConnected() {
		if err := r.client.Connect(ctx); err != nil {
			return nil, fmt.Errorf("rehydrate: connect event store: %w", err)
		}
	}

	rows, err := r.client.Query(ctx, graph.SessionEventsQuery, map[string]any{
		"session_id": sessionID,
		"as_of":      asOf,
	})
	if err != nil {
		return nil, fmt.Errorf("rehydrate: query session history: %w", err)
	}

	events := make([]graph.FileEvent, 0, len(rows))
	for _, row := range rows {
		e, decodeErr := graph.DecodeFileEvent(row)
		if decodeErr != nil {
			r.logger.Warn("rehydrate: skipping undecodable event row",
				"session_id", sessionID, "err", decodeErr)
			continue
		}
		events = append(events, e)
	}

	// The query orders rows, but determinism must not depend on driver
	// behavior. Re-sort into the canonical total order.
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].EffectiveTime.Equal(events[j].EffectiveTime) {
			return events[i].EffectiveTime.Before(events[j].EffectiveTime)
		}
		return events[i].SequenceIndex < events[j].SequenceIndex
	})

	fs := vfs.New()
	pm := patch.NewManager(fs)
	for _, e := range events {
		r.applyEvent(fs, pm, e)
	}
	return fs, nil
}

// applyEvent maps one event onto a filesystem mutation. Failures are logged
// and the event skipped; a panic from a malformed historical payload is
// normalized to a string message at this boundary.
func (r *Rehydrator) applyEvent(fs *vfs.FileSystem, pm *patch.Manager, e graph.FileEvent) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Warn("rehydrate: skipping event after panic",
				"session_id", e.SessionID, "file_path", e.FilePath,
				"action", e.Action, "err", normalizeMessage(v))
		}
	}()

	var err error
	switch e.Action {
	case graph.ActionCreate, graph.ActionEdit:
		switch {
		case e.Content != nil:
			err = fs.WriteFile(e.FilePath, *e.Content)
		case e.Diff != nil:
			err = pm.ApplyUnifiedDiff(e.FilePath, *e.Diff)
		default:
			r.logger.Warn("rehydrate: skipping event with no content or diff",
				"session_id", e.SessionID, "file_path", e.FilePath, "action", e.Action)
		}
	case graph.ActionDelete:
		if fs.Exists(e.FilePath) {
			err = fs.Remove(e.FilePath)
		}
	case graph.ActionRead:
		// Informational only; no mutation.
	default:
		r.logger.Warn("rehydrate: skipping event with unknown action",
			"session_id", e.SessionID, "file_path", e.FilePath, "action", e.Action)
	}

	if err != nil {
		r.logger.Warn("rehydrate: skipping event that no longer applies",
			"session_id", e.SessionID, "file_path", e.FilePath,
			"action", e.Action, "err", err)
	}
}

// normalizeMessage converts an arbitrary recovered value into a stable
// string message for callers.
func normalizeMessage(v any) string {
	switch m := v.(type) {
	case error:
		return m.Error()
	case string:
		return m
	case fmt.Stringer:
		return m.String()
	default:
		return "unknown error"
	}
}
