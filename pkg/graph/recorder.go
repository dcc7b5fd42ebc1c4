package graph

import (
	"context"
	"fmt"
	"log/slog"
)

// Recorder appends file-touch events to the store through a Client. The
// store is append-only: events are never updated or removed, which is what
// makes rehydration for past timestamps safely memoizable by callers.
type Recorder struct {
	client Client
	logger *slog.Logger
}

// NewRecorder returns a Recorder writing through client. A nil logger falls
// back to slog.Default().
func NewRecorder(client Client, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{client: client, logger: logger}
}

// Record appends one event, connecting first if needed.
func (r *Recorder) Record(ctx context.Context, e FileEvent) error {
	if e.SessionID == "" {
		return fmt.Errorf("graph: record event: missing session id")
	}
	if e.FilePath == "" {
		return fmt.Errorf("graph: record event: missing file path")
	}
	if !r.client.IsConnected() {
		if err := r.client.Connect(ctx); err != nil {
			return fmt.Errorf("graph: connect: %w", err)
		}
	}
	if _, err := r.client.Query(ctx, InsertEventStatement, map[string]any(e.Record())); err != nil {
		return fmt.Errorf("graph: record event %s: %w", e.ID, err)
	}
	r.logger.Debug("graph: recorded file event",
		"session_id", e.SessionID, "file_path", e.FilePath, "action", e.Action)
	return nil
}
