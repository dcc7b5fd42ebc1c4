// Package graph defines the client surface for the platform's bitemporal
// event store and the file-touch event model replayed by rehydration. The
// store itself (persistence, transport, authentication) lives in another
// subsystem; this package only consumes it.
package graph

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by queries issued before Connect succeeds.
var ErrNotConnected = errors.New("graph: client not connected")

// Record is one row returned by a graph query.
type Record map[string]any

// Client is an abstract historical-event store. Implementations must honor
// context cancellation on Connect and Query; timeouts surface as connection
// errors, never silently absorbed.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Query(ctx context.Context, statement string, params map[string]any) ([]Record, error)
	IsConnected() bool
}

// SessionEventsQuery retrieves every file-touch event for a session up to a
// timestamp, totally ordered by effective time then sequence index.
const SessionEventsQuery = `
MATCH (e:FileEvent {session_id: $session_id})
WHERE e.effective_time <= $as_of
RETURN e.id AS id, e.session_id AS session_id, e.effective_time AS effective_time,
       e.sequence_index AS sequence_index, e.file_path AS file_path,
       e.action AS action, e.content AS content, e.diff AS diff
ORDER BY e.effective_time ASC, e.sequence_index ASC`

// InsertEventStatement appends one file-touch event to the store.
const InsertEventStatement = `
CREATE (e:FileEvent {id: $id, session_id: $session_id, effective_time: $effective_time,
        sequence_index: $sequence_index, file_path: $file_path, action: $action,
        content: $content, diff: $diff})
RETURN e.id AS id`
