package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryClient is an in-memory Client implementation. It backs tests and
// embedders that want session history without an external graph store. It
// supports exactly the statements this package defines and is safe for
// concurrent use.
type MemoryClient struct {
	mu        sync.RWMutex
	connected bool
	events    []FileEvent
}

// NewMemoryClient returns an empty, disconnected in-memory store.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// Connect marks the client connected. Connecting twice is a no-op.
func (c *MemoryClient) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

// Disconnect marks the client disconnected.
func (c *MemoryClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

// IsConnected reports the connection state.
func (c *MemoryClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Seed inserts events directly, bypassing the query path. Test fixtures use
// it to build a session history without going through a Recorder.
func (c *MemoryClient) Seed(events ...FileEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
}

// Query executes one of the statements defined by this package.
func (c *MemoryClient) Query(ctx context.Context, statement string, params map[string]any) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	switch statement {
	case SessionEventsQuery:
		return c.sessionEvents(params)
	case InsertEventStatement:
		return c.insertEvent(params)
	default:
		return nil, fmt.Errorf("graph: unsupported statement: %.40q", statement)
	}
}

func (c *MemoryClient) sessionEvents(params map[string]any) ([]Record, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("graph: session query: missing session_id param")
	}
	asOf, err := decodeTime(params["as_of"])
	if err != nil {
		return nil, fmt.Errorf("graph: session query: as_of: %w", err)
	}

	c.mu.RLock()
	matched := make([]FileEvent, 0)
	for _, e := range c.events {
		if e.SessionID == sessionID && !e.EffectiveTime.After(asOf) {
			matched = append(matched, e)
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].EffectiveTime.Equal(matched[j].EffectiveTime) {
			return matched[i].EffectiveTime.Before(matched[j].EffectiveTime)
		}
		return matched[i].SequenceIndex < matched[j].SequenceIndex
	})

	rows := make([]Record, 0, len(matched))
	for _, e := range matched {
		rows = append(rows, e.Record())
	}
	return rows, nil
}

func (c *MemoryClient) insertEvent(params map[string]any) ([]Record, error) {
	e, err := DecodeFileEvent(Record(params))
	if err != nil {
		return nil, fmt.Errorf("graph: insert event: %w", err)
	}
	if e.EffectiveTime.IsZero() {
		e.EffectiveTime = time.Now()
	}
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	return []Record{{"id": e.ID.String()}}, nil
}
