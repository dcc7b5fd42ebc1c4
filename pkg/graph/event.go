package graph

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of file touch an event records.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// FileEvent is one recorded file touch within a session. Content carries the
// full file content for create/edit events; Diff carries a unified diff for
// edit events recorded as deltas. Both are nil when the event has neither
// (read and delete events).
type FileEvent struct {
	ID            uuid.UUID
	SessionID     string
	EffectiveTime time.Time
	SequenceIndex int64
	FilePath      string
	Action        Action
	Content       *string
	Diff          *string
}

// NewContentEvent builds a create or edit event carrying full file content.
func NewContentEvent(sessionID, filePath string, action Action, at time.Time, seq int64, content string) FileEvent {
	return FileEvent{
		ID:            uuid.New(),
		SessionID:     sessionID,
		EffectiveTime: at,
		SequenceIndex: seq,
		FilePath:      filePath,
		Action:        action,
		Content:       &content,
	}
}

// NewDiffEvent builds an edit event carrying only a unified diff.
func NewDiffEvent(sessionID, filePath string, at time.Time, seq int64, diff string) FileEvent {
	return FileEvent{
		ID:            uuid.New(),
		SessionID:     sessionID,
		EffectiveTime: at,
		SequenceIndex: seq,
		FilePath:      filePath,
		Action:        ActionEdit,
		Diff:          &diff,
	}
}

// NewActionEvent builds a read or delete event, which carries no payload.
func NewActionEvent(sessionID, filePath string, action Action, at time.Time, seq int64) FileEvent {
	return FileEvent{
		ID:            uuid.New(),
		SessionID:     sessionID,
		EffectiveTime: at,
		SequenceIndex: seq,
		FilePath:      filePath,
		Action:        action,
	}
}

// Record flattens the event into query parameters for InsertEventStatement.
// Absent payload fields are encoded as explicit nils so the stored node has
// a stable property set.
func (e FileEvent) Record() Record {
	r := Record{
		"id":             e.ID.String(),
		"session_id":     e.SessionID,
		"effective_time": e.EffectiveTime,
		"sequence_index": e.SequenceIndex,
		"file_path":      e.FilePath,
		"action":         string(e.Action),
		"content":        nil,
		"diff":           nil,
	}
	if e.Content != nil {
		r["content"] = *e.Content
	}
	if e.Diff != nil {
		r["diff"] = *e.Diff
	}
	return r
}

// DecodeFileEvent converts one query row into a FileEvent. Drivers differ in
// how they surface temporal and numeric properties, so timestamps accept
// time.Time or RFC 3339 strings and sequence indices accept any integer or
// float type.
func DecodeFileEvent(r Record) (FileEvent, error) {
	var e FileEvent

	sessionID, ok := r["session_id"].(string)
	if !ok {
		return e, fmt.Errorf("graph: event row missing session_id")
	}
	filePath, ok := r["file_path"].(string)
	if !ok {
		return e, fmt.Errorf("graph: event row missing file_path")
	}
	actionStr, ok := r["action"].(string)
	if !ok {
		return e, fmt.Errorf("graph: event row missing action")
	}

	effective, err := decodeTime(r["effective_time"])
	if err != nil {
		return e, fmt.Errorf("graph: event row effective_time: %w", err)
	}
	seq, err := decodeInt(r["sequence_index"])
	if err != nil {
		return e, fmt.Errorf("graph: event row sequence_index: %w", err)
	}

	if idStr, ok := r["id"].(string); ok {
		if id, parseErr := uuid.Parse(idStr); parseErr == nil {
			e.ID = id
		}
	}

	e.SessionID = sessionID
	e.EffectiveTime = effective
	e.SequenceIndex = seq
	e.FilePath = filePath
	e.Action = Action(actionStr)

	if content, ok := r["content"].(string); ok {
		e.Content = &content
	}
	if diff, ok := r["diff"].(string); ok {
		e.Diff = &diff
	}
	return e, nil
}

func decodeTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse %q: %w", t, err)
		}
		return parsed, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", v)
	}
}

func decodeInt(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
