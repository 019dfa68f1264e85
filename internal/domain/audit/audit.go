// Package audit defines the audit trail port used by reversal and void operations.
package audit

import (
	"context"

	"pharmaledger/internal/core/id"
)

// Action is the audited operation.
type Action string

const (
	ActionPost    Action = "post"
	ActionReverse Action = "reverse"
	ActionVoid    Action = "void"
)

// Entry is one audit record; Before/After hold snapshots of the entity.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	UserID     id.ID
	Reason     string
	Before     any
	After      any
}

// Recorder stores audit entries inside the current unit of work.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }
