package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OperationInsert is the only database operation this service reacts to.
const OperationInsert = "INSERT"

// ErrInvalidEvent marks an inbound envelope that fails validation: wrong
// operation, wrong table, or a shape we cannot decode. These are rejected
// before any other component is touched.
var ErrInvalidEvent = errors.New("invalid webhook event")

// Envelope is the database webhook wrapper around an inserted record.
// OldRecord is kept as raw bytes: some webhook sources send it, some send
// null, some misspell the key — we never look at it either way.
type Envelope[T any] struct {
	Type      string          `json:"type"`
	Table     string          `json:"table"`
	Schema    string          `json:"schema,omitempty"`
	Record    T               `json:"record"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// Validate checks that the envelope is an INSERT on the expected table.
func (e *Envelope[T]) Validate(table string) error {
	if e.Type != OperationInsert {
		return fmt.Errorf("%w: operation %q, want %q", ErrInvalidEvent, e.Type, OperationInsert)
	}
	if e.Table != table {
		return fmt.Errorf("%w: table %q, want %q", ErrInvalidEvent, e.Table, table)
	}
	return nil
}
