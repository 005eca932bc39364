package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is one audit-log row produced by a committed invocation.
type Event struct {
	InvocationID uuid.UUID
	Action       string
	Sender       string
	Amount       decimal.NullDecimal
	Attributes   json.RawMessage
}

// EventRow is an Event as read back from the log, with the columns the
// database fills in.
type EventRow struct {
	ID           int64
	InvocationID uuid.UUID
	Height       uint64
	Action       string
	Sender       string
	Amount       decimal.NullDecimal
	Attributes   json.RawMessage
	CreatedAt    time.Time
}
