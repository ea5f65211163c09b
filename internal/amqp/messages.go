package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entities carried by change messages.
const (
	EntityBill   = "bill"
	EntityPayDay = "payday"
)

// Operations carried by change messages.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpRestore = "restore"
)

// ChangeMessage announces that a bill or payday was written. Consumers reload
// the records they need; the message carries only the identity.
type ChangeMessage struct {
	Entity    string    `json:"entity"`
	Operation string    `json:"operation"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage creates a change message stamped with the current time.
func NewChangeMessage(entity, operation string, id int64) *ChangeMessage {
	return &ChangeMessage{
		Entity:    entity,
		Operation: operation,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// Validate rejects unknown entities and operations.
func (m *ChangeMessage) Validate() error {
	switch m.Entity {
	case EntityBill, EntityPayDay:
	default:
		return fmt.Errorf("unknown entity %q", m.Entity)
	}
	switch m.Operation {
	case OpCreate, OpUpdate, OpDelete, OpRestore:
	default:
		return fmt.Errorf("unknown operation %q", m.Operation)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and validates a message.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
