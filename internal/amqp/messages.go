package amqp

import (
	"encoding/json"
	"time"
)

// TransactionEvent describes one applied income or expense mutation. The
// audit worker consumes these and appends them to the audit log.
type TransactionEvent struct {
	Entity      string    `json:"entity"` // "income" or "expense"
	Action      string    `json:"action"` // "create", "update" or "delete"
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewTransactionEvent creates an event stamped with the current time.
func NewTransactionEvent(entity, action string, id, userID, amountCents int64) *TransactionEvent {
	return &TransactionEvent{
		Entity:      entity,
		Action:      action,
		ID:          id,
		UserID:      userID,
		AmountCents: amountCents,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON parses an event from JSON bytes.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
