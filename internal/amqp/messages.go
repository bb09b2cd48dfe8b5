package amqp

import (
	"encoding/json"
	"time"

	"atlas/internal/core"
)

const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
)

// LedgerEvent announces a change to one ledger row. Consumers fetch the row
// itself when they need it.
type LedgerEvent struct {
	Type          string    `json:"type"`
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(eventType string, userID, transactionID int64) LedgerEvent {
	return LedgerEvent{
		Type:          eventType,
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ReminderMessage is one upcoming, unacknowledged expense of a user.
type ReminderMessage struct {
	UserID        int64      `json:"user_id"`
	TransactionID int64      `json:"transaction_id"`
	Name          string     `json:"name"`
	Category      string     `json:"category,omitempty"`
	Amount        core.Money `json:"amount"`
	DueDate       core.Date  `json:"due_date"`
	DaysUntil     int        `json:"days_until"`
	Timestamp     time.Time  `json:"timestamp"`
}

func NewReminderMessage(t core.Transaction, today core.Date) ReminderMessage {
	return ReminderMessage{
		UserID:        t.UserID,
		TransactionID: t.ID,
		Name:          t.Name,
		Category:      t.Category,
		Amount:        t.Amount,
		DueDate:       t.Date,
		DaysUntil:     today.DaysUntil(t.Date),
		Timestamp:     time.Now(),
	}
}

func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (m ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var e LedgerEvent
	err := json.Unmarshal(data, &e)
	return e, err
}

func ReminderMessageFromJSON(data []byte) (ReminderMessage, error) {
	var m ReminderMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
