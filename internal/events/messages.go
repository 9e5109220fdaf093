package events

import (
	"encoding/json"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/shopspring/decimal"
)

// TransactionRecorded is the event type emitted after a ledger write commits.
const TransactionRecorded = "transaction.recorded"

// LedgerEvent describes a committed ledger write. Consumers fetch anything
// else they need from the store.
type LedgerEvent struct {
	Type          string                 `json:"type"`
	UserID        int64                  `json:"userId"`
	TransactionID int64                  `json:"transactionId"`
	TxType        models.TransactionType `json:"txType"`
	Amount        decimal.Decimal        `json:"amount"`
	Category      string                 `json:"category"`
	Timestamp     time.Time              `json:"timestamp"`
}

// NewTransactionRecorded builds the event for tx.
func NewTransactionRecorded(tx *models.Transaction, at time.Time) *LedgerEvent {
	return &LedgerEvent{
		Type:          TransactionRecorded,
		UserID:        tx.UserID,
		TransactionID: tx.ID,
		TxType:        tx.Type,
		Amount:        tx.Amount,
		Category:      tx.Category,
		Timestamp:     at,
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
