package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"saldo/internal/core"
)

// ChangeOp names the mutation that produced a ChangeMessage.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
)

// ChangeMessage tells consumers that one period of one owner changed. It
// carries no record data; consumers read the period back from storage.
type ChangeMessage struct {
	Owner     string    `json:"owner"`
	ExpenseID string    `json:"expense_id"`
	Op        ChangeOp  `json:"op"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(owner, expenseID string, op ChangeOp, period core.Period) ChangeMessage {
	return ChangeMessage{
		Owner:     owner,
		ExpenseID: expenseID,
		Op:        op,
		Year:      period.Year,
		Month:     period.Month,
		Timestamp: time.Now().UTC(),
	}
}

// Period returns the (year, month) the message refers to.
func (m ChangeMessage) Period() core.Period {
	return core.Period{Year: m.Year, Month: m.Month}
}

func (m ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and validates a message body.
func ChangeMessageFromJSON(data []byte) (ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ChangeMessage{}, err
	}
	if msg.Owner == "" {
		return ChangeMessage{}, fmt.Errorf("change message without owner")
	}
	if err := msg.Period().Validate(); err != nil {
		return ChangeMessage{}, err
	}
	return msg, nil
}
