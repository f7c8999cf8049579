// Package events 於 Ledger 變更成功提交後對外發布事件。
// 發布為盡力而為 (best-effort)：失敗只記錄日誌，不影響已提交的交易。
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// 事件類型。
const (
	TypeAccountCreated    = "account.created"
	TypeTransferCompleted = "transfer.completed"
)

// Event 描述一次已提交的 Ledger 變更。
type Event struct {
	Type      string          `json:"event_type"`
	ID        string          `json:"id,omitempty"` // 轉帳收據 ID
	AccountID string          `json:"account_id,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	Recipient string          `json:"recipient,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Key 回傳事件的分區鍵：轉帳以轉出帳戶為準，其餘以帳戶 ID 為準。
func (e Event) Key() string {
	if e.Sender != "" {
		return e.Sender
	}
	return e.AccountID
}

// Publisher 發布 Ledger 事件。
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop 為不做任何事的 Publisher，未設定事件後端時使用。
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }
