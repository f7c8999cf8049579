// Package bank 定義核心領域模型與業務規則。
// 本檔定義 Account 結構與歷史紀錄格式，不含任何 HTTP 或儲存細節。

package bank

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// 歷史紀錄中使用的日期與時間格式。
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// Account represents a ledger account.
type Account struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Balance     decimal.Decimal `json:"balance"`
	History     []string        `json:"history"`
}

// clone 回傳深拷貝（History 切片獨立），供對外唯讀檢視與 rollback 使用。
func (a *Account) clone() Account {
	cp := *a
	cp.History = make([]string, len(a.History))
	copy(cp.History, a.History)
	return cp
}

func createdNote(at time.Time) string {
	return "Account created on " + at.Format(dateLayout)
}

func sentNote(amt decimal.Decimal, to string, at time.Time) string {
	return fmt.Sprintf("Sent $%s to %s at %s", amt.StringFixed(2), to, at.Format(timestampLayout))
}

func receivedNote(amt decimal.Decimal, from string, at time.Time) string {
	return fmt.Sprintf("Received $%s from %s at %s", amt.StringFixed(2), from, at.Format(timestampLayout))
}
