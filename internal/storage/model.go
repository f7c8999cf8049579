// internal/storage/model.go
//
// 定義「資料持久化層 (storage layer)」的結構模型。
// 快照以帳戶 ID 為鍵，每筆紀錄包含顯示名稱、餘額與歷史紀錄。
// 所有後端（檔案 / Redis / Postgres）共用同一份 JSON schema。
package storage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// SchemaVersion 為目前快照結構版本。
const SchemaVersion = 1

// Meta 為所有持久化快照的中繼資料 (metadata)。
type Meta struct {
	Storage   string    `json:"storage"`        // 儲存類型，例如 "json_snapshot"
	Version   int       `json:"version"`        // 結構版本號
	Timestamp time.Time `json:"timestamp"`      // 快照建立時間
	Note      string    `json:"note,omitempty"` // 備註欄
}

// AccountRecord 為帳戶在儲存層的序列化格式。
// Balance 以 json.Number 保存十進位字串，讀寫皆不經過浮點數。
type AccountRecord struct {
	DisplayName string      `json:"display_name"`
	Balance     json.Number `json:"balance"`
	History     []string    `json:"history"`
}

// Snapshot 為 Ledger 狀態的完整快照。
type Snapshot struct {
	Meta     Meta                     `json:"_meta"`
	Accounts map[string]AccountRecord `json:"accounts"`
}

// NewRecord 由十進位餘額建立 AccountRecord。
func NewRecord(name string, balance decimal.Decimal, history []string) AccountRecord {
	h := make([]string, len(history))
	copy(h, history)
	return AccountRecord{DisplayName: name, Balance: json.Number(balance.String()), History: h}
}

// Amount 解析紀錄中的餘額。
func (r AccountRecord) Amount() (decimal.Decimal, error) {
	return decimal.NewFromString(r.Balance.String())
}

// Validate 檢查快照內每筆帳戶紀錄：ID 不得為空、餘額須可解析且不得為負。
// 任一條件不符即回傳 ErrCorruptSnapshot。
func (s Snapshot) Validate() error {
	if s.Accounts == nil {
		return errors.Wrap(ErrCorruptSnapshot, "missing accounts section")
	}
	for id, rec := range s.Accounts {
		if strings.TrimSpace(id) == "" {
			return errors.Wrap(ErrCorruptSnapshot, "empty account id")
		}
		bal, err := rec.Amount()
		if err != nil {
			return errors.Wrapf(ErrCorruptSnapshot, "account %q: balance %q: %v", id, rec.Balance, err)
		}
		if bal.IsNegative() {
			return errors.Wrapf(ErrCorruptSnapshot, "account %q: negative balance %s", id, bal)
		}
	}
	return nil
}

// DefaultSnapshot 回傳尚無任何快照時使用的預設種子資料。
// 此快照不會被寫入，直到第一次成功的變更操作發生。
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Meta: Meta{Storage: "seed", Version: SchemaVersion},
		Accounts: map[string]AccountRecord{
			"jane_doe":   {DisplayName: "Jane Doe", Balance: "1000", History: []string{}},
			"john_smith": {DisplayName: "John Smith", Balance: "500", History: []string{}},
		},
	}
}

func encode(snap Snapshot, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(snap, "", "  ")
	}
	return json.Marshal(snap)
}

// decode 解析快照位元組並驗證內容；任何解析錯誤皆視為 ErrCorruptSnapshot。
func decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrapf(ErrCorruptSnapshot, "decode: %v", err)
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
