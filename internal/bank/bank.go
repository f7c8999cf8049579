// internal/bank/bank.go

// Package bank 定義核心商業邏輯：帳戶建立、查詢與轉帳。
// Ledger 本身不持有鎖；所有存取皆由 txn.Coordinator 序列化（單一寫入者）。
// 金額以 decimal.Decimal 定點十進位表示，重複轉帳不會累積浮點誤差。
package bank

import (
	"sort"
	"strings"
	"time"

	"finsystem/internal/storage"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Ledger 為聚合根 (Aggregate Root)：管理全系統帳戶。
// - accts：帳戶索引表（ID → *Account），帳戶只增不減。
// - now：時間來源，測試時可替換以取得固定的歷史紀錄。
type Ledger struct {
	accts map[string]*Account
	now   func() time.Time
}

// Option 設定 Ledger。
type Option func(*Ledger)

// WithClock 替換時間來源。
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger 建立空白 Ledger（僅就緒的 in-memory 狀態，無外部依賴）。
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{accts: make(map[string]*Account), now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// FromSnapshot 由已驗證的快照建立 Ledger。
func FromSnapshot(s storage.Snapshot, opts ...Option) (*Ledger, error) {
	l := NewLedger(opts...)
	if err := l.Restore(s); err != nil {
		return nil, err
	}
	return l, nil
}

// CreateAccount 以 ID、顯示名稱與初始餘額建立帳戶；初始餘額不得為負。
// 歷史紀錄以一筆含建立日期的備註開始。回傳深拷貝與建立時間。
func (l *Ledger) CreateAccount(id, name string, initial decimal.Decimal) (Account, time.Time, error) {
	if strings.TrimSpace(id) == "" {
		return Account{}, time.Time{}, ErrInvalidAccountID
	}
	if strings.TrimSpace(name) == "" {
		return Account{}, time.Time{}, errors.Wrapf(ErrInvalidDisplayName, "id %q", id)
	}
	if _, ok := l.accts[id]; ok {
		return Account{}, time.Time{}, errors.Wrapf(ErrDuplicateAccount, "id %q", id)
	}
	if err := checkAmount(initial); err != nil {
		return Account{}, time.Time{}, errors.Wrap(err, "initial balance")
	}
	if initial.IsNegative() {
		return Account{}, time.Time{}, errors.Wrapf(ErrInvalidAmount, "initial balance %s", initial)
	}
	now := l.now()
	a := &Account{
		ID:          id,
		DisplayName: name,
		Balance:     initial,
		History:     []string{createdNote(now)},
	}
	l.accts[id] = a
	return a.clone(), now, nil
}

// GetAccount 依 ID 取得帳戶的目前快照；若不存在回傳 ErrAccountNotFound。
func (l *Ledger) GetAccount(id string) (Account, error) {
	a, ok := l.accts[id]
	if !ok {
		return Account{}, errors.Wrapf(ErrAccountNotFound, "id %q", id)
	}
	return a.clone(), nil
}

// ListAccounts 回傳所有帳戶的深拷貝，依 ID 排序。
func (l *Ledger) ListAccounts() []Account {
	out := make([]Account, 0, len(l.accts))
	for _, a := range l.accts {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len 回傳帳戶數量。
func (l *Ledger) Len() int { return len(l.accts) }

// Transfer 轉帳：
// 1) 檢核帳戶存在性 → 2) 檢核金額 → 3) 檢查餘額 → 4) 扣款與入帳 → 5) 雙邊追加歷史紀錄。
// 任一檢核失敗皆不會改變任何帳戶狀態，回傳值為本次轉帳的時間戳。
//
// 自我轉帳 (sender == recipient) 允許執行：餘額不變，依序追加「轉出」與「轉入」兩筆紀錄。
func (l *Ledger) Transfer(senderID, recipientID string, amt decimal.Decimal) (time.Time, error) {
	from, ok := l.accts[senderID]
	if !ok {
		return time.Time{}, errors.Wrapf(ErrAccountNotFound, "sender %q", senderID)
	}
	to, ok := l.accts[recipientID]
	if !ok {
		return time.Time{}, errors.Wrapf(ErrAccountNotFound, "recipient %q", recipientID)
	}
	if err := checkAmount(amt); err != nil {
		return time.Time{}, errors.Wrap(err, "transfer amount")
	}
	if !amt.IsPositive() {
		return time.Time{}, errors.Wrapf(ErrInvalidAmount, "transfer amount %s", amt)
	}
	if from.Balance.LessThan(amt) {
		return time.Time{}, errors.Wrapf(ErrInsufficientFunds, "%q has %s, needs %s", senderID, from.Balance, amt)
	}

	from.Balance = from.Balance.Sub(amt)
	to.Balance = to.Balance.Add(amt)

	now := l.now()
	from.History = append(from.History, sentNote(amt, recipientID, now))
	to.History = append(to.History, receivedNote(amt, senderID, now))
	return now, nil
}

// Clone 回傳完全獨立的深拷貝，供交易協調器於持久化失敗時還原。
func (l *Ledger) Clone() *Ledger {
	cp := &Ledger{accts: make(map[string]*Account, len(l.accts)), now: l.now}
	for id, a := range l.accts {
		c := a.clone()
		cp.accts[id] = &c
	}
	return cp
}

// ReplaceWith 以 other 的帳戶狀態取代自身（rollback 用）。
// 呼叫後 other 不應再被使用。
func (l *Ledger) ReplaceWith(other *Ledger) {
	l.accts = other.accts
}

// Snapshot 匯出 Ledger 狀態到可持久化的 storage.Snapshot。
func (l *Ledger) Snapshot() storage.Snapshot {
	s := storage.Snapshot{
		Meta:     storage.Meta{Version: storage.SchemaVersion},
		Accounts: make(map[string]storage.AccountRecord, len(l.accts)),
	}
	for id, a := range l.accts {
		s.Accounts[id] = storage.NewRecord(a.DisplayName, a.Balance, a.History)
	}
	return s
}

// Restore 由 storage.Snapshot 還原 Ledger 狀態，重建帳戶 map。
// 快照內容不合法時回傳 storage.ErrCorruptSnapshot，且不改變既有狀態。
func (l *Ledger) Restore(s storage.Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	accts := make(map[string]*Account, len(s.Accounts))
	for id, rec := range s.Accounts {
		bal, _ := rec.Amount() // Validate 已確認可解析
		h := make([]string, len(rec.History))
		copy(h, rec.History)
		accts[id] = &Account{ID: id, DisplayName: rec.DisplayName, Balance: bal, History: h}
	}
	l.accts = accts
	return nil
}
