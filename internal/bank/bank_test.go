// internal/bank/bank_test.go
//
// 本檔為 Ledger 模組的單元測試。
// 覆蓋：帳戶建立、查詢、轉帳、餘額驗證、歷史紀錄、自我轉帳與快照還原。
// 所有測試皆為 in-memory 執行，不依賴外部服務或資料庫。

package bank

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"finsystem/internal/storage"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := FromSnapshot(storage.DefaultSnapshot(), WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("FromSnapshot err=%v", err)
	}
	return l
}

// get 為小工具：安全取出帳戶狀態。
func get(t *testing.T, l *Ledger, id string) Account {
	t.Helper()
	a, err := l.GetAccount(id)
	if err != nil {
		t.Fatalf("GetAccount(%s) err=%v", id, err)
	}
	return a
}

func TestCreateAndGet(t *testing.T) {
	l := newTestLedger(t)
	a, at, err := l.CreateAccount("alice", "Alice Liddell", d("250.50"))
	if err != nil {
		t.Fatal(err)
	}
	if !at.Equal(fixedNow) {
		t.Fatalf("created at=%v want=%v", at, fixedNow)
	}
	if a.ID != "alice" || a.DisplayName != "Alice Liddell" || !a.Balance.Equal(d("250.5")) {
		t.Fatalf("unexpected account: %+v", a)
	}
	want := []string{"Account created on 2024-03-15"}
	if !reflect.DeepEqual(a.History, want) {
		t.Fatalf("history=%v want=%v", a.History, want)
	}
	if got := get(t, l, "alice"); !reflect.DeepEqual(got, a) {
		t.Fatalf("get=%+v want=%+v", got, a)
	}
	if n := len(l.ListAccounts()); n != 3 {
		t.Fatalf("list len=%d want=3", n)
	}
}

// TestCreateNegativeBalance 對應情境：alice 初始餘額 -50 → InvalidAmount，Ledger 不變。
func TestCreateNegativeBalance(t *testing.T) {
	l := newTestLedger(t)
	before := l.Snapshot()
	if _, _, err := l.CreateAccount("alice", "Alice", d("-50")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
	if _, err := l.GetAccount("alice"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("alice should not exist, got %v", err)
	}
	if !reflect.DeepEqual(before, l.Snapshot()) {
		t.Fatal("ledger mutated by rejected create")
	}
}

func TestCreateZeroBalanceAllowed(t *testing.T) {
	l := newTestLedger(t)
	if _, _, err := l.CreateAccount("zero", "Zero", decimal.Zero); err != nil {
		t.Fatalf("zero initial balance should be accepted: %v", err)
	}
}

func TestCreateEmptyID(t *testing.T) {
	l := newTestLedger(t)
	for _, id := range []string{"", "   "} {
		if _, _, err := l.CreateAccount(id, "Nobody", d("1")); !errors.Is(err, ErrInvalidAccountID) {
			t.Fatalf("id=%q want ErrInvalidAccountID, got %v", id, err)
		}
	}
}

// TestCreateEmptyDisplayName 顯示名稱為空或僅含空白 → InvalidDisplayName，帳戶不建立。
func TestCreateEmptyDisplayName(t *testing.T) {
	l := newTestLedger(t)
	for _, name := range []string{"", " \t"} {
		if _, _, err := l.CreateAccount("alice", name, d("1")); !errors.Is(err, ErrInvalidDisplayName) {
			t.Fatalf("name=%q want ErrInvalidDisplayName, got %v", name, err)
		}
	}
	if l.Len() != 2 {
		t.Fatalf("len=%d want=2", l.Len())
	}
}

// TestCreateAmountLimits 初始餘額超過兩位小數或超過上限皆拒絕；
// 極大指數須立即回傳，不得展開成巨大數字。
func TestCreateAmountLimits(t *testing.T) {
	l := newTestLedger(t)
	before := l.Snapshot()
	for _, s := range []string{"0.001", "10.005", "1e5000000", "-1e5000000", "1e-5000000", "1000000000000000.01"} {
		start := time.Now()
		if _, _, err := l.CreateAccount("alice", "Alice", d(s)); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("initial=%s want ErrInvalidAmount, got %v", s, err)
		}
		if el := time.Since(start); el > 100*time.Millisecond {
			t.Fatalf("initial=%s took %v", s, el)
		}
	}
	if !reflect.DeepEqual(before, l.Snapshot()) {
		t.Fatal("ledger mutated by rejected create")
	}

	// 尾端 0 不算額外小數位；上限本身允許
	for id, s := range map[string]string{"a": "1.500", "b": "0.01", "c": "1000000000000000"} {
		if _, _, err := l.CreateAccount(id, "Ok", d(s)); err != nil {
			t.Fatalf("initial=%s: %v", s, err)
		}
	}
}

// TestCreateDuplicate 重複 ID 必定失敗，且既有帳戶保持不變。
func TestCreateDuplicate(t *testing.T) {
	l := newTestLedger(t)
	before := get(t, l, "jane_doe")
	if _, _, err := l.CreateAccount("jane_doe", "Impostor", d("1")); !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("want ErrDuplicateAccount, got %v", err)
	}
	if after := get(t, l, "jane_doe"); !reflect.DeepEqual(before, after) {
		t.Fatalf("existing account modified: before=%+v after=%+v", before, after)
	}
}

// TestTransferAmountLimits 轉帳 0.001 會使紀錄顯示 $0.00，必須拒絕且不改變任何帳戶。
func TestTransferAmountLimits(t *testing.T) {
	l := newTestLedger(t)
	before := l.Snapshot()
	for _, s := range []string{"0.001", "199.999", "1e5000000"} {
		if _, err := l.Transfer("jane_doe", "john_smith", d(s)); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount=%s want ErrInvalidAmount, got %v", s, err)
		}
	}
	if !reflect.DeepEqual(before, l.Snapshot()) {
		t.Fatal("ledger mutated by rejected transfer")
	}

	if _, err := l.Transfer("jane_doe", "john_smith", d("0.01")); err != nil {
		t.Fatal(err)
	}
	if got := get(t, l, "jane_doe"); !got.Balance.Equal(d("999.99")) || got.History[0] != "Sent $0.01 to john_smith at 2024-03-15 09:30:00" {
		t.Fatalf("jane=%+v", got)
	}
}

// TestTransferScenario 對應情境：jane_doe 1000、john_smith 500，
// 轉 200 → 800/700，各新增一筆紀錄；john_smith 轉 10000 → 餘額不足且不變。
func TestTransferScenario(t *testing.T) {
	l := newTestLedger(t)

	at, err := l.Transfer("jane_doe", "john_smith", d("200"))
	if err != nil {
		t.Fatal(err)
	}
	if !at.Equal(fixedNow) {
		t.Fatalf("timestamp=%v want=%v", at, fixedNow)
	}
	jane, john := get(t, l, "jane_doe"), get(t, l, "john_smith")
	if !jane.Balance.Equal(d("800")) || !john.Balance.Equal(d("700")) {
		t.Fatalf("balances jane=%s john=%s want 800/700", jane.Balance, john.Balance)
	}
	if len(jane.History) != 1 || len(john.History) != 1 {
		t.Fatalf("history len jane=%d john=%d want 1/1", len(jane.History), len(john.History))
	}
	if jane.History[0] != "Sent $200.00 to john_smith at 2024-03-15 09:30:00" {
		t.Fatalf("jane note=%q", jane.History[0])
	}
	if john.History[0] != "Received $200.00 from jane_doe at 2024-03-15 09:30:00" {
		t.Fatalf("john note=%q", john.History[0])
	}

	if _, err := l.Transfer("john_smith", "jane_doe", d("10000")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	jane2, john2 := get(t, l, "jane_doe"), get(t, l, "john_smith")
	if !reflect.DeepEqual(jane, jane2) || !reflect.DeepEqual(john, john2) {
		t.Fatal("failed transfer mutated state")
	}
}

func TestTransferInvalidAmount(t *testing.T) {
	l := newTestLedger(t)
	before := l.Snapshot()
	for _, amt := range []string{"0", "-5", "-0.01"} {
		if _, err := l.Transfer("jane_doe", "john_smith", d(amt)); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amt=%s want ErrInvalidAmount, got %v", amt, err)
		}
	}
	if !reflect.DeepEqual(before, l.Snapshot()) {
		t.Fatal("ledger mutated by invalid transfer")
	}
}

func TestTransferUnknownAccount(t *testing.T) {
	l := newTestLedger(t)
	cases := [][2]string{{"ghost", "john_smith"}, {"jane_doe", "ghost"}, {"ghost", "ghost"}}
	for _, c := range cases {
		if _, err := l.Transfer(c[0], c[1], d("1")); !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("%v want ErrAccountNotFound, got %v", c, err)
		}
	}
}

// TestTransferConservation 多筆轉帳後總額守恆，且小數金額不會累積誤差。
func TestTransferConservation(t *testing.T) {
	l := newTestLedger(t)
	total := func() decimal.Decimal {
		sum := decimal.Zero
		for _, a := range l.ListAccounts() {
			sum = sum.Add(a.Balance)
		}
		return sum
	}
	start := total()
	for i := 0; i < 1000; i++ {
		if _, err := l.Transfer("jane_doe", "john_smith", d("0.1")); err != nil {
			t.Fatal(err)
		}
	}
	if !total().Equal(start) {
		t.Fatalf("total=%s want=%s", total(), start)
	}
	if got := get(t, l, "jane_doe").Balance; !got.Equal(d("900")) {
		t.Fatalf("jane=%s want exactly 900", got)
	}
}

func TestTransferExactBalance(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.Transfer("john_smith", "jane_doe", d("500")); err != nil {
		t.Fatal(err)
	}
	if got := get(t, l, "john_smith").Balance; !got.IsZero() {
		t.Fatalf("john=%s want 0", got)
	}
}

// TestSelfTransfer 自我轉帳：餘額不變，追加「轉出」「轉入」兩筆紀錄，仍需檢查餘額。
func TestSelfTransfer(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.Transfer("jane_doe", "jane_doe", d("100")); err != nil {
		t.Fatal(err)
	}
	jane := get(t, l, "jane_doe")
	if !jane.Balance.Equal(d("1000")) {
		t.Fatalf("balance=%s want 1000", jane.Balance)
	}
	want := []string{
		"Sent $100.00 to jane_doe at 2024-03-15 09:30:00",
		"Received $100.00 from jane_doe at 2024-03-15 09:30:00",
	}
	if !reflect.DeepEqual(jane.History, want) {
		t.Fatalf("history=%v want=%v", jane.History, want)
	}
	if _, err := l.Transfer("jane_doe", "jane_doe", d("1000.01")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
}

// TestGetReturnsCopy 對外回傳的帳戶不可影響內部狀態。
func TestGetReturnsCopy(t *testing.T) {
	l := newTestLedger(t)
	a := get(t, l, "jane_doe")
	a.History = append(a.History, "tampered")
	a.Balance = d("1")
	if got := get(t, l, "jane_doe"); len(got.History) != 0 || !got.Balance.Equal(d("1000")) {
		t.Fatalf("internal state leaked: %+v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	l := newTestLedger(t)
	prev := l.Clone()
	if _, err := l.Transfer("jane_doe", "john_smith", d("10")); err != nil {
		t.Fatal(err)
	}
	if got := get(t, prev, "jane_doe"); !got.Balance.Equal(d("1000")) || len(got.History) != 0 {
		t.Fatalf("clone affected by mutation: %+v", got)
	}
	l.ReplaceWith(prev)
	if got := get(t, l, "jane_doe"); !got.Balance.Equal(d("1000")) || len(got.History) != 0 {
		t.Fatalf("rollback did not restore state: %+v", got)
	}
}

// TestSnapshotRestore 驗證 load(save(L)) == L（含歷史順序與內容）。
func TestSnapshotRestore(t *testing.T) {
	l := newTestLedger(t)
	_, _, _ = l.CreateAccount("alice", "Alice", d("12.34"))
	_, _ = l.Transfer("jane_doe", "alice", d("0.66"))
	_, _ = l.Transfer("alice", "john_smith", d("3"))
	_, _ = l.Transfer("john_smith", "john_smith", d("1"))

	snap := l.Snapshot()
	l2, err := FromSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(l.Snapshot().Accounts, l2.Snapshot().Accounts) {
		t.Fatal("snapshot mismatch after restore")
	}
	for _, a := range l.ListAccounts() {
		b := get(t, l2, a.ID)
		if a.DisplayName != b.DisplayName || !a.Balance.Equal(b.Balance) || !reflect.DeepEqual(a.History, b.History) {
			t.Fatalf("account %s mismatch: %+v vs %+v", a.ID, a, b)
		}
	}
}

func TestRestoreRejectsInvalid(t *testing.T) {
	l := newTestLedger(t)
	bad := storage.Snapshot{Accounts: map[string]storage.AccountRecord{
		"x": {DisplayName: "X", Balance: "-1"},
	}}
	if err := l.Restore(bad); !errors.Is(err, storage.ErrCorruptSnapshot) {
		t.Fatalf("want ErrCorruptSnapshot, got %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("state replaced by invalid snapshot, len=%d", l.Len())
	}
}
