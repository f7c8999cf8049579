// internal/bank/errors.go
//
// 本檔集中定義「領域錯誤（domain errors）」。
// 這些錯誤屬於商業邏輯層級（非系統錯誤），會由上層 HTTP handler 轉換成適當的 HTTP 狀態碼。
// 回傳時可能以 errors.Wrap 附加帳戶資訊，呼叫端一律以 errors.Is 判斷類別。

package bank

import "github.com/pkg/errors"

var (
	// ErrAccountNotFound 代表帳戶不存在。
	// 對應 HTTP 狀態碼 404 Not Found。
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateAccount 代表建立帳戶時 ID 已被使用。
	// 對應 HTTP 狀態碼 409 Conflict。
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrInvalidAmount 代表金額非法（轉帳 <=0、初始餘額為負、超過兩位小數或超過上限）。
	// 對應 HTTP 狀態碼 400 Bad Request。
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidAccountID 代表帳戶 ID 為空。
	ErrInvalidAccountID = errors.New("account id must not be empty")

	// ErrInvalidDisplayName 代表顯示名稱為空。
	ErrInvalidDisplayName = errors.New("display name must not be empty")

	// ErrInsufficientFunds 代表餘額不足，導致轉帳失敗。
	// 對應 HTTP 狀態碼 409 Conflict。
	ErrInsufficientFunds = errors.New("insufficient funds")
)
