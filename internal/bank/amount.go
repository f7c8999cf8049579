// internal/bank/amount.go

package bank

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// 金額限制：最多兩位小數（與歷史紀錄的 $x.xx 格式一致），整數部分不超過 MaxAmount。
const (
	amountScale     = 2
	maxAmountDigits = 16
)

// MaxAmount 為單筆金額與初始餘額的上限。
var MaxAmount = decimal.New(1, maxAmountDigits-1)

// checkAmount 檢查金額的位數與小數位。
// 先以係數位數與指數判斷，極大或極小的指數不做十進位展開。
func checkAmount(amt decimal.Decimal) error {
	exp := int(amt.Exponent())
	digits := amt.NumDigits()
	if exp < -amountScale {
		// 係數尾端的 0 最多 digits 個；超過即必有非零的第三位小數
		if -exp-amountScale > digits || !amt.Equal(amt.Truncate(amountScale)) {
			return errors.Wrapf(ErrInvalidAmount, "more than %d decimal places", amountScale)
		}
	}
	if digits+exp > maxAmountDigits || amt.Abs().GreaterThan(MaxAmount) {
		return errors.Wrapf(ErrInvalidAmount, "amount exceeds %s", MaxAmount)
	}
	return nil
}
