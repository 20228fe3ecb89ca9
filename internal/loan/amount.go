package loan

import (
	"github.com/shopspring/decimal"
)

// Amount 是以主货币单位计的金额，JSON 输出为数字，输入接受数字或字符串。
type Amount struct {
	decimal.Decimal
}

// NewAmount 包装一个 decimal 金额。
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// AmountFromInt 返回整数金额。
func AmountFromInt(v int64) Amount {
	return Amount{Decimal: decimal.NewFromInt(v)}
}

// MarshalJSON 按 JSON 数字输出，不依赖 decimal 包的全局开关。
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}
