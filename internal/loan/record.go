package loan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// InterestType 表示利息支付方式。
type InterestType string

const (
	InterestCash   InterestType = "Cash"
	InterestPIK    InterestType = "PIK"
	InterestHybrid InterestType = "Hybrid"
)

// ParseInterestType 不区分大小写地解析利息类型。
func ParseInterestType(value string) (InterestType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "cash":
		return InterestCash, nil
	case "pik", "payment-in-kind":
		return InterestPIK, nil
	case "hybrid":
		return InterestHybrid, nil
	default:
		return "", fmt.Errorf("loan: 未知利息类型 %q", value)
	}
}

// UnmarshalJSON 接受任意大小写的利息类型。
func (t *InterestType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("loan: interest_type 必须为字符串: %w", err)
	}
	parsed, err := ParseInterestType(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsPIK 判断是否为实物支付利息。
func (t InterestType) IsPIK() bool {
	return t == InterestPIK
}

// Record 为单笔贷款的身份与条款，由外部连接器构造后只读。
type Record struct {
	LoanID             string       `json:"loan_id" binding:"required"`
	Borrower           string       `json:"borrower" binding:"required"`
	Industry           string       `json:"industry"`
	InterestType       InterestType `json:"interest_type" binding:"required"`
	PrincipalAmount    Amount       `json:"principal_amount"`
	OutstandingBalance Amount       `json:"outstanding_balance"`
	MaturityDate       time.Time    `json:"maturity_date"`
	Covenants          []string     `json:"covenants"`
}

// Validate 检查金额不为负。
func (r Record) Validate() error {
	var errs []error
	if r.PrincipalAmount.IsNegative() {
		errs = append(errs, fmt.Errorf("loan %s: principal_amount 不能为负", r.LoanID))
	}
	if r.OutstandingBalance.IsNegative() {
		errs = append(errs, fmt.Errorf("loan %s: outstanding_balance 不能为负", r.LoanID))
	}
	return errors.Join(errs...)
}

// Clone 返回一份不共享契约切片的副本。
func (r Record) Clone() Record {
	out := r
	if r.Covenants != nil {
		out.Covenants = append([]string(nil), r.Covenants...)
	}
	return out
}

// ValidateAll 校验整个组合，返回首个错误。
func ValidateAll(records []Record) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
