package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sovereign-sentinel/internal/loan"
)

const actionQuickBooksLoans = "QUICKBOOKS_GET_LOANS"

type quickBooksLoan struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customer_name"`
	Industry     string          `json:"industry"`
	InterestType string          `json:"interest_type"`
	Principal    decimal.Decimal `json:"principal"`
	Balance      decimal.Decimal `json:"balance"`
	MaturityDate string          `json:"maturity_date"`
	Covenants    []string        `json:"covenants"`
}

// QuickBooksConnector 将 QuickBooks 贷款条目映射为贷款记录，tenant_id 即 company_id。
type QuickBooksConnector struct {
	exec ActionExecutor
	now  func() time.Time
}

// NewQuickBooksConnector 创建 QuickBooks 连接器。
func NewQuickBooksConnector(exec ActionExecutor) (*QuickBooksConnector, error) {
	if exec == nil {
		return nil, errors.New("connector: quickbooks 需要 action executor")
	}
	return &QuickBooksConnector{exec: exec, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Extract 拉取贷款条目，编号为 QB_<id>。
func (q *QuickBooksConnector) Extract(ctx context.Context, req Request) ([]loan.Record, error) {
	var items []quickBooksLoan
	input := map[string]any{"company_id": req.TenantID}
	if err := q.exec.Execute(ctx, actionQuickBooksLoans, req.ConnectionID, input, &items); err != nil {
		return nil, fmt.Errorf("quickbooks: %w", err)
	}

	extractedAt := q.now()
	records := make([]loan.Record, 0, len(items))
	for _, item := range items {
		interest, err := loan.ParseInterestType(orDefault(item.InterestType, string(loan.InterestCash)))
		if err != nil {
			interest = inferInterestType(item.InterestType)
		}
		covenants := item.Covenants
		if covenants == nil {
			covenants = []string{}
		}
		records = append(records, loan.Record{
			LoanID:             "QB_" + item.ID,
			Borrower:           orDefault(item.CustomerName, "Unknown"),
			Industry:           orDefault(item.Industry, "general"),
			InterestType:       interest,
			PrincipalAmount:    loan.NewAmount(item.Principal),
			OutstandingBalance: loan.NewAmount(item.Balance),
			MaturityDate:       parseDate(item.MaturityDate, extractedAt),
			Covenants:          covenants,
		})
	}
	return records, nil
}
