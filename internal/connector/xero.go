package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sovereign-sentinel/internal/loan"
)

const (
	actionXeroContacts     = "XERO_GET_CONTACTS"
	actionXeroTransactions = "XERO_GET_TRANSACTIONS"
)

type xeroContact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
}

type xeroTransaction struct {
	ID          string          `json:"id"`
	ContactID   string          `json:"contact_id"`
	Description string          `json:"description"`
	Total       decimal.Decimal `json:"total"`
	AmountDue   decimal.Decimal `json:"amount_due"`
	DueDate     string          `json:"due_date"`
}

// XeroConnector 将 Xero 联系人与交易映射为贷款记录。
type XeroConnector struct {
	exec ActionExecutor
	now  func() time.Time
}

// NewXeroConnector 创建 Xero 连接器。
func NewXeroConnector(exec ActionExecutor) (*XeroConnector, error) {
	if exec == nil {
		return nil, errors.New("connector: xero 需要 action executor")
	}
	return &XeroConnector{exec: exec, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Extract 每笔交易对应一笔贷款，编号为 XERO_<contact>_<txn>。
func (x *XeroConnector) Extract(ctx context.Context, req Request) ([]loan.Record, error) {
	input := map[string]any{"tenant_id": req.TenantID}

	var (
		contacts     []xeroContact
		transactions []xeroTransaction
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return x.exec.Execute(groupCtx, actionXeroContacts, req.ConnectionID, input, &contacts)
	})
	group.Go(func() error {
		return x.exec.Execute(groupCtx, actionXeroTransactions, req.ConnectionID, input, &transactions)
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("xero: %w", err)
	}

	return x.convert(contacts, transactions), nil
}

func (x *XeroConnector) convert(contacts []xeroContact, transactions []xeroTransaction) []loan.Record {
	extractedAt := x.now()
	records := make([]loan.Record, 0, len(transactions))
	for _, c := range contacts {
		for _, t := range transactions {
			if t.ContactID != c.ID {
				continue
			}
			records = append(records, loan.Record{
				LoanID:             fmt.Sprintf("XERO_%s_%s", c.ID, t.ID),
				Borrower:           orDefault(c.Name, "Unknown"),
				Industry:           orDefault(c.Industry, "general"),
				InterestType:       inferInterestType(t.Description),
				PrincipalAmount:    loan.NewAmount(t.Total),
				OutstandingBalance: loan.NewAmount(t.AmountDue),
				MaturityDate:       parseDate(t.DueDate, extractedAt),
				Covenants:          []string{},
			})
		}
	}
	return records
}
