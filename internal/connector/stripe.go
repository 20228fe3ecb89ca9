package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"sovereign-sentinel/internal/loan"
)

// CustomerLister 列出指定 Connect 账户下的 Stripe 客户，account 为空时读取平台账户。
type CustomerLister interface {
	ListCustomers(ctx context.Context, account string) ([]*stripe.Customer, error)
}

type stripeCustomers struct {
	api *client.API
}

func (s stripeCustomers) ListCustomers(ctx context.Context, account string) ([]*stripe.Customer, error) {
	params := &stripe.CustomerListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	if account != "" {
		params.SetStripeAccount(account)
	}

	var out []*stripe.Customer
	iter := s.api.Customers.List(params)
	for iter.Next() {
		out = append(out, iter.Customer())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// StripeConnector 将余额为正的 Stripe 客户视为未偿贷款。
type StripeConnector struct {
	customers CustomerLister
	now       func() time.Time
}

// NewStripeConnector 使用 API key 创建连接器。
func NewStripeConnector(apiKey string) (*StripeConnector, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("connector: stripe api_key 未配置")
	}
	return newStripeConnector(stripeCustomers{api: client.New(apiKey, nil)}), nil
}

func newStripeConnector(customers CustomerLister) *StripeConnector {
	return &StripeConnector{customers: customers, now: func() time.Time { return time.Now().UTC() }}
}

// Extract 以 connection_id 作为 Connect 账户读取客户。
// 编号为 STRIPE_<id>，余额从最小货币单位换算为主单位。
func (s *StripeConnector) Extract(ctx context.Context, req Request) ([]loan.Record, error) {
	customers, err := s.customers.ListCustomers(ctx, strings.TrimSpace(req.ConnectionID))
	if err != nil {
		return nil, fmt.Errorf("stripe: 拉取客户失败: %w", err)
	}

	extractedAt := s.now()
	records := make([]loan.Record, 0, len(customers))
	for _, c := range customers {
		if c == nil || c.Balance <= 0 {
			continue
		}
		balance := loan.NewAmount(decimal.New(c.Balance, -2))
		records = append(records, loan.Record{
			LoanID:             "STRIPE_" + c.ID,
			Borrower:           orDefault(c.Name, orDefault(c.Email, "Unknown")),
			Industry:           "general",
			InterestType:       loan.InterestCash,
			PrincipalAmount:    balance,
			OutstandingBalance: balance,
			MaturityDate:       extractedAt,
			Covenants:          []string{},
		})
	}
	return records, nil
}
