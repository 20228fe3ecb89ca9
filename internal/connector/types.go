package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sovereign-sentinel/internal/loan"
)

var (
	// ErrUnsupportedSource 表示未知的数据源名称。
	ErrUnsupportedSource = errors.New("connector: unsupported source")
	// ErrTenantRequired 表示该数据源需要 tenant_id。
	ErrTenantRequired = errors.New("connector: tenant_id is required")
	// ErrNotConfigured 表示数据源合法但未配置凭据。
	ErrNotConfigured = errors.New("connector: source not configured")
)

// Source 是受支持的数据源。
type Source string

const (
	SourceXero       Source = "xero"
	SourceQuickBooks Source = "quickbooks"
	SourceStripe     Source = "stripe"
)

// Sources 列出全部受支持的数据源。
func Sources() []Source {
	return []Source{SourceXero, SourceQuickBooks, SourceStripe}
}

// ParseSource 不区分大小写地解析数据源。
func ParseSource(value string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Sources() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, value)
}

// RequiresTenant 报告该数据源是否需要 tenant_id。
func (s Source) RequiresTenant() bool {
	return s == SourceXero || s == SourceQuickBooks
}

// Request 是一次抽取请求。
type Request struct {
	ConnectionID string
	TenantID     string
}

// Connector 从外部系统抽取贷款记录。任一记录失败即整体失败。
type Connector interface {
	Extract(ctx context.Context, req Request) ([]loan.Record, error)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate 解析外部日期，无法解析时回退到 fallback。
func parseDate(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

// inferInterestType 从自由文本推断利息类型。
func inferInterestType(text string) loan.InterestType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "pik"), strings.Contains(lower, "payment-in-kind"):
		return loan.InterestPIK
	case strings.Contains(lower, "hybrid"):
		return loan.InterestHybrid
	default:
		return loan.InterestCash
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
