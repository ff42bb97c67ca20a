package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialMetric is a headline number on the dashboard
type FinancialMetric struct {
	Name   string          `json:"name" yaml:"name"`
	Value  decimal.Decimal `json:"value" yaml:"value"`
	Change float64         `json:"change" yaml:"change"` // percentage
	Trend  Trend           `json:"trend" yaml:"trend"`
}

// ChartDataPoint is one period of the cash-flow chart
type ChartDataPoint struct {
	Name    string          `json:"name" yaml:"name"`
	Income  decimal.Decimal `json:"income" yaml:"income"`
	Expense decimal.Decimal `json:"expense" yaml:"expense"`
	Profit  decimal.Decimal `json:"profit" yaml:"profit"`
}

// Snapshot is the dataset handed to the assistant as context
type Snapshot struct {
	Metrics  []FinancialMetric `json:"metrics"`
	Invoices []Invoice         `json:"invoices"`
	Charts   []ChartDataPoint  `json:"charts"`
}

// ChatMessage is one entry of the assistant transcript
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"isError,omitempty"`
}
