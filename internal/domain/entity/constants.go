package entity

import "fmt"

// InvoiceStatus is the lifecycle label shown on an invoice
type InvoiceStatus string

const (
	StatusDraft   InvoiceStatus = "Draft"
	StatusPending InvoiceStatus = "Pending"
	StatusPaid    InvoiceStatus = "Paid"
	StatusOverdue InvoiceStatus = "Overdue"
	StatusVoid    InvoiceStatus = "Void"
)

// IsValid returns true if the status is one of the defined constants
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPaid, StatusOverdue, StatusVoid:
		return true
	default:
		return false
	}
}

// IsSettled reports whether the invoice no longer expects a payment
func (s InvoiceStatus) IsSettled() bool {
	return s == StatusPaid || s == StatusVoid
}

// UnmarshalText rejects unknown statuses
func (s *InvoiceStatus) UnmarshalText(text []byte) error {
	v := InvoiceStatus(text)
	if !v.IsValid() {
		return fmt.Errorf("unknown invoice status %q", string(text))
	}
	*s = v
	return nil
}

// InvoiceType classifies an invoice for tax purposes
type InvoiceType string

const (
	TypeVATSpecial InvoiceType = "VAT Special" // 增值税专用发票
	TypeVATNormal  InvoiceType = "VAT Normal"  // 增值税普通发票
	TypeGeneral    InvoiceType = "General"
)

// IsValid returns true if the type is one of the defined constants
func (t InvoiceType) IsValid() bool {
	switch t {
	case TypeVATSpecial, TypeVATNormal, TypeGeneral:
		return true
	default:
		return false
	}
}

// UnmarshalText rejects unknown invoice types
func (t *InvoiceType) UnmarshalText(text []byte) error {
	v := InvoiceType(text)
	if !v.IsValid() {
		return fmt.Errorf("unknown invoice type %q", string(text))
	}
	*t = v
	return nil
}

// Trend direction of a dashboard metric
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// Chat roles
const (
	RoleUser  = "user"
	RoleModel = "model"
)
