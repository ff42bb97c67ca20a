package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is a committed financial document. It is never changed after
// it enters the invoice store.
type Invoice struct {
	ID          string          `json:"id" yaml:"id"`
	InvoiceNo   string          `json:"invoiceNo" yaml:"invoiceNo"`
	ClientName  string          `json:"clientName" yaml:"clientName"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	TaxAmount   decimal.Decimal `json:"taxAmount" yaml:"taxAmount"`
	Date        Date            `json:"date" yaml:"date"`
	DueDate     Date            `json:"dueDate" yaml:"dueDate"`
	Status      InvoiceStatus   `json:"status" yaml:"status"`
	Type        InvoiceType     `json:"type" yaml:"type"`
	BuyerName   string          `json:"buyerName,omitempty" yaml:"buyerName,omitempty"`
	BuyerTaxID  string          `json:"buyerTaxId,omitempty" yaml:"buyerTaxId,omitempty"`
	SellerName  string          `json:"sellerName,omitempty" yaml:"sellerName,omitempty"`
	SellerTaxID string          `json:"sellerTaxId,omitempty" yaml:"sellerTaxId,omitempty"`
	Items       []LineItem      `json:"items,omitempty" yaml:"items,omitempty"`
}

// LineItem is one row of an invoice. Amount is expected to be close to
// Quantity * UnitPrice but that is not enforced.
type LineItem struct {
	Name      string          `json:"name" yaml:"name"`
	Quantity  decimal.Decimal `json:"quantity" yaml:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" yaml:"unitPrice"`
	Amount    decimal.Decimal `json:"amount" yaml:"amount"`
	TaxRate   decimal.Decimal `json:"taxRate" yaml:"taxRate"` // fraction in [0,1)
	TaxAmount decimal.Decimal `json:"taxAmount" yaml:"taxAmount"`
}

// NewInvoiceID returns a fresh opaque invoice identifier
func NewInvoiceID() string {
	return "INV-" + uuid.NewString()
}

// InvoiceDraft is the editable working copy of an invoice awaiting review.
// Nothing is enforced on a draft; a nil date means the date is absent.
type InvoiceDraft struct {
	ID          string          `json:"id,omitempty"`
	InvoiceNo   string          `json:"invoiceNo"`
	ClientName  string          `json:"clientName"`
	Amount      decimal.Decimal `json:"amount"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
	Date        *Date           `json:"date"`
	DueDate     *Date           `json:"dueDate"`
	Status      InvoiceStatus   `json:"status"`
	Type        InvoiceType     `json:"type"`
	BuyerName   string          `json:"buyerName,omitempty"`
	BuyerTaxID  string          `json:"buyerTaxId,omitempty"`
	SellerName  string          `json:"sellerName,omitempty"`
	SellerTaxID string          `json:"sellerTaxId,omitempty"`
	Items       []LineItem      `json:"items"`
}

// Clone returns a deep copy of the draft
func (d *InvoiceDraft) Clone() *InvoiceDraft {
	if d == nil {
		return nil
	}
	c := *d
	if d.Date != nil {
		c.Date = d.Date.Ptr()
	}
	if d.DueDate != nil {
		c.DueDate = d.DueDate.Ptr()
	}
	c.Items = append([]LineItem{}, d.Items...)
	return &c
}

// ToInvoice builds the committed invoice. id is used when the draft has
// none of its own. Absent dates become zero dates; callers validate first.
func (d *InvoiceDraft) ToInvoice(id string) Invoice {
	if d.ID != "" {
		id = d.ID
	}

	inv := Invoice{
		ID:          id,
		InvoiceNo:   d.InvoiceNo,
		ClientName:  d.ClientName,
		Amount:      d.Amount,
		TaxAmount:   d.TaxAmount,
		Status:      d.Status,
		Type:        d.Type,
		BuyerName:   d.BuyerName,
		BuyerTaxID:  d.BuyerTaxID,
		SellerName:  d.SellerName,
		SellerTaxID: d.SellerTaxID,
	}
	if d.Date != nil {
		inv.Date = *d.Date
	}
	if d.DueDate != nil {
		inv.DueDate = *d.DueDate
	}
	if len(d.Items) > 0 {
		inv.Items = append([]LineItem{}, d.Items...)
	}
	return inv
}

// ExtractedFields is the untrusted best-effort result of document
// extraction. Every field may be absent.
type ExtractedFields struct {
	InvoiceNo  *string          `json:"invoiceNo,omitempty"`
	ClientName *string          `json:"clientName,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	TaxAmount  *decimal.Decimal `json:"taxAmount,omitempty"`
	Date       *Date            `json:"date,omitempty"`
	DueDate    *Date            `json:"dueDate,omitempty"`
}
