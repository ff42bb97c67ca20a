package review

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/finnexus/internal/domain/entity"
)

// DraftPatch carries the fields a reviewer changed. Nil means untouched.
// A zero Date clears the date.
type DraftPatch struct {
	InvoiceNo   *string               `json:"invoiceNo,omitempty"`
	ClientName  *string               `json:"clientName,omitempty"`
	Amount      *decimal.Decimal      `json:"amount,omitempty"`
	TaxAmount   *decimal.Decimal      `json:"taxAmount,omitempty"`
	Date        *entity.Date          `json:"date,omitempty"`
	DueDate     *entity.Date          `json:"dueDate,omitempty"`
	Status      *entity.InvoiceStatus `json:"status,omitempty"`
	Type        *entity.InvoiceType   `json:"type,omitempty"`
	BuyerName   *string               `json:"buyerName,omitempty"`
	BuyerTaxID  *string               `json:"buyerTaxId,omitempty"`
	SellerName  *string               `json:"sellerName,omitempty"`
	SellerTaxID *string               `json:"sellerTaxId,omitempty"`
	Items       *[]entity.LineItem    `json:"items,omitempty"`
}

// Fields lists the fields the patch touches
func (p DraftPatch) Fields() []Field {
	var fields []Field
	add := func(set bool, f Field) {
		if set {
			fields = append(fields, f)
		}
	}
	add(p.InvoiceNo != nil, FieldInvoiceNo)
	add(p.ClientName != nil, FieldClientName)
	add(p.Amount != nil, FieldAmount)
	add(p.TaxAmount != nil, FieldTaxAmount)
	add(p.Date != nil, FieldDate)
	add(p.DueDate != nil, FieldDueDate)
	add(p.Status != nil, FieldStatus)
	add(p.Type != nil, FieldType)
	add(p.BuyerName != nil, FieldBuyerName)
	add(p.BuyerTaxID != nil, FieldBuyerTaxID)
	add(p.SellerName != nil, FieldSellerName)
	add(p.SellerTaxID != nil, FieldSellerTaxID)
	add(p.Items != nil, FieldItems)
	return fields
}

// IsEmpty reports whether the patch changes nothing
func (p DraftPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Check rejects empty patches and amounts outside the storable range
func (p DraftPatch) Check() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Amount != nil {
		if err := entity.CheckAmount(*p.Amount); err != nil {
			return fmt.Errorf("%s: %w", FieldAmount, err)
		}
	}
	if p.TaxAmount != nil {
		if err := entity.CheckAmount(*p.TaxAmount); err != nil {
			return fmt.Errorf("%s: %w", FieldTaxAmount, err)
		}
	}
	if p.Items != nil {
		for i, item := range *p.Items {
			if err := item.CheckAmounts(); err != nil {
				return fmt.Errorf("%s[%d]: %w", FieldItems, i, err)
			}
		}
	}
	return nil
}

// ApplyTo writes the patched fields into d
func (p DraftPatch) ApplyTo(d *entity.InvoiceDraft) {
	if p.InvoiceNo != nil {
		d.InvoiceNo = *p.InvoiceNo
	}
	if p.ClientName != nil {
		d.ClientName = *p.ClientName
	}
	if p.Amount != nil {
		d.Amount = *p.Amount
	}
	if p.TaxAmount != nil {
		d.TaxAmount = *p.TaxAmount
	}
	if p.Date != nil {
		d.Date = optionalDate(*p.Date)
	}
	if p.DueDate != nil {
		d.DueDate = optionalDate(*p.DueDate)
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.BuyerName != nil {
		d.BuyerName = *p.BuyerName
	}
	if p.BuyerTaxID != nil {
		d.BuyerTaxID = *p.BuyerTaxID
	}
	if p.SellerName != nil {
		d.SellerName = *p.SellerName
	}
	if p.SellerTaxID != nil {
		d.SellerTaxID = *p.SellerTaxID
	}
	if p.Items != nil {
		d.Items = append([]entity.LineItem{}, (*p.Items)...)
	}
}

func optionalDate(d entity.Date) *entity.Date {
	if d.IsZero() {
		return nil
	}
	return d.Ptr()
}
