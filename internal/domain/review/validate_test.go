package review

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/garyjia/finnexus/internal/domain/entity"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *entity.InvoiceDraft)
		want   FieldErrors
	}{
		{
			name:   "valid draft",
			mutate: func(d *entity.InvoiceDraft) {},
			want:   FieldErrors{},
		},
		{
			name:   "due date equal to issue date",
			mutate: func(d *entity.InvoiceDraft) { d.DueDate = datePtr("2023-10-01") },
			want:   FieldErrors{},
		},
		{
			name:   "zero tax is allowed",
			mutate: func(d *entity.InvoiceDraft) { d.TaxAmount = decimal.Zero },
			want:   FieldErrors{},
		},
		{
			name:   "whitespace invoice number",
			mutate: func(d *entity.InvoiceDraft) { d.InvoiceNo = " \t" },
			want:   FieldErrors{FieldInvoiceNo: CodeRequired},
		},
		{
			name:   "empty client",
			mutate: func(d *entity.InvoiceDraft) { d.ClientName = "" },
			want:   FieldErrors{FieldClientName: CodeRequired},
		},
		{
			name:   "zero amount",
			mutate: func(d *entity.InvoiceDraft) { d.Amount = decimal.Zero },
			want:   FieldErrors{FieldAmount: CodeMustBePositive},
		},
		{
			name:   "negative amount",
			mutate: func(d *entity.InvoiceDraft) { d.Amount = decimal.NewFromFloat(-0.01) },
			want:   FieldErrors{FieldAmount: CodeMustBePositive},
		},
		{
			name:   "negative tax",
			mutate: func(d *entity.InvoiceDraft) { d.TaxAmount = decimal.NewFromInt(-1) },
			want:   FieldErrors{FieldTaxAmount: CodeMustBeNonNegative},
		},
		{
			name:   "missing issue date",
			mutate: func(d *entity.InvoiceDraft) { d.Date = nil },
			want:   FieldErrors{FieldDate: CodeRequired},
		},
		{
			name:   "missing due date",
			mutate: func(d *entity.InvoiceDraft) { d.DueDate = nil },
			want:   FieldErrors{FieldDueDate: CodeRequired},
		},
		{
			name: "due date without issue date is only required-checked",
			mutate: func(d *entity.InvoiceDraft) {
				d.Date = nil
				d.DueDate = datePtr("2000-01-01")
			},
			want: FieldErrors{FieldDate: CodeRequired},
		},
		{
			name: "everything wrong at once",
			mutate: func(d *entity.InvoiceDraft) {
				*d = entity.InvoiceDraft{
					Amount:    decimal.NewFromInt(-5),
					TaxAmount: decimal.NewFromInt(-1),
				}
			},
			want: FieldErrors{
				FieldInvoiceNo:  CodeRequired,
				FieldClientName: CodeRequired,
				FieldAmount:     CodeMustBePositive,
				FieldTaxAmount:  CodeMustBeNonNegative,
				FieldDate:       CodeRequired,
				FieldDueDate:    CodeRequired,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)

			assert.Equal(t, tt.want, Validate(&d))
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Errors: FieldErrors{
		FieldDueDate:   CodeRequired,
		FieldInvoiceNo: CodeRequired,
	}}

	assert.Equal(t, "invoice draft invalid: dueDate: Required, invoiceNo: Required", err.Error())
}

func TestDraftPatch_Fields(t *testing.T) {
	amount := decimal.NewFromInt(1)
	p := DraftPatch{InvoiceNo: strPtr("a"), Amount: &amount}

	assert.Equal(t, []Field{FieldInvoiceNo, FieldAmount}, p.Fields())
	assert.False(t, p.IsEmpty())
	assert.True(t, DraftPatch{}.IsEmpty())
}
