package review

import (
	"github.com/garyjia/finnexus/internal/domain/entity"
	"github.com/garyjia/finnexus/pkg/utils"
)

// Validate checks a draft against the commit rules. All rules run; the
// result is empty when the draft may be committed.
func Validate(d *entity.InvoiceDraft) FieldErrors {
	errs := make(FieldErrors)
	if d == nil {
		return errs
	}

	if utils.IsBlank(d.InvoiceNo) {
		errs[FieldInvoiceNo] = CodeRequired
	}
	if utils.IsBlank(d.ClientName) {
		errs[FieldClientName] = CodeRequired
	}
	if !d.Amount.IsPositive() {
		errs[FieldAmount] = CodeMustBePositive
	}
	if d.TaxAmount.IsNegative() {
		errs[FieldTaxAmount] = CodeMustBeNonNegative
	}

	issued := d.Date != nil && !d.Date.IsZero()
	if !issued {
		errs[FieldDate] = CodeRequired
	}

	switch {
	case d.DueDate == nil || d.DueDate.IsZero():
		errs[FieldDueDate] = CodeRequired
	case issued && d.DueDate.Before(*d.Date):
		errs[FieldDueDate] = CodeMustNotPrecedeIssueDate
	}

	return errs
}
