package review

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidTransition is returned when an event is not allowed in the current phase
	ErrInvalidTransition = errors.New("invalid review transition")

	// ErrGuardFailed is returned when every guarded edge for a trigger rejects the state
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrStaleResult is returned when an extraction result no longer belongs to the workflow
	ErrStaleResult = errors.New("stale extraction result")

	// ErrEmptyPatch is returned for an edit that touches no field
	ErrEmptyPatch = errors.New("draft patch changes nothing")
)

// Field names a draft field, using the wire names of the review form
type Field string

const (
	FieldInvoiceNo   Field = "invoiceNo"
	FieldClientName  Field = "clientName"
	FieldAmount      Field = "amount"
	FieldTaxAmount   Field = "taxAmount"
	FieldDate        Field = "date"
	FieldDueDate     Field = "dueDate"
	FieldStatus      Field = "status"
	FieldType        Field = "type"
	FieldBuyerName   Field = "buyerName"
	FieldBuyerTaxID  Field = "buyerTaxId"
	FieldSellerName  Field = "sellerName"
	FieldSellerTaxID Field = "sellerTaxId"
	FieldItems       Field = "items"
)

// Code identifies why a field failed validation
type Code string

const (
	CodeRequired                Code = "Required"
	CodeMustBePositive          Code = "MustBePositive"
	CodeMustBeNonNegative       Code = "MustBeNonNegative"
	CodeMustNotPrecedeIssueDate Code = "MustNotPrecedeIssueDate"
)

// FieldErrors holds at most one validation code per field
type FieldErrors map[Field]Code

// Clone returns an independent copy
func (fe FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(fe))
	for f, c := range fe {
		out[f] = c
	}
	return out
}

// ValidationError blocks a commit until every listed field is fixed
type ValidationError struct {
	Errors FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for f, c := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", f, c))
	}
	sort.Strings(parts)
	return "invoice draft invalid: " + strings.Join(parts, ", ")
}
