package port

import (
	"context"
	"errors"
	"io"

	"github.com/garyjia/finnexus/internal/domain/entity"
)

// InvoiceStore holds committed invoices, newest first
type InvoiceStore interface {
	// List returns every invoice, most recently appended first
	List(ctx context.Context) ([]entity.Invoice, error)

	// Append inserts inv at the head of the list
	Append(ctx context.Context, inv entity.Invoice) error
}

// DatasetSource provides the static dashboard data
type DatasetSource interface {
	Metrics() []entity.FinancialMetric
	Charts() []entity.ChartDataPoint
}

// Exporter writes invoices to a spreadsheet
type Exporter interface {
	Export(ctx context.Context, invoices []entity.Invoice, w io.Writer) error
}

// ErrDuplicateInvoice is returned when appending an invoice whose ID is taken
var ErrDuplicateInvoice = errors.New("invoice id already exists")
