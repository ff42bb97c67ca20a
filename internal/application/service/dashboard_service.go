package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/domain/entity"
)

// StatusAll disables the status filter
const StatusAll = "All"

// ErrUnknownStatus is returned for a status filter that names no status
var ErrUnknownStatus = errors.New("unknown status filter")

// InvoiceFilter narrows the invoice list
type InvoiceFilter struct {
	// Search is matched case-insensitively against client name and invoice number
	Search string `form:"search" json:"search"`
	// Status is a status name, "All", or empty
	Status string `form:"status" json:"status"`
}

// InvoiceRow is an invoice as listed, with derived display flags
type InvoiceRow struct {
	entity.Invoice
	DueSoon bool `json:"dueSoon"`
}

// Overview is the dashboard payload
type Overview struct {
	Metrics []entity.FinancialMetric `json:"metrics"`
	Charts  []entity.ChartDataPoint  `json:"charts"`
}

// DashboardService serves the read side: dashboard, invoice list, export
// and the assistant snapshot
type DashboardService interface {
	Overview(ctx context.Context) Overview
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceRow, error)
	Export(ctx context.Context, filter InvoiceFilter, w io.Writer) (int, error)
	Snapshot(ctx context.Context) (entity.Snapshot, error)
}

type dashboardServiceImpl struct {
	store       port.InvoiceStore
	dataset     port.DatasetSource
	exporter    port.Exporter
	dueSoonDays int
	now         func() time.Time
	logger      Logger
}

// NewDashboardService creates the read-side service. dueSoonDays is the
// window used for the due-soon flag.
func NewDashboardService(
	store port.InvoiceStore,
	dataset port.DatasetSource,
	exporter port.Exporter,
	dueSoonDays int,
	logger Logger,
) DashboardService {
	return &dashboardServiceImpl{
		store:       store,
		dataset:     dataset,
		exporter:    exporter,
		dueSoonDays: dueSoonDays,
		now:         time.Now,
		logger:      orNop(logger),
	}
}

func (s *dashboardServiceImpl) Overview(ctx context.Context) Overview {
	return Overview{
		Metrics: s.dataset.Metrics(),
		Charts:  s.dataset.Charts(),
	}
}

func (s *dashboardServiceImpl) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceRow, error) {
	invoices, err := s.filtered(ctx, filter)
	if err != nil {
		return nil, err
	}

	today := entity.NewDate(s.now())
	horizon := entity.NewDate(today.Time.AddDate(0, 0, s.dueSoonDays))

	rows := make([]InvoiceRow, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, InvoiceRow{Invoice: inv, DueSoon: dueSoon(inv, today, horizon)})
	}
	return rows, nil
}

func (s *dashboardServiceImpl) Export(ctx context.Context, filter InvoiceFilter, w io.Writer) (int, error) {
	invoices, err := s.filtered(ctx, filter)
	if err != nil {
		return 0, err
	}
	if err := s.exporter.Export(ctx, invoices, w); err != nil {
		s.logger.Error("Failed to export invoices", "count", len(invoices), "error", err)
		return 0, fmt.Errorf("export invoices: %w", err)
	}
	s.logger.Info("Invoices exported", "count", len(invoices))
	return len(invoices), nil
}

func (s *dashboardServiceImpl) Snapshot(ctx context.Context) (entity.Snapshot, error) {
	invoices, err := s.store.List(ctx)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("list invoices: %w", err)
	}
	return entity.Snapshot{
		Metrics:  s.dataset.Metrics(),
		Invoices: invoices,
		Charts:   s.dataset.Charts(),
	}, nil
}

func (s *dashboardServiceImpl) filtered(ctx context.Context, filter InvoiceFilter) ([]entity.Invoice, error) {
	var status entity.InvoiceStatus
	if filter.Status != "" && filter.Status != StatusAll {
		status = entity.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, filter.Status)
		}
	}

	invoices, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := invoices[:0:0]
	for _, inv := range invoices {
		if status != "" && inv.Status != status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(inv.ClientName), search) &&
			!strings.Contains(strings.ToLower(inv.InvoiceNo), search) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

// dueSoon flags unsettled invoices due between today and horizon inclusive
func dueSoon(inv entity.Invoice, today, horizon entity.Date) bool {
	if inv.Status.IsSettled() || inv.DueDate.IsZero() {
		return false
	}
	return !inv.DueDate.Before(today) && !horizon.Before(inv.DueDate)
}
