package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/domain/entity"
	"github.com/garyjia/finnexus/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema files of the invoice store
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// InvoiceStore implements port.InvoiceStore on SQLite. Insertion order is
// kept in the seq column and List reads it backwards.
type InvoiceStore struct {
	db     *database.DB
	logger *zap.Logger
}

// NewInvoiceStore migrates db and returns a store over it
func NewInvoiceStore(ctx context.Context, db *database.DB, logger *zap.Logger) (*InvoiceStore, error) {
	if err := database.NewMigrator(db, logger).Run(ctx, Migrations()); err != nil {
		return nil, err
	}
	return &InvoiceStore{db: db, logger: logger}, nil
}

// Seed loads invoices given newest first, in one transaction
func (s *InvoiceStore) Seed(ctx context.Context, invoices []entity.Invoice) error {
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		for i := len(invoices) - 1; i >= 0; i-- {
			if err := insert(ctx, tx, invoices[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Append inserts inv at the head of the list
func (s *InvoiceStore) Append(ctx context.Context, inv entity.Invoice) error {
	if err := insert(ctx, s.db, inv); err != nil {
		s.logger.Error("Failed to append invoice", zap.String("id", inv.ID), zap.Error(err))
		return err
	}
	return nil
}

// List returns every invoice, newest first
func (s *InvoiceStore) List(ctx context.Context) ([]entity.Invoice, error) {
	query := `
		SELECT id, invoice_no, client_name, amount, tax_amount, issue_date, due_date,
			status, type, buyer_name, buyer_tax_id, seller_name, seller_tax_id, items
		FROM invoices
		ORDER BY seq DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]entity.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insert(ctx context.Context, ex execer, inv entity.Invoice) error {
	items, err := json.Marshal(itemsOrEmpty(inv.Items))
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	query := `
		INSERT INTO invoices (
			id, invoice_no, client_name, amount, tax_amount, issue_date, due_date,
			status, type, buyer_name, buyer_tax_id, seller_name, seller_tax_id, items
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = ex.ExecContext(ctx, query,
		inv.ID,
		inv.InvoiceNo,
		inv.ClientName,
		inv.Amount.String(),
		inv.TaxAmount.String(),
		inv.Date.String(),
		inv.DueDate.String(),
		string(inv.Status),
		string(inv.Type),
		inv.BuyerName,
		inv.BuyerTaxID,
		inv.SellerName,
		inv.SellerTaxID,
		string(items),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s", port.ErrDuplicateInvoice, inv.ID)
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

func scanInvoice(rows *sql.Rows) (entity.Invoice, error) {
	var (
		inv                 entity.Invoice
		amount, taxAmount   string
		issueDate, dueDate  string
		status, invoiceType string
		items               string
	)

	err := rows.Scan(
		&inv.ID, &inv.InvoiceNo, &inv.ClientName, &amount, &taxAmount, &issueDate, &dueDate,
		&status, &invoiceType, &inv.BuyerName, &inv.BuyerTaxID, &inv.SellerName, &inv.SellerTaxID, &items,
	)
	if err != nil {
		return inv, fmt.Errorf("failed to scan invoice: %w", err)
	}

	if inv.Amount, err = decimal.NewFromString(amount); err != nil {
		return inv, fmt.Errorf("invoice %s: bad amount: %w", inv.ID, err)
	}
	if inv.TaxAmount, err = decimal.NewFromString(taxAmount); err != nil {
		return inv, fmt.Errorf("invoice %s: bad tax amount: %w", inv.ID, err)
	}
	if err := inv.Date.UnmarshalText([]byte(issueDate)); err != nil {
		return inv, fmt.Errorf("invoice %s: %w", inv.ID, err)
	}
	if err := inv.DueDate.UnmarshalText([]byte(dueDate)); err != nil {
		return inv, fmt.Errorf("invoice %s: %w", inv.ID, err)
	}
	inv.Status = entity.InvoiceStatus(status)
	inv.Type = entity.InvoiceType(invoiceType)

	if err := json.Unmarshal([]byte(items), &inv.Items); err != nil {
		return inv, fmt.Errorf("invoice %s: bad items: %w", inv.ID, err)
	}
	if len(inv.Items) == 0 {
		inv.Items = nil
	}
	return inv, nil
}

func itemsOrEmpty(items []entity.LineItem) []entity.LineItem {
	if items == nil {
		return []entity.LineItem{}
	}
	return items
}

var _ port.InvoiceStore = (*InvoiceStore)(nil)
