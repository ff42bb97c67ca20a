// Package memory keeps invoices in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/domain/entity"
)

// InvoiceStore is a newest-first list guarded by a RWMutex
type InvoiceStore struct {
	mu       sync.RWMutex
	invoices []entity.Invoice
	ids      map[string]struct{}
}

// NewInvoiceStore creates a store holding seed, given newest first
func NewInvoiceStore(seed []entity.Invoice) *InvoiceStore {
	s := &InvoiceStore{
		invoices: make([]entity.Invoice, 0, len(seed)),
		ids:      make(map[string]struct{}, len(seed)),
	}
	for _, inv := range seed {
		s.invoices = append(s.invoices, inv)
		s.ids[inv.ID] = struct{}{}
	}
	return s
}

// List returns a copy of the invoices, newest first
func (s *InvoiceStore) List(_ context.Context) ([]entity.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Invoice, len(s.invoices))
	copy(out, s.invoices)
	return out, nil
}

// Append inserts inv at the head of the list
func (s *InvoiceStore) Append(ctx context.Context, inv entity.Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.ids[inv.ID]; taken {
		return fmt.Errorf("%w: %s", port.ErrDuplicateInvoice, inv.ID)
	}

	s.invoices = append([]entity.Invoice{inv}, s.invoices...)
	s.ids[inv.ID] = struct{}{}
	return nil
}

var _ port.InvoiceStore = (*InvoiceStore)(nil)
