package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/domain/entity"
)

func TestInvoiceStore_AppendPrepends(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore([]entity.Invoice{{ID: "INV-002"}, {ID: "INV-001"}})

	require.NoError(t, s.Append(ctx, entity.Invoice{ID: "INV-003"}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, inv := range list {
		ids[i] = inv.ID
	}
	assert.Equal(t, []string{"INV-003", "INV-002", "INV-001"}, ids)
}

func TestInvoiceStore_RejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore([]entity.Invoice{{ID: "INV-001"}})

	err := s.Append(ctx, entity.Invoice{ID: "INV-001"})

	assert.ErrorIs(t, err, port.ErrDuplicateInvoice)
	list, _ := s.List(ctx)
	assert.Len(t, list, 1)
}

func TestInvoiceStore_ListIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore([]entity.Invoice{{ID: "INV-001", ClientName: "Acme"}})

	list, _ := s.List(ctx)
	list[0].ClientName = "changed"

	again, _ := s.List(ctx)
	assert.Equal(t, "Acme", again[0].ClientName)
}

func TestInvoiceStore_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Append(ctx, entity.Invoice{ID: entity.NewInvoiceID()})
			_, _ = s.List(ctx)
		}(i)
	}
	wg.Wait()

	list, _ := s.List(ctx)
	assert.Len(t, list, 50)
}

func TestInvoiceStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewInvoiceStore(nil).Append(ctx, entity.Invoice{ID: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
