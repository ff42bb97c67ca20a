package sqlite

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/domain/entity"
	"github.com/garyjia/finnexus/pkg/database"
)

func newStore(t *testing.T) *InvoiceStore {
	t.Helper()
	db, err := database.New(database.Config{Path: database.MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewInvoiceStore(context.Background(), db, zap.NewNop())
	require.NoError(t, err)
	return s
}

func sample(id string) entity.Invoice {
	return entity.Invoice{
		ID:         id,
		InvoiceNo:  "20231001-01",
		ClientName: "Acme Corp",
		Amount:     decimal.RequireFromString("4200.50"),
		TaxAmount:  decimal.RequireFromString("378.05"),
		Date:       entity.MustParseDate("2023-10-05"),
		DueDate:    entity.MustParseDate("2023-11-04"),
		Status:     entity.StatusPending,
		Type:       entity.TypeVATNormal,
	}
}

func TestInvoiceStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	inv := sample("INV-A")
	inv.SellerTaxID = "91310000MA1FL0000X"
	inv.Items = []entity.LineItem{{
		Name:      "Consulting",
		Quantity:  decimal.NewFromInt(2),
		UnitPrice: decimal.RequireFromString("2100.25"),
		Amount:    decimal.RequireFromString("4200.50"),
		TaxRate:   decimal.RequireFromString("0.09"),
		TaxAmount: decimal.RequireFromString("378.05"),
	}}
	require.NoError(t, s.Append(ctx, inv))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, "INV-A", got.ID)
	assert.True(t, got.Amount.Equal(inv.Amount))
	assert.True(t, got.TaxAmount.Equal(inv.TaxAmount))
	assert.Equal(t, "2023-11-04", got.DueDate.String())
	assert.Equal(t, entity.TypeVATNormal, got.Type)
	assert.Equal(t, "91310000MA1FL0000X", got.SellerTaxID)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].TaxRate.Equal(decimal.RequireFromString("0.09")))
}

func TestInvoiceStore_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Seed(ctx, []entity.Invoice{sample("INV-002"), sample("INV-001")}))
	require.NoError(t, s.Append(ctx, sample("INV-003")))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "INV-003", list[0].ID)
	assert.Equal(t, "INV-002", list[1].ID)
	assert.Equal(t, "INV-001", list[2].ID)
	assert.Nil(t, list[0].Items)
}

func TestInvoiceStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Append(ctx, sample("INV-1")))

	err := s.Append(ctx, sample("INV-1"))

	assert.ErrorIs(t, err, port.ErrDuplicateInvoice)
}

func TestInvoiceStore_SeedIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.Seed(ctx, []entity.Invoice{sample("INV-1"), sample("INV-1")})
	require.Error(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
