package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cologne-noir/decant/internal/inventory"
	"github.com/cologne-noir/decant/internal/platform/httpx"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type memoryRepo struct {
	mu          sync.Mutex
	products    map[uuid.UUID]Product
	adjustments []inventory.Adjustment
	orderItems  map[uuid.UUID]int
}

type memoryTx struct{ repo *memoryRepo }

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[uuid.UUID]Product), orderItems: make(map[uuid.UUID]int)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	products := make(map[uuid.UUID]Product, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	adjustments := append([]inventory.Adjustment(nil), r.adjustments...)
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.products = products
		r.adjustments = adjustments
		return err
	}
	return nil
}

func (tx *memoryTx) InsertProduct(_ context.Context, p Product) (Product, error) {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	tx.repo.products[p.ID] = p
	return p, nil
}

func (tx *memoryTx) UpdateDetails(_ context.Context, id uuid.UUID, d Details) error {
	p, ok := tx.repo.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Name, p.Brand = d.Name, d.Brand
	p.Concentration, p.Gender, p.Season = d.Concentration, d.Gender, seasonOrDefault(d.Season)
	p.Description, p.BatchCode, p.ImageURL = nullable(d.Description), nullable(d.BatchCode), nullable(d.ImageURL)
	p.Notes = d.Notes
	p.Prices = d.Prices
	tx.repo.products[id] = p
	return nil
}

func (tx *memoryTx) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	p, ok := tx.repo.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.IsActive = active
	tx.repo.products[id] = p
	return nil
}

func (tx *memoryTx) Referenced(_ context.Context, id uuid.UUID) (bool, error) {
	if tx.repo.orderItems[id] > 0 {
		return true, nil
	}
	for _, adj := range tx.repo.adjustments {
		if adj.ProductID == id {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) DeleteProduct(_ context.Context, id uuid.UUID) error {
	if _, ok := tx.repo.products[id]; !ok {
		return ErrProductNotFound
	}
	for _, adj := range tx.repo.adjustments {
		if adj.ProductID == id {
			return ErrProductInUse
		}
	}
	delete(tx.repo.products, id)
	return nil
}

func (tx *memoryTx) Ledger() inventory.TxRepository { return tx }

func (tx *memoryTx) GetProductForUpdate(_ context.Context, id uuid.UUID) (inventory.ProductVolume, error) {
	p, ok := tx.repo.products[id]
	if !ok {
		return inventory.ProductVolume{}, inventory.ErrProductNotFound
	}
	return inventory.ProductVolume{ID: p.ID, Name: p.Name, TotalVolume: p.TotalVolume, CurrentVolume: p.CurrentVolume, IsActive: p.IsActive}, nil
}

func (tx *memoryTx) UpdateCurrentVolume(_ context.Context, id uuid.UUID, volume decimal.Decimal) error {
	p := tx.repo.products[id]
	p.CurrentVolume = volume
	tx.repo.products[id] = p
	return nil
}

func (tx *memoryTx) InsertAdjustment(_ context.Context, adj inventory.Adjustment) (inventory.Adjustment, error) {
	adj.ID = uuid.New()
	adj.CreatedAt = time.Now()
	tx.repo.adjustments = append(tx.repo.adjustments, adj)
	return adj, nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (r *memoryRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]Product, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Product
	for _, p := range r.products {
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		if filter.Gender != "" && p.Gender != filter.Gender {
			continue
		}
		out = append(out, p)
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	return out[offset:min(offset+limit, total)], total, nil
}

func input(total, current string) CreateInput {
	return CreateInput{
		Details: Details{
			Name:          " Aventus ",
			Brand:         "Creed",
			Concentration: ConcentrationEDP,
			Gender:        GenderMasculine,
			Notes:         Notes{Top: []string{"pineapple", "bergamot"}, Base: []string{"musk"}},
			Prices: inventory.Prices{
				Price10ml: decimal.NewNullDecimal(dec("1800")),
				Price30ml: decimal.NewNullDecimal(dec("4900")),
			},
		},
		TotalVolume:   dec(total),
		CurrentVolume: dec(current),
	}
}

func TestCreateRecordsInitialFill(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	actor := uuid.New()

	created, err := svc.Create(context.Background(), actor, input("100", "85"))
	require.NoError(t, err)
	require.Equal(t, "Aventus", created.Name)
	require.Equal(t, SeasonAll, created.Season)
	require.True(t, created.IsActive)
	require.Equal(t, inventory.StockIn, created.StockStatus)
	require.Equal(t, []inventory.Size{inventory.Size10ml, inventory.Size30ml}, created.AvailableSizes)

	require.Len(t, repo.adjustments, 1)
	fill := repo.adjustments[0]
	require.Equal(t, inventory.ReasonCorrection, fill.Reason)
	require.Equal(t, inventory.InitialFillNote, fill.Notes)
	require.Equal(t, actor, fill.AdjustedBy)
	require.True(t, fill.PreviousVolume.Equal(dec("100")))
	require.True(t, fill.NewVolume.Equal(dec("85")))
	require.True(t, fill.Amount.Equal(dec("-15")))
	require.True(t, repo.products[created.ID].CurrentVolume.Equal(dec("85")))
}

func TestCreateFullBottleHasNoHistory(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), input("100", "100"))
	require.NoError(t, err)
	require.Empty(t, repo.adjustments)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)

	cases := []struct {
		name   string
		mutate func(*CreateInput)
		want   error
	}{
		{"over capacity", func(in *CreateInput) { in.TotalVolume = dec("1000.5") }, ErrInvalidVolume},
		{"zero total", func(in *CreateInput) { in.TotalVolume = dec("0"); in.CurrentVolume = dec("0") }, ErrInvalidVolume},
		{"current above total", func(in *CreateInput) { in.CurrentVolume = dec("101") }, ErrInvalidVolume},
		{"negative current", func(in *CreateInput) { in.CurrentVolume = dec("-1") }, ErrInvalidVolume},
		{"current past two decimals", func(in *CreateInput) { in.CurrentVolume = dec("12.345") }, ErrInvalidVolume},
		{"total past two decimals", func(in *CreateInput) { in.TotalVolume = dec("99.999") }, ErrInvalidVolume},
		{"no prices", func(in *CreateInput) { in.Prices = inventory.Prices{} }, ErrNoPrice},
		{"zero price", func(in *CreateInput) { in.Price15ml = decimal.NewNullDecimal(dec("0")) }, ErrInvalidPrice},
		{"missing brand", func(in *CreateInput) { in.Brand = "" }, httpx.ErrValidation},
		{"bad concentration", func(in *CreateInput) { in.Concentration = "EDX" }, httpx.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := input("100", "100")
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), uuid.New(), in)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateLeavesVolumeAlone(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	created, err := svc.Create(context.Background(), uuid.New(), input("100", "40"))
	require.NoError(t, err)

	details := created.Product
	update := input("500", "500").Details
	update.Name = "Aventus Cologne"
	update.Price100ml = decimal.NewNullDecimal(dec("12000"))
	updated, err := svc.Update(context.Background(), uuid.New(), details.ID, update)
	require.NoError(t, err)
	require.Equal(t, "Aventus Cologne", updated.Name)
	require.True(t, updated.TotalVolume.Equal(dec("100")))
	require.True(t, updated.CurrentVolume.Equal(dec("40")))
	require.Equal(t, []inventory.Size{inventory.Size10ml, inventory.Size30ml}, updated.AvailableSizes)

	_, err = svc.Update(context.Background(), uuid.New(), uuid.New(), update)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestDeactivatedProductHiddenFromStorefront(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	created, err := svc.Create(context.Background(), uuid.New(), input("100", "5"))
	require.NoError(t, err)
	require.Equal(t, inventory.StockLow, created.StockStatus)

	require.NoError(t, svc.SetActive(context.Background(), uuid.New(), created.ID, false))

	_, err = svc.Get(context.Background(), created.ID, false)
	require.ErrorIs(t, err, ErrProductNotFound)
	got, err := svc.Get(context.Background(), created.ID, true)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	active, pagination, err := svc.ListActive(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Empty(t, active)
	require.Equal(t, 0, pagination.Total)

	all, _, err := svc.List(context.Background(), ListFilter{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestDeleteRestrictedByHistory(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	fresh, err := svc.Create(context.Background(), uuid.New(), input("100", "100"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), uuid.New(), fresh.ID))
	require.Empty(t, repo.products)

	partial, err := svc.Create(context.Background(), uuid.New(), input("100", "90"))
	require.NoError(t, err)
	require.Len(t, repo.adjustments, 1)
	require.ErrorIs(t, svc.Delete(context.Background(), uuid.New(), partial.ID), ErrProductInUse)
	require.Len(t, repo.adjustments, 1)

	sold, err := svc.Create(context.Background(), uuid.New(), input("100", "100"))
	require.NoError(t, err)
	repo.orderItems[sold.ID] = 1
	require.ErrorIs(t, svc.Delete(context.Background(), uuid.New(), sold.ID), ErrProductInUse)

	adjusted, err := svc.Create(context.Background(), uuid.New(), input("100", "100"))
	require.NoError(t, err)
	repo.adjustments = append(repo.adjustments, inventory.Adjustment{ProductID: adjusted.ID, Reason: inventory.ReasonSpillage})
	require.ErrorIs(t, svc.Delete(context.Background(), uuid.New(), adjusted.ID), ErrProductInUse)

	require.ErrorIs(t, svc.Delete(context.Background(), uuid.New(), uuid.New()), ErrProductNotFound)
}

func TestDeleteKeepsManualCorrections(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	created, err := svc.Create(context.Background(), uuid.New(), input("100", "100"))
	require.NoError(t, err)

	// A manual correction whose note mimics the creation entry.
	err = repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		ledger := tx.Ledger()
		product, err := ledger.GetProductForUpdate(ctx, created.ID)
		if err != nil {
			return err
		}
		_, err = inventory.Post(ctx, ledger, product, inventory.Entry{
			NewVolume: dec("40"),
			Reason:    inventory.ReasonCorrection,
			Notes:     inventory.InitialFillNote,
			ActorID:   uuid.New(),
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, repo.adjustments, 1)

	require.ErrorIs(t, svc.Delete(context.Background(), uuid.New(), created.ID), ErrProductInUse)
	require.Len(t, repo.adjustments, 1)
	require.Contains(t, repo.products, created.ID)
}
