package inventory

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu          sync.Mutex
	products    map[uuid.UUID]ProductVolume
	adjustments []Adjustment
	failNext    int
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[uuid.UUID]ProductVolume)}
}

func (r *memoryRepo) addProduct(total, current string) uuid.UUID {
	id := uuid.New()
	r.products[id] = ProductVolume{ID: id, Name: "Aventus", TotalVolume: dec(total), CurrentVolume: dec(current), IsActive: true}
	return id
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext > 0 {
		r.failNext--
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	}
	products := make(map[uuid.UUID]ProductVolume, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	adjustments := len(r.adjustments)
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.products = products
		r.adjustments = r.adjustments[:adjustments]
		return err
	}
	return nil
}

func (r *memoryRepo) ListAdjustments(_ context.Context, productID uuid.UUID, limit int) ([]Adjustment, error) {
	var out []Adjustment
	for i := len(r.adjustments) - 1; i >= 0 && len(out) < limit; i-- {
		if r.adjustments[i].ProductID == productID {
			out = append(out, r.adjustments[i])
		}
	}
	return out, nil
}

func (r *memoryRepo) ListLowStock(_ context.Context, threshold decimal.Decimal) ([]LowStockProduct, error) {
	var out []LowStockProduct
	for _, p := range r.products {
		if p.IsActive && p.CurrentVolume.LessThan(threshold) {
			out = append(out, LowStockProduct{ID: p.ID, Name: p.Name, CurrentVolume: p.CurrentVolume, TotalVolume: p.TotalVolume, Status: ClassifyWithThreshold(p.CurrentVolume, threshold)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentVolume.LessThan(out[j].CurrentVolume) })
	return out, nil
}

func (r *memoryRepo) LedgerTotals(_ context.Context, productID uuid.UUID) (LedgerTotals, error) {
	p, ok := r.products[productID]
	if !ok {
		return LedgerTotals{}, ErrProductNotFound
	}
	t := LedgerTotals{TotalVolume: p.TotalVolume, CurrentVolume: p.CurrentVolume}
	for _, adj := range r.adjustments {
		if adj.ProductID == productID {
			t.Adjustments = t.Adjustments.Add(adj.Amount)
			t.Entries++
		}
	}
	return t, nil
}

func (r *memoryRepo) ListProductIDs(context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}
	return ids, nil
}

func (tx *memoryTx) GetProductForUpdate(_ context.Context, id uuid.UUID) (ProductVolume, error) {
	p, ok := tx.repo.products[id]
	if !ok {
		return ProductVolume{}, ErrProductNotFound
	}
	return p, nil
}

func (tx *memoryTx) UpdateCurrentVolume(_ context.Context, id uuid.UUID, volume decimal.Decimal) error {
	p, ok := tx.repo.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.CurrentVolume = volume
	tx.repo.products[id] = p
	return nil
}

func (tx *memoryTx) InsertAdjustment(_ context.Context, adj Adjustment) (Adjustment, error) {
	adj.ID = uuid.New()
	adj.CreatedAt = time.Now()
	tx.repo.adjustments = append(tx.repo.adjustments, adj)
	return adj, nil
}

type countingMetrics struct {
	adjustments map[string]int
	retries     int
}

func (m *countingMetrics) ObserveAdjustment(reason string, n int) {
	if m.adjustments == nil {
		m.adjustments = map[string]int{}
	}
	m.adjustments[reason] += n
}

func (m *countingMetrics) ObserveRetry(string) { m.retries++ }

func TestAdjustVolumeRecordsSignedDelta(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addProduct("100", "12")
	metrics := &countingMetrics{}
	svc := NewService(repo, nil, metrics, nil, ServiceConfig{})
	actor := uuid.New()

	result, err := svc.AdjustVolume(context.Background(), AdjustVolumeInput{
		ProductID: id, ActorID: actor, NewVolume: dec("50"), Reason: ReasonCorrection,
	})
	require.NoError(t, err)
	require.True(t, result.PreviousVolume.Equal(dec("12")))
	require.True(t, result.NewVolume.Equal(dec("50")))
	require.True(t, result.Adjustment.Equal(dec("38")))

	require.True(t, repo.products[id].CurrentVolume.Equal(dec("50")))
	require.Len(t, repo.adjustments, 1)
	adj := repo.adjustments[0]
	require.Equal(t, ReasonCorrection, adj.Reason)
	require.Equal(t, actor, adj.AdjustedBy)
	require.False(t, adj.OrderID.Valid)
	require.Equal(t, 1, metrics.adjustments["correction"])
}

func TestAdjustVolumeRejectsOutOfRange(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addProduct("100", "12")
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.AdjustVolume(ctx, AdjustVolumeInput{ProductID: id, NewVolume: dec("100.5"), Reason: ReasonCorrection})
	require.ErrorIs(t, err, ErrVolumeOutOfRange)

	_, err = svc.AdjustVolume(ctx, AdjustVolumeInput{ProductID: id, NewVolume: dec("-1"), Reason: ReasonSpillage})
	require.ErrorIs(t, err, ErrVolumeOutOfRange)

	require.True(t, repo.products[id].CurrentVolume.Equal(dec("12")))
	require.Empty(t, repo.adjustments)
}

func TestAdjustVolumeRejectsExtraPrecision(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addProduct("100", "12")
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.AdjustVolume(ctx, AdjustVolumeInput{ProductID: id, NewVolume: dec("11.005"), Reason: ReasonEvaporation})
	require.ErrorIs(t, err, ErrVolumePrecision)
	require.Equal(t, CodeValidation, ErrorCode(err))
	require.Empty(t, repo.adjustments)

	// Trailing zeros are not extra precision.
	result, err := svc.AdjustVolume(ctx, AdjustVolumeInput{ProductID: id, NewVolume: dec("11.500"), Reason: ReasonEvaporation})
	require.NoError(t, err)
	require.True(t, result.NewVolume.Equal(dec("11.5")))

	err = repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		_, err = Post(ctx, tx, product, Entry{NewVolume: dec("3.333"), Reason: ReasonCorrection})
		return err
	})
	require.ErrorIs(t, err, ErrVolumePrecision)
	require.True(t, repo.products[id].CurrentVolume.Equal(dec("11.5")))
}

func TestAdjustVolumeValidatesReasonAndProduct(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addProduct("100", "12")
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	_, err := svc.AdjustVolume(ctx, AdjustVolumeInput{ProductID: id, NewVolume: dec("5"), Reason: "theft"})
	require.ErrorIs(t, err, ErrInvalidReason)

	_, err = svc.AdjustVolume(ctx, AdjustVolumeInput{ProductID: id, NewVolume: dec("5"), Reason: ReasonOrderFulfillment})
	require.ErrorIs(t, err, ErrReservedReason)

	_, err = svc.AdjustVolume(ctx, AdjustVolumeInput{ProductID: uuid.New(), NewVolume: dec("5"), Reason: ReasonDamaged})
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Equal(t, CodeProductNotFound, ErrorCode(err))
}

func TestAdjustVolumeNoopStillRecorded(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addProduct("100", "40")
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})

	result, err := svc.AdjustVolume(context.Background(), AdjustVolumeInput{ProductID: id, NewVolume: dec("40"), Reason: ReasonQualityCheck})
	require.NoError(t, err)
	require.True(t, result.Adjustment.IsZero())
	require.Len(t, repo.adjustments, 1)
}

func TestAdjustVolumeRetriesThenConflicts(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addProduct("100", "40")
	metrics := &countingMetrics{}
	svc := NewService(repo, nil, metrics, nil, ServiceConfig{MaxAttempts: 3})
	ctx := context.Background()

	repo.failNext = 2
	_, err := svc.AdjustVolume(ctx, AdjustVolumeInput{ProductID: id, NewVolume: dec("30"), Reason: ReasonEvaporation})
	require.NoError(t, err)
	require.Equal(t, 2, metrics.retries)

	repo.failNext = 3
	_, err = svc.AdjustVolume(ctx, AdjustVolumeInput{ProductID: id, NewVolume: dec("20"), Reason: ReasonEvaporation})
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, CodeConflict, ErrorCode(err))
	require.True(t, repo.products[id].CurrentVolume.Equal(dec("30")))
}

func TestLedgerReconstructsVolume(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addProduct("100", "100")
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	for _, v := range []string{"80", "72.5", "90", "0"} {
		_, err := svc.AdjustVolume(ctx, AdjustVolumeInput{ProductID: id, NewVolume: dec(v), Reason: ReasonOther})
		require.NoError(t, err)
	}
	report, err := svc.Reconcile(ctx, id)
	require.NoError(t, err)
	require.True(t, report.Balanced)
	require.Equal(t, 4, report.Entries)
	require.True(t, report.Actual.IsZero())

	// Simulate an out-of-band write.
	p := repo.products[id]
	p.CurrentVolume = dec("5")
	repo.products[id] = p
	drifted, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, drifted, 1)
	require.True(t, drifted[0].Drift.Equal(dec("5")))
}

func TestRecordInitialFill(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addProduct("100", "64")
	full := repo.addProduct("50", "50")
	ctx := context.Background()
	actor := uuid.New()

	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		adj, err := RecordInitialFill(ctx, tx, id, actor)
		require.NoError(t, err)
		require.NotNil(t, adj)
		require.True(t, adj.Amount.Equal(dec("-36")))

		none, err := RecordInitialFill(ctx, tx, full, actor)
		require.NoError(t, err)
		require.Nil(t, none)
		return nil
	})
	require.NoError(t, err)

	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	report, err := svc.Reconcile(ctx, id)
	require.NoError(t, err)
	require.True(t, report.Balanced)
	require.True(t, repo.products[id].CurrentVolume.Equal(dec("64")))
}

func TestLowStockUsesConfiguredThreshold(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct("100", "4")
	repo.addProduct("100", "12")
	repo.addProduct("100", "0")
	svc := NewService(repo, nil, nil, nil, ServiceConfig{LowStockThreshold: dec("15")})

	products, err := svc.LowStock(context.Background(), decimal.Zero)
	require.NoError(t, err)
	require.Len(t, products, 3)
	require.Equal(t, StockOut, products[0].Status)
	require.Equal(t, StockLow, products[2].Status)

	products, err = svc.LowStock(context.Background(), dec("10"))
	require.NoError(t, err)
	require.Len(t, products, 2)
}

func TestHistoryNewestFirst(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addProduct("100", "100")
	svc := NewService(repo, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()
	for _, v := range []string{"90", "80", "70"} {
		_, err := svc.AdjustVolume(ctx, AdjustVolumeInput{ProductID: id, NewVolume: dec(v), Reason: ReasonSpillage})
		require.NoError(t, err)
	}
	history, err := svc.History(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.True(t, history[0].NewVolume.Equal(dec("70")))
}
