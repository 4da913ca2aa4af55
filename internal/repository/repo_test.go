package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-retail-catalog/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func seedProduct(t *testing.T, repo ProductRepository, sku, barcode, name, brand string) *model.Product {
	t.Helper()
	p := &model.Product{
		SKU: sku, Barcode: barcode, Name: name, Brand: brand,
		Price: 10, Category: "Groceries", UOM: "pcs", DiscountType: "fixed", IsActive: true,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestProductRepo_CaseInsensitiveLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo(newTestDB(t))
	tea := seedProduct(t, repo, "TEA-1", "ABC123", "Tea", "Tata")

	p, err := repo.FindBySKU(ctx, "tea-1", 0)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, tea.ID, p.ID)

	p, err = repo.FindBySKU(ctx, "TEA-1", tea.ID)
	require.NoError(t, err)
	assert.Nil(t, p, "excluded id must not match itself")

	p, err = repo.FindByBarcode(ctx, "abc123", 0)
	require.NoError(t, err)
	require.NotNil(t, p)

	p, err = repo.FindByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, p)

	list, err := repo.FindByNameBrand(ctx, "tea", "tata", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProductRepo_EmptyBarcodeNeverMatches(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo(newTestDB(t))
	seedProduct(t, repo, "A", "", "A", "")

	p, err := repo.FindByBarcode(ctx, "", 0)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProductRepo_DeactivateHidesFromList(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo(newTestDB(t))
	a := seedProduct(t, repo, "A", "", "A", "")
	seedProduct(t, repo, "B", "", "B", "")

	require.NoError(t, repo.Deactivate(ctx, a.ID, "tester"))

	active, err := repo.FindAll(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := repo.FindAll(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCategoryRepo_EnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewCategoryRepo(newTestDB(t))

	created, err := repo.Ensure(ctx, "Spices")
	require.NoError(t, err)
	assert.True(t, created)

	for _, name := range []string{"spices", " SPICES ", "Spices"} {
		created, err = repo.Ensure(ctx, name)
		require.NoError(t, err)
		assert.False(t, created, name)
	}

	ok, err := repo.Exists(ctx, "sPiCeS")
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Spices", all[0].Name)
}

func TestCategoryRepo_EnsureConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewCategoryRepo(newTestDB(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Ensure(ctx, "Dairy")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStockMovementRepo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	products := NewProductRepo(db)
	ledger := NewStockMovementRepo(db)
	p := seedProduct(t, products, "S", "", "Salt", "")

	require.NoError(t, ledger.Record(ctx, &model.StockMovement{ProductID: p.ID, Type: model.MovementIn, Quantity: 5, Reason: "import", BatchID: "b1"}))
	require.NoError(t, ledger.Record(ctx, &model.StockMovement{ProductID: p.ID, Type: model.MovementOut, Quantity: 2, Reason: "import", BatchID: "b1"}))

	n, err := ledger.CountByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	moves, err := ledger.FindByBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, moves, 2)
}

func TestBatchRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepo(newTestDB(t))
	now := time.Now().UTC()

	require.NoError(t, repo.Record(ctx, &model.ImportBatch{BatchID: "fresh", Checksum: "c", Mode: "upsert", StockMode: "replace", Status: model.BatchStaged, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Record(ctx, &model.ImportBatch{BatchID: "stale", Checksum: "c", Mode: "upsert", StockMode: "replace", Status: model.BatchStaged, ExpiresAt: now.Add(-time.Minute)}))

	n, err := repo.ExpireStale(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.MarkApplied(ctx, "fresh", "u1", 3, 1, now))
	b, err := repo.FindByBatchID(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, model.BatchApplied, b.Status)
	assert.Equal(t, 3, b.Created)

	assert.ErrorIs(t, repo.MarkApplied(ctx, "fresh", "u2", 9, 9, now), ErrBatchConsumed)
	assert.ErrorIs(t, repo.MarkApplied(ctx, "stale", "u2", 1, 0, now), ErrBatchConsumed)
	assert.NoError(t, repo.MarkApplied(ctx, "never-mirrored", "u2", 1, 0, now))
	b, _ = repo.FindByBatchID(ctx, "fresh")
	assert.Equal(t, 3, b.Created)

	require.NoError(t, repo.MarkExpired(ctx, []string{"fresh"}))
	b, _ = repo.FindByBatchID(ctx, "fresh")
	assert.Equal(t, model.BatchApplied, b.Status, "applied batches never flip to expired")

	b, err = repo.FindByBatchID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, b)
}
