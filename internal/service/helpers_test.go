package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-retail-catalog/internal/importer"
	"go-retail-catalog/internal/model"
	"go-retail-catalog/internal/repository"
	"go-retail-catalog/internal/staging"
	"go-retail-catalog/internal/ws"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	alice = importer.Caller{ID: "u-alice", Name: "Alice", Email: "alice@shop.test"}
	bob   = importer.Caller{ID: "u-bob", Name: "Bob", Email: "bob@shop.test"}
	admin = importer.Caller{ID: "u-admin", Name: "Admin", Email: "admin@shop.test", Admin: true}
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
	require.NoError(t, repository.Migrate(db))
	return db
}

// row builds a raw sheet row from column/value pairs.
func row(kv ...string) importer.RawRow {
	var r importer.RawRow
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

type rowsReader struct {
	rows []importer.RawRow
	err  error
}

func (r *rowsReader) Read(string, []byte) ([]importer.RawRow, error) {
	return r.rows, r.err
}

type recorder struct {
	mu     sync.Mutex
	events []ws.Event
}

func (r *recorder) Publish(ev ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []ws.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ws.Event(nil), r.events...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db         *gorm.DB
	products   repository.ProductRepository
	categories repository.CategoryRepository
	movements  repository.StockMovementRepository
	batches    repository.BatchRepository
	store      *staging.Memory
	reader     *rowsReader
	events     *recorder
	clock      *clock
	svc        *importService
	catalog    CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:         db,
		products:   repository.NewProductRepo(db),
		categories: repository.NewCategoryRepo(db),
		movements:  repository.NewStockMovementRepo(db),
		batches:    repository.NewBatchRepo(db),
		reader:     &rowsReader{},
		events:     &recorder{},
		clock:      &clock{now: time.Now()},
	}
	f.store = staging.NewMemoryWithClock(f.clock.Now)
	f.svc = NewImportService(ImportDeps{
		DB:         db,
		Products:   f.products,
		Categories: f.categories,
		Movements:  f.movements,
		Batches:    f.batches,
		Store:      f.store,
		Reader:     f.reader,
		Notifier:   f.events,
		TTL:        30 * time.Minute,
	}).(*importService)
	f.svc.now = f.clock.Now
	f.catalog = NewCatalogService(db, f.products, f.categories, f.movements, f.events)
	return f
}

func (f *fixture) preview(t *testing.T, req PreviewRequest, rows ...importer.RawRow) *PreviewResult {
	t.Helper()
	f.reader.rows = rows
	if req.Filename == "" {
		req.Filename = "products.csv"
	}
	res, err := f.svc.Preview(context.Background(), req, alice)
	require.NoError(t, err)
	return res
}

func (f *fixture) seed(t *testing.T, sku, name, brand string, price float64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		SKU: sku, Name: name, Brand: brand, Price: price, Stock: stock,
		UOM: "pcs", Category: "Groceries", DiscountType: "fixed", IsActive: true,
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) countProducts(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Product{}).Count(&n).Error)
	return n
}

func messages(errs []importer.RowError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Message)
	}
	return out
}
