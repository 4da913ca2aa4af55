package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go-retail-catalog/internal/importer"
	"go-retail-catalog/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonRow(t *testing.T, body string) importer.RawRow {
	t.Helper()
	var r importer.RawRow
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	return r
}

func TestCatalog_CreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, jsonRow(t, `{"name":"Tea","brand":"X","price":100,"mrp":120,"stock":6}`), false, alice)
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "TEAXXXXXXX0120", p.SKU)
	assert.Equal(t, "Groceries", p.Category)
	assert.True(t, p.IsActive)

	cats, err := f.catalog.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)

	n, err := f.movements.CountByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "product_created", events[0].Action)
	assert.Equal(t, "Alice", events[0].User.Name)
}

func TestCatalog_CreateRejectsInvalidDraft(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateProduct(context.Background(), jsonRow(t, `{"name":"","price":0,"discount_type":"bogus"}`), false, alice)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Violations, "name is required")
	assert.Contains(t, verr.Violations, "price must be greater than 0")
	assert.Contains(t, verr.Violations, "discount_type must be one of: fixed, percentage")
	assert.EqualValues(t, 0, f.countProducts(t))
}

func TestCatalog_CreateConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "TEA-1", "Tea", "X", 100, 5)

	_, err := f.catalog.CreateProduct(ctx, jsonRow(t, `{"sku":"tea-1","name":"Green Tea","price":80}`), true, alice)
	var cerr *ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, importer.SeverityBlock, cerr.Conflict.Severity)

	_, err = f.catalog.CreateProduct(ctx, jsonRow(t, `{"name":"Tea","brand":"X","price":110}`), false, alice)
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, importer.SeverityConfirm, cerr.Conflict.Severity)

	p, err := f.catalog.CreateProduct(ctx, jsonRow(t, `{"name":"Tea","brand":"X","price":110}`), true, alice)
	require.NoError(t, err)
	assert.Equal(t, 110.0, p.Price)
}

func TestCatalog_UpdateIsPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tea := f.seed(t, "TEA-1", "Tea", "X", 100, 5)

	p, err := f.catalog.UpdateProduct(ctx, tea.ID, jsonRow(t, `{"price":120,"stock":8}`), false, bob)
	require.NoError(t, err)
	assert.Equal(t, 120.0, p.Price)
	assert.Equal(t, 8, p.Stock)
	assert.Equal(t, "Tea", p.Name)
	assert.Equal(t, "TEA-1", p.SKU)
	assert.Equal(t, "u-bob", p.UpdatedBy)

	moves, err := f.movements.CountByProduct(ctx, tea.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, moves)

	_, err = f.catalog.UpdateProduct(ctx, tea.ID, jsonRow(t, `{"price":-1}`), false, bob)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"price must be greater than 0"}, verr.Violations)

	_, err = f.catalog.UpdateProduct(ctx, 9999, jsonRow(t, `{"price":1}`), false, bob)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalog_DeleteProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tea := f.seed(t, "TEA-1", "Tea", "X", 100, 5)
	salt := f.seed(t, "SALT-1", "Salt", "Y", 20, 0)

	require.NoError(t, f.catalog.DeleteProduct(ctx, tea.ID, false, alice))
	active, err := f.catalog.ListProducts(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, salt.ID, active[0].ID)

	all, err := f.catalog.ListProducts(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.catalog.AdjustStock(ctx, StockAdjustment{ProductID: salt.ID, Type: model.MovementIn, Quantity: 3}, alice)
	require.NoError(t, err)
	assert.ErrorIs(t, f.catalog.DeleteProduct(ctx, salt.ID, true, alice), ErrProductReferenced)

	require.NoError(t, f.catalog.DeleteProduct(ctx, tea.ID, true, alice))
	_, err = f.catalog.GetProduct(ctx, tea.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalog_AdjustStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	salt := f.seed(t, "SALT-1", "Salt", "Y", 20, 4)

	p, err := f.catalog.AdjustStock(ctx, StockAdjustment{ProductID: salt.ID, Type: model.MovementOut, Quantity: 3}, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)

	_, err = f.catalog.AdjustStock(ctx, StockAdjustment{ProductID: salt.ID, Type: model.MovementOut, Quantity: 2}, alice)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = f.catalog.AdjustStock(ctx, StockAdjustment{ProductID: salt.ID, Type: "SIDEWAYS", Quantity: 2}, alice)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = f.catalog.AdjustStock(ctx, StockAdjustment{ProductID: 404, Type: model.MovementIn, Quantity: 1}, alice)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
