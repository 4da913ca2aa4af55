package service

import (
	"context"
	"fmt"

	"go-retail-catalog/internal/importer"
	"go-retail-catalog/internal/model"
	"go-retail-catalog/internal/repository"
	"go-retail-catalog/internal/ws"

	"gorm.io/gorm"
)

// productWriter performs product writes inside one transaction, provisioning
// categories and recording stock movements alongside.
type productWriter struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	movements  repository.StockMovementRepository

	userID  string
	batchID string
	reason  string

	newCategories int
}

func newProductWriter(tx *gorm.DB, p repository.ProductRepository, c repository.CategoryRepository, m repository.StockMovementRepository, userID, batchID, reason string) *productWriter {
	return &productWriter{
		products:   p.WithTx(tx),
		categories: c.WithTx(tx),
		movements:  m.WithTx(tx),
		userID:     userID,
		batchID:    batchID,
		reason:     reason,
	}
}

func (w *productWriter) create(ctx context.Context, d importer.Draft) (*model.Product, error) {
	if err := w.ensureCategory(ctx, d.Category); err != nil {
		return nil, err
	}

	p := &model.Product{}
	d.ApplyTo(p)
	p.CreatedBy = w.userID
	p.UpdatedBy = w.userID
	if err := w.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product %q: %w", p.Name, err)
	}

	if err := w.recordMovement(ctx, p.ID, 0, p.Stock); err != nil {
		return nil, err
	}
	return p, nil
}

func (w *productWriter) update(ctx context.Context, p *model.Product, d importer.Draft) error {
	if err := w.ensureCategory(ctx, d.Category); err != nil {
		return err
	}

	oldStock := p.Stock
	d.ApplyTo(p)
	p.UpdatedBy = w.userID
	if err := w.products.Update(ctx, p); err != nil {
		return fmt.Errorf("update product #%d: %w", p.ID, err)
	}

	return w.recordMovement(ctx, p.ID, oldStock, p.Stock)
}

func (w *productWriter) ensureCategory(ctx context.Context, name string) error {
	created, err := w.categories.Ensure(ctx, name)
	if err != nil {
		return fmt.Errorf("provision category %q: %w", name, err)
	}
	if created {
		w.newCategories++
	}
	return nil
}

func (w *productWriter) recordMovement(ctx context.Context, productID uint, from, to int) error {
	diff := to - from
	if diff == 0 {
		return nil
	}

	movement := &model.StockMovement{
		ProductID: productID,
		Type:      model.MovementIn,
		Quantity:  diff,
		Reason:    w.reason,
		BatchID:   w.batchID,
	}
	if diff < 0 {
		movement.Type = model.MovementOut
		movement.Quantity = -diff
	}
	movement.CreatedBy = w.userID
	movement.UpdatedBy = w.userID

	if err := w.movements.Record(ctx, movement); err != nil {
		return fmt.Errorf("record stock movement for #%d: %w", productID, err)
	}
	return nil
}

func actor(c importer.Caller) ws.Actor {
	return ws.Actor{ID: c.ID, Name: c.Name, Email: c.Email}
}
