package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-retail-catalog/internal/importer"
	"go-retail-catalog/internal/logger"
	"go-retail-catalog/internal/model"
	"go-retail-catalog/internal/repository"
	"go-retail-catalog/internal/ws"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInsufficientStock = errors.New("insufficient stock remaining")

// StockAdjustment is a manual IN/OUT movement against one product.
type StockAdjustment struct {
	ProductID uint               `json:"product_id"`
	Type      model.MovementType `json:"type"`
	Quantity  int                `json:"quantity"`
	Reason    string             `json:"reason"`
}

type CatalogService interface {
	ListProducts(ctx context.Context, includeInactive bool) ([]model.Product, error)
	GetProduct(ctx context.Context, id uint) (*model.Product, error)
	CreateProduct(ctx context.Context, raw importer.RawRow, allowIdentical bool, caller importer.Caller) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uint, raw importer.RawRow, allowIdentical bool, caller importer.Caller) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint, hard bool, caller importer.Caller) error
	AdjustStock(ctx context.Context, req StockAdjustment, caller importer.Caller) (*model.Product, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	StockMovements(ctx context.Context, days int) ([]repository.StockMovementData, error)
}

type catalogService struct {
	db         *gorm.DB
	products   repository.ProductRepository
	categories repository.CategoryRepository
	movements  repository.StockMovementRepository
	notifier   ws.Notifier
}

func NewCatalogService(db *gorm.DB, p repository.ProductRepository, c repository.CategoryRepository, m repository.StockMovementRepository, n ws.Notifier) CatalogService {
	return &catalogService{
		db:         db,
		products:   p,
		categories: c,
		movements:  m,
		notifier:   n,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, includeInactive bool) ([]model.Product, error) {
	return s.products.FindAll(ctx, includeInactive)
}

func (s *catalogService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, raw importer.RawRow, allowIdentical bool, caller importer.Caller) (*model.Product, error) {
	// 1. Normalisasi + validasi penuh
	draft := importer.Normalize(raw, nil, importer.StockReplace)
	if errs := importer.Validate(&draft, false); len(errs) > 0 {
		return nil, &ValidationError{Violations: errs}
	}

	var created *model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w := newProductWriter(tx, s.products, s.categories, s.movements, caller.ID, "", "product_created")

		// 2. Cek konflik di dalam transaksi
		conflict, err := importer.Classify(ctx, w.products, &draft, 0)
		if err != nil {
			return err
		}
		if err := checkConflict(conflict, allowIdentical); err != nil {
			return err
		}

		created, err = w.create(ctx, draft)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ws.Event{
		Type:    "stock_update",
		Action:  "product_created",
		Product: productSummary(created),
		User:    actor(caller),
		Message: fmt.Sprintf("%s created product '%s'", caller.Name, created.Name),
	})
	return created, nil
}

// UpdateProduct applies a partial payload. Fields the payload omits keep
// their current values and are not re-validated.
func (s *catalogService) UpdateProduct(ctx context.Context, id uint, raw importer.RawRow, allowIdentical bool, caller importer.Caller) (*model.Product, error) {
	var (
		updated  *model.Product
		oldStock int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w := newProductWriter(tx, s.products, s.categories, s.movements, caller.ID, "", "product_updated")

		current, err := w.products.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrProductNotFound
		}
		oldStock = current.Stock

		draft := importer.Normalize(raw, current, importer.StockReplace)
		if errs := importer.Validate(&draft, true); len(errs) > 0 {
			return &ValidationError{Violations: errs}
		}

		conflict, err := importer.Classify(ctx, w.products, &draft, current.ID)
		if err != nil {
			return err
		}
		if err := checkConflict(conflict, allowIdentical); err != nil {
			return err
		}

		if err := w.update(ctx, current, draft); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ws.Event{
		Type:   "stock_update",
		Action: "product_updated",
		Product: map[string]interface{}{
			"id":        updated.ID,
			"sku":       updated.SKU,
			"name":      updated.Name,
			"old_stock": oldStock,
			"new_stock": updated.Stock,
			"price":     updated.Price,
		},
		User:    actor(caller),
		Message: fmt.Sprintf("%s updated product '%s'", caller.Name, updated.Name),
	})
	return updated, nil
}

// DeleteProduct deactivates a product. A hard delete is only allowed while
// no stock movement references it.
func (s *catalogService) DeleteProduct(ctx context.Context, id uint, hard bool, caller importer.Caller) error {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	if hard {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			n, err := s.movements.WithTx(tx).CountByProduct(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrProductReferenced
			}
			return s.products.WithTx(tx).Delete(ctx, id)
		})
	} else {
		err = s.products.Deactivate(ctx, id, caller.ID)
	}
	if err != nil {
		return err
	}

	s.publish(ws.Event{
		Type:    "stock_update",
		Action:  "product_deleted",
		Product: productSummary(p),
		User:    actor(caller),
		Message: fmt.Sprintf("%s removed product '%s'", caller.Name, p.Name),
	})
	return nil
}

func (s *catalogService) AdjustStock(ctx context.Context, req StockAdjustment, caller importer.Caller) (*model.Product, error) {
	if req.Quantity <= 0 {
		return nil, &ValidationError{Violations: []string{"quantity must be greater than 0"}}
	}
	if req.Type != model.MovementIn && req.Type != model.MovementOut {
		return nil, &ValidationError{Violations: []string{"type must be one of: IN, OUT"}}
	}
	reason := req.Reason
	if reason == "" {
		reason = "manual"
	}

	var product *model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w := newProductWriter(tx, s.products, s.categories, s.movements, caller.ID, "", reason)

		p, err := w.products.FindByIDForUpdate(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}

		// Hitung stok baru
		oldStock := p.Stock
		if req.Type == model.MovementIn {
			p.Stock += req.Quantity
		} else {
			if p.Stock < req.Quantity {
				return ErrInsufficientStock
			}
			p.Stock -= req.Quantity
		}
		p.UpdatedBy = caller.ID

		if err := w.products.Update(ctx, p); err != nil {
			return err
		}
		if err := w.recordMovement(ctx, p.ID, oldStock, p.Stock); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	verb := "added"
	if req.Type == model.MovementOut {
		verb = "removed"
	}
	s.publish(ws.Event{
		Type:    "stock_update",
		Action:  "stock_adjusted",
		Product: productSummary(product),
		User:    actor(caller),
		Message: fmt.Sprintf("%s %s %d units of '%s' (%s)", caller.Name, verb, req.Quantity, product.Name, req.Type),
	})
	return product, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categories.FindAll(ctx)
}

func (s *catalogService) StockMovements(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)
	return s.movements.GetStockMovement(ctx, startDate, endDate)
}

func (s *catalogService) publish(ev ws.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ev)
	logger.Log.Debug("catalog event published", zap.String("action", ev.Action))
}

func productSummary(p *model.Product) map[string]interface{} {
	return map[string]interface{}{
		"id":    p.ID,
		"sku":   p.SKU,
		"name":  p.Name,
		"stock": p.Stock,
		"price": p.Price,
	}
}
