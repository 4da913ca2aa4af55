package repository

import (
	"context"
	"errors"

	"go-retail-catalog/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository lookups return (nil, nil) when no record matches.
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context, includeInactive bool) ([]model.Product, error)
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string, excludeID uint) (*model.Product, error)
	FindByBarcode(ctx context.Context, barcode string, excludeID uint) (*model.Product, error)
	FindByNameBrand(ctx context.Context, name, brand string, excludeID uint) ([]model.Product, error)
	Deactivate(ctx context.Context, id uint, updatedBy string) error
	Delete(ctx context.Context, id uint) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

// WithTx binds the repository to a running transaction.
func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{tx}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepo) FindAll(ctx context.Context, includeInactive bool) ([]model.Product, error) {
	var products []model.Product
	q := r.db.WithContext(ctx).Order("name ASC")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	return first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate locks the row for the rest of the transaction.
func (r *productRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Product, error) {
	return first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string, excludeID uint) (*model.Product, error) {
	return first(r.db.WithContext(ctx).
		Where("LOWER(sku) = LOWER(?) AND sku <> '' AND id <> ?", sku, excludeID))
}

func (r *productRepo) FindByBarcode(ctx context.Context, barcode string, excludeID uint) (*model.Product, error) {
	return first(r.db.WithContext(ctx).
		Where("LOWER(barcode) = LOWER(?) AND barcode <> '' AND id <> ?", barcode, excludeID))
}

// FindByNameBrand expects name and brand already lowercased and trimmed.
func (r *productRepo) FindByNameBrand(ctx context.Context, name, brand string, excludeID uint) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(name)) = ? AND LOWER(TRIM(brand)) = ? AND id <> ?", name, brand, excludeID).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) Deactivate(ctx context.Context, id uint, updatedBy string) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": updatedBy,
		}).Error
}

func (r *productRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Product{}, id).Error
}

func first(q *gorm.DB) (*model.Product, error) {
	var product model.Product
	err := q.Order("id ASC").First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
