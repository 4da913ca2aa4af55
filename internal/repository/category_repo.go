package repository

import (
	"context"
	"strings"

	"go-retail-catalog/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CategoryRepository interface {
	WithTx(tx *gorm.DB) CategoryRepository
	Ensure(ctx context.Context, name string) (bool, error)
	Exists(ctx context.Context, name string) (bool, error)
	FindAll(ctx context.Context) ([]model.Category, error)
}

type categoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db}
}

func (r *categoryRepo) WithTx(tx *gorm.DB) CategoryRepository {
	return &categoryRepo{tx}
}

// Ensure inserts the category unless one with the same name (ignoring case)
// exists. It reports whether a row was created and is safe to call
// concurrently.
func (r *categoryRepo) Ensure(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	cat := model.Category{Name: name, NameKey: categoryKey(name)}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name_key"}}, DoNothing: true}).
		Create(&cat)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *categoryRepo) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("name_key = ?", categoryKey(name)).
		Count(&count).Error
	return count > 0, err
}

func (r *categoryRepo) FindAll(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func categoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
