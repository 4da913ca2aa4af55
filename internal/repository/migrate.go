package repository

import (
	"go-retail-catalog/internal/model"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the catalog owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.StockMovement{},
		&model.ImportBatch{},
	)
}
