package importer

import (
	"context"
	"strings"

	"go-retail-catalog/internal/model"
)

// memCatalog is an in-memory Catalog for unit tests.
type memCatalog struct {
	products []model.Product
}

func (m *memCatalog) FindByID(_ context.Context, id uint) (*model.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, nil
}

func (m *memCatalog) FindBySKU(_ context.Context, sku string, excludeID uint) (*model.Product, error) {
	for i := range m.products {
		p := &m.products[i]
		if p.ID != excludeID && p.SKU != "" && strings.EqualFold(p.SKU, sku) {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) FindByBarcode(_ context.Context, barcode string, excludeID uint) (*model.Product, error) {
	for i := range m.products {
		p := &m.products[i]
		if p.ID != excludeID && p.Barcode != "" && strings.EqualFold(p.Barcode, barcode) {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) FindByNameBrand(_ context.Context, name, brand string, excludeID uint) ([]model.Product, error) {
	var out []model.Product
	for _, p := range m.products {
		if p.ID != excludeID && NormalizeKey(p.Name) == name && NormalizeKey(p.Brand) == brand {
			out = append(out, p)
		}
	}
	return out, nil
}

func product(id uint, sku, name, brand string, price float64, mrp *float64) model.Product {
	return model.Product{
		BaseModel: model.BaseModel{ID: id},
		SKU:       sku,
		Name:      name,
		Brand:     brand,
		Price:     price,
		MRP:       mrp,
		Category:  DefaultCategory,
		IsActive:  true,
	}
}

func f64(v float64) *float64 { return &v }
