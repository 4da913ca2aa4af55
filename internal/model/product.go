package model

type DiscountType string

const (
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

// Product is a catalog entry. SKU and Barcode are unique case-insensitively
// when non-empty; that rule is enforced by the conflict classifier, not the schema.
type Product struct {
	BaseModel
	SKU             string   `gorm:"type:varchar(64);index" json:"sku"`
	Barcode         string   `gorm:"type:varchar(64);index" json:"barcode"`
	Name            string   `gorm:"type:varchar(255);not null;index" json:"name"`
	Brand           string   `gorm:"type:varchar(255)" json:"brand"`
	Content         string   `gorm:"type:varchar(100)" json:"content"`
	Color           string   `gorm:"type:varchar(50)" json:"color"`
	Price           float64  `gorm:"type:numeric(12,2);not null" json:"price"`
	MRP             *float64 `gorm:"type:numeric(12,2)" json:"mrp"`
	UOM             string   `gorm:"type:varchar(20)" json:"uom"`
	Stock           int      `gorm:"not null" json:"stock"`
	Category        string   `gorm:"type:varchar(100);not null;index" json:"category"`
	ExpiryDate      *string  `gorm:"type:varchar(10)" json:"expiry_date"`
	DefaultDiscount float64  `gorm:"type:numeric(12,2)" json:"default_discount"`
	DiscountType    string   `gorm:"type:varchar(20)" json:"discount_type"`
	ImageURL        *string  `gorm:"type:text" json:"image_url"`
	IsActive        bool     `gorm:"not null" json:"is_active"`

	// Relasi
	Movements []StockMovement `json:"movements,omitempty"`
}
