package model

type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// StockMovement is one line of the stock ledger.
type StockMovement struct {
	BaseModel
	ProductID uint         `gorm:"not null;index" json:"product_id"`
	Type      MovementType `gorm:"type:varchar(10);not null" json:"type"`
	Quantity  int          `gorm:"not null" json:"quantity"` // always > 0, direction is in Type
	Reason    string       `gorm:"type:varchar(50)" json:"reason"`
	BatchID   string       `gorm:"type:varchar(64);index" json:"batch_id,omitempty"`
}
