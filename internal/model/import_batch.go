package model

import "time"

type BatchStatus string

const (
	BatchStaged  BatchStatus = "staged"
	BatchApplied BatchStatus = "applied"
	BatchExpired BatchStatus = "expired"
)

// ImportBatch mirrors a staged import for audit. It is never read back to
// apply a batch; the staging store is the source of truth for that.
type ImportBatch struct {
	ID        uint        `gorm:"primaryKey" json:"-"`
	BatchID   string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"batch_id"`
	Checksum  string      `gorm:"type:varchar(64);not null" json:"checksum"`
	Mode      string      `gorm:"type:varchar(20);not null" json:"mode"`
	StockMode string      `gorm:"type:varchar(20);not null" json:"stock_mode"`
	Status    BatchStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	RowCount          int `json:"row_count"`
	Creates           int `json:"creates"`
	Updates           int `json:"updates"`
	Skips             int `json:"skips"`
	Errors            int `json:"errors"`
	NeedsConfirmation int `json:"needs_confirmation"`

	CreatedBy string     `gorm:"type:varchar(255)" json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `gorm:"index" json:"expires_at"`
	AppliedBy string     `gorm:"type:varchar(255)" json:"applied_by,omitempty"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
}
