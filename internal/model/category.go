package model

import "time"

// Category is a name-keyed lookup row. NameKey holds the lowercased name and
// carries the unique index, so "Spices" and "spices" are the same category.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	NameKey   string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
