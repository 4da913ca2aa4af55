package importer

import (
	"fmt"
	"time"
)

// Mode restricts which actions a batch may contain.
type Mode string

const (
	ModeCreateOnly Mode = "create_only"
	ModeUpdateOnly Mode = "update_only"
	ModeUpsert     Mode = "upsert"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeUpsert, nil
	case ModeCreateOnly, ModeUpdateOnly, ModeUpsert:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown import mode %q", s)
}

// StockMode says whether the stock column replaces or adjusts stock.
type StockMode string

const (
	StockReplace StockMode = "replace"
	StockDelta   StockMode = "delta"
)

func ParseStockMode(s string) (StockMode, error) {
	switch StockMode(s) {
	case "":
		return StockReplace, nil
	case StockReplace, StockDelta:
		return StockMode(s), nil
	}
	return "", fmt.Errorf("unknown stock mode %q", s)
}

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Row is a staged, validated row.
type Row struct {
	Row                           int    `json:"row"`
	Action                        Action `json:"action"`
	MatchedProductID              *uint  `json:"matched_product_id,omitempty"`
	Payload                       Draft  `json:"payload"`
	RequiresIdenticalConfirmation bool   `json:"requires_identical_confirmation"`
}

// Batch is a staged import awaiting confirmation.
type Batch struct {
	ID        string    `json:"id"`
	Checksum  string    `json:"checksum"`
	Mode      Mode      `json:"mode"`
	StockMode StockMode `json:"stock_mode"`
	Rows      []Row     `json:"rows"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (b *Batch) Expired(now time.Time) bool {
	return !now.Before(b.ExpiresAt)
}

type RowStatus string

const (
	StatusReady             RowStatus = "ready"
	StatusNeedsConfirmation RowStatus = "needs_confirmation"
	StatusError             RowStatus = "error"
	StatusSkipped           RowStatus = "skipped"
)

// PreviewRow reports how one input row was evaluated.
type PreviewRow struct {
	Row              int       `json:"row"`
	Status           RowStatus `json:"status"`
	Action           Action    `json:"action,omitempty"`
	MatchedProductID *uint     `json:"matched_product_id,omitempty"`
	Name             string    `json:"name,omitempty"`
	SKU              string    `json:"sku,omitempty"`
	Stock            *int      `json:"stock,omitempty"`
	Category         string    `json:"category,omitempty"`
	NewCategory      bool      `json:"new_category,omitempty"`
	Conflict         *Conflict `json:"conflict,omitempty"`
	Errors           []string  `json:"errors,omitempty"`
}

type Summary struct {
	Creates           int `json:"creates"`
	Updates           int `json:"updates"`
	Skips             int `json:"skips"`
	Errors            int `json:"errors"`
	NeedsConfirmation int `json:"needs_confirmation"`
}

// Caller identifies who is staging or confirming a batch.
type Caller struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Admin bool   `json:"-"`
}
