package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	valid := func() Draft {
		return Normalize(RawRow{Name: "Tea", Price: "100"}, nil, StockReplace)
	}

	tests := []struct {
		name   string
		mutate func(d *Draft)
		want   []string
	}{
		{"valid", func(d *Draft) {}, []string{}},
		{"missing name", func(d *Draft) { d.Name = "" }, []string{"name is required"}},
		{"zero price", func(d *Draft) { d.Price = 0 }, []string{"price must be greater than 0"}},
		{"negative stock", func(d *Draft) { d.Stock = -1 }, []string{"stock must be 0 or more"}},
		{"negative mrp", func(d *Draft) { d.MRP = f64(-1) }, []string{"mrp must be 0 or more"}},
		{"bad discount type", func(d *Draft) { d.DiscountType = "bogo" }, []string{"discount_type must be one of: fixed, percentage"}},
		{"bad expiry", func(d *Draft) { s := "31-12-2025"; d.ExpiryDate = &s }, []string{"expiry_date must be a date in YYYY-MM-DD format"}},
		{
			"field order is kept",
			func(d *Draft) { d.Name = ""; d.Category = ""; d.Price = -5 },
			[]string{"name is required", "price must be greater than 0", "category is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(&d)
			assert.Equal(t, tt.want, Validate(&d, false))
		})
	}
}

func TestValidate_PartialSkipsUnsuppliedFields(t *testing.T) {
	cur := product(5, "S-5", "", "", 0, nil)

	d := Normalize(RawRow{Stock: "3"}, &cur, StockReplace)
	assert.Empty(t, Validate(&d, true))
	assert.NotEmpty(t, Validate(&d, false))

	d = Normalize(RawRow{Price: "-2"}, &cur, StockReplace)
	assert.Equal(t, []string{"price must be greater than 0"}, Validate(&d, true))
}
