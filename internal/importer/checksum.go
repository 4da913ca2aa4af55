package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Checksum fingerprints the staged rows together with both modes. A confirm
// request must echo it back byte for byte.
func Checksum(rows []Row, mode Mode, stockMode StockMode) (string, error) {
	if rows == nil {
		rows = []Row{}
	}
	b, err := json.Marshal(struct {
		Rows      []Row     `json:"rows"`
		Mode      Mode      `json:"mode"`
		StockMode StockMode `json:"stock_mode"`
	}{rows, mode, stockMode})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
