package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stagedRows() []Row {
	d := Normalize(RawRow{Name: "Tea", Brand: "X", Price: "100", MRP: "120"}, nil, StockReplace)
	return []Row{{Row: 2, Action: ActionCreate, Payload: d}}
}

func TestChecksum_Deterministic(t *testing.T) {
	a, err := Checksum(stagedRows(), ModeUpsert, StockReplace)
	require.NoError(t, err)
	b, err := Checksum(stagedRows(), ModeUpsert, StockReplace)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestChecksum_SensitiveToContentAndModes(t *testing.T) {
	base, err := Checksum(stagedRows(), ModeUpsert, StockReplace)
	require.NoError(t, err)

	changed := stagedRows()
	changed[0].Payload.Name = "Teb"
	c1, _ := Checksum(changed, ModeUpsert, StockReplace)
	c2, _ := Checksum(stagedRows(), ModeCreateOnly, StockReplace)
	c3, _ := Checksum(stagedRows(), ModeUpsert, StockDelta)

	assert.NotEqual(t, base, c1)
	assert.NotEqual(t, base, c2)
	assert.NotEqual(t, base, c3)
}

func TestChecksum_EmptyRows(t *testing.T) {
	a, err := Checksum(nil, ModeUpsert, StockReplace)
	require.NoError(t, err)
	b, err := Checksum([]Row{}, ModeUpsert, StockReplace)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
