package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownInstrument(t *testing.T) {
	instr, ok := Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "Reliance Industries", instr.Name)
	assert.True(t, instr.SeedPrice.IsPositive())
}

func TestLookupUnknownInstrument(t *testing.T) {
	_, ok := Lookup(9999)
	assert.False(t, ok)
}

func TestAllReturnsFifteenInstrumentsSortedByID(t *testing.T) {
	all := All()
	require.Len(t, all, 15)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}
