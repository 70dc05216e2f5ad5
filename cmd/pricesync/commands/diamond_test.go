package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhango/pricesync/internal/updater"
)

func TestParseDiamondConfigsKeepsInputOrder(t *testing.T) {
	configs, err := parseDiamondConfigs("Natural:42000, Lab Grown:15000, Polki:8000")
	require.NoError(t, err)

	// New theme slots are assigned in config order, so the operator's
	// listing order must survive parsing.
	assert.Equal(t, []updater.DiamondConfig{
		{Name: "natural", PricePerCarat: 42000},
		{Name: "lab grown", PricePerCarat: 15000},
		{Name: "polki", PricePerCarat: 8000},
	}, configs)
}

func TestParseDiamondConfigsLastDuplicateWins(t *testing.T) {
	configs, err := parseDiamondConfigs("Polki:8000, Polki:8500")
	require.NoError(t, err)

	assert.Equal(t, []updater.DiamondConfig{{Name: "polki", PricePerCarat: 8500}}, configs)
}

func TestParseDiamondConfigsJSONSortedByName(t *testing.T) {
	configs, err := parseDiamondConfigs(`{"Natural": 42000, "Lab Grown": 15000}`)
	require.NoError(t, err)

	assert.Equal(t, []updater.DiamondConfig{
		{Name: "lab grown", PricePerCarat: 15000},
		{Name: "natural", PricePerCarat: 42000},
	}, configs)
}

func TestParseDiamondConfigsRejectsEmpty(t *testing.T) {
	_, err := parseDiamondConfigs("  ")
	assert.Error(t, err)

	_, err = parseDiamondConfigs("Polki:notanumber")
	assert.Error(t, err)
}
