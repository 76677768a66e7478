package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/arbot/internal/domain"
)

func TestParseLevelsSortsBidsDescending(t *testing.T) {
	rows := [][]string{
		{"100.5", "1"},
		{"101.0", "2"},
		{"99.9", "3"},
	}

	bids := ParseLevels(rows, true)
	require.Len(t, bids, 3)
	assert.Equal(t, domain.PriceLevel{Price: 101.0, Size: 2}, bids[0])
	assert.Equal(t, domain.PriceLevel{Price: 99.9, Size: 3}, bids[2])

	asks := ParseLevels(rows, false)
	assert.Equal(t, domain.PriceLevel{Price: 99.9, Size: 3}, asks[0])
}

func TestParseLevelsSkipsMalformedRows(t *testing.T) {
	rows := [][]string{
		{"100.5"},            // short
		{"abc", "1"},         // bad price
		{"100.5", "xyz"},     // bad size
		{"0", "1"},           // zero price
		{"100.5", "0"},       // zero size
		{"-5", "1"},          // negative price
		{"101.0", "2", "0", "4"}, // extra columns are fine
	}

	levels := ParseLevels(rows, false)
	require.Len(t, levels, 1)
	assert.Equal(t, domain.PriceLevel{Price: 101.0, Size: 2}, levels[0])
}

func TestParseLevelsEmpty(t *testing.T) {
	assert.Empty(t, ParseLevels(nil, true))
}
