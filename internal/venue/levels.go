package venue

import (
	"sort"
	"strconv"

	"github.com/quantfold/arbot/internal/domain"
)

// ParseLevels converts venue wire rows (["price","size",...]) into price
// levels. Rows that are short or fail to parse are skipped; the stream must
// survive individual malformed entries. descending selects bid ordering
// (highest first); asks are sorted ascending.
func ParseLevels(rows [][]string, descending bool) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, err := strconv.ParseFloat(row[0], 64)
		if err != nil || price <= 0 {
			continue
		}
		size, err := strconv.ParseFloat(row[1], 64)
		if err != nil || size <= 0 {
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: price, Size: size})
	}
	sort.Slice(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})
	return levels
}
