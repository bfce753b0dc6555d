package dex

import (
	"sort"
	"strings"

	"dexwatch/types"
)

// SortByBlockPosition returns a new slice ordered by (blockNumber, logIndex)
// ascending. The sort is stable, so swaps sharing both keys keep their input
// relative order.
func SortByBlockPosition(swaps types.SwapEvents) types.SwapEvents {
	sorted := make(types.SwapEvents, len(swaps))
	copy(sorted, swaps)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].BlockNumber != sorted[j].BlockNumber {
			return sorted[i].BlockNumber < sorted[j].BlockNumber
		}
		return sorted[i].LogIndex < sorted[j].LogIndex
	})
	return sorted
}

// GroupByPool partitions swaps by lowercased pool address. The sequence
// within each group preserves the order of the input, so callers that need
// positional order sort by block position first.
func GroupByPool(swaps types.SwapEvents) map[string]types.SwapEvents {
	groups := make(map[string]types.SwapEvents)
	for _, s := range swaps {
		pool := strings.ToLower(s.PoolAddress)
		groups[pool] = append(groups[pool], s)
	}
	return groups
}

// GroupByTokenPair partitions swaps by their normalized token pair, so both
// trade directions on the same market land in the same group.
func GroupByTokenPair(swaps types.SwapEvents) map[types.TokenPair]types.SwapEvents {
	groups := make(map[types.TokenPair]types.SwapEvents)
	for _, s := range swaps {
		pair := s.Pair()
		groups[pair] = append(groups[pair], s)
	}
	return groups
}
