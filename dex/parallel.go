package dex

import (
	"sort"
	"sync"

	"dexwatch/types"
)

// DetectInRangeParallel is DetectInRange with the per-block work spread
// across a fixed pool of workers. Blocks are independent, so the result set
// matches the sequential version; results are reassembled in ascending
// block order to keep the output deterministic. parallel values below 1 are
// treated as 1.
func (d *Detector) DetectInRangeParallel(fromBlock, toBlock uint64, swaps types.SwapEvents, parallel int) []*types.SandwichAttack {
	if parallel < 1 {
		parallel = 1
	}

	blocks := make(map[uint64]types.SwapEvents)
	for _, s := range swaps {
		if s.BlockNumber >= fromBlock && s.BlockNumber <= toBlock {
			blocks[s.BlockNumber] = append(blocks[s.BlockNumber], s)
		}
	}

	type blockResult struct {
		blockNumber uint64
		attacks     []*types.SandwichAttack
	}

	blocksQueue := make(chan uint64, len(blocks))
	resultsCh := make(chan blockResult)

	go func() {
		for n := range blocks {
			blocksQueue <- n
		}
		close(blocksQueue)
	}()

	var workerWg sync.WaitGroup
	workerWg.Add(parallel)
	for range parallel {
		go func() {
			defer workerWg.Done()
			for n := range blocksQueue {
				resultsCh <- blockResult{
					blockNumber: n,
					attacks:     d.DetectInBlock(n, blocks[n]),
				}
			}
		}()
	}

	go func() {
		workerWg.Wait()
		close(resultsCh)
	}()

	results := make([]blockResult, 0, len(blocks))
	for r := range resultsCh {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].blockNumber < results[j].blockNumber })

	attacks := make([]*types.SandwichAttack, 0)
	for _, r := range results {
		attacks = append(attacks, r.attacks...)
	}
	return attacks
}
