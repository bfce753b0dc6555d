package dex

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"dexwatch/config"
	"dexwatch/types"
)

// Detector finds sandwich attacks in ordered swap sequences. It holds
// thresholds only; every detection call is pure given its inputs, so a
// single Detector is safe for concurrent use. A caller that needs
// different thresholds constructs a new Detector.
//
// Thresholds are accepted as given: an out-of-range ConfidenceThreshold
// simply makes detection stricter or looser than intended.
type Detector struct {
	MinPriceImpact      decimal.Decimal // percent, summed over frontrun+backrun
	MinProfitThreshold  decimal.Decimal // in profit-token units
	MaxBlockDistance    uint64
	ConfidenceThreshold decimal.Decimal // 0..1
}

// NewDetector returns a detector with the default thresholds.
func NewDetector() *Detector {
	return &Detector{
		MinPriceImpact:      decimal.RequireFromString(config.SANDWICH_MIN_PRICE_IMPACT_PCT),
		MinProfitThreshold:  decimal.RequireFromString(config.SANDWICH_MIN_PROFIT_THRESHOLD),
		MaxBlockDistance:    config.SANDWICH_MAX_BLOCK_DISTANCE,
		ConfidenceThreshold: decimal.RequireFromString(config.SANDWICH_CONFIDENCE_THRESHOLD),
	}
}

// DetectInBlock detects all sandwich attacks within a single block.
// Fewer than three swaps can never form a sandwich and yield an empty
// result. Never returns an error: malformed candidates are dropped, not
// propagated.
func (d *Detector) DetectInBlock(blockNumber uint64, swaps types.SwapEvents) []*types.SandwichAttack {
	if len(swaps) < 3 {
		return nil
	}

	sorted := SortByBlockPosition(swaps)
	pools := GroupByPool(sorted)

	// Pool iteration order is irrelevant to the result set, but sort the
	// keys so the output order is deterministic.
	poolAddrs := make([]string, 0, len(pools))
	for addr := range pools {
		poolAddrs = append(poolAddrs, addr)
	}
	sort.Strings(poolAddrs)

	attacks := make([]*types.SandwichAttack, 0)
	for _, addr := range poolAddrs {
		poolSwaps := pools[addr]
		if len(poolSwaps) < 3 {
			continue
		}
		attacks = append(attacks, d.detectInPool(addr, poolSwaps)...)
	}
	return attacks
}

// DetectInRange detects sandwich attacks across a block range (inclusive).
// Swaps outside the range are ignored; blocks are processed in ascending
// order and their attacks concatenated.
func (d *Detector) DetectInRange(fromBlock, toBlock uint64, swaps types.SwapEvents) []*types.SandwichAttack {
	blocks := make(map[uint64]types.SwapEvents)
	for _, s := range swaps {
		if s.BlockNumber >= fromBlock && s.BlockNumber <= toBlock {
			blocks[s.BlockNumber] = append(blocks[s.BlockNumber], s)
		}
	}

	blockNumbers := make([]uint64, 0, len(blocks))
	for n := range blocks {
		blockNumbers = append(blockNumbers, n)
	}
	sort.Slice(blockNumbers, func(i, j int) bool { return blockNumbers[i] < blockNumbers[j] })

	attacks := make([]*types.SandwichAttack, 0)
	for _, n := range blockNumbers {
		attacks = append(attacks, d.DetectInBlock(n, blocks[n])...)
	}
	return attacks
}

// detectInPool runs the exhaustive triple search over one pool's ordered
// swap sequence: every index pair (i, j) with at least one slot between
// them is tested as a frontrun/backrun candidate, and every index strictly
// between an accepted pair is scanned as a victim. This is O(n^2) candidate
// pairs with an O(n) victim scan each, O(n^3) worst case per pool. The
// search is deliberately exhaustive: pruning (e.g. stopping at the first
// accepted pair per i) would change which candidates are found. Overlapping
// index windows can yield multiple overlapping attack records; they are not
// deduplicated.
func (d *Detector) detectInPool(poolAddress string, swaps types.SwapEvents) []*types.SandwichAttack {
	if len(swaps) < 3 {
		return nil
	}

	attacks := make([]*types.SandwichAttack, 0)
	for i := 0; i < len(swaps)-2; i++ {
		for j := i + 2; j < len(swaps); j++ {
			frontrun := swaps[i]
			backrun := swaps[j]

			if !d.couldBeSandwichPair(frontrun, backrun) {
				continue
			}

			victims := make(types.SwapEvents, 0)
			for k := i + 1; k < j; k++ {
				if isPotentialVictim(frontrun, swaps[k], backrun) {
					victims = append(victims, swaps[k])
				}
			}
			if len(victims) == 0 {
				continue
			}

			attack, ok := d.tryBuildAttack(poolAddress, frontrun, victims, backrun)
			if ok && attack.DetectionConfidence.GreaterThanOrEqual(d.ConfidenceThreshold) {
				attacks = append(attacks, attack)
			}
		}
	}
	return attacks
}

// couldBeSandwichPair checks whether two swaps could be the frontrun and
// backrun legs of one attacker: same trader, opposite trade directions on
// the same token pair, within the configured block distance.
func (d *Detector) couldBeSandwichPair(frontrun, backrun *types.SwapEvent) bool {
	if !frontrun.SameTrader(backrun) {
		return false
	}
	if !IsOppositeDirection(frontrun, backrun) {
		return false
	}
	if frontrun.Pair() != backrun.Pair() {
		return false
	}
	return blockDistance(frontrun.BlockNumber, backrun.BlockNumber) <= d.MaxBlockDistance
}

// isPotentialVictim checks whether a swap between the two legs got
// sandwiched: a different trader on the same token pair, trading into the
// price movement the attacker created (same direction as either leg).
func isPotentialVictim(frontrun, candidate, backrun *types.SwapEvent) bool {
	if candidate.SameTrader(frontrun) {
		return false
	}
	if candidate.Pair() != frontrun.Pair() {
		return false
	}
	return IsSameDirection(candidate, frontrun) || IsSameDirection(candidate, backrun)
}

// tryBuildAttack constructs a SandwichAttack from detected components.
// ok is false when the candidate is discarded, either because the profit
// misses the threshold or because construction failed on malformed input;
// batch detection is never interrupted for one bad candidate.
func (d *Detector) tryBuildAttack(poolAddress string, frontrun *types.SwapEvent, victims types.SwapEvents, backrun *types.SwapEvent) (attack *types.SandwichAttack, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			attack, ok = nil, false
		}
	}()

	profit := EstimateSandwichProfit(frontrun, backrun)
	if profit.LessThan(d.MinProfitThreshold) {
		return nil, false
	}

	frontrunTx := &types.SandwichTx{
		Swap:        *frontrun,
		Role:        types.RoleFrontRun,
		PriceImpact: frontrun.PriceImpact,
	}
	backrunTx := &types.SandwichTx{
		Swap:        *backrun,
		Role:        types.RoleBackRun,
		PriceImpact: backrun.PriceImpact,
	}

	victimTxs := make([]*types.SandwichTx, 0, len(victims))
	victimLoss := decimal.Zero
	for _, v := range victims {
		victimTxs = append(victimTxs, &types.SandwichTx{
			Swap:        *v,
			Role:        types.RoleVictim,
			PriceImpact: v.PriceImpact,
		})
		// Approximation: the sum of victim price impacts, not a
		// ground-truth loss.
		victimLoss = victimLoss.Add(v.PriceImpact)
	}

	sandwichType := types.FrontBack
	if frontrun.BlockNumber == backrun.BlockNumber {
		sandwichType = types.Atomic
	}
	if len(victims) > 1 {
		// Multi-victim takes precedence over the atomic classification.
		sandwichType = types.MultiVictim
	}

	// GasCost is a raw gas-unit count while profit is a token amount; the
	// subtraction below mixes units. Kept as-is because downstream
	// consumers depend on the current numeric behavior.
	gasCost := decimal.NewFromUint64(frontrun.GasUsed + backrun.GasUsed)

	return &types.SandwichAttack{
		AttackID:       makeAttackID(frontrun, backrun),
		SandwichType:   sandwichType,
		BlockNumber:    frontrun.BlockNumber,
		BlockTimestamp: frontrun.Timestamp,
		PoolAddress:    poolAddress,
		TokenPair:      frontrun.Pair(),

		FrontRun: []*types.SandwichTx{frontrunTx},
		Victims:  victimTxs,
		BackRun:  []*types.SandwichTx{backrunTx},

		Attacker:     frontrun.Trader,
		ProfitAmount: profit,
		ProfitToken:  strings.ToLower(frontrun.TokenOut.Address),
		VictimLoss:   victimLoss,
		GasCost:      gasCost,
		NetProfit:    profit.Sub(gasCost),

		DetectionConfidence:  d.confidenceScore(frontrun, victims, backrun),
		PriceManipulationPct: frontrun.PriceImpact.Add(backrun.PriceImpact),
		VolumeManipulated:    frontrun.AmountIn.Add(backrun.AmountIn),
	}, true
}

// confidenceScore is a heuristic weighted sum, not a calibrated
// probability: base 0.5, +0.1 for more than one victim, +0.2 when the
// combined frontrun+backrun price impact exceeds MinPriceImpact, +0.1 when
// profit exceeds 10x MinProfitThreshold, +0.1 when both legs share a block.
// Capped at 1.0.
func (d *Detector) confidenceScore(frontrun *types.SwapEvent, victims types.SwapEvents, backrun *types.SwapEvent) decimal.Decimal {
	score := decimal.RequireFromString("0.5")

	if len(victims) > 1 {
		score = score.Add(decimal.RequireFromString("0.1"))
	}

	totalImpact := frontrun.PriceImpact.Add(backrun.PriceImpact)
	if totalImpact.GreaterThan(d.MinPriceImpact) {
		score = score.Add(decimal.RequireFromString("0.2"))
	}

	profit := EstimateSandwichProfit(frontrun, backrun)
	if profit.GreaterThan(d.MinProfitThreshold.Mul(decimal.NewFromInt(10))) {
		score = score.Add(decimal.RequireFromString("0.1"))
	}

	if frontrun.BlockNumber == backrun.BlockNumber {
		score = score.Add(decimal.RequireFromString("0.1"))
	}

	one := decimal.NewFromInt(1)
	if score.GreaterThan(one) {
		return one
	}
	return score
}

// makeAttackID derives a stable attack identifier from the frontrun and
// backrun legs. The (blockNumber, logIndex) positions are part of the
// preimage because one transaction can emit several swap events sharing a
// tx hash; the hashes alone would not distinguish their attacks.
func makeAttackID(frontrun, backrun *types.SwapEvent) string {
	preimage := fmt.Sprintf("%s:%d:%d/%s:%d:%d",
		strings.ToLower(frontrun.TxHash), frontrun.BlockNumber, frontrun.LogIndex,
		strings.ToLower(backrun.TxHash), backrun.BlockNumber, backrun.LogIndex)
	h := sha256.Sum256([]byte(preimage))
	return hex.EncodeToString(h[:])
}

func blockDistance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
