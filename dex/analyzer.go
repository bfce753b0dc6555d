package dex

import (
	"fmt"
	"sort"
	"strings"

	MapSet "github.com/deckarep/golang-set/v2"
	"github.com/shopspring/decimal"

	"dexwatch/config"
	"dexwatch/types"
	"dexwatch/utils"
)

// Analyzer derives aggregate statistics and pattern reports from detected
// attacks. It is stateless; every method is a pure fold over its input and
// never mutates the attacks. Empty or malformed input yields zero-valued
// aggregates, never an error.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// PatternReport summarizes structural patterns across a set of attacks.
type PatternReport struct {
	AttackTypes map[types.SandwichType]int

	UniqueBlocks       int
	MaxAttacksPerBlock int
	AvgAttacksPerBlock decimal.Decimal

	MinProfit    decimal.Decimal
	MaxProfit    decimal.Decimal
	AvgProfit    decimal.Decimal
	MedianProfit decimal.Decimal

	// Gas aggregates cover only attacks with positive gas cost.
	AvgGasCost    decimal.Decimal
	TotalGasSpent decimal.Decimal

	TokenPairs   map[string]int // truncated display keys, top 10
	VictimCounts map[int]int    // victims-per-attack frequency
}

// EfficiencyMetrics are simple per-attack ratios. A zero divisor always
// yields the zero metric, never an error.
type EfficiencyMetrics struct {
	ProfitPerGas         decimal.Decimal
	ProfitPerVictim      decimal.Decimal
	ProfitPerPriceImpact decimal.Decimal
	ProfitPerVolume      decimal.Decimal
}

// AttackerProfile describes one sophisticated attacker.
type AttackerProfile struct {
	Address       string
	AttackCount   int
	TotalProfit   decimal.Decimal
	AverageProfit decimal.Decimal
	PoolsTargeted int
	TotalVictims  int
	AttackTypes   map[types.SandwichType]int
	// AverageEfficiency is the mean profit-per-gas over the attacker's
	// attacks.
	AverageEfficiency decimal.Decimal
	TotalGasSpent     decimal.Decimal
}

// AttackCluster is a run of attacks whose successive block gaps stay within
// the cluster window. Clusters always contain at least two attacks.
type AttackCluster struct {
	AttackCount     int
	FromBlock       uint64
	ToBlock         uint64
	BlockSpan       uint64
	UniqueAttackers int
	UniquePools     int
	AttackDensity   decimal.Decimal // attacks per block across the span
	TotalProfit     decimal.Decimal
	Attackers       []string
	Pools           []string
}

// AnalyzeAttacks computes aggregate statistics over a list of attacks.
// Attacker addresses are keyed as given, case-sensitively; callers should
// normalize case upstream if they need merged entries.
func (a *Analyzer) AnalyzeAttacks(attacks []*types.SandwichAttack) *types.SandwichStatistics {
	if len(attacks) == 0 {
		return &types.SandwichStatistics{
			TotalProfit:       decimal.Zero,
			TotalVictimLoss:   decimal.Zero,
			AverageProfit:     decimal.Zero,
			TopAttackers:      []types.AttackerProfit{},
			MostTargetedPools: []types.PoolAttacks{},
		}
	}

	totalProfit := decimal.Zero
	totalVictimLoss := decimal.Zero
	fromBlock := attacks[0].BlockNumber
	toBlock := attacks[0].BlockNumber

	var mostProfitable *types.SandwichAttack
	attackerProfits := make(map[string]decimal.Decimal)
	attackerOrder := make([]string, 0)
	poolCounts := make(map[string]int)
	poolOrder := make([]string, 0)

	for _, attack := range attacks {
		totalProfit = totalProfit.Add(attack.ProfitAmount)
		totalVictimLoss = totalVictimLoss.Add(attack.VictimLoss)

		if attack.BlockNumber < fromBlock {
			fromBlock = attack.BlockNumber
		}
		if attack.BlockNumber > toBlock {
			toBlock = attack.BlockNumber
		}

		// Ties keep the first occurrence in input order.
		if mostProfitable == nil || attack.ProfitAmount.GreaterThan(mostProfitable.ProfitAmount) {
			mostProfitable = attack
		}

		if _, seen := attackerProfits[attack.Attacker]; !seen {
			attackerOrder = append(attackerOrder, attack.Attacker)
			attackerProfits[attack.Attacker] = decimal.Zero
		}
		attackerProfits[attack.Attacker] = attackerProfits[attack.Attacker].Add(attack.ProfitAmount)

		if _, seen := poolCounts[attack.PoolAddress]; !seen {
			poolOrder = append(poolOrder, attack.PoolAddress)
		}
		poolCounts[attack.PoolAddress]++
	}

	topAttackers := make([]types.AttackerProfit, 0, len(attackerOrder))
	for _, addr := range attackerOrder {
		topAttackers = append(topAttackers, types.AttackerProfit{Address: addr, Profit: attackerProfits[addr]})
	}
	sort.SliceStable(topAttackers, func(i, j int) bool {
		return topAttackers[i].Profit.GreaterThan(topAttackers[j].Profit)
	})
	if len(topAttackers) > config.ANALYZER_TOP_N {
		topAttackers = topAttackers[:config.ANALYZER_TOP_N]
	}

	targetedPools := make([]types.PoolAttacks, 0, len(poolOrder))
	for _, pool := range poolOrder {
		targetedPools = append(targetedPools, types.PoolAttacks{PoolAddress: pool, Count: poolCounts[pool]})
	}
	sort.SliceStable(targetedPools, func(i, j int) bool {
		return targetedPools[i].Count > targetedPools[j].Count
	})
	if len(targetedPools) > config.ANALYZER_TOP_N {
		targetedPools = targetedPools[:config.ANALYZER_TOP_N]
	}

	return &types.SandwichStatistics{
		FromBlock:         fromBlock,
		ToBlock:           toBlock,
		TotalAttacks:      len(attacks),
		TotalProfit:       totalProfit,
		TotalVictimLoss:   totalVictimLoss,
		AverageProfit:     totalProfit.Div(decimal.NewFromInt(int64(len(attacks)))),
		MostProfitable:    mostProfitable,
		TopAttackers:      topAttackers,
		MostTargetedPools: targetedPools,
	}
}

// AnalyzeAttackPatterns builds a pattern report: attack-type distribution,
// per-block density, profit distribution (naive middle-index median, no
// interpolation for even counts), gas aggregates and token-pair/victim
// frequency tables.
func (a *Analyzer) AnalyzeAttackPatterns(attacks []*types.SandwichAttack) *PatternReport {
	report := &PatternReport{
		AttackTypes:        make(map[types.SandwichType]int),
		AvgAttacksPerBlock: decimal.Zero,
		MinProfit:          decimal.Zero,
		MaxProfit:          decimal.Zero,
		AvgProfit:          decimal.Zero,
		MedianProfit:       decimal.Zero,
		AvgGasCost:         decimal.Zero,
		TotalGasSpent:      decimal.Zero,
		TokenPairs:         make(map[string]int),
		VictimCounts:       make(map[int]int),
	}
	if len(attacks) == 0 {
		return report
	}

	blockCounts := make(map[uint64]int)
	profits := make([]decimal.Decimal, 0, len(attacks))
	totalProfit := decimal.Zero
	gasCosts := make([]decimal.Decimal, 0, len(attacks))
	pairCounts := make(map[string]int)
	pairOrder := make([]string, 0)

	for _, attack := range attacks {
		report.AttackTypes[attack.SandwichType]++
		blockCounts[attack.BlockNumber]++

		profits = append(profits, attack.ProfitAmount)
		totalProfit = totalProfit.Add(attack.ProfitAmount)

		if attack.GasCost.IsPositive() {
			gasCosts = append(gasCosts, attack.GasCost)
		}

		pairKey := fmt.Sprintf("%s.../%s...",
			utils.ShortAddr(attack.TokenPair.TokenA, 8),
			utils.ShortAddr(attack.TokenPair.TokenB, 8))
		if _, seen := pairCounts[pairKey]; !seen {
			pairOrder = append(pairOrder, pairKey)
		}
		pairCounts[pairKey]++

		report.VictimCounts[attack.VictimCount()]++
	}

	report.UniqueBlocks = len(blockCounts)
	for _, count := range blockCounts {
		if count > report.MaxAttacksPerBlock {
			report.MaxAttacksPerBlock = count
		}
	}
	report.AvgAttacksPerBlock = decimal.NewFromInt(int64(len(attacks))).
		Div(decimal.NewFromInt(int64(len(blockCounts))))

	sortedProfits := make([]decimal.Decimal, len(profits))
	copy(sortedProfits, profits)
	sort.SliceStable(sortedProfits, func(i, j int) bool {
		return sortedProfits[i].LessThan(sortedProfits[j])
	})
	report.MinProfit = sortedProfits[0]
	report.MaxProfit = sortedProfits[len(sortedProfits)-1]
	report.AvgProfit = totalProfit.Div(decimal.NewFromInt(int64(len(profits))))
	report.MedianProfit = sortedProfits[len(sortedProfits)/2]

	if len(gasCosts) > 0 {
		totalGas := decimal.Zero
		for _, g := range gasCosts {
			totalGas = totalGas.Add(g)
		}
		report.TotalGasSpent = totalGas
		report.AvgGasCost = totalGas.Div(decimal.NewFromInt(int64(len(gasCosts))))
	}

	// Keep only the top 10 token pairs by attack count.
	sort.SliceStable(pairOrder, func(i, j int) bool {
		return pairCounts[pairOrder[i]] > pairCounts[pairOrder[j]]
	})
	if len(pairOrder) > config.ANALYZER_TOP_N {
		pairOrder = pairOrder[:config.ANALYZER_TOP_N]
	}
	for _, key := range pairOrder {
		report.TokenPairs[key] = pairCounts[key]
	}

	return report
}

// CalculateAttackEfficiency computes per-attack profit ratios.
func (a *Analyzer) CalculateAttackEfficiency(attack *types.SandwichAttack) EfficiencyMetrics {
	metrics := EfficiencyMetrics{
		ProfitPerGas:         decimal.Zero,
		ProfitPerVictim:      decimal.Zero,
		ProfitPerPriceImpact: decimal.Zero,
		ProfitPerVolume:      decimal.Zero,
	}

	if attack.GasCost.IsPositive() {
		metrics.ProfitPerGas = attack.ProfitAmount.Div(attack.GasCost)
	}
	if attack.VictimCount() > 0 {
		metrics.ProfitPerVictim = attack.ProfitAmount.Div(decimal.NewFromInt(int64(attack.VictimCount())))
	}
	if attack.PriceManipulationPct.IsPositive() {
		metrics.ProfitPerPriceImpact = attack.ProfitAmount.Div(attack.PriceManipulationPct)
	}
	if attack.VolumeManipulated.IsPositive() {
		metrics.ProfitPerVolume = attack.ProfitAmount.Div(attack.VolumeManipulated)
	}
	return metrics
}

// IdentifySophisticatedAttackers groups attacks by lowercased attacker
// address and keeps only attackers meeting both the minimum attack count
// and the minimum total profit, ranked by total profit descending. An
// attacker below minAttacks is excluded no matter how large their profit.
func (a *Analyzer) IdentifySophisticatedAttackers(attacks []*types.SandwichAttack, minAttacks int, minTotalProfit decimal.Decimal) []*AttackerProfile {
	type attackerAgg struct {
		attacks     []*types.SandwichAttack
		totalProfit decimal.Decimal
		totalGas    decimal.Decimal
		victims     int
		pools       MapSet.Set[string]
		attackTypes map[types.SandwichType]int
	}

	aggs := make(map[string]*attackerAgg)
	order := make([]string, 0)

	for _, attack := range attacks {
		addr := strings.ToLower(attack.Attacker)
		agg, seen := aggs[addr]
		if !seen {
			agg = &attackerAgg{
				totalProfit: decimal.Zero,
				totalGas:    decimal.Zero,
				pools:       MapSet.NewSet[string](),
				attackTypes: make(map[types.SandwichType]int),
			}
			aggs[addr] = agg
			order = append(order, addr)
		}

		agg.attacks = append(agg.attacks, attack)
		agg.totalProfit = agg.totalProfit.Add(attack.ProfitAmount)
		agg.totalGas = agg.totalGas.Add(attack.GasCost)
		agg.victims += attack.VictimCount()
		agg.pools.Add(attack.PoolAddress)
		agg.attackTypes[attack.SandwichType]++
	}

	profiles := make([]*AttackerProfile, 0)
	for _, addr := range order {
		agg := aggs[addr]
		if len(agg.attacks) < minAttacks || agg.totalProfit.LessThan(minTotalProfit) {
			continue
		}

		count := decimal.NewFromInt(int64(len(agg.attacks)))
		efficiencySum := decimal.Zero
		for _, attack := range agg.attacks {
			efficiencySum = efficiencySum.Add(a.CalculateAttackEfficiency(attack).ProfitPerGas)
		}

		profiles = append(profiles, &AttackerProfile{
			Address:           addr,
			AttackCount:       len(agg.attacks),
			TotalProfit:       agg.totalProfit,
			AverageProfit:     agg.totalProfit.Div(count),
			PoolsTargeted:     agg.pools.Cardinality(),
			TotalVictims:      agg.victims,
			AttackTypes:       agg.attackTypes,
			AverageEfficiency: efficiencySum.Div(count),
			TotalGasSpent:     agg.totalGas,
		})
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].TotalProfit.GreaterThan(profiles[j].TotalProfit)
	})
	return profiles
}

// DetectAttackClusters greedily groups attacks, sorted by block number,
// into clusters where successive block gaps stay within blockWindow.
// Singletons are dropped, not reported.
func (a *Analyzer) DetectAttackClusters(attacks []*types.SandwichAttack, blockWindow uint64) []*AttackCluster {
	if len(attacks) == 0 {
		return nil
	}

	sorted := make([]*types.SandwichAttack, len(attacks))
	copy(sorted, attacks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BlockNumber < sorted[j].BlockNumber
	})

	clusters := make([]*AttackCluster, 0)
	current := []*types.SandwichAttack{sorted[0]}

	for i := 1; i < len(sorted); i++ {
		if sorted[i].BlockNumber-sorted[i-1].BlockNumber <= blockWindow {
			current = append(current, sorted[i])
			continue
		}
		if len(current) > 1 {
			clusters = append(clusters, analyzeCluster(current))
		}
		current = []*types.SandwichAttack{sorted[i]}
	}
	if len(current) > 1 {
		clusters = append(clusters, analyzeCluster(current))
	}

	return clusters
}

func analyzeCluster(attacks []*types.SandwichAttack) *AttackCluster {
	fromBlock := attacks[0].BlockNumber
	toBlock := attacks[0].BlockNumber
	totalProfit := decimal.Zero
	attackers := MapSet.NewSet[string]()
	pools := MapSet.NewSet[string]()

	for _, attack := range attacks {
		if attack.BlockNumber < fromBlock {
			fromBlock = attack.BlockNumber
		}
		if attack.BlockNumber > toBlock {
			toBlock = attack.BlockNumber
		}
		totalProfit = totalProfit.Add(attack.ProfitAmount)
		attackers.Add(attack.Attacker)
		pools.Add(attack.PoolAddress)
	}

	span := toBlock - fromBlock + 1
	return &AttackCluster{
		AttackCount:     len(attacks),
		FromBlock:       fromBlock,
		ToBlock:         toBlock,
		BlockSpan:       span,
		UniqueAttackers: attackers.Cardinality(),
		UniquePools:     pools.Cardinality(),
		AttackDensity:   decimal.NewFromInt(int64(len(attacks))).Div(decimal.NewFromInt(int64(span))),
		TotalProfit:     totalProfit,
		Attackers:       attackers.ToSlice(),
		Pools:           pools.ToSlice(),
	}
}
