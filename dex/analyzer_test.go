package dex

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"dexwatch/types"
	"dexwatch/utils"
)

func mkAttack(block uint64, attacker, pool, profit string) *types.SandwichAttack {
	frontSwap := mkSwap(block, 1, pool, attacker, weth, usdc, "10", "30000")
	frontSwap.TxHash = frontSwap.TxHash + "-" + attacker + "-" + profit
	backSwap := mkSwap(block, 3, pool, attacker, usdc, weth, "29000", "10.2")
	backSwap.TxHash = backSwap.TxHash + "-" + attacker
	victim := &types.SandwichTx{
		Swap: *mkSwap(block, 2, pool, victimAddr, weth, usdc, "5", "14500"),
		Role: types.RoleVictim,
	}
	return &types.SandwichAttack{
		AttackID:     makeAttackID(frontSwap, backSwap),
		SandwichType: types.Atomic,
		BlockNumber:  block,
		PoolAddress:  strings.ToLower(pool),
		TokenPair: types.TokenPair{
			TokenA: strings.ToLower(usdcAddr),
			TokenB: strings.ToLower(wethAddr),
		},
		FrontRun:             []*types.SandwichTx{{Swap: *frontSwap, Role: types.RoleFrontRun}},
		Victims:              []*types.SandwichTx{victim},
		BackRun:              []*types.SandwichTx{{Swap: *backSwap, Role: types.RoleBackRun}},
		Attacker:             attacker,
		ProfitAmount:         decimal.RequireFromString(profit),
		ProfitToken:          strings.ToLower(usdcAddr),
		VictimLoss:           decimal.RequireFromString("0.5"),
		GasCost:              decimal.NewFromInt(210000),
		NetProfit:            decimal.RequireFromString(profit).Sub(decimal.NewFromInt(210000)),
		DetectionConfidence:  decimal.RequireFromString("0.7"),
		PriceManipulationPct: decimal.RequireFromString("2"),
		VolumeManipulated:    decimal.RequireFromString("29010"),
	}
}

func TestAnalyzeAttacks_Empty(t *testing.T) {
	stats := NewAnalyzer().AnalyzeAttacks(nil)

	if stats.TotalAttacks != 0 {
		t.Errorf("expected 0 attacks, got %d", stats.TotalAttacks)
	}
	if !stats.TotalProfit.IsZero() || !stats.AverageProfit.IsZero() {
		t.Errorf("expected zero profit aggregates, got %s / %s", stats.TotalProfit, stats.AverageProfit)
	}
	if stats.MostProfitable != nil {
		t.Errorf("expected no most-profitable attack")
	}
	if stats.TopAttackers == nil || len(stats.TopAttackers) != 0 {
		t.Errorf("expected empty attacker leaderboard, got %v", stats.TopAttackers)
	}
	if stats.MostTargetedPools == nil || len(stats.MostTargetedPools) != 0 {
		t.Errorf("expected empty pool leaderboard, got %v", stats.MostTargetedPools)
	}
}

func TestAnalyzeAttacks_Aggregates(t *testing.T) {
	first := mkAttack(100, attackerAddr, poolWethUsdc, "10")
	second := mkAttack(110, victim2Addr, poolWethUsdc, "30")
	third := mkAttack(105, attackerAddr, poolDaiWeth, "30")

	stats := NewAnalyzer().AnalyzeAttacks([]*types.SandwichAttack{first, second, third})

	if stats.TotalAttacks != 3 {
		t.Fatalf("expected 3 attacks, got %d", stats.TotalAttacks)
	}
	if stats.FromBlock != 100 || stats.ToBlock != 110 {
		t.Errorf("expected block range 100..110, got %d..%d", stats.FromBlock, stats.ToBlock)
	}
	if !stats.TotalProfit.Equal(decimal.NewFromInt(70)) {
		t.Errorf("expected total profit 70, got %s", stats.TotalProfit)
	}
	if !stats.TotalVictimLoss.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected total victim loss 1.5, got %s", stats.TotalVictimLoss)
	}
	if !stats.AverageProfit.Equal(decimal.NewFromInt(70).Div(decimal.NewFromInt(3))) {
		t.Errorf("unexpected average profit %s", stats.AverageProfit)
	}
	// Profit ties keep the earlier attack.
	if stats.MostProfitable != second {
		t.Errorf("expected the block-110 attack as most profitable")
	}

	if len(stats.TopAttackers) != 2 {
		t.Fatalf("expected 2 attackers, got %d", len(stats.TopAttackers))
	}
	if stats.TopAttackers[0].Address != attackerAddr || !stats.TopAttackers[0].Profit.Equal(decimal.NewFromInt(40)) {
		t.Errorf("unexpected top attacker %+v", stats.TopAttackers[0])
	}
	if stats.TopAttackers[1].Address != victim2Addr || !stats.TopAttackers[1].Profit.Equal(decimal.NewFromInt(30)) {
		t.Errorf("unexpected second attacker %+v", stats.TopAttackers[1])
	}

	if len(stats.MostTargetedPools) != 2 {
		t.Fatalf("expected 2 pools, got %d", len(stats.MostTargetedPools))
	}
	if stats.MostTargetedPools[0].PoolAddress != strings.ToLower(poolWethUsdc) || stats.MostTargetedPools[0].Count != 2 {
		t.Errorf("unexpected most targeted pool %+v", stats.MostTargetedPools[0])
	}
}

func TestAnalyzeAttackPatterns_Empty(t *testing.T) {
	report := NewAnalyzer().AnalyzeAttackPatterns(nil)

	if report.UniqueBlocks != 0 || report.MaxAttacksPerBlock != 0 {
		t.Errorf("expected zero block aggregates")
	}
	if !report.MedianProfit.IsZero() || !report.TotalGasSpent.IsZero() {
		t.Errorf("expected zero profit and gas aggregates")
	}
	if len(report.TokenPairs) != 0 || len(report.VictimCounts) != 0 {
		t.Errorf("expected empty frequency tables")
	}
}

func TestAnalyzeAttackPatterns(t *testing.T) {
	attacks := []*types.SandwichAttack{
		mkAttack(100, attackerAddr, poolWethUsdc, "10"),
		mkAttack(100, attackerAddr, poolWethUsdc, "40"),
		mkAttack(110, victim2Addr, poolDaiWeth, "20"),
		mkAttack(120, victim2Addr, poolDaiWeth, "30"),
	}
	attacks[1].SandwichType = types.MultiVictim
	attacks[2].GasCost = decimal.Zero

	report := NewAnalyzer().AnalyzeAttackPatterns(attacks)

	if report.AttackTypes[types.Atomic] != 3 || report.AttackTypes[types.MultiVictim] != 1 {
		t.Errorf("unexpected type distribution %v", report.AttackTypes)
	}
	if report.UniqueBlocks != 3 || report.MaxAttacksPerBlock != 2 {
		t.Errorf("expected 3 unique blocks with max 2 per block, got %d / %d",
			report.UniqueBlocks, report.MaxAttacksPerBlock)
	}
	if !report.AvgAttacksPerBlock.Equal(decimal.NewFromInt(4).Div(decimal.NewFromInt(3))) {
		t.Errorf("unexpected avg attacks per block %s", report.AvgAttacksPerBlock)
	}

	if !report.MinProfit.Equal(decimal.NewFromInt(10)) || !report.MaxProfit.Equal(decimal.NewFromInt(40)) {
		t.Errorf("unexpected profit range %s..%s", report.MinProfit, report.MaxProfit)
	}
	if !report.AvgProfit.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected avg profit 25, got %s", report.AvgProfit)
	}
	// Middle-index median over sorted [10 20 30 40] picks index 2.
	if !report.MedianProfit.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected median profit 30, got %s", report.MedianProfit)
	}

	// The zero-gas attack is excluded from the gas aggregates.
	if !report.TotalGasSpent.Equal(decimal.NewFromInt(630000)) {
		t.Errorf("expected total gas 630000, got %s", report.TotalGasSpent)
	}
	if !report.AvgGasCost.Equal(decimal.NewFromInt(210000)) {
		t.Errorf("expected avg gas 210000, got %s", report.AvgGasCost)
	}

	pairKey := utils.ShortAddr(strings.ToLower(usdcAddr), 8) + ".../" + utils.ShortAddr(strings.ToLower(wethAddr), 8) + "..."
	if report.TokenPairs[pairKey] != 4 {
		t.Errorf("expected 4 attacks under pair key %q, got %v", pairKey, report.TokenPairs)
	}
	if report.VictimCounts[1] != 4 {
		t.Errorf("expected all attacks with one victim, got %v", report.VictimCounts)
	}
}

func TestCalculateAttackEfficiency(t *testing.T) {
	attack := mkAttack(100, attackerAddr, poolWethUsdc, "1000")

	metrics := NewAnalyzer().CalculateAttackEfficiency(attack)

	if !metrics.ProfitPerGas.Equal(decimal.NewFromInt(1000).Div(decimal.NewFromInt(210000))) {
		t.Errorf("unexpected profit per gas %s", metrics.ProfitPerGas)
	}
	if !metrics.ProfitPerVictim.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("unexpected profit per victim %s", metrics.ProfitPerVictim)
	}
	if !metrics.ProfitPerPriceImpact.Equal(decimal.NewFromInt(500)) {
		t.Errorf("unexpected profit per impact %s", metrics.ProfitPerPriceImpact)
	}
	if !metrics.ProfitPerVolume.Equal(decimal.NewFromInt(1000).Div(decimal.RequireFromString("29010"))) {
		t.Errorf("unexpected profit per volume %s", metrics.ProfitPerVolume)
	}
}

func TestCalculateAttackEfficiency_ZeroDivisors(t *testing.T) {
	attack := mkAttack(100, attackerAddr, poolWethUsdc, "1000")
	attack.GasCost = decimal.Zero
	attack.Victims = nil
	attack.PriceManipulationPct = decimal.Zero
	attack.VolumeManipulated = decimal.Zero

	metrics := NewAnalyzer().CalculateAttackEfficiency(attack)

	if !metrics.ProfitPerGas.IsZero() || !metrics.ProfitPerVictim.IsZero() ||
		!metrics.ProfitPerPriceImpact.IsZero() || !metrics.ProfitPerVolume.IsZero() {
		t.Errorf("expected zero metrics on zero divisors, got %+v", metrics)
	}
}

func TestIdentifySophisticatedAttackers(t *testing.T) {
	bot := attackerAddr
	whale := victim2Addr
	attacks := make([]*types.SandwichAttack, 0)

	// Five bot attacks with mixed address casing, 0.5 profit each.
	for i := range 5 {
		addr := bot
		if i%2 == 1 {
			addr = strings.ToUpper(bot)
		}
		attacks = append(attacks, mkAttack(uint64(100+i), addr, poolWethUsdc, "0.5"))
	}
	// One huge whale attack: excluded by the attack-count floor.
	attacks = append(attacks, mkAttack(200, whale, poolDaiWeth, "100"))

	profiles := NewAnalyzer().IdentifySophisticatedAttackers(attacks, 5, decimal.NewFromInt(1))

	if len(profiles) != 1 {
		t.Fatalf("expected 1 sophisticated attacker, got %d", len(profiles))
	}
	p := profiles[0]
	if p.Address != strings.ToLower(bot) {
		t.Errorf("expected lowercased address %s, got %s", strings.ToLower(bot), p.Address)
	}
	if p.AttackCount != 5 {
		t.Errorf("expected casing-merged count 5, got %d", p.AttackCount)
	}
	if !p.TotalProfit.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected total profit 2.5, got %s", p.TotalProfit)
	}
	if !p.AverageProfit.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("expected average profit 0.5, got %s", p.AverageProfit)
	}
	if p.PoolsTargeted != 1 || p.TotalVictims != 5 {
		t.Errorf("unexpected pools/victims %d/%d", p.PoolsTargeted, p.TotalVictims)
	}
	if !p.TotalGasSpent.Equal(decimal.NewFromInt(5 * 210000)) {
		t.Errorf("unexpected total gas %s", p.TotalGasSpent)
	}
}

func TestIdentifySophisticatedAttackers_ProfitFloor(t *testing.T) {
	attacks := make([]*types.SandwichAttack, 0)
	for i := range 5 {
		attacks = append(attacks, mkAttack(uint64(100+i), attackerAddr, poolWethUsdc, "0.1"))
	}

	profiles := NewAnalyzer().IdentifySophisticatedAttackers(attacks, 5, decimal.NewFromInt(1))
	if len(profiles) != 0 {
		t.Errorf("expected total profit 0.5 to miss the floor, got %d profiles", len(profiles))
	}
}

func TestDetectAttackClusters(t *testing.T) {
	a := NewAnalyzer()

	within := []*types.SandwichAttack{
		mkAttack(150, victim2Addr, poolDaiWeth, "20"),
		mkAttack(100, attackerAddr, poolWethUsdc, "10"),
	}
	clusters := a.DetectAttackClusters(within, 100)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if c.FromBlock != 100 || c.ToBlock != 150 || c.BlockSpan != 51 {
		t.Errorf("unexpected cluster bounds %d..%d span %d", c.FromBlock, c.ToBlock, c.BlockSpan)
	}
	if c.AttackCount != 2 || c.UniqueAttackers != 2 || c.UniquePools != 2 {
		t.Errorf("unexpected cluster cardinalities %+v", c)
	}
	if !c.AttackDensity.Equal(decimal.NewFromInt(2).Div(decimal.NewFromInt(51))) {
		t.Errorf("unexpected density %s", c.AttackDensity)
	}
	if !c.TotalProfit.Equal(decimal.NewFromInt(30)) {
		t.Errorf("unexpected cluster profit %s", c.TotalProfit)
	}
	if !utils.HasString(c.Attackers, attackerAddr) || !utils.HasString(c.Attackers, victim2Addr) {
		t.Errorf("cluster attackers missing entries: %v", c.Attackers)
	}

	apart := []*types.SandwichAttack{
		mkAttack(100, attackerAddr, poolWethUsdc, "10"),
		mkAttack(250, victim2Addr, poolDaiWeth, "20"),
	}
	if got := a.DetectAttackClusters(apart, 100); len(got) != 0 {
		t.Errorf("expected no cluster across a 150-block gap, got %d", len(got))
	}

	chained := []*types.SandwichAttack{
		mkAttack(100, attackerAddr, poolWethUsdc, "10"),
		mkAttack(150, attackerAddr, poolWethUsdc, "10"),
		mkAttack(260, victim2Addr, poolDaiWeth, "20"),
	}
	clusters = a.DetectAttackClusters(chained, 100)
	if len(clusters) != 1 {
		t.Fatalf("expected the trailing singleton to be dropped, got %d clusters", len(clusters))
	}
	if clusters[0].AttackCount != 2 || clusters[0].ToBlock != 150 {
		t.Errorf("unexpected surviving cluster %+v", clusters[0])
	}
}
