package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SandwichType classifies a detected attack.
type SandwichType string

const (
	// FrontBack is the classic frontrun-victim-backrun pattern.
	FrontBack SandwichType = "front_back"
	// MultiVictim is a sandwich with more than one victim. Takes precedence
	// over Atomic when both apply.
	MultiVictim SandwichType = "multi_victim"
	// Atomic means frontrun and backrun landed in the same block.
	Atomic SandwichType = "atomic"
)

// Transaction roles within a sandwich.
const (
	RoleFrontRun = "frontRun"
	RoleVictim   = "victim"
	RoleBackRun  = "backRun"
)

// SandwichTx wraps a swap with its assigned role inside an attack.
// The price markers are best-effort annotations; the base detector leaves
// PriceBefore/PriceAfter at zero since real pool-state lookups belong to the
// DEX reader layer.
type SandwichTx struct {
	Swap SwapEvent
	Role string

	PriceBefore decimal.Decimal
	PriceAfter  decimal.Decimal
	PriceImpact decimal.Decimal
}

// SandwichAttack is a confirmed detection result. Built only by the
// detector, immutable afterwards; the analyzer only folds over it.
type SandwichAttack struct {
	AttackID     string
	SandwichType SandwichType

	BlockNumber    uint64
	BlockTimestamp time.Time
	PoolAddress    string
	TokenPair      TokenPair

	// FrontRun and BackRun each hold exactly one element in the base
	// algorithm; Victims holds one or more.
	FrontRun []*SandwichTx
	Victims  []*SandwichTx
	BackRun  []*SandwichTx

	Attacker     string
	ProfitAmount decimal.Decimal
	ProfitToken  string
	// VictimLoss sums the victims' price-impact fields, an approximation
	// rather than a ground-truth loss.
	VictimLoss decimal.Decimal
	// GasCost is a raw gas-unit count carried in the same numeric domain as
	// ProfitAmount. NetProfit = ProfitAmount - GasCost therefore mixes
	// units; callers must not assume unit consistency.
	GasCost   decimal.Decimal
	NetProfit decimal.Decimal

	DetectionConfidence  decimal.Decimal // heuristic, 0..1
	PriceManipulationPct decimal.Decimal
	VolumeManipulated    decimal.Decimal
}

// VictimCount is the number of sandwiched victim swaps.
func (a *SandwichAttack) VictimCount() int {
	return len(a.Victims)
}

// AttackerProfit is one (address, total profit) entry of a leaderboard.
type AttackerProfit struct {
	Address string
	Profit  decimal.Decimal
}

// PoolAttacks is one (pool, attack count) entry of a leaderboard.
type PoolAttacks struct {
	PoolAddress string
	Count       int
}

// SandwichStatistics aggregates a collection of attacks. Recomputed on
// demand, never persisted.
type SandwichStatistics struct {
	FromBlock uint64
	ToBlock   uint64

	TotalAttacks    int
	TotalProfit     decimal.Decimal
	TotalVictimLoss decimal.Decimal
	AverageProfit   decimal.Decimal

	MostProfitable *SandwichAttack

	TopAttackers      []AttackerProfit // descending by profit, top 10
	MostTargetedPools []PoolAttacks    // descending by count, top 10
}
