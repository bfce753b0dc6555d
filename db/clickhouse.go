package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"dexwatch/logger"
	"dexwatch/types"
)

type ClickhouseDB struct {
	conn driver.Conn
}

func NewClickhouse() Database {
	opts := &clickhouse.Options{
		Addr: []string{viper.GetString("CLICKHOUSE_ADDR")},
		Auth: clickhouse.Auth{
			Database: viper.GetString("CLICKHOUSE_DATABASE"),
			Username: viper.GetString("CLICKHOUSE_USERNAME"),
			Password: viper.GetString("CLICKHOUSE_PASSWORD"),
		},
		DialTimeout:  5 * time.Second,
		Compression:  &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
		MaxOpenConns: 10,
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		slog.Error("Failed to connect to ClickHouse", "error", err)
	}

	return &ClickhouseDB{conn: conn}
}

// attackRow flattens a SandwichAttack for storage; the per-leg swaps go to
// the sandwich_swaps table keyed by attackId.
type attackRow struct {
	AttackID             string          `ch:"attackId"`
	SandwichType         string          `ch:"sandwichType"`
	BlockNumber          uint64          `ch:"blockNumber"`
	Timestamp            time.Time       `ch:"timestamp"`
	PoolAddress          string          `ch:"poolAddress"`
	TokenA               string          `ch:"tokenA"`
	TokenB               string          `ch:"tokenB"`
	Attacker             string          `ch:"attacker"`
	ProfitToken          string          `ch:"profitToken"`
	ProfitAmount         decimal.Decimal `ch:"profitAmount"`
	VictimLoss           decimal.Decimal `ch:"victimLoss"`
	GasCost              decimal.Decimal `ch:"gasCost"`
	NetProfit            decimal.Decimal `ch:"netProfit"`
	DetectionConfidence  decimal.Decimal `ch:"detectionConfidence"`
	PriceManipulationPct decimal.Decimal `ch:"priceManipulationPct"`
	VolumeManipulated    decimal.Decimal `ch:"volumeManipulated"`
	FrontCount           uint16          `ch:"frontCount"`
	VictimCount          uint16          `ch:"victimCount"`
	BackCount            uint16          `ch:"backCount"`
}

type swapRow struct {
	AttackID       string          `ch:"attackId"`
	Role           string          `ch:"role"`
	TxHash         string          `ch:"txHash"`
	BlockNumber    uint64          `ch:"blockNumber"`
	LogIndex       uint32          `ch:"logIndex"`
	DexProtocol    string          `ch:"dexProtocol"`
	PoolAddress    string          `ch:"poolAddress"`
	Trader         string          `ch:"trader"`
	TokenIn        string          `ch:"tokenIn"`
	TokenInSymbol  string          `ch:"tokenInSymbol"`
	TokenOut       string          `ch:"tokenOut"`
	TokenOutSymbol string          `ch:"tokenOutSymbol"`
	AmountIn       decimal.Decimal `ch:"amountIn"`
	AmountOut      decimal.Decimal `ch:"amountOut"`
	PriceImpact    decimal.Decimal `ch:"priceImpact"`
	GasUsed        uint64          `ch:"gasUsed"`
	Timestamp      time.Time       `ch:"timestamp"`
}

// Database interface implementation
func (d *ClickhouseDB) Close() error {
	return d.conn.Close()
}

func (d *ClickhouseDB) EnsureDatabaseExists() error {
	query := `CREATE DATABASE IF NOT EXISTS dexwatch`
	if err := d.conn.Exec(context.Background(), query); err != nil {
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}
	logger.GlobalLogger.Info("Database ensured to exist", "database", "dexwatch")
	return nil
}

func (d *ClickhouseDB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS dexwatch.sandwich_attacks
		(
			attackId String,
			sandwichType String,
			blockNumber UInt64,
			timestamp DateTime,
			poolAddress String,
			tokenA String,
			tokenB String,

			attacker String,
			profitToken String,
			profitAmount Decimal(38, 18),
			victimLoss Decimal(38, 18),
			gasCost Decimal(38, 18),
			netProfit Decimal(38, 18),

			detectionConfidence Decimal(38, 18),
			priceManipulationPct Decimal(38, 18),
			volumeManipulated Decimal(38, 18),

			frontCount UInt16,
			victimCount UInt16,
			backCount UInt16
		)
		ENGINE = MergeTree
		ORDER BY (blockNumber, attackId)
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS dexwatch.sandwich_swaps
		(
			attackId String,
			role String,

			txHash String,
			blockNumber UInt64,
			logIndex UInt32,
			dexProtocol String,
			poolAddress String,
			trader String,

			tokenIn String,
			tokenInSymbol String,
			tokenOut String,
			tokenOutSymbol String,
			amountIn Decimal(38, 18),
			amountOut Decimal(38, 18),
			priceImpact Decimal(38, 18),
			gasUsed UInt64,
			timestamp DateTime
		)
		ENGINE = MergeTree
		ORDER BY (blockNumber, logIndex, attackId)
		SETTINGS index_granularity = 8192`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(context.Background(), q); err != nil {
			return err
		}
		logger.GlobalLogger.Info("Check or create table in DB", "query", q)
	}
	return nil
}

func (d *ClickhouseDB) DropTables() error {
	rows, err := d.conn.Query(context.Background(), "SHOW TABLES FROM dexwatch")
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, t)
	}

	for _, t := range tables {
		q := fmt.Sprintf("DROP TABLE IF EXISTS dexwatch.%s", t)
		if err := d.conn.Exec(context.Background(), q); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", t, err)
		}
	}

	return nil
}

// InsertSandwichAttacks persists attacks and their per-leg swaps.
func (d *ClickhouseDB) InsertSandwichAttacks(attacks []*types.SandwichAttack) error {
	if len(attacks) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(context.Background(), "INSERT INTO dexwatch.sandwich_attacks")
	if err != nil {
		return err
	}
	for _, a := range attacks {
		if err := batch.AppendStruct(toAttackRow(a)); err != nil {
			return err
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert sandwich attacks: %w", err)
	}

	swapBatch, err := d.conn.PrepareBatch(context.Background(), "INSERT INTO dexwatch.sandwich_swaps")
	if err != nil {
		return err
	}
	for _, a := range attacks {
		for _, leg := range attackLegs(a) {
			if err := swapBatch.AppendStruct(toSwapRow(a.AttackID, leg)); err != nil {
				return err
			}
		}
	}
	if err := swapBatch.Send(); err != nil {
		return fmt.Errorf("failed to insert sandwich swaps: %w", err)
	}
	return nil
}

// QueryAttackRange loads attacks in the inclusive block range and
// reassembles their frontrun/victim/backrun legs from the swaps table.
func (d *ClickhouseDB) QueryAttackRange(fromBlock, toBlock uint64) ([]*types.SandwichAttack, error) {
	rows, err := d.conn.Query(context.Background(),
		`SELECT attackId, sandwichType, blockNumber, timestamp, poolAddress, tokenA, tokenB,
		        attacker, profitToken, profitAmount, victimLoss, gasCost, netProfit,
		        detectionConfidence, priceManipulationPct, volumeManipulated,
		        frontCount, victimCount, backCount
		 FROM dexwatch.sandwich_attacks
		 WHERE blockNumber >= ? AND blockNumber <= ?
		 ORDER BY blockNumber, attackId`, fromBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("query sandwich attacks failed: %w", err)
	}
	defer rows.Close()

	attacks := make([]*types.SandwichAttack, 0)
	byID := make(map[string]*types.SandwichAttack)
	for rows.Next() {
		var r attackRow
		if err := rows.ScanStruct(&r); err != nil {
			return nil, fmt.Errorf("scan sandwich attack failed: %w", err)
		}
		a := fromAttackRow(&r)
		attacks = append(attacks, a)
		byID[a.AttackID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(attacks) == 0 {
		return attacks, nil
	}

	swapRows, err := d.conn.Query(context.Background(),
		`SELECT attackId, role, txHash, blockNumber, logIndex, dexProtocol, poolAddress, trader,
		        tokenIn, tokenInSymbol, tokenOut, tokenOutSymbol,
		        amountIn, amountOut, priceImpact, gasUsed, timestamp
		 FROM dexwatch.sandwich_swaps
		 WHERE blockNumber >= ? AND blockNumber <= ?
		 ORDER BY blockNumber, logIndex`, fromBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("query sandwich swaps failed: %w", err)
	}
	defer swapRows.Close()

	for swapRows.Next() {
		var r swapRow
		if err := swapRows.ScanStruct(&r); err != nil {
			return nil, fmt.Errorf("scan sandwich swap failed: %w", err)
		}
		a, ok := byID[r.AttackID]
		if !ok {
			continue
		}
		leg := fromSwapRow(&r)
		switch r.Role {
		case types.RoleFrontRun:
			a.FrontRun = append(a.FrontRun, leg)
		case types.RoleVictim:
			a.Victims = append(a.Victims, leg)
		case types.RoleBackRun:
			a.BackRun = append(a.BackRun, leg)
		}
	}
	if err := swapRows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return attacks, nil
}

func (d *ClickhouseDB) QueryLastAttackBlock() (uint64, error) {
	row := d.conn.QueryRow(context.Background(),
		`SELECT ifNull(max(blockNumber), toUInt64(0)) FROM dexwatch.sandwich_attacks`)
	var block uint64
	if err := row.Scan(&block); err != nil {
		return 0, fmt.Errorf("query last attack block failed: %w", err)
	}
	return block, nil
}

func toAttackRow(a *types.SandwichAttack) *attackRow {
	return &attackRow{
		AttackID:             a.AttackID,
		SandwichType:         string(a.SandwichType),
		BlockNumber:          a.BlockNumber,
		Timestamp:            a.BlockTimestamp,
		PoolAddress:          a.PoolAddress,
		TokenA:               a.TokenPair.TokenA,
		TokenB:               a.TokenPair.TokenB,
		Attacker:             a.Attacker,
		ProfitToken:          a.ProfitToken,
		ProfitAmount:         a.ProfitAmount,
		VictimLoss:           a.VictimLoss,
		GasCost:              a.GasCost,
		NetProfit:            a.NetProfit,
		DetectionConfidence:  a.DetectionConfidence,
		PriceManipulationPct: a.PriceManipulationPct,
		VolumeManipulated:    a.VolumeManipulated,
		FrontCount:           uint16(len(a.FrontRun)),
		VictimCount:          uint16(len(a.Victims)),
		BackCount:            uint16(len(a.BackRun)),
	}
}

func fromAttackRow(r *attackRow) *types.SandwichAttack {
	return &types.SandwichAttack{
		AttackID:             r.AttackID,
		SandwichType:         types.SandwichType(r.SandwichType),
		BlockNumber:          r.BlockNumber,
		BlockTimestamp:       r.Timestamp,
		PoolAddress:          r.PoolAddress,
		TokenPair:            types.TokenPair{TokenA: r.TokenA, TokenB: r.TokenB},
		Attacker:             r.Attacker,
		ProfitAmount:         r.ProfitAmount,
		ProfitToken:          r.ProfitToken,
		VictimLoss:           r.VictimLoss,
		GasCost:              r.GasCost,
		NetProfit:            r.NetProfit,
		DetectionConfidence:  r.DetectionConfidence,
		PriceManipulationPct: r.PriceManipulationPct,
		VolumeManipulated:    r.VolumeManipulated,
	}
}

func attackLegs(a *types.SandwichAttack) []*types.SandwichTx {
	legs := make([]*types.SandwichTx, 0, len(a.FrontRun)+len(a.Victims)+len(a.BackRun))
	legs = append(legs, a.FrontRun...)
	legs = append(legs, a.Victims...)
	legs = append(legs, a.BackRun...)
	return legs
}

func toSwapRow(attackID string, leg *types.SandwichTx) *swapRow {
	return &swapRow{
		AttackID:       attackID,
		Role:           leg.Role,
		TxHash:         leg.Swap.TxHash,
		BlockNumber:    leg.Swap.BlockNumber,
		LogIndex:       leg.Swap.LogIndex,
		DexProtocol:    leg.Swap.DexProtocol,
		PoolAddress:    leg.Swap.PoolAddress,
		Trader:         leg.Swap.Trader,
		TokenIn:        leg.Swap.TokenIn.Address,
		TokenInSymbol:  leg.Swap.TokenIn.Symbol,
		TokenOut:       leg.Swap.TokenOut.Address,
		TokenOutSymbol: leg.Swap.TokenOut.Symbol,
		AmountIn:       leg.Swap.AmountIn,
		AmountOut:      leg.Swap.AmountOut,
		PriceImpact:    leg.Swap.PriceImpact,
		GasUsed:        leg.Swap.GasUsed,
		Timestamp:      leg.Swap.Timestamp,
	}
}

func fromSwapRow(r *swapRow) *types.SandwichTx {
	return &types.SandwichTx{
		Swap: types.SwapEvent{
			TxHash:      r.TxHash,
			BlockNumber: r.BlockNumber,
			LogIndex:    r.LogIndex,
			DexProtocol: r.DexProtocol,
			PoolAddress: r.PoolAddress,
			Trader:      r.Trader,
			TokenIn:     types.TokenInfo{Address: r.TokenIn, Symbol: r.TokenInSymbol},
			TokenOut:    types.TokenInfo{Address: r.TokenOut, Symbol: r.TokenOutSymbol},
			AmountIn:    r.AmountIn,
			AmountOut:   r.AmountOut,
			PriceImpact: r.PriceImpact,
			GasUsed:     r.GasUsed,
			Timestamp:   r.Timestamp,
		},
		Role:        r.Role,
		PriceImpact: r.PriceImpact,
	}
}
