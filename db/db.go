package db

import (
	"dexwatch/types"
)

type Database interface {
	Close() error
	EnsureDatabaseExists() error
	CreateTables() error
	DropTables() error

	InsertSandwichAttacks(attacks []*types.SandwichAttack) error

	QueryAttackRange(fromBlock, toBlock uint64) ([]*types.SandwichAttack, error)
	QueryLastAttackBlock() (uint64, error)
}
