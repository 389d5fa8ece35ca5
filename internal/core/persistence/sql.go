package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"chainwatch/internal/core/db"
	"chainwatch/internal/types"
)

const isoFormat = "2006-01-02T15:04:05Z"

// writeBatch commits every row upsert followed by every cursor update in
// a single transaction, per (chain, contract_address) idempotence.
func writeBatch(ctx context.Context, database *db.DB, rows []types.ContractRow, cursors map[types.ChainType]uint64) error {
	if len(rows) == 0 && len(cursors) == 0 {
		return nil
	}

	tx, err := database.Conn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, row := range rows {
		query, args := buildContractUpsert(row)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert contract %s/%s: %w", row.Network, row.ContractAddress, err)
		}
	}

	for chain, height := range cursors {
		query, args := buildCursorUpsert(chain, height)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("advance cursor %s: %w", chain, err)
		}
	}

	return tx.Commit()
}

func buildContractUpsert(row types.ContractRow) (string, []any) {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("contracts")
	ib.Cols(
		"network", "contract_address", "deployer_address", "entity_name", "entity_id",
		"block_number", "transaction_hash", "contract_type", "contract_info",
		"factory_address", "deployment_type", "timestamp",
	)
	ib.Values(
		string(row.Network), row.ContractAddress, row.DeployerAddress,
		nullableString(row.EntityName), nullableString(row.EntityID),
		row.BlockNumber, row.TransactionHash, string(row.ContractType), string(row.ContractInfo),
		nullableString(row.FactoryAddress), string(row.DeploymentType), row.Timestamp.UTC().Format(isoFormat),
	)

	query, args := ib.Build()
	query += ` ON CONFLICT (network, contract_address) DO NOTHING`
	return query, args
}

func buildCursorUpsert(chain types.ChainType, height uint64) (string, []any) {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("monitoring_state")
	ib.Cols("network", "last_processed_block", "updated_at")
	ib.Values(string(chain), height, time.Now().UTC().Format(isoFormat))

	query, args := ib.Build()
	query += ` ON CONFLICT (network) DO UPDATE SET
		last_processed_block = excluded.last_processed_block,
		updated_at = excluded.updated_at`
	return query, args
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// scanCursor reads the persisted cursor for chain, returning
// (height, found, error).
func scanCursor(ctx context.Context, database *db.DB, chain types.ChainType) (uint64, bool, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("last_processed_block").From("monitoring_state").Where(sb.Equal("network", string(chain)))

	query, args := sb.Build()
	row := database.Conn().QueryRowContext(ctx, query, args...)

	var height uint64
	if err := row.Scan(&height); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}
	return height, true, nil
}
