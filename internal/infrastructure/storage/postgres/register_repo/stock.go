// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/domain/registers/stock"
	"distro/internal/infrastructure/storage/postgres"
)

const (
	itemsTable          = "cat_items"
	stockMovementsTable = "reg_stock_movements"
	stockBalancesTable  = "reg_stock_balances"
)

var movementColumns = []string{
	"id", "recorder_id", "recorder_type", "kind",
	"item_id", "branch_id", "primary_qty", "base_qty", "total_base", "created_at",
}

// StockRepo implements stock.Repository.
// Unit metadata comes from the item catalog; quantities from the balance row.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// snapshotQuery joins the item with its balance row in the branch.
// A missing balance row reads as zero stock.
func (r *StockRepo) snapshotQuery(itemID, branchID id.ID) squirrel.SelectBuilder {
	return r.snapshotColumns().
		LeftJoin(stockBalancesTable+" b ON b.item_id = i.id AND b.branch_id = ?", branchID).
		Where(squirrel.Eq{"i.id": itemID})
}

// lockedSnapshotQuery requires the balance row and locks it.
// FOR UPDATE cannot reach the nullable side of an outer join.
func (r *StockRepo) lockedSnapshotQuery(itemID, branchID id.ID) squirrel.SelectBuilder {
	return r.snapshotColumns().
		Join(stockBalancesTable+" b ON b.item_id = i.id AND b.branch_id = ?", branchID).
		Where(squirrel.Eq{"i.id": itemID}).
		Suffix("FOR UPDATE OF b")
}

func (r *StockRepo) snapshotColumns() squirrel.SelectBuilder {
	return r.builder.Select(
		"i.id AS item_id",
		"i.primary_uom",
		"COALESCE(i.base_uom, '') AS base_uom",
		"i.factor_to_base",
		"COALESCE(b.on_hand_primary, 0) AS on_hand_primary",
		"COALESCE(b.running_balance, 0) AS running_balance",
		"COALESCE(b.updated_at, NOW()) AS updated_at",
	).From(itemsTable + " i")
}

func (r *StockRepo) getSnapshot(ctx context.Context, q squirrel.SelectBuilder, itemID, branchID id.ID) (stock.Snapshot, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return stock.Snapshot{}, fmt.Errorf("build query: %w", err)
	}

	var snap stock.Snapshot
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &snap, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return stock.Snapshot{}, apperror.NewNotFound("item", itemID.String())
		}
		return stock.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	snap.BranchID = branchID
	return snap, nil
}

// GetSnapshot returns the stock of an item in a branch.
func (r *StockRepo) GetSnapshot(ctx context.Context, itemID, branchID id.ID) (stock.Snapshot, error) {
	return r.getSnapshot(ctx, r.snapshotQuery(itemID, branchID), itemID, branchID)
}

// GetSnapshotForUpdate returns the snapshot with the balance row locked.
// The row is created first so there is always something to lock.
func (r *StockRepo) GetSnapshotForUpdate(ctx context.Context, itemID, branchID id.ID) (stock.Snapshot, error) {
	if _, err := r.GetSnapshot(ctx, itemID, branchID); err != nil {
		return stock.Snapshot{}, err
	}

	sql, args, err := r.builder.Insert(stockBalancesTable).
		Columns("item_id", "branch_id", "on_hand_primary", "running_balance", "updated_at").
		Values(itemID, branchID, 0, 0, squirrel.Expr("NOW()")).
		Suffix("ON CONFLICT (item_id, branch_id) DO NOTHING").
		ToSql()
	if err != nil {
		return stock.Snapshot{}, fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return stock.Snapshot{}, fmt.Errorf("ensure balance row: %w", err)
	}

	return r.getSnapshot(ctx, r.lockedSnapshotQuery(itemID, branchID), itemID, branchID)
}

// SaveSnapshot upserts the balance row of an item in a branch.
func (r *StockRepo) SaveSnapshot(ctx context.Context, snap stock.Snapshot) error {
	sql, args, err := r.builder.Insert(stockBalancesTable).
		Columns("item_id", "branch_id", "on_hand_primary", "running_balance", "updated_at").
		Values(snap.ItemID, snap.BranchID, snap.OnHandPrimary, snap.RunningBalance, squirrel.Expr("NOW()")).
		Suffix(`ON CONFLICT (item_id, branch_id) DO UPDATE SET
			on_hand_primary = EXCLUDED.on_hand_primary,
			running_balance = EXCLUDED.running_balance,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// CreateMovements batch inserts movements.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, []any{
			m.ID, m.RecorderID, m.RecorderType, m.Kind,
			m.ItemID, m.BranchID, m.PrimaryQty, m.BaseQty, m.TotalBase, m.CreatedAt,
		})
	}

	// Fast path: COPY when inside a transaction.
	if r.txm.GetTx(ctx) != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		if _, err := inserter.CopyFromSlice(ctx, stockMovementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(stockMovementsTable).Columns(movementColumns...)
	for _, row := range rows {
		q = q.Values(row...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	return nil
}

// GetMovementsByRecorder retrieves movements for a document.
func (r *StockRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]stock.Movement, error) {
	sql, args, err := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []stock.Movement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

var _ stock.Repository = (*StockRepo)(nil)
