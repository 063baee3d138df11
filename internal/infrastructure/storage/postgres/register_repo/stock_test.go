package register_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distro/internal/core/id"
)

func TestStockRepo_SnapshotQueries(t *testing.T) {
	r := NewStockRepo(nil)
	item, branch := id.New(), id.New()

	tests := []struct {
		name     string
		sql      func() (string, []any, error)
		join     string
		suffix   string
		noSuffix bool
	}{
		{
			name:     "plain read tolerates a missing balance row",
			sql:      r.snapshotQuery(item, branch).ToSql,
			join:     "LEFT JOIN reg_stock_balances b ON b.item_id = i.id AND b.branch_id = $1",
			noSuffix: true,
		},
		{
			name:   "locked read locks the balance row",
			sql:    r.lockedSnapshotQuery(item, branch).ToSql,
			join:   "JOIN reg_stock_balances b ON b.item_id = i.id AND b.branch_id = $1",
			suffix: "FOR UPDATE OF b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.sql()
			require.NoError(t, err)
			assert.Contains(t, sql, "FROM cat_items i")
			assert.Contains(t, sql, tt.join)
			assert.Contains(t, sql, "WHERE i.id = $2")
			if tt.noSuffix {
				assert.NotContains(t, sql, "FOR UPDATE")
			} else {
				assert.Contains(t, sql, tt.suffix)
			}
			// Eq binds through driver.Valuer, join arguments are passed as is.
			assert.Equal(t, []any{branch, item.String()}, args)
		})
	}
}
