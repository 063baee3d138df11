package report_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distro/internal/core/id"
	"distro/internal/domain/reports"
)

func TestOpenItemsQuery(t *testing.T) {
	r := NewReportRepo(nil)

	t.Run("no filter", func(t *testing.T) {
		sql, args, err := r.openItemsQuery(reports.AgingFilter{}).ToSql()
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT id, customer_id, date, total_value, total_returned_value, paid_amount FROM doc_sales_invoices "+
				"WHERE status = $1 AND total_value - total_returned_value - paid_amount > 0 "+
				"ORDER BY customer_id, date, id",
			sql)
		assert.Len(t, args, 1)
	})

	t.Run("all filters", func(t *testing.T) {
		asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		branch := id.New()
		sql, args, err := r.openItemsQuery(reports.AgingFilter{
			AsOf:        &asOf,
			CustomerIDs: []id.ID{id.New(), id.New()},
			BranchID:    &branch,
		}).ToSql()
		require.NoError(t, err)
		assert.Contains(t, sql, "customer_id IN ($2,$3)")
		assert.Contains(t, sql, "branch_id = $4")
		assert.Contains(t, sql, "date <= $5")
		assert.Len(t, args, 5)
	})
}
