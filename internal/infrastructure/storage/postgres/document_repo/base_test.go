package document_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/domain"
)

func TestBaseDocumentRepo_ParseOrderBy(t *testing.T) {
	r := NewSalesInvoiceRepo(nil)

	tests := []struct {
		name    string
		orderBy string
		want    string
		wantErr bool
	}{
		{name: "default", orderBy: "", want: "date DESC"},
		{name: "ascending", orderBy: "number", want: "number ASC"},
		{name: "explicit plus", orderBy: "+balance", want: "balance ASC"},
		{name: "descending", orderBy: "-paid_amount", want: "paid_amount DESC"},
		{name: "unknown column", orderBy: "1; DROP TABLE x", wantErr: true},
		{name: "sign only", orderBy: "-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.parseOrderBy(tt.orderBy)
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaseDocumentRepo_FilterSelect(t *testing.T) {
	r := NewCustomerPaymentRepo(nil)

	sql, args, err := r.filterSelect(domain.ListFilter{}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM doc_customer_payments WHERE status <> $1")
	assert.Len(t, args, 1)

	sql, args, err = r.filterSelect(domain.ListFilter{
		IncludeVoided: true,
		Search:        "PM-2026",
		IDs:           []id.ID{id.New(), id.New()},
	}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "status <>")
	assert.Contains(t, sql, "number ILIKE $1")
	assert.Contains(t, sql, "id IN ($2,$3)")
	assert.Equal(t, "%PM-2026%", args[0])
}

func TestLineTable_Columns(t *testing.T) {
	r := NewSalesReturnRepo(nil)

	assert.Contains(t, r.lines.cols, "invoice_line_id")
	assert.Contains(t, r.lines.cols, "qty_return_base")
	assert.NotContains(t, r.lines.cols, "document_id")
	assert.Contains(t, r.selectCols, "invoice_id")
	assert.Contains(t, r.selectCols, "total_value")
}
