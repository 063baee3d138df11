// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"distro/internal/core/apperror"
	"distro/internal/core/entity"
	"distro/internal/core/id"
	"distro/internal/domain"
	"distro/internal/infrastructure/storage/postgres"
)

const maxListLimit = 500

// immutableColumns are never written by Update.
var immutableColumns = map[string]struct{}{
	"id":         {},
	"created_at": {},
	"created_by": {},
	"version":    {},
	"updated_at": {},
}

// BaseDocumentRepo provides common CRUD operations for document headers.
type BaseDocumentRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	selectCols []string
	newFn      func() T
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txm *postgres.TxManager,
	tableName string,
	selectCols []string,
	newFn func() T,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txm:        txm,
		tableName:  tableName,
		selectCols: selectCols,
		newFn:      newFn,
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// Create inserts a new document header.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, doc T) error {
	data := postgres.StructToMap(doc)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(filteredData).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewConflict(fmt.Sprintf("%s already exists", r.tableName)).
				WithDetail("id", fmt.Sprint(data["id"]))
		}
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}

	return nil
}

// Update writes every mutable header column with optimistic locking and
// returns the new version.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, doc T) (int, error) {
	data := postgres.StructToMap(doc)
	if len(data) == 0 {
		return 0, fmt.Errorf("no db tags found in entity")
	}

	entityID, ok := data["id"].(id.ID)
	if !ok {
		return 0, fmt.Errorf("entity has no 'id' field")
	}

	version, ok := data["version"].(int)
	if !ok {
		return 0, fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	set := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if _, skip := immutableColumns[col]; skip {
			continue
		}
		if val, ok := data[col]; ok {
			set[col] = val
		}
	}

	return r.UpdateColumns(ctx, entityID, version, set)
}

// UpdateColumns writes the given columns where id and version match,
// bumps the version and returns it.
// A missing row or a stale version yields CONCURRENT_MODIFICATION.
func (r *BaseDocumentRepo[T]) UpdateColumns(ctx context.Context, entityID id.ID, version int, set map[string]any) (int, error) {
	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": version}).
		Suffix("RETURNING version").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	var next int
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&next); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperror.NewConcurrentModification(r.tableName, entityID.String())
		}
		return 0, fmt.Errorf("update %s: %w", r.tableName, err)
	}

	return next, nil
}

// baseSelect creates a SELECT builder.
func (r *BaseDocumentRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// get runs q and scans one header.
func (r *BaseDocumentRepo[T]) get(ctx context.Context, q squirrel.SelectBuilder, key string) (T, error) {
	doc := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return doc, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return doc, apperror.NewNotFound(r.tableName, key)
		}
		return doc, fmt.Errorf("get %s: %w", r.tableName, err)
	}

	return doc, nil
}

// GetByID retrieves a document by ID.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.get(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}), entityID.String())
}

// GetByNumber retrieves a document by Number.
func (r *BaseDocumentRepo[T]) GetByNumber(ctx context.Context, number string) (T, error) {
	return r.get(ctx, r.baseSelect().Where(squirrel.Eq{"number": number}), number)
}

// GetForUpdate retrieves document with row lock.
func (r *BaseDocumentRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": entityID}).
		Suffix("FOR UPDATE")
	return r.get(ctx, q, entityID.String())
}

// Select runs q and scans every row.
func (r *BaseDocumentRepo[T]) Select(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []T
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", r.tableName, err)
	}
	return items, nil
}

// List retrieves documents with standard filtering.
// where adds the document-specific conditions.
func (r *BaseDocumentRepo[T]) List(
	ctx context.Context,
	filter domain.ListFilter,
	where func(squirrel.SelectBuilder) squirrel.SelectBuilder,
) (domain.ListResult[T], error) {
	limit, offset := filter.Page(maxListLimit)
	result := domain.ListResult[T]{
		Limit:  limit,
		Offset: offset,
	}

	q := r.filterSelect(filter)
	if where != nil {
		q = where(q)
	}

	// Count
	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	// Order
	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "id").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	items, err := r.Select(ctx, q)
	if err != nil {
		return result, err
	}
	result.Items = items

	return result, nil
}

// filterSelect applies the common list conditions.
func (r *BaseDocumentRepo[T]) filterSelect(filter domain.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()

	if !filter.IncludeVoided {
		q = q.Where(squirrel.NotEq{"status": entity.StatusVoided})
	}

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}

	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}

	return q
}

func (r *BaseDocumentRepo[T]) parseOrderBy(orderBy string) (string, error) {
	allowed := make(map[string]struct{}, len(r.selectCols))
	for _, col := range r.selectCols {
		allowed[col] = struct{}{}
	}

	if strings.TrimSpace(orderBy) == "" {
		return "date DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	if _, ok := allowed[field]; !ok {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy).WithDetail("field", field)
	}

	return field + " " + direction, nil
}

// LineTable stores a document's table part as rows keyed by document_id.
type LineTable[L any] struct {
	txm       *postgres.TxManager
	tableName string
	cols      []string
}

// NewLineTable creates a table-part store for line type L.
func NewLineTable[L any](txm *postgres.TxManager, tableName string) *LineTable[L] {
	return &LineTable[L]{
		txm:       txm,
		tableName: tableName,
		cols:      postgres.ExtractDBColumns[L](),
	}
}

func (t *LineTable[L]) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Get returns the lines of a document ordered by line_no.
func (t *LineTable[L]) Get(ctx context.Context, docID id.ID) ([]L, error) {
	return t.Select(ctx, squirrel.Eq{"document_id": docID})
}

// Select returns lines matching where, ordered by document then line_no.
func (t *LineTable[L]) Select(ctx context.Context, where squirrel.Sqlizer) ([]L, error) {
	sql, args, err := t.builder().
		Select(t.cols...).
		From(t.tableName).
		Where(where).
		OrderBy("document_id", "line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lines := make([]L, 0)
	if err := pgxscan.Select(ctx, t.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.tableName, err)
	}
	return lines, nil
}

// Replace deletes the stored lines of a document and writes lines.
// Inside a transaction rows go through COPY.
func (t *LineTable[L]) Replace(ctx context.Context, docID id.ID, lines []L) error {
	sql, args, err := t.builder().
		Delete(t.tableName).
		Where(squirrel.Eq{"document_id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := t.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete %s: %w", t.tableName, err)
	}

	if len(lines) == 0 {
		return nil
	}

	columns := append([]string{"document_id"}, t.cols...)
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		data := postgres.StructToMap(l)
		row := make([]any, 0, len(columns))
		row = append(row, docID)
		for _, col := range t.cols {
			row = append(row, data[col])
		}
		rows = append(rows, row)
	}

	if t.txm.GetTx(ctx) != nil {
		if _, err := postgres.NewBatchInserter(t.txm).CopyFromSlice(ctx, t.tableName, columns, rows); err != nil {
			return fmt.Errorf("copy %s: %w", t.tableName, err)
		}
		return nil
	}

	q := t.builder().Insert(t.tableName).Columns(columns...)
	for _, row := range rows {
		q = q.Values(row...)
	}
	sql, args, err = q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := t.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", t.tableName, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
