package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"distro/internal/core/apperror"
	"distro/internal/core/entity"
	"distro/internal/core/id"
	"distro/internal/domain"
	"distro/internal/domain/documents/customer_payment"
	"distro/internal/domain/documents/sales_invoice"
	"distro/internal/domain/documents/sales_return"
)

// InvoiceRepo implements sales_invoice.Repository.
type InvoiceRepo struct {
	mu    sync.Mutex
	docs  map[id.ID]sales_invoice.SalesInvoice
	lines map[id.ID][]sales_invoice.Line
}

// NewInvoiceRepo creates an empty invoice store.
func NewInvoiceRepo() *InvoiceRepo {
	return &InvoiceRepo{
		docs:  make(map[id.ID]sales_invoice.SalesInvoice),
		lines: make(map[id.ID][]sales_invoice.Line),
	}
}

func (r *InvoiceRepo) Create(_ context.Context, doc *sales_invoice.SalesInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; ok {
		return apperror.NewConflict("sales invoice already exists").WithDetail("id", doc.ID.String())
	}
	r.docs[doc.ID] = header(*doc)
	return nil
}

func header(doc sales_invoice.SalesInvoice) sales_invoice.SalesInvoice {
	doc.Lines = nil
	return doc
}

func (r *InvoiceRepo) GetByID(_ context.Context, docID id.ID) (*sales_invoice.SalesInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("sales_invoice", docID.String())
	}
	return &doc, nil
}

func (r *InvoiceRepo) GetByNumber(_ context.Context, number string) (*sales_invoice.SalesInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.Number == number {
			return &doc, nil
		}
	}
	return nil, apperror.NewNotFound("sales_invoice", number)
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, docID id.ID) (*sales_invoice.SalesInvoice, error) {
	return r.GetByID(ctx, docID)
}

func (r *InvoiceRepo) UpdateAmounts(_ context.Context, doc *sales_invoice.SalesInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.docs[doc.ID]
	if !ok || stored.Version != doc.Version {
		return apperror.NewConcurrentModification("sales_invoice", doc.ID.String())
	}
	stored.Amounts = doc.Amounts
	stored.PaymentStatus = doc.PaymentStatus
	stored.Balance = doc.Balance
	stored.Version++
	r.docs[doc.ID] = stored
	doc.Version = stored.Version
	return nil
}

func (r *InvoiceRepo) GetLines(_ context.Context, docID id.ID) ([]sales_invoice.Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lines[docID]), nil
}

func (r *InvoiceRepo) SaveLines(_ context.Context, docID id.ID, lines []sales_invoice.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[docID] = slices.Clone(lines)
	return nil
}

func (r *InvoiceRepo) List(_ context.Context, filter sales_invoice.ListFilter) (domain.ListResult[*sales_invoice.SalesInvoice], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*sales_invoice.SalesInvoice
	for _, doc := range r.docs {
		if !matchDocument(doc.Document, filter.ListFilter) {
			continue
		}
		if filter.CustomerID != nil && doc.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.BranchID != nil && doc.BranchID != *filter.BranchID {
			continue
		}
		if filter.PaymentStatus != nil && doc.PaymentStatus != *filter.PaymentStatus {
			continue
		}
		if filter.DateFrom != nil && doc.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && doc.Date.After(*filter.DateTo) {
			continue
		}
		items = append(items, &doc)
	}
	return page(items, filter.ListFilter, func(d *sales_invoice.SalesInvoice) entity.Document { return d.Document }), nil
}

func (r *InvoiceRepo) ListOpenByCustomer(_ context.Context, customerID id.ID) ([]*sales_invoice.SalesInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sales_invoice.SalesInvoice
	for _, doc := range r.docs {
		if doc.CustomerID != customerID || !doc.IsApproved() || !doc.Amounts.Balance().IsPositive() {
			continue
		}
		out = append(out, &doc)
	}
	slices.SortFunc(out, func(a, b *sales_invoice.SalesInvoice) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return id.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *InvoiceRepo) ListAfter(_ context.Context, afterID id.ID, limit int) ([]*sales_invoice.SalesInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sales_invoice.SalesInvoice
	for _, doc := range r.docs {
		if id.Compare(doc.ID, afterID) > 0 {
			out = append(out, &doc)
		}
	}
	slices.SortFunc(out, func(a, b *sales_invoice.SalesInvoice) int { return id.Compare(a.ID, b.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ReturnRepo implements sales_return.Repository.
type ReturnRepo struct {
	mu    sync.Mutex
	docs  map[id.ID]sales_return.SalesReturn
	lines map[id.ID][]sales_return.Line
}

// NewReturnRepo creates an empty return store.
func NewReturnRepo() *ReturnRepo {
	return &ReturnRepo{
		docs:  make(map[id.ID]sales_return.SalesReturn),
		lines: make(map[id.ID][]sales_return.Line),
	}
}

func (r *ReturnRepo) Create(_ context.Context, doc *sales_return.SalesReturn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; ok {
		return apperror.NewConflict("sales return already exists").WithDetail("id", doc.ID.String())
	}
	h := *doc
	h.Lines = nil
	r.docs[doc.ID] = h
	return nil
}

func (r *ReturnRepo) GetByID(_ context.Context, docID id.ID) (*sales_return.SalesReturn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("sales_return", docID.String())
	}
	return &doc, nil
}

func (r *ReturnRepo) GetLines(_ context.Context, docID id.ID) ([]sales_return.Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lines[docID]), nil
}

func (r *ReturnRepo) SaveLines(_ context.Context, docID id.ID, lines []sales_return.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[docID] = slices.Clone(lines)
	return nil
}

func (r *ReturnRepo) ListApprovedLinesByInvoice(_ context.Context, invoiceID id.ID) ([]sales_return.Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sales_return.Line
	for docID, doc := range r.docs {
		if doc.InvoiceID != invoiceID || !doc.IsApproved() {
			continue
		}
		out = append(out, r.lines[docID]...)
	}
	return out, nil
}

func (r *ReturnRepo) List(_ context.Context, filter sales_return.ListFilter) (domain.ListResult[*sales_return.SalesReturn], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*sales_return.SalesReturn
	for _, doc := range r.docs {
		if !matchDocument(doc.Document, filter.ListFilter) {
			continue
		}
		if filter.InvoiceID != nil && doc.InvoiceID != *filter.InvoiceID {
			continue
		}
		if filter.CustomerID != nil && doc.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.DateFrom != nil && doc.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && doc.Date.After(*filter.DateTo) {
			continue
		}
		items = append(items, &doc)
	}
	return page(items, filter.ListFilter, func(d *sales_return.SalesReturn) entity.Document { return d.Document }), nil
}

// PaymentRepo implements customer_payment.Repository.
type PaymentRepo struct {
	mu     sync.Mutex
	docs   map[id.ID]customer_payment.CustomerPayment
	allocs map[id.ID][]customer_payment.Allocation
}

// NewPaymentRepo creates an empty payment store.
func NewPaymentRepo() *PaymentRepo {
	return &PaymentRepo{
		docs:   make(map[id.ID]customer_payment.CustomerPayment),
		allocs: make(map[id.ID][]customer_payment.Allocation),
	}
}

func (r *PaymentRepo) Create(_ context.Context, doc *customer_payment.CustomerPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; ok {
		return apperror.NewConflict("customer payment already exists").WithDetail("id", doc.ID.String())
	}
	h := *doc
	h.Allocations = nil
	r.docs[doc.ID] = h
	return nil
}

func (r *PaymentRepo) Update(_ context.Context, doc *customer_payment.CustomerPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.docs[doc.ID]
	if !ok || stored.Version != doc.Version {
		return apperror.NewConcurrentModification("customer_payment", doc.ID.String())
	}
	h := *doc
	h.Allocations = nil
	h.Version++
	r.docs[doc.ID] = h
	doc.Version = h.Version
	return nil
}

func (r *PaymentRepo) GetByID(_ context.Context, docID id.ID) (*customer_payment.CustomerPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("customer_payment", docID.String())
	}
	return &doc, nil
}

func (r *PaymentRepo) GetAllocations(_ context.Context, docID id.ID) ([]customer_payment.Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.allocs[docID]), nil
}

func (r *PaymentRepo) SaveAllocations(_ context.Context, docID id.ID, allocs []customer_payment.Allocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allocs[docID] = slices.Clone(allocs)
	return nil
}

func (r *PaymentRepo) List(_ context.Context, filter customer_payment.ListFilter) (domain.ListResult[*customer_payment.CustomerPayment], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*customer_payment.CustomerPayment
	for _, doc := range r.docs {
		if !matchDocument(doc.Document, filter.ListFilter) {
			continue
		}
		if filter.CustomerID != nil && doc.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.PaymentMethod != nil && doc.PaymentMethod != *filter.PaymentMethod {
			continue
		}
		if filter.DateFrom != nil && doc.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && doc.Date.After(*filter.DateTo) {
			continue
		}
		items = append(items, &doc)
	}
	return page(items, filter.ListFilter, func(d *customer_payment.CustomerPayment) entity.Document { return d.Document }), nil
}

var (
	_ sales_invoice.Repository    = (*InvoiceRepo)(nil)
	_ sales_return.Repository     = (*ReturnRepo)(nil)
	_ customer_payment.Repository = (*PaymentRepo)(nil)
)

const maxListLimit = 500

func matchDocument(doc entity.Document, f domain.ListFilter) bool {
	if !f.IncludeVoided && doc.Status == entity.StatusVoided {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(doc.Number), strings.ToLower(f.Search)) {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, doc.ID) {
		return false
	}
	return true
}

// page orders by date then number (newest first unless OrderBy is "date")
// and cuts one page.
func page[T any](items []T, f domain.ListFilter, doc func(T) entity.Document) domain.ListResult[T] {
	desc := f.OrderBy != "date" && f.OrderBy != "number"
	slices.SortFunc(items, func(a, b T) int {
		da, db := doc(a), doc(b)
		c := da.Date.Compare(db.Date)
		if f.OrderBy == "number" || f.OrderBy == "-number" {
			c = cmp.Compare(da.Number, db.Number)
		}
		if c == 0 {
			c = id.Compare(da.ID, db.ID)
		}
		if desc {
			return -c
		}
		return c
	})

	limit, offset := f.Page(maxListLimit)
	total := len(items)
	start := min(offset, total)
	end := min(start+limit, total)
	return domain.ListResult[T]{
		Items:      items[start:end],
		TotalCount: int64(total),
		Limit:      limit,
		Offset:     offset,
	}
}
