package customer_payment

import (
	"context"
	"fmt"
	"slices"

	"distro/internal/core/apperror"
	appctx "distro/internal/core/context"
	"distro/internal/core/id"
	"distro/internal/core/lock"
	"distro/internal/core/numerator"
	"distro/internal/core/tx"
	"distro/internal/core/types"
	"distro/internal/domain"
	"distro/internal/domain/documents/sales_invoice"
	"distro/pkg/logger"
)

// Service provides business operations for customer payments.
type Service struct {
	repo           Repository
	invoices       InvoiceStore
	numerator      numerator.Generator
	txManager      tx.Manager
	locker         lock.Locker
	collectorRoles []string
}

// NewService creates a new customer payment service.
// Users holding any of collectorRoles must name a collector on submit.
func NewService(
	repo Repository,
	invoices InvoiceStore,
	numerator numerator.Generator,
	txManager tx.Manager,
	locker lock.Locker,
	collectorRoles []string,
) *Service {
	return &Service{
		repo:           repo,
		invoices:       invoices,
		numerator:      numerator,
		txManager:      txManager,
		locker:         locker,
		collectorRoles: collectorRoles,
	}
}

// OpenDraft builds a new allocation form for a customer.
func (s *Service) OpenDraft(ctx context.Context, customerID id.ID) (*Draft, error) {
	invoices, err := s.invoices.ListOpenByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list open invoices: %w", err)
	}
	return NewDraft(customerID, invoices), nil
}

// EditDraft builds the allocation form of a saved payment.
func (s *Service) EditDraft(ctx context.Context, paymentID id.ID) (*Draft, error) {
	p, err := s.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := p.CanModify(); err != nil {
		return nil, err
	}

	invoices, err := s.invoices.ListOpenByCustomer(ctx, p.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("list open invoices: %w", err)
	}
	// Invoices this payment settled in full are no longer open.
	for _, invID := range p.InvoiceIDs() {
		if slices.ContainsFunc(invoices, func(inv *sales_invoice.SalesInvoice) bool { return inv.ID == invID }) {
			continue
		}
		inv, err := s.invoices.GetByID(ctx, invID)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return NewEditDraft(p, invoices), nil
}

// GetByID retrieves a payment with allocations.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*CustomerPayment, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	allocs, err := s.repo.GetAllocations(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get allocations: %w", err)
	}
	doc.Allocations = allocs
	return doc, nil
}

// List returns payment headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*CustomerPayment], error) {
	return s.repo.List(ctx, filter)
}

// Submit saves the draft as an approved payment.
//
// Every allocation is re-checked against the live invoice balance inside one
// transaction. An allocation above the live balance aborts the whole payment.
// When the draft edits a saved payment, its previous allocations are reversed
// in the same transaction before the new ones are applied.
func (s *Service) Submit(ctx context.Context, draft *Draft, sub Submission) (*CustomerPayment, error) {
	sub.CollectorRequired = len(s.collectorRoles) > 0 && appctx.HasAnyRole(ctx, s.collectorRoles...)
	if draft.EditMode() && sub.CustomerID != draft.CustomerID {
		return nil, apperror.NewBusinessRule(apperror.CodeCustomerLocked,
			"The customer of a saved payment cannot be changed.").
			WithDetail("payment_id", draft.PaymentID.String())
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	allocs := draft.Allocations()
	if len(allocs) == 0 {
		return nil, apperror.NewValidation("at least one allocation is required").
			WithDetail("field", "allocations")
	}
	if !draft.Total().IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").
			WithDetail("field", "amount")
	}

	p := NewCustomerPayment(sub.BranchID, sub.CustomerID)
	var previous []Allocation
	if draft.EditMode() {
		saved, err := s.GetByID(ctx, draft.PaymentID)
		if err != nil {
			return nil, err
		}
		if err := saved.CanModify(); err != nil {
			return nil, err
		}
		if saved.CustomerID != sub.CustomerID {
			return nil, apperror.NewBusinessRule(apperror.CodeCustomerLocked,
				"The customer of a saved payment cannot be changed.").
				WithDetail("payment_id", saved.ID.String())
		}
		p = saved
		previous = slices.Clone(saved.Allocations)
	}

	p.PaymentMethod = sub.PaymentMethod
	p.CollectorID = sub.CollectorID
	p.Reference = sub.Reference
	p.Comment = sub.Comment
	if !sub.Date.IsZero() {
		p.Date = sub.Date
	}
	p.UpdatedBy = appctx.GetUserID(ctx)
	if !draft.EditMode() {
		p.CreatedBy = p.UpdatedBy
	}
	p.SetAllocations(allocs)
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	deltas := allocationDeltas(previous, p.Allocations)
	keys := make([]string, 0, len(deltas))
	for _, d := range deltas {
		keys = append(keys, lock.InvoiceKey(d.invoiceID))
	}
	release, err := lock.AcquireAll(ctx, s.locker, keys)
	if err != nil {
		return nil, err
	}
	defer release(ctx)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, d := range deltas {
			if err := s.applyToInvoice(ctx, p.CustomerID, d); err != nil {
				return err
			}
		}

		if draft.EditMode() {
			if err := s.repo.Update(ctx, p); err != nil {
				return fmt.Errorf("update document: %w", err)
			}
		} else {
			number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(NumberPrefix),
				&numerator.Options{Strategy: NumeratorStrategy}, p.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			p.Number = number
			p.MarkApproved()
			if err := s.repo.Create(ctx, p); err != nil {
				return fmt.Errorf("create document: %w", err)
			}
		}
		if err := s.repo.SaveAllocations(ctx, p.ID, p.Allocations); err != nil {
			return fmt.Errorf("save allocations: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "customer payment rejected", "id", p.ID, "customer_id", p.CustomerID, "error", err)
		return nil, err
	}

	logger.Info(ctx, "customer payment saved",
		"id", p.ID,
		"number", p.Number,
		"customer_id", p.CustomerID,
		"amount", p.Amount.String(),
		"allocations", len(p.Allocations),
	)
	return p, nil
}

// invoiceDelta is the change of one invoice's paid amount.
type invoiceDelta struct {
	invoiceID id.ID
	reverse   types.MinorUnits
	apply     types.MinorUnits
}

// allocationDeltas pairs previous and new allocations per invoice,
// sorted by invoice id.
func allocationDeltas(previous, next []Allocation) []invoiceDelta {
	byID := make(map[id.ID]*invoiceDelta)
	ids := make([]id.ID, 0, len(previous)+len(next))
	get := func(invID id.ID) *invoiceDelta {
		d, ok := byID[invID]
		if !ok {
			d = &invoiceDelta{invoiceID: invID}
			byID[invID] = d
			ids = append(ids, invID)
		}
		return d
	}
	for _, a := range previous {
		get(a.InvoiceID).reverse += a.Amount
	}
	for _, a := range next {
		get(a.InvoiceID).apply += a.Amount
	}

	slices.SortFunc(ids, id.Compare)
	out := make([]invoiceDelta, 0, len(ids))
	for _, invID := range ids {
		if d := byID[invID]; d.reverse != d.apply {
			out = append(out, *d)
		}
	}
	return out
}

func (s *Service) applyToInvoice(ctx context.Context, customerID id.ID, d invoiceDelta) error {
	inv, err := s.invoices.GetForUpdate(ctx, d.invoiceID)
	if err != nil {
		return err
	}
	if inv.CustomerID != customerID {
		return apperror.NewValidation("invoice belongs to another customer").
			WithDetail("invoice_id", inv.ID.String())
	}
	if !inv.IsApproved() {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "Only approved invoices can be paid.").
			WithDetail("invoice_id", inv.ID.String())
	}

	if d.reverse.IsPositive() {
		if err := inv.ApplyPayment(d.reverse.Neg()); err != nil {
			return err
		}
	}
	if d.apply.IsPositive() {
		if err := inv.ApplyPayment(d.apply); err != nil {
			return err
		}
	}
	if err := s.invoices.UpdateAmounts(ctx, inv); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}
