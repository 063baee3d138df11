package sales_invoice

import (
	"context"
	"fmt"

	appctx "distro/internal/core/context"
	"distro/internal/core/id"
	"distro/internal/core/lock"
	"distro/internal/core/numerator"
	"distro/internal/core/tx"
	"distro/internal/domain"
	"distro/internal/domain/registers/stock"
	"distro/pkg/logger"
)

// Service provides business operations for sales invoices.
type Service struct {
	repo      Repository
	stock     *stock.Service
	numerator numerator.Generator
	txManager tx.Manager
	locker    lock.Locker // Optional. Row locks inside the transaction stay authoritative.
}

// NewService creates a new sales invoice service.
func NewService(
	repo Repository,
	stockService *stock.Service,
	numerator numerator.Generator,
	txManager tx.Manager,
	locker lock.Locker,
) *Service {
	return &Service{
		repo:      repo,
		stock:     stockService,
		numerator: numerator,
		txManager: txManager,
		locker:    locker,
	}
}

// Create validates, numbers and approves a new invoice, taking its goods
// out of stock in the same transaction.
//
// Quantities are re-checked against live stock; a line that no longer fits
// rejects the whole invoice.
func (s *Service) Create(ctx context.Context, doc *SalesInvoice) error {
	if err := s.freezeItems(ctx, doc); err != nil {
		return err
	}
	doc.RecalculateTotals()

	if err := doc.Validate(ctx); err != nil {
		return err
	}

	release, err := lock.AcquireAll(ctx, s.locker, doc.StockKeys())
	if err != nil {
		return err
	}
	defer release(ctx)

	doc.CreatedBy = appctx.GetUserID(ctx)
	doc.UpdatedBy = doc.CreatedBy
	doc.MarkApproved()

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if doc.Number == "" {
			number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(NumberPrefix),
				&numerator.Options{Strategy: NumeratorStrategy}, doc.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			doc.Number = number
		}

		rec := stock.Recorder{ID: doc.ID, Type: DocumentType}
		if err := s.stock.RecordExpense(ctx, rec, doc.BranchID, doc.StockRequirements()); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "sales invoice rejected", "id", doc.ID, "error", err)
		return err
	}

	logger.Info(ctx, "sales invoice created",
		"id", doc.ID,
		"number", doc.Number,
		"total_value", doc.TotalValue.String(),
	)
	return nil
}

// freezeItems copies the current unit metadata of each item onto its lines.
func (s *Service) freezeItems(ctx context.Context, doc *SalesInvoice) error {
	for i := range doc.Lines {
		if id.IsNil(doc.Lines[i].ItemID) {
			continue
		}
		snap, err := s.stock.Availability(ctx, doc.Lines[i].ItemID, doc.BranchID)
		if err != nil {
			return err
		}
		item := snap.Item()
		doc.Lines[i].FactorToBase = item.Factor()
		doc.Lines[i].HasBaseUOM = item.HasBaseUOM()
	}
	return nil
}

// GetByID retrieves an invoice with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*SalesInvoice, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	for i := range lines {
		lines[i].NormalizeLegacy()
	}
	doc.Lines = lines
	doc.Rederive()

	return doc, nil
}

// List returns invoice headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesInvoice], error) {
	return s.repo.List(ctx, filter)
}

// ListOpenForCustomer returns the customer's invoices that still have a balance.
func (s *Service) ListOpenForCustomer(ctx context.Context, customerID id.ID) ([]*SalesInvoice, error) {
	docs, err := s.repo.ListOpenByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list open invoices: %w", err)
	}
	for _, d := range docs {
		d.Rederive()
	}
	return docs, nil
}

// RederiveStatuses walks all invoices and rewrites any whose stored payment
// status or balance disagrees with its amounts. Returns the repaired count.
func (s *Service) RederiveStatuses(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	repaired := 0
	after := id.Nil()
	for {
		page, err := s.repo.ListAfter(ctx, after, batchSize)
		if err != nil {
			return repaired, fmt.Errorf("list invoices: %w", err)
		}
		for _, doc := range page {
			if !doc.Drifted() {
				continue
			}
			if err := s.repair(ctx, doc.ID); err != nil {
				return repaired, err
			}
			repaired++
		}
		if len(page) < batchSize {
			break
		}
		after = page[len(page)-1].ID
	}

	if repaired > 0 {
		logger.Info(ctx, "payment status re-derived", "repaired", repaired)
	}
	return repaired, nil
}

func (s *Service) repair(ctx context.Context, docID id.ID) error {
	release, err := lock.AcquireAll(ctx, s.locker, []string{lock.InvoiceKey(docID)})
	if err != nil {
		return err
	}
	defer release(ctx)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if !doc.Drifted() {
			return nil
		}
		logger.Warn(ctx, "invoice status drift",
			"id", doc.ID,
			"stored_status", string(doc.PaymentStatus),
			"stored_balance", doc.Balance.String(),
		)
		doc.Rederive()
		return s.repo.UpdateAmounts(ctx, doc)
	})
}
