package sales_return

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
	"distro/internal/domain/registers/stock"
	"distro/internal/domain/uom"
	"distro/pkg/logger"
)

// Service provides business operations for sales returns.
type Service struct {
	repo      Repository
	invoices  InvoiceStore
	stock     *stock.Service
	numerator numerator.Generator
	txManager tx.Manager
	locker    lock.Locker
}

// NewService creates a new sales return service.
func NewService(
	repo Repository,
	invoices InvoiceStore,
	stockService *stock.Service,
	numerator numerator.Generator,
	txManager tx.Manager,
	locker lock.Locker,
) *Service {
	return &Service{
		repo:      repo,
		invoices:  invoices,
		stock:     stockService,
		numerator: numerator,
		txManager: txManager,
		locker:    locker,
	}
}

// PrepareLine returns the returnable capacity of one invoice line.
func (s *Service) PrepareLine(ctx context.Context, invoiceID, lineID id.ID) (DraftLine, error) {
	_, lines, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return DraftLine{}, err
	}
	line, ok := findLine(lines, lineID)
	if !ok {
		return DraftLine{}, apperror.NewNotFound("invoice line", lineID.String())
	}
	prior, err := s.priorByLine(ctx, invoiceID)
	if err != nil {
		return DraftLine{}, err
	}
	return NewDraftLine(line, prior[lineID].quantities()), nil
}

// PrepareDraft builds the return form for every line of an invoice.
func (s *Service) PrepareDraft(ctx context.Context, invoiceID id.ID) (*Draft, error) {
	inv, lines, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	prior, err := s.priorByLine(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	draft := &Draft{
		InvoiceID:  inv.ID,
		CustomerID: inv.CustomerID,
		BranchID:   inv.BranchID,
		Lines:      make([]DraftLine, 0, len(lines)),
	}
	for _, l := range lines {
		draft.Lines = append(draft.Lines, NewDraftLine(l, prior[l.LineID].quantities()))
	}
	return draft, nil
}

// Approve re-checks every requested quantity against live data and, if all
// fit, records the return, reduces the invoice balance and restocks the goods.
// A request above the remaining capacity rejects the whole return.
func (s *Service) Approve(ctx context.Context, ret *SalesReturn) error {
	ret.DropEmptyLines()
	if len(ret.Lines) == 0 {
		return apperror.NewValidation("at least one line with a quantity is required").
			WithDetail("field", "lines")
	}

	// Item ids come from the invoice; they are needed for the stock lock keys.
	inv, lines, err := s.loadInvoice(ctx, ret.InvoiceID)
	if err != nil {
		return err
	}
	if err := s.bindLines(inv, lines, ret); err != nil {
		return err
	}
	if err := ret.Validate(ctx); err != nil {
		return err
	}

	keys := append([]string{lock.InvoiceKey(ret.InvoiceID)}, ret.StockKeys()...)
	release, err := lock.AcquireAll(ctx, s.locker, keys)
	if err != nil {
		return err
	}
	defer release(ctx)

	ret.CreatedBy = appctx.GetUserID(ctx)
	ret.UpdatedBy = ret.CreatedBy

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetForUpdate(ctx, ret.InvoiceID)
		if err != nil {
			return err
		}
		lines, err := s.invoiceLines(ctx, inv.ID)
		if err != nil {
			return err
		}
		if err := s.bindLines(inv, lines, ret); err != nil {
			return err
		}
		prior, err := s.priorByLine(ctx, inv.ID)
		if err != nil {
			return err
		}

		if err := s.price(ret, lines, prior); err != nil {
			return err
		}
		if err := inv.ApplyReturn(ret.TotalValue); err != nil {
			return err
		}
		if err := s.invoices.UpdateAmounts(ctx, inv); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		if ret.Number == "" {
			number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(NumberPrefix),
				&numerator.Options{Strategy: NumeratorStrategy}, ret.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			ret.Number = number
		}
		ret.MarkApproved()

		if err := s.repo.Create(ctx, ret); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, ret.ID, ret.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		rec := stock.Recorder{ID: ret.ID, Type: DocumentType}
		return s.stock.RecordReceipt(ctx, rec, ret.BranchID, ret.StockRequirements())
	})
	if err != nil {
		logger.Warn(ctx, "sales return rejected", "id", ret.ID, "invoice_id", ret.InvoiceID, "error", err)
		return err
	}

	logger.Info(ctx, "sales return approved",
		"id", ret.ID,
		"number", ret.Number,
		"invoice_id", ret.InvoiceID,
		"total_value", ret.TotalValue.String(),
	)
	return nil
}

// price checks each request against the remaining capacity of its line
// and copies prices onto it. Requests for the same line are consumed in order.
func (s *Service) price(ret *SalesReturn, lines []sales_invoice.Line, prior map[id.ID]*priorReturns) error {
	taken := make(map[id.ID]*priorReturns, len(ret.Lines))
	values := make([]types.MinorUnits, 0, len(ret.Lines))

	for i := range ret.Lines {
		rl := &ret.Lines[i]
		line, _ := findLine(lines, rl.InvoiceLineID)

		p := prior[line.LineID]
		t := taken[line.LineID]
		if t == nil {
			t = &priorReturns{}
			taken[line.LineID] = t
		}
		qtys := slices.Concat(p.quantities(), t.qty)

		rem := ComputeRemaining(line.Qty(), line.Factor(), qtys)
		if !rem.Allows(rl.Qty()) {
			return apperror.NewReturnExceedsSold(line.LineID.String(), rl.Qty().TotalBase(line.Factor()), rem.RemainingTotalBase).
				WithDetail("max_primary", uom.SolveMax(uom.FieldPrimary, uom.Pair{Base: rl.QtyReturnBase}, rem.Factor, rem.RemainingTotalBase)).
				WithDetail("max_base", uom.SolveMax(uom.FieldBase, uom.Pair{Primary: rl.QtyReturnPrimary}, rem.Factor, rem.RemainingTotalBase))
		}

		rl.FactorToBase = line.Factor()
		rl.SellingPricePrimary = line.SellingPricePrimary
		rl.SellingPriceBase = line.SellingPriceBase
		rl.DiscountPerUnit = line.DiscountPerUnit

		request := rl.TotalBase()
		rl.Value = LineValue(line, request, rem.ReturnedTotalBase, p.value()+t.value())

		t.qty = append(t.qty, rl.Qty())
		t.values = append(t.values, rl.Value)
		values = append(values, rl.Value)
	}

	ret.TotalValue = types.SumMinorUnits(values...)
	return nil
}

// bindLines checks the return belongs to an approved invoice and fills item
// ids from the invoice lines.
func (s *Service) bindLines(inv *sales_invoice.SalesInvoice, lines []sales_invoice.Line, ret *SalesReturn) error {
	if !inv.IsApproved() {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "Only approved invoices can be returned against.").
			WithDetail("invoice_id", inv.ID.String())
	}
	ret.CustomerID = inv.CustomerID
	ret.BranchID = inv.BranchID

	for i := range ret.Lines {
		line, ok := findLine(lines, ret.Lines[i].InvoiceLineID)
		if !ok {
			return apperror.NewNotFound("invoice line", ret.Lines[i].InvoiceLineID.String())
		}
		if !line.HasBaseUOM && ret.Lines[i].QtyReturnBase > 0 {
			return apperror.NewValidation("item has no base unit").
				WithDetail("field", "qtyReturnBase").
				WithDetail("lineNo", ret.Lines[i].LineNo)
		}
		ret.Lines[i].ItemID = line.ItemID
	}
	return nil
}

func (s *Service) loadInvoice(ctx context.Context, invoiceID id.ID) (*sales_invoice.SalesInvoice, []sales_invoice.Line, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.invoiceLines(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	return inv, lines, nil
}

func (s *Service) invoiceLines(ctx context.Context, invoiceID id.ID) ([]sales_invoice.Line, error) {
	lines, err := s.invoices.GetLines(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get invoice lines: %w", err)
	}
	for i := range lines {
		lines[i].NormalizeLegacy()
	}
	return lines, nil
}

// priorReturns is what approved returns already took from one invoice line.
type priorReturns struct {
	qty    []uom.Pair
	values []types.MinorUnits
}

func (p *priorReturns) quantities() []uom.Pair {
	if p == nil {
		return nil
	}
	return p.qty
}

func (p *priorReturns) value() types.MinorUnits {
	if p == nil {
		return 0
	}
	return types.SumMinorUnits(p.values...)
}

func (s *Service) priorByLine(ctx context.Context, invoiceID id.ID) (map[id.ID]*priorReturns, error) {
	lines, err := s.repo.ListApprovedLinesByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list prior returns: %w", err)
	}
	out := make(map[id.ID]*priorReturns)
	for _, l := range lines {
		p := out[l.InvoiceLineID]
		if p == nil {
			p = &priorReturns{}
			out[l.InvoiceLineID] = p
		}
		p.qty = append(p.qty, l.Qty())
		p.values = append(p.values, l.Value)
	}
	return out, nil
}

func findLine(lines []sales_invoice.Line, lineID id.ID) (sales_invoice.Line, bool) {
	for _, l := range lines {
		if l.LineID == lineID {
			return l, true
		}
	}
	return sales_invoice.Line{}, false
}

// GetByID retrieves a return with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*SalesReturn, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List returns return headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesReturn], error) {
	return s.repo.List(ctx, filter)
}
