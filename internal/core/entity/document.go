package entity

import (
	"context"
	"time"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
)

// DocumentStatus is the workflow state of a business document.
// It is independent from derived states such as payment status.
type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "draft"
	StatusApproved DocumentStatus = "approved"
	StatusVoided   DocumentStatus = "voided"
)

// Document is the base type for business transactions.
// Examples: SalesInvoice, SalesReturn, CustomerPayment.
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+period)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// BranchID is the selling branch; stock snapshots are kept per item per branch
	BranchID id.ID `db:"branch_id" json:"branchId"`

	// Status is the workflow state
	Status DocumentStatus `db:"status" json:"status"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new draft Document with generated ID.
func NewDocument(branchID id.ID) Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		BranchID:     branchID,
		Status:       StatusDraft,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if id.IsNil(d.BranchID) {
		return apperror.NewValidation("branch is required").
			WithDetail("field", "branchId")
	}

	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	return nil
}

// IsApproved reports whether the document takes part in balances.
func (d *Document) IsApproved() bool {
	return d.Status == StatusApproved
}

// MarkApproved moves the document into the approved state.
// Version is left to the repository, which bumps it on a successful update.
func (d *Document) MarkApproved() {
	d.Status = StatusApproved
	d.UpdatedAt = time.Now().UTC()
}

// CanModify checks if document can still be edited.
func (d *Document) CanModify() error {
	if d.Status == StatusVoided {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"Cannot modify voided document.",
		).WithDetail("document_id", d.ID.String())
	}
	return nil
}
