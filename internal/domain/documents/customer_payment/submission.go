package customer_payment

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Submission is the header a user fills in when saving a payment.
// CollectorRequired is set by the service from the acting user's roles.
type Submission struct {
	BranchID          id.ID     `json:"branchId" validate:"required"`
	CustomerID        id.ID     `json:"customerId" validate:"required"`
	PaymentMethod     Method    `json:"paymentMethod" validate:"required,oneof=cash bank_transfer cheque mobile_money"`
	CollectorRequired bool      `json:"-"`
	CollectorID       string    `json:"collectorId" validate:"required_if=CollectorRequired true,max=64"`
	Reference         string    `json:"reference" validate:"max=128"`
	Date              time.Time `json:"date"`
	Comment           string    `json:"comment" validate:"max=1000"`
}

// Validate checks the header fields.
func (s Submission) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.NewInternal(err)
	}

	appErr := apperror.NewValidation("invalid payment")
	for _, fe := range fieldErrs {
		appErr = appErr.WithDetail(fe.Field(), fe.Tag())
	}
	if len(fieldErrs) > 0 {
		appErr = appErr.WithDetail("field", fieldErrs[0].Field())
	}
	return appErr
}
