package customer_payment

import "distro/internal/core/numerator"

const (
	// DocumentType identifies payments in logs and lock keys.
	DocumentType = "customer_payment"

	// NumberPrefix is the document number prefix (PM-YYYY-NNNNN).
	NumberPrefix = "PM"

	// NumeratorStrategy: payment numbers must be gapless.
	NumeratorStrategy = numerator.StrategyStrict
)

// DefaultCollectorRoles are the roles that must name a collector on submit.
var DefaultCollectorRoles = []string{"collector", "sales_rep"}
