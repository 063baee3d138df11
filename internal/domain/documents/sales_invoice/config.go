package sales_invoice

import "distro/internal/core/numerator"

const (
	// DocumentType is recorded on stock movements written by invoices.
	DocumentType = "sales_invoice"

	// NumberPrefix is the document number prefix (SI-YYYY-NNNNN).
	NumberPrefix = "SI"

	// NumeratorStrategy: invoices are primary accounting documents and
	// must be numbered without gaps.
	NumeratorStrategy = numerator.StrategyStrict
)
