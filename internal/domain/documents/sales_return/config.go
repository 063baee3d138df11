package sales_return

import "distro/internal/core/numerator"

const (
	// DocumentType is recorded on stock movements written by returns.
	DocumentType = "sales_return"

	// NumberPrefix is the document number prefix (SR-YYYY-NNNNN).
	NumberPrefix = "SR"

	// NumeratorStrategy: returns are numbered from cached ranges.
	NumeratorStrategy = numerator.StrategyCached
)
