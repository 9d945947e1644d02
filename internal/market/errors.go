package market

import (
	"errors"
	"fmt"
)

// SchemaError reports a required column missing from an input table.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s: required column %q not found", e.Table, e.Column)
}

// IsSchemaError reports whether err wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// Exclusion reasons for rows silently dropped by an as-of join or a filter.
const (
	ExcludedNoBuySession  = "no_buy_session"
	ExcludedNoSellSession = "no_sell_session"
	ExcludedMissingPrice  = "missing_price"
	ExcludedZeroBuyPrice  = "zero_buy_price"
)
