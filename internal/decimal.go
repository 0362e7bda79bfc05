package internal

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is an exact fixed-point value used for currency cells.
type Decimal struct {
	value apd.Decimal
}

// NewDecimal parses a finite decimal. NaN and infinities are rejected.
func NewDecimal(s string) (Decimal, error) {
	var d apd.Decimal
	_, _, err := d.SetString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal: %w", err)
	}
	if d.Form != apd.Finite {
		return Decimal{}, fmt.Errorf("invalid decimal: %w: %s is not a finite number", ErrInvalidArgument, s)
	}
	return Decimal{value: d}, nil
}

func (d Decimal) String() string {
	return d.value.String()
}

func (d Decimal) Cmp(other Decimal) int {
	return d.value.Cmp(&other.value)
}

// Float64 returns the nearest float64. Precision beyond float64 is lost.
func (d Decimal) Float64() (float64, error) {
	f, err := d.value.Float64()
	if err != nil {
		return 0, fmt.Errorf("decimal %s does not fit a float64: %w", d.String(), err)
	}
	return f, nil
}

// MarshalJSON renders the decimal as a JSON number without going through float64.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.value.Text('f')), nil
}
