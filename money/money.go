package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrMalformed    = errors.New("malformed money amount")
	ErrTooPrecise   = errors.New("money amounts have at most two decimal places")
	ErrInvalidCount = errors.New("split count must be positive")
)

// Money is an amount in minor units (cents). All comparison and storage
// happens on the integer value; decimals only show up at the parse/format
// boundary and inside Split.
type Money int64

func FromCents(cents int64) Money {
	return Money(cents)
}

// Parse reads a decimal string like "12.34" into cents. More than two
// decimal places is rejected rather than rounded.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	if d.Exponent() < -2 {
		return 0, ErrTooPrecise
	}
	return Money(d.Shift(2).IntPart()), nil
}

func (m Money) Cents() int64 {
	return int64(m)
}

func (m Money) Add(o Money) Money {
	return m + o
}

func (m Money) Sub(o Money) Money {
	return m - o
}

func (m Money) IsPositive() bool {
	return m > 0
}

func (m Money) String() string {
	return decimal.New(int64(m), -2).StringFixed(2)
}

// Split divides total into count equal shares using half-up rounding to two
// decimal places. share*count may differ from total by up to count-1 cents;
// the remainder (total - share*count, possibly negative) is reported but
// deliberately never redistributed: every participant is charged exactly
// share.
func Split(total Money, count int) (share, remainder Money, err error) {
	if count <= 0 {
		return 0, 0, ErrInvalidCount
	}
	// DivRound rounds half away from zero, which is half-up for the
	// non-negative amounts the ledger deals in.
	q := decimal.New(int64(total), -2).DivRound(decimal.NewFromInt(int64(count)), 2)
	share = Money(q.Shift(2).IntPart())
	remainder = total - share*Money(count)
	return share, remainder, nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value and Scan store Money as a plain integer cents column.
func (m Money) Value() (driver.Value, error) {
	return int64(m), nil
}

func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*m = Money(v)
		return nil
	case nil:
		*m = 0
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
}
