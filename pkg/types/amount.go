package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an arbitrary-precision non-negative integer token amount.
// On-chain amounts are 256-bit values serialized as decimal strings, so they
// routinely exceed the int64 range; Amount keeps them exact end to end and is
// stored as NUMERIC(78,0).
type Amount struct {
	dec decimal.Decimal
}

// ZeroAmount returns the additive identity.
func ZeroAmount() Amount {
	return Amount{dec: decimal.Zero}
}

// ParseAmount validates and converts a decimal string into an Amount.
// Fractions, signs and exponents are rejected: the ledger only ever emits
// whole non-negative integers.
func ParseAmount(value string) (Amount, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Amount{}, fmt.Errorf("amount is required")
	}
	dec, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if dec.IsNegative() {
		return Amount{}, fmt.Errorf("amount %q must not be negative", value)
	}
	if !dec.IsInteger() {
		return Amount{}, fmt.Errorf("amount %q must be a whole number", value)
	}
	return Amount{dec: dec}, nil
}

// MustAmount parses value or panics. Test helper.
func MustAmount(value string) Amount {
	amount, err := ParseAmount(value)
	if err != nil {
		panic(err)
	}
	return amount
}

// Add returns a + other.
func (a Amount) Add(other Amount) Amount {
	return Amount{dec: a.dec.Add(other.dec)}
}

// Cmp compares a against other: -1 if a < other, 0 if equal, +1 if a > other.
func (a Amount) Cmp(other Amount) int {
	return a.dec.Cmp(other.dec)
}

// Equal reports whether both amounts hold the same value.
func (a Amount) Equal(other Amount) bool {
	return a.dec.Equal(other.dec)
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.dec.IsZero()
}

// String renders the canonical decimal form without exponent notation.
func (a Amount) String() string {
	return a.dec.String()
}

// Value implements driver.Valuer, persisting the canonical decimal string.
func (a Amount) Value() (driver.Value, error) {
	return a.dec.String(), nil
}

// Scan implements sql.Scanner for TEXT/NUMERIC columns.
func (a *Amount) Scan(src any) error {
	if src == nil {
		a.dec = decimal.Zero
		return nil
	}
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case int64:
		a.dec = decimal.NewFromInt(v)
		return nil
	case float64:
		// sqlite NUMERIC affinity can hand integral values back as floats.
		dec := decimal.NewFromFloat(v)
		if !dec.IsInteger() || dec.IsNegative() {
			return fmt.Errorf("cannot scan non-integer float %v into Amount", v)
		}
		a.dec = dec
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// GormDataType keeps the column wide enough for 256-bit values.
func (Amount) GormDataType() string {
	return "numeric(78,0)"
}

// MarshalJSON renders the amount as a decimal string, never a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.dec.String())
}

// UnmarshalJSON accepts decimal strings and bare integers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" {
		a.dec = decimal.Zero
		return nil
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
