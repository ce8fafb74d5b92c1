package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MemberShare is one address/percentage pair in a group roster or a proposed
// roster. Percentage is an integer share (25 means 25%).
type MemberShare struct {
	Addr       string `json:"addr" validate:"required"`
	Percentage int    `json:"percentage" validate:"required,min=1,max=100"`
}

// MemberShares is a roster stored as a jsonb column.
type MemberShares []MemberShare

// Value implements driver.Valuer.
func (m MemberShares) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *MemberShares) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported member shares type %T", value)
	}
}

// GormDataType maps the slice onto jsonb.
func (MemberShares) GormDataType() string {
	return "jsonb"
}

// PercentageSum totals the shares. A valid roster sums to exactly 100.
func (m MemberShares) PercentageSum() int {
	sum := 0
	for _, s := range m {
		sum += s.Percentage
	}
	return sum
}

// Addresses returns the member addresses in roster order.
func (m MemberShares) Addresses() []string {
	out := make([]string, 0, len(m))
	for _, s := range m {
		out = append(out, s.Addr)
	}
	return out
}
