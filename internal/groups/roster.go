package groups

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

// ValidateRoster enforces the share invariant on any roster about to be
// written: percentages sum to exactly 100, every percentage is in [1,100],
// and no address appears twice. All violations are reported in one error so
// a bad roster surfaces completely on the first rejection.
func ValidateRoster(shares types.MemberShares) error {
	if len(shares) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "roster must not be empty")
	}

	var violations error
	seen := make(map[string]struct{}, len(shares))
	sum := 0
	for _, share := range shares {
		addr := strings.TrimSpace(share.Addr)
		if addr == "" {
			violations = multierr.Append(violations,
				errors.New("roster entry missing address"))
			continue
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			violations = multierr.Append(violations,
				fmt.Errorf("duplicate roster address %s", addr))
		}
		seen[key] = struct{}{}
		if share.Percentage < 1 || share.Percentage > 100 {
			violations = multierr.Append(violations,
				fmt.Errorf("percentage %d for %s outside [1,100]", share.Percentage, addr))
		}
		sum += share.Percentage
	}

	if sum != 100 {
		violations = multierr.Append(violations,
			fmt.Errorf("roster percentages sum to %d, expected 100", sum))
	}
	if violations != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, violations, "invalid roster")
	}
	return nil
}
