package auction

import "errors"

var (
	errNilState          = errors.New("auction: state not configured")
	errNoDebtAuction      = errors.New("auction: no debt auction active")
	errNoFeeAuction       = errors.New("auction: no fee auction active for denom")
	errInvalidAmount      = errors.New("auction: amount must be positive")
	errNothingToRecapitalize = errors.New("auction: remaining_recapitalization must be positive to start")
)
