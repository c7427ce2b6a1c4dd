package cascade

import "errors"

var (
	errNilState              = errors.New("cascade: state not configured")
	errAlreadyInFlight       = errors.New("cascade: a liquidation propagation is already active for this basket")
	errNoPropagation         = errors.New("cascade: no propagation in flight")
	errPositionNotFound      = errors.New("cascade: position not found")
)
