package notify

import "errors"

// ErrDelivery wraps every failure to hand a notification to its backend.
var ErrDelivery = errors.New("notification delivery failed")
