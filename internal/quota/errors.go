package quota

import "errors"

// ErrQuotaExceeded denies admission when a free-tier user has spent all credits.
var ErrQuotaExceeded = errors.New("quota exceeded")
