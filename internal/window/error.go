package window

import "classattend/internal/apperr"

var (
	ErrWindowNotOpen   = apperr.Conflict("attendance window is not open")
	ErrInvalidDuration = apperr.Validation("duration must be a positive number of minutes")
)
