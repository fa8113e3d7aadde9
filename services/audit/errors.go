package audit

import "errors"

// ErrInvalidFilter is returned for a malformed listing request
var ErrInvalidFilter = errors.New("invalid decision filter")
