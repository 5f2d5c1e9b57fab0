package models

import "errors"

// ErrAuthenticationRequired is returned when an operation needs a signed-in user.
var ErrAuthenticationRequired = errors.New("authentication required")
