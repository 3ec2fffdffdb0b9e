package services

import "errors"

// Service-level sentinel errors. Not-found and duplicate conditions
// propagate from the repository package; handlers map all of these to
// HTTP status codes with errors.Is.
var (
	ErrUnauthorized = errors.New("invalid credentials")
	ErrForbidden    = errors.New("not a member of this group")
	ErrValidation   = errors.New("validation failed")
)
