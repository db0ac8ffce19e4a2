package engagement

import "errors"

var (
	ErrUnauthenticated = errors.New("caller is not authenticated")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrProfileRequired = errors.New("profile required")
)
