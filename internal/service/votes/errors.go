package votes

import "errors"

var (
	ErrUnauthenticated = errors.New("caller is not authenticated")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrVenueNotFound   = errors.New("venue not found")
	ErrProfileRequired = errors.New("profile required")
	ErrRateLimited     = errors.New("rate limited")
)
