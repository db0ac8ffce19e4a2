package occupancy

import "errors"

var (
	ErrUnauthenticated = errors.New("caller is not authenticated")
	ErrNotAuthorized   = errors.New("caller may not mutate this venue")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAtCapacity      = errors.New("venue is at capacity")
	ErrVenueNotFound   = errors.New("venue not found")
	ErrRateLimited     = errors.New("rate limited")
)
