package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig   = fmt.Errorf("configuration not found")
	ErrInvalidConfig   = fmt.Errorf("invalid configuration")
	ErrMissingClientID = fmt.Errorf("missing client id")

	// Authorization flow errors
	ErrCallback         = fmt.Errorf("callback failed")
	ErrAuthorization    = fmt.Errorf("authorization failed")
	ErrTokenExchange    = fmt.Errorf("token exchange failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API errors
	ErrFetch    = fmt.Errorf("fetch failed")
	ErrNotFound = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
