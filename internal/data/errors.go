package data

import "errors"

// Shared sentinel errors for data-layer stores.
var (
	ErrScopeRequired      = errors.New("scope cannot be empty")
	ErrLeaseOwnerRequired = errors.New("scope and owner are required")
)
