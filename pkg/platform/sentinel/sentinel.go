package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and ledgers return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: record, identity or cache entry does not exist
//   - ErrConflict: a compare-and-swap or nonce check lost a race
//   - ErrExpired: cached data or a lease is past its TTL
//   - ErrAlreadyUsed: a nonce or lease token was consumed already
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
