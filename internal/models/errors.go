package models

import "errors"

// Domain error taxonomy. Business-rule failures are detected before
// any write; a returned error means no state changed.
var (
	// ErrInvalidInput means a malformed or missing request field
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownCatalogEntry means a referenced catalog id does not exist
	ErrUnknownCatalogEntry = errors.New("unknown catalog entry")

	// ErrInvalidState means a precondition was violated (insufficient
	// balance, screens locked, session already running, and so on)
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound means the member or family does not exist
	ErrNotFound = errors.New("not found")

	// ErrContention means the transaction retry budget was exhausted
	// on a hot wallet/session row
	ErrContention = errors.New("too much contention, try again")

	// ErrIntegrityFault means ledger chain verification failed
	ErrIntegrityFault = errors.New("ledger integrity fault")

	// ErrForbidden means the acting principal may not perform the
	// operation on the target
	ErrForbidden = errors.New("forbidden")
)
