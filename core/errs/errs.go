// Package errs defines the closed set of error values the client
// surfaces across package boundaries. Callers are expected to compare
// with errors.Is rather than switch on string content.
package errs

import "errors"

var (
	// ErrClientOutOfSync is returned by the transaction engine's Execute
	// when the store's sync height has moved more than the configured
	// graceful window past the height a transaction was built at. It is
	// not returned for a store that has never synced, and the gap between
	// the sync height and the node's chain tip is not checked.
	ErrClientOutOfSync = errors.New("client out of sync")

	// ErrNotFound is returned by any lookup (account, note, transaction,
	// block) that finds nothing matching the given identifier.
	ErrNotFound = errors.New("not found")

	// ErrLocked is returned when the write lock cannot be acquired
	// because another process holds its sentinel file, and when a
	// transaction is built against an account in AccountStatusLocked.
	ErrLocked = errors.New("resource locked")

	// ErrSchemaMismatch names a store whose on-disk schema version does
	// not match the version this build expects. No package in this
	// module returns it: stores carry no version tag.
	ErrSchemaMismatch = errors.New("store schema mismatch")

	// ErrInvariantViolation is returned when applying a state sync
	// update or transaction update would break a store invariant (for
	// example a non-monotonic sync height, or creating an account that
	// already exists).
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrProverError is returned when a TransactionProver fails to
	// produce a valid proof for an executed transaction.
	ErrProverError = errors.New("prover error")

	// ErrCancelled is returned when a caller's context is cancelled
	// mid-operation.
	ErrCancelled = errors.New("operation cancelled")

	// ErrTimeout is returned when a remote prover call exceeds its
	// configured deadline. RPC clients report timeouts as an RPCError.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidRequest is returned when a TransactionRequest fails
	// local validation before it is ever built.
	ErrInvalidRequest = errors.New("invalid transaction request")

	// ErrExpired names a transaction whose expiration height has already
	// passed the tracked chain tip. No package in this module returns it;
	// the transaction engine records ExpiresAt but does not check it.
	ErrExpired = errors.New("transaction expired")
)

// RPCCategory classifies the cause of an RPCError for callers that need
// to decide whether a retry is worthwhile.
type RPCCategory uint8

const (
	RPCCategoryUnknown RPCCategory = iota
	RPCCategoryUnavailable
	RPCCategoryInvalidArgument
	RPCCategoryNotFound

	// RPCCategoryRateLimited means the node rejected the call under load
	// shedding; retrying after backoff is expected to succeed.
	RPCCategoryRateLimited
	// RPCCategoryVersionMismatch means the node's protocol version is
	// incompatible with this client's; retrying will not help.
	RPCCategoryVersionMismatch
	// RPCCategoryLimitExceeded means the request asked for more than the
	// node's configured rpc_limits (e.g. too large a sync page or too
	// many account ids); callers should shrink the request, not retry it
	// unchanged.
	RPCCategoryLimitExceeded
	// RPCCategoryUnauthenticated means the node rejected the call's
	// credentials; retrying unchanged will not help.
	RPCCategoryUnauthenticated
	// RPCCategoryMalformedResponse means the node's response could not be
	// decoded; retrying may help if it was a transient transport glitch,
	// but is not guaranteed to.
	RPCCategoryMalformedResponse
	// RPCCategoryInternal means the node reported an unexpected internal
	// failure.
	RPCCategoryInternal
)

// RPCError wraps an error returned by a NodeRpcClient call with the
// category the client used to decide on retry behavior.
type RPCError struct {
	Category RPCCategory
	Method   string
	Err      error
}

func (e *RPCError) Error() string {
	return e.Method + ": " + e.Err.Error()
}

func (e *RPCError) Unwrap() error { return e.Err }

// KeystoreErrorKind classifies a keystore failure.
type KeystoreErrorKind uint8

const (
	KeystoreErrorUnknown KeystoreErrorKind = iota
	KeystoreErrorWrongPassword
	KeystoreErrorKeyNotFound
	KeystoreErrorCorrupt
)

// KeystoreError wraps a keystore failure with its kind, so callers can
// distinguish "wrong password" from "no such key" without string
// matching.
type KeystoreError struct {
	Kind KeystoreErrorKind
	Err  error
}

func (e *KeystoreError) Error() string { return e.Err.Error() }

func (e *KeystoreError) Unwrap() error { return e.Err }
