// Package domain declares the data structures shared by every core
// package: accounts, notes, transactions and block headers. It depends
// only on core/ids, so store, mmr, notes, sync and txengine can all
// import it without forming a cycle.
package domain

import (
	"time"

	"miden-client/core/ids"
)

// AccountStorageMode controls whether the node's store keeps the
// account's full state or only the header needed to track it.
type AccountStorageMode uint8

const (
	StorageModePrivate AccountStorageMode = iota
	StorageModePublic
	StorageModeNetwork
)

func (m AccountStorageMode) String() string {
	switch m {
	case StorageModePrivate:
		return "private"
	case StorageModePublic:
		return "public"
	case StorageModeNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// AccountHeader is the lightweight projection of an account kept for
// every tracked account regardless of storage mode: enough to validate
// a state sync delta and compute nonces/commitments without loading the
// full vault and storage slots.
type AccountHeader struct {
	ID          ids.AccountID
	Nonce       uint64
	VaultRoot   ids.Digest
	StorageRoot ids.Digest
	CodeRoot    ids.Digest
}

// Commitment is the account's state commitment, the hash tracked by the
// chain and folded into block headers.
func (h AccountHeader) Commitment() ids.Digest {
	return hashFields(h.ID[:], u64Bytes(h.Nonce), h.VaultRoot[:], h.StorageRoot[:], h.CodeRoot[:])
}

// AssetAmount pairs a fungible faucet account with a held quantity.
type AssetAmount struct {
	FaucetID ids.AccountID
	Amount   uint64
}

// Account is the full local view of an account this client tracks.
type Account struct {
	Header      AccountHeader
	StorageMode AccountStorageMode
	Assets      []AssetAmount
	// Seq is an internal monotonic sequence assigned by the store for
	// deterministic iteration order; it is never part of any commitment.
	Seq uint64
}

// AccountStatus tracks an account record's local lifecycle, independent
// of the on-chain commitment carried in its header.
type AccountStatus uint8

const (
	// AccountStatusNew is a freshly created or imported account the sync
	// engine has not yet confirmed against the node.
	AccountStatusNew AccountStatus = iota
	// AccountStatusTracked is an account whose header the last sync
	// round resolved successfully; safe to build transactions against.
	AccountStatusTracked
	// AccountStatusLocked is an account whose on-chain commitment
	// diverged from the local header but could not be resolved this
	// round (the common case for a private-storage account); the
	// transaction engine refuses to build against a locked account until
	// a later sync or explicit rescan resolves it.
	AccountStatusLocked
	// AccountStatusDiscarded is an account the client no longer tracks;
	// its record is retained for history but excluded from sync requests.
	AccountStatusDiscarded
)

func (s AccountStatus) String() string {
	switch s {
	case AccountStatusNew:
		return "new"
	case AccountStatusTracked:
		return "tracked"
	case AccountStatusLocked:
		return "locked"
	case AccountStatusDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// AccountRecord is what the store persists for a tracked account,
// pairing the account state with bookkeeping the client needs but the
// chain does not commit to.
type AccountRecord struct {
	Account Account
	Status  AccountStatus
	// Seed is the entropy the account's ID and initial commitment were
	// derived from; callers need it to rebuild the account's storage
	// slots from scratch (for example after an import) rather than only
	// tracking its current state.
	Seed       ids.Digest
	LastSynced ids.BlockNumber
	UpdatedAt  time.Time
}
