// Package store defines the client's persistence contract and two
// implementations: FileStore, a write-ahead-logged store matching the
// teacher's ledger persistence idiom, and MemStore, an in-memory store
// used by other packages' tests. Chain and transaction state change
// through ApplyStateSync and ApplyTransaction; accounts, tags and
// whole-store imports have their own mutating methods. ApplyStateSync
// rejects a sync height below the current one, and CreateAccount
// rejects an account id that is already present.
package store

import (
	"miden-client/core/domain"
	"miden-client/core/ids"
)

// SchemaVersion is the on-disk layout version of this build. Open and
// Import do not read or check a version, and Export does not write one.
const SchemaVersion = 1

// NoteFilter narrows a GetInputNotes query by note state. GetOutputNotes
// ignores the filter, and neither query applies AccountID.
type NoteFilter struct {
	AccountID *ids.AccountID
	States    []domain.InputNoteState
}

// TxFilter narrows a GetTransactions query.
type TxFilter struct {
	AccountID *ids.AccountID
	Statuses  []domain.TxStatus
}

// StateSyncUpdate is the result of one sync engine step, applied to the
// store atomically: new blocks folded into the partial MMR, accounts
// whose header changed, notes newly committed or nullified, and the
// new sync height the store must never regress past.
type StateSyncUpdate struct {
	NewBlocks       []domain.BlockHeader
	UpdatedAccounts []domain.AccountHeader
	NewInputNotes   []domain.InputNote
	ConsumedNotes   []ids.Nullifier
	CommittedNotes  []ids.NoteID
	// LockedAccountIDs marks tracked accounts whose on-chain commitment
	// diverged from the local header this round but that this update
	// carries no authoritative UpdatedAccounts entry for (the ordinary
	// case for a private-storage account); the store transitions them to
	// AccountStatusLocked so the transaction engine refuses to build
	// against a header it can no longer trust.
	LockedAccountIDs []ids.AccountID
	NewChainHeight   ids.BlockNumber
}

// TransactionStoreUpdate is the result of the transaction lifecycle
// engine's Apply phase, applied to the store atomically: the executed
// transaction's effect on its account and the notes it created or
// consumed locally, before the network confirms it.
type TransactionStoreUpdate struct {
	Transaction    domain.Transaction
	UpdatedHeader  domain.AccountHeader
	NewOutputNotes []domain.OutputNote
	SpentNoteIDs   []ids.NoteID
}

// PartialBlockchainView is a read-only snapshot of the store's tracked
// chain state, enough for the sync engine to decide what to request
// next and for the MMR to be rebuilt after a restart.
type PartialBlockchainView struct {
	ChainTip   ids.BlockNumber
	PeakHashes []ids.Digest
	Headers    []domain.BlockHeader
}

// Store is the interface every core package that needs persistence
// depends on. FileStore and MemStore implement it, and Guarded wraps any
// implementation behind a concurrency.Guard.
type Store interface {
	GetAccount(id ids.AccountID) (*domain.AccountRecord, error)
	GetAccountHeader(id ids.AccountID) (*domain.AccountHeader, error)
	ListAccounts() ([]*domain.AccountRecord, error)
	GetInputNotes(filter NoteFilter) ([]*domain.InputNote, error)
	GetOutputNotes(filter NoteFilter) ([]*domain.OutputNote, error)
	GetTransactions(filter TxFilter) ([]*domain.TransactionRecord, error)
	GetCurrentPartialBlockchain() (*PartialBlockchainView, error)
	GetSyncHeight() ids.BlockNumber

	ApplyStateSync(update *StateSyncUpdate) error
	ApplyTransaction(update *TransactionStoreUpdate) error

	ImportAccount(rec *domain.AccountRecord) error
	CreateAccount(rec *domain.AccountRecord) error

	AddTag(tag domain.Tag) error
	RemoveTag(tag domain.Tag) error
	ListTags() ([]domain.Tag, error)

	Export() ([]byte, error)
	Import(data []byte, password string) error

	Close() error
}
