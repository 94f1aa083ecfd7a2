package store

import (
	"fmt"

	"miden-client/core/concurrency"
	"miden-client/core/domain"
)

// Guarded wraps a Store so every mutation path - state sync
// application, transaction application, account creation/import, and
// tag mutation - runs under the client's write-then-core lock pair
// instead of leaving callers to remember to acquire Guard themselves.
// Reads pass straight through via the embedded Store.
type Guarded struct {
	Store
	guard *concurrency.Guard
}

// NewGuarded returns a Store that routes every mutating call through
// guard.WithWriteAndCore before delegating to inner.
func NewGuarded(inner Store, guard *concurrency.Guard) *Guarded {
	return &Guarded{Store: inner, guard: guard}
}

func (g *Guarded) ApplyStateSync(update *StateSyncUpdate) error {
	return g.guard.WithWriteAndCore(func() error { return g.Store.ApplyStateSync(update) })
}

func (g *Guarded) ApplyTransaction(update *TransactionStoreUpdate) error {
	return g.guard.WithWriteAndCore(func() error { return g.Store.ApplyTransaction(update) })
}

func (g *Guarded) CreateAccount(rec *domain.AccountRecord) error {
	return g.guard.WithWriteAndCore(func() error { return g.Store.CreateAccount(rec) })
}

func (g *Guarded) ImportAccount(rec *domain.AccountRecord) error {
	return g.guard.WithWriteAndCore(func() error { return g.Store.ImportAccount(rec) })
}

func (g *Guarded) AddTag(tag domain.Tag) error {
	return g.guard.WithWriteAndCore(func() error { return g.Store.AddTag(tag) })
}

func (g *Guarded) RemoveTag(tag domain.Tag) error {
	return g.guard.WithWriteAndCore(func() error { return g.Store.RemoveTag(tag) })
}

func (g *Guarded) Import(data []byte, password string) error {
	return g.guard.WithWriteAndCore(func() error { return g.Store.Import(data, password) })
}

// Snapshot forwards to the inner store's Snapshot if it has one (only
// FileStore does), so embedding Guarded does not hide that capability
// from a caller type-asserting for it, e.g. the `store gc` command.
func (g *Guarded) Snapshot() error {
	sn, ok := g.Store.(interface{ Snapshot() error })
	if !ok {
		return fmt.Errorf("store: inner store does not support snapshotting")
	}
	return g.guard.WithWriteAndCore(func() error { return sn.Snapshot() })
}
