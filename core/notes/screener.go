// Package notes implements the note tracker's consumability screening:
// given the client's tracked accounts and chain height, classify each
// known input note as consumable now, consumable later, reclaimable by
// its original sender, or not resolvable to any account this client
// controls.
package notes

import (
	"sort"

	"github.com/sirupsen/logrus"

	"miden-client/core/domain"
	"miden-client/core/ids"
)

// NoteConsumptionStatus is a closed sum type describing whether and why
// a note can currently be consumed by this client. The unexported
// marker method prevents other packages from defining new variants.
type NoteConsumptionStatus interface {
	isConsumptionStatus()
}

// ConsumableNow means a tracked account is the note's resolved target
// and any timelock on it has already elapsed.
type ConsumableNow struct {
	By       ids.AccountID
	BlockNum ids.BlockNumber
}

func (ConsumableNow) isConsumptionStatus() {}

// ConsumableAfter means a tracked account is the note's resolved target,
// but it carries a timelock that has not elapsed yet.
type ConsumableAfter struct {
	By     ids.AccountID
	Height ids.BlockNumber
}

func (ConsumableAfter) isConsumptionStatus() {}

// ReclaimableAfter means a tracked account is the note's original
// sender and the note's P2IDE reclaim window has opened, so the sender
// may take it back if the intended recipient never consumed it.
type ReclaimableAfter struct {
	By     ids.AccountID
	Height ids.BlockNumber
}

func (ReclaimableAfter) isConsumptionStatus() {}

// NotConsumableByKnownAccount covers every case where no account this
// client tracks can currently act on the note: it is already consumed,
// not yet committed, above the tracked chain tip, uses an unrecognized
// script, or simply does not resolve to (or originate from) any
// tracked account.
type NotConsumableByKnownAccount struct {
	Reason string
}

func (NotConsumableByKnownAccount) isConsumptionStatus() {}

// Screener classifies input notes against the set of accounts and
// scripts this client knows about.
type Screener struct {
	knownAccounts map[ids.AccountID]struct{}
	wellKnown     map[ids.ScriptCommitment]struct{}
	logger        *logrus.Logger
}

// New creates a screener with no known accounts or scripts registered.
func New(logger *logrus.Logger) *Screener {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Screener{
		knownAccounts: make(map[ids.AccountID]struct{}),
		wellKnown:     make(map[ids.ScriptCommitment]struct{}),
		logger:        logger,
	}
}

// TrackAccount registers an account this client may consume notes on
// behalf of.
func (s *Screener) TrackAccount(id ids.AccountID) { s.knownAccounts[id] = struct{}{} }

// TrackScript registers a script commitment (e.g. the standard P2ID
// script) the screener should recognize as consumable by a known
// account without needing a full interpreter.
func (s *Screener) TrackScript(c ids.ScriptCommitment) { s.wellKnown[c] = struct{}{} }

// Classify determines the consumption status of a single input note.
// It verifies the note's resolved target actually matches a tracked
// account rather than assuming any tracked account will do.
func (s *Screener) Classify(n *domain.InputNote, chainHeight ids.BlockNumber) NoteConsumptionStatus {
	if n.State == domain.InputNoteStateConsumed || n.State == domain.InputNoteStateConsumedAuthenticatedLocal {
		return NotConsumableByKnownAccount{Reason: "nullifier already recorded"}
	}
	if n.State == domain.InputNoteStateExpected {
		return NotConsumableByKnownAccount{Reason: "note not yet committed on-chain"}
	}
	if n.BlockNum > chainHeight {
		return NotConsumableByKnownAccount{Reason: "note committed above tracked chain tip"}
	}
	if _, ok := s.wellKnown[n.Note.Recipient.ScriptCommitment]; !ok {
		return NotConsumableByKnownAccount{Reason: "recipient script not recognized"}
	}

	meta := n.Note.Metadata
	target := n.Note.TargetAccount
	if _, tracked := s.knownAccounts[target]; tracked {
		if meta.Timelock != 0 && chainHeight < meta.Timelock {
			return ConsumableAfter{By: target, Height: meta.Timelock}
		}
		return ConsumableNow{By: target, BlockNum: chainHeight}
	}

	if _, tracked := s.knownAccounts[meta.Sender]; tracked && meta.ReclaimBlock != 0 {
		if chainHeight < meta.ReclaimBlock {
			return NotConsumableByKnownAccount{Reason: "reclaim window not open yet"}
		}
		return ReclaimableAfter{By: meta.Sender, Height: meta.ReclaimBlock}
	}

	return NotConsumableByKnownAccount{Reason: "note does not resolve to a tracked account"}
}

// IsRelevant reports whether a note's tag matches one the caller has
// subscribed to, used to decide whether an untracked note discovered
// during sync is worth importing at all.
func (s *Screener) IsRelevant(n *domain.Note, tags []domain.Tag) bool {
	for _, t := range tags {
		if t.Value == n.Metadata.Tag {
			return true
		}
	}
	return false
}

// ConsumableEntry pairs a note with its classification, for sorting.
type ConsumableEntry struct {
	Note   *domain.InputNote
	Status NoteConsumptionStatus
}

// SortConsumable orders classified notes by (BlockNum, NoteID) ascending
// regardless of their consumption status variant, giving callers a
// single deterministic iteration order across a sync round's results.
func SortConsumable(entries []ConsumableEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Note, entries[j].Note
		if a.BlockNum != b.BlockNum {
			return a.BlockNum < b.BlockNum
		}
		aID, bID := a.Note.ID(), b.Note.ID()
		return aID.String() < bID.String()
	})
}
