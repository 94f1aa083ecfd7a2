// Package sync implements the state synchronization engine: a paged
// RPC sync loop that advances the store's tracked chain height and
// partial Merkle mountain range one response at a time, coalescing
// concurrent callers through core/concurrency's SyncLock exactly as
// the teacher's SyncManager coalesces concurrent sync rounds behind its
// "active" flag.
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"miden-client/core/concurrency"
	"miden-client/core/domain"
	"miden-client/core/errs"
	"miden-client/core/ids"
	"miden-client/core/mmr"
	"miden-client/core/notes"
	"miden-client/core/store"
)

// defaultPageLimit is the page size requested before the node has told
// us its own rpc_limits via a response's PageLimit.
const defaultPageLimit uint32 = 256

// SyncResponse is what a NodeRpcClient returns for one page of sync
// data; the rpc package defines the client interface, this package only
// depends on the shape of its result to avoid a import cycle.
type SyncResponse struct {
	ChainTip       ids.BlockNumber
	BlockHeaders   []domain.BlockHeader
	NewNullifiers  []ids.Nullifier
	NewInputNotes  []domain.InputNote
	CommittedNotes []ids.NoteID

	// AccountUpdates carries the authoritative header for every tracked
	// account this page resolved a new commitment for.
	AccountUpdates []domain.AccountHeader
	// DivergedAccounts lists tracked accounts the page's nullifier or
	// block data shows touched (a new commitment exists) but that this
	// page could not resolve to an AccountUpdates entry - the ordinary
	// case for a private-storage account, whose state is never carried
	// on the wire.
	DivergedAccounts []ids.AccountID

	// HasMore is true when additional pages remain between this
	// response's coverage and ChainTip; NextFromBlock is where the next
	// SyncState call should resume.
	HasMore       bool
	NextFromBlock ids.BlockNumber
	// PageLimit is the node's own rpc_limits page size, echoed back so a
	// caller that requested limit 0 (or an optimistic guess) can adapt
	// subsequent calls without a separate round trip.
	PageLimit uint32
}

// Fetcher is the subset of NodeRpcClient the sync engine calls.
type Fetcher interface {
	// SyncState fetches one page starting at fromBlock for the given
	// tracked accounts (nil/empty means "all public account updates,
	// no per-account filtering"). limit is this engine's requested page
	// size; 0 lets the node pick its own default.
	SyncState(ctx context.Context, fromBlock ids.BlockNumber, accountIDs []ids.AccountID, limit uint32) (*SyncResponse, error)
}

// NullifierPager is an optional Fetcher capability: a side channel to
// page through nullifiers independently of the block range walk, used
// to catch a long-disconnected client up on spends without re-fetching
// every intervening block header. Not every transport need implement
// it; the engine calls it only when the configured Fetcher supports it.
type NullifierPager interface {
	SyncNullifiers(ctx context.Context, from, to ids.BlockNumber) ([]ids.Nullifier, error)
}

// StorageMapPager is an optional Fetcher capability mirroring
// NullifierPager for an account's storage map slots.
type StorageMapPager interface {
	SyncStorageMaps(ctx context.Context, account ids.AccountID, from, to ids.BlockNumber) error
}

// VaultPager is an optional Fetcher capability mirroring NullifierPager
// for an account's asset vault.
type VaultPager interface {
	SyncAccountVault(ctx context.Context, account ids.AccountID, from, to ids.BlockNumber) error
}

// Phase describes where the engine is in a single sync step, exposed
// via Status for CLI/metrics consumption.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseApplying
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseApplying:
		return "applying"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// SyncSummary reports what a single Step call accomplished.
type SyncSummary struct {
	FromHeight     ids.BlockNumber
	ToHeight       ids.BlockNumber
	BlocksReceived int
	NotesReceived  int
	NotesConsumed  int
	PagesFetched   int
	AccountsLocked int
}

// Engine drives state synchronization against a Fetcher, folding
// received block commitments into a partial MMR and applying the
// resulting StateSyncUpdate to the store.
type Engine struct {
	fetcher  Fetcher
	st       store.Store
	forest   *mmr.Forest
	screener *notes.Screener
	syncLock *concurrency.SyncLock
	logger   *logrus.Logger

	mu         sync.RWMutex
	phase      Phase
	pageLimit  uint32
	discovered bool

	quit     chan struct{}
	quitOnce sync.Once
	running  bool
}

// Config wires an Engine's collaborators.
type Config struct {
	Fetcher  Fetcher
	Store    store.Store
	Forest   *mmr.Forest
	Screener *notes.Screener
	Logger   *logrus.Logger
}

// New builds a sync engine ready to Step or Run.
func New(cfg Config) (*Engine, error) {
	if cfg.Fetcher == nil || cfg.Store == nil || cfg.Forest == nil {
		return nil, fmt.Errorf("sync: Fetcher, Store and Forest are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		fetcher:  cfg.Fetcher,
		st:       cfg.Store,
		forest:   cfg.Forest,
		screener: cfg.Screener,
		syncLock: &concurrency.SyncLock{},
		logger:   logger,
		quit:     make(chan struct{}),
	}, nil
}

// Status reports the engine's current phase and the store's tracked
// height, for CLI and metrics consumers.
func (e *Engine) Status() (Phase, ids.BlockNumber) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase, e.st.GetSyncHeight()
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

func (e *Engine) requestLimit() uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.pageLimit > 0 {
		return e.pageLimit
	}
	return defaultPageLimit
}

// adoptPageLimit records the node's declared rpc_limits page size the
// first time a response carries one, so later pages in this step (and
// later steps) request at the size the node actually serves instead of
// guessing every round.
func (e *Engine) adoptPageLimit(declared uint32) {
	if declared == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.discovered {
		e.pageLimit = declared
		e.discovered = true
	}
}

// Step performs a single sync round: page through SyncState from the
// current tracked height to the node's reported chain tip, screen and
// fold every page's notes and accounts, then apply one combined update
// to the store. Concurrent callers coalesce onto a single in-flight
// round via the engine's SyncLock.
func (e *Engine) Step(ctx context.Context) (*SyncSummary, error) {
	var summary *SyncSummary
	err := e.syncLock.Do(ctx, func(ctx context.Context) error {
		s, err := e.stepLocked(ctx)
		summary = s
		return err
	})
	return summary, err
}

// accountIDs returns every account this client tracks, used to narrow
// SyncState requests to the accounts whose updates matter to us.
func (e *Engine) accountIDs() ([]ids.AccountID, map[ids.AccountID]*domain.AccountRecord, error) {
	recs, err := e.st.ListAccounts()
	if err != nil {
		return nil, nil, fmt.Errorf("sync: list accounts: %w", err)
	}
	out := make([]ids.AccountID, 0, len(recs))
	byID := make(map[ids.AccountID]*domain.AccountRecord, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Account.Header.ID)
		byID[rec.Account.Header.ID] = rec
	}
	return out, byID, nil
}

func (e *Engine) stepLocked(ctx context.Context) (*SyncSummary, error) {
	from := e.st.GetSyncHeight()
	tracked, accountsByID, err := e.accountIDs()
	if err != nil {
		return nil, err
	}

	e.setPhase(PhaseFetching)

	var (
		blockHeaders     []domain.BlockHeader
		newInputNotes    []domain.InputNote
		newNullifiers    []ids.Nullifier
		committedNotes   []ids.NoteID
		accountUpdates   = make(map[ids.AccountID]domain.AccountHeader)
		divergedAccounts = make(map[ids.AccountID]struct{})
		chainTip         ids.BlockNumber
		pages            int
	)

	cursor := from
	for {
		select {
		case <-ctx.Done():
			e.setPhase(PhaseError)
			return nil, errs.ErrCancelled
		default:
		}

		resp, err := e.fetcher.SyncState(ctx, cursor, tracked, e.requestLimit())
		if err != nil {
			e.setPhase(PhaseError)
			return nil, fmt.Errorf("sync: fetch: %w", err)
		}
		pages++
		e.adoptPageLimit(resp.PageLimit)

		if resp.ChainTip < from {
			e.setPhase(PhaseError)
			return nil, fmt.Errorf("sync: %w: node reported tip %d behind tracked height %d",
				errs.ErrInvariantViolation, resp.ChainTip, from)
		}

		blockHeaders = append(blockHeaders, resp.BlockHeaders...)
		newInputNotes = append(newInputNotes, resp.NewInputNotes...)
		newNullifiers = append(newNullifiers, resp.NewNullifiers...)
		committedNotes = append(committedNotes, resp.CommittedNotes...)
		for _, h := range resp.AccountUpdates {
			accountUpdates[h.ID] = h
		}
		for _, id := range resp.DivergedAccounts {
			divergedAccounts[id] = struct{}{}
		}
		chainTip = resp.ChainTip

		if !resp.HasMore {
			break
		}
		cursor = resp.NextFromBlock
	}

	// Supplementary paging: fill in nullifier/storage/vault catch-up for
	// transports that expose it, independent of the primary block walk.
	if np, ok := e.fetcher.(NullifierPager); ok {
		extra, err := np.SyncNullifiers(ctx, from, chainTip)
		if err != nil {
			e.logger.Warnf("sync: nullifier catch-up failed: %v", err)
		} else {
			newNullifiers = append(newNullifiers, extra...)
		}
	}
	for _, acc := range tracked {
		if sp, ok := e.fetcher.(StorageMapPager); ok {
			if err := sp.SyncStorageMaps(ctx, acc, from, chainTip); err != nil {
				e.logger.Warnf("sync: storage map catch-up for %s failed: %v", acc.Short(), err)
			}
		}
		if vp, ok := e.fetcher.(VaultPager); ok {
			if err := vp.SyncAccountVault(ctx, acc, from, chainTip); err != nil {
				e.logger.Warnf("sync: vault catch-up for %s failed: %v", acc.Short(), err)
			}
		}
	}

	e.setPhase(PhaseApplying)
	for _, h := range blockHeaders {
		e.forest.Add(h.Hash())
	}

	if e.screener != nil {
		tags, err := e.st.ListTags()
		if err != nil {
			e.logger.Warnf("sync: list tags for relevance filtering: %v", err)
			tags = nil
		}
		relevant := newInputNotes[:0]
		for _, n := range newInputNotes {
			_, targetTracked := accountsByID[n.Note.TargetAccount]
			if !targetTracked && !e.screener.IsRelevant(&n.Note, tags) {
				e.logger.Debugf("sync: dropping note %s, no matching tag and not addressed to a tracked account",
					n.Note.ID().Short())
				continue
			}
			relevant = append(relevant, n)
		}
		newInputNotes = relevant

		for i := range newInputNotes {
			status := e.screener.Classify(&newInputNotes[i], chainTip)
			switch status.(type) {
			case notes.ConsumableNow, notes.ConsumableAfter, notes.ReclaimableAfter:
			default:
				e.logger.Debugf("sync: note %s not consumable by a tracked account: %v",
					newInputNotes[i].Note.ID().Short(), status)
			}
		}
	}

	// Public/private account divergence resolution: a diverged account
	// we got an authoritative header for moves/stays Tracked; one we
	// could not resolve (typically a private account whose vault the
	// node never sees) is Locked until a future sync or explicit rescan
	// resolves it, so the transaction engine refuses to build against a
	// stale header instead of silently overspending.
	updatedHeaders := make([]domain.AccountHeader, 0, len(accountUpdates))
	for _, h := range accountUpdates {
		updatedHeaders = append(updatedHeaders, h)
	}
	var lockedAccounts []ids.AccountID
	for id := range divergedAccounts {
		if _, resolved := accountUpdates[id]; resolved {
			continue
		}
		if rec, ok := accountsByID[id]; ok && rec.Status != domain.AccountStatusLocked {
			lockedAccounts = append(lockedAccounts, id)
		}
	}

	referenced := e.referencedBlocks()
	prunable := e.forest.Prunable(referenced)
	for _, bn := range prunable {
		e.forest.Untrack(bn)
	}

	update := &store.StateSyncUpdate{
		NewBlocks:        blockHeaders,
		UpdatedAccounts:  updatedHeaders,
		NewInputNotes:    newInputNotes,
		ConsumedNotes:    newNullifiers,
		CommittedNotes:   committedNotes,
		LockedAccountIDs: lockedAccounts,
		NewChainHeight:   chainTip,
	}
	if err := e.st.ApplyStateSync(update); err != nil {
		e.setPhase(PhaseError)
		return nil, fmt.Errorf("sync: apply: %w", err)
	}

	e.setPhase(PhaseIdle)
	return &SyncSummary{
		FromHeight:     from,
		ToHeight:       chainTip,
		BlocksReceived: len(blockHeaders),
		NotesReceived:  len(newInputNotes),
		NotesConsumed:  len(newNullifiers),
		PagesFetched:   pages,
		AccountsLocked: len(lockedAccounts),
	}, nil
}

// referencedBlocks returns the set of block heights a currently tracked,
// non-consumed input note is anchored at; the MMR may not discard any
// leaf in a peak range covering one of these, since this forest design
// recomputes authentication paths from the full range of stored leaves.
func (e *Engine) referencedBlocks() map[ids.BlockNumber]bool {
	notesList, err := e.st.GetInputNotes(store.NoteFilter{})
	if err != nil {
		e.logger.Warnf("sync: list input notes for pruning: %v", err)
		return nil
	}
	referenced := make(map[ids.BlockNumber]bool)
	for _, n := range notesList {
		switch n.State {
		case domain.InputNoteStateConsumed, domain.InputNoteStateConsumedAuthenticatedLocal:
			continue
		}
		if n.BlockNum > 0 || n.State == domain.InputNoteStateCommitted {
			referenced[n.BlockNum] = true
		}
	}
	return referenced
}

// Run steps repeatedly on interval until ctx is cancelled or Stop is
// called, logging but not returning step errors so a single bad round
// does not kill the background loop, matching SyncManager.loop.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quit:
			return
		case <-ticker.C:
			if _, err := e.Step(ctx); err != nil {
				e.logger.Warnf("sync: step error: %v", err)
			}
		}
	}
}

// Stop terminates a background Run loop.
func (e *Engine) Stop() {
	e.quitOnce.Do(func() { close(e.quit) })
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}
