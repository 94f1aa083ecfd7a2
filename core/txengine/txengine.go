// Package txengine implements the transaction lifecycle engine: Build,
// Execute, Prove, Submit and Apply phases over a TransactionRequest,
// plus the local pending-transaction pool and cascade discard the
// teacher's TxPool.AddTx/queue pair is generalized from.
package txengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"miden-client/core/domain"
	"miden-client/core/errs"
	"miden-client/core/ids"
	"miden-client/core/store"
)

// Prover is the subset of prover.TransactionProver the engine calls.
type Prover interface {
	Prove(ctx context.Context, tx *domain.Transaction) ([]byte, error)
}

// Submitter is the subset of rpc.NodeRpcClient the engine calls to
// broadcast a proven transaction.
type Submitter interface {
	SubmitTransaction(ctx context.Context, tx *domain.Transaction) error
}

// defaultGracefulBlocks bounds how many blocks may pass between Build
// and Execute before a transaction is considered stale, absent an
// explicit Config.TxGracefulBlocks.
const defaultGracefulBlocks uint32 = 20

// Engine builds, proves, submits and locally applies transactions
// against the tracked accounts in Store, keeping a pool of pending
// transactions keyed by id exactly as TxPool keys by hex transaction
// hash.
type Engine struct {
	st             store.Store
	prover         Prover
	sub            Submitter
	logger         *logrus.Logger
	gracefulBlocks uint32

	mu      sync.Mutex
	pending map[ids.TransactionID]*domain.Transaction
	// dependents maps an initiating account to the transaction ids it
	// has pending locally, so a discard can cascade to everything built
	// on top of a transaction that will never be included.
	dependents map[ids.AccountID][]ids.TransactionID
	// claimedNotes maps an input note id to the pending transaction that
	// claimed it, so Build rejects a second transaction spending a note
	// already committed to an earlier one before either is applied.
	claimedNotes map[ids.NoteID]ids.TransactionID
	// producedBy maps an output note id to the pending transaction that
	// would create it, so a later Build consuming that note (a chained
	// transaction spending change before the first is confirmed) records
	// the dependency and cascade discard has something real to walk.
	producedBy map[ids.NoteID]ids.TransactionID
}

// Config wires an Engine's collaborators.
type Config struct {
	Store     store.Store
	Prover    Prover
	Submitter Submitter
	Logger    *logrus.Logger
	// TxGracefulBlocks bounds how many blocks may pass between Build and
	// Execute before Execute refuses a stale transaction with
	// errs.ErrClientOutOfSync; 0 uses defaultGracefulBlocks.
	TxGracefulBlocks uint32
}

// New builds a transaction lifecycle engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil || cfg.Prover == nil || cfg.Submitter == nil {
		return nil, fmt.Errorf("txengine: Store, Prover and Submitter are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	graceful := cfg.TxGracefulBlocks
	if graceful == 0 {
		graceful = defaultGracefulBlocks
	}
	return &Engine{
		st:             cfg.Store,
		prover:         cfg.Prover,
		sub:            cfg.Submitter,
		logger:         logger,
		gracefulBlocks: graceful,
		pending:        make(map[ids.TransactionID]*domain.Transaction),
		dependents:     make(map[ids.AccountID][]ids.TransactionID),
		claimedNotes:   make(map[ids.NoteID]ids.TransactionID),
		producedBy:     make(map[ids.NoteID]ids.TransactionID),
	}, nil
}

// Build validates a request and constructs the unproven transaction
// against the account's current tracked header. An account in
// AccountStatusLocked is refused with errs.ErrLocked.
func (e *Engine) Build(req domain.TransactionRequest) (*domain.Transaction, error) {
	if req.ExpirationDelta == 0 {
		return nil, fmt.Errorf("txengine: %w: ExpirationDelta must be non-zero", errs.ErrInvalidRequest)
	}
	rec, err := e.st.GetAccount(req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("txengine: build: %w", err)
	}
	if rec.Status == domain.AccountStatusLocked {
		return nil, fmt.Errorf("txengine: build: account %s: %w", req.AccountID.Short(), errs.ErrLocked)
	}
	header := rec.Account.Header

	seenInRequest := make(map[ids.NoteID]bool, len(req.InputNoteIDs))
	for _, noteID := range req.InputNoteIDs {
		if seenInRequest[noteID] {
			return nil, fmt.Errorf("txengine: %w: duplicate input note %s in request", errs.ErrInvalidRequest, noteID.Short())
		}
		seenInRequest[noteID] = true
	}

	notesByID, err := e.inputNotesByID()
	if err != nil {
		return nil, fmt.Errorf("txengine: build: %w", err)
	}

	balance := make(map[ids.AccountID]int64)
	var dependsOn []ids.TransactionID
	seenDep := make(map[ids.TransactionID]bool)

	e.mu.Lock()
	for _, noteID := range req.InputNoteIDs {
		if claimedBy, claimed := e.claimedNotes[noteID]; claimed {
			e.mu.Unlock()
			return nil, fmt.Errorf("txengine: %w: input note %s already claimed by pending transaction %s",
				errs.ErrInvalidRequest, noteID.Short(), claimedBy.Short())
		}
		if txID, producedLocally := e.producedBy[noteID]; producedLocally && !seenDep[txID] {
			dependsOn = append(dependsOn, txID)
			seenDep[txID] = true
		}
	}
	e.mu.Unlock()

	for _, noteID := range req.InputNoteIDs {
		n, ok := notesByID[noteID]
		if !ok {
			return nil, fmt.Errorf("txengine: %w: input note %s is not tracked", errs.ErrInvalidRequest, noteID.Short())
		}
		for _, a := range n.Note.Assets {
			balance[a.FaucetID] += int64(a.Amount)
		}
	}
	for _, n := range req.OutputNotes {
		for _, a := range n.Assets {
			balance[a.FaucetID] -= int64(a.Amount)
		}
	}
	if !req.AllowImbalance {
		for faucet, delta := range balance {
			if delta != 0 {
				return nil, fmt.Errorf("txengine: %w: asset %s imbalance of %d between input and output notes",
					errs.ErrInvalidRequest, faucet.String(), delta)
			}
		}
	}

	nullifiers := make([]ids.Nullifier, 0, len(req.InputNoteIDs))
	for _, noteID := range req.InputNoteIDs {
		nullifiers = append(nullifiers, ids.Nullifier(ids.Digest(noteID)))
	}

	builtAt := e.st.GetSyncHeight()
	tx := domain.Transaction{
		AccountID:     req.AccountID,
		InitialState:  header.Commitment(),
		InputNotes:    req.InputNoteIDs,
		OutputNotes:   req.OutputNotes,
		Nullifiers:    nullifiers,
		ExpiresAt:     builtAt + ids.BlockNumber(req.ExpirationDelta),
		Status:        domain.TxStatusBuilding,
		DependsOn:     dependsOn,
		BuiltAtHeight: builtAt,
	}
	tx.FinalState = tx.ComputeFinalState()
	tx.ID = tx.ComputeID()

	e.mu.Lock()
	e.pending[tx.ID] = &tx
	e.dependents[req.AccountID] = append(e.dependents[req.AccountID], tx.ID)
	for _, noteID := range req.InputNoteIDs {
		e.claimedNotes[noteID] = tx.ID
	}
	for _, n := range tx.OutputNotes {
		e.producedBy[n.ID()] = tx.ID
	}
	e.mu.Unlock()

	return &tx, nil
}

func (e *Engine) inputNotesByID() (map[ids.NoteID]*domain.InputNote, error) {
	all, err := e.st.GetInputNotes(store.NoteFilter{})
	if err != nil {
		return nil, err
	}
	out := make(map[ids.NoteID]*domain.InputNote, len(all))
	for _, n := range all {
		out[n.Note.ID()] = n
	}
	return out, nil
}

// Execute advances a built transaction to Executed, first checking it
// was not built against a header the store's tracked tip has since
// moved too far beyond: a transaction executed and proven against a
// stale InitialState would be rejected by the network anyway, so this
// fails fast with errs.ErrClientOutOfSync instead of wasting a prove
// cycle. In this client execution against the note scripts is
// delegated to the prover, so Execute otherwise only validates local
// pool state before handing off to Prove.
func (e *Engine) Execute(tx *domain.Transaction) error {
	if tx.Status != domain.TxStatusBuilding {
		return fmt.Errorf("txengine: execute: transaction %s not in building state", tx.ID.Short())
	}
	height := e.st.GetSyncHeight()
	if height > tx.BuiltAtHeight && uint32(height-tx.BuiltAtHeight) > e.gracefulBlocks {
		return fmt.Errorf("txengine: execute: transaction %s built at height %d, now %d exceeds graceful window %d: %w",
			tx.ID.Short(), tx.BuiltAtHeight, height, e.gracefulBlocks, errs.ErrClientOutOfSync)
	}
	tx.Status = domain.TxStatusExecuted
	return nil
}

// Prove asks the configured prover for a proof over the executed
// transaction.
func (e *Engine) Prove(ctx context.Context, tx *domain.Transaction) error {
	if tx.Status != domain.TxStatusExecuted {
		return fmt.Errorf("txengine: prove: transaction %s not executed", tx.ID.Short())
	}
	proof, err := e.prover.Prove(ctx, tx)
	if err != nil {
		return fmt.Errorf("txengine: %w: %v", errs.ErrProverError, err)
	}
	tx.Proof = proof
	tx.Status = domain.TxStatusProven
	return nil
}

// Submit broadcasts a proven transaction to the network.
func (e *Engine) Submit(ctx context.Context, tx *domain.Transaction) error {
	if tx.Status != domain.TxStatusProven {
		return fmt.Errorf("txengine: submit: transaction %s not proven", tx.ID.Short())
	}
	if err := e.sub.SubmitTransaction(ctx, tx); err != nil {
		return fmt.Errorf("txengine: submit: %w", err)
	}
	tx.Status = domain.TxStatusSubmitted
	return nil
}

// Apply persists the transaction's local effect to the store: the
// account's updated header, newly created output notes, and the input
// notes it spent.
func (e *Engine) Apply(tx *domain.Transaction) error {
	if tx.Status != domain.TxStatusSubmitted {
		return fmt.Errorf("txengine: apply: transaction %s not submitted", tx.ID.Short())
	}
	header, err := e.st.GetAccountHeader(tx.AccountID)
	if err != nil {
		return fmt.Errorf("txengine: apply: %w", err)
	}
	updated := *header
	updated.Nonce++
	updated.VaultRoot = tx.FinalState

	outputs := make([]domain.OutputNote, 0, len(tx.OutputNotes))
	for _, n := range tx.OutputNotes {
		outputs = append(outputs, domain.OutputNote{Note: n, TxID: tx.ID})
	}

	update := &store.TransactionStoreUpdate{
		Transaction:    *tx,
		UpdatedHeader:  updated,
		NewOutputNotes: outputs,
		SpentNoteIDs:   tx.InputNotes,
	}
	if err := e.st.ApplyTransaction(update); err != nil {
		return fmt.Errorf("txengine: apply: %w", err)
	}
	tx.Status = domain.TxStatusApplied

	e.mu.Lock()
	delete(e.pending, tx.ID)
	e.releaseNotesLocked(tx)
	e.mu.Unlock()
	return nil
}

// releaseNotesLocked drops tx's entries from claimedNotes and
// producedBy once it leaves the pending pool, whether applied or
// discarded, so a later Build can reuse its notes. Callers must hold
// e.mu.
func (e *Engine) releaseNotesLocked(tx *domain.Transaction) {
	for _, noteID := range tx.InputNotes {
		if e.claimedNotes[noteID] == tx.ID {
			delete(e.claimedNotes, noteID)
		}
	}
	for _, n := range tx.OutputNotes {
		id := n.ID()
		if e.producedBy[id] == tx.ID {
			delete(e.producedBy, id)
		}
	}
}

// Run chains Build through Apply for a single request, the common path
// for a caller that does not need to inspect intermediate phases.
func (e *Engine) Run(ctx context.Context, req domain.TransactionRequest) (*domain.Transaction, error) {
	tx, err := e.Build(req)
	if err != nil {
		return nil, err
	}
	if err := e.Execute(tx); err != nil {
		return nil, e.discard(tx, err)
	}
	if err := e.Prove(ctx, tx); err != nil {
		return nil, e.discard(tx, err)
	}
	if err := e.Submit(ctx, tx); err != nil {
		return nil, e.discard(tx, err)
	}
	if err := e.Apply(tx); err != nil {
		return nil, e.discard(tx, err)
	}
	return tx, nil
}

// Pending returns the locally pending transactions for an account, in
// the order they were built.
func (e *Engine) Pending(account ids.AccountID) []*domain.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.Transaction, 0, len(e.dependents[account]))
	for _, id := range e.dependents[account] {
		if tx, ok := e.pending[id]; ok {
			out = append(out, tx)
		}
	}
	return out
}

// discard marks a transaction and its local dependents, transitively,
// as discarded. Cascade depth is bounded by the number of locally
// pending transactions for the account: a transaction built on top of a
// note this one would have produced can never be included once this one
// is abandoned, so it cascades too, and so does anything built on it.
func (e *Engine) discard(tx *domain.Transaction, cause error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx.Status = domain.TxStatusDiscarded
	delete(e.pending, tx.ID)
	e.releaseNotesLocked(tx)

	failed := []ids.TransactionID{tx.ID}
	for len(failed) > 0 {
		cur := failed[0]
		failed = failed[1:]
		for _, depID := range e.dependents[tx.AccountID] {
			dep, ok := e.pending[depID]
			if !ok || dep.ID == tx.ID {
				continue
			}
			for _, dependsOn := range dep.DependsOn {
				if dependsOn == cur {
					dep.Status = domain.TxStatusDiscarded
					delete(e.pending, dep.ID)
					e.releaseNotesLocked(dep)
					e.logger.Warnf("txengine: cascaded discard of %s after %s failed", dep.ID.Short(), cur.Short())
					failed = append(failed, dep.ID)
					break
				}
			}
		}
	}

	return cause
}
