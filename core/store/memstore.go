package store

import (
	"encoding/json"
	"sort"
	"sync"

	"miden-client/core/domain"
	"miden-client/core/errs"
	"miden-client/core/ids"
)

// MemStore is an in-memory Store used by other packages' tests and by
// ephemeral client sessions that do not need durability.
type MemStore struct {
	mu sync.RWMutex

	accounts     map[ids.AccountID]*domain.AccountRecord
	inputNotes   map[ids.NoteID]*domain.InputNote
	outputNotes  map[ids.NoteID]*domain.OutputNote
	transactions map[ids.TransactionID]*domain.TransactionRecord
	tags         map[uint32]domain.Tag
	headers      []domain.BlockHeader
	syncHeight   ids.BlockNumber
	nextSeq      uint64

	// nullifierIndex maps a note's nullifier to its note id so
	// ApplyStateSync can resolve a consumed nullifier reported by the node
	// back to the tracked note without scanning inputNotes.
	nullifierIndex map[ids.Nullifier]ids.NoteID
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		accounts:       make(map[ids.AccountID]*domain.AccountRecord),
		inputNotes:     make(map[ids.NoteID]*domain.InputNote),
		outputNotes:    make(map[ids.NoteID]*domain.OutputNote),
		transactions:   make(map[ids.TransactionID]*domain.TransactionRecord),
		tags:           make(map[uint32]domain.Tag),
		nullifierIndex: make(map[ids.Nullifier]ids.NoteID),
	}
}

func (m *MemStore) seq() uint64 {
	m.nextSeq++
	return m.nextSeq
}

func (m *MemStore) GetAccount(id ids.AccountID) (*domain.AccountRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.accounts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemStore) GetAccountHeader(id ids.AccountID) (*domain.AccountHeader, error) {
	rec, err := m.GetAccount(id)
	if err != nil {
		return nil, err
	}
	h := rec.Account.Header
	return &h, nil
}

func (m *MemStore) ListAccounts() ([]*domain.AccountRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.AccountRecord, 0, len(m.accounts))
	for _, rec := range m.accounts {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account.Seq < out[j].Account.Seq })
	return out, nil
}

func (m *MemStore) GetInputNotes(filter NoteFilter) ([]*domain.InputNote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.InputNote
	for _, n := range m.inputNotes {
		if !matchesStateFilter(n.State, filter.States) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func matchesStateFilter(state domain.InputNoteState, states []domain.InputNoteState) bool {
	if len(states) == 0 {
		return true
	}
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

func (m *MemStore) GetOutputNotes(filter NoteFilter) ([]*domain.OutputNote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutputNote
	for _, n := range m.outputNotes {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *MemStore) GetTransactions(filter TxFilter) ([]*domain.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TransactionRecord
	for _, tx := range m.transactions {
		if filter.AccountID != nil && tx.Tx.AccountID != *filter.AccountID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if s == tx.Tx.Status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		cp := *tx
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *MemStore) GetCurrentPartialBlockchain() (*PartialBlockchainView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	headers := make([]domain.BlockHeader, len(m.headers))
	copy(headers, m.headers)
	return &PartialBlockchainView{ChainTip: m.syncHeight, Headers: headers}, nil
}

func (m *MemStore) GetSyncHeight() ids.BlockNumber {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.syncHeight
}

func (m *MemStore) ApplyStateSync(update *StateSyncUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if update.NewChainHeight < m.syncHeight {
		return errs.ErrInvariantViolation
	}
	m.headers = append(m.headers, update.NewBlocks...)
	for _, h := range update.UpdatedAccounts {
		if rec, ok := m.accounts[h.ID]; ok {
			rec.Account.Header = h
			if rec.Status != domain.AccountStatusDiscarded {
				rec.Status = domain.AccountStatusTracked
			}
		}
	}
	for _, id := range update.LockedAccountIDs {
		if rec, ok := m.accounts[id]; ok && rec.Status != domain.AccountStatusDiscarded {
			rec.Status = domain.AccountStatusLocked
		}
	}
	for _, n := range update.NewInputNotes {
		cp := n
		cp.Seq = m.seq()
		m.inputNotes[cp.Note.ID()] = &cp
		if cp.Nullifier != (ids.Nullifier{}) {
			m.nullifierIndex[cp.Nullifier] = cp.Note.ID()
		}
	}
	for _, noteID := range update.CommittedNotes {
		if n, ok := m.inputNotes[noteID]; ok {
			n.State = domain.InputNoteStateCommitted
		}
	}
	for _, nf := range update.ConsumedNotes {
		noteID, ok := m.nullifierIndex[nf]
		if !ok {
			continue
		}
		if n, ok := m.inputNotes[noteID]; ok {
			n.State = domain.InputNoteStateConsumed
			n.Nullifier = nf
		}
	}
	m.syncHeight = update.NewChainHeight
	return nil
}

func (m *MemStore) ApplyTransaction(update *TransactionStoreUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := update.Transaction
	if rec, ok := m.transactions[tx.ID]; ok {
		rec.Tx = tx
	} else {
		m.transactions[tx.ID] = &domain.TransactionRecord{Tx: tx, Seq: m.seq()}
	}
	if rec, ok := m.accounts[update.UpdatedHeader.ID]; ok {
		rec.Account.Header = update.UpdatedHeader
	}
	for _, n := range update.NewOutputNotes {
		cp := n
		cp.Seq = m.seq()
		m.outputNotes[cp.Note.ID()] = &cp
	}
	for _, noteID := range update.SpentNoteIDs {
		delete(m.inputNotes, noteID)
	}
	return nil
}

func (m *MemStore) ImportAccount(rec *domain.AccountRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	cp.Account.Seq = m.seq()
	m.accounts[rec.Account.Header.ID] = &cp
	return nil
}

func (m *MemStore) CreateAccount(rec *domain.AccountRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[rec.Account.Header.ID]; exists {
		return errs.ErrInvariantViolation
	}
	cp := *rec
	cp.Account.Seq = m.seq()
	m.accounts[rec.Account.Header.ID] = &cp
	return nil
}

func (m *MemStore) AddTag(tag domain.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[tag.Value] = tag
	return nil
}

func (m *MemStore) RemoveTag(tag domain.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tags, tag.Value)
	return nil
}

func (m *MemStore) ListTags() ([]domain.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

func (m *MemStore) Export() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(exportedState{
		Accounts:     m.accounts,
		InputNotes:   m.inputNotes,
		OutputNotes:  m.outputNotes,
		Transactions: m.transactions,
		Tags:         m.tags,
		Headers:      m.headers,
		SyncHeight:   m.syncHeight,
	})
}

func (m *MemStore) Import(data []byte, password string) error {
	var es exportedState
	if err := json.Unmarshal(data, &es); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = es.Accounts
	m.inputNotes = es.InputNotes
	m.outputNotes = es.OutputNotes
	m.transactions = es.Transactions
	m.tags = es.Tags
	m.headers = es.Headers
	m.syncHeight = es.SyncHeight
	m.nullifierIndex = make(map[ids.Nullifier]ids.NoteID, len(m.inputNotes))
	for id, n := range m.inputNotes {
		if n.Nullifier != (ids.Nullifier{}) {
			m.nullifierIndex[n.Nullifier] = id
		}
	}
	return nil
}

func (m *MemStore) Close() error { return nil }

type exportedState struct {
	Accounts     map[ids.AccountID]*domain.AccountRecord
	InputNotes   map[ids.NoteID]*domain.InputNote
	OutputNotes  map[ids.NoteID]*domain.OutputNote
	Transactions map[ids.TransactionID]*domain.TransactionRecord
	Tags         map[uint32]domain.Tag
	Headers      []domain.BlockHeader
	SyncHeight   ids.BlockNumber
}
