package store

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"

	"miden-client/core/domain"
	"miden-client/core/errs"
	"miden-client/core/ids"
)

// storeRecordKind tags a WAL envelope so replay knows which mutation to
// reapply without needing two separate log files.
type storeRecordKind uint8

const (
	recordStateSync storeRecordKind = iota + 1
	recordTransaction
)

// storeRecord is the WAL envelope: an RLP length-prefixed, JSON-bodied
// entry, matching the teacher's Ledger WAL framing but swapping the
// plain newline-delimited JSON for an RLP length prefix so entries can
// embed newlines safely.
type storeRecord struct {
	Kind storeRecordKind
	Body []byte
}

// FileStoreConfig configures a durable, single-process store. Multiple
// processes sharing a path must coordinate through core/concurrency's
// WriteLock; FileStore itself does not take a cross-process lock.
type FileStoreConfig struct {
	WALPath          string
	SnapshotPath     string
	ArchivePath      string
	SnapshotInterval int // apply calls between snapshots; 0 disables
}

// FileStore is a write-ahead-logged Store: every ApplyStateSync and
// ApplyTransaction call is appended to the WAL before being reflected
// in the in-memory view, and the in-memory view is periodically
// flushed to a JSON snapshot with superseded WAL data gzip-archived,
// mirroring the teacher's Ledger.snapshot/Ledger.prune pair. Account
// creation/import and tag changes are not WAL records; when SnapshotPath
// is set, each of them writes a snapshot right away.
type FileStore struct {
	mem *MemStore

	mu               sync.Mutex
	walFile          *os.File
	snapshotPath     string
	archivePath      string
	snapshotInterval int
	applyCount       int
	logger           *logrus.Logger
}

// Open creates or reopens a FileStore at the configured paths, replaying
// its WAL (after loading a snapshot, if one exists) to rebuild the
// in-memory view.
func Open(cfg FileStoreConfig, logger *logrus.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	fs := &FileStore{
		mem:              NewMemStore(),
		snapshotPath:     cfg.SnapshotPath,
		archivePath:      cfg.ArchivePath,
		snapshotInterval: cfg.SnapshotInterval,
		logger:           logger,
	}

	if cfg.SnapshotPath != "" {
		if snap, err := os.ReadFile(cfg.SnapshotPath); err == nil {
			if err := fs.mem.Import(snap, ""); err != nil {
				return nil, fmt.Errorf("store: load snapshot: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("store: read snapshot: %w", err)
		}
	}

	wal, err := os.OpenFile(cfg.WALPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("store: open WAL: %w", err)
	}
	fs.walFile = wal

	if err := fs.replay(); err != nil {
		_ = wal.Close()
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) replay() error {
	if _, err := fs.walFile.Seek(0, 0); err != nil {
		return fmt.Errorf("store: seek WAL: %w", err)
	}
	r := bufio.NewReader(fs.walFile)
	stream := rlp.NewStream(r, 0)
	for {
		var rec storeRecord
		if err := stream.Decode(&rec); err != nil {
			break
		}
		if err := fs.applyRecord(rec); err != nil {
			return fmt.Errorf("store: replay WAL: %w", err)
		}
	}
	if _, err := fs.walFile.Seek(0, 2); err != nil {
		return fmt.Errorf("store: seek WAL end: %w", err)
	}
	return nil
}

func (fs *FileStore) applyRecord(rec storeRecord) error {
	switch rec.Kind {
	case recordStateSync:
		var u StateSyncUpdate
		if err := json.Unmarshal(rec.Body, &u); err != nil {
			return err
		}
		return fs.mem.ApplyStateSync(&u)
	case recordTransaction:
		var u TransactionStoreUpdate
		if err := json.Unmarshal(rec.Body, &u); err != nil {
			return err
		}
		return fs.mem.ApplyTransaction(&u)
	default:
		return fmt.Errorf("store: unknown WAL record kind %d", rec.Kind)
	}
}

func (fs *FileStore) appendWAL(kind storeRecordKind, body []byte) error {
	enc, err := rlp.EncodeToBytes(storeRecord{Kind: kind, Body: body})
	if err != nil {
		return fmt.Errorf("store: encode WAL record: %w", err)
	}
	if _, err := fs.walFile.Write(enc); err != nil {
		return fmt.Errorf("store: write WAL: %w", err)
	}
	return fs.walFile.Sync()
}

func (fs *FileStore) maybeSnapshot() {
	if fs.snapshotInterval <= 0 {
		return
	}
	fs.applyCount++
	if fs.applyCount%fs.snapshotInterval != 0 {
		return
	}
	if err := fs.snapshot(); err != nil {
		fs.logger.Errorf("store: snapshot failed: %v", err)
	}
}

// snapshot writes the current in-memory view to disk and archives the
// WAL data it supersedes, matching Ledger.snapshot/Ledger.prune.
func (fs *FileStore) snapshot() error {
	data, err := fs.mem.Export()
	if err != nil {
		return fmt.Errorf("snapshot export: %w", err)
	}
	tmp := fs.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, fs.snapshotPath); err != nil {
		return err
	}

	if fs.archivePath != "" {
		if err := fs.archiveWAL(); err != nil {
			return fmt.Errorf("archive WAL: %w", err)
		}
	}

	if err := fs.walFile.Close(); err != nil {
		return err
	}
	wal, err := os.Create(fs.walFile.Name())
	if err != nil {
		return err
	}
	fs.walFile = wal
	fs.logger.Infof("store: snapshot written to %s; WAL truncated", fs.snapshotPath)
	return nil
}

// Snapshot forces an out-of-band snapshot+archive cycle, for operator
// use (e.g. a `store gc` command) between the usual SnapshotInterval
// checkpoints.
func (fs *FileStore) Snapshot() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.snapshot()
}

func (fs *FileStore) archiveWAL() error {
	if _, err := fs.walFile.Seek(0, 0); err != nil {
		return err
	}
	raw, err := os.ReadFile(fs.walFile.Name())
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	f, err := os.OpenFile(fs.archivePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(raw); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

func (fs *FileStore) GetAccount(id ids.AccountID) (*domain.AccountRecord, error) {
	return fs.mem.GetAccount(id)
}

func (fs *FileStore) GetAccountHeader(id ids.AccountID) (*domain.AccountHeader, error) {
	return fs.mem.GetAccountHeader(id)
}

func (fs *FileStore) ListAccounts() ([]*domain.AccountRecord, error) {
	return fs.mem.ListAccounts()
}

func (fs *FileStore) GetInputNotes(filter NoteFilter) ([]*domain.InputNote, error) {
	return fs.mem.GetInputNotes(filter)
}

func (fs *FileStore) GetOutputNotes(filter NoteFilter) ([]*domain.OutputNote, error) {
	return fs.mem.GetOutputNotes(filter)
}

func (fs *FileStore) GetTransactions(filter TxFilter) ([]*domain.TransactionRecord, error) {
	return fs.mem.GetTransactions(filter)
}

func (fs *FileStore) GetCurrentPartialBlockchain() (*PartialBlockchainView, error) {
	return fs.mem.GetCurrentPartialBlockchain()
}

func (fs *FileStore) GetSyncHeight() ids.BlockNumber { return fs.mem.GetSyncHeight() }

func (fs *FileStore) ApplyStateSync(update *StateSyncUpdate) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if update.NewChainHeight < fs.mem.GetSyncHeight() {
		return errs.ErrInvariantViolation
	}
	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	if err := fs.appendWAL(recordStateSync, body); err != nil {
		return err
	}
	if err := fs.mem.ApplyStateSync(update); err != nil {
		return err
	}
	fs.maybeSnapshot()
	return nil
}

func (fs *FileStore) ApplyTransaction(update *TransactionStoreUpdate) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	if err := fs.appendWAL(recordTransaction, body); err != nil {
		return err
	}
	if err := fs.mem.ApplyTransaction(update); err != nil {
		return err
	}
	fs.maybeSnapshot()
	return nil
}

func (fs *FileStore) ImportAccount(rec *domain.AccountRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mem.ImportAccount(rec); err != nil {
		return err
	}
	if fs.snapshotPath == "" {
		return nil
	}
	return fs.snapshot()
}

func (fs *FileStore) CreateAccount(rec *domain.AccountRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mem.CreateAccount(rec); err != nil {
		return err
	}
	if fs.snapshotPath == "" {
		return nil
	}
	return fs.snapshot()
}

func (fs *FileStore) AddTag(tag domain.Tag) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mem.AddTag(tag); err != nil {
		return err
	}
	if fs.snapshotPath == "" {
		return nil
	}
	return fs.snapshot()
}

func (fs *FileStore) RemoveTag(tag domain.Tag) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.mem.RemoveTag(tag); err != nil {
		return err
	}
	if fs.snapshotPath == "" {
		return nil
	}
	return fs.snapshot()
}

func (fs *FileStore) ListTags() ([]domain.Tag, error) { return fs.mem.ListTags() }

func (fs *FileStore) Export() ([]byte, error) { return fs.mem.Export() }

func (fs *FileStore) Import(data []byte, password string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mem.Import(data, password)
}

func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.walFile == nil {
		return nil
	}
	return fs.walFile.Close()
}
