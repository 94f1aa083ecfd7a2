package store

import (
	"os"
	"path/filepath"
	"testing"

	"miden-client/core/domain"
	"miden-client/core/ids"
)

func sampleAccountRecord(id byte) *domain.AccountRecord {
	var accID ids.AccountID
	accID[0] = id
	return &domain.AccountRecord{
		Account: domain.Account{
			Header: domain.AccountHeader{ID: accID, Nonce: 0},
		},
	}
}

func TestMemStoreCreateAndGetAccount(t *testing.T) {
	m := NewMemStore()
	rec := sampleAccountRecord(1)
	if err := m.CreateAccount(rec); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	got, err := m.GetAccount(rec.Account.Header.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Account.Header.ID != rec.Account.Header.ID {
		t.Fatalf("account id mismatch")
	}
}

func TestMemStoreCreateAccountDuplicateFails(t *testing.T) {
	m := NewMemStore()
	rec := sampleAccountRecord(2)
	if err := m.CreateAccount(rec); err != nil {
		t.Fatalf("first CreateAccount: %v", err)
	}
	if err := m.CreateAccount(rec); err == nil {
		t.Fatalf("expected error creating duplicate account")
	}
}

func TestMemStoreApplyStateSyncRejectsRegression(t *testing.T) {
	m := NewMemStore()
	if err := m.ApplyStateSync(&StateSyncUpdate{NewChainHeight: 10}); err != nil {
		t.Fatalf("ApplyStateSync: %v", err)
	}
	if err := m.ApplyStateSync(&StateSyncUpdate{NewChainHeight: 5}); err == nil {
		t.Fatalf("expected error on non-monotonic sync height")
	}
}

func TestMemStoreExportImportRoundTrip(t *testing.T) {
	m := NewMemStore()
	rec := sampleAccountRecord(3)
	if err := m.CreateAccount(rec); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	data, err := m.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	m2 := NewMemStore()
	if err := m2.Import(data, ""); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, err := m2.GetAccount(rec.Account.Header.ID); err != nil {
		t.Fatalf("GetAccount after import: %v", err)
	}
}

func TestMemStoreApplyStateSyncConsumesByNullifier(t *testing.T) {
	m := NewMemStore()
	var accID ids.AccountID
	accID[0] = 9
	n := domain.InputNote{
		Note:      domain.Note{Recipient: domain.NoteRecipient{SerialNum: ids.Digest{1}}},
		State:     domain.InputNoteStateCommitted,
		Nullifier: ids.Nullifier{2},
	}
	noteID := n.Note.ID()
	if err := m.ApplyStateSync(&StateSyncUpdate{NewInputNotes: []domain.InputNote{n}, NewChainHeight: 1}); err != nil {
		t.Fatalf("ApplyStateSync: %v", err)
	}
	if err := m.ApplyStateSync(&StateSyncUpdate{ConsumedNotes: []ids.Nullifier{n.Nullifier}, NewChainHeight: 2}); err != nil {
		t.Fatalf("ApplyStateSync: %v", err)
	}
	notes, err := m.GetInputNotes(NoteFilter{})
	if err != nil {
		t.Fatalf("GetInputNotes: %v", err)
	}
	var found *domain.InputNote
	for _, got := range notes {
		if got.Note.ID() == noteID {
			found = got
		}
	}
	if found == nil {
		t.Fatalf("note %s not found", noteID)
	}
	if found.State != domain.InputNoteStateConsumed {
		t.Fatalf("State=%v want Consumed", found.State)
	}
}

func TestMemStoreApplyStateSyncTransitionsAccountStatus(t *testing.T) {
	m := NewMemStore()
	rec := sampleAccountRecord(5)
	if err := m.CreateAccount(rec); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := m.ApplyStateSync(&StateSyncUpdate{
		UpdatedAccounts: []domain.AccountHeader{rec.Account.Header},
		NewChainHeight:  1,
	}); err != nil {
		t.Fatalf("ApplyStateSync: %v", err)
	}
	got, err := m.GetAccount(rec.Account.Header.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Status != domain.AccountStatusTracked {
		t.Fatalf("Status=%v want Tracked", got.Status)
	}

	if err := m.ApplyStateSync(&StateSyncUpdate{
		LockedAccountIDs: []ids.AccountID{rec.Account.Header.ID},
		NewChainHeight:   2,
	}); err != nil {
		t.Fatalf("ApplyStateSync: %v", err)
	}
	got, err = m.GetAccount(rec.Account.Header.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Status != domain.AccountStatusLocked {
		t.Fatalf("Status=%v want Locked", got.Status)
	}
}

func TestMemStoreListAccountsOrdersBySeq(t *testing.T) {
	m := NewMemStore()
	r1 := sampleAccountRecord(6)
	r2 := sampleAccountRecord(7)
	if err := m.CreateAccount(r1); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := m.CreateAccount(r2); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	list, err := m.ListAccounts()
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len=%d want 2", len(list))
	}
	if list[0].Account.Header.ID != r1.Account.Header.ID {
		t.Fatalf("expected first-created account first")
	}
}

func TestFileStoreOpenAndReplay(t *testing.T) {
	dir := t.TempDir()
	cfg := FileStoreConfig{
		WALPath:      filepath.Join(dir, "wal.log"),
		SnapshotPath: filepath.Join(dir, "snap.json"),
		ArchivePath:  filepath.Join(dir, "archive.gz"),
	}
	fs, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec := sampleAccountRecord(4)
	if err := fs.CreateAccount(rec); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := fs.ApplyStateSync(&StateSyncUpdate{NewChainHeight: 1}); err != nil {
		t.Fatalf("ApplyStateSync: %v", err)
	}
	if err := fs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if got := reopened.GetSyncHeight(); got != 1 {
		t.Fatalf("GetSyncHeight after replay=%d want 1", got)
	}
	if _, err := reopened.GetAccount(rec.Account.Header.ID); err != nil {
		t.Fatalf("GetAccount after replay: %v", err)
	}
}

func TestFileStoreSnapshotTruncatesWAL(t *testing.T) {
	dir := t.TempDir()
	cfg := FileStoreConfig{
		WALPath:          filepath.Join(dir, "wal.log"),
		SnapshotPath:     filepath.Join(dir, "snap.json"),
		ArchivePath:      filepath.Join(dir, "archive.gz"),
		SnapshotInterval: 1,
	}
	fs, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fs.Close()
	if err := fs.ApplyStateSync(&StateSyncUpdate{NewChainHeight: 1}); err != nil {
		t.Fatalf("ApplyStateSync: %v", err)
	}
	if got := fs.GetSyncHeight(); got != 1 {
		t.Fatalf("GetSyncHeight=%d want 1", got)
	}
	info, err := os.Stat(cfg.WALPath)
	if err != nil {
		t.Fatalf("stat WAL: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("WAL size=%d want 0 after snapshot", info.Size())
	}
}
