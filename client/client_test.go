package client

import (
	"context"
	"testing"
	"time"

	"miden-client/core/domain"
	"miden-client/core/ids"
	"miden-client/core/store"
	"miden-client/core/sync"
	"miden-client/keystore"
	"miden-client/prover"
)

type fakeRPC struct {
	resp *sync.SyncResponse
}

func (f *fakeRPC) SyncState(ctx context.Context, fromBlock ids.BlockNumber, accountIDs []ids.AccountID, limit uint32) (*sync.SyncResponse, error) {
	return f.resp, nil
}

func (f *fakeRPC) SubmitTransaction(ctx context.Context, tx *domain.Transaction) error { return nil }

func (f *fakeRPC) GetBlockHeader(ctx context.Context, blockNum ids.BlockNumber) (*domain.BlockHeader, error) {
	return &domain.BlockHeader{BlockNum: blockNum}, nil
}

func newTestConfig(t *testing.T) Config {
	t.Helper()
	mem := keystore.NewMemory()
	ks := mem
	return Config{
		Store:     store.NewMemStore(),
		RPC:       &fakeRPC{resp: &sync.SyncResponse{ChainTip: 0}},
		Prover:    &prover.Local{Keystore: ks},
		Submitter: &fakeRPC{},
		Keystore:  ks,
		StorePath: t.TempDir() + "/store.bin",
	}
}

func TestNewRequiresStoreAndRPC(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for empty config")
	}
}

func TestNewWiresEngines(t *testing.T) {
	c, err := New(newTestConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Sync == nil || c.Tx == nil {
		t.Fatalf("expected Sync and Tx engines to be wired")
	}
	if c.Store() == nil {
		t.Fatalf("expected Store() to expose underlying store")
	}
}

func TestStartStopRunsSyncLoop(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.SyncInterval = 20 * time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	c, err := New(newTestConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
