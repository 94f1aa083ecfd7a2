// Package client wires the store, partial blockchain, note screener,
// sync engine, transaction engine, keystore, prover, transport, and
// RPC client into a single Miden client handle, the way the teacher's
// FullNode aggregates a ledger and base node under one constructor.
package client

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/sirupsen/logrus"

	"miden-client/core/concurrency"
	"miden-client/core/metrics"
	"miden-client/core/mmr"
	"miden-client/core/notes"
	"miden-client/core/store"
	"miden-client/core/sync"
	"miden-client/core/txengine"
	"miden-client/keystore"
	"miden-client/rpc"
	"miden-client/transport"
)

// Config aggregates every sub-component configuration needed to start
// a client, mirroring the teacher's FullNodeConfig composition of
// Network/Ledger sub-configs under one struct.
type Config struct {
	Store        store.Store
	RPC          rpc.NodeRpcClient
	Prover       txengine.Prover
	Submitter    txengine.Submitter
	Keystore     keystore.Keystore
	Transport    transport.NoteTransport
	StorePath    string
	SyncInterval time.Duration
	MMRCacheSize int
	// TxGracefulBlocks bounds how many blocks may pass between building
	// and executing a transaction before txengine treats it as stale;
	// 0 uses txengine's own default.
	TxGracefulBlocks int
	Logger           *logrus.Logger
	Metrics          *metrics.Registry
}

// Client is the wired handle an application embeds; it owns the sync
// loop and exposes the transaction engine and store to callers.
type Client struct {
	cfg     Config
	logger  *logrus.Logger
	metrics *metrics.Registry

	store    store.Store
	forest   *mmr.Forest
	screener *notes.Screener
	guard    *concurrency.Guard

	Sync *sync.Engine
	Tx   *txengine.Engine

	mu      stdsync.Mutex
	running bool
}

// New wires a Client from cfg, validating the required collaborators
// are present before returning, the way NewFullNode validates its
// sub-constructors before assembling a FullNode.
func New(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("client: Config.Store is required")
	}
	if cfg.RPC == nil {
		return nil, fmt.Errorf("client: Config.RPC is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewRegistry()
	}
	cacheSize := cfg.MMRCacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}

	forest, err := mmr.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("client: init partial blockchain: %w", err)
	}
	screener := notes.New(logger)

	guard, err := concurrency.NewGuard(cfg.StorePath, logger)
	if err != nil {
		return nil, fmt.Errorf("client: init concurrency guard: %w", err)
	}
	guardedStore := store.NewGuarded(cfg.Store, guard)

	syncEngine, err := sync.New(sync.Config{
		Fetcher:  cfg.RPC,
		Store:    guardedStore,
		Forest:   forest,
		Screener: screener,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("client: init sync engine: %w", err)
	}

	txEngine, err := txengine.New(txengine.Config{
		Store:            guardedStore,
		Prover:           cfg.Prover,
		Submitter:        cfg.Submitter,
		Logger:           logger,
		TxGracefulBlocks: uint32(cfg.TxGracefulBlocks),
	})
	if err != nil {
		return nil, fmt.Errorf("client: init transaction engine: %w", err)
	}

	return &Client{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		store:    guardedStore,
		forest:   forest,
		screener: screener,
		guard:    guard,
		Sync:     syncEngine,
		Tx:       txEngine,
	}, nil
}

// Start begins the background sync loop at the configured interval.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	interval := c.cfg.SyncInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go c.Sync.Run(ctx, interval)
}

// Stop halts the background sync loop and closes the concurrency
// guard's filesystem watcher.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false
	c.Sync.Stop()
	return c.guard.Close()
}

// Store exposes the underlying store abstraction to callers building
// custom queries beyond the engines' own needs.
func (c *Client) Store() store.Store { return c.store }

// Forest exposes the partial blockchain for proof construction.
func (c *Client) Forest() *mmr.Forest { return c.forest }

// Metrics exposes the Prometheus registry for an HTTP exporter.
func (c *Client) Metrics() *metrics.Registry { return c.metrics }

// Keystore exposes the configured signing key store.
func (c *Client) Keystore() keystore.Keystore { return c.cfg.Keystore }
