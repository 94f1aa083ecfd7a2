package main

// ──────────────────────────────────────────────────────────────────────────────
// mdclient – local Miden rollup client
//
// Root command:  `mdclient`
// Sub‑routes:
//   sync      – drive the state synchronization engine
//   account   – create/inspect locally tracked accounts
//   tx        – build, prove, submit and apply transactions
//   keystore  – manage local signing keys
//   store     – inspect and maintain the local store
//   tag       – manage note-routing tag subscriptions
//   config    – inspect the effective configuration
//
// Env vars:
//   MDCLIENT_ENV        – config overlay name loaded on top of defaults
//   MDCLIENT_LOG_LEVEL  – trace|debug|info|warn|error (default info)
//
// ──────────────────────────────────────────────────────────────────────────────

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"miden-client/client"
	"miden-client/core/store"
	"miden-client/keystore"
	"miden-client/pkg/config"
	"miden-client/prover"
	"miden-client/rpc"
	"miden-client/rpc/httprpc"
)

var (
	logger    = logrus.StandardLogger()
	once      sync.Once
	appConfig config.Config
)

func initMiddleware(cmd *cobra.Command, _ []string) error {
	var err error
	once.Do(func() {
		_ = godotenv.Load()
		lvl := os.Getenv("MDCLIENT_LOG_LEVEL")
		if lvl == "" {
			lvl = "info"
		}
		l, e := logrus.ParseLevel(lvl)
		if e != nil {
			err = e
			return
		}
		logger.SetLevel(l)

		if cfg, loadErr := config.Load(os.Getenv("MDCLIENT_ENV")); loadErr == nil {
			appConfig = *cfg
		} else {
			logger.Debugf("mdclient: no config file found, using defaults: %v", loadErr)
			appConfig = config.Defaults()
		}
	})
	return err
}

// newClient wires a client.Client from the loaded configuration,
// opening a file-backed store and keystore at the configured paths and
// an HTTP RPC client against the configured endpoint.
func newClient() (*client.Client, error) {
	fs, err := store.Open(store.FileStoreConfig{
		WALPath:          appConfig.Store.Path + ".wal",
		SnapshotPath:     appConfig.Store.Path + ".snapshot",
		ArchivePath:      appConfig.Store.Path + ".archive",
		SnapshotInterval: appConfig.Store.SnapshotInterval,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("mdclient: open store: %w", err)
	}

	ks, err := keystore.OpenFileBacked(appConfig.Keystore.Path, os.Getenv("MDCLIENT_KEYSTORE_PASSWORD"), logger)
	if err != nil {
		return nil, fmt.Errorf("mdclient: open keystore: %w", err)
	}

	rpcClient := &rpc.WithRetry{
		Inner:  httprpc.New(appConfig.RPC.Endpoint),
		Policy: rpc.DefaultRetryPolicy,
		Logger: logger,
	}

	localProver := &prover.Local{Keystore: ks}

	return client.New(client.Config{
		Store:            fs,
		RPC:              rpcClient,
		Prover:           localProver,
		Submitter:        rpcClient,
		Keystore:         ks,
		StorePath:        appConfig.Store.Path,
		SyncInterval:     0,
		MMRCacheSize:     appConfig.Sync.MMRCacheSize,
		TxGracefulBlocks: appConfig.Tx.GracefulBlocks,
		Logger:           logger,
	})
}

func main() {
	root := &cobra.Command{
		Use:               "mdclient",
		Short:             "local Miden rollup client",
		PersistentPreRunE: initMiddleware,
	}

	RegisterSync(root)
	RegisterAccount(root)
	RegisterTx(root)
	RegisterKeystore(root)
	RegisterConfig(root)
	RegisterStore(root)
	RegisterTag(root)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
