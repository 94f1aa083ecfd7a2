// Package config provides a reusable loader for the client's
// configuration files and environment variables. It is versioned so
// that applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"miden-client/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a Miden client instance. It
// mirrors the structure of the YAML files under cmd/mdclient/config.
type Config struct {
	Store struct {
		Path             string `mapstructure:"path" json:"path"`
		SnapshotInterval int    `mapstructure:"snapshot_interval" json:"snapshot_interval"`
	} `mapstructure:"store" json:"store"`

	Sync struct {
		IntervalMS        int    `mapstructure:"interval_ms" json:"interval_ms"`
		MMRCacheSize      int    `mapstructure:"mmr_cache_size" json:"mmr_cache_size"`
		GenesisCommitment string `mapstructure:"genesis_commitment" json:"genesis_commitment"`
	} `mapstructure:"sync" json:"sync"`

	RPC struct {
		Endpoint  string `mapstructure:"endpoint" json:"endpoint"`
		Protocol  string `mapstructure:"protocol" json:"protocol"`
		TimeoutMS int    `mapstructure:"timeout_ms" json:"timeout_ms"`
	} `mapstructure:"rpc" json:"rpc"`

	Prover struct {
		Mode     string `mapstructure:"mode" json:"mode"`
		Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	} `mapstructure:"prover" json:"prover"`

	Tx struct {
		// GracefulBlocks bounds how many blocks may pass between building
		// and executing a transaction before it is treated as stale.
		GracefulBlocks int `mapstructure:"graceful_blocks" json:"graceful_blocks"`
	} `mapstructure:"tx" json:"tx"`

	Keystore struct {
		Path string `mapstructure:"path" json:"path"`
	} `mapstructure:"keystore" json:"keystore"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
		Addr    string `mapstructure:"addr" json:"addr"`
	} `mapstructure:"metrics" json:"metrics"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/mdclient/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the MDCLIENT_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("MDCLIENT_ENV", ""))
}

// Defaults returns a Config populated with sane standalone defaults,
// for commands run without a config file present.
func Defaults() Config {
	var c Config
	c.Store.Path = utils.EnvOrDefault("MDCLIENT_STORE_PATH", "./mdclient-store.bin")
	c.Store.SnapshotInterval = utils.EnvOrDefaultInt("MDCLIENT_SNAPSHOT_INTERVAL", 256)
	c.Sync.IntervalMS = utils.EnvOrDefaultInt("MDCLIENT_SYNC_INTERVAL_MS", 10000)
	c.Sync.MMRCacheSize = utils.EnvOrDefaultInt("MDCLIENT_MMR_CACHE_SIZE", 256)
	c.RPC.Endpoint = utils.EnvOrDefault("MDCLIENT_RPC_ENDPOINT", "http://localhost:57291")
	c.RPC.Protocol = utils.EnvOrDefault("MDCLIENT_RPC_PROTOCOL", "http")
	c.RPC.TimeoutMS = utils.EnvOrDefaultInt("MDCLIENT_RPC_TIMEOUT_MS", 15000)
	c.Prover.Mode = utils.EnvOrDefault("MDCLIENT_PROVER_MODE", "local")
	c.Tx.GracefulBlocks = utils.EnvOrDefaultInt("MDCLIENT_TX_GRACEFUL_BLOCKS", 20)
	c.Keystore.Path = utils.EnvOrDefault("MDCLIENT_KEYSTORE_PATH", "./mdclient-keystore.bin")
	c.Logging.Level = utils.EnvOrDefault("MDCLIENT_LOG_LEVEL", "info")
	c.Metrics.Enabled = utils.EnvOrDefault("MDCLIENT_METRICS_ENABLED", "false") == "true"
	c.Metrics.Addr = utils.EnvOrDefault("MDCLIENT_METRICS_ADDR", ":9292")
	return c
}
