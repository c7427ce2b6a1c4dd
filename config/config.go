package config

import (
	"encoding/hex"
	"os"

	"membranecore/crypto"

	"github.com/BurntSushi/toml"
)

// Config is the root, process-level configuration for cmd/cdpd — storage
// location, the read-only query API's listen address, and the daemon's own
// signing key. Domain parameters (risk/rate/queue/auction) live in a
// separate YAML file loaded by LoadDomainConfig, mirroring the host's split
// between a root TOML process config and a service-level YAML domain config.
type Config struct {
	// RPCAddress is the bind address for the rpc query API (spec §6.1).
	RPCAddress string `toml:"RPCAddress"`
	// DataDir holds the on-disk LevelDB store; empty means ephemeral (MemDB).
	DataDir string `toml:"DataDir"`
	// DomainConfigPath points at the YAML basket/rate/risk/queue/auction
	// parameter file loaded via LoadDomainConfig.
	DomainConfigPath string `toml:"DomainConfigPath"`
	// SigningKey is the daemon's own private key, hex-encoded. The cascade's
	// collaborators (StabilityPool/Router/auction starter) are in-process
	// interfaces here, not a remote chain client, so this key authenticates
	// the daemon's side of relayed collaborator callbacks in a split
	// deployment, not on-chain transactions.
	SigningKey string `toml:"SigningKey"`
}

// Load loads the configuration from the given path, generating a default
// file (with a freshly generated SigningKey) on first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.SigningKey == "" {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		cfg.SigningKey = hex.EncodeToString(key.Bytes())

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, os.ModePerm)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:       ":8080",
		DataDir:          "./cdpd-data",
		DomainConfigPath: "./cdpd-domain.yaml",
		SigningKey:       hex.EncodeToString(key.Bytes()),
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
