package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"academicchain/crypto"

	"github.com/BurntSushi/toml"
)

const (
	EnvEnvironment = "ACAD_ENV"
	EnvKeyPass     = "ACAD_KEY_PASS"
	EnvGenesis     = "ACAD_GENESIS"
)

type Config struct {
	RPCAddress    string   `toml:"RPCAddress"`
	DataDir       string   `toml:"DataDir"`
	GenesisFile   string   `toml:"GenesisFile"`
	KeystorePath  string   `toml:"KeystorePath"`
	NetworkName   string   `toml:"NetworkName"`
	ChainID       uint64   `toml:"ChainID"`
	ProgramID     string   `toml:"ProgramID,omitempty"`
	LogFile       string   `toml:"LogFile"`
	Env           string   `toml:"Env"`
	PausedModules []string `toml:"PausedModules"`

	RPC       RPC       `toml:"rpc"`
	Telemetry Telemetry `toml:"telemetry"`
	Indexer   Indexer   `toml:"indexer"`
	Quota     Quota     `toml:"quota"`
}

// Load loads the configuration from the given path, writing a default file and
// operator keystore when none exists. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
		applyEnv(cfg)
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %q", path, undecoded[0].String())
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	applyEnv(cfg)
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "academic-local"
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = DefaultChainID
	}
	if cfg.PausedModules == nil {
		cfg.PausedModules = []string{}
	}
	cfg.RPC.applyDefaults()
	cfg.Indexer.applyDefaults()
}

func applyEnv(cfg *Config) {
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		cfg.Env = env
	}
	if genesis := strings.TrimSpace(os.Getenv(EnvGenesis)); genesis != "" {
		cfg.GenesisFile = genesis
	}
}

// KeyPassphrase returns the operator keystore passphrase from the environment.
func KeyPassphrase() string {
	return os.Getenv(EnvKeyPass)
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.KeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, KeyPassphrase()); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.KeystorePath != keystorePath {
		cfg.KeystorePath = keystorePath
		return persist(configPath, cfg)
	}

	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, KeyPassphrase()); err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:  ":8545",
		DataDir:     "./academic-data",
		GenesisFile: "",
		NetworkName: "academic-local",
		ChainID:     DefaultChainID,
		Env:         "dev",
		Quota: Quota{
			MaxRequestsPerEpoch: 120,
			EpochSeconds:        60,
		},
	}
	cfg.KeystorePath = keystorePath
	cfg.applyDefaults()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
