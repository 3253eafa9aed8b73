package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/native/academic"
	"academicchain/native/marker"
	"academicchain/native/token"
)

var pausableModules = map[string]struct{}{
	academic.ModuleName: {},
	token.ModuleName:    {},
	marker.ModuleName:   {},
}

// Validate checks the fields the daemon cannot start without.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must be set")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if strings.TrimSpace(cfg.KeystorePath) == "" {
		return fmt.Errorf("KeystorePath must be set")
	}
	if cfg.ChainID == 0 {
		return fmt.Errorf("ChainID must be positive")
	}
	if id := strings.TrimSpace(cfg.ProgramID); id != "" && !common.IsHexAddress(id) {
		return fmt.Errorf("ProgramID must be a hex address")
	}
	for _, module := range cfg.PausedModules {
		if _, ok := pausableModules[module]; !ok {
			return fmt.Errorf("PausedModules: unknown module %q", module)
		}
	}
	if cfg.RPC.RateLimitPerSecond < 0 || cfg.RPC.RateBurst < 0 {
		return fmt.Errorf("rpc: rate limit must not be negative")
	}
	if cfg.RPC.JWTSecret != "" && len(cfg.RPC.JWTSecret) < 16 {
		return fmt.Errorf("rpc: JWTSecret must be at least 16 bytes")
	}
	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0, 1]")
	}
	if cfg.Indexer.Enabled {
		switch cfg.Indexer.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("indexer: unsupported driver %q", cfg.Indexer.Driver)
		}
		if strings.TrimSpace(cfg.Indexer.DSN) == "" {
			return fmt.Errorf("indexer: DSN must be set when enabled")
		}
	}
	return nil
}
