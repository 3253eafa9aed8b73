package config

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/native/academic"
	nativecommon "academicchain/native/common"
)

// NodeQuota converts the configured quota into the runtime form.
func (cfg *Config) NodeQuota() nativecommon.Quota {
	return nativecommon.Quota{
		MaxRequestsPerEpoch: cfg.Quota.MaxRequestsPerEpoch,
		MaxCreditsPerEpoch:  cfg.Quota.MaxCreditsPerEpoch,
		EpochSeconds:        cfg.Quota.EpochSeconds,
	}
}

// ProgramAddress returns the configured program id or the default one.
func (cfg *Config) ProgramAddress() common.Address {
	if trimmed := strings.TrimSpace(cfg.ProgramID); trimmed != "" {
		return common.HexToAddress(trimmed)
	}
	return academic.DefaultProgramID
}
