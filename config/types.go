package config

// DefaultChainID is used when the config file does not set ChainID.
const DefaultChainID uint64 = 7001

// RPC configures the JSON-RPC server.
type RPC struct {
	// JWTSecret enables bearer authentication on write methods when set.
	JWTSecret string `toml:"JWTSecret"`
	JWTIssuer string `toml:"JWTIssuer"`
	// RateLimitPerSecond and RateBurst bound requests per client address.
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateBurst          int     `toml:"RateBurst"`
	ReadTimeoutSecs    int     `toml:"ReadTimeoutSecs"`
	WriteTimeoutSecs   int     `toml:"WriteTimeoutSecs"`
	MaxBodyBytes       int64   `toml:"MaxBodyBytes"`
}

func (r *RPC) applyDefaults() {
	if r.RateLimitPerSecond == 0 {
		r.RateLimitPerSecond = 20
	}
	if r.RateBurst == 0 {
		r.RateBurst = 40
	}
	if r.ReadTimeoutSecs == 0 {
		r.ReadTimeoutSecs = 10
	}
	if r.WriteTimeoutSecs == 0 {
		r.WriteTimeoutSecs = 10
	}
	if r.MaxBodyBytes == 0 {
		r.MaxBodyBytes = 1 << 20
	}
}

// Telemetry configures OTLP export.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
	// SampleRatio is the fraction of traces kept; 0 keeps all.
	SampleRatio        float64 `toml:"SampleRatio"`
	MetricIntervalSecs int     `toml:"MetricIntervalSecs"`
}

// Indexer configures the reporting database fed by committed events.
type Indexer struct {
	Enabled bool `toml:"Enabled"`
	// Driver is "sqlite" or "postgres".
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

func (i *Indexer) applyDefaults() {
	if i.Driver == "" {
		i.Driver = "sqlite"
	}
}

// Quota defines per-sender admission limits. Zero disables a limit.
type Quota struct {
	MaxRequestsPerEpoch uint32 `toml:"MaxRequestsPerEpoch"`
	MaxCreditsPerEpoch  uint64 `toml:"MaxCreditsPerEpoch"`
	EpochSeconds        uint32 `toml:"EpochSeconds"`
}
