package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"academicchain/cmd/internal/passphrase"
	"academicchain/config"
	"academicchain/core"
	"academicchain/core/events"
	"academicchain/core/genesis"
	"academicchain/crypto"
	"academicchain/native"
	"academicchain/observability/logging"
	"academicchain/observability/metrics"
	"academicchain/observability/otel"
	"academicchain/rpc"
	"academicchain/rpc/middleware"
	"academicchain/services/indexer"
	"academicchain/storage"
)

const serviceName = "academicd"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	configFile := fs.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := fs.String("genesis", "", "Path to a genesis YAML file (overrides ACAD_GENESIS and config GenesisFile)")
	issueToken := fs.Duration("issue-token", 0, "Print a bearer token for write methods valid for the given duration and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, logCloser, err := logging.SetupWithFile(serviceName, cfg.Env, logging.FileConfig{Path: cfg.LogFile, Compress: true})
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logCloser.Close()

	operator, err := loadOperatorKey(cfg, passphrase.NewSource(config.EnvKeyPass, "operator keystore"))
	if err != nil {
		return err
	}
	operatorID := operator.PubKey().Address().String()
	if *issueToken > 0 {
		token, err := middleware.NewAuthenticator(middleware.AuthConfig{HMACSecret: cfg.RPC.JWTSecret, Issuer: cfg.RPC.JWTIssuer}).Issue(operatorID, *issueToken)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(stdout, token)
		return nil
	}

	shutdownTelemetry, err := otel.Init(ctx, otel.Config{
		ServiceName:    serviceName,
		Environment:    cfg.Env,
		Network:        cfg.NetworkName,
		ChainID:        cfg.ChainID,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        otel.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricInterval: time.Duration(cfg.Telemetry.MetricIntervalSecs) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	programID := cfg.ProgramAddress()
	genesisPath := resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv)
	if genesisPath != "" {
		spec, err := genesis.LoadGenesisSpec(genesisPath)
		if err != nil {
			return err
		}
		if err := checkGenesisAgainstConfig(spec, cfg); err != nil {
			return err
		}
		programID = spec.ProgramAddress()
		root, err := genesis.Apply(db, spec)
		switch {
		case errors.Is(err, genesis.ErrAlreadyApplied):
			logger.Info("genesis already applied", slog.String("path", genesisPath))
		case err != nil:
			return fmt.Errorf("apply genesis: %w", err)
		default:
			logger.Info("genesis applied", slog.String("path", genesisPath), slog.String("state_root", root.Hex()))
		}
	}

	nodeMetrics := metrics.Academic()
	sinks := events.Fanout{}
	var ix *indexer.Indexer
	if cfg.Indexer.Enabled {
		ix, err = openIndexer(cfg.Indexer, logger, nodeMetrics)
		if err != nil {
			return err
		}
		ix.Start()
		defer func() {
			if err := ix.Close(); err != nil {
				logger.Warn("indexer close failed", slog.Any("error", err))
			}
		}()
		sinks = append(sinks, ix)
	}

	node, err := core.NewNode(db, new(big.Int).SetUint64(cfg.ChainID),
		core.WithProgramID(programID),
		core.WithPauses(native.NewPauseSet(cfg.PausedModules)),
		core.WithQuota(cfg.NodeQuota()),
		core.WithEmitter(sinks),
		core.WithLogger(logger),
		core.WithMetrics(nodeMetrics),
	)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	if ok, err := node.Initialized(); err != nil {
		return err
	} else if !ok {
		logger.Warn("program not initialised; submit a bootstrap transaction or start with a genesis file")
	}

	server := rpc.NewServer(node, serverConfig(cfg.RPC), logger)
	server.AttachIndexer(ix)

	logger.Info("academic node running",
		slog.String("network", cfg.NetworkName),
		slog.Uint64("chain_id", cfg.ChainID),
		slog.String("program", programID.Hex()),
		logging.IdentityField("operator", operatorID),
		slog.Any("paused", cfg.PausedModules))
	if err := server.Start(ctx, cfg.RPCAddress); err != nil {
		return fmt.Errorf("rpc server: %w", err)
	}
	logger.Info("academic node stopped")
	return nil
}

type envLookupFunc func(string) (string, bool)

// resolveGenesisPath prefers the CLI flag, then the environment, then config.
// Config loading already folds ACAD_GENESIS into cfgPath; the lookup covers
// callers that bypass it.
func resolveGenesisPath(cliPath, cfgPath string, lookup envLookupFunc) string {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(config.EnvGenesis); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return strings.TrimSpace(cfgPath)
}

func checkGenesisAgainstConfig(spec *genesis.GenesisSpec, cfg *config.Config) error {
	if chainID, ok := spec.ChainIDValue(); ok && chainID != cfg.ChainID {
		return fmt.Errorf("genesis chainId %d does not match config ChainID %d", chainID, cfg.ChainID)
	}
	if strings.TrimSpace(cfg.ProgramID) != "" && spec.ProgramAddress() != cfg.ProgramAddress() {
		return fmt.Errorf("genesis programId %s does not match config ProgramID %s", spec.ProgramAddress().Hex(), cfg.ProgramAddress().Hex())
	}
	return nil
}

func serverConfig(cfg config.RPC) rpc.ServerConfig {
	return rpc.ServerConfig{
		JWTSecret:     cfg.JWTSecret,
		JWTIssuer:     cfg.JWTIssuer,
		RatePerSecond: cfg.RateLimitPerSecond,
		RateBurst:     cfg.RateBurst,
		ReadTimeout:   time.Duration(cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout:  time.Duration(cfg.WriteTimeoutSecs) * time.Second,
		MaxBodyBytes:  cfg.MaxBodyBytes,
	}
}

func openIndexer(cfg config.Indexer, logger *slog.Logger, m *metrics.AcademicMetrics) (*indexer.Indexer, error) {
	db, err := indexer.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open indexer database: %w", err)
	}
	ix, err := indexer.New(db, logger.With(slog.String("component", "indexer")), indexer.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	return ix, nil
}

func loadOperatorKey(cfg *config.Config, source *passphrase.Source) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(cfg.KeystorePath) == "" {
		return nil, fmt.Errorf("operator keystore path not configured")
	}
	pass, err := source.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain operator keystore passphrase: %w", err)
	}
	key, err := crypto.LoadFromKeystore(cfg.KeystorePath, pass)
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt keystore %s: %w", cfg.KeystorePath, err)
	}
	return key, nil
}
