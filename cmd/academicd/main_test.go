package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"academicchain/config"
	"academicchain/core/genesis"
	"academicchain/rpc/middleware"
)

func TestResolveGenesisPathPrecedence(t *testing.T) {
	env := map[string]string{config.EnvGenesis: " /env/genesis.yaml "}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	require.Equal(t, "/cli/genesis.yaml", resolveGenesisPath(" /cli/genesis.yaml ", "/cfg/genesis.yaml", lookup))
	require.Equal(t, "/env/genesis.yaml", resolveGenesisPath("", "/cfg/genesis.yaml", lookup))
	require.Equal(t, "/cfg/genesis.yaml", resolveGenesisPath("", "/cfg/genesis.yaml", nil))
	require.Empty(t, resolveGenesisPath("", "", nil))
}

func TestCheckGenesisAgainstConfig(t *testing.T) {
	spec, err := genesis.ParseGenesisSpec([]byte(`genesisTime: "2024-01-01T00:00:00Z"
chainId: 7001
authority: "0x00000000000000000000000000000000000000a1"
treasury: "0x00000000000000000000000000000000000000b2"
`))
	require.NoError(t, err)

	cfg := &config.Config{ChainID: 7001}
	require.NoError(t, checkGenesisAgainstConfig(spec, cfg))

	cfg.ChainID = 9
	require.ErrorContains(t, checkGenesisAgainstConfig(spec, cfg), "chainId 7001")

	cfg.ChainID = 7001
	cfg.ProgramID = "0x00000000000000000000000000000000000000c3"
	require.ErrorContains(t, checkGenesisAgainstConfig(spec, cfg), "programId")
}

func TestServerConfigFromRPCSection(t *testing.T) {
	got := serverConfig(config.RPC{
		JWTSecret:          "0123456789abcdef",
		RateLimitPerSecond: 5,
		RateBurst:          10,
		ReadTimeoutSecs:    3,
		WriteTimeoutSecs:   4,
		MaxBodyBytes:       2048,
	})
	require.Equal(t, "0123456789abcdef", got.JWTSecret)
	require.Equal(t, 3*time.Second, got.ReadTimeout)
	require.Equal(t, 4*time.Second, got.WriteTimeout)
	require.Equal(t, int64(2048), got.MaxBodyBytes)
	require.Equal(t, 10, got.RateBurst)
}

func TestRunIssuesOperatorToken(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvKeyPass, "operator-pass")
	t.Setenv(config.EnvGenesis, "")
	cfgPath := filepath.Join(dir, "config.toml")
	contents := `RPCAddress = "127.0.0.1:0"
DataDir = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"

[rpc]
JWTSecret = "daemon-test-secret-0001"
JWTIssuer = "academicd"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(contents), 0o600))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", cfgPath, "-issue-token", "1h"}, &out))
	token := strings.TrimSpace(out.String())
	require.NotEmpty(t, token)

	auth := middleware.NewAuthenticator(middleware.AuthConfig{HMACSecret: "daemon-test-secret-0001", Issuer: "academicd"})
	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	claims, err := auth.Authorize(req)
	require.NoError(t, err)
	subject, err := claims.GetSubject()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(subject, "acad1"))
}
