package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"academicchain/core/types"
)

type recordedCall struct {
	method string
	params []interface{}
	auth   bool
}

func stubRPC(t *testing.T, responses map[string]string) *[]recordedCall {
	t.Helper()
	calls := &[]recordedCall{}
	prev := rpcCall
	rpcCall = func(method string, params []interface{}, requireAuth bool) (json.RawMessage, *rpcError, error) {
		*calls = append(*calls, recordedCall{method: method, params: params, auth: requireAuth})
		if raw, ok := responses[method]; ok {
			return json.RawMessage(raw), nil, nil
		}
		return nil, &rpcError{Code: -32601, Message: "unknown method"}, nil
	}
	t.Cleanup(func() { rpcCall = prev })
	return calls
}

func newKeystore(t *testing.T) (string, string) {
	t.Helper()
	t.Setenv(keyPassEnv, "cli-test-pass")
	path := filepath.Join(t.TempDir(), "student.keystore")
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"keygen", "--out", path}, &stdout, &stderr), stderr.String())
	require.Contains(t, stdout.String(), "Address: acad1")

	stdout.Reset()
	require.Equal(t, 0, run([]string{"address", "--key", path}, &stdout, &stderr), stderr.String())
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	return path, lines[1]
}

func TestKeygenRefusesOverwrite(t *testing.T) {
	path, _ := newKeystore(t)
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run([]string{"keygen", "--out", path}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "already exists")
}

func TestTxSignsWithNodeChainAndNonce(t *testing.T) {
	path, hexAddr := newKeystore(t)
	calls := stubRPC(t, map[string]string{
		"academic_chainInfo":       `{"chainId":"7001","programId":"0x01","stateRoot":"0x00"}`,
		"academic_getAccount":      `{"nonce":3}`,
		"academic_sendTransaction": `{"status":1,"txHash":"0xabc"}`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"--rpc", "http://node:8545", "tx", "purchase_credits", "--key", path, "--amount", "10"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	require.Equal(t, "http://node:8545", rpcEndpoint)

	require.Len(t, *calls, 3)
	require.Equal(t, hexAddr, (*calls)[1].params[0])
	send := (*calls)[2]
	require.Equal(t, "academic_sendTransaction", send.method)
	require.True(t, send.auth)
	tx, ok := send.params[0].(*types.Transaction)
	require.True(t, ok)
	require.Equal(t, uint64(3), tx.Nonce)
	require.Equal(t, int64(7001), tx.ChainID.Int64())
	require.Equal(t, types.TxTypePurchaseCredits, tx.Type)
	from, err := tx.From()
	require.NoError(t, err)
	require.Equal(t, hexAddr, from.Hex())
	var payload types.PurchaseCreditsPayload
	require.NoError(t, tx.DecodePayload(&payload))
	require.Equal(t, uint64(10), payload.Amount)
}

func TestTxReportsFailedReceipt(t *testing.T) {
	path, _ := newKeystore(t)
	stubRPC(t, map[string]string{
		"academic_sendTransaction": `{"status":0,"error":"academic: student profile not found","errorKind":"not_found","errorName":"ProfileNotFound","errorCode":6016}`,
	})
	var stdout, stderr bytes.Buffer
	code := run([]string{"tx", "register_course", "--key", path, "--course", "CS101", "--chain-id", "7001", "--nonce", "0"}, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "Transaction failed: ProfileNotFound (code 6016, not_found)")
}

func TestTxValidatesFlagsBeforeSigning(t *testing.T) {
	calls := stubRPC(t, nil)
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run([]string{"tx", "purchase_credits"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "--amount must be positive")
	require.Equal(t, 1, run([]string{"tx", "complete_course", "--course", "CS101"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "--student is required")
	require.Equal(t, 1, run([]string{"tx", "enroll"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "Unknown tx instruction")
	require.Empty(t, *calls)
}

func TestQueryMapsFlagsToParams(t *testing.T) {
	calls := stubRPC(t, map[string]string{
		"academic_getEnrollment":  `{"courseId":"CS101","passing":true}`,
		"academic_isPassingGrade": `false`,
	})
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"query", "enrollment", "--student", "acad1xyz", "--course", "CS101"}, &stdout, &stderr), stderr.String())
	require.Contains(t, stdout.String(), `"passing": true`)
	require.Equal(t, []interface{}{"acad1xyz", "CS101"}, (*calls)[0].params)
	require.False(t, (*calls)[0].auth)

	require.Equal(t, 0, run([]string{"query", "enrollment", "--student", " acad1xyz ", "--course", " CS 201 "}, &stdout, &stderr), stderr.String())
	require.Equal(t, []interface{}{"acad1xyz", " CS 201 "}, (*calls)[1].params)

	require.Equal(t, 0, run([]string{"query", "passing", "--grade", "49"}, &stdout, &stderr))
	require.Equal(t, "academic_isPassingGrade", (*calls)[2].method)

	require.Equal(t, 1, run([]string{"query", "profile"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "--student is required")

	require.Equal(t, 1, run([]string{"query", "courses"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "Error -32601")
}
