package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"academicchain/core"
	"academicchain/core/events"
	"academicchain/core/genesis"
	"academicchain/core/types"
	"academicchain/crypto"
	"academicchain/native/academic"
	"academicchain/observability/logging"
	"academicchain/rpc/middleware"
	"academicchain/services/indexer"
	"academicchain/storage"
)

const testSecret = "rpc-test-secret-0123"

type testEnv struct {
	server     *Server
	handler    http.Handler
	authority  *crypto.PrivateKey
	instructor *crypto.PrivateKey
	student    *crypto.PrivateKey
	token      string
}

func newTestEnv(t *testing.T, cfg ServerConfig, opts ...core.Option) *testEnv {
	t.Helper()
	env := &testEnv{}
	for _, k := range []**crypto.PrivateKey{&env.authority, &env.instructor, &env.student} {
		key, err := crypto.GeneratePrivateKey()
		require.NoError(t, err)
		*k = key
	}
	doc := fmt.Sprintf(`genesisTime: "2024-01-01T00:00:00Z"
chainId: 7001
authority: "%s"
treasury: "0x00000000000000000000000000000000000007e5"
balances:
  "%s": "50000000"
courses:
  - id: CS101
    name: Intro to Computer Science
    instructor: "%s"
    requiredCredits: 5
`, env.authority.PubKey().Address().String(), env.student.PubKey().Address().String(), env.instructor.PubKey().Address().String())
	spec, err := genesis.ParseGenesisSpec([]byte(doc))
	require.NoError(t, err)
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	_, err = genesis.Apply(db, spec)
	require.NoError(t, err)

	opts = append([]core.Option{core.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) })}, opts...)
	node, err := core.NewNode(db, big.NewInt(7001), opts...)
	require.NoError(t, err)
	env.server = NewServer(node, cfg, nil)
	env.handler = env.server.Router()
	if cfg.JWTSecret != "" {
		env.token, err = middleware.NewAuthenticator(middleware.AuthConfig{HMACSecret: cfg.JWTSecret}).Issue("tests", time.Hour)
		require.NoError(t, err)
	}
	return env
}

func (e *testEnv) call(t *testing.T, method string, params ...interface{}) (int, RPCResponse) {
	t.Helper()
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		encoded, err := json.Marshal(p)
		require.NoError(t, err)
		raw = append(raw, encoded)
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: raw, ID: 1})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	res := httptest.NewRecorder()
	e.handler.ServeHTTP(res, req)
	var resp RPCResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	return res.Code, resp
}

func (e *testEnv) signed(t *testing.T, key *crypto.PrivateKey, nonce uint64, txType types.TxType, payload interface{}) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{ChainID: big.NewInt(7001), Type: txType, Nonce: nonce}
	require.NoError(t, tx.SetPayload(payload))
	require.NoError(t, tx.Sign(key.PrivateKey))
	return tx
}

func decodeResult(t *testing.T, resp RPCResponse, out interface{}) {
	t.Helper()
	require.Nil(t, resp.Error)
	encoded, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(encoded, out))
}

func TestSendTransactionAndQuery(t *testing.T) {
	env := newTestEnv(t, ServerConfig{JWTSecret: testSecret})
	student := env.student.PubKey().Address()

	status, resp := env.call(t, "academic_sendTransaction", env.signed(t, env.student, 0, types.TxTypePurchaseCredits, types.PurchaseCreditsPayload{Amount: 10}))
	require.Equal(t, http.StatusOK, status)
	var receipt types.Receipt
	decodeResult(t, resp, &receipt)
	require.True(t, receipt.Succeeded())
	purchased, ok := receipt.FindEvent(events.TypeCreditsPurchased)
	require.True(t, ok)
	require.Equal(t, student.String(), purchased.Attr("student"))
	require.Equal(t, "10", purchased.Attr("amount"))

	_, resp = env.call(t, "academic_getReceipt", receipt.TxHash)
	var stored types.Receipt
	decodeResult(t, resp, &stored)
	require.Equal(t, receipt.StateRoot, stored.StateRoot)

	_, resp = env.call(t, "academic_getCreditBalance", student.String())
	var balance CreditBalanceResult
	decodeResult(t, resp, &balance)
	require.Equal(t, uint64(10), balance.Balance)
	require.Equal(t, student.String(), balance.Student)

	_, resp = env.call(t, "academic_getAccount", student.Common().Hex())
	var account AccountResult
	decodeResult(t, resp, &account)
	require.Equal(t, uint64(1), account.Nonce)
	require.Zero(t, account.Balance.Cmp(big.NewInt(40_000_000)))

	_, resp = env.call(t, "academic_listCourses")
	var courses []map[string]interface{}
	decodeResult(t, resp, &courses)
	require.Len(t, courses, 1)
	require.Equal(t, "CS101", courses[0]["courseId"])

	_, resp = env.call(t, "academic_isPassingGrade", 50)
	var passing bool
	decodeResult(t, resp, &passing)
	require.True(t, passing)
}

func TestProgramErrorsCarryStableData(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	status, resp := env.call(t, "academic_getProfile", env.student.PubKey().Address().String())
	require.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeNotFound, resp.Error.Code)
	data, ok := resp.Error.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "ProfileNotFound", data["name"])
	require.EqualValues(t, 6016, data["programCode"])
	require.Equal(t, "not_found", data["kind"])

	// A failed program call is still a successful RPC carrying a failed receipt.
	status, resp = env.call(t, "academic_sendTransaction", env.signed(t, env.student, 0, types.TxTypeRegisterCourse, types.RegisterCoursePayload{CourseID: "CS101"}))
	require.Equal(t, http.StatusOK, status)
	var receipt types.Receipt
	decodeResult(t, resp, &receipt)
	require.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	require.Equal(t, "not_found", receipt.ErrorKind)
	require.Equal(t, "ProfileNotFound", receipt.ErrorName)
	require.EqualValues(t, 6016, receipt.ErrorCode)

	// The failed envelope consumed nonce 0 and cannot be sent again.
	status, resp = env.call(t, "academic_sendTransaction", env.signed(t, env.student, 0, types.TxTypeRegisterCourse, types.RegisterCoursePayload{CourseID: "CS101"}))
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeRejected, resp.Error.Code)

	status, resp = env.call(t, "academic_sendTransaction", env.signed(t, env.student, 9, types.TxTypePurchaseCredits, types.PurchaseCreditsPayload{Amount: 1}))
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeRejected, resp.Error.Code)
}

func TestWriteMethodsRequireToken(t *testing.T) {
	env := newTestEnv(t, ServerConfig{JWTSecret: testSecret})
	tx := env.signed(t, env.student, 0, types.TxTypePurchaseCredits, types.PurchaseCreditsPayload{Amount: 1})

	env.token = ""
	status, resp := env.call(t, "academic_sendTransaction", tx)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	status, _ = env.call(t, "academic_getConfig")
	require.Equal(t, http.StatusOK, status, "reads stay open")
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	status, resp := env.call(t, "academic_unknown")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)

	status, resp = env.call(t, "academic_getCourse")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = env.call(t, "academic_getProfile", "not-an-address")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{"))
	res := httptest.NewRecorder()
	env.handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestCourseIDsAreNotTrimmed(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	padded := " CS 201 "
	create := env.signed(t, env.authority, 0, types.TxTypeCreateCourse, types.CreateCoursePayload{
		CourseID:        padded,
		CourseName:      "Seminar",
		Instructor:      env.instructor.PubKey().Address().Common(),
		RequiredCredits: 1,
	})
	_, resp := env.call(t, "academic_sendTransaction", create)
	var receipt types.Receipt
	decodeResult(t, resp, &receipt)
	require.True(t, receipt.Succeeded(), receipt.Error)

	status, resp := env.call(t, "academic_getCourse", padded)
	require.Equal(t, http.StatusOK, status)
	var course academic.Course
	decodeResult(t, resp, &course)
	require.Equal(t, padded, course.CourseID)

	status, resp = env.call(t, "academic_getCourse", "CS 201")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeNotFound, resp.Error.Code)

	// Identities are still trimmed.
	status, _ = env.call(t, "academic_getCreditBalance", "  "+env.student.PubKey().Address().String()+" ")
	require.Equal(t, http.StatusOK, status)
}

func TestHealthAndRateLimit(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RatePerSecond: 1, RateBurst: 1})

	res := httptest.NewRecorder()
	env.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"status":"ok"`)
	require.NotEmpty(t, res.Header().Get(middleware.RequestIDHeader))

	status, _ := env.call(t, "academic_getConfig")
	require.Equal(t, http.StatusOK, status)
	body, err := json.Marshal(RPCRequest{Method: "academic_getConfig", ID: 2})
	require.NoError(t, err)
	res = httptest.NewRecorder()
	env.handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	require.Equal(t, http.StatusTooManyRequests, res.Code)
}

func TestTranscriptFromIndexer(t *testing.T) {
	db, err := indexer.Open("sqlite", "file:rpc-transcript?mode=memory&cache=shared")
	require.NoError(t, err)
	ix, err := indexer.New(db, logging.Discard())
	require.NoError(t, err)
	ix.Start()

	env := newTestEnv(t, ServerConfig{}, core.WithEmitter(ix))
	student := env.student.PubKey().Address().String()

	_, resp := env.call(t, "academic_getTranscript", student)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
	env.server.AttachIndexer(ix)

	_, resp = env.call(t, "academic_sendTransaction", env.signed(t, env.student, 0, types.TxTypePurchaseCredits, types.PurchaseCreditsPayload{Amount: 5}))
	require.Nil(t, resp.Error)
	_, resp = env.call(t, "academic_sendTransaction", env.signed(t, env.student, 1, types.TxTypeRegisterCourse, types.RegisterCoursePayload{CourseID: "CS101"}))
	require.Nil(t, resp.Error)
	require.NoError(t, ix.Close())

	_, resp = env.call(t, "academic_getTranscript", student)
	var transcript TranscriptResult
	decodeResult(t, resp, &transcript)
	require.True(t, strings.HasPrefix(transcript.Student, "acad1"))
	require.Len(t, transcript.Purchases, 1)
	require.Len(t, transcript.Enrollments, 1)
	require.Equal(t, "CS101", transcript.Enrollments[0].CourseID)
	require.Equal(t, uint64(5), transcript.Enrollments[0].CreditsPaid)
	require.Nil(t, transcript.Graduation)
}
