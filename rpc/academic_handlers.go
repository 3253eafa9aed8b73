package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/types"
	"academicchain/crypto"
	"academicchain/native/academic"
)

func (s *Server) academicMethods() map[string]method {
	return map[string]method{
		"academic_sendTransaction":  {handler: s.handleSendTransaction, write: true},
		"academic_getReceipt":       {handler: s.handleGetReceipt},
		"academic_chainInfo":        {handler: s.handleChainInfo},
		"academic_getConfig":        {handler: s.handleGetConfig},
		"academic_getCourse":        {handler: s.handleGetCourse},
		"academic_listCourses":      {handler: s.handleListCourses},
		"academic_getEnrollment":    {handler: s.handleGetEnrollment},
		"academic_listEnrollments":  {handler: s.handleListEnrollments},
		"academic_getProfile":       {handler: s.handleGetProfile},
		"academic_getCreditBalance": {handler: s.handleGetCreditBalance},
		"academic_getAccount":       {handler: s.handleGetAccount},
		"academic_getMarker":        {handler: s.handleGetMarker},
		"academic_listMarkers":      {handler: s.handleListMarkers},
		"academic_isPassingGrade":   {handler: s.handleIsPassingGrade},
	}
}

// paramString returns the string exactly as sent. Course ids are keys, so
// surrounding whitespace is significant.
func paramString(params []json.RawMessage, idx int, name string) (string, error) {
	if len(params) <= idx {
		return "", invalidParams(fmt.Sprintf("%s parameter required", name), nil)
	}
	var value string
	if err := json.Unmarshal(params[idx], &value); err != nil {
		return "", invalidParams(fmt.Sprintf("%s must be a string", name), err.Error())
	}
	return value, nil
}

// paramToken is paramString for hex or bech32 values, which are trimmed and
// must be present.
func paramToken(params []json.RawMessage, idx int, name string) (string, error) {
	value, err := paramString(params, idx, name)
	if err != nil {
		return "", err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalidParams(fmt.Sprintf("%s must not be empty", name), nil)
	}
	return value, nil
}

func paramIdentity(params []json.RawMessage, idx int, name string) (common.Address, error) {
	raw, err := paramToken(params, idx, name)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := crypto.ParseIdentity(raw)
	if err != nil {
		return common.Address{}, invalidParams(fmt.Sprintf("invalid %s", name), err.Error())
	}
	return addr, nil
}

func (s *Server) handleSendTransaction(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, invalidParams("transaction parameter required", nil)
	}
	var tx types.Transaction
	if err := json.Unmarshal(params[0], &tx); err != nil {
		return nil, invalidParams("invalid transaction format", err.Error())
	}
	receipt, err := s.node.ApplyTransaction(ctx, &tx)
	if err != nil {
		return nil, rejectedError{err: err}
	}
	return receipt, nil
}

func (s *Server) handleGetReceipt(_ context.Context, params []json.RawMessage) (interface{}, error) {
	hash, err := paramToken(params, 0, "hash")
	if err != nil {
		return nil, err
	}
	return s.node.Receipt(hash)
}

func (s *Server) handleChainInfo(_ context.Context, _ []json.RawMessage) (interface{}, error) {
	root, err := s.node.StateRoot()
	if err != nil {
		return nil, err
	}
	return ChainInfoResult{
		ChainID:   s.node.ChainID().String(),
		ProgramID: s.node.ProgramID().Hex(),
		StateRoot: root.Hex(),
	}, nil
}

func (s *Server) handleGetConfig(_ context.Context, _ []json.RawMessage) (interface{}, error) {
	return s.node.Config()
}

func (s *Server) handleGetCourse(_ context.Context, params []json.RawMessage) (interface{}, error) {
	courseID, err := paramString(params, 0, "courseId")
	if err != nil {
		return nil, err
	}
	return s.node.Course(courseID)
}

func (s *Server) handleListCourses(_ context.Context, _ []json.RawMessage) (interface{}, error) {
	return s.node.Courses()
}

func (s *Server) handleGetEnrollment(_ context.Context, params []json.RawMessage) (interface{}, error) {
	student, err := paramIdentity(params, 0, "student")
	if err != nil {
		return nil, err
	}
	courseID, err := paramString(params, 1, "courseId")
	if err != nil {
		return nil, err
	}
	return s.node.Enrollment(student, courseID)
}

func (s *Server) handleListEnrollments(_ context.Context, params []json.RawMessage) (interface{}, error) {
	student, err := paramIdentity(params, 0, "student")
	if err != nil {
		return nil, err
	}
	return s.node.Enrollments(student)
}

func (s *Server) handleGetProfile(_ context.Context, params []json.RawMessage) (interface{}, error) {
	student, err := paramIdentity(params, 0, "student")
	if err != nil {
		return nil, err
	}
	return s.node.Profile(student)
}

func (s *Server) handleGetCreditBalance(_ context.Context, params []json.RawMessage) (interface{}, error) {
	student, err := paramIdentity(params, 0, "student")
	if err != nil {
		return nil, err
	}
	balance, err := s.node.CreditBalance(student)
	if err != nil {
		return nil, err
	}
	return CreditBalanceResult{Student: crypto.FormatIdentity(student), Balance: balance}, nil
}

func (s *Server) handleGetAccount(_ context.Context, params []json.RawMessage) (interface{}, error) {
	addr, err := paramIdentity(params, 0, "address")
	if err != nil {
		return nil, err
	}
	account, err := s.node.Account(addr)
	if err != nil {
		return nil, err
	}
	return accountResult(addr, account.Balance, account.Nonce), nil
}

func (s *Server) handleGetMarker(_ context.Context, params []json.RawMessage) (interface{}, error) {
	addr, err := paramIdentity(params, 0, "marker")
	if err != nil {
		return nil, err
	}
	m, err := s.node.Marker(addr)
	if err != nil {
		return nil, err
	}
	return markerResult(m), nil
}

func (s *Server) handleListMarkers(_ context.Context, params []json.RawMessage) (interface{}, error) {
	owner, err := paramIdentity(params, 0, "owner")
	if err != nil {
		return nil, err
	}
	list, err := s.node.MarkersOwnedBy(owner)
	if err != nil {
		return nil, err
	}
	out := make([]*MarkerResult, 0, len(list))
	for _, m := range list {
		out = append(out, markerResult(m))
	}
	return out, nil
}

func (s *Server) handleIsPassingGrade(_ context.Context, params []json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, invalidParams("grade parameter required", nil)
	}
	var grade uint8
	if err := json.Unmarshal(params[0], &grade); err != nil {
		return nil, invalidParams("grade must be an integer between 0 and 255", err.Error())
	}
	return academic.IsPassingGrade(grade), nil
}
