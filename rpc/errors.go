package rpc

import (
	"errors"
	"net/http"

	"academicchain/core"
	"academicchain/native/academic"
	"academicchain/native/marker"
)

// ErrorData accompanies program errors so clients can branch on the stable
// name or numeric code.
type ErrorData struct {
	Name        string `json:"name"`
	ProgramCode uint32 `json:"programCode"`
	Kind        string `json:"kind"`
}

// rejectedError marks a transaction refused before execution.
type rejectedError struct{ err error }

func (e rejectedError) Error() string { return e.err.Error() }
func (e rejectedError) Unwrap() error { return e.err }

func invalidParams(message string, data interface{}) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: message, Data: data}
}

func (s *Server) toRPCError(err error) (int, *RPCError) {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return http.StatusBadRequest, rpcErr
	}
	if programErr, ok := academic.AsError(err); ok {
		return programError(programErr, err)
	}
	var rejected rejectedError
	if errors.As(err, &rejected) {
		return http.StatusBadRequest, &RPCError{Code: codeRejected, Message: err.Error()}
	}
	switch {
	case errors.Is(err, core.ErrReceiptNotFound), errors.Is(err, marker.ErrMarkerNotFound):
		return http.StatusNotFound, &RPCError{Code: codeNotFound, Message: err.Error()}
	}
	return http.StatusInternalServerError, &RPCError{Code: codeServerError, Message: "internal error"}
}

func programError(programErr *academic.Error, err error) (int, *RPCError) {
	data := ErrorData{Name: programErr.Name, ProgramCode: programErr.Code, Kind: string(programErr.Kind)}
	switch programErr.Kind {
	case academic.KindNotFound:
		return http.StatusNotFound, &RPCError{Code: codeNotFound, Message: err.Error(), Data: data}
	case academic.KindAuthorization:
		return http.StatusForbidden, &RPCError{Code: codeForbidden, Message: err.Error(), Data: data}
	default:
		return http.StatusBadRequest, &RPCError{Code: codeProgramError, Message: err.Error(), Data: data}
	}
}
