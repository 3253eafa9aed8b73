package rpc

import (
	"context"
	"encoding/json"
	"errors"

	"academicchain/crypto"
	"academicchain/services/indexer"
)

// TranscriptResult is the indexed academic history of a student.
type TranscriptResult struct {
	Student      string                `json:"student"`
	Purchases    []indexer.Purchase    `json:"purchases"`
	Enrollments  []indexer.Enrollment  `json:"enrollments"`
	Certificates []indexer.Certificate `json:"certificates"`
	Graduation   *indexer.Graduation   `json:"graduation,omitempty"`
}

// AttachIndexer exposes indexed history through academic_getTranscript.
func (s *Server) AttachIndexer(ix *indexer.Indexer) {
	if ix == nil {
		return
	}
	s.indexer = ix
	s.methods["academic_getTranscript"] = method{handler: s.handleGetTranscript}
}

func (s *Server) handleGetTranscript(ctx context.Context, params []json.RawMessage) (interface{}, error) {
	addr, err := paramIdentity(params, 0, "student")
	if err != nil {
		return nil, err
	}
	student := crypto.FormatIdentity(addr)
	result := TranscriptResult{Student: student}
	if result.Purchases, err = s.indexer.Purchases(ctx, student); err != nil {
		return nil, err
	}
	if result.Enrollments, err = s.indexer.Transcript(ctx, student); err != nil {
		return nil, err
	}
	if result.Certificates, err = s.indexer.Certificates(ctx, student); err != nil {
		return nil, err
	}
	grad, err := s.indexer.Graduation(ctx, student)
	switch {
	case err == nil:
		result.Graduation = grad
	case !errors.Is(err, indexer.ErrNotIndexed):
		return nil, err
	}
	return result, nil
}
