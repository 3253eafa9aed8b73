package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaRequestsExceeded  = errors.New("quota requests exceeded")
	ErrQuotaCreditCapExceeded = errors.New("quota credit purchase cap exceeded")
	ErrQuotaCounterOverflow   = errors.New("quota counter overflow")
)

// QuotaNow captures the current quota usage counters for a sender.
type QuotaNow struct {
	ReqCount    uint32
	CreditsUsed uint64
	EpochID     uint64
}

// Quota defines the per-sender limits enforced by the node before a
// transaction reaches a module. Zero disables a limit.
type Quota struct {
	MaxRequestsPerEpoch uint32
	MaxCreditsPerEpoch  uint64
	EpochSeconds        uint32
}

// Epoch maps a unix timestamp to the quota window it falls in.
func (q Quota) Epoch(unix int64) uint64 {
	if unix <= 0 {
		return 0
	}
	window := int64(q.EpochSeconds)
	if window <= 0 {
		window = 60
	}
	return uint64(unix / window)
}

// CheckQuota verifies whether the additional request and credit purchase fit
// within the configured quota. The returned QuotaNow reflects the updated
// counters when the quota is not exceeded.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addReq uint32, addCredits uint64) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerEpoch > 0 && next.ReqCount > q.MaxRequestsPerEpoch {
		return prev, ErrQuotaRequestsExceeded
	}

	if addCredits > 0 {
		if next.CreditsUsed > math.MaxUint64-addCredits {
			return prev, ErrQuotaCounterOverflow
		}
		next.CreditsUsed += addCredits
	}
	if q.MaxCreditsPerEpoch > 0 && next.CreditsUsed > q.MaxCreditsPerEpoch {
		return prev, ErrQuotaCreditCapExceeded
	}

	return next, nil
}
