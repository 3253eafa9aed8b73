package types

import "github.com/ethereum/go-ethereum/common"

const (
	ReceiptStatusFailed  uint8 = 0
	ReceiptStatusSuccess uint8 = 1
)

// Event is the flattened form of a program event carried in receipts.
// Attribute values are strings; identities use their bech32 form.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attr returns the named attribute, or "" when absent.
func (e Event) Attr(key string) string {
	if e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}

// Receipt records the outcome of an applied transaction. StateRoot is the
// committed root after the transaction; on failure only the sender nonce has
// moved.
type Receipt struct {
	TxHash    string         `json:"txHash"`
	Type      string         `json:"type"`
	From      common.Address `json:"from"`
	Nonce     uint64         `json:"nonce"`
	Status    uint8          `json:"status"`
	Error     string         `json:"error,omitempty"`
	ErrorKind string         `json:"errorKind,omitempty"`
	// ErrorName and ErrorCode identify program errors; both are empty for
	// host or decoding failures.
	ErrorName string         `json:"errorName,omitempty"`
	ErrorCode uint32         `json:"errorCode,omitempty"`
	Events    []Event        `json:"events"`
	StateRoot common.Hash    `json:"stateRoot"`
}

// Succeeded reports whether the transaction's writes were committed.
func (r *Receipt) Succeeded() bool { return r != nil && r.Status == ReceiptStatusSuccess }

// FindEvent returns the first event of the given type.
func (r *Receipt) FindEvent(eventType string) (Event, bool) {
	if r == nil {
		return Event{}, false
	}
	for _, evt := range r.Events {
		if evt.Type == eventType {
			return evt, true
		}
	}
	return Event{}, false
}
