package events

import (
	"strings"

	"academicchain/core/types"
)

const (
	// TypeTokenSupply is emitted whenever a token supply changes.
	TypeTokenSupply = "token.supply"
	// TypeTransfer is emitted for native currency balance movements.
	TypeTransfer = "bank.transfer"
	// TypeMarkerMinted is emitted when a non-fungible marker is created.
	TypeMarkerMinted = "marker.minted"

	// SupplyReasonMint identifies mint driven supply increases.
	SupplyReasonMint = "mint"
	// SupplyReasonBurn identifies burn driven supply decreases.
	SupplyReasonBurn = "burn"
)

// TokenSupply captures a supply delta for a fungible token together with the
// account whose balance moved.
type TokenSupply struct {
	Token   string
	Account [20]byte
	Total   uint64
	Delta   uint64
	Reason  string
}

func (TokenSupply) EventType() string { return TypeTokenSupply }

// Event renders the structured supply change event for downstream consumers.
func (e TokenSupply) Event() *types.Event {
	attrs := map[string]string{}
	token := strings.ToUpper(strings.TrimSpace(e.Token))
	if token == "" {
		token = "UNKNOWN"
	}
	attrs["token"] = token
	attrs["account"] = formatIdentity(e.Account)
	attrs["total"] = formatUint(e.Total)
	attrs["delta"] = formatUint(e.Delta)
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: TypeTokenSupply, Attributes: attrs}
}

type Transfer struct {
	From   [20]byte
	To     [20]byte
	Amount uint64
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{
		Type: TypeTransfer,
		Attributes: map[string]string{
			"from":   formatIdentity(e.From),
			"to":     formatIdentity(e.To),
			"amount": formatUint(e.Amount),
		},
	}
}

type MarkerMinted struct {
	Marker       [20]byte
	Owner        [20]byte
	Kind         string
	Name         string
	URI          string
	MetadataHash [32]byte
}

func (MarkerMinted) EventType() string { return TypeMarkerMinted }

func (e MarkerMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeMarkerMinted,
		Attributes: map[string]string{
			"marker":       formatRecord(e.Marker),
			"owner":        formatIdentity(e.Owner),
			"kind":         e.Kind,
			"name":         e.Name,
			"uri":          e.URI,
			"metadataHash": "0x" + hexString(e.MetadataHash[:]),
		},
	}
}
