package rpc

import (
	"encoding/hex"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/crypto"
	"academicchain/native/marker"
)

// ChainInfoResult identifies the network and program served by the node.
type ChainInfoResult struct {
	ChainID   string `json:"chainId"`
	ProgramID string `json:"programId"`
	StateRoot string `json:"stateRoot"`
}

// AccountResult reports the native balance and next nonce of an identity.
type AccountResult struct {
	Address string   `json:"address"`
	Hex     string   `json:"hex"`
	Balance *big.Int `json:"balance"`
	Nonce   uint64   `json:"nonce"`
}

type CreditBalanceResult struct {
	Student string `json:"student"`
	Balance uint64 `json:"balance"`
}

type MarkerResult struct {
	Address      string `json:"address"`
	Owner        string `json:"owner"`
	Kind         string `json:"kind"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	URI          string `json:"uri,omitempty"`
	MetadataHash string `json:"metadataHash"`
	MintedAt     uint64 `json:"mintedAt"`
}

func markerResult(m *marker.Marker) *MarkerResult {
	if m == nil {
		return nil
	}
	return &MarkerResult{
		Address:      crypto.FormatRecord(m.Address),
		Owner:        crypto.FormatIdentity(m.Owner),
		Kind:         m.Kind,
		Name:         m.Name,
		Symbol:       m.Symbol,
		URI:          m.URI,
		MetadataHash: "0x" + hex.EncodeToString(m.MetadataHash[:]),
		MintedAt:     m.MintedAt,
	}
}

func accountResult(addr common.Address, balance *big.Int, nonce uint64) AccountResult {
	if balance == nil {
		balance = new(big.Int)
	}
	return AccountResult{
		Address: crypto.FormatIdentity(addr),
		Hex:     addr.Hex(),
		Balance: balance,
		Nonce:   nonce,
	}
}
