package types

import "math/big"

// Account is the native-currency account of an identity.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}
