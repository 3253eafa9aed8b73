package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"academicchain/core/types"
)

var accountPrefix = []byte("account/")

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

func accountKey(addr common.Address) []byte {
	return append(append([]byte(nil), accountPrefix...), addr.Bytes()...)
}

// GetAccount returns the native account for addr. Unknown accounts are
// returned zeroed.
func (m *Manager) GetAccount(addr common.Address) (*types.Account, error) {
	stored := new(storedAccount)
	ok, err := m.KVGet(accountKey(addr), stored)
	if err != nil {
		return nil, err
	}
	account := &types.Account{Balance: big.NewInt(0)}
	if ok {
		account.Nonce = stored.Nonce
		if stored.Balance != nil {
			account.Balance = stored.Balance
		}
	}
	return account, nil
}

// PutAccount persists the account. Balances must fit in 256 bits.
func (m *Manager) PutAccount(addr common.Address, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("account must not be nil")
	}
	balance := account.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	if balance.Sign() < 0 {
		return fmt.Errorf("negative balance not allowed")
	}
	if _, overflow := uint256.FromBig(balance); overflow {
		return fmt.Errorf("balance overflows 256 bits")
	}
	return m.KVPut(accountKey(addr), &storedAccount{Nonce: account.Nonce, Balance: balance})
}
