package state

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TokenMetadata describes a fungible token registered with the ledger. The
// mint authority is a program-derived address; MintProgram and MintSeeds let
// the ledger re-derive it before honouring a mint.
type TokenMetadata struct {
	Symbol        string
	Name          string
	Decimals      uint8
	MintAuthority common.Address
	MintProgram   common.Address
	MintSeeds     [][]byte
	MintBump      uint8
	MintPaused    bool
}

var (
	tokenPrefix       = []byte("token/meta/")
	tokenListKey      = []byte("token/list")
	tokenSupplyPrefix = []byte("token/supply/")
	balancePrefix     = []byte("token/balance/")
)

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func tokenMetadataKey(symbol string) []byte {
	return append(append([]byte(nil), tokenPrefix...), symbol...)
}

func tokenSupplyKey(symbol string) []byte {
	return append(append([]byte(nil), tokenSupplyPrefix...), symbol...)
}

func balanceKey(addr common.Address, symbol string) []byte {
	buf := make([]byte, 0, len(balancePrefix)+len(symbol)+1+common.AddressLength)
	buf = append(buf, balancePrefix...)
	buf = append(buf, symbol...)
	buf = append(buf, ':')
	return append(buf, addr.Bytes()...)
}

// RegisterToken stores the metadata for a token and records it in the token
// index.
func (m *Manager) RegisterToken(meta *TokenMetadata) error {
	if meta == nil {
		return fmt.Errorf("token metadata required")
	}
	normalized := normalizeSymbol(meta.Symbol)
	if normalized == "" {
		return fmt.Errorf("token symbol must not be empty")
	}
	if strings.TrimSpace(meta.Name) == "" {
		return fmt.Errorf("token %s: name must not be empty", normalized)
	}
	if existing, err := m.Token(normalized); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("token %s already registered", normalized)
	}

	var list []string
	if err := m.KVGetList(tokenListKey, &list); err != nil {
		return err
	}
	list = append(list, normalized)
	sort.Strings(list)
	if err := m.KVPut(tokenListKey, list); err != nil {
		return err
	}
	stored := *meta
	stored.Symbol = normalized
	return m.KVPut(tokenMetadataKey(normalized), &stored)
}

// SetTokenMintPaused stores the paused state for the given token.
func (m *Manager) SetTokenMintPaused(symbol string, paused bool) error {
	meta, err := m.Token(symbol)
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("token %s not registered", normalizeSymbol(symbol))
	}
	meta.MintPaused = paused
	return m.KVPut(tokenMetadataKey(meta.Symbol), meta)
}

// Token retrieves metadata for a registered token. A missing token yields nil.
func (m *Manager) Token(symbol string) (*TokenMetadata, error) {
	normalized := normalizeSymbol(symbol)
	if normalized == "" {
		return nil, fmt.Errorf("token symbol must not be empty")
	}
	meta := new(TokenMetadata)
	ok, err := m.KVGet(tokenMetadataKey(normalized), meta)
	if err != nil || !ok {
		return nil, err
	}
	return meta, nil
}

// TokenList returns all registered token symbols in sorted order.
func (m *Manager) TokenList() ([]string, error) {
	var list []string
	if err := m.KVGetList(tokenListKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetBalance stores an account balance for the provided token.
func (m *Manager) SetBalance(addr common.Address, symbol string, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative balance not allowed")
	}
	normalized := normalizeSymbol(symbol)
	if meta, err := m.Token(normalized); err != nil {
		return err
	} else if meta == nil {
		return fmt.Errorf("token %s not registered", normalized)
	}
	return m.KVPut(balanceKey(addr, normalized), amount)
}

// Balance retrieves a token balance for the provided account and token.
func (m *Manager) Balance(addr common.Address, symbol string) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(balanceKey(addr, normalizeSymbol(symbol)), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// TokenSupply returns the persisted total supply for the provided token. Missing
// entries default to zero.
func (m *Manager) TokenSupply(symbol string) (*big.Int, error) {
	normalized := normalizeSymbol(symbol)
	if normalized == "" {
		return nil, fmt.Errorf("token symbol required")
	}
	total := new(big.Int)
	ok, err := m.KVGet(tokenSupplyKey(normalized), total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return total, nil
}

// AdjustTokenSupply increments the stored total supply by the supplied delta and
// returns the updated total.
func (m *Manager) AdjustTokenSupply(symbol string, delta *big.Int) (*big.Int, error) {
	normalized := normalizeSymbol(symbol)
	if delta == nil {
		delta = big.NewInt(0)
	}
	current, err := m.TokenSupply(normalized)
	if err != nil {
		return nil, err
	}
	updated := new(big.Int).Add(current, delta)
	if updated.Sign() < 0 {
		return nil, fmt.Errorf("token %s supply underflow", normalized)
	}
	if err := m.KVPut(tokenSupplyKey(normalized), updated); err != nil {
		return nil, err
	}
	return updated, nil
}
