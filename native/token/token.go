package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"academicchain/core/events"
	"academicchain/core/state"
	nativecommon "academicchain/native/common"
)

// ModuleName identifies the ledger for pause checks.
const ModuleName = "token"

var (
	ErrUnknownToken        = errors.New("token: unknown token")
	ErrInvalidAmount       = errors.New("token: amount must be positive")
	ErrMintPaused          = errors.New("token: minting paused")
	ErrUnauthorizedMint    = errors.New("token: mint authority mismatch")
	ErrUnauthorizedBurn    = errors.New("token: burn authority must own the balance")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrBalanceOverflow     = errors.New("token: balance overflow")
)

type ledgerState interface {
	RegisterToken(meta *state.TokenMetadata) error
	Token(symbol string) (*state.TokenMetadata, error)
	Balance(addr common.Address, symbol string) (*big.Int, error)
	SetBalance(addr common.Address, symbol string, amount *big.Int) error
	AdjustTokenSupply(symbol string, delta *big.Int) (*big.Int, error)
}

// Engine is the fungible token ledger. Balances are bounded to 64 bits.
type Engine struct {
	state   ledgerState
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

func (e *Engine) SetState(s ledgerState) { e.state = s }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errors.New("token: state not configured")
	}
	return nil
}

// Register creates a token whose mint authority is the address derived from
// signer. Only that program can mint.
func (e *Engine) Register(symbol, name string, decimals uint8, signer nativecommon.ProgramSigner) error {
	if err := e.ready(); err != nil {
		return err
	}
	authority, err := signer.Address()
	if err != nil {
		return fmt.Errorf("token: derive mint authority: %w", err)
	}
	seeds := make([][]byte, len(signer.Seeds))
	for i, seed := range signer.Seeds {
		seeds[i] = append([]byte(nil), seed...)
	}
	return e.state.RegisterToken(&state.TokenMetadata{
		Symbol:        symbol,
		Name:          name,
		Decimals:      decimals,
		MintAuthority: authority,
		MintProgram:   signer.Program,
		MintSeeds:     seeds,
		MintBump:      signer.Bump,
	})
}

// Exists reports whether symbol is registered.
func (e *Engine) Exists(symbol string) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	meta, err := e.state.Token(symbol)
	if err != nil {
		return false, err
	}
	return meta != nil, nil
}

func (e *Engine) metadata(symbol string) (*state.TokenMetadata, error) {
	meta, err := e.state.Token(symbol)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, strings.ToUpper(strings.TrimSpace(symbol)))
	}
	return meta, nil
}

func (e *Engine) balance(addr common.Address, symbol string) (*uint256.Int, error) {
	raw, err := e.state.Balance(addr, symbol)
	if err != nil {
		return nil, err
	}
	bal, overflow := uint256.FromBig(raw)
	if overflow || !bal.IsUint64() {
		return nil, ErrBalanceOverflow
	}
	return bal, nil
}

// BalanceOf returns the balance of addr.
func (e *Engine) BalanceOf(symbol string, addr common.Address) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if _, err := e.metadata(symbol); err != nil {
		return 0, err
	}
	bal, err := e.balance(addr, symbol)
	if err != nil {
		return 0, err
	}
	return bal.Uint64(), nil
}

// Mint credits amount to to. The signer must re-derive to the registered mint
// authority.
func (e *Engine) Mint(symbol string, to common.Address, amount uint64, signer nativecommon.ProgramSigner) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	meta, err := e.metadata(symbol)
	if err != nil {
		return err
	}
	if meta.MintPaused {
		return ErrMintPaused
	}
	if signer.Program != meta.MintProgram {
		return ErrUnauthorizedMint
	}
	if err := nativecommon.RequireProgramSigner(signer, meta.MintAuthority); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorizedMint, err)
	}
	bal, err := e.balance(to, meta.Symbol)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(bal, uint256.NewInt(amount))
	if overflow || !next.IsUint64() {
		return ErrBalanceOverflow
	}
	if err := e.state.SetBalance(to, meta.Symbol, next.ToBig()); err != nil {
		return err
	}
	total, err := e.state.AdjustTokenSupply(meta.Symbol, new(big.Int).SetUint64(amount))
	if err != nil {
		return err
	}
	e.emitter.Emit(events.TokenSupply{
		Token:   meta.Symbol,
		Account: to,
		Total:   total.Uint64(),
		Delta:   amount,
		Reason:  events.SupplyReasonMint,
	})
	return nil
}

// Burn destroys amount from from. Only the holder may burn its balance.
func (e *Engine) Burn(symbol string, from common.Address, amount uint64, authority common.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if err := nativecommon.RequireSigner(authority, from); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorizedBurn, err)
	}
	meta, err := e.metadata(symbol)
	if err != nil {
		return err
	}
	bal, err := e.balance(from, meta.Symbol)
	if err != nil {
		return err
	}
	value := uint256.NewInt(amount)
	if bal.Lt(value) {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, bal.Uint64(), amount)
	}
	if err := e.state.SetBalance(from, meta.Symbol, new(uint256.Int).Sub(bal, value).ToBig()); err != nil {
		return err
	}
	total, err := e.state.AdjustTokenSupply(meta.Symbol, new(big.Int).Neg(new(big.Int).SetUint64(amount)))
	if err != nil {
		return err
	}
	e.emitter.Emit(events.TokenSupply{
		Token:   meta.Symbol,
		Account: from,
		Total:   total.Uint64(),
		Delta:   amount,
		Reason:  events.SupplyReasonBurn,
	})
	return nil
}
