package bank

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"academicchain/core/events"
	"academicchain/core/types"
)

var (
	ErrInvalidAmount     = errors.New("bank: amount must be positive")
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	ErrBalanceOverflow   = errors.New("bank: balance overflow")
)

type accountState interface {
	GetAccount(addr common.Address) (*types.Account, error)
	PutAccount(addr common.Address, account *types.Account) error
}

// Engine moves native currency between accounts.
type Engine struct {
	state   accountState
	emitter events.Emitter
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

func (e *Engine) SetState(state accountState) { e.state = state }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errors.New("bank: state not configured")
	}
	return nil
}

func (e *Engine) balance(addr common.Address) (*types.Account, *uint256.Int, error) {
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, nil, err
	}
	bal, overflow := uint256.FromBig(account.Balance)
	if overflow {
		return nil, nil, ErrBalanceOverflow
	}
	return account, bal, nil
}

// Balance returns the native balance of addr.
func (e *Engine) Balance(addr common.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.Balance), nil
}

// Transfer debits from and credits to. Nothing is written when the sender
// cannot cover amount.
func (e *Engine) Transfer(from, to common.Address, amount uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	value := uint256.NewInt(amount)
	fromAcc, fromBal, err := e.balance(from)
	if err != nil {
		return err
	}
	if fromBal.Lt(value) {
		return fmt.Errorf("%w: have %s, need %d", ErrInsufficientFunds, fromBal.Dec(), amount)
	}
	if from == to {
		e.emitter.Emit(events.Transfer{From: from, To: to, Amount: amount})
		return nil
	}
	toAcc, toBal, err := e.balance(to)
	if err != nil {
		return err
	}
	credited, overflow := new(uint256.Int).AddOverflow(toBal, value)
	if overflow {
		return ErrBalanceOverflow
	}
	fromAcc.Balance = new(uint256.Int).Sub(fromBal, value).ToBig()
	toAcc.Balance = credited.ToBig()
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(to, toAcc); err != nil {
		return err
	}
	e.emitter.Emit(events.Transfer{From: from, To: to, Amount: amount})
	return nil
}

// Credit adds amount to addr. It is used to seed balances at genesis.
func (e *Engine) Credit(addr common.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return ErrBalanceOverflow
	}
	account, bal, err := e.balance(addr)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(bal, value)
	if overflow {
		return ErrBalanceOverflow
	}
	account.Balance = sum.ToBig()
	return e.state.PutAccount(addr, account)
}
