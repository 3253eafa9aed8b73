package academic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/events"
	nativecommon "academicchain/native/common"
)

// Bootstrap creates the program configuration. The caller becomes the
// configuration authority. A zero price selects DefaultCreditPrice and an
// empty mint selects DefaultCreditSymbol. When the credit token is not yet
// registered it is registered with the configuration address as its mint
// authority.
func (e *Engine) Bootstrap(caller, treasury common.Address, creditMint string, price uint64) (*ProgramConfig, error) {
	if err := e.begin(caller); err != nil {
		return nil, err
	}
	if e.ledger == nil {
		return nil, errNilCollaborator
	}
	if treasury == (common.Address{}) {
		return nil, ErrInvalidTreasury
	}
	if price == 0 {
		price = DefaultCreditPrice
	}
	creditMint = strings.ToUpper(strings.TrimSpace(creditMint))
	if creditMint == "" {
		creditMint = DefaultCreditSymbol
	}
	key, err := e.configKey()
	if err != nil {
		return nil, err
	}
	cfg := &ProgramConfig{
		Address:     key.Address,
		Authority:   caller,
		Treasury:    treasury,
		CreditMint:  creditMint,
		CreditPrice: price,
		Bump:        key.Bump,
	}
	if err := e.createRecord(key.Address, programConfigTag, cfg); err != nil {
		if errors.Is(err, errRecordExists) {
			return nil, ErrAlreadyInitialized
		}
		return nil, err
	}
	exists, err := e.ledger.Exists(creditMint)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if !exists {
		if err := e.ledger.Register(creditMint, "Academic Credit", 0, key.signer(e.programID)); err != nil {
			return nil, fmt.Errorf("bootstrap: register credit mint: %w", err)
		}
	}
	e.emit(events.ProgramInitialized{
		Config:      key.Address,
		Authority:   caller,
		Treasury:    treasury,
		CreditMint:  creditMint,
		CreditPrice: price,
	})
	return cfg, nil
}

// SetCreditPrice reprices credits. Only the configuration authority may call it.
func (e *Engine) SetCreditPrice(caller common.Address, price uint64) (*ProgramConfig, error) {
	if err := e.begin(caller); err != nil {
		return nil, err
	}
	cfg, key, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := nativecommon.RequireSigner(caller, cfg.Authority); err != nil {
		return nil, ErrUnauthorized
	}
	if price == 0 {
		return nil, ErrInvalidPrice
	}
	previous := cfg.CreditPrice
	cfg.CreditPrice = price
	if err := e.updateRecord(key.Address, cfg); err != nil {
		return nil, err
	}
	e.emit(events.CreditPriceUpdated{Authority: caller, Previous: previous, Price: price})
	return cfg, nil
}
