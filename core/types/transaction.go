package types

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TxType identifies the program instruction carried by a transaction.
type TxType byte

const (
	TxTypeBootstrap       TxType = 0x01 // Initialise the program configuration
	TxTypePurchaseCredits TxType = 0x02 // Buy credits with native currency
	TxTypeCreateCourse    TxType = 0x03 // Publish a course (configuration authority)
	TxTypeRegisterCourse  TxType = 0x04 // Burn credits to enroll
	TxTypeCompleteCourse  TxType = 0x05 // Instructor records a grade
	TxTypeMintCertificate TxType = 0x06 // Student mints the course certificate
	TxTypeClaimGraduation TxType = 0x07 // Student claims the graduation marker
	TxTypeSetCourseActive TxType = 0x08 // Toggle course availability
	TxTypeSetCreditPrice  TxType = 0x09 // Reprice credits
)

var ErrUnknownTxType = errors.New("types: unknown transaction type")

var txTypeNames = map[TxType]string{
	TxTypeBootstrap:       "bootstrap",
	TxTypePurchaseCredits: "purchase_credits",
	TxTypeCreateCourse:    "create_course",
	TxTypeRegisterCourse:  "register_course",
	TxTypeCompleteCourse:  "complete_course",
	TxTypeMintCertificate: "mint_certificate",
	TxTypeClaimGraduation: "claim_graduation",
	TxTypeSetCourseActive: "set_course_active",
	TxTypeSetCreditPrice:  "set_credit_price",
}

func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// Valid reports whether the type maps to a known instruction.
func (t TxType) Valid() bool {
	_, ok := txTypeNames[t]
	return ok
}

// ParseTxType resolves the snake_case instruction name used by the CLI and RPC.
func ParseTxType(name string) (TxType, error) {
	for t, n := range txTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTxType, name)
}

// Transaction is a signed instruction. Data carries the JSON encoded payload
// for Type; the signer recovered from R, S and V is the authenticated caller.
type Transaction struct {
	ChainID *big.Int `json:"chainId"`
	Type    TxType   `json:"type"`
	Nonce   uint64   `json:"nonce"`
	Data    []byte   `json:"data"`

	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from *common.Address
}

// Hash returns the signing digest. The signature fields are excluded.
func (tx *Transaction) Hash() ([]byte, error) {
	chainID := tx.ChainID
	if chainID == nil {
		chainID = big.NewInt(0)
	}
	txData := struct {
		ChainID *big.Int
		Type    TxType
		Nonce   uint64
		Data    []byte
	}{chainID, tx.Type, tx.Nonce, tx.Data}

	b, err := json.Marshal(txData)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(b)
	return hash[:], nil
}

// SetPayload JSON encodes payload into Data.
func (tx *Transaction) SetPayload(payload interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	tx.Data = encoded
	tx.from = nil
	return nil
}

// DecodePayload unmarshals Data into out. Unknown fields are rejected.
func (tx *Transaction) DecodePayload(out interface{}) error {
	if len(tx.Data) == 0 {
		return errors.New("types: empty transaction payload")
	}
	if err := json.Unmarshal(tx.Data, out); err != nil {
		return fmt.Errorf("types: decode %s payload: %w", tx.Type, err)
	}
	return nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the signer. The result is cached after the first call.
func (tx *Transaction) From() (common.Address, error) {
	if tx.from != nil {
		return *tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return common.Address{}, errors.New("types: transaction is not signed")
	}
	if tx.V.Uint64() < 27 {
		return common.Address{}, errors.New("types: invalid signature recovery id")
	}
	hash, err := tx.Hash()
	if err != nil {
		return common.Address{}, err
	}
	rBytes, sBytes := tx.R.Bytes(), tx.S.Bytes()
	if len(rBytes) > 32 || len(sBytes) > 32 {
		return common.Address{}, errors.New("types: malformed signature")
	}
	sig := make([]byte, 65)
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, err
	}
	addr := crypto.PubkeyToAddress(*pubKey)
	tx.from = &addr
	return addr, nil
}

// ID returns the hex encoded signing hash, used as the receipt key.
func (tx *Transaction) ID() (string, error) {
	hash, err := tx.Hash()
	if err != nil {
		return "", err
	}
	return common.BytesToHash(hash).Hex(), nil
}
