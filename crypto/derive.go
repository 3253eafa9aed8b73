package crypto

import (
	"bytes"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxSeeds bounds the number of seed components of a derived address.
	MaxSeeds = 16
	// MaxSeedLength bounds each seed component.
	MaxSeedLength = 32

	derivationMarker = "ProgramDerivedAddress"
)

var (
	ErrMaxSeedLengthExceeded = errors.New("derive: seed exceeds 32 bytes")
	ErrTooManySeeds          = errors.New("derive: more than 16 seeds")
	ErrReservedAddress       = errors.New("derive: candidate falls in the key-backed range")
	ErrNoViableBump          = errors.New("derive: no viable bump seed")
)

// CreateProgramAddress derives the record address for program and seeds using
// an explicit bump. Candidates whose digest is a valid secp256k1 x-coordinate
// are reserved for key-backed identities and rejected with
// ErrReservedAddress, so no private key can ever sign for a derived address.
func CreateProgramAddress(program common.Address, seeds [][]byte, bump uint8) (common.Address, error) {
	if len(seeds) >= MaxSeeds {
		return common.Address{}, ErrTooManySeeds
	}
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return common.Address{}, ErrMaxSeedLengthExceeded
		}
	}
	var buf bytes.Buffer
	for _, seed := range seeds {
		buf.Write(seed)
	}
	buf.WriteByte(bump)
	buf.Write(program.Bytes())
	buf.WriteString(derivationMarker)
	digest := crypto.Keccak256(buf.Bytes())
	if onCurve(digest) {
		return common.Address{}, ErrReservedAddress
	}
	return common.BytesToAddress(digest[12:]), nil
}

// FindProgramAddress walks bumps from 255 downwards and returns the first
// viable address together with the bump that produced it. The result is a
// pure function of program and seeds.
func FindProgramAddress(program common.Address, seeds ...[]byte) (common.Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateProgramAddress(program, seeds, uint8(bump))
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrReservedAddress) {
			return common.Address{}, 0, err
		}
	}
	return common.Address{}, 0, ErrNoViableBump
}

// VerifyProgramAddress reports whether addr is the derived address for seeds
// and bump. Ledgers use it to accept a program as signing authority.
func VerifyProgramAddress(program common.Address, seeds [][]byte, bump uint8, addr common.Address) bool {
	derived, err := CreateProgramAddress(program, seeds, bump)
	if err != nil {
		return false
	}
	return derived == addr
}

func onCurve(x []byte) bool {
	compressed := make([]byte, 33)
	compressed[0] = 0x02
	copy(compressed[1:], x)
	_, err := crypto.DecompressPubkey(compressed)
	return err == nil
}
