package common

import (
	"errors"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"academicchain/crypto"
)

var (
	// ErrMissingSigner is returned when an operation runs without an
	// authenticated caller.
	ErrMissingSigner = errors.New("missing signer")
	// ErrSignerMismatch is returned when the caller is not the identity the
	// operation requires.
	ErrSignerMismatch = errors.New("signer mismatch")
	// ErrInvalidProgramSigner is returned when a program-derived authority
	// cannot be re-derived from the supplied seeds and bump.
	ErrInvalidProgramSigner = errors.New("invalid program signer")
)

// ProgramSigner is the authority a program presents when it acts on behalf of
// one of its derived addresses.
type ProgramSigner struct {
	Program ethcommon.Address
	Seeds   [][]byte
	Bump    uint8
}

// Address re-derives the signer address.
func (p ProgramSigner) Address() (ethcommon.Address, error) {
	return crypto.CreateProgramAddress(p.Program, p.Seeds, p.Bump)
}

// RequireSigner checks that the authenticated caller equals expected.
func RequireSigner(caller, expected ethcommon.Address) error {
	if caller == (ethcommon.Address{}) {
		return ErrMissingSigner
	}
	if caller != expected {
		return ErrSignerMismatch
	}
	return nil
}

// RequireProgramSigner checks that signer derives to authority.
func RequireProgramSigner(signer ProgramSigner, authority ethcommon.Address) error {
	if !crypto.VerifyProgramAddress(signer.Program, signer.Seeds, signer.Bump, authority) {
		return ErrInvalidProgramSigner
	}
	return nil
}
