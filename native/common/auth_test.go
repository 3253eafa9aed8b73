package common

import (
	"errors"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"academicchain/crypto"
)

type pauseMap map[string]bool

func (p pauseMap) IsPaused(module string) bool { return p[module] }

func TestRequireSigner(t *testing.T) {
	alice := ethcommon.HexToAddress("0xa1")
	if err := RequireSigner(alice, alice); err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if err := RequireSigner(ethcommon.Address{}, alice); !errors.Is(err, ErrMissingSigner) {
		t.Fatalf("expected missing signer, got %v", err)
	}
	if err := RequireSigner(ethcommon.HexToAddress("0xb2"), alice); !errors.Is(err, ErrSignerMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestRequireProgramSigner(t *testing.T) {
	program := ethcommon.HexToAddress("0xacad")
	seeds := [][]byte{[]byte("config")}
	addr, bump, err := crypto.FindProgramAddress(program, seeds...)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	signer := ProgramSigner{Program: program, Seeds: seeds, Bump: bump}
	if err := RequireProgramSigner(signer, addr); err != nil {
		t.Fatalf("expected valid signer: %v", err)
	}
	derived, err := signer.Address()
	if err != nil || derived != addr {
		t.Fatalf("address mismatch: %s err=%v", derived.Hex(), err)
	}
	forged := ProgramSigner{Program: program, Seeds: [][]byte{[]byte("course")}, Bump: bump}
	if err := RequireProgramSigner(forged, addr); !errors.Is(err, ErrInvalidProgramSigner) {
		t.Fatalf("expected forged signer rejection, got %v", err)
	}
}

func TestGuard(t *testing.T) {
	paused := pauseMap{"academic": true}
	if err := Guard(paused, "academic"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused module, got %v", err)
	}
	if err := Guard(paused, "token"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Guard(paused, "token", "academic"); err == nil || err.Error() != "module paused: academic" {
		t.Fatalf("expected the paused module to be named, got %v", err)
	}
	if err := Guard(nil, "academic"); err != nil {
		t.Fatalf("nil view should not block: %v", err)
	}
}
