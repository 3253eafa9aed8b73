package token

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/events"
	"academicchain/core/state"
	"academicchain/crypto"
	nativecommon "academicchain/native/common"
	"academicchain/storage"
)

var program = common.HexToAddress("0xacad")

type pauseSet map[string]bool

func (p pauseSet) IsPaused(module string) bool { return p[module] }

func newTestLedger(t *testing.T) (*Engine, nativecommon.ProgramSigner, *events.Buffer) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	engine := NewEngine()
	engine.SetState(state.NewManager(db))
	buf := &events.Buffer{}
	engine.SetEmitter(buf)

	seeds := [][]byte{[]byte("config")}
	_, bump, err := crypto.FindProgramAddress(program, seeds...)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	signer := nativecommon.ProgramSigner{Program: program, Seeds: seeds, Bump: bump}
	if err := engine.Register("CREDIT", "Academic Credit", 0, signer); err != nil {
		t.Fatalf("register: %v", err)
	}
	return engine, signer, buf
}

func TestMintRequiresProgramAuthority(t *testing.T) {
	engine, signer, buf := newTestLedger(t)
	student := common.HexToAddress("0x51")

	if err := engine.Mint("CREDIT", student, 10, signer); err != nil {
		t.Fatalf("mint: %v", err)
	}
	bal, err := engine.BalanceOf("credit", student)
	if err != nil || bal != 10 {
		t.Fatalf("unexpected balance %d err=%v", bal, err)
	}

	forged := nativecommon.ProgramSigner{Program: program, Seeds: [][]byte{[]byte("course"), []byte("CS101")}}
	forged.Bump = signer.Bump
	if err := engine.Mint("CREDIT", student, 10, forged); !errors.Is(err, ErrUnauthorizedMint) {
		t.Fatalf("expected unauthorized mint, got %v", err)
	}
	other := nativecommon.ProgramSigner{Program: common.HexToAddress("0xbad"), Seeds: signer.Seeds, Bump: signer.Bump}
	if err := engine.Mint("CREDIT", student, 10, other); !errors.Is(err, ErrUnauthorizedMint) {
		t.Fatalf("expected unauthorized mint for foreign program, got %v", err)
	}
	evts := buf.Drain()
	if len(evts) != 1 || evts[0].EventType() != events.TypeTokenSupply {
		t.Fatalf("unexpected events %+v", evts)
	}
}

func TestBurn(t *testing.T) {
	engine, signer, _ := newTestLedger(t)
	student := common.HexToAddress("0x51")
	if err := engine.Mint("CREDIT", student, 10, signer); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := engine.Burn("CREDIT", student, 5, common.HexToAddress("0x99")); !errors.Is(err, ErrUnauthorizedBurn) {
		t.Fatalf("expected unauthorized burn, got %v", err)
	}
	if err := engine.Burn("CREDIT", student, 11, student); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := engine.Burn("CREDIT", student, 4, student); err != nil {
		t.Fatalf("burn: %v", err)
	}
	bal, _ := engine.BalanceOf("CREDIT", student)
	if bal != 6 {
		t.Fatalf("unexpected balance after burn: %d", bal)
	}
}

func TestPausedLedger(t *testing.T) {
	engine, signer, _ := newTestLedger(t)
	engine.SetPauses(pauseSet{ModuleName: true})
	if err := engine.Mint("CREDIT", common.HexToAddress("0x51"), 1, signer); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
}

func TestUnknownToken(t *testing.T) {
	engine, signer, _ := newTestLedger(t)
	if err := engine.Mint("GOLD", common.HexToAddress("0x51"), 1, signer); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected unknown token, got %v", err)
	}
	ok, err := engine.Exists("gold")
	if err != nil || ok {
		t.Fatalf("unexpected exists result %v err=%v", ok, err)
	}
}
