// Package native wires the module engines onto one journaled state manager.
package native

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/events"
	"academicchain/core/state"
	"academicchain/native/academic"
	"academicchain/native/bank"
	nativecommon "academicchain/native/common"
	"academicchain/native/marker"
	"academicchain/native/token"
)

// Options configures a module set. Zero values select defaults.
type Options struct {
	ProgramID common.Address
	Emitter   events.Emitter
	Pauses    nativecommon.PauseView
	Now       func() time.Time
}

// Modules is the engine graph used for a single state transition.
type Modules struct {
	Academic *academic.Engine
	Bank     *bank.Engine
	Token    *token.Engine
	Marker   *marker.Engine
}

// NewModules builds engines that all read and write through manager.
func NewModules(manager *state.Manager, opts Options) *Modules {
	programID := opts.ProgramID
	if programID == (common.Address{}) {
		programID = academic.DefaultProgramID
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	bankEngine := bank.NewEngine()
	bankEngine.SetState(manager)
	bankEngine.SetEmitter(emitter)

	ledger := token.NewEngine()
	ledger.SetState(manager)
	ledger.SetEmitter(emitter)
	ledger.SetPauses(opts.Pauses)

	markers := marker.NewEngine()
	markers.SetState(manager)
	markers.SetEmitter(emitter)
	markers.SetPauses(opts.Pauses)
	markers.SetNowFunc(now)

	engine := academic.NewEngine(programID)
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetBank(bankEngine)
	engine.SetMarkers(markers)
	engine.SetPauses(opts.Pauses)
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return now().Unix() })

	return &Modules{Academic: engine, Bank: bankEngine, Token: ledger, Marker: markers}
}

// PauseSet is a static PauseView keyed by module name.
type PauseSet map[string]bool

func (p PauseSet) IsPaused(module string) bool { return p[module] }

// NewPauseSet builds a PauseSet from configured module names.
func NewPauseSet(modules []string) PauseSet {
	set := make(PauseSet, len(modules))
	for _, m := range modules {
		if m != "" {
			set[m] = true
		}
	}
	return set
}
