package academic

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/events"
	nativecommon "academicchain/native/common"
	"academicchain/native/marker"
)

var (
	errNilState        = errors.New("academic engine: state not configured")
	errNilCollaborator = errors.New("academic engine: collaborator not configured")
	errRecordExists    = errors.New("academic engine: record address occupied")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// CreditLedger is the fungible token ledger holding student credits.
type CreditLedger interface {
	Exists(symbol string) (bool, error)
	Register(symbol, name string, decimals uint8, signer nativecommon.ProgramSigner) error
	Mint(symbol string, to common.Address, amount uint64, signer nativecommon.ProgramSigner) error
	Burn(symbol string, from common.Address, amount uint64, authority common.Address) error
	BalanceOf(symbol string, addr common.Address) (uint64, error)
}

// NativeBank moves native currency.
type NativeBank interface {
	Transfer(from, to common.Address, amount uint64) error
}

// MarkerCreator issues non-fungible markers at program-derived addresses.
type MarkerCreator interface {
	Mint(req marker.MintRequest, signer nativecommon.ProgramSigner) (*marker.Marker, error)
}

// Engine runs the credit economy, course lifecycle and credential issuance
// transitions. It performs no locking; callers serialise access and discard
// state on error.
type Engine struct {
	programID common.Address
	state     engineState
	ledger    CreditLedger
	bank      NativeBank
	markers   MarkerCreator
	pauses    nativecommon.PauseView
	emitter   events.Emitter
	nowFn     func() int64
}

// NewEngine constructs an engine deriving its records under programID.
func NewEngine(programID common.Address) *Engine {
	return &Engine{
		programID: programID,
		emitter:   events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// ProgramID returns the address records are derived under.
func (e *Engine) ProgramID() common.Address { return e.programID }

// SetState configures the record store used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the credit token ledger.
func (e *Engine) SetLedger(ledger CreditLedger) { e.ledger = ledger }

// SetBank configures the native transfer primitive.
func (e *Engine) SetBank(bank NativeBank) { e.bank = bank }

// SetMarkers configures the marker creator.
func (e *Engine) SetMarkers(m MarkerCreator) { e.markers = m }

// SetPauses configures the pause view consulted before every transition.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// begin checks the engine is wired and the program is not paused.
func (e *Engine) begin(caller common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return ErrModulePaused
	}
	if caller == (common.Address{}) {
		return ErrMissingSigner
	}
	return nil
}

func (e *Engine) requireCollaborators() error {
	if e.ledger == nil || e.bank == nil || e.markers == nil {
		return errNilCollaborator
	}
	return nil
}

type taggedRecord interface {
	tag() recordTag
	setTag(recordTag)
}

func (c *ProgramConfig) tag() recordTag { return c.Tag }
func (c *ProgramConfig) setTag(t recordTag) { c.Tag = t }
func (c *Course) tag() recordTag { return c.Tag }
func (c *Course) setTag(t recordTag) { c.Tag = t }
func (r *Enrollment) tag() recordTag { return r.Tag }
func (r *Enrollment) setTag(t recordTag) { r.Tag = t }
func (p *StudentProfile) tag() recordTag { return p.Tag }
func (p *StudentProfile) setTag(t recordTag) { p.Tag = t }

// loadRecord reads the record at addr into out. A record stored with a
// different type tag is reported as corrupted.
func (e *Engine) loadRecord(addr common.Address, want recordTag, out taggedRecord) (bool, error) {
	ok, err := e.state.KVGet(recordKey(addr), out)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRecordCorrupted, err)
	}
	if !ok {
		return false, nil
	}
	if out.tag() != want {
		return false, ErrRecordCorrupted
	}
	return true, nil
}

func (e *Engine) occupied(addr common.Address) (bool, error) {
	return e.state.KVGet(recordKey(addr), nil)
}

// createRecord writes a record to a vacant address.
func (e *Engine) createRecord(addr common.Address, tag recordTag, rec taggedRecord) error {
	taken, err := e.occupied(addr)
	if err != nil {
		return err
	}
	if taken {
		return errRecordExists
	}
	rec.setTag(tag)
	return e.state.KVPut(recordKey(addr), rec)
}

// updateRecord rewrites an existing record.
func (e *Engine) updateRecord(addr common.Address, rec taggedRecord) error {
	return e.state.KVPut(recordKey(addr), rec)
}

func (e *Engine) loadConfig() (*ProgramConfig, derived, error) {
	key, err := e.configKey()
	if err != nil {
		return nil, derived{}, err
	}
	cfg := new(ProgramConfig)
	ok, err := e.loadRecord(key.Address, programConfigTag, cfg)
	if err != nil {
		return nil, derived{}, err
	}
	if !ok {
		return nil, derived{}, ErrNotInitialized
	}
	return cfg, key, nil
}

func (e *Engine) loadCourse(courseID string) (*Course, error) {
	key, err := e.courseKey(courseID)
	if err != nil {
		return nil, err
	}
	course := new(Course)
	ok, err := e.loadRecord(key.Address, courseTag, course)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

func (e *Engine) loadEnrollment(student common.Address, courseID string) (*Enrollment, error) {
	key, err := e.enrollmentKey(student, courseID)
	if err != nil {
		return nil, err
	}
	enrollment := new(Enrollment)
	ok, err := e.loadRecord(key.Address, enrollmentTag, enrollment)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEnrollmentNotFound
	}
	return enrollment, nil
}

func (e *Engine) loadProfile(student common.Address) (*StudentProfile, bool, error) {
	key, err := e.profileKey(student)
	if err != nil {
		return nil, false, err
	}
	profile := new(StudentProfile)
	ok, err := e.loadRecord(key.Address, studentProfileTag, profile)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return profile, true, nil
}
