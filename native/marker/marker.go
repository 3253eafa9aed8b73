package marker

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"lukechampine.com/blake3"

	"academicchain/core/events"
	nativecommon "academicchain/native/common"
)

const (
	// ModuleName identifies the marker creator for pause checks.
	ModuleName = "marker"
	// MaxURILength bounds the metadata URI stored with a marker.
	MaxURILength = 200
	// MaxNameLength bounds the display name of a marker.
	MaxNameLength = 160
	// MaxSymbolLength bounds the collection symbol of a marker.
	MaxSymbolLength = 10

	KindCertificate = "certificate"
	KindGraduation  = "graduation"
)

var (
	ErrMarkerExists   = errors.New("marker: address already holds a marker")
	ErrMarkerNotFound = errors.New("marker: not found")
	ErrInvalidURI     = errors.New("marker: metadata uri exceeds 200 bytes")
	ErrInvalidName    = errors.New("marker: name must be 1..160 bytes")
	ErrInvalidSymbol  = errors.New("marker: symbol must be 1..10 bytes")
	ErrInvalidKind    = errors.New("marker: unknown kind")
	ErrInvalidOwner   = errors.New("marker: owner required")
	ErrUnauthorized   = errors.New("marker: signer does not derive to marker address")
)

// Marker is a non-fungible record owned by a single identity.
type Marker struct {
	Address      common.Address
	Owner        common.Address
	Kind         string
	Name         string
	Symbol       string
	URI          string
	MetadataHash [32]byte
	MintedAt     uint64
}

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Engine creates markers at program-derived addresses.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() time.Time
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}, nowFn: time.Now}
}

func (e *Engine) SetState(s engineState) { e.state = s }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

func markerKey(addr common.Address) []byte {
	return append([]byte("marker/"), addr.Bytes()...)
}

func ownerIndexKey(owner common.Address) []byte {
	return append([]byte("marker/owner/"), owner.Bytes()...)
}

// MintRequest describes a marker to create.
type MintRequest struct {
	Address common.Address
	Owner   common.Address
	Kind    string
	Name    string
	Symbol  string
	URI     string
}

// MetadataHash commits to every descriptive field of req.
func MetadataHash(req MintRequest) [32]byte {
	var buf bytes.Buffer
	buf.WriteString(req.Kind)
	buf.WriteByte(0)
	buf.Write(req.Owner.Bytes())
	for _, field := range []string{req.Name, req.Symbol, req.URI} {
		buf.WriteString(field)
		buf.WriteByte(0)
	}
	return blake3.Sum256(buf.Bytes())
}

func (r *MintRequest) normalize() error {
	if r.Kind != KindCertificate && r.Kind != KindGraduation {
		return fmt.Errorf("%w: %q", ErrInvalidKind, r.Kind)
	}
	if r.Owner == (common.Address{}) {
		return ErrInvalidOwner
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" || len(r.Name) > MaxNameLength {
		return ErrInvalidName
	}
	r.Symbol = strings.TrimSpace(r.Symbol)
	if r.Symbol == "" || len(r.Symbol) > MaxSymbolLength {
		return ErrInvalidSymbol
	}
	r.URI = strings.TrimSpace(r.URI)
	if len(r.URI) > MaxURILength {
		return ErrInvalidURI
	}
	return nil
}

// Mint creates the marker described by req. signer must derive to
// req.Address, so only the program owning the address can create it.
func (e *Engine) Mint(req MintRequest, signer nativecommon.ProgramSigner) (*Marker, error) {
	if e == nil || e.state == nil {
		return nil, errors.New("marker: state not configured")
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}
	addr, owner := req.Address, req.Owner
	if err := nativecommon.RequireProgramSigner(signer, addr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	exists, err := e.state.KVGet(markerKey(addr), nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrMarkerExists
	}
	m := &Marker{
		Address:      addr,
		Owner:        owner,
		Kind:         req.Kind,
		Name:         req.Name,
		Symbol:       req.Symbol,
		URI:          req.URI,
		MetadataHash: MetadataHash(req),
		MintedAt:     uint64(e.nowFn().UTC().Unix()),
	}
	if err := e.state.KVPut(markerKey(addr), m); err != nil {
		return nil, err
	}
	if err := e.state.KVAppend(ownerIndexKey(owner), addr.Bytes()); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.MarkerMinted{
		Marker:       addr,
		Owner:        owner,
		Kind:         m.Kind,
		Name:         m.Name,
		URI:          m.URI,
		MetadataHash: m.MetadataHash,
	})
	return m, nil
}

// Get returns the marker stored at addr.
func (e *Engine) Get(addr common.Address) (*Marker, error) {
	if e == nil || e.state == nil {
		return nil, errors.New("marker: state not configured")
	}
	m := new(Marker)
	ok, err := e.state.KVGet(markerKey(addr), m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMarkerNotFound
	}
	return m, nil
}

// OwnedBy lists the markers held by owner in mint order.
func (e *Engine) OwnedBy(owner common.Address) ([]*Marker, error) {
	if e == nil || e.state == nil {
		return nil, errors.New("marker: state not configured")
	}
	var addrs [][]byte
	if err := e.state.KVGetList(ownerIndexKey(owner), &addrs); err != nil {
		return nil, err
	}
	out := make([]*Marker, 0, len(addrs))
	for _, raw := range addrs {
		m, err := e.Get(common.BytesToAddress(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
