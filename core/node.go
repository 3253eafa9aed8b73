package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"academicchain/core/events"
	"academicchain/core/state"
	"academicchain/core/types"
	"academicchain/native"
	"academicchain/native/academic"
	nativecommon "academicchain/native/common"
	"academicchain/observability/logging"
	"academicchain/observability/metrics"
	"academicchain/observability/otel"
	"academicchain/storage"
)

var (
	ErrNilTransaction  = errors.New("node: nil transaction")
	ErrChainIDMismatch = errors.New("node: chain id mismatch")
	ErrInvalidNonce    = errors.New("node: invalid nonce")
	ErrReceiptNotFound = errors.New("node: receipt not found")
)

var receiptPrefix = []byte("receipt/")

// Option customises a Node at construction.
type Option func(*Node)

func WithProgramID(id common.Address) Option { return func(n *Node) { n.programID = id } }

func WithPauses(p nativecommon.PauseView) Option { return func(n *Node) { n.pauses = p } }

// WithQuota limits how many transactions, and how many purchased credits, a
// single sender may push through per epoch.
func WithQuota(q nativecommon.Quota) Option { return func(n *Node) { n.quota = q } }

// WithEmitter registers a sink that receives events of committed
// transactions only.
func WithEmitter(e events.Emitter) Option { return func(n *Node) { n.emitter = e } }

func WithClock(now func() time.Time) Option { return func(n *Node) { n.nowFn = now } }

func WithLogger(l *slog.Logger) Option { return func(n *Node) { n.logger = l } }

func WithMetrics(m *metrics.AcademicMetrics) Option { return func(n *Node) { n.metrics = m } }

// Node applies signed transactions to the committed state one at a time.
// Every transaction runs on a fresh journaled state.Manager: success commits
// all writes in one batch, failure discards them.
type Node struct {
	db        storage.Database
	chainID   *big.Int
	programID common.Address
	pauses    nativecommon.PauseView
	quota     nativecommon.Quota
	emitter   events.Emitter
	nowFn     func() time.Time
	logger    *slog.Logger
	metrics   *metrics.AcademicMetrics
	tracer    trace.Tracer

	mu         sync.RWMutex
	quotas     map[common.Address]nativecommon.QuotaNow
	quotaEpoch uint64
}

func NewNode(db storage.Database, chainID *big.Int, opts ...Option) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("node: chain id must be positive")
	}
	n := &Node{
		db:        db,
		chainID:   new(big.Int).Set(chainID),
		programID: academic.DefaultProgramID,
		emitter:   events.NoopEmitter{},
		nowFn:     time.Now,
		logger:    logging.Discard(),
		tracer:    otel.Tracer("node"),
		quotas:    make(map[common.Address]nativecommon.QuotaNow),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.emitter == nil {
		n.emitter = events.NoopEmitter{}
	}
	if n.logger == nil {
		n.logger = logging.Discard()
	}
	if err := state.EnsureStateVersion(db, false); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) ChainID() *big.Int { return new(big.Int).Set(n.chainID) }

func (n *Node) ProgramID() common.Address { return n.programID }

func (n *Node) modules(manager *state.Manager, emitter events.Emitter) *native.Modules {
	return native.NewModules(manager, native.Options{
		ProgramID: n.programID,
		Emitter:   emitter,
		Pauses:    n.pauses,
		Now:       n.nowFn,
	})
}

// ApplyTransaction authenticates tx and executes it atomically. Transactions
// rejected before execution (bad signature, chain id, nonce, quota) return an
// error and no receipt. Once admitted, the returned receipt reports success or
// the program error; a failed transaction discards its writes but still
// consumes the sender nonce.
func (n *Node) ApplyTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	_, span := n.tracer.Start(ctx, "node.ApplyTransaction",
		trace.WithAttributes(attribute.String("tx.type", tx.Type.String())))
	defer span.End()
	started := time.Now()

	receipt, err := n.apply(tx)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		n.metrics.ObserveTransaction(tx.Type.String(), "rejected", time.Since(started))
		n.logger.Warn("transaction rejected", "tx_type", tx.Type.String(), "error", err.Error())
		return nil, err
	case receipt.Status != types.ReceiptStatusSuccess:
		span.SetStatus(codes.Error, receipt.Error)
		n.metrics.ObserveTransaction(receipt.Type, "failed", time.Since(started))
		n.logger.Info("transaction failed",
			"tx_hash", receipt.TxHash,
			"tx_type", receipt.Type,
			"sender", receipt.From.Hex(),
			"kind", receipt.ErrorKind,
			"error_name", receipt.ErrorName,
			"error", receipt.Error)
	default:
		span.SetAttributes(attribute.String("state.root", receipt.StateRoot.Hex()))
		n.metrics.ObserveTransaction(receipt.Type, "success", time.Since(started))
		n.logger.Info("transaction applied",
			"tx_hash", receipt.TxHash,
			"tx_type", receipt.Type,
			"sender", receipt.From.Hex(),
			"events", len(receipt.Events))
	}
	return receipt, nil
}

func (n *Node) apply(tx *types.Transaction) (*types.Receipt, error) {
	if tx.ChainID == nil || tx.ChainID.Cmp(n.chainID) != 0 {
		return nil, fmt.Errorf("%w: got %v want %v", ErrChainIDMismatch, tx.ChainID, n.chainID)
	}
	if !tx.Type.Valid() {
		return nil, fmt.Errorf("%w: 0x%02x", types.ErrUnknownTxType, byte(tx.Type))
	}
	from, err := tx.From()
	if err != nil {
		return nil, fmt.Errorf("node: recover sender: %w", err)
	}
	txHash, err := tx.ID()
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	manager := state.NewManager(n.db)
	account, err := manager.GetAccount(from)
	if err != nil {
		return nil, err
	}
	if tx.Nonce != account.Nonce {
		return nil, fmt.Errorf("%w: got %d want %d", ErrInvalidNonce, tx.Nonce, account.Nonce)
	}
	if err := n.admit(from, tx); err != nil {
		return nil, err
	}

	receipt := &types.Receipt{
		TxHash: txHash,
		Type:   tx.Type.String(),
		From:   from,
		Nonce:  tx.Nonce,
		Events: []types.Event{},
	}
	buf := &events.Buffer{}
	if execErr := n.dispatch(n.modules(manager, buf), from, tx); execErr != nil {
		manager.Discard()
		root, err := n.consumeNonce(manager, from)
		if err != nil {
			return nil, err
		}
		receipt.Status = types.ReceiptStatusFailed
		receipt.Error = execErr.Error()
		receipt.ErrorKind = string(academic.KindOf(execErr))
		if progErr, ok := academic.AsError(execErr); ok {
			receipt.ErrorName = progErr.Name
			receipt.ErrorCode = progErr.Code
		}
		receipt.StateRoot = root
		if err := n.storeReceipt(receipt); err != nil {
			return nil, err
		}
		return receipt, nil
	}

	// Module calls may have moved native balance; reload before bumping the nonce.
	account, err = manager.GetAccount(from)
	if err != nil {
		manager.Discard()
		return nil, err
	}
	account.Nonce++
	if err := manager.PutAccount(from, account); err != nil {
		manager.Discard()
		return nil, err
	}
	root, err := manager.Root()
	if err != nil {
		manager.Discard()
		return nil, err
	}
	if err := manager.Commit(); err != nil {
		return nil, err
	}

	receipt.Status = types.ReceiptStatusSuccess
	receipt.StateRoot = root
	for _, evt := range buf.Drain() {
		if rendered := events.Render(evt); rendered != nil {
			receipt.Events = append(receipt.Events, *rendered)
		}
		n.metrics.ObserveEvent(evt.EventType())
		n.observeCredits(evt)
		n.emitter.Emit(evt)
	}
	if err := n.storeReceipt(receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// consumeNonce commits only the sender's nonce increment after a failed
// transaction, so the signed envelope cannot be applied again later.
func (n *Node) consumeNonce(manager *state.Manager, from common.Address) (common.Hash, error) {
	account, err := manager.GetAccount(from)
	if err != nil {
		return common.Hash{}, err
	}
	account.Nonce++
	if err := manager.PutAccount(from, account); err != nil {
		manager.Discard()
		return common.Hash{}, err
	}
	root, err := manager.Root()
	if err != nil {
		manager.Discard()
		return common.Hash{}, err
	}
	if err := manager.Commit(); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}

// admit charges the sender quota. Attempts count whether or not the program
// accepts them.
func (n *Node) admit(from common.Address, tx *types.Transaction) error {
	if n.quota.MaxRequestsPerEpoch == 0 && n.quota.MaxCreditsPerEpoch == 0 {
		return nil
	}
	var credits uint64
	if tx.Type == types.TxTypePurchaseCredits {
		var payload types.PurchaseCreditsPayload
		if err := tx.DecodePayload(&payload); err == nil {
			credits = payload.Amount
		}
	}
	epoch := n.quota.Epoch(n.nowFn().Unix())
	n.pruneQuotas(epoch)
	next, err := nativecommon.CheckQuota(n.quota, epoch, n.quotas[from], 1, credits)
	if err != nil {
		return err
	}
	n.quotas[from] = next
	return nil
}

// pruneQuotas drops counters left over from earlier windows once per window.
func (n *Node) pruneQuotas(epoch uint64) {
	if epoch <= n.quotaEpoch {
		return
	}
	n.quotaEpoch = epoch
	for sender, usage := range n.quotas {
		if usage.EpochID < epoch {
			delete(n.quotas, sender)
		}
	}
}

func (n *Node) observeCredits(evt events.Event) {
	supply, ok := evt.(events.TokenSupply)
	if !ok {
		return
	}
	n.metrics.ObserveCredits(supply.Reason, supply.Delta)
}

func (n *Node) dispatch(mods *native.Modules, from common.Address, tx *types.Transaction) error {
	engine := mods.Academic
	switch tx.Type {
	case types.TxTypeBootstrap:
		var p types.BootstrapPayload
		if err := tx.DecodePayload(&p); err != nil {
			return err
		}
		_, err := engine.Bootstrap(from, p.Treasury, p.CreditMint, p.CreditPrice)
		return err
	case types.TxTypePurchaseCredits:
		var p types.PurchaseCreditsPayload
		if err := tx.DecodePayload(&p); err != nil {
			return err
		}
		_, err := engine.PurchaseCredits(from, p.Amount)
		return err
	case types.TxTypeCreateCourse:
		var p types.CreateCoursePayload
		if err := tx.DecodePayload(&p); err != nil {
			return err
		}
		_, err := engine.CreateCourse(from, p.CourseID, p.CourseName, p.Instructor, p.RequiredCredits)
		return err
	case types.TxTypeRegisterCourse:
		var p types.RegisterCoursePayload
		if err := tx.DecodePayload(&p); err != nil {
			return err
		}
		_, err := engine.RegisterCourse(from, p.CourseID)
		return err
	case types.TxTypeCompleteCourse:
		var p types.CompleteCoursePayload
		if err := tx.DecodePayload(&p); err != nil {
			return err
		}
		_, err := engine.CompleteCourse(from, p.Student, p.CourseID, p.Grade)
		return err
	case types.TxTypeMintCertificate:
		var p types.MintCertificatePayload
		if err := tx.DecodePayload(&p); err != nil {
			return err
		}
		_, err := engine.MintCertificate(from, p.CourseID, p.MetadataURI)
		return err
	case types.TxTypeClaimGraduation:
		var p types.ClaimGraduationPayload
		if err := tx.DecodePayload(&p); err != nil {
			return err
		}
		_, err := engine.ClaimGraduation(from, p.RequiredCourses, p.MetadataURI)
		return err
	case types.TxTypeSetCourseActive:
		var p types.SetCourseActivePayload
		if err := tx.DecodePayload(&p); err != nil {
			return err
		}
		_, err := engine.SetCourseActive(from, p.CourseID, p.Active)
		return err
	case types.TxTypeSetCreditPrice:
		var p types.SetCreditPricePayload
		if err := tx.DecodePayload(&p); err != nil {
			return err
		}
		_, err := engine.SetCreditPrice(from, p.Price)
		return err
	default:
		return fmt.Errorf("%w: 0x%02x", types.ErrUnknownTxType, byte(tx.Type))
	}
}

func receiptKey(hash string) []byte {
	return append(append([]byte(nil), receiptPrefix...), hash...)
}

// Receipts live outside the state prefix so they never feed the state root.
func (n *Node) storeReceipt(r *types.Receipt) error {
	encoded, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return n.db.Put(receiptKey(r.TxHash), encoded)
}

// Receipt returns the stored receipt for a transaction hash.
func (n *Node) Receipt(hash string) (*types.Receipt, error) {
	data, err := n.db.Get(receiptKey(hash))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}
	var r types.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
