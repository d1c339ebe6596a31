// Package txflow runs the submit pipeline shared by every mutating
// operation: build, submit, await receipt, classify. Business
// failures come back as failed outcomes; only contract violations and
// invalid input are returned as errors.
package txflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"hbar-desk/go-client/internal/ledger"
	"hbar-desk/go-client/pkg/models"
)

var (
	ErrNotConnected = errors.New("no active session or client handle")
	ErrInvalidInput = errors.New("invalid input")
)

// Spec is one operation family: it builds the unsigned transaction
// from validated inputs and names the success it classifies.
type Spec interface {
	Kind() ledger.TxKind
	Build() (ledger.Transaction, error)
	SuccessMessage() string
}

type Orchestrator struct {
	mu      sync.Mutex
	limiter *SubmitLimiter
	metrics *Metrics
	log     *slog.Logger
}

func NewOrchestrator(limiter *SubmitLimiter, metrics *Metrics, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{limiter: limiter, metrics: metrics, log: log}
}

// Run executes exactly one submission attempt. Submissions against the
// same session are serialized here so overlapping calls cannot race on
// sequence assignment at the network layer.
func (o *Orchestrator) Run(ctx context.Context, handle *ledger.Handle, spec Spec) (models.Outcome, ledger.Receipt, error) {
	if handle == nil {
		return models.Outcome{}, ledger.Receipt{}, ErrNotConnected
	}
	tx, err := spec.Build()
	if err != nil {
		return models.Outcome{}, ledger.Receipt{}, err
	}
	gw, err := handle.Gateway()
	if err != nil {
		return models.Outcome{}, ledger.Receipt{}, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	op := handle.Operator()
	kind := string(spec.Kind())
	o.metrics.submissions(kind)

	if !o.limiter.Allow(op.AccountID) {
		o.metrics.failure(kind)
		return models.Outcome{
			Success: false,
			Message: fmt.Sprintf("%s rejected locally: submission rate limit exceeded", kind),
		}, ledger.Receipt{}, nil
	}

	sub, err := gw.Submit(ctx, op, tx)
	if err != nil {
		o.metrics.failure(kind)
		o.log.Warn("transaction submit failed", "kind", kind, "err", err)
		return models.Outcome{
			Success: false,
			Message: fmt.Sprintf("%s failed: %v", kind, err),
		}, ledger.Receipt{}, nil
	}

	receipt, err := gw.AwaitReceipt(ctx, sub)
	if err != nil {
		o.metrics.failure(kind)
		o.log.Warn("receipt await failed", "kind", kind, "transaction_id", sub.TransactionID, "err", err)
		return models.Outcome{
			Success:       false,
			TransactionID: sub.TransactionID,
			Message:       fmt.Sprintf("%s failed awaiting receipt: %v", kind, err),
		}, ledger.Receipt{}, nil
	}

	// Success is classified strictly by the canonical status value;
	// anything else, timeouts and unknowns included, is a failure with
	// the raw status surfaced.
	if receipt.Status != ledger.StatusSuccess {
		o.metrics.failure(kind)
		return models.Outcome{
			Success:       false,
			TransactionID: sub.TransactionID,
			Message:       fmt.Sprintf("%s failed with status %s", kind, receipt.Status),
		}, receipt, nil
	}

	o.metrics.success(kind)
	o.log.Info("transaction succeeded", "kind", kind, "transaction_id", sub.TransactionID)
	return models.Outcome{
		Success:       true,
		TransactionID: sub.TransactionID,
		Message:       spec.SuccessMessage(),
	}, receipt, nil
}
