// Package wallet composes the session core: credential store, ledger
// client, state sync, transaction pipeline and topic stream, behind
// the operation surface callers consume.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"hbar-desk/go-client/internal/account"
	"hbar-desk/go-client/internal/credstore"
	"hbar-desk/go-client/internal/ledger"
	"hbar-desk/go-client/internal/topicstream"
	"hbar-desk/go-client/internal/txflow"
	"hbar-desk/go-client/pkg/models"
)

// The pipeline sentinels are re-exported so callers gate on one
// package.
var (
	ErrNotConnected = txflow.ErrNotConnected
	ErrInvalidInput = txflow.ErrInvalidInput
)

type Options struct {
	Store       *credstore.Store
	Gateway     ledger.Gateway
	Registry    prometheus.Registerer
	Logger      *slog.Logger
	SubmitRPS   float64
	SubmitBurst int
}

// Service owns the Session, ClientHandle and AccountSnapshot for one
// connected session. It is the single place their lifecycles meet;
// callers hold a Service, never the parts.
type Service struct {
	mu      sync.Mutex
	session *models.Session
	handle  *ledger.Handle

	store  *credstore.Store
	client *ledger.Client
	holder *account.Holder
	orch   *txflow.Orchestrator
	stream *topicstream.Stream
	log    *slog.Logger
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  opts.Store,
		client: ledger.NewClient(opts.Gateway),
		holder: account.NewHolder(),
		orch: txflow.NewOrchestrator(
			txflow.NewSubmitLimiter(opts.SubmitRPS, opts.SubmitBurst),
			txflow.NewMetrics(opts.Registry),
			logger,
		),
		stream: topicstream.New(opts.Gateway, topicstream.NewMetrics(opts.Registry), logger),
		log:    logger,
	}
}

// Connect binds the session: credentials are normalized, probed
// against the network, persisted, and the initial snapshot fetched.
// Returns false with the cause when any step rejects.
func (s *Service) Connect(ctx context.Context, accountID, rawKey string) (bool, error) {
	signingKey, err := credstore.NormalizeSigningKey(rawKey)
	if err != nil {
		return false, fmt.Errorf("%w: %v", txflow.ErrInvalidInput, err)
	}
	if !ledger.ValidEntityID(accountID) {
		return false, fmt.Errorf("%w: account id %q is malformed", txflow.ErrInvalidInput, accountID)
	}

	session := models.Session{AccountID: accountID, SigningKey: signingKey}
	handle, err := s.client.Open(ctx, session)
	if err != nil {
		s.log.Warn("connect rejected", "account_id", accountID, "err", err)
		return false, err
	}

	gw, err := handle.Gateway()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	snap, err := account.Fetch(ctx, gw, handle.Operator())
	if err != nil {
		s.client.Close()
		return false, err
	}

	// A replaced session takes its topic log and live tail with it.
	s.stream.Stop()

	s.mu.Lock()
	s.session = &session
	s.handle = handle
	s.mu.Unlock()
	s.holder.Set(snap)

	if err := s.persistSnapshot(session, snap); err != nil {
		return false, err
	}
	s.log.Info("session connected",
		"account_id", accountID,
		"key_fp", credstore.Fingerprint(signingKey),
	)
	return true, nil
}

// Resume reconnects from the persisted session record, if any.
func (s *Service) Resume(ctx context.Context) (bool, error) {
	rec, err := s.store.Load()
	if err != nil {
		if errors.Is(err, credstore.ErrCorruptSession) {
			// A torn or tampered record is unusable; drop it so the
			// next connect starts clean.
			_ = s.store.Clear()
		}
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	return s.Connect(ctx, rec.AccountID, rec.SigningKey)
}

// Disconnect tears the session down: live subscriptions cancelled,
// handle closed, snapshot and persisted record discarded.
func (s *Service) Disconnect() error {
	s.stream.Stop()
	s.client.Close()
	s.holder.Clear()

	s.mu.Lock()
	s.session = nil
	s.handle = nil
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return err
	}
	s.log.Info("session disconnected")
	return nil
}

// Refresh reconciles the local snapshot against network truth.
func (s *Service) Refresh(ctx context.Context) (models.AccountSnapshot, error) {
	session, handle, err := s.current()
	if err != nil {
		return models.AccountSnapshot{}, err
	}
	gw, err := handle.Gateway()
	if err != nil {
		return models.AccountSnapshot{}, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	snap, err := account.Fetch(ctx, gw, handle.Operator())
	if err != nil {
		return models.AccountSnapshot{}, err
	}
	s.holder.Set(snap)
	if err := s.persistSnapshot(session, snap); err != nil {
		return models.AccountSnapshot{}, err
	}
	return snap, nil
}

// Snapshot returns the last published snapshot without touching the
// network.
func (s *Service) Snapshot() (models.AccountSnapshot, bool) {
	return s.holder.Get()
}

func (s *Service) Transfer(ctx context.Context, recipient, amount string) (models.TransferOutcome, error) {
	session, handle, err := s.current()
	if err != nil {
		return models.TransferOutcome{}, err
	}
	outcome, _, err := s.run(ctx, handle, txflow.TransferSpec{
		Sender:    session.AccountID,
		Recipient: recipient,
		Amount:    amount,
	})
	return models.TransferOutcome{Outcome: outcome}, err
}

func (s *Service) CreateToken(ctx context.Context, name, symbol, supply string) (models.TokenCreateOutcome, error) {
	session, handle, err := s.current()
	if err != nil {
		return models.TokenCreateOutcome{}, err
	}
	outcome, receipt, err := s.run(ctx, handle, txflow.TokenCreateSpec{
		Treasury:   session.AccountID,
		SigningKey: session.SigningKey,
		Name:       name,
		Symbol:     symbol,
		Supply:     supply,
	})
	result := models.TokenCreateOutcome{Outcome: outcome}
	if receipt.TokenID != "" {
		tokenID := receipt.TokenID
		result.TokenID = &tokenID
	}
	return result, err
}

func (s *Service) AssociateToken(ctx context.Context, tokenID string) (models.TransferOutcome, error) {
	session, handle, err := s.current()
	if err != nil {
		return models.TransferOutcome{}, err
	}
	outcome, _, err := s.run(ctx, handle, txflow.TokenAssociateSpec{
		AccountID: session.AccountID,
		TokenID:   tokenID,
	})
	return models.TransferOutcome{Outcome: outcome}, err
}

func (s *Service) TransferToken(ctx context.Context, recipient, tokenID, amount string) (models.TransferOutcome, error) {
	session, handle, err := s.current()
	if err != nil {
		return models.TransferOutcome{}, err
	}
	outcome, _, err := s.run(ctx, handle, txflow.TokenTransferSpec{
		Sender:    session.AccountID,
		Recipient: recipient,
		TokenID:   tokenID,
		Amount:    amount,
	})
	return models.TransferOutcome{Outcome: outcome}, err
}

func (s *Service) CreateTopic(ctx context.Context, memo string, isPrivate bool) (models.TopicCreateOutcome, error) {
	session, handle, err := s.current()
	if err != nil {
		return models.TopicCreateOutcome{}, err
	}
	outcome, receipt, err := s.run(ctx, handle, txflow.TopicCreateSpec{
		Memo:       memo,
		Private:    isPrivate,
		SigningKey: session.SigningKey,
	})
	result := models.TopicCreateOutcome{Outcome: outcome}
	if receipt.TopicID != "" {
		topicID := receipt.TopicID
		result.TopicID = &topicID
	}
	return result, err
}

func (s *Service) SendTopicMessage(ctx context.Context, topicID string, payload []byte) (models.TopicMessageOutcome, error) {
	_, handle, err := s.current()
	if err != nil {
		return models.TopicMessageOutcome{}, err
	}
	outcome, receipt, err := s.run(ctx, handle, txflow.TopicMessageSpec{
		TopicID: topicID,
		Payload: payload,
	})
	result := models.TopicMessageOutcome{Outcome: outcome}
	if outcome.Success {
		seq := receipt.SequenceNumber
		result.SequenceNumber = &seq
	}
	return result, err
}

// SetTopicFocus switches the stream to topicID and backfills its
// history.
func (s *Service) SetTopicFocus(ctx context.Context, topicID string) error {
	return s.stream.SetFocus(ctx, topicID)
}

// SubscribeTopic opens the live tail for topicID.
func (s *Service) SubscribeTopic(ctx context.Context, topicID string) error {
	return s.stream.Subscribe(ctx, topicID)
}

// ReadTopicLog returns the ordered, deduplicated log of topicID.
func (s *Service) ReadTopicLog(topicID string) []models.TopicMessageRecord {
	return s.stream.Read(topicID)
}

// StreamState reports the topic stream's state machine position.
func (s *Service) StreamState() string {
	return s.stream.State()
}

func (s *Service) current() (models.Session, *ledger.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.handle == nil {
		return models.Session{}, nil, ErrNotConnected
	}
	return *s.session, s.handle, nil
}

// run executes the pipeline and, on success, refreshes the snapshot.
// A refresh failure is reported on the outcome as a warning; it never
// downgrades transaction success.
func (s *Service) run(ctx context.Context, handle *ledger.Handle, spec txflow.Spec) (models.Outcome, ledger.Receipt, error) {
	outcome, receipt, err := s.orch.Run(ctx, handle, spec)
	if err != nil {
		return outcome, receipt, err
	}
	if outcome.Success {
		if _, refreshErr := s.Refresh(ctx); refreshErr != nil {
			outcome.RefreshWarning = refreshErr.Error()
			s.log.Warn("post-transaction refresh failed", "kind", string(spec.Kind()), "err", refreshErr)
		}
	}
	return outcome, receipt, nil
}

func (s *Service) persistSnapshot(session models.Session, snap models.AccountSnapshot) error {
	return s.store.Save(credstore.Record{
		AccountID:  session.AccountID,
		SigningKey: session.SigningKey,
		Balance:    models.FormatHbar(snap.Balance),
		Tokens:     snap.Tokens,
	})
}
