// Package topicstream consumes the ordered message stream of one
// topic: a bounded historical backfill plus an open-ended live tail,
// assembled into a deduplicated, sequence-ordered local log.
package topicstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hbar-desk/go-client/internal/ledger"
	"hbar-desk/go-client/pkg/models"
)

const (
	StateIdle        = "idle"
	StateBackfilling = "backfilling"
	StateLiveTailing = "live-tailing"
)

// backfillLimit bounds one historical query; the topic's retained
// history in this client starts at epoch 0.
const backfillLimit = 1000

var ErrStream = errors.New("topic stream failed")

// Stream owns the log of the currently focused topic. Changing focus
// discards the previous log and cancels any live tail before a single
// record can reach the stale log.
type Stream struct {
	mu      sync.Mutex
	gw      ledger.Gateway
	state   string
	log     *Log
	sub     ledger.Subscription
	metrics *Metrics
	logger  *slog.Logger
}

func New(gw ledger.Gateway, metrics *Metrics, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{gw: gw, state: StateIdle, metrics: metrics, logger: logger}
}

func (s *Stream) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetFocus switches to topicID: the prior log and live tail are
// discarded, then the topic's history is backfilled from epoch 0.
// On error the stream returns to Idle with no log.
func (s *Stream) SetFocus(ctx context.Context, topicID string) error {
	s.mu.Lock()
	s.cancelLiveLocked()
	s.log = NewLog(topicID)
	s.state = StateBackfilling
	log := s.log
	s.mu.Unlock()

	err := s.backfillInto(ctx, log)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log != log {
		// Focus moved on while we were backfilling; nothing to report.
		return nil
	}
	if err != nil {
		s.state = StateIdle
		s.log = nil
		s.logger.Warn("topic backfill failed", "topic_id", topicID, "err", err)
		return fmt.Errorf("%w: backfill of %s: %v", ErrStream, topicID, err)
	}
	s.state = StateIdle
	return nil
}

// Backfill re-runs the historical query for the focused topic.
// Re-insertion is idempotent: no duplicates, no reordering. On error
// the stream returns to Idle, live tail included, same as a failed
// SetFocus.
func (s *Stream) Backfill(ctx context.Context) error {
	s.mu.Lock()
	log := s.log
	s.mu.Unlock()
	if log == nil {
		return fmt.Errorf("%w: no topic focus", ErrStream)
	}
	if err := s.backfillInto(ctx, log); err != nil {
		s.mu.Lock()
		if s.log == log {
			s.cancelLiveLocked()
			s.log = nil
			s.state = StateIdle
		}
		s.mu.Unlock()
		s.logger.Warn("topic backfill failed", "topic_id", log.TopicID(), "err", err)
		return fmt.Errorf("%w: backfill of %s: %v", ErrStream, log.TopicID(), err)
	}
	return nil
}

func (s *Stream) backfillInto(ctx context.Context, log *Log) error {
	msgs, err := s.gw.TopicMessagesSince(ctx, log.TopicID(), time.Unix(0, 0), backfillLimit)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		s.insert(log, msg)
	}
	return nil
}

// Subscribe opens the live tail for topicID from now onward. A focus
// on a different topic is replaced first. The tail stays open until
// the focus changes or the stream stops.
func (s *Stream) Subscribe(ctx context.Context, topicID string) error {
	s.mu.Lock()
	needFocus := s.log == nil || s.log.TopicID() != topicID
	s.mu.Unlock()
	if needFocus {
		if err := s.SetFocus(ctx, topicID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log == nil || s.log.TopicID() != topicID {
		return fmt.Errorf("%w: focus changed during subscribe", ErrStream)
	}
	if s.sub != nil {
		return nil
	}
	log := s.log
	sub, err := s.gw.SubscribeTopic(ctx, topicID, time.Now(), func(msg ledger.TopicMessage) {
		// The closure pins the log it was opened for; cancellation is
		// deterministic, so a stale log can never receive records.
		s.insert(log, msg)
	})
	if err != nil {
		s.state = StateIdle
		s.logger.Warn("topic subscribe failed", "topic_id", topicID, "err", err)
		return fmt.Errorf("%w: subscribe to %s: %v", ErrStream, topicID, err)
	}
	s.sub = sub
	s.state = StateLiveTailing
	return nil
}

// Read returns the ordered log of the focused topic, empty when the
// focus lies elsewhere.
func (s *Stream) Read(topicID string) []models.TopicMessageRecord {
	s.mu.Lock()
	log := s.log
	s.mu.Unlock()
	if log == nil || log.TopicID() != topicID {
		return nil
	}
	return log.Read()
}

// Stop cancels the live tail and discards the log. Idempotent.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLiveLocked()
	s.log = nil
	s.state = StateIdle
}

func (s *Stream) cancelLiveLocked() {
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
}

func (s *Stream) insert(log *Log, msg ledger.TopicMessage) {
	inserted := log.Insert(models.TopicMessageRecord{
		SequenceNumber: msg.SequenceNumber,
		Payload:        append([]byte(nil), msg.Payload...),
		ConsensusTime:  msg.ConsensusTime,
		ReceivedAt:     time.Now().UTC(),
	})
	if inserted {
		s.metrics.delivered()
	} else {
		s.metrics.duplicate()
	}
}
