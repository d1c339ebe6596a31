package topicstream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hbar-desk/go-client/internal/ledger"
	"hbar-desk/go-client/pkg/models"
)

var testKey = strings.Repeat("ab", 32)

func newTopicNet(t *testing.T) (*ledger.Memnet, string, ledger.Operator) {
	t.Helper()
	net := ledger.NewMemnet()
	net.RegisterAccount("0.0.100", testKey, 1_000_000_000)
	op := ledger.Operator{AccountID: "0.0.100", SigningKey: testKey}

	sub, err := net.Submit(context.Background(), op, ledger.Transaction{
		Kind:        ledger.TxTopicCreate,
		TopicCreate: &ledger.TopicCreateBody{Memo: "stream test"},
	})
	if err != nil {
		t.Fatalf("topic create failed: %v", err)
	}
	receipt, err := net.AwaitReceipt(context.Background(), sub)
	if err != nil || receipt.Status != ledger.StatusSuccess {
		t.Fatalf("topic create receipt: %+v err %v", receipt, err)
	}
	return net, receipt.TopicID, op
}

func publish(t *testing.T, net *ledger.Memnet, op ledger.Operator, topicID, payload string) uint64 {
	t.Helper()
	sub, err := net.Submit(context.Background(), op, ledger.Transaction{
		Kind:         ledger.TxTopicMessage,
		TopicMessage: &ledger.TopicMessageBody{TopicID: topicID, Payload: []byte(payload)},
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	receipt, err := net.AwaitReceipt(context.Background(), sub)
	if err != nil || receipt.Status != ledger.StatusSuccess {
		t.Fatalf("publish receipt: %+v err %v", receipt, err)
	}
	return receipt.SequenceNumber
}

func newTestStream(net *ledger.Memnet) *Stream {
	return New(net, NewMetrics(nil), nil)
}

func TestOutOfOrderArrivalReadsInSequenceOrder(t *testing.T) {
	net, topicID, _ := newTopicNet(t)
	s := newTestStream(net)

	if err := s.Subscribe(context.Background(), topicID); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	now := time.Now()
	for _, seq := range []uint64{3, 1, 2} {
		net.InjectTopicMessage(ledger.TopicMessage{
			TopicID:        topicID,
			SequenceNumber: seq,
			Payload:        []byte{byte(seq)},
			ConsensusTime:  now,
		})
	}

	records := s.Read(topicID)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []uint64{1, 2, 3} {
		if records[i].SequenceNumber != want {
			t.Fatalf("position %d: got seq %d, want %d", i, records[i].SequenceNumber, want)
		}
	}
}

func TestBackfillIsIdempotent(t *testing.T) {
	net, topicID, op := newTopicNet(t)
	for _, payload := range []string{"a", "b", "c"} {
		publish(t, net, op, topicID, payload)
	}
	s := newTestStream(net)

	if err := s.SetFocus(context.Background(), topicID); err != nil {
		t.Fatalf("set focus failed: %v", err)
	}
	first := s.Read(topicID)
	if err := s.Backfill(context.Background()); err != nil {
		t.Fatalf("re-backfill failed: %v", err)
	}
	second := s.Read(topicID)

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 records before and after, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].SequenceNumber != second[i].SequenceNumber {
			t.Fatalf("re-backfill reordered the log at %d", i)
		}
	}
	if s.State() != StateIdle {
		t.Fatalf("expected Idle after backfill, got %s", s.State())
	}
}

func TestDuplicateAcrossBackfillAndLiveIsSuppressed(t *testing.T) {
	net, topicID, op := newTopicNet(t)
	for i := 0; i < 5; i++ {
		publish(t, net, op, topicID, "m")
	}
	s := newTestStream(net)

	if err := s.Subscribe(context.Background(), topicID); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	// The live window overlaps history: sequence 5 arrives again.
	net.InjectTopicMessage(ledger.TopicMessage{
		TopicID:        topicID,
		SequenceNumber: 5,
		Payload:        []byte("dup"),
		ConsensusTime:  time.Now(),
	})

	records := s.Read(topicID)
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	count := 0
	for _, r := range records {
		if r.SequenceNumber == 5 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("sequence 5 appears %d times", count)
	}
}

func TestLiveTailKeepsDeliveringAcrossStates(t *testing.T) {
	net, topicID, op := newTopicNet(t)
	s := newTestStream(net)

	if err := s.Subscribe(context.Background(), topicID); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if s.State() != StateLiveTailing {
		t.Fatalf("expected live-tailing, got %s", s.State())
	}
	seq := publish(t, net, op, topicID, "live")
	records := s.Read(topicID)
	if len(records) != 1 || records[0].SequenceNumber != seq {
		t.Fatalf("live record not delivered: %+v", records)
	}
}

func TestUnknownTopicResetsToIdle(t *testing.T) {
	net, _, _ := newTopicNet(t)
	s := newTestStream(net)

	err := s.SetFocus(context.Background(), "0.0.99999")
	if !errors.Is(err, ErrStream) {
		t.Fatalf("expected ErrStream, got %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected Idle after failure, got %s", s.State())
	}
	if got := s.Read("0.0.99999"); got != nil {
		t.Fatalf("expected no log after failure, got %+v", got)
	}
}

func TestStopDiscardsLogAndFocusChangeDropsOldTopic(t *testing.T) {
	net, topicA, op := newTopicNet(t)
	s := newTestStream(net)

	subB, err := net.Submit(context.Background(), op, ledger.Transaction{
		Kind:        ledger.TxTopicCreate,
		TopicCreate: &ledger.TopicCreateBody{Memo: "second"},
	})
	if err != nil {
		t.Fatalf("second topic create failed: %v", err)
	}
	receiptB, _ := net.AwaitReceipt(context.Background(), subB)
	topicB := receiptB.TopicID

	publish(t, net, op, topicA, "old")
	if err := s.Subscribe(context.Background(), topicA); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := s.SetFocus(context.Background(), topicB); err != nil {
		t.Fatalf("refocus failed: %v", err)
	}
	if got := s.Read(topicA); got != nil {
		t.Fatalf("old topic log must be discarded on refocus, got %+v", got)
	}

	s.Stop()
	if s.State() != StateIdle {
		t.Fatalf("expected Idle after stop, got %s", s.State())
	}
	if got := s.Read(topicB); got != nil {
		t.Fatalf("expected no log after stop, got %+v", got)
	}
}

type flakyGateway struct {
	ledger.Gateway
	failBackfill bool
}

func (g *flakyGateway) TopicMessagesSince(ctx context.Context, topicID string, start time.Time, limit int) ([]ledger.TopicMessage, error) {
	if g.failBackfill {
		return nil, errors.New("history query unavailable")
	}
	return g.Gateway.TopicMessagesSince(ctx, topicID, start, limit)
}

func TestFailedRebackfillResetsLiveTailToIdle(t *testing.T) {
	net, topicID, op := newTopicNet(t)
	gw := &flakyGateway{Gateway: net}
	s := New(gw, NewMetrics(nil), nil)

	publish(t, net, op, topicID, "m")
	if err := s.Subscribe(context.Background(), topicID); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	gw.failBackfill = true
	if err := s.Backfill(context.Background()); !errors.Is(err, ErrStream) {
		t.Fatalf("expected ErrStream, got %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected Idle after failed re-backfill, got %s", s.State())
	}
	if got := s.Read(topicID); got != nil {
		t.Fatalf("expected no log after failed re-backfill, got %+v", got)
	}
	net.InjectTopicMessage(ledger.TopicMessage{
		TopicID:        topicID,
		SequenceNumber: 9,
		ConsensusTime:  time.Now(),
	})
	if got := s.Read(topicID); got != nil {
		t.Fatalf("records delivered after reset: %+v", got)
	}
}

func recordWithSeq(seq uint64) models.TopicMessageRecord {
	return models.TopicMessageRecord{
		SequenceNumber: seq,
		Payload:        []byte{byte(seq)},
		ConsensusTime:  time.Now(),
		ReceivedAt:     time.Now(),
	}
}

func TestLogInsertKeepsStrictOrderWithoutDuplicates(t *testing.T) {
	l := NewLog("0.0.1")
	for _, seq := range []uint64{7, 3, 9, 3, 1, 7} {
		l.Insert(recordWithSeq(seq))
	}
	records := l.Read()
	want := []uint64{1, 3, 7, 9}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, seq := range want {
		if records[i].SequenceNumber != seq {
			t.Fatalf("position %d: got %d, want %d", i, records[i].SequenceNumber, seq)
		}
	}
}
