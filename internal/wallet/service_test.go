package wallet

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hbar-desk/go-client/internal/credstore"
	"hbar-desk/go-client/internal/ledger"
	"hbar-desk/go-client/internal/txflow"
	"hbar-desk/go-client/pkg/models"
)

var (
	keyA = strings.Repeat("ab", 32)
	keyB = strings.Repeat("cd", 32)
)

func newFixture(t *testing.T) (*Service, *ledger.Memnet, *credstore.Store) {
	t.Helper()
	net := ledger.NewMemnet()
	net.RegisterAccount("0.0.100", keyA, 10*models.TinybarPerHbar)
	net.RegisterAccount("0.0.200", keyB, 10*models.TinybarPerHbar)
	store := credstore.New(t.TempDir(), "")
	svc := New(Options{Store: store, Gateway: net, SubmitRPS: 100, SubmitBurst: 100})
	return svc, net, store
}

func mustConnect(t *testing.T, svc *Service) {
	t.Helper()
	ok, err := svc.Connect(context.Background(), "0.0.100", keyA)
	if err != nil || !ok {
		t.Fatalf("connect failed: ok=%v err=%v", ok, err)
	}
}

func TestConnectRejectsBadCredentials(t *testing.T) {
	cases := []struct {
		name      string
		accountID string
		key       string
		want      error
	}{
		{"garbage key", "0.0.100", "not-a-key", txflow.ErrInvalidInput},
		{"mismatched key", "0.0.100", keyB, ledger.ErrAuthentication},
		{"unknown account", "0.0.99999", keyA, ledger.ErrAuthentication},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, store := newFixture(t)
			ok, err := svc.Connect(context.Background(), tc.accountID, tc.key)
			if ok || !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got ok=%v err=%v", tc.want, ok, err)
			}
			if _, have := svc.Snapshot(); have {
				t.Fatal("rejected connect must not publish a snapshot")
			}
			if rec, _ := store.Load(); rec != nil {
				t.Fatal("rejected connect must not persist a record")
			}
		})
	}
}

func TestConnectPublishesAndPersistsSnapshot(t *testing.T) {
	svc, _, store := newFixture(t)
	mustConnect(t, svc)

	snap, ok := svc.Snapshot()
	if !ok || snap.AccountID != "0.0.100" || snap.Balance != 10*models.TinybarPerHbar {
		t.Fatalf("unexpected snapshot: ok=%v %+v", ok, snap)
	}

	rec, err := store.Load()
	if err != nil || rec == nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if rec.AccountID != "0.0.100" || rec.SigningKey != keyA || rec.Balance != "10" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestTransferReconcilesBalance(t *testing.T) {
	svc, _, _ := newFixture(t)
	mustConnect(t, svc)

	out, err := svc.Transfer(context.Background(), "0.0.200", "5.0")
	if err != nil {
		t.Fatalf("transfer returned error: %v", err)
	}
	if !out.Success || out.TransactionID == "" || out.RefreshWarning != "" {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	snap, ok := svc.Snapshot()
	if !ok {
		t.Fatal("snapshot lost after transfer")
	}
	want := int64(10*models.TinybarPerHbar - 5*models.TinybarPerHbar - 100_000)
	if snap.Balance != want {
		t.Fatalf("balance not reconciled: got %d want %d", snap.Balance, want)
	}
}

func TestTransferFailureSurfacesStatus(t *testing.T) {
	svc, _, _ := newFixture(t)
	mustConnect(t, svc)

	out, err := svc.Transfer(context.Background(), "0.0.200", "1000")
	if err != nil {
		t.Fatalf("business failure must not be an error: %v", err)
	}
	if out.Success {
		t.Fatal("overdraw classified successful")
	}
	if !strings.Contains(out.Message, ledger.StatusInsufficientBalance) {
		t.Fatalf("raw status missing from message: %q", out.Message)
	}
}

func TestTransferInvalidInputIsLocal(t *testing.T) {
	svc, _, _ := newFixture(t)
	mustConnect(t, svc)

	for _, amount := range []string{"", "-1", "abc", "0"} {
		if _, err := svc.Transfer(context.Background(), "0.0.200", amount); !errors.Is(err, txflow.ErrInvalidInput) {
			t.Fatalf("amount %q: expected ErrInvalidInput, got %v", amount, err)
		}
	}
}

func TestOperationsRequireConnection(t *testing.T) {
	svc, _, _ := newFixture(t)
	if _, err := svc.Transfer(context.Background(), "0.0.200", "1"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if _, err := svc.Refresh(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestTokenLifecycleUpdatesSnapshot(t *testing.T) {
	svc, _, _ := newFixture(t)
	mustConnect(t, svc)

	created, err := svc.CreateToken(context.Background(), "Demo Token", "DEMO", "1000")
	if err != nil {
		t.Fatalf("create token failed: %v", err)
	}
	if !created.Success || created.TokenID == nil {
		t.Fatalf("unexpected create outcome: %+v", created)
	}

	snap, _ := svc.Snapshot()
	tok, ok := snap.Token(*created.TokenID)
	if !ok || tok.Balance != 1000 {
		t.Fatalf("treasury holding not reconciled: %+v", snap.Tokens)
	}
}

func TestSendTopicMessageReturnsSequence(t *testing.T) {
	svc, _, _ := newFixture(t)
	mustConnect(t, svc)

	created, err := svc.CreateTopic(context.Background(), "demo", false)
	if err != nil || !created.Success || created.TopicID == nil {
		t.Fatalf("create topic failed: %+v err=%v", created, err)
	}

	for want := uint64(1); want <= 2; want++ {
		out, err := svc.SendTopicMessage(context.Background(), *created.TopicID, []byte("hello"))
		if err != nil || !out.Success {
			t.Fatalf("send failed: %+v err=%v", out, err)
		}
		if out.SequenceNumber == nil || *out.SequenceNumber != want {
			t.Fatalf("expected sequence %d, got %+v", want, out.SequenceNumber)
		}
	}
}

func TestTopicTailThroughFacade(t *testing.T) {
	svc, _, _ := newFixture(t)
	mustConnect(t, svc)

	created, err := svc.CreateTopic(context.Background(), "demo", false)
	if err != nil || created.TopicID == nil {
		t.Fatalf("create topic failed: %v", err)
	}
	topicID := *created.TopicID

	if _, err := svc.SendTopicMessage(context.Background(), topicID, []byte("first")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := svc.SubscribeTopic(context.Background(), topicID); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if _, err := svc.SendTopicMessage(context.Background(), topicID, []byte("second")); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	records := svc.ReadTopicLog(topicID)
	if len(records) != 2 || records[0].SequenceNumber != 1 || records[1].SequenceNumber != 2 {
		t.Fatalf("unexpected log: %+v", records)
	}
	if svc.StreamState() != "live-tailing" {
		t.Fatalf("unexpected stream state: %s", svc.StreamState())
	}
}

func TestDisconnectClearsEverything(t *testing.T) {
	svc, net, store := newFixture(t)
	mustConnect(t, svc)

	created, err := svc.CreateTopic(context.Background(), "demo", false)
	if err != nil || created.TopicID == nil {
		t.Fatalf("create topic failed: %v", err)
	}
	topicID := *created.TopicID
	if err := svc.SubscribeTopic(context.Background(), topicID); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := svc.Disconnect(); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}

	if rec, _ := store.Load(); rec != nil {
		t.Fatal("session record survived disconnect")
	}
	if _, ok := svc.Snapshot(); ok {
		t.Fatal("snapshot survived disconnect")
	}
	if _, err := svc.Transfer(context.Background(), "0.0.200", "1"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected after disconnect, got %v", err)
	}

	// The live tail was cancelled with the session, so an injected
	// record has nowhere to land.
	net.InjectTopicMessage(ledger.TopicMessage{TopicID: topicID, SequenceNumber: 9, ConsensusTime: time.Now()})
	if records := svc.ReadTopicLog(topicID); len(records) != 0 {
		t.Fatalf("records delivered after disconnect: %+v", records)
	}
}

func TestReconnectDropsPreviousTopicStream(t *testing.T) {
	svc, net, _ := newFixture(t)
	mustConnect(t, svc)

	created, err := svc.CreateTopic(context.Background(), "demo", false)
	if err != nil || created.TopicID == nil {
		t.Fatalf("create topic failed: %v", err)
	}
	topicID := *created.TopicID
	if err := svc.SubscribeTopic(context.Background(), topicID); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	ok, err := svc.Connect(context.Background(), "0.0.200", keyB)
	if err != nil || !ok {
		t.Fatalf("reconnect failed: ok=%v err=%v", ok, err)
	}

	if svc.StreamState() != "idle" {
		t.Fatalf("expected idle stream after reconnect, got %s", svc.StreamState())
	}
	net.InjectTopicMessage(ledger.TopicMessage{TopicID: topicID, SequenceNumber: 9, ConsensusTime: time.Now()})
	if records := svc.ReadTopicLog(topicID); len(records) != 0 {
		t.Fatalf("old session's log survived reconnect: %+v", records)
	}
}

func TestResumeRestoresPersistedSession(t *testing.T) {
	svc, net, store := newFixture(t)
	mustConnect(t, svc)

	revived := New(Options{Store: store, Gateway: net, SubmitRPS: 100, SubmitBurst: 100})
	ok, err := revived.Resume(context.Background())
	if err != nil || !ok {
		t.Fatalf("resume failed: ok=%v err=%v", ok, err)
	}
	snap, have := revived.Snapshot()
	if !have || snap.AccountID != "0.0.100" {
		t.Fatalf("resumed snapshot missing: %+v", snap)
	}
}

func TestResumeWithoutRecordIsNoop(t *testing.T) {
	svc, _, _ := newFixture(t)
	ok, err := svc.Resume(context.Background())
	if err != nil || ok {
		t.Fatalf("expected silent no-op, got ok=%v err=%v", ok, err)
	}
}
