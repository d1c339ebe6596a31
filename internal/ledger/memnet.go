package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultFeeTinybar = 100_000 // 0.001 hbar per submission

// Memnet is an in-memory ledger network. It gives the client a fully
// functional gateway for local development and tests: entity ids,
// consensus sequence numbers, receipts and fees behave like the real
// network, consensus itself is a mutex.
type Memnet struct {
	mu         sync.Mutex
	accounts   map[string]*memAccount
	tokens     map[string]*memToken
	topics     map[string]*memTopic
	receipts   map[string]Receipt
	subs       map[string]*memSubscriber
	nextEntity int64
	fee        int64
	now        func() time.Time
}

type memAccount struct {
	signingKey string
	balance    int64
	tokenOrder []string
	tokens     map[string]int64
}

type memToken struct {
	name     string
	symbol   string
	decimals uint32
	treasury string
}

type memTopic struct {
	memo      string
	submitKey string
	messages  []TopicMessage
}

type memSubscriber struct {
	topicID string
	start   time.Time

	mu        sync.Mutex
	cancelled bool
	deliver   func(TopicMessage)
	remove    func()
}

func (s *memSubscriber) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.remove()
}

func NewMemnet() *Memnet {
	return &Memnet{
		accounts:   make(map[string]*memAccount),
		tokens:     make(map[string]*memToken),
		topics:     make(map[string]*memTopic),
		receipts:   make(map[string]Receipt),
		subs:       make(map[string]*memSubscriber),
		nextEntity: 1000,
		fee:        defaultFeeTinybar,
		now:        time.Now,
	}
}

// RegisterAccount seeds an account. Existing entries are overwritten.
func (m *Memnet) RegisterAccount(accountID, signingKey string, balanceTinybar int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[accountID] = &memAccount{
		signingKey: signingKey,
		balance:    balanceTinybar,
		tokens:     make(map[string]int64),
	}
}

// SetFee overrides the per-submission network fee.
func (m *Memnet) SetFee(tinybar int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fee = tinybar
}

func (m *Memnet) verifyOperatorLocked(op Operator) error {
	acct, ok := m.accounts[op.AccountID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, op.AccountID)
	}
	if acct.signingKey != op.SigningKey {
		return fmt.Errorf("%w: signature verification failed for %s", ErrAuthentication, op.AccountID)
	}
	return nil
}

func (m *Memnet) AccountBalance(ctx context.Context, op Operator, accountID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.verifyOperatorLocked(op); err != nil {
		return 0, err
	}
	acct, ok := m.accounts[accountID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
	}
	return acct.balance, nil
}

func (m *Memnet) AccountTokenRelationships(ctx context.Context, op Operator, accountID string) ([]TokenRelationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.verifyOperatorLocked(op); err != nil {
		return nil, err
	}
	acct, ok := m.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
	}
	out := make([]TokenRelationship, 0, len(acct.tokenOrder))
	for _, tokenID := range acct.tokenOrder {
		rel := TokenRelationship{TokenID: tokenID, Balance: acct.tokens[tokenID]}
		// The relationship row resolves decimals but not name or
		// symbol, matching what the real info query returns.
		if tok, ok := m.tokens[tokenID]; ok {
			d := tok.decimals
			rel.Decimals = &d
		}
		out = append(out, rel)
	}
	return out, nil
}

func (m *Memnet) Submit(ctx context.Context, op Operator, tx Transaction) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	m.mu.Lock()
	if err := m.verifyOperatorLocked(op); err != nil {
		m.mu.Unlock()
		return Submission{}, err
	}

	now := m.now()
	sub := Submission{
		ID:            uuid.NewString(),
		TransactionID: fmt.Sprintf("%s@%d.%09d", op.AccountID, now.Unix(), now.Nanosecond()),
	}
	m.accounts[op.AccountID].balance -= m.fee
	receipt, published := m.applyLocked(op, tx, now)
	m.receipts[sub.ID] = receipt
	targets := m.subscribersForLocked(published)
	m.mu.Unlock()

	for _, t := range targets {
		t.sub.push(t.msg)
	}
	return sub, nil
}

type subscriberDelivery struct {
	sub *memSubscriber
	msg TopicMessage
}

func (m *Memnet) subscribersForLocked(msg *TopicMessage) []subscriberDelivery {
	if msg == nil {
		return nil
	}
	out := make([]subscriberDelivery, 0, 1)
	for _, s := range m.subs {
		if s.topicID == msg.TopicID && !msg.ConsensusTime.Before(s.start) {
			out = append(out, subscriberDelivery{sub: s, msg: *msg})
		}
	}
	return out
}

func (s *memSubscriber) push(msg TopicMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.deliver(msg)
}

func (m *Memnet) applyLocked(op Operator, tx Transaction, now time.Time) (Receipt, *TopicMessage) {
	switch tx.Kind {
	case TxTransfer:
		return m.applyTransferLocked(tx.Transfers), nil
	case TxTokenCreate:
		return m.applyTokenCreateLocked(tx.TokenCreate), nil
	case TxTokenAssociate:
		return m.applyTokenAssociateLocked(tx.TokenAssociate), nil
	case TxTokenTransfer:
		return m.applyTokenTransferLocked(tx.TokenTransfers), nil
	case TxTopicCreate:
		return m.applyTopicCreateLocked(tx.TopicCreate), nil
	case TxTopicMessage:
		return m.applyTopicMessageLocked(op, tx.TopicMessage, now)
	default:
		return Receipt{Status: "INVALID_TRANSACTION_BODY"}, nil
	}
}

func (m *Memnet) applyTransferLocked(transfers []HbarTransfer) Receipt {
	var net int64
	for _, t := range transfers {
		net += t.Amount
		acct, ok := m.accounts[t.AccountID]
		if !ok {
			return Receipt{Status: StatusInvalidAccountID}
		}
		if t.Amount < 0 && acct.balance+t.Amount < 0 {
			return Receipt{Status: StatusInsufficientBalance}
		}
	}
	if net != 0 {
		return Receipt{Status: "INVALID_ACCOUNT_AMOUNTS"}
	}
	for _, t := range transfers {
		m.accounts[t.AccountID].balance += t.Amount
	}
	return Receipt{Status: StatusSuccess}
}

func (m *Memnet) applyTokenCreateLocked(body *TokenCreateBody) Receipt {
	treasury, ok := m.accounts[body.Treasury]
	if !ok {
		return Receipt{Status: StatusInvalidAccountID}
	}
	m.nextEntity++
	tokenID := entityID(m.nextEntity)
	m.tokens[tokenID] = &memToken{
		name:     body.Name,
		symbol:   body.Symbol,
		decimals: body.Decimals,
		treasury: body.Treasury,
	}
	treasury.tokenOrder = append(treasury.tokenOrder, tokenID)
	treasury.tokens[tokenID] = body.InitialSupply
	return Receipt{Status: StatusSuccess, TokenID: tokenID}
}

func (m *Memnet) applyTokenAssociateLocked(body *TokenAssociateBody) Receipt {
	acct, ok := m.accounts[body.AccountID]
	if !ok {
		return Receipt{Status: StatusInvalidAccountID}
	}
	if _, ok := m.tokens[body.TokenID]; !ok {
		return Receipt{Status: "INVALID_TOKEN_ID"}
	}
	if _, ok := acct.tokens[body.TokenID]; ok {
		return Receipt{Status: StatusTokenAlreadyAssociated}
	}
	acct.tokenOrder = append(acct.tokenOrder, body.TokenID)
	acct.tokens[body.TokenID] = 0
	return Receipt{Status: StatusSuccess}
}

func (m *Memnet) applyTokenTransferLocked(transfers []TokenTransfer) Receipt {
	net := make(map[string]int64)
	for _, t := range transfers {
		net[t.TokenID] += t.Amount
		acct, ok := m.accounts[t.AccountID]
		if !ok {
			return Receipt{Status: StatusInvalidAccountID}
		}
		held, associated := acct.tokens[t.TokenID]
		if !associated {
			return Receipt{Status: StatusTokenNotAssociated}
		}
		if t.Amount < 0 && held+t.Amount < 0 {
			return Receipt{Status: StatusInsufficientTokens}
		}
	}
	for _, n := range net {
		if n != 0 {
			return Receipt{Status: "TRANSFERS_NOT_ZERO_SUM_FOR_TOKEN"}
		}
	}
	for _, t := range transfers {
		m.accounts[t.AccountID].tokens[t.TokenID] += t.Amount
	}
	return Receipt{Status: StatusSuccess}
}

func (m *Memnet) applyTopicCreateLocked(body *TopicCreateBody) Receipt {
	m.nextEntity++
	topicID := entityID(m.nextEntity)
	m.topics[topicID] = &memTopic{memo: body.Memo, submitKey: body.SubmitKey}
	return Receipt{Status: StatusSuccess, TopicID: topicID}
}

func (m *Memnet) applyTopicMessageLocked(op Operator, body *TopicMessageBody, now time.Time) (Receipt, *TopicMessage) {
	topic, ok := m.topics[body.TopicID]
	if !ok {
		return Receipt{Status: StatusInvalidTopicID}, nil
	}
	if topic.submitKey != "" && topic.submitKey != op.SigningKey {
		return Receipt{Status: StatusUnauthorized}, nil
	}
	msg := TopicMessage{
		TopicID:        body.TopicID,
		SequenceNumber: uint64(len(topic.messages)) + 1,
		Payload:        append([]byte(nil), body.Payload...),
		ConsensusTime:  now,
	}
	topic.messages = append(topic.messages, msg)
	return Receipt{Status: StatusSuccess, SequenceNumber: msg.SequenceNumber}, &msg
}

func (m *Memnet) AwaitReceipt(ctx context.Context, sub Submission) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	receipt, ok := m.receipts[sub.ID]
	if !ok {
		return Receipt{Status: StatusReceiptNotFound}, ErrUnknownReceipt
	}
	return receipt, nil
}

func (m *Memnet) TopicMessagesSince(ctx context.Context, topicID string, start time.Time, limit int) ([]TopicMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	topic, ok := m.topics[topicID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topicID)
	}
	out := make([]TopicMessage, 0, len(topic.messages))
	for _, msg := range topic.messages {
		if msg.ConsensusTime.Before(start) {
			continue
		}
		out = append(out, msg)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memnet) SubscribeTopic(ctx context.Context, topicID string, start time.Time, deliver func(TopicMessage)) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.topics[topicID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topicID)
	}
	id := uuid.NewString()
	sub := &memSubscriber{
		topicID: topicID,
		start:   start,
		deliver: deliver,
	}
	sub.remove = func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
	m.subs[id] = sub
	return sub, nil
}

// InjectTopicMessage pushes a raw message to live subscribers without
// touching the topic log. Tests use it to simulate out-of-order and
// duplicate delivery from the network.
func (m *Memnet) InjectTopicMessage(msg TopicMessage) {
	m.mu.Lock()
	targets := m.subscribersForLocked(&msg)
	m.mu.Unlock()
	for _, t := range targets {
		t.sub.push(t.msg)
	}
}
