// Package ledger is the boundary to the ledger network. The network
// itself is a collaborator reached through the Gateway capability set;
// this package only manages authenticated handles and the in-memory
// transport used for local development and tests.
package ledger

import (
	"context"
	"errors"
	"time"
)

// Receipt status codes surfaced by the network. StatusSuccess is the
// only value classified as success; everything else is a business
// failure carried verbatim to the caller.
const (
	StatusSuccess                = "SUCCESS"
	StatusInvalidSignature       = "INVALID_SIGNATURE"
	StatusInvalidAccountID       = "INVALID_ACCOUNT_ID"
	StatusInvalidTopicID         = "INVALID_TOPIC_ID"
	StatusInsufficientBalance    = "INSUFFICIENT_PAYER_BALANCE"
	StatusTokenNotAssociated     = "TOKEN_NOT_ASSOCIATED_TO_ACCOUNT"
	StatusTokenAlreadyAssociated = "TOKEN_ALREADY_ASSOCIATED_TO_ACCOUNT"
	StatusInsufficientTokens     = "INSUFFICIENT_TOKEN_BALANCE"
	StatusUnauthorized           = "UNAUTHORIZED"
	StatusReceiptNotFound        = "RECEIPT_NOT_FOUND"
)

var (
	ErrAuthentication = errors.New("ledger credentials rejected")
	ErrClosed         = errors.New("ledger handle is closed")
	ErrUnknownAccount = errors.New("account is unknown to the network")
	ErrUnknownTopic   = errors.New("topic is unknown to the network")
	ErrUnknownReceipt = errors.New("no receipt for submission")
)

// Operator identifies the paying, signing account of queries and
// transactions.
type Operator struct {
	AccountID  string
	SigningKey string
}

type TxKind string

const (
	TxTransfer       TxKind = "transfer"
	TxTokenCreate    TxKind = "token-create"
	TxTokenAssociate TxKind = "token-associate"
	TxTokenTransfer  TxKind = "token-transfer"
	TxTopicCreate    TxKind = "topic-create"
	TxTopicMessage   TxKind = "topic-message"
)

type HbarTransfer struct {
	AccountID string
	Amount    int64 // tinybar, negative for debits
}

type TokenTransfer struct {
	TokenID   string
	AccountID string
	Amount    int64 // token-native units
}

type TokenCreateBody struct {
	Name          string
	Symbol        string
	InitialSupply int64
	Decimals      uint32
	Treasury      string
	AdminKey      string
	SupplyKey     string
}

type TokenAssociateBody struct {
	AccountID string
	TokenID   string
}

type TopicCreateBody struct {
	Memo      string
	SubmitKey string // empty means the topic accepts submissions from anyone
}

type TopicMessageBody struct {
	TopicID string
	Payload []byte
}

// Transaction is a built, ready-to-sign transaction. Exactly the body
// matching Kind is set.
type Transaction struct {
	Kind           TxKind
	Transfers      []HbarTransfer
	TokenTransfers []TokenTransfer
	TokenCreate    *TokenCreateBody
	TokenAssociate *TokenAssociateBody
	TopicCreate    *TopicCreateBody
	TopicMessage   *TopicMessageBody
}

// Submission is the network's acknowledgement that a signed
// transaction entered consensus processing.
type Submission struct {
	ID            string
	TransactionID string
}

// Receipt is the network's authoritative outcome of a submission.
type Receipt struct {
	Status         string
	TokenID        string
	TopicID        string
	SequenceNumber uint64
}

// TokenRelationship is one row of the account-info token enumeration.
// Name and Symbol are nil when the query does not resolve metadata;
// Decimals is nil when unknown.
type TokenRelationship struct {
	TokenID  string
	Balance  int64
	Decimals *uint32
	Name     *string
	Symbol   *string
}

// TopicMessage is a raw consensus-ordered message as delivered by the
// network. Arrival order is not guaranteed to match SequenceNumber
// order.
type TopicMessage struct {
	TopicID        string
	SequenceNumber uint64
	Payload        []byte
	ConsensusTime  time.Time
}

// Subscription is a live topic tail. Cancel is deterministic: once it
// returns, the deliver callback will not be invoked again.
type Subscription interface {
	Cancel()
}

// Gateway is the capability set this client needs from the network.
// Queries are operator-signed, which is what lets a balance probe
// detect rejected credentials at session open.
type Gateway interface {
	AccountBalance(ctx context.Context, op Operator, accountID string) (int64, error)
	AccountTokenRelationships(ctx context.Context, op Operator, accountID string) ([]TokenRelationship, error)
	Submit(ctx context.Context, op Operator, tx Transaction) (Submission, error)
	AwaitReceipt(ctx context.Context, sub Submission) (Receipt, error)
	TopicMessagesSince(ctx context.Context, topicID string, start time.Time, limit int) ([]TopicMessage, error)
	SubscribeTopic(ctx context.Context, topicID string, start time.Time, deliver func(TopicMessage)) (Subscription, error)
}
