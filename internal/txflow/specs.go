package txflow

import (
	"fmt"
	"strconv"
	"strings"

	"hbar-desk/go-client/internal/ledger"
	"hbar-desk/go-client/pkg/models"
)

// TransferSpec moves hbar from the session account to a recipient.
// Amount is a human-unit decimal string converted exactly at
// 1 hbar = 10^8 tinybar; the two ledger entries are exact negatives.
type TransferSpec struct {
	Sender    string
	Recipient string
	Amount    string
}

func (s TransferSpec) Kind() ledger.TxKind    { return ledger.TxTransfer }
func (s TransferSpec) SuccessMessage() string { return "hbar sent successfully" }

func (s TransferSpec) Build() (ledger.Transaction, error) {
	if !ledger.ValidEntityID(s.Recipient) {
		return ledger.Transaction{}, fmt.Errorf("%w: recipient %q is not an account id", ErrInvalidInput, s.Recipient)
	}
	if s.Recipient == s.Sender {
		return ledger.Transaction{}, fmt.Errorf("%w: recipient equals sender", ErrInvalidInput)
	}
	tinybar, err := models.ParseHbar(s.Amount)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if tinybar == 0 {
		return ledger.Transaction{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return ledger.Transaction{
		Kind: ledger.TxTransfer,
		Transfers: []ledger.HbarTransfer{
			{AccountID: s.Sender, Amount: -tinybar},
			{AccountID: s.Recipient, Amount: tinybar},
		},
	}, nil
}

// TokenCreateSpec creates a token with the session account as
// treasury and the session key as admin and supply authority.
type TokenCreateSpec struct {
	Treasury   string
	SigningKey string
	Name       string
	Symbol     string
	Supply     string
}

func (s TokenCreateSpec) Kind() ledger.TxKind    { return ledger.TxTokenCreate }
func (s TokenCreateSpec) SuccessMessage() string { return "token created successfully" }

func (s TokenCreateSpec) Build() (ledger.Transaction, error) {
	if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Symbol) == "" {
		return ledger.Transaction{}, fmt.Errorf("%w: token name and symbol are required", ErrInvalidInput)
	}
	supply, err := strconv.ParseInt(strings.TrimSpace(s.Supply), 10, 64)
	if err != nil || supply < 0 {
		return ledger.Transaction{}, fmt.Errorf("%w: initial supply %q is not a non-negative integer", ErrInvalidInput, s.Supply)
	}
	return ledger.Transaction{
		Kind: ledger.TxTokenCreate,
		TokenCreate: &ledger.TokenCreateBody{
			Name:          strings.TrimSpace(s.Name),
			Symbol:        strings.TrimSpace(s.Symbol),
			InitialSupply: supply,
			Treasury:      s.Treasury,
			AdminKey:      s.SigningKey,
			SupplyKey:     s.SigningKey,
		},
	}, nil
}

type TokenAssociateSpec struct {
	AccountID string
	TokenID   string
}

func (s TokenAssociateSpec) Kind() ledger.TxKind    { return ledger.TxTokenAssociate }
func (s TokenAssociateSpec) SuccessMessage() string { return "token associated successfully" }

func (s TokenAssociateSpec) Build() (ledger.Transaction, error) {
	if !ledger.ValidEntityID(s.TokenID) {
		return ledger.Transaction{}, fmt.Errorf("%w: token id %q is malformed", ErrInvalidInput, s.TokenID)
	}
	return ledger.Transaction{
		Kind:           ledger.TxTokenAssociate,
		TokenAssociate: &ledger.TokenAssociateBody{AccountID: s.AccountID, TokenID: s.TokenID},
	}, nil
}

// TokenTransferSpec moves integer token units; no sub-unit conversion
// is applied.
type TokenTransferSpec struct {
	Sender    string
	Recipient string
	TokenID   string
	Amount    string
}

func (s TokenTransferSpec) Kind() ledger.TxKind    { return ledger.TxTokenTransfer }
func (s TokenTransferSpec) SuccessMessage() string { return "token sent successfully" }

func (s TokenTransferSpec) Build() (ledger.Transaction, error) {
	if !ledger.ValidEntityID(s.Recipient) {
		return ledger.Transaction{}, fmt.Errorf("%w: recipient %q is not an account id", ErrInvalidInput, s.Recipient)
	}
	if !ledger.ValidEntityID(s.TokenID) {
		return ledger.Transaction{}, fmt.Errorf("%w: token id %q is malformed", ErrInvalidInput, s.TokenID)
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(s.Amount), 10, 64)
	if err != nil || amount <= 0 {
		return ledger.Transaction{}, fmt.Errorf("%w: amount %q is not a positive integer", ErrInvalidInput, s.Amount)
	}
	return ledger.Transaction{
		Kind: ledger.TxTokenTransfer,
		TokenTransfers: []ledger.TokenTransfer{
			{TokenID: s.TokenID, AccountID: s.Sender, Amount: -amount},
			{TokenID: s.TokenID, AccountID: s.Recipient, Amount: amount},
		},
	}, nil
}

// TopicCreateSpec creates a topic; when Private is set the session
// key becomes the topic's restricted submit key.
type TopicCreateSpec struct {
	Memo       string
	Private    bool
	SigningKey string
}

func (s TopicCreateSpec) Kind() ledger.TxKind    { return ledger.TxTopicCreate }
func (s TopicCreateSpec) SuccessMessage() string { return "topic created successfully" }

func (s TopicCreateSpec) Build() (ledger.Transaction, error) {
	body := &ledger.TopicCreateBody{Memo: s.Memo}
	if s.Private {
		body.SubmitKey = s.SigningKey
	}
	return ledger.Transaction{Kind: ledger.TxTopicCreate, TopicCreate: body}, nil
}

type TopicMessageSpec struct {
	TopicID string
	Payload []byte
}

func (s TopicMessageSpec) Kind() ledger.TxKind    { return ledger.TxTopicMessage }
func (s TopicMessageSpec) SuccessMessage() string { return "message sent successfully" }

func (s TopicMessageSpec) Build() (ledger.Transaction, error) {
	if !ledger.ValidEntityID(s.TopicID) {
		return ledger.Transaction{}, fmt.Errorf("%w: topic id %q is malformed", ErrInvalidInput, s.TopicID)
	}
	if len(s.Payload) == 0 {
		return ledger.Transaction{}, fmt.Errorf("%w: message payload is empty", ErrInvalidInput)
	}
	return ledger.Transaction{
		Kind:         ledger.TxTopicMessage,
		TopicMessage: &ledger.TopicMessageBody{TopicID: s.TopicID, Payload: append([]byte(nil), s.Payload...)},
	}, nil
}
