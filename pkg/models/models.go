package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TinybarPerHbar is the fixed sub-unit conversion factor of the ledger.
const TinybarPerHbar = 100_000_000

type Session struct {
	AccountID  string `json:"account_id"`
	SigningKey string `json:"signing_key"`
}

// TokenBalance describes one token relationship of the account.
// Name and Symbol stay nil when the relationship query carries no
// metadata; Decimals defaults to 0 when unknown, which is an
// approximation rather than ground truth.
type TokenBalance struct {
	TokenID  string  `json:"token_id"`
	Balance  int64   `json:"balance"`
	Name     *string `json:"name,omitempty"`
	Symbol   *string `json:"symbol,omitempty"`
	Decimals uint32  `json:"decimals"`
}

// AccountSnapshot is the reconciled local view of the session account.
// Tokens preserve the enumeration order of the relationship query; a
// token absent from Tokens is not associated, which is different from
// an associated token with balance zero.
type AccountSnapshot struct {
	AccountID string         `json:"account_id"`
	Balance   int64          `json:"balance"`
	Tokens    []TokenBalance `json:"tokens"`
	FetchedAt time.Time      `json:"fetched_at"`
}

func (s AccountSnapshot) Token(tokenID string) (TokenBalance, bool) {
	for _, t := range s.Tokens {
		if t.TokenID == tokenID {
			return t, true
		}
	}
	return TokenBalance{}, false
}

// FormatHbar renders a tinybar amount as a fixed-point hbar string.
func FormatHbar(tinybar int64) string {
	sign := ""
	if tinybar < 0 {
		sign = "-"
		tinybar = -tinybar
	}
	whole := tinybar / TinybarPerHbar
	frac := tinybar % TinybarPerHbar
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	s := strings.TrimRight(fmt.Sprintf("%08d", frac), "0")
	return fmt.Sprintf("%s%d.%s", sign, whole, s)
}

// ParseHbar parses a non-negative fixed-point hbar amount into
// tinybar exactly. No floating point is involved, so "5.1" is always
// 510000000 and never a rounding neighbour.
func ParseHbar(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return 0, fmt.Errorf("amount %q is not a positive decimal", amount)
	}
	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 8 {
		return 0, fmt.Errorf("amount %q has more than 8 decimal places", amount)
	}
	frac = frac + strings.Repeat("0", 8-len(frac))
	var tinybar int64
	for _, part := range []string{whole, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("amount %q is not a decimal number", amount)
			}
			// Checked before accumulating: wraparound past 2^64 would
			// come back positive and slip through a sign test.
			digit := int64(c - '0')
			if tinybar > (math.MaxInt64-digit)/10 {
				return 0, fmt.Errorf("amount %q overflows", amount)
			}
			tinybar = tinybar*10 + digit
		}
	}
	return tinybar, nil
}

// Outcome carries the fields shared by every transaction result.
// Success reflects only the network's receipt status; RefreshWarning
// reports a post-mutation account refresh failure as an independent
// signal and never downgrades Success.
type Outcome struct {
	Success        bool   `json:"success"`
	TransactionID  string `json:"transaction_id"`
	Message        string `json:"message"`
	RefreshWarning string `json:"refresh_warning,omitempty"`
}

type TransferOutcome struct {
	Outcome
}

type TokenCreateOutcome struct {
	Outcome
	TokenID *string `json:"token_id,omitempty"`
}

type TopicCreateOutcome struct {
	Outcome
	TopicID *string `json:"topic_id,omitempty"`
}

type TopicMessageOutcome struct {
	Outcome
	SequenceNumber *uint64 `json:"sequence_number,omitempty"`
}

// TopicMessageRecord is one entry of a topic log. SequenceNumber is
// assigned by the ledger and strictly increasing per topic.
type TopicMessageRecord struct {
	SequenceNumber uint64    `json:"sequence_number"`
	Payload        []byte    `json:"payload"`
	ConsensusTime  time.Time `json:"consensus_time"`
	ReceivedAt     time.Time `json:"received_at"`
}
