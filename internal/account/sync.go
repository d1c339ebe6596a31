// Package account reconciles the local account view against network
// truth. Fetch merges the balance and token-relationship reads into
// one snapshot; partial snapshots are never published.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hbar-desk/go-client/internal/ledger"
	"hbar-desk/go-client/pkg/models"
)

var ErrSync = errors.New("account state sync failed")

// Fetch performs the two logically independent reads and merges them.
// A failure in either read fails the whole operation so callers never
// observe a balance without its token data or vice versa.
func Fetch(ctx context.Context, gw ledger.Gateway, op ledger.Operator) (models.AccountSnapshot, error) {
	balance, err := gw.AccountBalance(ctx, op, op.AccountID)
	if err != nil {
		return models.AccountSnapshot{}, fmt.Errorf("%w: balance query: %v", ErrSync, err)
	}
	rels, err := gw.AccountTokenRelationships(ctx, op, op.AccountID)
	if err != nil {
		return models.AccountSnapshot{}, fmt.Errorf("%w: token relationship query: %v", ErrSync, err)
	}

	tokens := make([]models.TokenBalance, 0, len(rels))
	for _, rel := range rels {
		tb := models.TokenBalance{
			TokenID: rel.TokenID,
			Balance: rel.Balance,
			Name:    rel.Name,
			Symbol:  rel.Symbol,
		}
		if rel.Decimals != nil {
			tb.Decimals = *rel.Decimals
		}
		tokens = append(tokens, tb)
	}
	return models.AccountSnapshot{
		AccountID: op.AccountID,
		Balance:   balance,
		Tokens:    tokens,
		FetchedAt: time.Now().UTC(),
	}, nil
}
