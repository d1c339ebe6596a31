package account

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hbar-desk/go-client/internal/ledger"
	"hbar-desk/go-client/pkg/models"
)

var testKey = strings.Repeat("ab", 32)

func testOperator(accountID string) ledger.Operator {
	return ledger.Operator{AccountID: accountID, SigningKey: testKey}
}

func TestFetchMergesBalanceAndTokenRelationships(t *testing.T) {
	net := ledger.NewMemnet()
	net.RegisterAccount("0.0.100", testKey, 10*models.TinybarPerHbar)
	op := testOperator("0.0.100")

	sub, err := net.Submit(context.Background(), op, ledger.Transaction{
		Kind: ledger.TxTokenCreate,
		TokenCreate: &ledger.TokenCreateBody{
			Name: "Demo", Symbol: "DMO", InitialSupply: 1000, Decimals: 2,
			Treasury: "0.0.100", AdminKey: testKey, SupplyKey: testKey,
		},
	})
	if err != nil {
		t.Fatalf("token create failed: %v", err)
	}
	receipt, err := net.AwaitReceipt(context.Background(), sub)
	if err != nil || receipt.Status != ledger.StatusSuccess {
		t.Fatalf("token create receipt: %+v err %v", receipt, err)
	}

	snap, err := Fetch(context.Background(), net, op)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if snap.AccountID != "0.0.100" {
		t.Fatalf("unexpected account id %s", snap.AccountID)
	}
	if len(snap.Tokens) != 1 {
		t.Fatalf("expected exactly the associated token, got %+v", snap.Tokens)
	}
	tok := snap.Tokens[0]
	if tok.TokenID != receipt.TokenID || tok.Balance != 1000 || tok.Decimals != 2 {
		t.Fatalf("unexpected token balance: %+v", tok)
	}
	// The relationship query does not resolve metadata; the fields
	// must stay unset rather than defaulted.
	if tok.Name != nil || tok.Symbol != nil {
		t.Fatalf("expected unset metadata, got name=%v symbol=%v", tok.Name, tok.Symbol)
	}
}

func TestFetchFailsWholeOperationOnEitherRead(t *testing.T) {
	net := ledger.NewMemnet()
	// Operator account never registered: the balance read fails.
	_, err := Fetch(context.Background(), net, testOperator("0.0.404"))
	if !errors.Is(err, ErrSync) {
		t.Fatalf("expected ErrSync, got %v", err)
	}
}

func TestHolderPublishesConsistentCopies(t *testing.T) {
	h := NewHolder()
	if _, ok := h.Get(); ok {
		t.Fatal("empty holder must report no snapshot")
	}
	h.Set(models.AccountSnapshot{
		AccountID: "0.0.100",
		Balance:   42,
		Tokens:    []models.TokenBalance{{TokenID: "0.0.2001", Balance: 1}},
	})
	got, ok := h.Get()
	if !ok || got.Balance != 42 {
		t.Fatalf("unexpected snapshot: %+v ok=%v", got, ok)
	}
	got.Tokens[0].Balance = 99
	again, _ := h.Get()
	if again.Tokens[0].Balance != 1 {
		t.Fatal("reader mutation must not leak into the holder")
	}
	h.Clear()
	if _, ok := h.Get(); ok {
		t.Fatal("holder must be empty after clear")
	}
}
