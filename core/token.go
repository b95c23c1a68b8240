package core

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Token is the balance/transfer capability consumed by mutating operations.
// Quote paths never touch it.
type Token interface {
	BalanceOf(ctx context.Context, account string) (decimal.Decimal, error)
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error
	Mint(ctx context.Context, to string, amount decimal.Decimal) error
	Burn(ctx context.Context, from string, amount decimal.Decimal) error
}

// MemoryToken keeps balances in process. It backs tests and simulations; a
// deployment wires a real asset ledger behind the Token interface instead.
type MemoryToken struct {
	mu       sync.Mutex
	symbol   string
	balances map[string]decimal.Decimal
}

func NewMemoryToken(symbol string) *MemoryToken {
	return &MemoryToken{
		symbol:   symbol,
		balances: make(map[string]decimal.Decimal),
	}
}

func (t *MemoryToken) BalanceOf(ctx context.Context, account string) (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account], nil
}

func (t *MemoryToken) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Errorf("%s: negative transfer", t.symbol)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.balances[from].LessThan(amount) {
		return errors.Errorf("%s: insufficient balance of %s", t.symbol, from)
	}
	t.balances[from] = t.balances[from].Sub(amount)
	t.balances[to] = t.balances[to].Add(amount)
	return nil
}

func (t *MemoryToken) Mint(ctx context.Context, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Errorf("%s: negative mint", t.symbol)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[to] = t.balances[to].Add(amount)
	return nil
}

func (t *MemoryToken) Burn(ctx context.Context, from string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Errorf("%s: negative burn", t.symbol)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.balances[from].LessThan(amount) {
		return errors.Errorf("%s: insufficient balance of %s", t.symbol, from)
	}
	t.balances[from] = t.balances[from].Sub(amount)
	return nil
}
