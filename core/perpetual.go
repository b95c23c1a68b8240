package core

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// PerpetualManager exposes the hedging demand held against one collateral.
// The engine only ever reads it; position lifecycle lives with the
// collaborator.
type PerpetualManager interface {
	TotalHedgeAmount(ctx context.Context) (decimal.Decimal, error)
}

// MemoryPerpetualManager is an in-process PerpetualManager, used in tests
// and simulations where no live perpetual book is connected.
type MemoryPerpetualManager struct {
	mu    sync.RWMutex
	total decimal.Decimal
}

func NewMemoryPerpetualManager(total decimal.Decimal) *MemoryPerpetualManager {
	return &MemoryPerpetualManager{total: total}
}

func (p *MemoryPerpetualManager) TotalHedgeAmount(ctx context.Context) (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total, nil
}

func (p *MemoryPerpetualManager) SetTotalHedgeAmount(total decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}
