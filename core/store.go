package core

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// MemoryCollateralStore is a CollateralStore backed by a map. Production
// deployments put a relational store behind the interface; lookups follow
// the same convention and miss with gorm.ErrRecordNotFound.
type MemoryCollateralStore struct {
	mu          sync.RWMutex
	collaterals map[uuid.UUID]*Collateral
}

func NewMemoryCollateralStore() *MemoryCollateralStore {
	return &MemoryCollateralStore{collaterals: make(map[uuid.UUID]*Collateral)}
}

var _ CollateralStore = (*MemoryCollateralStore)(nil)

func (s *MemoryCollateralStore) CreateCollateral(ctx context.Context, collateral *Collateral) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collaterals[collateral.Id]; ok {
		return ErrCollateralExists
	}
	s.collaterals[collateral.Id] = collateral.Clone()
	return nil
}

func (s *MemoryCollateralStore) UpsertCollateral(ctx context.Context, collateral *Collateral) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collaterals[collateral.Id] = collateral.Clone()
	return nil
}

func (s *MemoryCollateralStore) GetCollateralById(ctx context.Context, collateralId uuid.UUID) (*Collateral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collaterals[collateralId]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryCollateralStore) ListCollaterals(ctx context.Context) ([]*Collateral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Collateral, 0, len(s.collaterals))
	for _, c := range s.collaterals {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *MemoryCollateralStore) DeleteCollateral(ctx context.Context, collateralId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collaterals[collateralId]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.collaterals, collateralId)
	return nil
}
