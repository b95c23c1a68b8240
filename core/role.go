package core

import (
	"sync"
)

type Role uint8

const (
	RoleGovernor Role = iota
	RoleGuardian
	RoleKeeper
)

func (r Role) String() string {
	switch r {
	case RoleGovernor:
		return "Governor"
	case RoleGuardian:
		return "Guardian"
	case RoleKeeper:
		return "Keeper"
	default:
		return "Unknown"
	}
}

// AccessController answers whether a caller holds a role. Every mutating
// governance operation on the engine consults it before touching state.
type AccessController interface {
	HasRole(caller string, role Role) bool
}

// StaticAccessController is a fixed grant table. A governor passes any role
// check.
type StaticAccessController struct {
	mu     sync.RWMutex
	grants map[string]map[Role]bool
}

func NewStaticAccessController() *StaticAccessController {
	return &StaticAccessController{grants: make(map[string]map[Role]bool)}
}

func (a *StaticAccessController) Grant(caller string, role Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.grants[caller] == nil {
		a.grants[caller] = make(map[Role]bool)
	}
	a.grants[caller][role] = true
}

func (a *StaticAccessController) Revoke(caller string, role Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.grants[caller], role)
}

func (a *StaticAccessController) HasRole(caller string, role Role) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	roles := a.grants[caller]
	if roles == nil {
		return false
	}
	return roles[role] || roles[RoleGovernor]
}
