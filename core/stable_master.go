package core

import (
	"context"
	"sync"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Direction uint8

const (
	DirectionMint Direction = iota
	DirectionBurn
)

func (d Direction) String() string {
	switch d {
	case DirectionMint:
		return "Mint"
	case DirectionBurn:
		return "Burn"
	default:
		return "Unknown"
	}
}

// StableMaster owns the registry of collateral ledgers and funnels every
// mutation through itself. Operations on one collateral are serialized by
// the ledger's own lock; unrelated collaterals proceed in parallel.
//
// Quote functions are pure reads that fail closed: any unknown, unbound,
// paused, over-cap or oracle-failure condition yields zero rather than an
// error. They take the ledger read lock, so quotes against one collateral
// run concurrently with each other. The mutating counterparts re-run the
// same computation under the exclusive lock and report the condition as an
// error instead, with no partial state change. All external state (oracle
// quote, hedging book) is read before any local mutation begins.
type StableMaster struct {
	clk   clock.Clock
	log   Log
	acl   AccessController
	store CollateralStore

	stableToken Token
	// reserveRef is the account holding the protocol's collateral.
	reserveRef string

	mu          sync.RWMutex
	collaterals map[uuid.UUID]*Collateral
}

func NewStableMaster(clk clock.Clock, log Log, acl AccessController, store CollateralStore, stableToken Token, reserveRef string) (*StableMaster, error) {
	if acl == nil || stableToken == nil {
		return nil, ErrZeroHandle
	}
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = NopLogger()
	}
	return &StableMaster{
		clk:         clk,
		log:         log,
		acl:         acl,
		store:       store,
		stableToken: stableToken,
		reserveRef:  reserveRef,
		collaterals: make(map[uuid.UUID]*Collateral),
	}, nil
}

// LoadCollaterals fills the registry from the store. Handles must be
// re-bound by the caller afterwards, they are not persisted.
func (m *StableMaster) LoadCollaterals(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	collaterals, err := m.store.ListCollaterals(ctx)
	if err != nil {
		return errors.Wrap(err, "list collaterals")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range collaterals {
		m.collaterals[c.Id] = c
	}
	return nil
}

func (m *StableMaster) GetCollateral(collateralId uuid.UUID) *Collateral {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collaterals[collateralId]
}

func (m *StableMaster) requireRole(caller string, role Role) error {
	if !m.acl.HasRole(caller, role) {
		return errors.Wrapf(ErrUnauthorized, "caller %s needs %s", caller, role)
	}
	return nil
}

// ------------ governance operations

func (m *StableMaster) DeployCollateral(ctx context.Context, caller string, c *Collateral) error {
	if err := m.requireRole(caller, RoleGovernor); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collaterals[c.Id]; ok {
		return ErrCollateralExists
	}
	if m.store != nil {
		if err := m.store.CreateCollateral(ctx, c); err != nil {
			return errors.Wrap(err, "create collateral")
		}
	}
	m.collaterals[c.Id] = c
	m.log.Info().Str("collateral", c.Id.String()).Str("token", c.TokenRef).Msg("collateral deployed")
	return nil
}

// RevokeCollateral removes a ledger entry. The collateral must be fully
// wound down: no stable value backed by it and no san tokens outstanding.
func (m *StableMaster) RevokeCollateral(ctx context.Context, caller string, collateralId uuid.UUID) error {
	if err := m.requireRole(caller, RoleGovernor); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collaterals[collateralId]
	if !ok {
		return ErrUnknownCollateral
	}
	if !c.StocksUsers.IsZero() || !c.SanTokenSupply.IsZero() {
		return ErrCollateralNotWoundDown
	}
	if m.store != nil {
		if err := m.store.DeleteCollateral(ctx, collateralId); err != nil {
			return errors.Wrap(err, "delete collateral")
		}
	}
	delete(m.collaterals, collateralId)
	m.log.Info().Str("collateral", collateralId.String()).Msg("collateral revoked")
	return nil
}

func (m *StableMaster) ConfigureFees(ctx context.Context, caller string, collateralId uuid.UUID, update *MintBurnData) error {
	if err := m.requireRole(caller, RoleGovernor); err != nil {
		return err
	}
	return m.withCollateral(ctx, collateralId, func(c *Collateral) error {
		return c.ConfigureMintBurn(update)
	})
}

// SetBonusMalus is the keeper hook scaling both base fees up or down with
// collateralization health.
func (m *StableMaster) SetBonusMalus(ctx context.Context, caller string, collateralId uuid.UUID, mint, burn decimal.Decimal) error {
	if err := m.requireRole(caller, RoleKeeper); err != nil {
		return err
	}
	if !mint.IsPositive() || !burn.IsPositive() {
		return ErrInvalidConfig
	}
	return m.withCollateral(ctx, collateralId, func(c *Collateral) error {
		c.MintBurnData.BonusMalusMint = mint
		c.MintBurnData.BonusMalusBurn = burn
		return nil
	})
}

func (m *StableMaster) SetCapOnStableMinted(ctx context.Context, caller string, collateralId uuid.UUID, cap decimal.Decimal) error {
	if err := m.requireRole(caller, RoleGovernor); err != nil {
		return err
	}
	if cap.IsNegative() {
		return ErrInvalidConfig
	}
	return m.withCollateral(ctx, collateralId, func(c *Collateral) error {
		c.MintBurnData.CapOnStableMinted = cap
		return nil
	})
}

func (m *StableMaster) SetPause(ctx context.Context, caller string, collateralId uuid.UUID, direction Direction, paused bool) error {
	if err := m.requireRole(caller, RoleGuardian); err != nil {
		return err
	}
	return m.withCollateral(ctx, collateralId, func(c *Collateral) error {
		switch direction {
		case DirectionMint:
			c.MintBurnData.MintPaused = paused
		case DirectionBurn:
			c.MintBurnData.BurnPaused = paused
		default:
			return ErrInvalidConfig
		}
		m.log.Info().Str("collateral", collateralId.String()).Stringer("direction", direction).Bool("paused", paused).Msg("pause toggled")
		return nil
	})
}

func (m *StableMaster) SetOracle(ctx context.Context, caller string, collateralId uuid.UUID, oracle Oracle) error {
	if err := m.requireRole(caller, RoleGovernor); err != nil {
		return err
	}
	if oracle == nil {
		return ErrZeroHandle
	}
	return m.withCollateral(ctx, collateralId, func(c *Collateral) error {
		c.oracle = oracle
		return nil
	})
}

// ------------ quote functions (pure reads, fail closed)

// QuoteMint simulates minting against amount of collateral, in raw token
// units, and returns the stable value the user would receive. Zero means
// the operation is currently unavailable. A quote is not a commitment: the
// mutating mint re-runs the computation atomically at execution time.
func (m *StableMaster) QuoteMint(ctx context.Context, amount decimal.Decimal, collateralId uuid.UUID) decimal.Decimal {
	c := m.GetCollateral(collateralId)
	if c == nil || !amount.IsPositive() {
		return decimal.Zero
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.bound() || c.MintBurnData.MintPaused {
		return decimal.Zero
	}
	net, _, err := m.mintComputation(ctx, c, amount)
	if err != nil {
		return decimal.Zero
	}
	return net
}

// QuoteBurn simulates burning amount of stable value and returns the
// collateral released, in raw token units. Zero means unavailable,
// including when amount exceeds the stocks backed by this collateral.
func (m *StableMaster) QuoteBurn(ctx context.Context, amount decimal.Decimal, collateralId uuid.UUID) decimal.Decimal {
	c := m.GetCollateral(collateralId)
	if c == nil || !amount.IsPositive() {
		return decimal.Zero
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.bound() || c.MintBurnData.BurnPaused {
		return decimal.Zero
	}
	redeem, _, err := m.burnComputation(ctx, c, amount)
	if err != nil {
		return decimal.Zero
	}
	return redeem
}

// mintComputation reads the oracle and the hedging book, then derives the
// net stable value and the collateral fee taken. No state is written.
func (m *StableMaster) mintComputation(ctx context.Context, c *Collateral, amount decimal.Decimal) (net, feeCollat decimal.Decimal, err error) {
	value, err := c.oracle.ReadQuoteLower(ctx, amount)
	if err != nil {
		return decimal.Zero, decimal.Zero, errors.Wrap(ErrStaleOracle, err.Error())
	}
	fee, err := c.ComputeMintFee(ctx, value)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	net = value.Mul(BaseParams.Sub(fee)).Div(BaseParams).Floor()
	if !net.IsPositive() {
		return decimal.Zero, decimal.Zero, ErrZeroAmount
	}
	if c.StocksUsers.Add(net).GreaterThan(c.MintBurnData.CapOnStableMinted) {
		return decimal.Zero, decimal.Zero, ErrCapExceeded
	}
	feeCollat = amount.Mul(fee).Div(BaseParams).Floor()
	return net, feeCollat, nil
}

// burnComputation derives the collateral released for burning amount of
// stable value, using the oracle's upper price so rounding stays on the
// protocol's side. No state is written.
func (m *StableMaster) burnComputation(ctx context.Context, c *Collateral, amount decimal.Decimal) (redeem, feeCollat decimal.Decimal, err error) {
	fee, err := c.ComputeBurnFee(ctx, amount)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	price, err := c.oracle.ReadUpper(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, errors.Wrap(ErrStaleOracle, err.Error())
	}
	if !price.IsPositive() {
		return decimal.Zero, decimal.Zero, ErrStaleOracle
	}
	redeem = amount.Mul(BaseParams.Sub(fee)).Mul(c.CollatBase).Div(price.Mul(BaseParams)).Floor()
	gross := amount.Mul(c.CollatBase).Div(price).Floor()
	feeCollat = gross.Sub(redeem)
	return redeem, feeCollat, nil
}

// ------------ mutating operations

// Mint pulls amount of collateral from user, mints the net stable value to
// them and records it in stocksUsers. All-or-nothing: any failed condition
// or transfer leaves the ledger untouched.
func (m *StableMaster) Mint(ctx context.Context, user string, amount decimal.Decimal, collateralId uuid.UUID) (decimal.Decimal, error) {
	c := m.GetCollateral(collateralId)
	if c == nil {
		return decimal.Zero, ErrUnknownCollateral
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bound() {
		return decimal.Zero, ErrZeroHandle
	}
	if c.MintBurnData.MintPaused {
		return decimal.Zero, ErrCollateralPaused
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrZeroAmount
	}

	net, feeCollat, err := m.mintComputation(ctx, c, amount)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.token.Transfer(ctx, user, m.reserveRef, amount); err != nil {
		return decimal.Zero, err
	}
	if err := m.stableToken.Mint(ctx, user, net); err != nil {
		if rbErr := c.token.Transfer(ctx, m.reserveRef, user, amount); rbErr != nil {
			m.log.Error().Err(rbErr).Str("user", user).Msg("mint rollback failed")
		}
		return decimal.Zero, err
	}

	c.StocksUsers = c.StocksUsers.Add(net)
	c.SLPData.FeesAside = c.SLPData.FeesAside.Add(feeCollat.Mul(c.SLPData.FeesForSLPs).Div(BaseParams).Floor())
	c.LastUpdate = m.clk.Now().Unix()
	m.persist(ctx, c)

	m.log.Info().Str("collateral", c.Id.String()).Str("user", user).
		Str("amount", amount.String()).Str("minted", net.String()).Msg("mint")
	return net, nil
}

// Burn destroys amount of the user's stable tokens and releases the
// corresponding collateral from the reserve.
func (m *StableMaster) Burn(ctx context.Context, user string, amount decimal.Decimal, collateralId uuid.UUID) (decimal.Decimal, error) {
	c := m.GetCollateral(collateralId)
	if c == nil {
		return decimal.Zero, ErrUnknownCollateral
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bound() {
		return decimal.Zero, ErrZeroHandle
	}
	if c.MintBurnData.BurnPaused {
		return decimal.Zero, ErrCollateralPaused
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrZeroAmount
	}

	redeem, feeCollat, err := m.burnComputation(ctx, c, amount)
	if err != nil {
		return decimal.Zero, err
	}

	if err := m.stableToken.Burn(ctx, user, amount); err != nil {
		return decimal.Zero, err
	}
	if err := c.token.Transfer(ctx, m.reserveRef, user, redeem); err != nil {
		if rbErr := m.stableToken.Mint(ctx, user, amount); rbErr != nil {
			m.log.Error().Err(rbErr).Str("user", user).Msg("burn rollback failed")
		}
		return decimal.Zero, err
	}

	c.StocksUsers = c.StocksUsers.Sub(amount)
	c.SLPData.FeesAside = c.SLPData.FeesAside.Add(feeCollat.Mul(c.SLPData.FeesForSLPs).Div(BaseParams).Floor())
	c.LastUpdate = m.clk.Now().Unix()
	m.persist(ctx, c)

	m.log.Info().Str("collateral", c.Id.String()).Str("user", user).
		Str("amount", amount.String()).Str("redeemed", redeem.String()).Msg("burn")
	return redeem, nil
}

// DepositSLP turns amount of collateral into san tokens at the current san
// rate.
func (m *StableMaster) DepositSLP(ctx context.Context, user string, amount decimal.Decimal, collateralId uuid.UUID) (decimal.Decimal, error) {
	c := m.GetCollateral(collateralId)
	if c == nil {
		return decimal.Zero, ErrUnknownCollateral
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bound() {
		return decimal.Zero, ErrZeroHandle
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrZeroAmount
	}
	sanTokens := amount.Mul(Base).Div(c.SanRate).Floor()
	if !sanTokens.IsPositive() {
		return decimal.Zero, ErrZeroAmount
	}

	if err := c.token.Transfer(ctx, user, m.reserveRef, amount); err != nil {
		return decimal.Zero, err
	}
	if err := c.sanToken.Mint(ctx, user, sanTokens); err != nil {
		if rbErr := c.token.Transfer(ctx, m.reserveRef, user, amount); rbErr != nil {
			m.log.Error().Err(rbErr).Str("user", user).Msg("slp deposit rollback failed")
		}
		return decimal.Zero, err
	}

	c.SanTokenSupply = c.SanTokenSupply.Add(sanTokens)
	c.LastUpdate = m.clk.Now().Unix()
	m.persist(ctx, c)
	return sanTokens, nil
}

// WithdrawSLP burns san tokens and releases the underlying collateral,
// minus the configured slippage.
func (m *StableMaster) WithdrawSLP(ctx context.Context, user string, sanAmount decimal.Decimal, collateralId uuid.UUID) (decimal.Decimal, error) {
	c := m.GetCollateral(collateralId)
	if c == nil {
		return decimal.Zero, ErrUnknownCollateral
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bound() {
		return decimal.Zero, ErrZeroHandle
	}
	if !sanAmount.IsPositive() {
		return decimal.Zero, ErrZeroAmount
	}
	if sanAmount.GreaterThan(c.SanTokenSupply) {
		return decimal.Zero, ErrInsufficientBacking
	}
	out := sanAmount.Mul(c.SanRate).Div(Base).
		Mul(BaseParams.Sub(c.SLPData.Slippage)).Div(BaseParams).Floor()

	if err := c.sanToken.Burn(ctx, user, sanAmount); err != nil {
		return decimal.Zero, err
	}
	if err := c.token.Transfer(ctx, m.reserveRef, user, out); err != nil {
		if rbErr := c.sanToken.Mint(ctx, user, sanAmount); rbErr != nil {
			m.log.Error().Err(rbErr).Str("user", user).Msg("slp withdraw rollback failed")
		}
		return decimal.Zero, err
	}

	c.SanTokenSupply = c.SanTokenSupply.Sub(sanAmount)
	c.LastUpdate = m.clk.Now().Unix()
	m.persist(ctx, c)
	return out, nil
}

// ------------ keeper operations on the san rate

func (m *StableMaster) AccrueInterest(ctx context.Context, caller string, collateralId uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := m.requireRole(caller, RoleKeeper); err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, ErrZeroAmount
	}
	var distributed decimal.Decimal
	err := m.withCollateral(ctx, collateralId, func(c *Collateral) error {
		distributed = c.accrueInterest(amount)
		return nil
	})
	return distributed, err
}

func (m *StableMaster) DistributeFees(ctx context.Context, caller string, collateralId uuid.UUID) (decimal.Decimal, error) {
	if err := m.requireRole(caller, RoleKeeper); err != nil {
		return decimal.Zero, err
	}
	var distributed decimal.Decimal
	err := m.withCollateral(ctx, collateralId, func(c *Collateral) error {
		distributed = c.distributeFeesAside()
		return nil
	})
	return distributed, err
}

func (m *StableMaster) SignalLoss(ctx context.Context, caller string, collateralId uuid.UUID, loss decimal.Decimal) error {
	if err := m.requireRole(caller, RoleGuardian); err != nil {
		return err
	}
	if !loss.IsPositive() {
		return ErrZeroAmount
	}
	return m.withCollateral(ctx, collateralId, func(c *Collateral) error {
		return c.signalLoss(loss)
	})
}

// ------------ internals

func (m *StableMaster) withCollateral(ctx context.Context, collateralId uuid.UUID, fn func(c *Collateral) error) error {
	c := m.GetCollateral(collateralId)
	if c == nil {
		return ErrUnknownCollateral
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := fn(c); err != nil {
		return err
	}
	c.LastUpdate = m.clk.Now().Unix()
	m.persist(ctx, c)
	return nil
}

func (m *StableMaster) persist(ctx context.Context, c *Collateral) {
	if m.store == nil {
		return
	}
	if err := m.store.UpsertCollateral(ctx, c); err != nil {
		m.log.Error().Err(err).Str("collateral", c.Id.String()).Msg("persist collateral")
	}
}
