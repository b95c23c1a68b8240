package core

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"sync"

	"github.com/AbnerZheng/stablecore/utils"
	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type (
	CollateralStore interface {
		CreateCollateral(ctx context.Context, collateral *Collateral) error
		UpsertCollateral(ctx context.Context, collateral *Collateral) error
		GetCollateralById(ctx context.Context, collateralId uuid.UUID) (*Collateral, error)
		ListCollaterals(ctx context.Context) ([]*Collateral, error)
		DeleteCollateral(ctx context.Context, collateralId uuid.UUID) error
	}

	// Collateral is the per-collateral ledger entry: the stable value it
	// backs, the san-token exchange rate, fee parameters and the handles to
	// its collaborators. All mutation goes through the StableMaster.
	Collateral struct {
		Id          uuid.UUID `json:"id"`
		TokenRef    string    `json:"tokenRef"`
		SanTokenRef string    `json:"sanTokenRef"`

		// StocksUsers is the total stable value minted against this
		// collateral. It only moves on mint and burn, gated by the cap.
		StocksUsers decimal.Decimal `json:"stocksUsers"`

		// SanRate is the Base-scaled exchange rate between san tokens and
		// underlying collateral. Mint and burn never touch it; only
		// interest accrual and loss signals do.
		SanRate        decimal.Decimal `json:"sanRate"`
		SanTokenSupply decimal.Decimal `json:"sanTokenSupply"`

		// CollatBase is 10^decimals of the collateral token, converting
		// raw token units to whole tokens.
		CollatBase decimal.Decimal `json:"collatBase"`

		MintBurnData MintBurnData `json:"mintBurnData"`
		SLPData      SLPData      `json:"slpData"`

		CreatedAt  int64 `json:"createdAt"`
		LastUpdate int64 `json:"lastUpdate"`

		oracle           Oracle           `json:"-"`
		perpetualManager PerpetualManager `json:"-"`
		token            Token            `json:"-"`
		sanToken         Token            `json:"-"`

		mu sync.RWMutex `json:"-"`
	}

	// MintBurnData carries the fee parameters of one collateral: the two
	// piecewise-linear curves over the hedge ratio, the hedge target, the
	// keeper-adjusted multipliers, the cap and the per-direction pauses.
	// Fee values, breakpoints and multipliers are BaseParams-scaled.
	MintBurnData struct {
		XFeeMint []decimal.Decimal `json:"xFeeMint"`
		YFeeMint []decimal.Decimal `json:"yFeeMint"`
		XFeeBurn []decimal.Decimal `json:"xFeeBurn"`
		YFeeBurn []decimal.Decimal `json:"yFeeBurn"`

		TargetHAHedge  decimal.Decimal `json:"targetHAHedge"`
		BonusMalusMint decimal.Decimal `json:"bonusMalusMint"`
		BonusMalusBurn decimal.Decimal `json:"bonusMalusBurn"`

		CapOnStableMinted decimal.Decimal `json:"capOnStableMinted"`

		MintPaused bool `json:"mintPaused"`
		BurnPaused bool `json:"burnPaused"`
	}
)

func (j MintBurnData) Value() (driver.Value, error) {
	valueString, err := json.Marshal(j)
	return string(valueString), err
}

func (j *MintBurnData) Scan(value any) error {
	if err := json.Unmarshal(value.([]byte), &j); err != nil {
		return err
	}
	return nil
}

func (d *MintBurnData) Validate() error {
	if err := ValidateFeeCurve(d.XFeeMint, d.YFeeMint); err != nil {
		return err
	}
	if err := ValidateFeeCurve(d.XFeeBurn, d.YFeeBurn); err != nil {
		return err
	}
	// configured fee points must stay within [0, 100%]
	for _, ys := range [][]decimal.Decimal{d.YFeeMint, d.YFeeBurn} {
		for _, y := range ys {
			if y.IsNegative() || y.GreaterThan(BaseParams) {
				return ErrInvalidConfig
			}
		}
	}
	if d.TargetHAHedge.IsNegative() || d.TargetHAHedge.GreaterThan(BaseParams) {
		return ErrInvalidConfig
	}
	if !d.BonusMalusMint.IsPositive() || !d.BonusMalusBurn.IsPositive() {
		return ErrInvalidConfig
	}
	if d.CapOnStableMinted.IsNegative() {
		return ErrInvalidConfig
	}
	return nil
}

func NewCollateral(clk clock.Clock, tokenRef, sanTokenRef string, collatBase decimal.Decimal,
	oracle Oracle, perpetualManager PerpetualManager, token, sanToken Token,
	mintBurnData MintBurnData, slpData SLPData) (*Collateral, error) {

	if tokenRef == "" || sanTokenRef == "" {
		return nil, ErrInvalidConfig
	}
	if oracle == nil || perpetualManager == nil || token == nil || sanToken == nil {
		return nil, ErrZeroHandle
	}
	if !collatBase.IsPositive() {
		return nil, ErrInvalidConfig
	}
	if err := mintBurnData.Validate(); err != nil {
		return nil, err
	}
	if err := slpData.Validate(); err != nil {
		return nil, err
	}

	return &Collateral{
		Id:               uuid.Must(uuid.FromString(utils.GenUuidFromStrings(tokenRef, sanTokenRef))),
		TokenRef:         tokenRef,
		SanTokenRef:      sanTokenRef,
		StocksUsers:      decimal.Zero,
		SanRate:          Base,
		SanTokenSupply:   decimal.Zero,
		CollatBase:       collatBase,
		MintBurnData:     mintBurnData,
		SLPData:          slpData,
		CreatedAt:        clk.Now().Unix(),
		LastUpdate:       clk.Now().Unix(),
		oracle:           oracle,
		perpetualManager: perpetualManager,
		token:            token,
		sanToken:         sanToken,
	}, nil
}

// BindHandles re-attaches the collaborator handles after a ledger entry is
// loaded from a store; the handles themselves are never persisted.
func (c *Collateral) BindHandles(oracle Oracle, perpetualManager PerpetualManager, token, sanToken Token) error {
	if oracle == nil || perpetualManager == nil || token == nil || sanToken == nil {
		return ErrZeroHandle
	}
	c.oracle = oracle
	c.perpetualManager = perpetualManager
	c.token = token
	c.sanToken = sanToken
	return nil
}

func (c *Collateral) Oracle() Oracle                     { return c.oracle }
func (c *Collateral) PerpetualManager() PerpetualManager { return c.perpetualManager }

// bound reports whether all collaborator handles are attached. An entry
// fresh from a store stays unbound until BindHandles runs, and no user
// operation may touch it before then.
func (c *Collateral) bound() bool {
	return c.oracle != nil && c.perpetualManager != nil && c.token != nil && c.sanToken != nil
}

// ConfigureMintBurn applies a partial fee-parameter update. Zero-valued
// fields keep their current value; curves are swapped only as a pair and
// validated before anything is written.
func (c *Collateral) ConfigureMintBurn(update *MintBurnData) error {
	next := c.MintBurnData

	if update.XFeeMint != nil || update.YFeeMint != nil {
		if err := ValidateFeeCurve(update.XFeeMint, update.YFeeMint); err != nil {
			return err
		}
		next.XFeeMint = update.XFeeMint
		next.YFeeMint = update.YFeeMint
	}
	if update.XFeeBurn != nil || update.YFeeBurn != nil {
		if err := ValidateFeeCurve(update.XFeeBurn, update.YFeeBurn); err != nil {
			return err
		}
		next.XFeeBurn = update.XFeeBurn
		next.YFeeBurn = update.YFeeBurn
	}
	if !update.TargetHAHedge.IsZero() {
		next.TargetHAHedge = update.TargetHAHedge
	}
	if !update.BonusMalusMint.IsZero() {
		next.BonusMalusMint = update.BonusMalusMint
	}
	if !update.BonusMalusBurn.IsZero() {
		next.BonusMalusBurn = update.BonusMalusBurn
	}
	if !update.CapOnStableMinted.IsZero() {
		next.CapOnStableMinted = update.CapOnStableMinted
	}

	if err := next.Validate(); err != nil {
		return err
	}
	c.MintBurnData = next
	return nil
}

func (c *Collateral) Clone() *Collateral {
	return &Collateral{
		Id:               c.Id,
		TokenRef:         c.TokenRef,
		SanTokenRef:      c.SanTokenRef,
		StocksUsers:      c.StocksUsers,
		SanRate:          c.SanRate,
		SanTokenSupply:   c.SanTokenSupply,
		CollatBase:       c.CollatBase,
		MintBurnData:     c.MintBurnData,
		SLPData:          c.SLPData,
		CreatedAt:        c.CreatedAt,
		LastUpdate:       c.LastUpdate,
		oracle:           c.oracle,
		perpetualManager: c.perpetualManager,
		token:            c.token,
		sanToken:         c.sanToken,
	}
}
