package core

import (
	"context"
	"testing"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fixedOracle quotes a constant price with no confidence spread.
type fixedOracle struct {
	price      decimal.Decimal
	collatBase decimal.Decimal
	fail       bool
}

func (o *fixedOracle) ReadQuoteLower(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if o.fail {
		return decimal.Zero, errors.New("feed down")
	}
	return amount.Mul(o.price).Div(o.collatBase).Floor(), nil
}

func (o *fixedOracle) ReadUpper(ctx context.Context) (decimal.Decimal, error) {
	if o.fail {
		return decimal.Zero, errors.New("feed down")
	}
	return o.price, nil
}

// countingPerp records how often the hedging book was consulted.
type countingPerp struct {
	total decimal.Decimal
	calls int
}

func (p *countingPerp) TotalHedgeAmount(ctx context.Context) (decimal.Decimal, error) {
	p.calls++
	return p.total, nil
}

func defaultMintBurnData() MintBurnData {
	return MintBurnData{
		XFeeMint:          decs(0, 500_000_000, 1_000_000_000),
		YFeeMint:          decs(0, 2_000_000, 10_000_000),
		XFeeBurn:          decs(0, 500_000_000, 1_000_000_000),
		YFeeBurn:          decs(20_000_000, 10_000_000, 5_000_000),
		TargetHAHedge:     BaseParams,
		BonusMalusMint:    BaseParams,
		BonusMalusBurn:    BaseParams,
		CapOnStableMinted: dec(1_000_000_000_000),
	}
}

func defaultSLPData() SLPData {
	return SLPData{
		Slippage:                decimal.Zero,
		FeesForSLPs:             dec(500_000_000),
		InterestsForSLPs:        dec(500_000_000),
		MaxInterestsDistributed: decimal.Zero,
	}
}

type testEnv struct {
	clk         *clock.Mock
	master      *StableMaster
	collateral  *Collateral
	perp        *countingPerp
	oracle      *fixedOracle
	acl         *StaticAccessController
	stableToken *MemoryToken
	collatToken *MemoryToken
	sanToken    *MemoryToken
}

const (
	governor = "governor"
	guardian = "guardian"
	keeper   = "keeper"
	alice    = "alice"
	reserve  = "reserve"
)

func newTestEnv(t *testing.T, mbd MintBurnData, slpd SLPData) *testEnv {
	t.Helper()

	clk := clock.NewMock()
	acl := NewStaticAccessController()
	acl.Grant(governor, RoleGovernor)
	acl.Grant(guardian, RoleGuardian)
	acl.Grant(keeper, RoleKeeper)

	stableToken := NewMemoryToken("agUSD")
	collatToken := NewMemoryToken("USDC")
	sanToken := NewMemoryToken("sanUSDC")
	perp := &countingPerp{total: decimal.Zero}
	orc := &fixedOracle{price: ONE, collatBase: ONE}

	master, err := NewStableMaster(clk, NopLogger(), acl, nil, stableToken, reserve)
	require.NoError(t, err)

	c, err := NewCollateral(clk, "usdc-asset", "san-usdc-asset", ONE, orc, perp, collatToken, sanToken, mbd, slpd)
	require.NoError(t, err)
	require.NoError(t, master.DeployCollateral(context.Background(), governor, c))

	return &testEnv{
		clk:         clk,
		master:      master,
		collateral:  c,
		perp:        perp,
		oracle:      orc,
		acl:         acl,
		stableToken: stableToken,
		collatToken: collatToken,
		sanToken:    sanToken,
	}
}
