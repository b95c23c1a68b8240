package core

import (
	"context"
	"sync"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteMintFullyHedged(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	env.perp.total = dec(1000)
	ctx := context.Background()

	// ratio caps at base, curve ends at 1% fee: 1000 -> 990.
	got := env.master.QuoteMint(ctx, dec(1000), env.collateral.Id)
	assert.True(t, got.Equal(dec(990)), "got %s", got)
}

func TestQuoteMintIsIdempotent(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	env.perp.total = dec(700)
	ctx := context.Background()

	first := env.master.QuoteMint(ctx, dec(1000), env.collateral.Id)
	second := env.master.QuoteMint(ctx, dec(1000), env.collateral.Id)
	assert.True(t, first.Equal(second))
	assert.True(t, env.collateral.StocksUsers.IsZero(), "quotes must not mutate the ledger")
}

func TestQuoteMintRejectsOverCap(t *testing.T) {
	mbd := defaultMintBurnData()
	mbd.XFeeMint = decs(0)
	mbd.YFeeMint = decs(0)
	mbd.CapOnStableMinted = dec(500)
	env := newTestEnv(t, mbd, defaultSLPData())
	env.collateral.StocksUsers = dec(400)
	ctx := context.Background()

	// net 150 would push stocks to 550 > 500: the whole quote rejects.
	got := env.master.QuoteMint(ctx, dec(150), env.collateral.Id)
	assert.True(t, got.IsZero())

	got = env.master.QuoteMint(ctx, dec(100), env.collateral.Id)
	assert.True(t, got.Equal(dec(100)))
}

func TestQuoteFailClosed(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	ctx := context.Background()

	t.Run("unknown collateral", func(t *testing.T) {
		assert.True(t, env.master.QuoteMint(ctx, dec(100), uuid.Must(uuid.NewV4())).IsZero())
		assert.True(t, env.master.QuoteBurn(ctx, dec(100), uuid.Must(uuid.NewV4())).IsZero())
	})

	t.Run("paused direction", func(t *testing.T) {
		require.NoError(t, env.master.SetPause(ctx, guardian, env.collateral.Id, DirectionMint, true))
		assert.True(t, env.master.QuoteMint(ctx, dec(100), env.collateral.Id).IsZero())
		require.NoError(t, env.master.SetPause(ctx, guardian, env.collateral.Id, DirectionMint, false))
	})

	t.Run("oracle down", func(t *testing.T) {
		env.oracle.fail = true
		assert.True(t, env.master.QuoteMint(ctx, dec(100), env.collateral.Id).IsZero())
		env.oracle.fail = false
	})

	t.Run("burn over backing", func(t *testing.T) {
		env.collateral.StocksUsers = dec(50)
		assert.True(t, env.master.QuoteBurn(ctx, dec(100), env.collateral.Id).IsZero())
	})

	t.Run("zero amount", func(t *testing.T) {
		assert.True(t, env.master.QuoteMint(ctx, decimal.Zero, env.collateral.Id).IsZero())
	})
}

func TestQuoteMintNeverNegative(t *testing.T) {
	// A full fee with a 2x keeper malus would price above 100% unclamped;
	// the quote must come back zero, never below.
	mbd := defaultMintBurnData()
	mbd.XFeeMint = decs(0)
	mbd.YFeeMint = decs(1_000_000_000)
	mbd.BonusMalusMint = dec(2_000_000_000)
	env := newTestEnv(t, mbd, defaultSLPData())
	ctx := context.Background()

	got := env.master.QuoteMint(ctx, dec(1000), env.collateral.Id)
	assert.False(t, got.IsNegative())
	assert.True(t, got.IsZero(), "a full fee leaves nothing to mint, got %s", got)

	require.NoError(t, env.collatToken.Mint(ctx, alice, dec(1000)))
	_, err := env.master.Mint(ctx, alice, dec(1000), env.collateral.Id)
	require.ErrorIs(t, err, ErrZeroAmount)
	assert.True(t, env.collateral.StocksUsers.IsZero(), "rejected mint must not move stocks")
}

func TestQuotesRunConcurrently(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	env.perp.total = dec(1000)
	env.collateral.StocksUsers = dec(500)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			env.master.QuoteMint(ctx, dec(100), env.collateral.Id)
		}()
		go func() {
			defer wg.Done()
			env.master.QuoteBurn(ctx, dec(100), env.collateral.Id)
		}()
	}
	wg.Wait()
	assert.True(t, env.collateral.StocksUsers.Equal(dec(500)), "quotes must not mutate the ledger")
}

func TestMintMatchesQuote(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	env.perp.total = dec(1000)
	ctx := context.Background()
	require.NoError(t, env.collatToken.Mint(ctx, alice, dec(1000)))

	quoted := env.master.QuoteMint(ctx, dec(1000), env.collateral.Id)
	require.True(t, quoted.IsPositive())

	minted, err := env.master.Mint(ctx, alice, dec(1000), env.collateral.Id)
	require.NoError(t, err)
	assert.True(t, minted.Equal(quoted))
	assert.True(t, env.collateral.StocksUsers.Equal(quoted))

	stable, err := env.stableToken.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.True(t, stable.Equal(quoted))

	held, err := env.collatToken.BalanceOf(ctx, reserve)
	require.NoError(t, err)
	assert.True(t, held.Equal(dec(1000)))
}

func TestMintRejections(t *testing.T) {
	mbd := defaultMintBurnData()
	mbd.XFeeMint = decs(0)
	mbd.YFeeMint = decs(0)
	mbd.CapOnStableMinted = dec(500)
	env := newTestEnv(t, mbd, defaultSLPData())
	env.collateral.StocksUsers = dec(400)
	ctx := context.Background()
	require.NoError(t, env.collatToken.Mint(ctx, alice, dec(1000)))

	_, err := env.master.Mint(ctx, alice, dec(150), env.collateral.Id)
	require.ErrorIs(t, err, ErrCapExceeded)
	assert.True(t, env.collateral.StocksUsers.Equal(dec(400)), "failed mint must not move stocks")

	require.NoError(t, env.master.SetPause(ctx, guardian, env.collateral.Id, DirectionMint, true))
	_, err = env.master.Mint(ctx, alice, dec(10), env.collateral.Id)
	require.ErrorIs(t, err, ErrCollateralPaused)

	_, err = env.master.Mint(ctx, alice, dec(10), uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, ErrUnknownCollateral)
}

func TestBurnRoundTrip(t *testing.T) {
	mbd := defaultMintBurnData()
	mbd.XFeeMint = decs(0)
	mbd.YFeeMint = decs(0)
	mbd.XFeeBurn = decs(0)
	mbd.YFeeBurn = decs(0)
	env := newTestEnv(t, mbd, defaultSLPData())
	ctx := context.Background()
	require.NoError(t, env.collatToken.Mint(ctx, alice, dec(1000)))

	minted, err := env.master.Mint(ctx, alice, dec(1000), env.collateral.Id)
	require.NoError(t, err)
	require.True(t, minted.Equal(dec(1000)))

	quoted := env.master.QuoteBurn(ctx, dec(400), env.collateral.Id)
	assert.True(t, quoted.Equal(dec(400)))

	redeemed, err := env.master.Burn(ctx, alice, dec(400), env.collateral.Id)
	require.NoError(t, err)
	assert.True(t, redeemed.Equal(quoted))
	assert.True(t, env.collateral.StocksUsers.Equal(dec(600)))

	back, err := env.collatToken.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.True(t, back.Equal(dec(400)))

	_, err = env.master.Burn(ctx, alice, dec(700), env.collateral.Id)
	require.ErrorIs(t, err, ErrInsufficientBacking)
}

func TestBurnFeeRoundsForProtocol(t *testing.T) {
	mbd := defaultMintBurnData()
	mbd.XFeeBurn = decs(0)
	mbd.YFeeBurn = decs(10_000_000) // 1%
	env := newTestEnv(t, mbd, defaultSLPData())
	env.collateral.StocksUsers = dec(1000)
	ctx := context.Background()
	require.NoError(t, env.collatToken.Mint(ctx, reserve, dec(1000)))
	require.NoError(t, env.stableToken.Mint(ctx, alice, dec(1000)))

	redeemed, err := env.master.Burn(ctx, alice, dec(1000), env.collateral.Id)
	require.NoError(t, err)
	assert.True(t, redeemed.Equal(dec(990)), "got %s", redeemed)
}

func TestMintBurnNeverTouchSanRate(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	env.perp.total = dec(10_000)
	ctx := context.Background()
	require.NoError(t, env.collatToken.Mint(ctx, alice, dec(1000)))

	before := env.collateral.SanRate
	_, err := env.master.Mint(ctx, alice, dec(1000), env.collateral.Id)
	require.NoError(t, err)
	_, err = env.master.Burn(ctx, alice, dec(100), env.collateral.Id)
	require.NoError(t, err)
	assert.True(t, env.collateral.SanRate.Equal(before))
}

func TestSLPDepositWithdraw(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	ctx := context.Background()
	require.NoError(t, env.collatToken.Mint(ctx, alice, dec(1000)))

	sanTokens, err := env.master.DepositSLP(ctx, alice, dec(1000), env.collateral.Id)
	require.NoError(t, err)
	assert.True(t, sanTokens.Equal(dec(1000)), "san rate starts at 1")
	assert.True(t, env.collateral.SanTokenSupply.Equal(dec(1000)))

	// Strategy proceeds arrive in the reserve, keeper folds the SLP share
	// into the san rate.
	require.NoError(t, env.collatToken.Mint(ctx, reserve, dec(100)))
	distributed, err := env.master.AccrueInterest(ctx, keeper, env.collateral.Id, dec(100))
	require.NoError(t, err)
	assert.True(t, distributed.Equal(dec(50)), "half of the interest goes to SLPs")
	assert.True(t, env.collateral.SanRate.GreaterThan(Base), "san rate must grow")

	out, err := env.master.WithdrawSLP(ctx, alice, dec(1000), env.collateral.Id)
	require.NoError(t, err)
	assert.True(t, out.Equal(dec(1050)), "got %s", out)
	assert.True(t, env.collateral.SanTokenSupply.IsZero())
}

func TestSLPWithdrawSlippage(t *testing.T) {
	slpd := defaultSLPData()
	slpd.Slippage = dec(100_000_000) // 10%
	env := newTestEnv(t, defaultMintBurnData(), slpd)
	ctx := context.Background()
	require.NoError(t, env.collatToken.Mint(ctx, alice, dec(1000)))

	_, err := env.master.DepositSLP(ctx, alice, dec(1000), env.collateral.Id)
	require.NoError(t, err)

	out, err := env.master.WithdrawSLP(ctx, alice, dec(1000), env.collateral.Id)
	require.NoError(t, err)
	assert.True(t, out.Equal(dec(900)), "got %s", out)
}

func TestAccrueInterestRespectsCapAndLocksRemainder(t *testing.T) {
	slpd := defaultSLPData()
	slpd.InterestsForSLPs = BaseParams
	slpd.MaxInterestsDistributed = dec(30)
	env := newTestEnv(t, defaultMintBurnData(), slpd)
	ctx := context.Background()
	require.NoError(t, env.collatToken.Mint(ctx, alice, dec(1000)))
	_, err := env.master.DepositSLP(ctx, alice, dec(1000), env.collateral.Id)
	require.NoError(t, err)

	distributed, err := env.master.AccrueInterest(ctx, keeper, env.collateral.Id, dec(100))
	require.NoError(t, err)
	assert.True(t, distributed.Equal(dec(30)))
	assert.True(t, env.collateral.SLPData.LockedInterests.Equal(dec(70)))
}

func TestSignalLoss(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	ctx := context.Background()
	require.NoError(t, env.collatToken.Mint(ctx, alice, dec(1000)))
	_, err := env.master.DepositSLP(ctx, alice, dec(1000), env.collateral.Id)
	require.NoError(t, err)

	before := env.collateral.SanRate
	require.NoError(t, env.master.SignalLoss(ctx, guardian, env.collateral.Id, dec(100)))
	assert.True(t, env.collateral.SanRate.LessThan(before))

	err = env.master.SignalLoss(ctx, guardian, env.collateral.Id, dec(10_000))
	require.ErrorIs(t, err, ErrSanRateDeflated)
}

func TestGovernanceAccessControl(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	ctx := context.Background()

	err := env.master.SetPause(ctx, alice, env.collateral.Id, DirectionMint, true)
	require.ErrorIs(t, err, ErrUnauthorized)

	err = env.master.SetCapOnStableMinted(ctx, keeper, env.collateral.Id, dec(10))
	require.ErrorIs(t, err, ErrUnauthorized)

	// keepers adjust bonus/malus, governors pass every check
	require.NoError(t, env.master.SetBonusMalus(ctx, keeper, env.collateral.Id, dec(2_000_000_000), BaseParams))
	require.NoError(t, env.master.SetPause(ctx, governor, env.collateral.Id, DirectionBurn, true))
}

func TestConfigureFeesValidatesCurves(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	ctx := context.Background()

	err := env.master.ConfigureFees(ctx, governor, env.collateral.Id, &MintBurnData{
		XFeeMint: decs(5, 1),
		YFeeMint: decs(0, 0),
	})
	require.ErrorIs(t, err, ErrInvalidFeeCurve)

	err = env.master.ConfigureFees(ctx, governor, env.collateral.Id, &MintBurnData{
		XFeeMint: decs(0),
		YFeeMint: decs(2_000_000_000),
	})
	require.ErrorIs(t, err, ErrInvalidConfig, "fees above 100%% must not be configurable")

	err = env.master.ConfigureFees(ctx, governor, env.collateral.Id, &MintBurnData{
		XFeeMint: decs(0, 1_000_000_000),
		YFeeMint: decs(0, 50_000_000),
	})
	require.NoError(t, err)
	assert.Len(t, env.collateral.MintBurnData.XFeeMint, 2)
}

func TestRevokeCollateral(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	ctx := context.Background()

	env.collateral.StocksUsers = dec(5)
	err := env.master.RevokeCollateral(ctx, governor, env.collateral.Id)
	require.ErrorIs(t, err, ErrCollateralNotWoundDown)

	env.collateral.StocksUsers = decimal.Zero
	require.NoError(t, env.master.RevokeCollateral(ctx, governor, env.collateral.Id))
	assert.Nil(t, env.master.GetCollateral(env.collateral.Id))
}

func TestDeployCollateralTwice(t *testing.T) {
	env := newTestEnv(t, defaultMintBurnData(), defaultSLPData())
	err := env.master.DeployCollateral(context.Background(), governor, env.collateral.Clone())
	require.ErrorIs(t, err, ErrCollateralExists)
}
