package staking

import (
	"context"
	"sync"

	"github.com/AbnerZheng/stablecore/core"
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
)

// RewardsDistributor accrues a reward token linearly over staked san-token
// balances: a global rewardPerToken accumulator advances with time and each
// staker settles against it on every interaction.
//
// One lock serializes everything and is held across the external token
// transfer and the local balance update, so a reentrant token callback
// cannot interleave a second stake or withdraw mid-operation.
type RewardsDistributor struct {
	mu sync.Mutex

	clk clock.Clock
	log core.Log
	acl core.AccessController

	stakingToken core.Token
	rewardToken  core.Token
	// vaultRef is the account holding staked tokens and the reward budget.
	vaultRef string

	totalSupply          decimal.Decimal
	rewardRate           decimal.Decimal
	rewardPerTokenStored decimal.Decimal
	periodFinish         int64
	lastUpdate           int64

	balances               map[string]decimal.Decimal
	userRewardPerTokenPaid map[string]decimal.Decimal
	rewards                map[string]decimal.Decimal
}

func NewRewardsDistributor(clk clock.Clock, log core.Log, acl core.AccessController, stakingToken, rewardToken core.Token, vaultRef string) (*RewardsDistributor, error) {
	if stakingToken == nil || rewardToken == nil || acl == nil {
		return nil, core.ErrZeroHandle
	}
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = core.NopLogger()
	}
	return &RewardsDistributor{
		clk:                    clk,
		log:                    log,
		acl:                    acl,
		stakingToken:           stakingToken,
		rewardToken:            rewardToken,
		vaultRef:               vaultRef,
		totalSupply:            decimal.Zero,
		rewardRate:             decimal.Zero,
		rewardPerTokenStored:   decimal.Zero,
		balances:               make(map[string]decimal.Decimal),
		userRewardPerTokenPaid: make(map[string]decimal.Decimal),
		rewards:                make(map[string]decimal.Decimal),
	}, nil
}

func (r *RewardsDistributor) Stake(ctx context.Context, user string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrZeroAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settle(user)
	if err := r.stakingToken.Transfer(ctx, user, r.vaultRef, amount); err != nil {
		return err
	}
	r.balances[user] = r.balances[user].Add(amount)
	r.totalSupply = r.totalSupply.Add(amount)
	r.log.Debug().Str("user", user).Str("amount", amount.String()).Msg("stake")
	return nil
}

func (r *RewardsDistributor) Withdraw(ctx context.Context, user string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrZeroAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.balances[user].LessThan(amount) {
		return core.ErrInsufficientBacking
	}
	r.settle(user)
	if err := r.stakingToken.Transfer(ctx, r.vaultRef, user, amount); err != nil {
		return err
	}
	r.balances[user] = r.balances[user].Sub(amount)
	r.totalSupply = r.totalSupply.Sub(amount)
	r.log.Debug().Str("user", user).Str("amount", amount.String()).Msg("withdraw")
	return nil
}

func (r *RewardsDistributor) ClaimReward(ctx context.Context, user string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settle(user)
	reward := r.rewards[user]
	if !reward.IsPositive() {
		return decimal.Zero, nil
	}
	if err := r.rewardToken.Transfer(ctx, r.vaultRef, user, reward); err != nil {
		return decimal.Zero, err
	}
	r.rewards[user] = decimal.Zero
	r.log.Debug().Str("user", user).Str("reward", reward.String()).Msg("claim")
	return reward, nil
}

func (r *RewardsDistributor) BalanceOf(user string) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[user]
}

func (r *RewardsDistributor) Earned(user string) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.earned(user)
}

// NotifyRewardAmount starts or tops up a reward period of duration seconds.
// Leftover rewards from a still-running period roll into the new rate.
func (r *RewardsDistributor) NotifyRewardAmount(ctx context.Context, caller string, reward decimal.Decimal, duration int64) error {
	if !r.acl.HasRole(caller, core.RoleGuardian) {
		return core.ErrUnauthorized
	}
	if !reward.IsPositive() || duration <= 0 {
		return core.ErrZeroAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.updateAccumulator()
	now := r.clk.Now().Unix()
	if now < r.periodFinish {
		remaining := decimal.NewFromInt(r.periodFinish - now)
		reward = reward.Add(remaining.Mul(r.rewardRate))
	}
	r.rewardRate = reward.Div(decimal.NewFromInt(duration))
	r.periodFinish = now + duration
	r.lastUpdate = now
	return nil
}

// settle advances the global accumulator and banks the user's accrued
// reward against it.
func (r *RewardsDistributor) settle(user string) {
	r.updateAccumulator()
	r.rewards[user] = r.earned(user)
	r.userRewardPerTokenPaid[user] = r.rewardPerTokenStored
}

func (r *RewardsDistributor) updateAccumulator() {
	r.rewardPerTokenStored = r.rewardPerToken()
	r.lastUpdate = r.lastTimeRewardApplicable()
}

func (r *RewardsDistributor) rewardPerToken() decimal.Decimal {
	if r.totalSupply.IsZero() {
		return r.rewardPerTokenStored
	}
	elapsed := decimal.NewFromInt(r.lastTimeRewardApplicable() - r.lastUpdate)
	return r.rewardPerTokenStored.Add(elapsed.Mul(r.rewardRate).Div(r.totalSupply))
}

func (r *RewardsDistributor) earned(user string) decimal.Decimal {
	delta := r.rewardPerToken().Sub(r.userRewardPerTokenPaid[user])
	return r.rewards[user].Add(r.balances[user].Mul(delta))
}

func (r *RewardsDistributor) lastTimeRewardApplicable() int64 {
	now := r.clk.Now().Unix()
	if now < r.periodFinish {
		return now
	}
	return r.periodFinish
}
