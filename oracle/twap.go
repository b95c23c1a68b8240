package oracle

import (
	"context"
	"sync"

	"github.com/AbnerZheng/stablecore/core"
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
)

type (
	ObservationStore interface {
		InsertObservation(ctx context.Context, obs Observation) error
		ListObservationsSince(ctx context.Context, since int64) ([]Observation, error)
	}

	// Observation is one price sample of a collateral in stable value per
	// whole token.
	Observation struct {
		Price     decimal.Decimal `json:"price"`
		Timestamp int64           `json:"timestamp"`
	}
)

// TWAPOracle reads a time-weighted average price over a sliding window of
// stored observations and derives conservative lower/upper quotes from it
// with a symmetric confidence spread. It satisfies the engine's Oracle
// interface: the lower quote undervalues collateral coming in, the upper
// price overvalues collateral going out.
type TWAPOracle struct {
	clk    clock.Clock
	store  ObservationStore
	window int64

	// spread is the fractional half-width of the confidence interval.
	spread     decimal.Decimal
	collatBase decimal.Decimal
}

func NewTWAPOracle(clk clock.Clock, store ObservationStore, window int64, spread, collatBase decimal.Decimal) (*TWAPOracle, error) {
	if store == nil {
		return nil, core.ErrZeroHandle
	}
	if window <= 0 || !collatBase.IsPositive() || spread.IsNegative() || spread.GreaterThanOrEqual(core.ONE) {
		return nil, core.ErrInvalidConfig
	}
	if clk == nil {
		clk = clock.New()
	}
	return &TWAPOracle{
		clk:        clk,
		store:      store,
		window:     window,
		spread:     spread,
		collatBase: collatBase,
	}, nil
}

var _ core.Oracle = (*TWAPOracle)(nil)

func (o *TWAPOracle) ReadQuoteLower(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	lower, err := o.readLower(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(lower).Div(o.collatBase).Floor(), nil
}

func (o *TWAPOracle) ReadUpper(ctx context.Context) (decimal.Decimal, error) {
	twap, err := o.Consult(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return twap.Mul(core.ONE.Add(o.spread)), nil
}

func (o *TWAPOracle) readLower(ctx context.Context) (decimal.Decimal, error) {
	twap, err := o.Consult(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return twap.Mul(core.ONE.Sub(o.spread)), nil
}

// Consult returns the time-weighted mean price over the window. Each
// observation is weighted by the time until the next one; the latest
// observation carries weight up to now. An empty window is a stale feed.
func (o *TWAPOracle) Consult(ctx context.Context) (decimal.Decimal, error) {
	now := o.clk.Now().Unix()
	observations, err := o.store.ListObservationsSince(ctx, now-o.window)
	if err != nil {
		return decimal.Zero, err
	}
	if len(observations) == 0 {
		return decimal.Zero, core.ErrStaleOracle
	}

	weighted := decimal.Zero
	totalWeight := decimal.Zero
	for i, obs := range observations {
		end := now
		if i+1 < len(observations) {
			end = observations[i+1].Timestamp
		}
		dt := end - obs.Timestamp
		if dt <= 0 {
			dt = 1
		}
		w := decimal.NewFromInt(dt)
		weighted = weighted.Add(obs.Price.Mul(w))
		totalWeight = totalWeight.Add(w)
	}
	return weighted.Div(totalWeight), nil
}

// MemoryObservationStore keeps observations in process, pruned to a fixed
// retention horizon. Feeds in deployments persist through a real store.
type MemoryObservationStore struct {
	mu           sync.Mutex
	retention    int64
	observations []Observation
}

func NewMemoryObservationStore(retention int64) *MemoryObservationStore {
	return &MemoryObservationStore{retention: retention}
}

func (s *MemoryObservationStore) InsertObservation(ctx context.Context, obs Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.observations)
	for i > 0 && s.observations[i-1].Timestamp > obs.Timestamp {
		i--
	}
	s.observations = append(s.observations, Observation{})
	copy(s.observations[i+1:], s.observations[i:])
	s.observations[i] = obs

	horizon := obs.Timestamp - s.retention
	cut := 0
	for cut < len(s.observations) && s.observations[cut].Timestamp < horizon {
		cut++
	}
	s.observations = s.observations[cut:]
	return nil
}

func (s *MemoryObservationStore) ListObservationsSince(ctx context.Context, since int64) ([]Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Observation, 0, len(s.observations))
	for _, obs := range s.observations {
		if obs.Timestamp >= since {
			out = append(out, obs)
		}
	}
	return out, nil
}
