// Package montecarlo runs many independent rallies in parallel, reduces their
// outcomes by commutative integer addition, and reports a win-probability
// estimate with a confidence interval. It is the only parallel region in the
// core; the kernel and the rally state machine beneath it are strictly
// sequential per rally and hold no shared mutable state.
package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/lox/rallysim/internal/kernel"
	"github.com/lox/rallysim/internal/randutil"
	"github.com/lox/rallysim/internal/rally"
	"github.com/lox/rallysim/internal/rerr"
	"github.com/lox/rallysim/internal/team"
)

// Schedule selects how the serving team is chosen for each rally in a batch.
type Schedule uint8

const (
	// FixedServer keeps the same team serving every rally, to avoid coupling
	// points across the batch. The attribution engine always uses this.
	FixedServer Schedule = iota
	// LoserServesNext alternates serve to whichever team lost the previous
	// rally, approximating short match-like sequences.
	LoserServesNext
)

// cancelCheckInterval bounds how many rallies pass between cooperative
// cancellation checks, per the ≤1024 rallies requirement.
const cancelCheckInterval = 1024

// bootstrapMinResamples is the floor for B when momentum is enabled; it is
// also the value used when the caller didn't specify one.
const bootstrapMinResamples = 200

// MomentumOptions enables the optional, non-independent-points extension.
// Disabled by default and always disabled for attribution runs.
type MomentumOptions struct {
	Enabled bool
	// Boosts[k-1] is the additive boost to the serving team's ace rate after
	// k consecutive serve-points by that team, k = 1, 2, 3. Each must be in
	// [0, 0.05].
	Boosts             [3]float64
	BootstrapResamples int // values below bootstrapMinResamples (including 0) are raised to it
}

// DefaultMomentumBoosts returns a modest, capped boost schedule.
func DefaultMomentumBoosts() [3]float64 { return [3]float64{0.02, 0.035, 0.05} }

func (m MomentumOptions) validate() error {
	if !m.Enabled {
		return nil
	}
	for i, b := range m.Boosts {
		if b < 0 || b > 0.05 {
			return fmt.Errorf("%w: momentum boost m_%d = %v out of [0, 0.05]", rerr.ErrInvalidStats, i+1, b)
		}
	}
	return nil
}

func (m MomentumOptions) resamples() int {
	if m.BootstrapResamples < bootstrapMinResamples {
		return bootstrapMinResamples
	}
	return m.BootstrapResamples
}

// Options configures a batch run beyond the required (stats, n, seed, schedule).
type Options struct {
	Model    team.ConditionalModel // zero value means team.DefaultConditionalModel()
	Params   kernel.Params         // zero value means kernel.DefaultParams()
	Rally    rally.Options
	Momentum MomentumOptions
	Deadline time.Time // zero means no deadline
}

func (o Options) model() team.ConditionalModel {
	if o.Model.ReceptionToSet == nil {
		return team.DefaultConditionalModel()
	}
	return o.Model
}

func (o Options) params() kernel.Params {
	if o.Params.WBlock == 0 && o.Params.WDig == 0 {
		return kernel.DefaultParams()
	}
	return o.Params
}

// Result is the outcome of a batch of N rallies.
type Result struct {
	N       uint64
	WinsA   uint64
	WinsB   uint64
	PAWin   float64
	CILow   float64
	CIHigh  float64
	Seed    int64
	Elapsed time.Duration
}

// Simulate runs n independent rallies split across shards, aggregates win
// counts by integer addition, and reports a win-probability estimate. With
// FixedServer and momentum disabled, wins_a/wins_b are bit-identical for a
// given (masterSeed, n, stats) regardless of how many shards the machine
// happens to run. Under LoserServesNext or with momentum enabled, each shard
// starts its own serve sequence from serving with a zero streak, so the
// counts depend on how n is partitioned into shards.
func Simulate(ctx context.Context, statsA, statsB team.Stats, n uint64, masterSeed int64, serving team.ID, schedule Schedule, opts Options) (Result, error) {
	start := time.Now()

	if err := statsA.Validate(); err != nil {
		return Result{}, err
	}
	if err := statsB.Validate(); err != nil {
		return Result{}, err
	}
	model := opts.model()
	if err := model.Validate(); err != nil {
		return Result{}, err
	}
	params := opts.params()
	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	if err := opts.Momentum.validate(); err != nil {
		return Result{}, err
	}
	if n == 0 {
		return Result{N: 0, Seed: masterSeed, Elapsed: time.Since(start)}, nil
	}

	if !opts.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, opts.Deadline)
		defer cancel()
	}

	counts := shardSplit(n, shardCount(n))
	return runBatch(ctx, statsA, statsB, n, masterSeed, serving, schedule, opts, model, params, counts)
}

// runBatch executes the shards described by counts (one shard per entry,
// counts summing to n) and aggregates them into a Result. It is split out
// from Simulate so tests can force a specific shard count without depending
// on runtime.NumCPU, to check that the partition itself never changes the
// aggregated outcome — see shardOffsets and randutil.ForIndex.
func runBatch(ctx context.Context, statsA, statsB team.Stats, n uint64, masterSeed int64, serving team.ID, schedule Schedule, opts Options, model team.ConditionalModel, params kernel.Params, counts []uint64) (Result, error) {
	start := time.Now()
	shards := len(counts)
	offsets := shardOffsets(counts)

	g, gctx := errgroup.WithContext(ctx)
	results := make([]shardResult, shards)

	for i := 0; i < shards; i++ {
		i := i
		shardN := counts[i]
		offset := offsets[i]
		g.Go(func() error {
			res, err := runShard(gctx, masterSeed, offset, shardN, statsA, statsB, model, params, schedule, serving, opts.Momentum, opts.Rally)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		var completed uint64
		for _, r := range results {
			completed += r.completed
		}
		return Result{N: completed, Seed: masterSeed, Elapsed: time.Since(start)}, err
	}

	var winsA, winsB, completed uint64
	var outcomes []bool
	for _, r := range results {
		winsA += r.winsA
		winsB += r.winsB
		completed += r.completed
		if opts.Momentum.Enabled {
			outcomes = append(outcomes, r.outcomesA...)
		}
	}

	result := Result{
		N:       completed,
		WinsA:   winsA,
		WinsB:   winsB,
		Seed:    masterSeed,
		Elapsed: time.Since(start),
	}
	if completed == 0 {
		return result, nil
	}
	result.PAWin = float64(winsA) / float64(completed)

	if opts.Momentum.Enabled {
		low, high := bootstrapCI(randutil.New(masterSeed^0x5bd1e995), outcomes, opts.Momentum.resamples())
		result.CILow, result.CIHigh = low, high
	} else {
		result.CILow, result.CIHigh = wilsonCI(winsA, completed)
	}
	return result, nil
}

// shardCount picks W = min(cores, ceil(n/1024)), at least 1.
func shardCount(n uint64) int {
	cores := runtime.NumCPU()
	need := int((n + cancelCheckInterval - 1) / cancelCheckInterval)
	if need < 1 {
		need = 1
	}
	if need > cores {
		return cores
	}
	return need
}

// shardSplit divides n as evenly as possible across shards rallies, handing
// the remainder to the first shards so that sum(counts) == n exactly.
func shardSplit(n uint64, shards int) []uint64 {
	base := n / uint64(shards)
	rem := n % uint64(shards)
	counts := make([]uint64, shards)
	for i := range counts {
		counts[i] = base
		if uint64(i) < rem {
			counts[i]++
		}
	}
	return counts
}

// shardOffsets returns, for each shard, the global rally index its first
// rally occupies, so a rally's RNG stream depends only on its position in
// the whole batch and never on how that batch happened to be partitioned.
func shardOffsets(counts []uint64) []uint64 {
	offsets := make([]uint64, len(counts))
	var cum uint64
	for i, c := range counts {
		offsets[i] = cum
		cum += c
	}
	return offsets
}

type shardResult struct {
	winsA, winsB, completed uint64
	outcomesA               []bool // only populated when momentum is enabled
}

// runShard executes shardN rallies sequentially on a single goroutine,
// checking for cancellation every cancelCheckInterval rallies. Each rally
// draws from its own RNG stream keyed by (masterSeed, global rally index)
// via randutil.ForIndex, so rally index `offset+i` draws identically whether
// it ran as part of a 1-shard or a 64-shard batch. The serving team and the
// momentum streak are shard-local and start afresh at each shard's first
// rally.
func runShard(ctx context.Context, masterSeed int64, offset, shardN uint64, statsA, statsB team.Stats, model team.ConditionalModel, params kernel.Params, schedule Schedule, serving team.ID, momentum MomentumOptions, rallyOpts rally.Options) (shardResult, error) {
	var res shardResult
	if momentum.Enabled {
		res.outcomesA = make([]bool, 0, shardN)
	}

	server := serving
	var streak int // consecutive serve-points won by the current server

	for i := uint64(0); i < shardN; i++ {
		if i%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return res, fmt.Errorf("%w: %d of %d rallies completed", rerr.ErrCancelled, res.completed, shardN)
			default:
			}
		}

		a, b := statsA, statsB
		if momentum.Enabled && streak > 0 {
			boost := momentum.Boosts[min(streak, 3)-1]
			if server == team.TeamA {
				a.Ace = math.Min(1, a.Ace+boost)
			} else {
				b.Ace = math.Min(1, b.Ace+boost)
			}
		}

		rng := randutil.ForIndex(masterSeed, offset+i)
		out, err := rally.Run(rng, server, a, b, model, params, rallyOpts)
		if err != nil {
			return res, err
		}

		res.completed++
		aWon := out.Winner == team.TeamA
		if aWon {
			res.winsA++
		} else {
			res.winsB++
		}
		if momentum.Enabled {
			res.outcomesA = append(res.outcomesA, aWon)
		}

		if out.Winner == server {
			streak++
		} else {
			streak = 0
		}

		switch schedule {
		case LoserServesNext:
			server = out.Winner.Other()
		case FixedServer:
			// server unchanged
		}
	}
	return res, nil
}

// wilsonCI returns the 95% Wilson score interval for a binomial proportion.
func wilsonCI(wins, n uint64) (low, high float64) {
	const z = 1.959964 // 97.5th percentile of the standard normal
	nf := float64(n)
	phat := float64(wins) / nf
	denom := 1 + z*z/nf
	center := phat + z*z/(2*nf)
	adj := z * math.Sqrt(phat*(1-phat)/nf+z*z/(4*nf*nf))
	low = (center - adj) / denom
	high = (center + adj) / denom
	return math.Max(0, low), math.Min(1, high)
}

// bootstrapCI resamples outcomes with replacement B times and reports the
// empirical 2.5th/97.5th percentiles of the resampled win rate, used in
// place of the Wilson interval when momentum makes points non-independent.
func bootstrapCI(rng *rand.Rand, outcomes []bool, b int) (low, high float64) {
	n := len(outcomes)
	if n == 0 {
		return 0, 0
	}
	rates := make([]float64, b)
	for i := 0; i < b; i++ {
		wins := 0
		for j := 0; j < n; j++ {
			idx := int(rng.Int64N(int64(n)))
			if outcomes[idx] {
				wins++
			}
		}
		rates[i] = float64(wins) / float64(n)
	}
	sort.Float64s(rates)
	low = stat.Quantile(0.025, stat.Empirical, rates, nil)
	high = stat.Quantile(0.975, stat.Empirical, rates, nil)
	return low, high
}
