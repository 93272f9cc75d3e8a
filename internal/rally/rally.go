// Package rally steps a single point from serve to a terminal outcome by
// repeatedly querying the probability kernel and sampling its distribution
// with a caller-supplied RNG. It holds no parallelism and no shared state;
// internal/montecarlo is the only caller that fans this out across shards.
package rally

import (
	"fmt"
	"math/rand/v2"

	"github.com/lox/rallysim/internal/kernel"
	"github.com/lox/rallysim/internal/randutil"
	"github.com/lox/rallysim/internal/rerr"
	"github.com/lox/rallysim/internal/team"
)

// DefaultFuel bounds the number of kernel queries a single rally may take
// before it is declared stuck. Realistic inputs converge in under 30 steps.
const DefaultFuel = 256

// Outcome is the result of stepping one rally to completion.
type Outcome struct {
	Winner     team.ID
	Serving    team.ID
	Contacts   uint16
	Trajectory []kernel.RallyState // nil unless trajectory recording was requested
}

// Options tunes a single rally's execution.
type Options struct {
	Fuel             int // 0 means DefaultFuel
	RecordTrajectory bool
}

func (o Options) fuel() int {
	if o.Fuel <= 0 {
		return DefaultFuel
	}
	return o.Fuel
}

// Run steps one rally starting with serving putting the ball in play. statsA
// and statsB are read-only for the whole call; model and params are the same
// conditional tables and AttackDefended split used for every rally in a batch.
func Run(rng *rand.Rand, serving team.ID, statsA, statsB team.Stats, model team.ConditionalModel, params kernel.Params, opts Options) (Outcome, error) {
	statsFor := func(id team.ID) team.Stats {
		if id == team.TeamA {
			return statsA
		}
		return statsB
	}

	ctx := kernel.Context{Serving: serving, Possession: serving}
	state := kernel.RallyState{Kind: kernel.ServeAttempt}
	var contacts uint16
	var trajectory []kernel.RallyState
	fuel := opts.fuel()

	for step := 0; step < fuel; step++ {
		if opts.RecordTrajectory {
			trajectory = append(trajectory, state)
		}
		if state.Terminal() {
			return Outcome{
				Winner:     state.Winner,
				Serving:    serving,
				Contacts:   contacts,
				Trajectory: trajectory,
			}, nil
		}

		self := statsFor(ctx.Possession)
		opp := statsFor(ctx.Possession.Other())
		outcomes, err := kernel.Transition(state, ctx, self, opp, model, params)
		if err != nil {
			return Outcome{}, err
		}

		next := sample(rng, outcomes)
		ctx = advancePossession(ctx, state, next)
		contacts++
		state = next
	}

	if state.Terminal() {
		return Outcome{Winner: state.Winner, Serving: serving, Contacts: contacts, Trajectory: trajectory}, nil
	}
	return Outcome{}, fmt.Errorf("%w: rally did not terminate within %d steps", rerr.ErrBudgetExceeded, fuel)
}

// SingleRally steps one rally with the default conditional model and kernel
// params, an RNG seeded from seed, and trajectory recording always on.
func SingleRally(statsA, statsB team.Stats, serving team.ID, seed int64) (Outcome, error) {
	return Run(randutil.New(seed), serving, statsA, statsB, team.DefaultConditionalModel(), kernel.DefaultParams(), Options{RecordTrajectory: true})
}

// advancePossession applies the two fixed possession switches named in the
// rally state machine's ordering rules: serve-to-receiver, and set-to-defender.
// Every other transition keeps possession with whichever team already has it.
func advancePossession(ctx kernel.Context, prev, next kernel.RallyState) kernel.Context {
	switch {
	case prev.Kind == kernel.ServeAttempt && next.Kind == kernel.ServeInPlay:
		ctx.Possession = ctx.Possession.Other()
	case isSet(prev.Kind) && next.Kind == kernel.AttackDefended:
		ctx.Possession = ctx.Possession.Other()
	}
	return ctx
}

func isSet(k kernel.StateKind) bool {
	return k == kernel.SetPerfect || k == kernel.SetGood || k == kernel.SetPoor
}

// sample draws one state from a distribution already normalized to sum to 1.
// Floating point drift can leave the cumulative sum just short of r on the
// final entry, so the loop falls through to the last outcome rather than
// risking a nil return.
func sample(rng *rand.Rand, outcomes []kernel.Outcome) kernel.RallyState {
	r := rng.Float64()
	var cum float64
	for _, o := range outcomes {
		cum += o.Prob
		if r <= cum {
			return o.State
		}
	}
	return outcomes[len(outcomes)-1].State
}
