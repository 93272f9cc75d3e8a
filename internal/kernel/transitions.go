package kernel

import (
	"fmt"
	"math"

	"github.com/lox/rallysim/internal/rerr"
	"github.com/lox/rallysim/internal/team"
)

// Context is the mutable-during-a-rally bookkeeping the kernel reads. Possession
// always names the team whose stats should be used as "self" for the state being
// transitioned; the rally state machine updates it at the two fixed switch points
// (ServeAttempt->ServeInPlay, SetX->AttackDefended) before calling Transition again.
type Context struct {
	Serving    team.ID
	Possession team.ID
}

// Params tunes the one free split left unresolved by the source material: how
// much of AttackDefended's mass flows through the block branch versus the dig
// branch. Fixed for the duration of a run.
type Params struct {
	WBlock float64
	WDig   float64
}

// DefaultParams returns the spec's suggested 0.4/0.6 split.
func DefaultParams() Params { return Params{WBlock: 0.4, WDig: 0.6} }

func (p Params) Validate() error {
	if p.WBlock < 0 || p.WDig < 0 {
		return fmt.Errorf("%w: negative block/dig weight", rerr.ErrInvalidStats)
	}
	if s := p.WBlock + p.WDig; math.Abs(s-1) > 1e-9 {
		return fmt.Errorf("%w: w_block+w_dig = %v, want 1", rerr.ErrInvalidStats, s)
	}
	return nil
}

// Outcome is one edge out of a RallyState, with its probability mass.
type Outcome struct {
	State RallyState
	Prob  float64
}

// Transition returns the distribution over next states for the current state,
// given the acting team's own stats (self, i.e. team stats of ctx.Possession),
// the opposing team's stats (opp), the conditional model, and the tunable
// AttackDefended split. The returned outcomes sum to 1 within 1e-9.
//
// self/opp are never re-read or mutated; Transition is pure.
func Transition(state RallyState, ctx Context, self, opp team.Stats, model team.ConditionalModel, params Params) ([]Outcome, error) {
	switch state.Kind {
	case ServeAttempt:
		return transitionServeAttempt(ctx, self, opp)
	case ServeInPlay:
		return transitionServeInPlay(ctx, self, opp)
	case ReceptionPerfect, ReceptionGood, ReceptionPoor:
		return transitionReception(state, ctx, self, opp, model)
	case SetPerfect, SetGood, SetPoor:
		return transitionSet(state, ctx, self, opp, model)
	case AttackDefended:
		return transitionAttackDefended(ctx, self, opp, params)
	default:
		return nil, fmt.Errorf("%w: Transition called on terminal or unknown state %s", rerr.ErrInternal, state)
	}
}

// transitionServeAttempt: the server's own ace/error rates; the remainder puts
// the ball in play. The three branches are defined to sum to exactly 1
// (in_play := 1 - ace - error), so no renormalization drift is possible here
// beyond float rounding.
func transitionServeAttempt(ctx Context, self, opp team.Stats) ([]Outcome, error) {
	server := ctx.Possession
	receiver := server.Other()
	ace, err := self.Ace, self.Error
	inPlay := 1 - ace - err
	return renormalize([]Outcome{
		{State: Point(server), Prob: ace},
		{State: Point(receiver), Prob: err},
		{State: RallyState{Kind: ServeInPlay}, Prob: inPlay},
	}, true)
}

// transitionServeInPlay: possession has already switched to the receiver by the
// time this is called, so self is the receiver's stats. The receiver's own
// reception_error field awards the point back to the server (opp); the
// remaining three reception-quality branches come directly from the
// receiver's reception distribution. That distribution is validated to sum to
// 1 within ±0.005 (team.Stats sumTolerance), looser than the kernel's general
// 1e-9 composite tolerance, so this step renormalizes without the strict gate
// used elsewhere — a real team's reception row is allowed that much slack and
// must not spuriously fail here.
func transitionServeInPlay(ctx Context, self, opp team.Stats) ([]Outcome, error) {
	server := ctx.Serving
	return renormalize([]Outcome{
		{State: Point(server), Prob: self.ReceptionError},
		{State: receptionState(team.QualityPerfect), Prob: self.ReceptionPerfect},
		{State: receptionState(team.QualityGood), Prob: self.ReceptionGood},
		{State: receptionState(team.QualityPoor), Prob: self.ReceptionPoor},
	}, false)
}

// transitionReception: possession is unchanged (still the receiver/setter).
// Ball-handling errors award the point to the opponent — the non-possession
// team — per the spec's explicit (if source-unmotivated) rule; do not invert
// this without re-reading spec.md §9.
func transitionReception(state RallyState, ctx Context, self, opp team.Stats, model team.ConditionalModel) ([]Outcome, error) {
	q := receptionQuality(state.Kind)
	row, ok := model.ReceptionToSet[q]
	if !ok {
		return nil, fmt.Errorf("%w: conditional model missing reception->set row for %s", rerr.ErrInvalidStats, q)
	}
	bhe := self.BallHandlingError
	remaining := 1 - bhe
	opponent := ctx.Possession.Other()
	return renormalize([]Outcome{
		{State: Point(opponent), Prob: bhe},
		{State: setState(team.QualityPerfect), Prob: row.Perfect * remaining},
		{State: setState(team.QualityGood), Prob: row.Good * remaining},
		{State: setState(team.QualityPoor), Prob: row.Poor * remaining},
	}, true)
}

// transitionSet: possession stays with the setting team; kill/error branches
// are defined against the remainder (attack defended), so mass is exactly 1
// before any renormalization beyond float rounding.
func transitionSet(state RallyState, ctx Context, self, opp team.Stats, model team.ConditionalModel) ([]Outcome, error) {
	q := setQuality(state.Kind)
	row, ok := model.SetToAttack[q]
	if !ok {
		return nil, fmt.Errorf("%w: conditional model missing set->attack row for %s", rerr.ErrInvalidStats, q)
	}
	kill, atkErr := row.Kill, row.Error
	defended := 1 - kill - atkErr
	possession := ctx.Possession
	opponent := possession.Other()
	return renormalize([]Outcome{
		{State: Point(possession), Prob: kill},
		{State: Point(opponent), Prob: atkErr},
		{State: RallyState{Kind: AttackDefended}, Prob: defended},
	}, true)
}

// transitionAttackDefended: possession has already switched to the defender.
// Self is the defender's stats; opp is the attacker's. The block and dig
// branches are weighted mixtures, not a single row guaranteed to sum to 1 —
// team.Stats places no invariant across block_kill/controlled_block/block_error
// as a group, so this step always renormalizes and never returns InvalidStats
// for mass drift (unlike the conditional-model-driven steps above).
func transitionAttackDefended(ctx Context, self, opp team.Stats, params Params) ([]Outcome, error) {
	defender := ctx.Possession
	attacker := defender.Other()

	pointDefender := params.WBlock * self.BlockKill
	pointAttacker := params.WBlock*self.BlockError + params.WDig*(1-self.Dig)
	backInPlay := params.WBlock*self.ControlledBlock + params.WDig*self.Dig

	return renormalize([]Outcome{
		{State: Point(defender), Prob: pointDefender},
		{State: Point(attacker), Prob: pointAttacker},
		{State: RallyState{Kind: ReceptionGood}, Prob: backInPlay},
	}, false)
}

// renormalize divides each outcome's probability by the total mass. When
// strict is true, a pre-normalization mass more than 1e-6 away from 1 is
// treated as corrupt input and reported as InvalidStats rather than silently
// rescaled.
func renormalize(outcomes []Outcome, strict bool) ([]Outcome, error) {
	var sum float64
	for _, o := range outcomes {
		if o.Prob < -1e-9 {
			return nil, fmt.Errorf("%w: negative transition mass %v for %s", rerr.ErrInvalidStats, o.Prob, o.State)
		}
		sum += o.Prob
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: transition mass is zero or negative (%v)", rerr.ErrInvalidStats, sum)
	}
	if strict && math.Abs(sum-1) > 1e-6 {
		return nil, fmt.Errorf("%w: transition mass %v drifts from 1 by more than 1e-6", rerr.ErrInvalidStats, sum)
	}
	out := make([]Outcome, len(outcomes))
	for i, o := range outcomes {
		out[i] = Outcome{State: o.State, Prob: o.Prob / sum}
	}
	return out, nil
}
