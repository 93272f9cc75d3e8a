package kernel

import (
	"math"
	"testing"

	"github.com/lox/rallysim/internal/team"
)

func sumOutcomes(t *testing.T, outcomes []Outcome) float64 {
	t.Helper()
	var sum float64
	for _, o := range outcomes {
		sum += o.Prob
	}
	return sum
}

func TestTransitionSumsToOne(t *testing.T) {
	self := team.DefaultStats()
	opp := team.DefaultStats()
	model := team.DefaultConditionalModel()
	params := DefaultParams()
	ctx := Context{Serving: team.TeamA, Possession: team.TeamA}

	states := []RallyState{
		{Kind: ServeAttempt},
		{Kind: ServeInPlay},
		{Kind: ReceptionPerfect},
		{Kind: ReceptionGood},
		{Kind: ReceptionPoor},
		{Kind: SetPerfect},
		{Kind: SetGood},
		{Kind: SetPoor},
		{Kind: AttackDefended},
	}
	for _, s := range states {
		out, err := Transition(s, ctx, self, opp, model, params)
		if err != nil {
			t.Fatalf("Transition(%s): %v", s, err)
		}
		sum := sumOutcomes(t, out)
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("Transition(%s): outcomes sum to %v, want 1±1e-9", s, sum)
		}
		for _, o := range out {
			if o.Prob < 0 {
				t.Errorf("Transition(%s): negative probability %v for %s", s, o.Prob, o.State)
			}
		}
	}
}

func TestTransitionTerminalIsError(t *testing.T) {
	self := team.DefaultStats()
	model := team.DefaultConditionalModel()
	ctx := Context{Serving: team.TeamA, Possession: team.TeamA}
	_, err := Transition(Point(team.TeamA), ctx, self, self, model, DefaultParams())
	if err == nil {
		t.Fatal("expected error transitioning out of a terminal state")
	}
}

func TestServeAttemptAwardsPoints(t *testing.T) {
	self := team.Stats{Ace: 0.2, Error: 0.1}
	ctx := Context{Serving: team.TeamA, Possession: team.TeamA}
	out, err := Transition(RallyState{Kind: ServeAttempt}, ctx, self, self, team.DefaultConditionalModel(), DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range out {
		switch o.State.Kind {
		case PointFor:
			if o.State.Winner == team.TeamA && math.Abs(o.Prob-0.2) > 1e-9 {
				t.Errorf("ace probability = %v, want 0.2", o.Prob)
			}
			if o.State.Winner == team.TeamB && math.Abs(o.Prob-0.1) > 1e-9 {
				t.Errorf("error probability = %v, want 0.1", o.Prob)
			}
		case ServeInPlay:
			if math.Abs(o.Prob-0.7) > 1e-9 {
				t.Errorf("in-play probability = %v, want 0.7", o.Prob)
			}
		}
	}
}

func TestBallHandlingErrorAwardsOpponent(t *testing.T) {
	self := team.Stats{BallHandlingError: 0.5}
	ctx := Context{Serving: team.TeamB, Possession: team.TeamA}
	out, err := Transition(RallyState{Kind: ReceptionGood}, ctx, self, self, team.DefaultConditionalModel(), DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, o := range out {
		if o.State.Kind == PointFor {
			found = true
			if o.State.Winner != team.TeamB {
				t.Errorf("ball-handling error awarded point to %s, want the non-possession team %s", o.State.Winner, team.TeamB)
			}
		}
	}
	if !found {
		t.Fatal("expected a PointFor outcome from a ball-handling error")
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params should validate: %v", err)
	}
	bad := Params{WBlock: 0.5, WDig: 0.6}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for weights that do not sum to 1")
	}
}
