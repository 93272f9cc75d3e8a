package rally

import (
	"errors"
	"testing"

	"github.com/lox/rallysim/internal/kernel"
	"github.com/lox/rallysim/internal/randutil"
	"github.com/lox/rallysim/internal/rerr"
	"github.com/lox/rallysim/internal/team"
)

func TestRunTerminatesWithDefaultStats(t *testing.T) {
	rng := randutil.New(42)
	stats := team.DefaultStats()
	model := team.DefaultConditionalModel()
	for i := 0; i < 1000; i++ {
		out, err := Run(rng, team.TeamA, stats, stats, model, kernel.DefaultParams(), Options{})
		if err != nil {
			t.Fatalf("rally %d: %v", i, err)
		}
		if out.Winner != team.TeamA && out.Winner != team.TeamB {
			t.Fatalf("rally %d: invalid winner %v", i, out.Winner)
		}
		if out.Contacts == 0 {
			t.Fatalf("rally %d: zero contacts", i)
		}
	}
}

func TestRunRecordsTrajectory(t *testing.T) {
	rng := randutil.New(7)
	stats := team.DefaultStats()
	model := team.DefaultConditionalModel()
	out, err := Run(rng, team.TeamA, stats, stats, model, kernel.DefaultParams(), Options{RecordTrajectory: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Trajectory) == 0 {
		t.Fatal("expected non-empty trajectory")
	}
	if !out.Trajectory[0].Terminal() && out.Trajectory[0].Kind != kernel.ServeAttempt {
		t.Fatalf("trajectory should start at ServeAttempt, got %s", out.Trajectory[0])
	}
	last := out.Trajectory[len(out.Trajectory)-1]
	if !last.Terminal() {
		t.Fatalf("trajectory should end on a terminal state, got %s", last)
	}
}

func TestRunRespectsFuelBudget(t *testing.T) {
	rng := randutil.New(1)
	// A degenerate stats profile with all mass on AttackDefended's back-in-play
	// branch never reaches a terminal state, so it must exhaust the fuel budget.
	stuck := team.Stats{
		Ace: 0, Error: 0,
		ReceptionPerfect: 1, ReceptionGood: 0, ReceptionPoor: 0, ReceptionError: 0,
		BallHandlingError: 0,
		Kill:              0, AtkErr: 0,
		Dig: 1, BlockKill: 0, ControlledBlock: 0, BlockError: 0,
	}
	model := team.ConditionalModel{
		ReceptionToSet: map[team.Quality]team.SetQualityRow{
			team.QualityPerfect: {Perfect: 1, Good: 0, Poor: 0},
			team.QualityGood:    {Perfect: 1, Good: 0, Poor: 0},
			team.QualityPoor:    {Perfect: 1, Good: 0, Poor: 0},
		},
		SetToAttack: map[team.Quality]team.AttackRow{
			team.QualityPerfect: {Kill: 0, Error: 0},
			team.QualityGood:    {Kill: 0, Error: 0},
			team.QualityPoor:    {Kill: 0, Error: 0},
		},
	}
	_, err := Run(rng, team.TeamA, stuck, stuck, model, kernel.DefaultParams(), Options{Fuel: 16})
	if !errors.Is(err, rerr.ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
}
