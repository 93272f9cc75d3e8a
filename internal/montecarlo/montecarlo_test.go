package montecarlo

import (
	"context"
	"testing"

	"github.com/lox/rallysim/internal/team"
)

func TestSimulateEqualTeams(t *testing.T) {
	stats := team.DefaultStats()
	res, err := Simulate(context.Background(), stats, stats, 20000, 42, team.TeamA, FixedServer, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.N != 20000 {
		t.Fatalf("N = %d, want 20000", res.N)
	}
	if res.PAWin < 0.49 || res.PAWin > 0.51 {
		t.Errorf("p_a_win = %v, want in [0.49, 0.51] for equal teams", res.PAWin)
	}
	if res.CILow > res.PAWin || res.CIHigh < res.PAWin {
		t.Errorf("CI [%v, %v] does not contain p_a_win %v", res.CILow, res.CIHigh, res.PAWin)
	}
}

func TestSimulateDeterministicAcrossShardCounts(t *testing.T) {
	stats := team.DefaultStats()
	model := Options{}.model()
	params := Options{}.params()

	counts1 := shardSplit(5000, 1)
	res1, err := runBatch(context.Background(), stats, stats, 5000, 1234, team.TeamA, FixedServer, Options{}, model, params, counts1)
	if err != nil {
		t.Fatal(err)
	}

	counts7 := shardSplit(5000, 7)
	res7, err := runBatch(context.Background(), stats, stats, 5000, 1234, team.TeamA, FixedServer, Options{}, model, params, counts7)
	if err != nil {
		t.Fatal(err)
	}

	if res1.WinsA != res7.WinsA || res1.WinsB != res7.WinsB {
		t.Fatalf("shard count changed the outcome: 1-shard (%d,%d) vs 7-shard (%d,%d)",
			res1.WinsA, res1.WinsB, res7.WinsA, res7.WinsB)
	}
}

func TestSimulateServeDominance(t *testing.T) {
	a := team.DefaultStats()
	a.Ace = 0.25
	b := team.DefaultStats()
	res, err := Simulate(context.Background(), a, b, 20000, 42, team.TeamA, FixedServer, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.PAWin < 0.58 {
		t.Errorf("p_a_win = %v, want >= 0.58 when A dominates serve", res.PAWin)
	}
}

func TestSimulateReceptionDominance(t *testing.T) {
	a := team.DefaultStats()
	a.ReceptionPerfect, a.ReceptionGood, a.ReceptionPoor, a.ReceptionError = 0.60, 0.30, 0.08, 0.02
	b := team.DefaultStats()
	res, err := Simulate(context.Background(), a, b, 20000, 42, team.TeamA, FixedServer, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.PAWin < 0.55 {
		t.Errorf("p_a_win = %v, want >= 0.55 when A dominates reception", res.PAWin)
	}
}

func TestSimulateWeakAttack(t *testing.T) {
	a := team.DefaultStats()
	a.Kill, a.AtkErr = 0.25, 0.25
	b := team.DefaultStats()
	res, err := Simulate(context.Background(), a, b, 20000, 42, team.TeamA, FixedServer, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.PAWin > 0.42 {
		t.Errorf("p_a_win = %v, want <= 0.42 when A is a worse attacker", res.PAWin)
	}
}

func TestSimulateDegenerateOutcome(t *testing.T) {
	a := team.DefaultStats()
	a.Ace, a.Error = 0.99, 0
	b := team.DefaultStats()
	res, err := Simulate(context.Background(), a, b, 20000, 42, team.TeamA, FixedServer, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.PAWin < 0.98 {
		t.Errorf("p_a_win = %v, want >= 0.98 for a near-certain server", res.PAWin)
	}
}

func TestSimulateCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats := team.DefaultStats()
	_, err := Simulate(ctx, stats, stats, 1_000_000, 1, team.TeamA, FixedServer, Options{})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestSimulateMomentumUsesBootstrapCI(t *testing.T) {
	stats := team.DefaultStats()
	opts := Options{Momentum: MomentumOptions{Enabled: true, Boosts: DefaultMomentumBoosts(), BootstrapResamples: 50}}
	res, err := Simulate(context.Background(), stats, stats, 2000, 7, team.TeamA, FixedServer, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.CILow < 0 || res.CIHigh > 1 || res.CILow > res.CIHigh {
		t.Errorf("invalid bootstrap CI [%v, %v]", res.CILow, res.CIHigh)
	}
}
