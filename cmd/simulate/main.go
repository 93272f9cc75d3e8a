package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/rallysim/internal/config"
	"github.com/lox/rallysim/internal/montecarlo"
	"github.com/lox/rallysim/internal/rally"
	"github.com/lox/rallysim/internal/team"
)

type CLI struct {
	RunFile            string        `arg:"" optional:"" help:"HCL run file with team/simulate blocks"`
	N                  uint64        `default:"20000" help:"Number of rallies to simulate"`
	Seed               int64         `default:"0" help:"Master RNG seed (0 for time-based)"`
	Serving            string        `default:"a" help:"Which team serves first: a or b"`
	Schedule           string        `default:"fixed" help:"Server schedule: fixed or loser_serves"`
	Momentum           bool          `help:"Enable momentum ace-rate boost with bootstrap CI"`
	MomentumBoost1     float64       `help:"Ace-rate boost after 1 consecutive serve point"`
	MomentumBoost2     float64       `help:"Ace-rate boost after 2 consecutive serve points"`
	MomentumBoost3     float64       `help:"Ace-rate boost after 3+ consecutive serve points"`
	BootstrapResamples int           `help:"Bootstrap resamples for the momentum CI (0 = default)"`
	Fuel               int           `default:"256" help:"Max contacts per rally before ErrBudgetExceeded"`
	Deadline           time.Duration `help:"Wall-clock deadline for the whole run (0 = none)"`
	Verbose            bool          `short:"v" help:"Verbose logging"`
}

// applySimulateOptions overwrites the CLI flag values with every field of
// the run file's simulate block that is set to a non-zero value.
func applySimulateOptions(opts *config.SimulateOptions, cli *CLI) {
	if opts == nil {
		return
	}
	if opts.N > 0 {
		cli.N = opts.N
	}
	if opts.Seed != 0 {
		cli.Seed = opts.Seed
	}
	if opts.Serving != "" {
		cli.Serving = opts.Serving
	}
	if opts.Schedule != "" {
		cli.Schedule = opts.Schedule
	}
	if opts.Fuel > 0 {
		cli.Fuel = opts.Fuel
	}
	if opts.Momentum {
		cli.Momentum = true
	}
	if opts.MomentumBoost1 > 0 {
		cli.MomentumBoost1 = opts.MomentumBoost1
	}
	if opts.MomentumBoost2 > 0 {
		cli.MomentumBoost2 = opts.MomentumBoost2
	}
	if opts.MomentumBoost3 > 0 {
		cli.MomentumBoost3 = opts.MomentumBoost3
	}
	if opts.BootstrapSample > 0 {
		cli.BootstrapResamples = opts.BootstrapSample
	}
}

func main() {
	var cli CLI
	kong.Parse(&cli)

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: levelFor(cli.Verbose)})

	if cli.Seed == 0 {
		cli.Seed = time.Now().UnixNano()
	}

	statsA, statsB := team.DefaultStats(), team.DefaultStats()
	if cli.RunFile != "" {
		rf, err := config.Load(cli.RunFile)
		if err != nil {
			logger.Fatal("loading run file", "err", err)
		}
		a, b := rf.TeamsByName()
		statsA, statsB = a.Stats(), b.Stats()
		applySimulateOptions(rf.Simulate, &cli)
	}

	serving := team.TeamA
	if cli.Serving == "b" {
		serving = team.TeamB
	}
	schedule := montecarlo.FixedServer
	if cli.Schedule == "loser_serves" {
		schedule = montecarlo.LoserServesNext
	}

	opts := montecarlo.Options{
		Rally: rally.Options{Fuel: cli.Fuel},
	}
	if cli.Momentum {
		opts.Momentum = montecarlo.MomentumOptions{
			Enabled:            true,
			BootstrapResamples: cli.BootstrapResamples,
		}
		if cli.MomentumBoost1 > 0 || cli.MomentumBoost2 > 0 || cli.MomentumBoost3 > 0 {
			opts.Momentum.Boosts = [3]float64{cli.MomentumBoost1, cli.MomentumBoost2, cli.MomentumBoost3}
		} else {
			opts.Momentum.Boosts = montecarlo.DefaultMomentumBoosts()
		}
	}
	if cli.Deadline > 0 {
		opts.Deadline = time.Now().Add(cli.Deadline)
	}

	logger.Info("starting simulation", "n", cli.N, "seed", cli.Seed, "serving", serving)

	res, err := montecarlo.Simulate(context.Background(), statsA, statsB, cli.N, cli.Seed, serving, schedule, opts)
	if err != nil {
		logger.Fatal("simulation failed", "err", err)
	}

	fmt.Printf("rallies: %d (A: %d, B: %d)\n", res.N, res.WinsA, res.WinsB)
	fmt.Printf("p(A wins) = %.4f   95%% CI [%.4f, %.4f]\n", res.PAWin, res.CILow, res.CIHigh)
	fmt.Printf("seed: %d   elapsed: %s\n", res.Seed, res.Elapsed)
}

func levelFor(verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.WarnLevel
}
