package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/rallysim/internal/config"
	"github.com/lox/rallysim/internal/kernel"
	"github.com/lox/rallysim/internal/randutil"
	"github.com/lox/rallysim/internal/rally"
	"github.com/lox/rallysim/internal/team"
)

type CLI struct {
	RunFile    string `arg:"" optional:"" help:"HCL run file with team blocks"`
	Seed       int64  `default:"0" help:"RNG seed (0 for time-based)"`
	Serving    string `default:"a" help:"Which team serves: a or b"`
	Fuel       int    `default:"256" help:"Max contacts before ErrBudgetExceeded"`
	Trajectory bool   `help:"Print the full state trajectory"`
	Verbose    bool   `short:"v" help:"Verbose logging"`
}

func main() {
	var cli CLI
	kong.Parse(&cli)

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: levelFor(cli.Verbose)})

	statsA, statsB := team.DefaultStats(), team.DefaultStats()
	if cli.RunFile != "" {
		rf, err := config.Load(cli.RunFile)
		if err != nil {
			logger.Fatal("loading run file", "err", err)
		}
		a, b := rf.TeamsByName()
		statsA, statsB = a.Stats(), b.Stats()
	}

	serving := team.TeamA
	if cli.Serving == "b" {
		serving = team.TeamB
	}
	if cli.Seed == 0 {
		cli.Seed = time.Now().UnixNano()
	}

	rng := randutil.New(cli.Seed)
	model := team.DefaultConditionalModel()
	params := kernel.DefaultParams()

	out, err := rally.Run(rng, serving, statsA, statsB, model, params, rally.Options{
		Fuel:             cli.Fuel,
		RecordTrajectory: cli.Trajectory,
	})
	if err != nil {
		logger.Fatal("rally failed", "err", err)
	}

	fmt.Printf("winner: %s   serving: %s   contacts: %d\n", out.Winner, out.Serving, out.Contacts)
	if cli.Trajectory {
		for i, s := range out.Trajectory {
			fmt.Printf("  %2d. %s\n", i, s)
		}
	}
}

func levelFor(verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.WarnLevel
}
