package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/rallysim/internal/attribution"
	"github.com/lox/rallysim/internal/config"
	"github.com/lox/rallysim/internal/fileutil"
	"github.com/lox/rallysim/internal/team"
)

type CLI struct {
	RunFile    string  `arg:"" optional:"" help:"HCL run file with team/attribute blocks"`
	R          int     `default:"300" help:"Number of perturbed design points"`
	M          int     `default:"1" help:"Rallies sampled per design point"`
	Delta      float64 `default:"0.05" help:"Perturbation noise half-width"`
	Model      string  `default:"gbt" help:"Classifier family: gbt or logistic"`
	Seed       int64   `default:"0" help:"Master RNG seed (0 for time-based)"`
	Holdout    float64 `default:"0.2" help:"Holdout fraction for model evaluation"`
	ShiftDelta float64 `default:"0.05" help:"Marginal-impact feature shift"`
	Cache      bool    `help:"Cache fitted models by content hash"`
	Top        int     `default:"15" help:"Number of top features to print"`
	Output     string  `help:"Write the full report as JSON to this path"`
	Verbose    bool    `short:"v" help:"Verbose logging"`
}

// applyAttributeOptions overwrites the CLI flag values with every field of
// the run file's attribute block that is set to a non-zero value.
func applyAttributeOptions(opts *config.AttributeOptions, cli *CLI) {
	if opts == nil {
		return
	}
	if opts.RDesignPoints > 0 {
		cli.R = opts.RDesignPoints
	}
	if opts.MRalliesPerPoint > 0 {
		cli.M = opts.MRalliesPerPoint
	}
	if opts.Delta > 0 {
		cli.Delta = opts.Delta
	}
	if opts.Model != "" {
		cli.Model = opts.Model
	}
	if opts.Seed != 0 {
		cli.Seed = opts.Seed
	}
	if opts.HoldoutFraction > 0 {
		cli.Holdout = opts.HoldoutFraction
	}
	if opts.FeatureShiftDelta > 0 {
		cli.ShiftDelta = opts.FeatureShiftDelta
	}
	if opts.CacheModels {
		cli.Cache = true
	}
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
		applyAttributeOptions(rf.Attribute, &cli)
	}

	if cli.Seed == 0 {
		cli.Seed = time.Now().UnixNano()
	}

	model := attribution.GBT
	if cli.Model == "logistic" {
		model = attribution.Logistic
	}

	cfg := attribution.Config{
		RDesignPoints:     cli.R,
		MRalliesPerPoint:  cli.M,
		Delta:             cli.Delta,
		Model:             model,
		MasterSeed:        cli.Seed,
		HoldoutFraction:   cli.Holdout,
		FeatureShiftDelta: cli.ShiftDelta,
		CacheModels:       cli.Cache,
	}

	logger.Info("starting attribution", "R", cfg.RDesignPoints, "model", model, "seed", cli.Seed)

	report, err := attribution.Attribute(statsA, statsB, cfg)
	if err != nil {
		logger.Error("attribution reported a failure", "err", err)
		if !report.Degenerate {
			os.Exit(1)
		}
	}

	fmt.Printf("samples: %d   accuracy: %.3f   auc: %.3f\n",
		report.NSamples, report.ModelMetrics.Accuracy, report.ModelMetrics.AUC)
	fmt.Println("top features:")

	top := cli.Top
	if top > len(report.Importances) {
		top = len(report.Importances)
	}
	for _, f := range report.Importances[:top] {
		fmt.Printf("  %2d. %-22s score=%.4f  marginal=%+.4f (%.2f%%)\n",
			f.Rank, f.Feature, f.Score, f.MarginalImpactAbs, f.MarginalImpactRelative*100)
	}

	if cli.Output != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			logger.Fatal("marshalling report", "err", err)
		}
		if err := fileutil.WriteFileAtomic(cli.Output, data, 0o644); err != nil {
			logger.Fatal("writing report", "err", err)
		}
		logger.Info("wrote report", "path", cli.Output)
	}
}

func levelFor(verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.WarnLevel
}
