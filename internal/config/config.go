// Package config parses the HCL run files the CLI commands accept: a pair
// of team blocks plus a simulate or attribute options block.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/rallysim/internal/team"
)

// TeamBlock is one `team "a" { ... }` / `team "b" { ... }` block.
type TeamBlock struct {
	Name string `hcl:"name,label"`

	Ace   float64 `hcl:"ace,optional"`
	Error float64 `hcl:"error,optional"`

	ReceptionPerfect float64 `hcl:"reception_perfect,optional"`
	ReceptionGood    float64 `hcl:"reception_good,optional"`
	ReceptionPoor    float64 `hcl:"reception_poor,optional"`
	ReceptionError   float64 `hcl:"reception_error,optional"`

	BallHandlingError float64 `hcl:"ball_handling_error,optional"`

	Kill   float64 `hcl:"kill,optional"`
	AtkErr float64 `hcl:"atk_err,optional"`

	Dig             float64 `hcl:"dig,optional"`
	BlockKill       float64 `hcl:"block_kill,optional"`
	ControlledBlock float64 `hcl:"controlled_block,optional"`
	BlockError      float64 `hcl:"block_error,optional"`
}

// Stats converts the block into a team.Stats, defaulting any field left at
// its HCL zero value to the matching field of team.DefaultStats.
func (b TeamBlock) Stats() team.Stats {
	d := team.DefaultStats()
	s := team.Stats{
		Ace:               orDefault(b.Ace, d.Ace),
		Error:             orDefault(b.Error, d.Error),
		ReceptionPerfect:  orDefault(b.ReceptionPerfect, d.ReceptionPerfect),
		ReceptionGood:     orDefault(b.ReceptionGood, d.ReceptionGood),
		ReceptionPoor:     orDefault(b.ReceptionPoor, d.ReceptionPoor),
		ReceptionError:    orDefault(b.ReceptionError, d.ReceptionError),
		BallHandlingError: orDefault(b.BallHandlingError, d.BallHandlingError),
		Kill:              orDefault(b.Kill, d.Kill),
		AtkErr:            orDefault(b.AtkErr, d.AtkErr),
		Dig:               orDefault(b.Dig, d.Dig),
		BlockKill:         orDefault(b.BlockKill, d.BlockKill),
		ControlledBlock:   orDefault(b.ControlledBlock, d.ControlledBlock),
		BlockError:        orDefault(b.BlockError, d.BlockError),
	}
	return s
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// SimulateOptions is the `simulate { ... }` options block.
type SimulateOptions struct {
	N               uint64  `hcl:"n,optional"`
	Seed            int64   `hcl:"seed,optional"`
	Serving         string  `hcl:"serving,optional"` // "a" or "b"
	Schedule        string  `hcl:"schedule,optional"` // "fixed" or "loser_serves"
	Fuel            int     `hcl:"fuel,optional"`
	Momentum        bool    `hcl:"momentum,optional"`
	MomentumBoost1  float64 `hcl:"momentum_boost_1,optional"`
	MomentumBoost2  float64 `hcl:"momentum_boost_2,optional"`
	MomentumBoost3  float64 `hcl:"momentum_boost_3,optional"`
	BootstrapSample int     `hcl:"bootstrap_resamples,optional"`
}

// AttributeOptions is the `attribute { ... }` options block.
type AttributeOptions struct {
	RDesignPoints     int     `hcl:"r_design_points,optional"`
	MRalliesPerPoint  int     `hcl:"m_rallies_per_point,optional"`
	Delta             float64 `hcl:"delta,optional"`
	Model             string  `hcl:"model,optional"` // "gbt" or "logistic"
	Seed              int64   `hcl:"seed,optional"`
	HoldoutFraction   float64 `hcl:"holdout_fraction,optional"`
	FeatureShiftDelta float64 `hcl:"feature_shift_delta,optional"`
	CacheModels       bool    `hcl:"cache_models,optional"`
}

// RunFile is the top-level shape of a run HCL file: team blocks labelled
// "a" and "b" (TeamsByName defaults any that is missing) and optional
// simulate/attribute options blocks (each CLI command reads only the one it
// expects). The block counts are not checked.
type RunFile struct {
	Teams     []TeamBlock       `hcl:"team,block"`
	Simulate  *SimulateOptions  `hcl:"simulate,block"`
	Attribute *AttributeOptions `hcl:"attribute,block"`
}

// Load parses filename into a RunFile. A missing file is not an error: the
// CLI falls back to team.DefaultStats and the zero-value options block.
func Load(filename string) (*RunFile, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return &RunFile{}, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing HCL file: %s", diags.Error())
	}

	var rf RunFile
	if diags := gohcl.DecodeBody(file.Body, nil, &rf); diags.HasErrors() {
		return nil, fmt.Errorf("decoding HCL: %s", diags.Error())
	}
	return &rf, nil
}

// TeamsByName returns the "a" and "b" team blocks, defaulting either to an
// unmodified team.DefaultStats block when the run file omits it.
func (rf *RunFile) TeamsByName() (a, b TeamBlock) {
	a = TeamBlock{Name: "a"}
	b = TeamBlock{Name: "b"}
	for _, t := range rf.Teams {
		switch t.Name {
		case "a":
			a = t
		case "b":
			b = t
		}
	}
	return a, b
}
