package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/rallysim/internal/team"
)

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	rf, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Empty(t, rf.Teams)
	assert.Nil(t, rf.Simulate)
	assert.Nil(t, rf.Attribute)
}

func TestLoadParsesTeamsAndSimulateOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.hcl")
	src := `
team "a" {
  ace   = 0.20
  kill  = 0.50
}

team "b" {
  ace = 0.05
}

simulate {
  n    = 5000
  seed = 42
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	rf, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rf.Teams, 2)
	require.NotNil(t, rf.Simulate)
	assert.Equal(t, uint64(5000), rf.Simulate.N)
	assert.Equal(t, int64(42), rf.Simulate.Seed)

	a, b := rf.TeamsByName()
	assert.Equal(t, 0.20, a.Ace)
	assert.Equal(t, 0.05, b.Ace)
}

func TestTeamBlockStatsDefaultsUnsetFields(t *testing.T) {
	block := TeamBlock{Name: "a", Ace: 0.33}
	stats := block.Stats()
	def := team.DefaultStats()

	assert.Equal(t, 0.33, stats.Ace)
	assert.Equal(t, def.Kill, stats.Kill)
	assert.Equal(t, def.ReceptionPerfect, stats.ReceptionPerfect)
}

func TestTeamsByNameDefaultsMissingBlocks(t *testing.T) {
	rf := &RunFile{}
	a, b := rf.TeamsByName()
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, "b", b.Name)
	assert.Equal(t, team.DefaultStats(), a.Stats())
	assert.Equal(t, team.DefaultStats(), b.Stats())
}
