package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthtrail/internal/game"
)

func TestParseScenario_Minimal(t *testing.T) {
	doc := `
name: tiny
description: one round
settings: { team: Owls, rounds: 1 }
claims:
  - { id: c1, text: "x", answer: "TRUE" }
rounds:
  - { verdict: "TRUE", confidence: 2 }
`
	s, err := ParseScenario([]byte(doc), "")
	require.NoError(t, err)
	assert.Equal(t, "tiny", s.Name)
	assert.Equal(t, 1, s.Settings.Rounds)
	require.Len(t, s.Claims, 1)
	assert.Equal(t, game.VerdictTrue, s.Claims[0].Answer)
	assert.Equal(t, 2, s.Rounds[0].Confidence)
	assert.Nil(t, s.Rounds[0].Expect)
}

func TestParseScenario_Invalid(t *testing.T) {
	base := "name: x\ndescription: y\nsettings: { team: T, rounds: 1 }\n"
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown field", base + "rounds: [{verdict: \"TRUE\", confidence: 1}]\nbogus: 1\n", "failed to parse YAML"},
		{"missing name", "description: y\nrounds: [{verdict: \"TRUE\"}]\n", "name is required"},
		{"missing description", "name: x\nrounds: [{verdict: \"TRUE\"}]\n", "description is required"},
		{"no rounds", base, "rounds list is required"},
		{"empty verdict", base + "rounds: [{confidence: 1}]\n", "rounds[0]: verdict is required"},
		{"negative sync", base + "rounds: [{verdict: \"TRUE\"}]\nsync: -1\n", "sync must not be negative"},
		{"unknown remote op", base + "rounds: [{verdict: \"TRUE\"}]\nremote: { fail: [teleport] }\n", "unknown operation"},
		{"unknown phase", base + "rounds: [{verdict: \"TRUE\"}]\nexpect: { phase: lobby }\n", "unknown phase"},
		{
			"deck and claims",
			base + "deck: d.yaml\nclaims: [{id: c1, text: x, answer: \"TRUE\"}]\nrounds: [{verdict: \"TRUE\"}]\n",
			"mutually exclusive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_StartErrorNeedsNoRounds(t *testing.T) {
	doc := "name: x\ndescription: y\nsettings: { team: T, rounds: 0 }\nexpect: { start_error: INVALID_SETTINGS }\n"
	s, err := ParseScenario([]byte(doc), "")
	require.NoError(t, err)
	assert.Empty(t, s.Rounds)
}

func TestLoadScenario_ResolvesDeckRelativeToFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/myth-busters-deck.yaml")
	require.NoError(t, err)
	require.Len(t, s.Claims, 5)
	assert.Equal(t, "m1", s.Claims[0].ID)
	assert.True(t, s.Claims[3].AIGenerated)
}

func TestLoadScenario_BadDeck(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deck.yaml"), []byte("name: \"\"\nclaims: []\n"), 0o644))
	doc := "name: x\ndescription: y\nsettings: { team: T, rounds: 1 }\ndeck: deck.yaml\nrounds: [{verdict: \"TRUE\"}]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.yaml"), []byte(doc), 0o644))

	_, err := LoadScenario(filepath.Join(dir, "s.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
