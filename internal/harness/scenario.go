package harness

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/truthtrail/internal/deck"
	"github.com/roach88/truthtrail/internal/game"
	"github.com/roach88/truthtrail/internal/remote"
)

// Scenario is a scripted session with expectations.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	Settings Settings `yaml:"settings"`

	// Deck is a deck file path, relative to the scenario file.
	// Exclusive with Claims.
	Deck string `yaml:"deck,omitempty"`

	// Claims are inline claims. Exclusive with Deck.
	Claims []game.Claim `yaml:"claims,omitempty"`

	Remote RemoteBehavior `yaml:"remote,omitempty"`

	// Rounds are submitted in order after StartGame.
	Rounds []RoundStep `yaml:"rounds"`

	// Reflection, if set, is submitted after the last round.
	Reflection string `yaml:"reflection,omitempty"`

	// Sync is the number of sync passes run after the game.
	Sync int `yaml:"sync,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Settings mirror session.Settings without the claims.
type Settings struct {
	Team           string   `yaml:"team"`
	Avatar         string   `yaml:"avatar,omitempty"`
	Players        []string `yaml:"players,omitempty"`
	Rounds         int      `yaml:"rounds"`
	Difficulty     string   `yaml:"difficulty,omitempty"`
	PredictedScore int      `yaml:"predicted_score"`
}

// RemoteBehavior configures the fake remote service.
type RemoteBehavior struct {
	// Down fails every remote write.
	Down bool `yaml:"down,omitempty"`

	// Fail lists remote operations that fail.
	Fail []string `yaml:"fail,omitempty"`
}

// RoundStep is one submitted answer.
type RoundStep struct {
	Verdict    string       `yaml:"verdict"`
	Confidence int          `yaml:"confidence"`
	Hints      []string     `yaml:"hints,omitempty"`
	Reasoning  string       `yaml:"reasoning,omitempty"`
	Expect     *RoundExpect `yaml:"expect,omitempty"`
}

// RoundExpect checks one submission. Nil fields are not checked.
type RoundExpect struct {
	Correct *bool  `yaml:"correct,omitempty"`
	Points  *int   `yaml:"points,omitempty"`
	Error   string `yaml:"error,omitempty"`
}

// Expect checks the end of the run. Nil fields are not checked.
type Expect struct {
	StartError       string   `yaml:"start_error,omitempty"`
	Phase            string   `yaml:"phase,omitempty"`
	Score            *int     `yaml:"score,omitempty"`
	FinalScore       *int     `yaml:"final_score,omitempty"`
	CalibrationBonus *int     `yaml:"calibration_bonus,omitempty"`
	Achievements     []string `yaml:"achievements,omitempty"`
	Queued           *int     `yaml:"queued,omitempty"`
}

var remoteOps = map[string]bool{
	remote.OpSaveGameRecord:    true,
	remote.OpSaveReflection:    true,
	remote.OpSubmitClaim:       true,
	remote.OpShareAchievement:  true,
	remote.OpUpsertLiveSession: true,
	remote.OpRemoveLiveSession: true,
}

// LoadScenario reads a scenario file. Unknown keys are rejected and a
// referenced deck is resolved relative to the file and loaded.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario file")
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario decodes a scenario document. baseDir resolves the deck path.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	if err := validateScenario(&s); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}

	if s.Deck != "" {
		path := s.Deck
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		d, err := deck.Load(path)
		if err != nil {
			return nil, errors.Wrap(err, "invalid scenario")
		}
		s.Claims = d.Claims
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.Deck != "" && len(s.Claims) > 0 {
		return errors.New("deck and claims are mutually exclusive")
	}
	if len(s.Rounds) == 0 && s.Expect.StartError == "" {
		return errors.New("rounds list is required and must be non-empty")
	}
	if s.Sync < 0 {
		return errors.Errorf("sync must not be negative, got %d", s.Sync)
	}
	for _, op := range s.Remote.Fail {
		if !remoteOps[op] {
			return errors.Errorf("remote.fail: unknown operation %q", op)
		}
	}
	for i, r := range s.Rounds {
		if r.Verdict == "" {
			return errors.Errorf("rounds[%d]: verdict is required", i)
		}
	}
	if s.Expect.Phase != "" && !game.Phase(s.Expect.Phase).Valid() {
		return errors.Errorf("expect.phase: unknown phase %q", s.Expect.Phase)
	}
	return nil
}
