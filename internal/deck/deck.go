// Package deck loads claim decks: the content a game is played with.
//
// A deck is a YAML file validated against an embedded CUE schema (#Deck)
// before it is handed to the state machine. Catalog selection and
// authoring live elsewhere; this package only guarantees that what it
// returns can start a game.
package deck

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/truthtrail/internal/game"
)

//go:embed schema.cue
var schemaSource string

// Load error codes (E300-E309)
const (
	ErrCodeRead      = "E300" // file could not be read
	ErrCodeParse     = "E301" // YAML is malformed or has unknown fields
	ErrCodeSchema    = "E302" // document violates #Deck
	ErrCodeDuplicate = "E303" // claim id used twice
)

// LoadError describes why a deck was rejected.
type LoadError struct {
	Code    string
	Source  string
	Message string
}

func (e *LoadError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %s", e.Source, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Deck is a named, validated claim sequence.
type Deck struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Claims      []game.Claim `json:"claims" yaml:"claims"`
}

// Len returns the number of claims.
func (d Deck) Len() int {
	return len(d.Claims)
}

// Take returns a copy of the first n claims, or all of them when the deck
// is shorter. The state machine rejects a game the deck cannot fill.
func (d Deck) Take(n int) []game.Claim {
	if n < 0 {
		n = 0
	}
	if n > len(d.Claims) {
		n = len(d.Claims)
	}
	return append([]game.Claim{}, d.Claims[:n]...)
}

// ForDifficulty returns the deck restricted to claims of the given level.
// Claims without a difficulty match every level; an empty level keeps the
// whole deck.
func (d Deck) ForDifficulty(level string) Deck {
	if level == "" {
		return d
	}
	out := Deck{Name: d.Name, Description: d.Description, Claims: []game.Claim{}}
	for _, c := range d.Claims {
		if c.Difficulty == "" || c.Difficulty == level {
			out.Claims = append(out.Claims, c)
		}
	}
	return out
}

// Load reads and validates the deck at path.
func Load(path string) (Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Deck{}, &LoadError{Code: ErrCodeRead, Source: path, Message: err.Error()}
	}
	return Parse(data, path)
}

// Parse decodes and validates a deck document. source names the document
// in errors.
func Parse(data []byte, source string) (Deck, error) {
	var d Deck
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return Deck{}, &LoadError{Code: ErrCodeParse, Source: source, Message: err.Error()}
	}

	for i := range d.Claims {
		if v, err := game.ParseVerdict(string(d.Claims[i].Answer)); err == nil {
			d.Claims[i].Answer = v
		}
	}

	if err := validateSchema(d); err != nil {
		return Deck{}, &LoadError{Code: ErrCodeSchema, Source: source, Message: err.Error()}
	}

	seen := make(map[string]int, len(d.Claims))
	for i, c := range d.Claims {
		if first, ok := seen[c.ID]; ok {
			return Deck{}, &LoadError{
				Code:    ErrCodeDuplicate,
				Source:  source,
				Message: fmt.Sprintf("claims[%d]: id %q already used by claims[%d]", i, c.ID, first),
			}
		}
		seen[c.ID] = i
	}
	return d, nil
}

// validateSchema unifies the decoded deck with #Deck. The deck is encoded
// through its JSON field names, which the schema mirrors.
func validateSchema(d Deck) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return err
	}

	value := ctx.Encode(d)
	if err := value.Err(); err != nil {
		return err
	}

	unified := schema.LookupPath(cue.ParsePath("#Deck")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return flatten(err)
	}
	return nil
}

func flatten(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) <= 1 {
		return err
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return errors.New(strings.Join(msgs, "; "))
}
