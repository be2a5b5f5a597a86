package achievement

// Stats aggregates one finished session. It is derived from the round
// results every time and never stored independently.
type Stats struct {
	TotalRounds      int  `json:"totalRounds"`
	TotalCorrect     int  `json:"totalCorrect"`
	MaxStreak        int  `json:"maxStreak"`
	AICaughtCorrect  int  `json:"aiCaughtCorrect"`
	CalibrationBonus bool `json:"calibrationBonus"`
	PerfectGame      bool `json:"perfectGame"`
	MythsBusted      int  `json:"mythsBusted"`
	MixedCorrect     int  `json:"mixedCorrect"`
	Comeback         bool `json:"comeback"`
	HintsUsed        int  `json:"hintsUsed"`
	BoldCorrect      int  `json:"boldCorrect"`
	FinalScore       int  `json:"finalScore"`
}

// Rule is one achievement: a stable id plus a pure predicate over S.
type Rule[S any] struct {
	ID          string
	Title       string
	Description string
	Predicate   func(S) bool
}

// Info returns the rule's display metadata.
func (r Rule[S]) Info() Info {
	return Info{ID: r.ID, Title: r.Title, Description: r.Description}
}

// Info is rule metadata without the predicate, suitable for sharing.
type Info struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GameRule is evaluated against one session's Stats.
type GameRule = Rule[Stats]

var gameRules = []GameRule{
	{
		ID:          "first_catch",
		Title:       "First Catch",
		Description: "Judge a claim correctly",
		Predicate:   func(s Stats) bool { return s.TotalCorrect >= 1 },
	},
	{
		ID:          "sharp_eye",
		Title:       "Sharp Eye",
		Description: "Judge five claims correctly in one game",
		Predicate:   func(s Stats) bool { return s.TotalCorrect >= 5 },
	},
	{
		ID:          "hot_streak",
		Title:       "Hot Streak",
		Description: "Three correct verdicts in a row",
		Predicate:   func(s Stats) bool { return s.MaxStreak >= 3 },
	},
	{
		ID:          "unstoppable",
		Title:       "Unstoppable",
		Description: "Five correct verdicts in a row",
		Predicate:   func(s Stats) bool { return s.MaxStreak >= 5 },
	},
	{
		ID:          "ai_detective",
		Title:       "AI Detective",
		Description: "Correctly judge two AI-generated claims",
		Predicate:   func(s Stats) bool { return s.AICaughtCorrect >= 2 },
	},
	{
		ID:          "calibrated",
		Title:       "Well Calibrated",
		Description: "Predict your score within two points",
		Predicate:   func(s Stats) bool { return s.CalibrationBonus },
	},
	{
		ID:          "perfect_game",
		Title:       "Perfect Game",
		Description: "Judge every claim correctly",
		Predicate:   func(s Stats) bool { return s.PerfectGame },
	},
	{
		ID:          "myth_buster",
		Title:       "Myth Buster",
		Description: "Expose three false claims",
		Predicate:   func(s Stats) bool { return s.MythsBusted >= 3 },
	},
	{
		ID:          "nuance_seeker",
		Title:       "Nuance Seeker",
		Description: "Spot two claims that are partly true",
		Predicate:   func(s Stats) bool { return s.MixedCorrect >= 2 },
	},
	{
		ID:          "comeback",
		Title:       "Comeback",
		Description: "Finish ahead after trailing below zero",
		Predicate:   func(s Stats) bool { return s.Comeback },
	},
	{
		ID:          "no_peeking",
		Title:       "No Peeking",
		Description: "Finish a game of at least five rounds without hints and at least half correct",
		Predicate: func(s Stats) bool {
			return s.TotalRounds >= 5 && s.HintsUsed == 0 && s.TotalCorrect*2 >= s.TotalRounds
		},
	},
	{
		ID:          "bold_call",
		Title:       "Bold Call",
		Description: "Win three high-confidence verdicts",
		Predicate:   func(s Stats) bool { return s.BoldCorrect >= 3 },
	},
}

// GameRules returns the per-game rule table in evaluation order.
// The returned slice is a copy.
func GameRules() []GameRule {
	return append([]GameRule(nil), gameRules...)
}

// Evaluate returns every game rule satisfied by stats, in table order.
func Evaluate(stats Stats) []GameRule {
	return satisfied(gameRules, stats)
}

// EvaluateIDs is Evaluate projected to rule ids.
func EvaluateIDs(stats Stats) []string {
	return ids(Evaluate(stats))
}

// Lookup finds rule metadata by id in either table.
func Lookup(id string) (Info, bool) {
	for _, r := range gameRules {
		if r.ID == id {
			return r.Info(), true
		}
	}
	for _, r := range lifetimeRules {
		if r.ID == id {
			return r.Info(), true
		}
	}
	return Info{}, false
}

func satisfied[S any](table []Rule[S], stats S) []Rule[S] {
	out := []Rule[S]{}
	for _, r := range table {
		if r.Predicate(stats) {
			out = append(out, r)
		}
	}
	return out
}

func ids[S any](rules []Rule[S]) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}
