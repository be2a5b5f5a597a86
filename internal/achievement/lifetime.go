package achievement

// ProfileStats is the cumulative record of a player across sessions.
// It is persisted by the profile store, not by this package.
type ProfileStats struct {
	GamesPlayed     int `json:"gamesPlayed"`
	TotalCorrect    int `json:"totalCorrect"`
	PerfectGames    int `json:"perfectGames"`
	CalibratedGames int `json:"calibratedGames"`
	BestStreak      int `json:"bestStreak"`
	MythsBusted     int `json:"mythsBusted"`
	AICaught        int `json:"aiCaught"`
}

// Add folds one finished game into the profile and returns the new value.
func (p ProfileStats) Add(s Stats) ProfileStats {
	p.GamesPlayed++
	p.TotalCorrect += s.TotalCorrect
	if s.PerfectGame {
		p.PerfectGames++
	}
	if s.CalibrationBonus {
		p.CalibratedGames++
	}
	if s.MaxStreak > p.BestStreak {
		p.BestStreak = s.MaxStreak
	}
	p.MythsBusted += s.MythsBusted
	p.AICaught += s.AICaughtCorrect
	return p
}

// LifetimeRule is evaluated against a cumulative ProfileStats.
type LifetimeRule = Rule[ProfileStats]

var lifetimeRules = []LifetimeRule{
	{"regular", "Regular", "Play five games", func(p ProfileStats) bool { return p.GamesPlayed >= 5 }},
	{"veteran", "Veteran", "Play twenty-five games", func(p ProfileStats) bool { return p.GamesPlayed >= 25 }},
	{"half_century", "Half Century", "Fifty correct verdicts overall", func(p ProfileStats) bool { return p.TotalCorrect >= 50 }},
	{"century", "Century", "One hundred correct verdicts overall", func(p ProfileStats) bool { return p.TotalCorrect >= 100 }},
	{"flawless_three", "Flawless Three", "Three perfect games", func(p ProfileStats) bool { return p.PerfectGames >= 3 }},
	{"oracle", "Oracle", "Earn the calibration bonus in five games", func(p ProfileStats) bool { return p.CalibratedGames >= 5 }},
	{"streak_legend", "Streak Legend", "Reach a streak of eight", func(p ProfileStats) bool { return p.BestStreak >= 8 }},
	{"myth_hunter", "Myth Hunter", "Expose twenty-five false claims", func(p ProfileStats) bool { return p.MythsBusted >= 25 }},
	{"machine_whisperer", "Machine Whisperer", "Catch ten AI-generated claims", func(p ProfileStats) bool { return p.AICaught >= 10 }},
}

// LifetimeRules returns the lifetime rule table in evaluation order.
func LifetimeRules() []LifetimeRule {
	return append([]LifetimeRule(nil), lifetimeRules...)
}

// EvaluateLifetime returns every lifetime rule satisfied by profile.
func EvaluateLifetime(profile ProfileStats) []LifetimeRule {
	return satisfied(lifetimeRules, profile)
}

// NewlyEarned returns lifetime rules satisfied by profile whose ids are not
// in awarded. Used to avoid notifying the same achievement twice.
func NewlyEarned(profile ProfileStats, awarded []string) []LifetimeRule {
	have := make(map[string]struct{}, len(awarded))
	for _, id := range awarded {
		have[id] = struct{}{}
	}
	out := []LifetimeRule{}
	for _, r := range EvaluateLifetime(profile) {
		if _, ok := have[r.ID]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// NewlyEarnedIDs is NewlyEarned projected to rule ids.
func NewlyEarnedIDs(profile ProfileStats, awarded []string) []string {
	return ids(NewlyEarned(profile, awarded))
}
