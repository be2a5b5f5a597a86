package session

import (
	"github.com/roach88/truthtrail/internal/achievement"
	"github.com/roach88/truthtrail/internal/game"
	"github.com/roach88/truthtrail/internal/scoring"
)

// BoldConfidence is the confidence level counted by Stats.BoldCorrect.
const BoldConfidence = game.ConfidenceHigh

// ComputeStats derives the achievement aggregate from a session's results.
func ComputeStats(s game.Session) achievement.Stats {
	st := achievement.Stats{TotalRounds: len(s.Team.Results)}

	streak, running := 0, 0
	trailed := false
	for _, r := range s.Team.Results {
		running += r.Points
		if running < 0 {
			trailed = true
		}
		st.HintsUsed += r.HintsUsed

		if !r.Correct {
			streak = 0
			continue
		}
		st.TotalCorrect++
		streak++
		if streak > st.MaxStreak {
			st.MaxStreak = streak
		}

		// A correct verdict equals the claim's answer.
		switch r.TeamVerdict {
		case game.VerdictFalse:
			st.MythsBusted++
		case game.VerdictMixed:
			st.MixedCorrect++
		}
		if r.Confidence == BoldConfidence {
			st.BoldCorrect++
		}
		if c, ok := s.FindClaim(r.ClaimID); ok && c.AIGenerated {
			st.AICaughtCorrect++
		}
	}

	st.PerfectGame = st.TotalRounds > 0 && st.TotalCorrect == st.TotalRounds
	st.Comeback = trailed && s.Team.Score > 0
	st.CalibrationBonus = scoring.CalibrationBonus(s.Team.Score, s.Team.PredictedScore) > 0
	st.FinalScore = scoring.FinalScore(s.Team.Score, s.Team.PredictedScore)
	return st
}

// Debrief is the derived end-of-game summary. Nothing here is stored in the
// session; the team score stays unbonused.
type Debrief struct {
	Score            int                `json:"score"`
	PredictedScore   int                `json:"predictedScore"`
	CalibrationBonus int                `json:"calibrationBonus"`
	FinalScore       int                `json:"finalScore"`
	Accuracy         int                `json:"accuracy"`
	Stats            achievement.Stats  `json:"stats"`
	Achievements     []achievement.Info `json:"achievements"`
}

// AchievementIDs projects Achievements to their ids.
func (d Debrief) AchievementIDs() []string {
	out := make([]string, len(d.Achievements))
	for i, a := range d.Achievements {
		out[i] = a.ID
	}
	return out
}

// buildDebrief summarises a debrief-phase session.
func buildDebrief(s game.Session) Debrief {
	stats := ComputeStats(s)
	rules := achievement.Evaluate(stats)
	infos := make([]achievement.Info, len(rules))
	for i, r := range rules {
		infos[i] = r.Info()
	}
	return Debrief{
		Score:            s.Team.Score,
		PredictedScore:   s.Team.PredictedScore,
		CalibrationBonus: scoring.CalibrationBonus(s.Team.Score, s.Team.PredictedScore),
		FinalScore:       stats.FinalScore,
		Accuracy:         scoring.Accuracy(stats.TotalCorrect, stats.TotalRounds),
		Stats:            stats,
		Achievements:     infos,
	}
}
