package session

import (
	"github.com/roach88/truthtrail/internal/achievement"
	"github.com/roach88/truthtrail/internal/game"
	"github.com/roach88/truthtrail/internal/remote"
)

// GameRecord is the durable payload queued when a game reaches debrief.
type GameRecord struct {
	SessionID        string   `json:"sessionId"`
	TeamName         string   `json:"teamName"`
	Avatar           string   `json:"avatar,omitempty"`
	Players          []string `json:"players"`
	Score            int      `json:"score"`
	PredictedScore   int      `json:"predictedScore"`
	CalibrationBonus int      `json:"calibrationBonus"`
	FinalScore       int      `json:"finalScore"`
	Accuracy         int      `json:"accuracy"`
	Difficulty       string   `json:"difficulty,omitempty"`
	Rounds           int      `json:"rounds"`
	Correct          int      `json:"correct"`
	Achievements     []string `json:"achievements"`
	CompletedAt      int64    `json:"completedAt"`
}

func newGameRecord(s game.Session, d Debrief, completedAt int64) GameRecord {
	players := s.Team.Players
	if players == nil {
		players = []string{}
	}
	return GameRecord{
		SessionID:        s.ID,
		TeamName:         s.Team.Name,
		Avatar:           s.Team.Avatar,
		Players:          players,
		Score:            d.Score,
		PredictedScore:   d.PredictedScore,
		CalibrationBonus: d.CalibrationBonus,
		FinalScore:       d.FinalScore,
		Accuracy:         d.Accuracy,
		Difficulty:       s.Difficulty,
		Rounds:           s.TotalRounds,
		Correct:          d.Stats.TotalCorrect,
		Achievements:     d.AchievementIDs(),
		CompletedAt:      completedAt,
	}
}

// ReflectionRecord is the durable payload of a post-game reflection.
type ReflectionRecord struct {
	SessionID string `json:"sessionId"`
	TeamName  string `json:"teamName"`
	Text      string `json:"text"`
	Score     int    `json:"score"`
	CreatedAt int64  `json:"createdAt"`
}

// ClaimSubmission is a claim proposed by players for the shared catalog.
type ClaimSubmission struct {
	Text        string       `json:"text"`
	Answer      game.Verdict `json:"answer"`
	Explanation string       `json:"explanation,omitempty"`
	Source      string       `json:"source,omitempty"`
	TeamName    string       `json:"teamName,omitempty"`
	SubmittedAt int64        `json:"submittedAt"`
}

// Player identifies who shares an achievement.
type Player struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// sharePayload is queued as the Data of an achievement item.
type sharePayload struct {
	Achievement achievement.Info `json:"achievement"`
	Player      Player           `json:"player"`
}

// progressOf projects a session for live viewers.
func progressOf(s game.Session) remote.LiveProgress {
	return remote.LiveProgress{
		SessionID:   s.ID,
		TeamName:    s.Team.Name,
		Phase:       string(s.Phase),
		Round:       s.CurrentRound,
		TotalRounds: s.TotalRounds,
		Score:       s.Team.Score,
	}
}
