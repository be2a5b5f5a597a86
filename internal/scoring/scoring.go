// Package scoring implements the quiz scoring rules.
//
// Every function here is pure and total: no errors, no state, no clock.
// Boundary values (a calibration difference of exactly 2 versus 3) are
// load-bearing, so the constants are exported for tests and the debrief screen.
package scoring

const (
	// HintPenalty is deducted from a round's points for every hint revealed.
	HintPenalty = 2

	// CalibrationWindow is the largest |actual - predicted| that still earns the bonus.
	CalibrationWindow = 2

	// CalibrationReward is the bonus awarded inside the calibration window.
	CalibrationReward = 3
)

// ComputePoints returns the base points for a verdict staked at confidence.
//
//	confidence   correct   incorrect
//	    3           +3         -2
//	    2           +2         -1
//	    1           +1         -1
//
// Confidence outside 1..3 is clamped to the nearest tier so the function
// stays total; the state machine rejects such submissions before scoring.
func ComputePoints(correct bool, confidence int) int {
	c := clampConfidence(confidence)
	if correct {
		return c
	}
	if c == 3 {
		return -2
	}
	return -1
}

// NetPoints applies the hint penalty to the base points.
// No floor is applied: a wrong answer after hints can go well below zero.
func NetPoints(correct bool, confidence, hintsUsed int) int {
	if hintsUsed < 0 {
		hintsUsed = 0
	}
	return ComputePoints(correct, confidence) - HintPenalty*hintsUsed
}

// CalibrationBonus rewards a team whose pre-game prediction landed within
// CalibrationWindow of its actual score.
func CalibrationBonus(actualScore, predictedScore int) int {
	diff := actualScore - predictedScore
	if diff < 0 {
		diff = -diff
	}
	if diff <= CalibrationWindow {
		return CalibrationReward
	}
	return 0
}

// FinalScore is the displayed score: actual plus any calibration bonus.
// The stored team score never includes the bonus.
func FinalScore(actualScore, predictedScore int) int {
	return actualScore + CalibrationBonus(actualScore, predictedScore)
}

// Accuracy returns the percentage of correct rounds, rounded half up.
// Zero rounds yields 0.
func Accuracy(correct, rounds int) int {
	if rounds <= 0 {
		return 0
	}
	return (correct*100 + rounds/2) / rounds
}

func clampConfidence(c int) int {
	switch {
	case c < 1:
		return 1
	case c > 3:
		return 3
	default:
		return c
	}
}
