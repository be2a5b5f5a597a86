package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/truthtrail/internal/game"
)

func checkStart(res *Result, s *Scenario, err error) {
	got := ErrorCode(err)
	if got != s.Expect.StartError {
		res.AddError(fmt.Sprintf("start: expected error %q, got %q", s.Expect.StartError, got))
	}
}

func checkRound(res *Result, i int, want *RoundExpect, ev TraceEvent) {
	if want == nil {
		return
	}
	label := fmt.Sprintf("rounds[%d]", i)

	if ev.Error != want.Error {
		res.AddError(fmt.Sprintf("%s: expected error %q, got %q", label, want.Error, ev.Error))
		return
	}
	if ev.Round == nil {
		return
	}
	if want.Correct != nil && ev.Round.Correct != *want.Correct {
		res.AddError(fmt.Sprintf("%s: expected correct=%v, got %v", label, *want.Correct, ev.Round.Correct))
	}
	if want.Points != nil && ev.Round.Points != *want.Points {
		res.AddError(fmt.Sprintf("%s: expected %d points, got %d", label, *want.Points, ev.Round.Points))
	}
}

func checkEnd(res *Result, want Expect, s game.Session, queued int) {
	if want.Phase != "" && string(s.Phase) != want.Phase {
		res.AddError(fmt.Sprintf("expected phase %q, got %q", want.Phase, s.Phase))
	}
	if want.Score != nil && s.Team.Score != *want.Score {
		res.AddError(fmt.Sprintf("expected score %d, got %d", *want.Score, s.Team.Score))
	}
	if want.Queued != nil && queued != *want.Queued {
		res.AddError(fmt.Sprintf("expected %d queued items, got %d", *want.Queued, queued))
	}

	if want.FinalScore == nil && want.CalibrationBonus == nil && want.Achievements == nil {
		return
	}
	d, ok := res.Last(EventDebrief)
	if !ok {
		res.AddError("expected a debrief, game did not finish")
		return
	}
	if want.FinalScore != nil && d.Debrief.FinalScore != *want.FinalScore {
		res.AddError(fmt.Sprintf("expected final score %d, got %d", *want.FinalScore, d.Debrief.FinalScore))
	}
	if want.CalibrationBonus != nil && d.Debrief.CalibrationBonus != *want.CalibrationBonus {
		res.AddError(fmt.Sprintf("expected calibration bonus %d, got %d", *want.CalibrationBonus, d.Debrief.CalibrationBonus))
	}
	if want.Achievements != nil && !slices.Equal(want.Achievements, d.Debrief.Achievements) {
		res.AddError(fmt.Sprintf("expected achievements %v, got %v", want.Achievements, d.Debrief.Achievements))
	}
}
