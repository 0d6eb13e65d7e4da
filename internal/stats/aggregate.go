// Package stats folds fight outcomes into a fighter's cumulative record.
package stats

import (
	"math"

	"tantalus-boxing/internal/domain"
)

// Outcome is the part of a fight record that affects the cumulative record.
type Outcome struct {
	Result       domain.FightResult
	Method       domain.FightMethod
	PointsEarned int
}

func OutcomeOf(f domain.FightRecord) Outcome {
	return Outcome{Result: f.Result, Method: f.Method, PointsEarned: f.PointsEarned}
}

// Apply returns the record after one more fight. Points are not capped.
func Apply(prior domain.Record, outcome Outcome) domain.Record {
	next := prior

	switch outcome.Result {
	case domain.ResultWin:
		next.Wins++
		if next.CurrentStreak > 0 {
			next.CurrentStreak++
		} else {
			next.CurrentStreak = 1
		}
	case domain.ResultLoss:
		next.Losses++
		if next.CurrentStreak < 0 {
			next.CurrentStreak--
		} else {
			next.CurrentStreak = -1
		}
	case domain.ResultDraw:
		next.Draws++
		next.CurrentStreak = 0
	}

	next.Points += outcome.PointsEarned
	if outcome.Method.IsKnockout() {
		next.Knockouts++
	}

	total := next.TotalFights()
	next.WinPercentage = Percentage(next.Wins, total)
	next.KOPercentage = Percentage(next.Knockouts, total)
	return next
}

// Percentage is part/total*100 rounded to two decimals; zero when total is zero.
func Percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}

func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
