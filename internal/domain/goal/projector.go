package goal

import (
	"time"

	"saverr/internal/domain/money"
	"saverr/internal/shared/timeutil"
)

// Projection is the linear-rate forecast for one goal.
type Projection struct {
	ProjectedDate       *string `json:"projected_completion_date"`
	OnTrack             bool    `json:"on_track"`
	MonthlyContribution float64 `json:"monthly_contribution"`
}

// Project forecasts when a goal will be completed, assuming the saving rate
// observed since creation holds. The rate is linear: current amount divided
// by days elapsed, with a month approximated as 30 days.
func Project(g Goal, now time.Time) Projection {
	if g.TargetDate == nil || *g.TargetDate == "" || g.TargetAmount <= 0 {
		return Projection{}
	}

	target, err := time.Parse(timeutil.DateLayout, *g.TargetDate)
	if err != nil {
		return Projection{}
	}
	created, err := timeutil.ParseTimestamp(g.CreatedAt)
	if err != nil {
		return Projection{}
	}

	// Already complete: the goal finishes by its own target date.
	if g.CurrentAmount >= g.TargetAmount {
		date := *g.TargetDate
		return Projection{ProjectedDate: &date, OnTrack: true}
	}

	daysElapsed := int(now.Sub(created).Hours() / 24)
	if daysElapsed <= 0 {
		// Too early to measure a rate; give the goal the benefit of the doubt.
		date := *g.TargetDate
		return Projection{ProjectedDate: &date, OnTrack: true}
	}

	dailyRate := g.CurrentAmount / float64(daysElapsed)
	monthly := money.Round2(dailyRate * 30)

	// Target date already passed: no completion date can be projected.
	daysToTarget := int(target.Sub(now).Hours() / 24)
	if daysToTarget <= 0 {
		return Projection{OnTrack: false, MonthlyContribution: monthly}
	}

	if dailyRate <= 0 {
		return Projection{OnTrack: false, MonthlyContribution: monthly}
	}

	remaining := g.TargetAmount - g.CurrentAmount
	daysToComplete := int(remaining / dailyRate)
	projected := now.AddDate(0, 0, daysToComplete)
	projectedStr := projected.Format(timeutil.DateLayout)

	return Projection{
		ProjectedDate:       &projectedStr,
		OnTrack:             !projected.After(target),
		MonthlyContribution: monthly,
	}
}
