// Package season computes the fire season countdown attached to every
// response and the season phase served by the status endpoint.
package season

import (
	"fmt"
	"time"
)

// Urgency tags how close fire season is.
type Urgency string

// Urgency values.
const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// Phase is where the calendar sits relative to the season window.
type Phase string

// Season phases.
const (
	PhasePreSeason  Phase = "PRE_SEASON"
	PhaseActive     Phase = "ACTIVE"
	PhasePostSeason Phase = "POST_SEASON"
)

const (
	startMonth = time.June
	startDay   = 1
	endMonth   = time.November
	endDay     = 30
)

// Clock returns the current time. Components take a Clock so tests can pin
// the date.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// Countdown is the point-in-time distance to the next season start.
type Countdown struct {
	DaysRemaining int     `json:"days_remaining"`
	Urgency       Urgency `json:"urgency"`
	StartDate     string  `json:"fire_season_start"`
	Status        string  `json:"status"`
}

// CountdownAt returns the countdown to the next June 1 as seen on now's
// calendar date. On or after June 1 the next year's start is used.
func CountdownAt(now time.Time) Countdown {
	today := dateOf(now)
	start := time.Date(today.Year(), startMonth, startDay, 0, 0, 0, 0, time.UTC)
	if !today.Before(start) {
		start = start.AddDate(1, 0, 0)
	}
	days := daysBetween(today, start)
	urgency := CountdownUrgency(days)

	return Countdown{
		DaysRemaining: days,
		Urgency:       urgency,
		StartDate:     start.Format(time.DateOnly),
		Status:        statusText(urgency),
	}
}

// CountdownUrgency maps days remaining to the urgency on every response:
// critical under 30 days, high at exactly 30, medium under 90, low
// otherwise. Day 31 must stay medium, so high covers a single day.
func CountdownUrgency(days int) Urgency {
	switch {
	case days < 30:
		return UrgencyCritical
	case days == 30:
		return UrgencyHigh
	case days < 90:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// ReadinessUrgency is the finer four-band scale used by fire risk reports.
func ReadinessUrgency(days int) Urgency {
	switch {
	case days < 30:
		return UrgencyCritical
	case days < 60:
		return UrgencyHigh
	case days < 90:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

func statusText(u Urgency) string {
	switch u {
	case UrgencyCritical:
		return "URGENT - Fire season imminent"
	case UrgencyMedium, UrgencyHigh:
		return "Accelerate critical work"
	default:
		return "Good preparation window"
	}
}

// Status describes the season phase for a given date.
type Status struct {
	Phase           Phase  `json:"status"`
	DaysUntilSeason int    `json:"days_until_fire_season,omitempty"`
	DaysRemaining   int    `json:"days_remaining,omitempty"`
	SeasonStart     string `json:"fire_season_start,omitempty"`
	SeasonEnd       string `json:"fire_season_end,omitempty"`
	Message         string `json:"message"`
}

// StatusAt reports whether now falls before, inside (June 1 through
// November 30) or after the current year's season.
func StatusAt(now time.Time) Status {
	today := dateOf(now)
	start := time.Date(today.Year(), startMonth, startDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(today.Year(), endMonth, endDay, 0, 0, 0, 0, time.UTC)

	switch {
	case today.Before(start):
		days := daysBetween(today, start)
		return Status{
			Phase:           PhasePreSeason,
			DaysUntilSeason: days,
			SeasonStart:     start.Format(time.DateOnly),
			Message:         fmt.Sprintf("%d DAYS until Fire Season", days),
		}
	case !today.After(end):
		days := daysBetween(today, end)
		return Status{
			Phase:         PhaseActive,
			DaysRemaining: days,
			SeasonEnd:     end.Format(time.DateOnly),
			Message:       fmt.Sprintf("FIRE SEASON ACTIVE - %d days remaining", days),
		}
	default:
		next := start.AddDate(1, 0, 0)
		days := daysBetween(today, next)
		return Status{
			Phase:           PhasePostSeason,
			DaysUntilSeason: days,
			SeasonStart:     next.Format(time.DateOnly),
			Message:         fmt.Sprintf("%d DAYS until next Fire Season", days),
		}
	}
}

// dateOf drops the clock part of t, keeping the calendar date of t's own
// location, and pins it to UTC midnight so day arithmetic is exact.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
