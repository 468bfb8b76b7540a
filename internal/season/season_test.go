package season

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestCountdownAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		now     time.Time
		days    int
		urgency Urgency
		start   string
	}{
		{"month before", date(2024, time.May, 1), 31, UrgencyMedium, "2024-06-01"},
		{"thirty days", date(2024, time.May, 2), 30, UrgencyHigh, "2024-06-01"},
		{"twenty nine days", date(2024, time.May, 3), 29, UrgencyCritical, "2024-06-01"},
		{"one week out", date(2024, time.May, 25), 7, UrgencyCritical, "2024-06-01"},
		{"after start rolls over", date(2024, time.June, 15), 351, UrgencyLow, "2025-06-01"},
		{"start day rolls over", date(2024, time.June, 1), 365, UrgencyLow, "2025-06-01"},
		{"new year", date(2025, time.January, 1), 151, UrgencyLow, "2025-06-01"},
		{"eighty nine days", date(2025, time.March, 4), 89, UrgencyMedium, "2025-06-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountdownAt(tt.now)
			if got.DaysRemaining != tt.days {
				t.Fatalf("DaysRemaining = %d, want %d", got.DaysRemaining, tt.days)
			}
			if got.Urgency != tt.urgency {
				t.Fatalf("Urgency = %q, want %q", got.Urgency, tt.urgency)
			}
			if got.StartDate != tt.start {
				t.Fatalf("StartDate = %q, want %q", got.StartDate, tt.start)
			}
			if got.Status == "" {
				t.Fatal("expected status text")
			}
		})
	}
}

func TestReadinessUrgencyBands(t *testing.T) {
	t.Parallel()

	cases := map[int]Urgency{
		0:   UrgencyCritical,
		29:  UrgencyCritical,
		30:  UrgencyHigh,
		59:  UrgencyHigh,
		60:  UrgencyMedium,
		89:  UrgencyMedium,
		90:  UrgencyLow,
		300: UrgencyLow,
	}
	for days, want := range cases {
		if got := ReadinessUrgency(days); got != want {
			t.Errorf("ReadinessUrgency(%d) = %q, want %q", days, got, want)
		}
	}
}

func TestStatusAt(t *testing.T) {
	t.Parallel()

	pre := StatusAt(date(2024, time.May, 1))
	if pre.Phase != PhasePreSeason || pre.DaysUntilSeason != 31 {
		t.Fatalf("unexpected pre-season status: %+v", pre)
	}

	active := StatusAt(date(2024, time.July, 1))
	if active.Phase != PhaseActive || active.DaysRemaining != 152 || active.SeasonEnd != "2024-11-30" {
		t.Fatalf("unexpected active status: %+v", active)
	}

	lastDay := StatusAt(date(2024, time.November, 30))
	if lastDay.Phase != PhaseActive || lastDay.DaysRemaining != 0 {
		t.Fatalf("unexpected last-day status: %+v", lastDay)
	}

	post := StatusAt(date(2024, time.December, 15))
	if post.Phase != PhasePostSeason || post.DaysUntilSeason != 168 || post.SeasonStart != "2025-06-01" {
		t.Fatalf("unexpected post-season status: %+v", post)
	}
}

func TestCountdownStableWithinDay(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		y := rapid.IntRange(2000, 2100).Draw(rt, "year")
		yday := rapid.IntRange(0, 364).Draw(rt, "yday")
		day := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, yday)

		h1 := rapid.IntRange(0, 23).Draw(rt, "h1")
		h2 := rapid.IntRange(0, 23).Draw(rt, "h2")
		a := CountdownAt(day.Add(time.Duration(h1) * time.Hour))
		b := CountdownAt(day.Add(time.Duration(h2) * time.Hour))
		if a != b {
			rt.Fatalf("countdown differs within a day: %+v vs %+v", a, b)
		}
		if a.DaysRemaining < 1 || a.DaysRemaining > 366 {
			rt.Fatalf("DaysRemaining out of range: %d", a.DaysRemaining)
		}

		start, err := time.Parse(time.DateOnly, a.StartDate)
		if err != nil {
			rt.Fatalf("bad start date %q: %v", a.StartDate, err)
		}
		if start.Month() != time.June || start.Day() != 1 {
			rt.Fatalf("start date not June 1: %s", a.StartDate)
		}
		if got := int(start.Sub(day).Hours() / 24); got != a.DaysRemaining {
			rt.Fatalf("days %d disagree with start date distance %d", a.DaysRemaining, got)
		}
	})
}
