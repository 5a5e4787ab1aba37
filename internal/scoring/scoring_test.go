package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/nvandessel/ruleloop/internal/models"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestConfidence(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		base        float64
		reinforced  int
		lastApplied *time.Time
		decayRate   float64
		want        float64
	}{
		{
			name:       "fresh rule defaults to base",
			base:       0.5,
			reinforced: 0,
			want:       0.5,
		},
		{
			name:       "single reinforcement",
			base:       0.5,
			reinforced: 1,
			want:       0.6,
		},
		{
			name:       "reinforcement bonus caps at 0.45",
			base:       0.5,
			reinforced: 100,
			want:       0.95, // 0.5 + 0.45, also the ceiling
		},
		{
			name:        "21 days unused at rate 0.05 loses 0.15",
			base:        0.5,
			reinforced:  0,
			lastApplied: timePtr(now.Add(-21 * 24 * time.Hour)),
			decayRate:   0.05,
			want:        0.35,
		},
		{
			name:        "decay penalty caps at 0.4",
			base:        0.9,
			reinforced:  0,
			lastApplied: timePtr(now.Add(-365 * 24 * time.Hour)),
			decayRate:   0.05,
			want:        0.5,
		},
		{
			name:        "never drops below floor",
			base:        0.2,
			reinforced:  0,
			lastApplied: timePtr(now.Add(-200 * 24 * time.Hour)),
			decayRate:   0.05,
			want:        0.1,
		},
		{
			name:        "applied within a week takes no penalty",
			base:        0.5,
			reinforced:  0,
			lastApplied: timePtr(now.Add(-3 * 24 * time.Hour)),
			decayRate:   0.05,
			want:        0.5,
		},
		{
			name:        "future timestamp takes no penalty",
			base:        0.5,
			reinforced:  0,
			lastApplied: timePtr(now.Add(24 * time.Hour)),
			decayRate:   0.05,
			want:        0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.base, tt.reinforced, tt.lastApplied, tt.decayRate, now)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Confidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfidenceBounds(t *testing.T) {
	now := time.Now()
	ages := []*time.Time{
		nil,
		timePtr(now),
		timePtr(now.Add(-10 * 24 * time.Hour)),
		timePtr(now.Add(-1000 * 24 * time.Hour)),
	}

	for reinforced := 0; reinforced <= 20; reinforced++ {
		for _, age := range ages {
			got := Confidence(0.5, reinforced, age, 0.05, now)
			if got < models.ConfidenceFloor || got > models.ConfidenceCeiling {
				t.Fatalf("Confidence(reinforced=%d, age=%v) = %v, outside [%v, %v]",
					reinforced, age, got, models.ConfidenceFloor, models.ConfidenceCeiling)
			}
		}
	}
}

func TestConfidenceMonotonic(t *testing.T) {
	now := time.Now()
	applied := timePtr(now.Add(-30 * 24 * time.Hour))

	// Non-decreasing in reinforcement count.
	prev := 0.0
	for reinforced := 0; reinforced <= 10; reinforced++ {
		got := Confidence(0.5, reinforced, applied, 0.05, now)
		if got < prev {
			t.Fatalf("confidence decreased at reinforced=%d: %v < %v", reinforced, got, prev)
		}
		prev = got
	}

	// Non-increasing in elapsed time since last application.
	prev = 1.0
	for days := 0; days <= 120; days += 7 {
		got := Confidence(0.5, 2, timePtr(now.Add(-time.Duration(days)*24*time.Hour)), 0.05, now)
		if got > prev {
			t.Fatalf("confidence increased at %d days unused: %v > %v", days, got, prev)
		}
		prev = got
	}
}

func TestDecay(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		confidence  float64
		lastApplied *time.Time
		want        float64
	}{
		{name: "never applied", confidence: 0.5, lastApplied: nil, want: 0.0},
		{name: "used yesterday", confidence: 0.5, lastApplied: timePtr(now.Add(-24 * time.Hour)), want: 0.0},
		{name: "six days ago", confidence: 0.5, lastApplied: timePtr(now.Add(-6 * 24 * time.Hour)), want: 0.0},
		{name: "two weeks unused", confidence: 0.5, lastApplied: timePtr(now.Add(-14 * 24 * time.Hour)), want: 0.1},
		{name: "capped by confidence floor", confidence: 0.15, lastApplied: timePtr(now.Add(-70 * 24 * time.Hour)), want: 0.05},
		{name: "at floor already", confidence: 0.1, lastApplied: timePtr(now.Add(-70 * 24 * time.Hour)), want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decay(tt.confidence, tt.lastApplied, 0.05, now)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Decay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldArchive(t *testing.T) {
	if !ShouldArchive(0.18, 0.2) {
		t.Error("confidence 0.18 under threshold 0.2 should archive")
	}
	if ShouldArchive(0.21, 0.2) {
		t.Error("confidence 0.21 over threshold 0.2 should not archive")
	}
	if ShouldArchive(0.2, 0.2) {
		t.Error("threshold is exclusive; confidence equal to it should not archive")
	}
}

func TestRecencyBoost(t *testing.T) {
	now := time.Now()

	if got := RecencyBoost(nil, now); got != 1.0 {
		t.Errorf("nil last applied: got %v, want 1.0", got)
	}
	if got := RecencyBoost(timePtr(now.Add(-time.Hour)), now); got != 1.2 {
		t.Errorf("1h ago: got %v, want 1.2", got)
	}
	if got := RecencyBoost(timePtr(now.Add(-25*time.Hour)), now); got != 1.0 {
		t.Errorf("25h ago: got %v, want 1.0", got)
	}
}
