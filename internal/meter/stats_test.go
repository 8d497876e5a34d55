package meter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(s float64) time.Time {
	return time.Unix(1700000000, 0).Add(time.Duration(s * float64(time.Second)))
}

func TestStatsTotalsMonotonic(t *testing.T) {
	var s Stats
	s.Add(ts(0), -100)
	s.Add(ts(1), -50)
	s.Add(ts(2), 30)

	assert.Equal(t, float64(150), s.Damage)
	assert.Equal(t, float64(30), s.Heal)
}

func TestStatsRatesWindow(t *testing.T) {
	var s Stats
	s.Add(ts(0), -100)
	s.Add(ts(8), -200)
	s.Add(ts(9), 50)

	// At t=12 with a 10s window, the tick at t=0 is outside.
	dps, hps := s.Rates(ts(12), 10*time.Second)
	assert.InDelta(t, 20.0, dps, 1e-9)
	assert.InDelta(t, 5.0, hps, 1e-9)

	// Totals are unaffected by pruning.
	assert.Equal(t, float64(300), s.Damage)

	// Far past the window everything ages out.
	dps, hps = s.Rates(ts(100), 10*time.Second)
	assert.Zero(t, dps)
	assert.Zero(t, hps)
}

func TestStatsPruneHandlesBackfilledTicks(t *testing.T) {
	var s Stats
	s.Add(ts(20), -100)
	// Backfill lands behind a newer tick.
	s.Add(ts(5), -40)

	dps, _ := s.Rates(ts(22), 10*time.Second)
	assert.InDelta(t, 10.0, dps, 1e-9)
	assert.Equal(t, float64(140), s.Damage)
}

func TestRankActorsTieBreak(t *testing.T) {
	actors := []ActorView{
		{Name: "Carol", Damage: 50, DPS: 10},
		{Name: "Bob", Damage: 100, DPS: 10},
		{Name: "Alice", Damage: 100, DPS: 10},
		{Name: "Dave", Damage: 200, DPS: 40},
	}
	rankActors(actors, SortDPS)

	names := make([]string, len(actors))
	for i, a := range actors {
		names[i] = a.Name
	}
	// Key descending, then damage descending, then name ascending.
	assert.Equal(t, []string{"Dave", "Alice", "Bob", "Carol"}, names)
}

func TestRankActorsBarRatio(t *testing.T) {
	actors := []ActorView{
		{Name: "A", Damage: 200},
		{Name: "B", Damage: 50},
		{Name: "C", Damage: 0},
	}
	rankActors(actors, SortDamage)

	assert.Equal(t, 1.0, actors[0].BarRatio)
	assert.Equal(t, 0.25, actors[1].BarRatio)
	assert.Equal(t, 0.0, actors[2].BarRatio)
}

func TestRankActorsAllZero(t *testing.T) {
	actors := []ActorView{{Name: "A"}, {Name: "B"}}
	rankActors(actors, SortDamage)
	for _, a := range actors {
		assert.Zero(t, a.BarRatio)
	}
}
