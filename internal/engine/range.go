package engine

import (
	"sort"
	"time"

	"ORBLab/internal/domain/models"
)

// BaseInterval is the fixed bar interval of the feed.
const BaseInterval = time.Minute

// BuildRange computes the opening range from bars in [start, start+duration).
// Bars must be ordered by time. ok is false when the window holds no bars.
func BuildRange(bars []models.Bar, start time.Time, duration time.Duration) (models.OpeningRange, bool) {
	rng := models.OpeningRange{Start: start, Duration: duration}
	end := start.Add(duration)

	for i := indexAtOrAfter(bars, start); i < len(bars); i++ {
		b := bars[i]
		if !b.Time.Before(end) {
			break
		}
		if rng.Bars == 0 {
			rng.High, rng.Low = b.High, b.Low
		} else {
			if b.High > rng.High {
				rng.High = b.High
			}
			if b.Low < rng.Low {
				rng.Low = b.Low
			}
		}
		rng.Bars++
	}
	if rng.Bars == 0 {
		return rng, false
	}
	rng.Size = sub(rng.High, rng.Low)
	return rng, true
}

// indexAtOrAfter returns the index of the first bar with Time >= t.
func indexAtOrAfter(bars []models.Bar, t time.Time) int {
	return sort.Search(len(bars), func(i int) bool {
		return !bars[i].Time.Before(t)
	})
}
