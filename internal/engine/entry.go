package engine

import (
	"fmt"
	"time"

	"ORBLab/internal/domain/models"
)

// Rule kinds accepted in configuration.
const (
	RuleFirstClose      = "first_close"
	RuleSecondClose     = "second_close"
	RuleAggregatedClose = "aggregated_close"
)

// Confirmation identifies the bar whose close confirmed the breakout.
// Index is the last base bar that formed the confirming close.
type Confirmation struct {
	Direction models.Direction
	Index     int
	Close     float64
}

// ConfirmationRule decides whether and when a close breaches the range.
// Only bars in [from, horizonEnd) may take part.
type ConfirmationRule interface {
	// Code is the short tag used in strategy ids (E1, E2, A5...).
	Code() string
	Confirm(bars []models.Bar, rng models.OpeningRange, from int, horizonEnd time.Time) (Confirmation, bool)
}

// NewRule builds the confirmation rule selected by kind.
func NewRule(kind string, aggMinutes int) (ConfirmationRule, error) {
	switch kind {
	case RuleFirstClose, "":
		return FirstClose{}, nil
	case RuleSecondClose:
		return SecondClose{}, nil
	case RuleAggregatedClose:
		if aggMinutes < 2 {
			return nil, fmt.Errorf("aggregated_close needs agg minutes >= 2, got %d", aggMinutes)
		}
		return AggregatedClose{Minutes: aggMinutes}, nil
	default:
		return nil, fmt.Errorf("unknown confirmation rule %q", kind)
	}
}

func breach(close float64, rng models.OpeningRange) (models.Direction, bool) {
	switch {
	case close > rng.High:
		return models.DirUp, true
	case close < rng.Low:
		return models.DirDown, true
	default:
		return "", false
	}
}

// FirstClose confirms on the first base bar closing outside the range.
type FirstClose struct{}

func (FirstClose) Code() string { return "E1" }

func (FirstClose) Confirm(bars []models.Bar, rng models.OpeningRange, from int, horizonEnd time.Time) (Confirmation, bool) {
	for i := from; i < len(bars) && bars[i].Time.Before(horizonEnd); i++ {
		if dir, ok := breach(bars[i].Close, rng); ok {
			return Confirmation{Direction: dir, Index: i, Close: bars[i].Close}, true
		}
	}
	return Confirmation{}, false
}

// SecondClose confirms on the second consecutive base bar closing outside
// the range on the same side. Bars separated by a gap are not consecutive.
type SecondClose struct{}

func (SecondClose) Code() string { return "E2" }

func (SecondClose) Confirm(bars []models.Bar, rng models.OpeningRange, from int, horizonEnd time.Time) (Confirmation, bool) {
	var prev models.Direction
	for i := from; i < len(bars) && bars[i].Time.Before(horizonEnd); i++ {
		dir, ok := breach(bars[i].Close, rng)
		if !ok {
			prev = ""
			continue
		}
		if dir == prev && bars[i].Time.Sub(bars[i-1].Time) == BaseInterval {
			return Confirmation{Direction: dir, Index: i, Close: bars[i].Close}, true
		}
		prev = dir
	}
	return Confirmation{}, false
}

// AggregatedClose groups base bars into Minutes-wide buckets aligned to the
// range end and confirms on the first bucket whose close is outside the range.
// A bucket is evaluated once it is complete: its last slot is present, or a
// later bar exists. Buckets ending after the horizon are never evaluated.
type AggregatedClose struct {
	Minutes int
}

func (a AggregatedClose) Code() string { return fmt.Sprintf("A%d", a.Minutes) }

func (a AggregatedClose) Confirm(bars []models.Bar, rng models.OpeningRange, from int, horizonEnd time.Time) (Confirmation, bool) {
	size := time.Duration(a.Minutes) * BaseInterval
	origin := rng.End()
	bucketOf := func(t time.Time) int64 { return int64(t.Sub(origin) / size) }

	for i := from; i < len(bars) && bars[i].Time.Before(horizonEnd); i++ {
		k := bucketOf(bars[i].Time)
		bucketEnd := origin.Add(time.Duration(k+1) * size)
		if bucketEnd.After(horizonEnd) {
			break
		}
		lastSlot := !bars[i].Time.Add(BaseInterval).Before(bucketEnd)
		nextLater := i+1 < len(bars) && bucketOf(bars[i+1].Time) > k
		if !lastSlot && !nextLater {
			continue
		}
		if dir, ok := breach(bars[i].Close, rng); ok {
			return Confirmation{Direction: dir, Index: i, Close: bars[i].Close}, true
		}
	}
	return Confirmation{}, false
}

// Entry is a resolved B-entry: confirmed on one bar, filled at the next bar's open.
type Entry struct {
	Direction    models.Direction
	ConfirmIndex int
	ConfirmTime  time.Time
	ConfirmClose float64
	FillIndex    int
	FillTime     time.Time
	FillPrice    float64
}

// ResolveEntry scans from the range end for a confirmation and fills at the
// open of the base bar immediately following the confirming bar. For
// aggregated confirmation that is the first base bar after the bucket.
// A non-empty reason means NO_TRADE.
func ResolveEntry(bars []models.Bar, rng models.OpeningRange, rule ConfirmationRule, horizonEnd time.Time) (Entry, string) {
	from := indexAtOrAfter(bars, rng.End())
	c, ok := rule.Confirm(bars, rng, from, horizonEnd)
	if !ok {
		return Entry{}, ReasonNoConfirmation
	}
	fill := c.Index + 1
	if fill >= len(bars) || !bars[fill].Time.Before(horizonEnd) {
		return Entry{}, ReasonNoFillBar
	}
	return Entry{
		Direction:    c.Direction,
		ConfirmIndex: c.Index,
		ConfirmTime:  bars[c.Index].Time,
		ConfirmClose: c.Close,
		FillIndex:    fill,
		FillTime:     bars[fill].Time,
		FillPrice:    bars[fill].Open,
	}, ""
}
