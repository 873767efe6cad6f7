package engine

import (
	"time"

	"ORBLab/internal/domain/models"
)

var testDay = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func at(hh, mm int) time.Time {
	return time.Date(testDay.Year(), testDay.Month(), testDay.Day(), hh, mm, 0, 0, time.UTC)
}

func bar(t time.Time, o, h, l, c float64) models.Bar {
	return models.Bar{Time: t, Open: o, High: h, Low: l, Close: c, Volume: 100}
}

// flat returns n one-minute bars starting at t, all pinned at price p.
func flat(t time.Time, n int, p float64) []models.Bar {
	out := make([]models.Bar, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, bar(t.Add(time.Duration(i)*time.Minute), p, p, p, p))
	}
	return out
}

var mgcCost = models.CostSpec{
	Instrument:     "MGC",
	PointValue:     10,
	TickSize:       0.1,
	Commission:     1.24,
	SpreadPoints:   0.1,
	SlippagePoints: 0.2,
}

// scenarioBars is the 09:00 five-minute range 2653.1-2654.3 followed by a
// confirmation close at 2654.5 and a fill bar opening at 2654.6.
func scenarioBars() []models.Bar {
	return []models.Bar{
		bar(at(9, 0), 2653.5, 2654.0, 2653.1, 2653.8),
		bar(at(9, 1), 2653.8, 2654.3, 2653.6, 2654.1),
		bar(at(9, 2), 2654.1, 2654.2, 2653.4, 2653.5),
		bar(at(9, 3), 2653.5, 2653.9, 2653.2, 2653.7),
		bar(at(9, 4), 2653.7, 2654.1, 2653.5, 2654.0),
		bar(at(9, 5), 2654.0, 2654.6, 2653.9, 2654.5), // confirmation
		bar(at(9, 6), 2654.6, 2655.0, 2654.4, 2654.9), // fill bar
		bar(at(9, 7), 2654.9, 2655.8, 2654.7, 2655.6),
		bar(at(9, 8), 2655.6, 2656.9, 2655.5, 2656.7),
		bar(at(9, 9), 2656.7, 2657.8, 2656.5, 2657.5), // reaches 2657.6
	}
}

func scenarioUnit(bars []models.Bar) Unit {
	return Unit{
		Session:       models.NewSession(testDay, 9, 0, time.UTC),
		StrategyID:    "MGC_0900_E1_O5",
		RangeDuration: 5 * time.Minute,
		ScanHorizon:   4 * time.Hour,
		Rule:          FirstClose{},
		Config: models.StrategyConfig{
			Instrument: "MGC",
			Anchor:     "09:00",
			RRTarget:   2.0,
			StopMode:   models.StopFull,
		},
		Cost:     mgcCost,
		Friction: ComputeFriction(mgcCost),
		Bars:     bars,
	}
}
