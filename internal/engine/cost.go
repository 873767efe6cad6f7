package engine

import "ORBLab/internal/domain/models"

// Friction is the per-trade transaction cost in points and dollars.
type Friction struct {
	Commission     float64
	SpreadPoints   float64
	SlippagePoints float64
	Dollars        float64
	// Diagnostic marks the friction-free path. Rows built with it must not be persisted.
	Diagnostic bool
}

// ComputeFriction maps a cost spec to round-trip friction. Spread is not doubled.
func ComputeFriction(spec models.CostSpec) Friction {
	points := dec(spec.SpreadPoints).Add(dec(spec.SlippagePoints))
	dollars := dec(spec.Commission).Add(points.Mul(dec(spec.PointValue)))
	return Friction{
		Commission:     spec.Commission,
		SpreadPoints:   spec.SpreadPoints,
		SlippagePoints: spec.SlippagePoints,
		Dollars:        toFloat(dollars),
	}
}

// DiagnosticFriction returns zero friction, labelled diagnostic.
func DiagnosticFriction() Friction {
	return Friction{Diagnostic: true}
}
