package models

import "time"

// Direction is the breakout side.
type Direction string

const (
	DirUp   Direction = "UP"
	DirDown Direction = "DOWN"
)

// StopMode selects where the protective stop sits relative to the range.
type StopMode string

const (
	StopFull StopMode = "full" // opposite range boundary
	StopHalf StopMode = "half" // range midpoint
)

// OpeningRange is the high/low extreme of the bars inside [Start, Start+Duration).
type OpeningRange struct {
	Start    time.Time
	Duration time.Duration
	High     float64
	Low      float64
	Size     float64
	Bars     int
}

// End returns the exclusive end of the range window.
func (r OpeningRange) End() time.Time {
	return r.Start.Add(r.Duration)
}

// StrategyConfig is the authoritative parameter record for one (instrument, anchor).
type StrategyConfig struct {
	Instrument string
	Anchor     string // HH:MM, session local time
	RRTarget   float64
	StopMode   StopMode
	SizeFilter *float64
}

// CostSpec is the per-instrument friction definition. SpreadPoints is already round-trip.
type CostSpec struct {
	Instrument     string  `yaml:"instrument" json:"instrument" validate:"required"`
	PointValue     float64 `yaml:"point_value" json:"point_value" validate:"gt=0"`
	TickSize       float64 `yaml:"tick_size" json:"tick_size" validate:"gt=0"`
	Commission     float64 `yaml:"commission" json:"commission" validate:"gte=0"`
	SpreadPoints   float64 `yaml:"spread_points" json:"spread_points" validate:"gte=0"`
	SlippagePoints float64 `yaml:"slippage_points" json:"slippage_points" validate:"gte=0"`
}

// TradeCandidate is a trade that passed entry resolution and risk computation.
type TradeCandidate struct {
	Direction             Direction
	EntryTime             time.Time
	EntryPrice            float64
	StopPrice             float64
	TargetPrice           float64
	RiskPoints            float64
	TargetPoints          float64
	FrictionDollars       float64
	NominalRiskDollars    float64
	NominalRewardDollars  float64
	RealizedRiskDollars   float64
	RealizedRewardDollars float64
}

// OutcomeStatus is the terminal classification of a unit.
type OutcomeStatus string

const (
	OutcomeWin          OutcomeStatus = "WIN"
	OutcomeLoss         OutcomeStatus = "LOSS"
	OutcomeOpen         OutcomeStatus = "OPEN"
	OutcomeNoTrade      OutcomeStatus = "NO_TRADE"
	OutcomeRiskTooSmall OutcomeStatus = "RISK_TOO_SMALL"
)

// Resolved reports whether the outcome realized a win or a loss.
func (s OutcomeStatus) Resolved() bool {
	return s == OutcomeWin || s == OutcomeLoss
}

// TradeOutcome is the classifier result. MAE/MFE are in R of realized risk.
type TradeOutcome struct {
	Status    OutcomeStatus
	Reason    string
	RMultiple float64
	ExitPrice *float64
	ExitTime  *time.Time
	MAE       float64
	MFE       float64
	Ambiguous bool
	BarsHeld  int
}

// Track distinguishes market-structure metrics from execution-realistic ones.
type Track string

const (
	TrackStructural Track = "STRUCTURAL"
	TrackTradeable  Track = "TRADEABLE"
)

// StrategyKey addresses one strategy registry record.
type StrategyKey struct {
	Instrument string `json:"instrument"`
	Anchor     string `json:"anchor"`
}

func (k StrategyKey) String() string { return k.Instrument + "@" + k.Anchor }
