package models

import "time"

// OutcomeRow is the persisted per-(date, strategy, track) record. Safe to upsert by Key.
// Rows carry no wall-clock or random fields so re-runs are byte-identical.
type OutcomeRow struct {
	TradeDate       string        `json:"trade_date"`
	StrategyID      string        `json:"strategy_id"`
	Track           Track         `json:"track"`
	Instrument      string        `json:"instrument"`
	Anchor          string        `json:"anchor"`
	RangeHigh       float64       `json:"range_high"`
	RangeLow        float64       `json:"range_low"`
	RangeSize       float64       `json:"range_size"`
	Direction       Direction     `json:"direction,omitempty"`
	EntryTime       *time.Time    `json:"entry_time,omitempty"`
	EntryPrice      float64       `json:"entry_price"`
	StopPrice       float64       `json:"stop_price"`
	TargetPrice     float64       `json:"target_price"`
	RiskPoints      float64       `json:"risk_points"`
	TargetPoints    float64       `json:"target_points"`
	RiskDollars     float64       `json:"risk_dollars"`
	RewardDollars   float64       `json:"reward_dollars"`
	FrictionDollars float64       `json:"friction_dollars"`
	RRTarget        float64       `json:"rr_target"`
	StopMode        StopMode      `json:"stop_mode"`
	Outcome         OutcomeStatus `json:"outcome"`
	Reason          string        `json:"reason,omitempty"`
	RMultiple       float64       `json:"r_multiple"`
	ExitPrice       *float64      `json:"exit_price,omitempty"`
	ExitTime        *time.Time    `json:"exit_time,omitempty"`
	MAE             float64       `json:"mae_r"`
	MFE             float64       `json:"mfe_r"`
	Ambiguous       bool          `json:"ambiguous"`
	Diagnostic      bool          `json:"diagnostic"`
}

// Key returns the upsert key.
func (r OutcomeRow) Key() string {
	return r.TradeDate + "|" + r.StrategyID + "|" + string(r.Track)
}
