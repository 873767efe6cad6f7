package models

// Requests for backtest HTTP endpoints and the Kafka request topic.

type BacktestRequest struct {
	Instrument string   `json:"instrument" validate:"required"`
	Anchors    []string `json:"anchors" validate:"omitempty,dive,datetime=15:04"`
	From       string   `json:"from" validate:"required,datetime=2006-01-02"`
	To         string   `json:"to" validate:"required,datetime=2006-01-02"`
	Rule       string   `json:"rule" validate:"omitempty,oneof=first_close second_close aggregated_close"`
	AggMinutes int      `json:"agg_minutes" validate:"omitempty,gte=2,lte=60"`
	Persist    bool     `json:"persist"`
	Diagnostic bool     `json:"diagnostic"`
}

type OutcomesRequest struct {
	StrategyID string `query:"strategy_id" json:"strategy_id" validate:"required"`
	From       string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To         string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Track      string `query:"track" json:"track" default:"TRADEABLE" validate:"oneof=STRUCTURAL TRADEABLE"`
	Limit      int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=5000"`
}
