package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ORBLab/internal/domain/models"
	drepo "ORBLab/internal/domain/repository"
	"ORBLab/internal/engine"
	applogger "ORBLab/pkg/logger"
	"ORBLab/pkg/util"
)

// ErrInvalidRequest wraps request-level problems (bad dates, unknown rule).
// Unit-level configuration problems never surface through it.
var ErrInvalidRequest = errors.New("invalid backtest request")

// Unit statuses reported per (date, strategy).
const (
	UnitOK          = "ok"
	UnitConfigError = "config_error"
	// UnitBadData marks a malformed bar series. Re-running cannot fix it.
	UnitBadData     = "bad_data"
	UnitFailed      = "failed"
)

// BacktestConfig holds the engine parameters shared by every unit of a run.
type BacktestConfig struct {
	Workers       int
	RangeDuration time.Duration
	ScanHorizon   time.Duration
	Location      *time.Location
	Rule          string
	AggMinutes    int
}

// BatchRequest asks for every (date, anchor) unit of one instrument.
// Empty Anchors means every anchor the registry holds for the instrument.
type BatchRequest struct {
	Instrument string
	Anchors    []string
	From       string
	To         string
	Rule       string
	AggMinutes int
	Persist    bool
	// Diagnostic evaluates without friction. Such runs can never persist.
	Diagnostic bool
}

// UnitReport is the result of one (date, strategy) unit.
type UnitReport struct {
	Date       string              `json:"date"`
	Anchor     string              `json:"anchor"`
	StrategyID string              `json:"strategy_id"`
	Status     string              `json:"status"`
	Error      string              `json:"error,omitempty"`
	Rows       []models.OutcomeRow `json:"rows,omitempty"`
}

type ReportTotals struct {
	Units        int `json:"units"`
	OK           int `json:"ok"`
	ConfigErrors int `json:"config_errors"`
	BadData      int `json:"bad_data"`
	Failed       int `json:"failed"`
	Persisted    int `json:"persisted_rows"`
}

// BacktestReport is returned for a whole batch. RunID identifies the run only;
// it never appears inside rows.
type BacktestReport struct {
	RunID      string       `json:"run_id"`
	Instrument string       `json:"instrument"`
	Diagnostic bool         `json:"diagnostic"`
	Units      []UnitReport `json:"units"`
	Totals     ReportTotals `json:"totals"`
	Structural engine.Stats `json:"structural"`
	Tradeable  engine.Stats `json:"tradeable"`
}

// Rows returns every row of the report in unit order.
func (r *BacktestReport) Rows() []models.OutcomeRow {
	var out []models.OutcomeRow
	for _, u := range r.Units {
		out = append(out, u.Rows...)
	}
	return out
}

// BacktestUseCase expands a batch request into units and evaluates them on a
// worker pool. A unit's failure is recorded in its report and never aborts
// the batch.
type BacktestUseCase struct {
	strategies drepo.StrategyRegistry
	costs      drepo.CostRegistry
	bars       drepo.BarStore
	sink       drepo.OutcomeSink
	metrics    drepo.Metrics
	l          *applogger.Logger
	cfg        BacktestConfig
}

func NewBacktestUseCase(
	strategies drepo.StrategyRegistry,
	costs drepo.CostRegistry,
	bars drepo.BarStore,
	sink drepo.OutcomeSink,
	metrics drepo.Metrics,
	l *applogger.Logger,
	cfg BacktestConfig,
) *BacktestUseCase {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RangeDuration <= 0 {
		cfg.RangeDuration = 5 * time.Minute
	}
	if cfg.ScanHorizon <= 0 {
		cfg.ScanHorizon = 4 * time.Hour
	}
	return &BacktestUseCase{
		strategies: strategies,
		costs:      costs,
		bars:       bars,
		sink:       sink,
		metrics:    metrics,
		l:          l,
		cfg:        cfg,
	}
}

type unitJob struct {
	idx     int
	session models.Session
	anchor  string
}

// Run evaluates the batch. Units are reported in date-then-anchor order
// regardless of which worker finished first.
func (uc *BacktestUseCase) Run(ctx context.Context, req BatchRequest) (*BacktestReport, error) {
	start := time.Now()
	jobs, rule, err := uc.plan(req)
	if err != nil {
		return nil, err
	}

	report := &BacktestReport{
		RunID:      uuid.NewString(),
		Instrument: req.Instrument,
		Diagnostic: req.Diagnostic,
		Units:      make([]UnitReport, len(jobs)),
	}
	uc.l.Info("backtest started",
		applogger.String("run_id", report.RunID),
		applogger.String("instrument", req.Instrument),
		applogger.String("rule", rule.Code()),
		applogger.Strings("anchors", req.Anchors),
		applogger.Int("units", len(jobs)),
		applogger.Bool("persist", req.Persist),
	)

	ch := make(chan unitJob)
	var wg sync.WaitGroup
	for i := 0; i < min(uc.cfg.Workers, max(len(jobs), 1)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range ch {
				report.Units[j.idx] = uc.runUnit(ctx, req, rule, j)
			}
		}()
	}
	for _, j := range jobs {
		ch <- j
	}
	close(ch)
	wg.Wait()

	uc.tally(report, req.Persist)
	uc.metrics.RecordLatency("backtest", time.Since(start).Seconds())
	uc.l.Info("backtest finished",
		applogger.String("run_id", report.RunID),
		applogger.Int("ok", report.Totals.OK),
		applogger.Int("config_errors", report.Totals.ConfigErrors),
		applogger.Int("bad_data", report.Totals.BadData),
		applogger.Int("failed", report.Totals.Failed),
		applogger.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

func (uc *BacktestUseCase) plan(req BatchRequest) ([]unitJob, engine.ConfirmationRule, error) {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
	}
	if req.Instrument == "" {
		return nil, nil, invalid("instrument is required")
	}
	if req.Persist && req.Diagnostic {
		return nil, nil, invalid("diagnostic runs cannot be persisted")
	}
	if req.Persist && uc.sink == nil {
		return nil, nil, invalid("no outcome sink configured")
	}

	kind, agg := req.Rule, req.AggMinutes
	if kind == "" {
		kind = uc.cfg.Rule
	}
	if agg == 0 {
		agg = uc.cfg.AggMinutes
	}
	rule, err := engine.NewRule(kind, agg)
	if err != nil {
		return nil, nil, invalid("%v", err)
	}

	from, err := util.ParseDate(req.From, uc.cfg.Location)
	if err != nil {
		return nil, nil, invalid("%v", err)
	}
	to, err := util.ParseDate(req.To, uc.cfg.Location)
	if err != nil {
		return nil, nil, invalid("%v", err)
	}
	if to.Before(from) {
		return nil, nil, invalid("to %s is before from %s", req.To, req.From)
	}

	anchors := req.Anchors
	if len(anchors) == 0 {
		for _, k := range uc.strategies.Keys() {
			if k.Instrument == req.Instrument {
				anchors = append(anchors, k.Anchor)
			}
		}
		if len(anchors) == 0 {
			return nil, nil, invalid("no strategies registered for %s", req.Instrument)
		}
	}
	// anchors are keyed zero-padded; "9:00" and "09:00" are one unit
	seen := make(map[string]bool, len(anchors))
	canonical := make([]string, 0, len(anchors))
	clocks := make([][2]int, 0, len(anchors))
	for _, a := range anchors {
		h, m, err := util.ParseClock(a)
		if err != nil {
			return nil, nil, invalid("%v", err)
		}
		c := fmt.Sprintf("%02d:%02d", h, m)
		if seen[c] {
			continue
		}
		seen[c] = true
		canonical = append(canonical, c)
		clocks = append(clocks, [2]int{h, m})
	}
	anchors = canonical

	var jobs []unitJob
	for _, day := range util.DateRange(from, to) {
		for i, a := range anchors {
			jobs = append(jobs, unitJob{
				idx:     len(jobs),
				session: models.NewSession(day, clocks[i][0], clocks[i][1], uc.cfg.Location),
				anchor:  a,
			})
		}
	}
	return jobs, rule, nil
}

func (uc *BacktestUseCase) runUnit(ctx context.Context, req BatchRequest, rule engine.ConfirmationRule, j unitJob) UnitReport {
	start := time.Now()
	rep := UnitReport{
		Date:       j.session.DateKey(),
		Anchor:     j.anchor,
		StrategyID: engine.StrategyID(req.Instrument, j.session.Anchor, rule, uc.cfg.RangeDuration),
	}
	fail := func(status, kind string, err error) UnitReport {
		rep.Status, rep.Error, rep.Rows = status, err.Error(), nil
		uc.metrics.RecordUnit(status)
		uc.metrics.RecordError(kind)
		uc.l.Warn("backtest unit failed",
			applogger.String("strategy_id", rep.StrategyID),
			applogger.String("date", rep.Date),
			applogger.String("status", status),
			applogger.Error(err),
		)
		return rep
	}
	if err := ctx.Err(); err != nil {
		return fail(UnitFailed, "cancelled", err)
	}

	cfg, err := uc.strategies.Resolve(req.Instrument, j.anchor)
	if err != nil {
		return fail(UnitConfigError, "config", err)
	}
	cost, err := uc.costs.Lookup(req.Instrument)
	if err != nil {
		return fail(UnitConfigError, "config", err)
	}
	friction := engine.ComputeFriction(cost)
	if req.Diagnostic {
		friction = engine.DiagnosticFriction()
	}

	end := j.session.Anchor.Add(uc.cfg.RangeDuration + uc.cfg.ScanHorizon)
	bars, err := uc.bars.Bars(ctx, req.Instrument, j.session.Anchor, end)
	if err != nil {
		return fail(UnitFailed, "bars", fmt.Errorf("load bars: %w", err))
	}

	unit := engine.Unit{
		Session:       j.session,
		StrategyID:    rep.StrategyID,
		RangeDuration: uc.cfg.RangeDuration,
		ScanHorizon:   uc.cfg.ScanHorizon,
		Rule:          rule,
		Config:        cfg,
		Cost:          cost,
		Friction:      friction,
		Bars:          bars,
	}
	res, err := engine.Evaluate(unit)
	if err != nil {
		if engine.IsConfigurationError(err) {
			return fail(UnitConfigError, "config", err)
		}
		if errors.Is(err, engine.ErrInvalidBars) {
			return fail(UnitBadData, "bad_data", err)
		}
		return fail(UnitFailed, "evaluate", err)
	}
	rows := engine.BuildRows(unit, res)

	if req.Persist {
		if err := uc.sink.Upsert(ctx, rows); err != nil {
			return fail(UnitFailed, "sink", fmt.Errorf("upsert outcomes: %w", err))
		}
	}

	for _, r := range rows {
		uc.metrics.RecordOutcome(r.Track, r.Outcome)
		if r.Ambiguous {
			uc.metrics.RecordAmbiguity(r.Instrument)
			uc.l.Warn("stop and target touched in one bar, recorded as loss",
				applogger.String("strategy_id", r.StrategyID),
				applogger.String("date", r.TradeDate),
				applogger.String("track", string(r.Track)),
			)
		}
	}
	rep.Status, rep.Rows = UnitOK, rows
	uc.metrics.RecordUnit(UnitOK)
	uc.metrics.RecordLatency("unit", time.Since(start).Seconds())
	return rep
}

func (uc *BacktestUseCase) tally(r *BacktestReport, persisted bool) {
	r.Totals.Units = len(r.Units)
	for _, u := range r.Units {
		switch u.Status {
		case UnitOK:
			r.Totals.OK++
			if persisted {
				r.Totals.Persisted += len(u.Rows)
			}
		case UnitConfigError:
			r.Totals.ConfigErrors++
		case UnitBadData:
			r.Totals.BadData++
		default:
			r.Totals.Failed++
		}
	}
	rows := r.Rows()
	r.Structural = engine.Summarize(models.TrackStructural, rows)
	r.Tradeable = engine.Summarize(models.TrackTradeable, rows)
}

// BatchFromRequest maps the transport request onto a batch request.
func BatchFromRequest(req models.BacktestRequest) BatchRequest {
	return BatchRequest{
		Instrument: req.Instrument,
		Anchors:    req.Anchors,
		From:       req.From,
		To:         req.To,
		Rule:       req.Rule,
		AggMinutes: req.AggMinutes,
		Persist:    req.Persist,
		Diagnostic: req.Diagnostic,
	}
}
