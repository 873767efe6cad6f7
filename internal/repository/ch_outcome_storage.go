package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ORBLab/internal/domain/models"
	domrepo "ORBLab/internal/domain/repository"
	pkgch "ORBLab/pkg/clickhouse"
)

const outcomeColumns = `trade_date, strategy_id, track, instrument, anchor,
    range_high, range_low, range_size, direction, entry_time,
    entry_price, stop_price, target_price, risk_points, target_points,
    risk_dollars, reward_dollars, friction_dollars, rr_target, stop_mode,
    outcome, reason, r_multiple, exit_price, exit_time, mae_r, mfe_r, ambiguous`

const outcomeArity = 28

// CHOutcomeStorage persists outcome rows into a ReplacingMergeTree keyed by
// (trade_date, strategy_id, track). Reads use FINAL so a re-run's row wins.
type CHOutcomeStorage struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
}

var _ domrepo.OutcomeStorage = (*CHOutcomeStorage)(nil)

func NewCHOutcomeStorage(ch *pkgch.Client) *CHOutcomeStorage {
	return &CHOutcomeStorage{
		client: ch,
		db:     ch.DB(),
		table:  ch.Database() + "." + pkgch.OutcomesTable,
	}
}

func (s *CHOutcomeStorage) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, pkgch.Schema(s.client.Database()))
}

// Upsert inserts rows in chunks. Diagnostic rows are refused before anything is written.
func (s *CHOutcomeStorage) Upsert(ctx context.Context, rows []models.OutcomeRow) error {
	if err := refuseDiagnostic(rows); err != nil {
		return err
	}
	const chunkSize = 1000
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", outcomeArity), ", ") + ")"

	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*outcomeArity)
		for _, r := range rows[start:end] {
			date, err := time.Parse(time.DateOnly, r.TradeDate)
			if err != nil {
				return fmt.Errorf("row %s: trade date: %w", r.Key(), err)
			}
			values = append(values, placeholder)
			args = append(args,
				date, r.StrategyID, string(r.Track), r.Instrument, r.Anchor,
				r.RangeHigh, r.RangeLow, r.RangeSize, string(r.Direction), r.EntryTime,
				r.EntryPrice, r.StopPrice, r.TargetPrice, r.RiskPoints, r.TargetPoints,
				r.RiskDollars, r.RewardDollars, r.FrictionDollars, r.RRTarget, string(r.StopMode),
				string(r.Outcome), r.Reason, r.RMultiple, r.ExitPrice, r.ExitTime, r.MAE, r.MFE, boolToUInt8(r.Ambiguous),
			)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, outcomeColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert outcomes: %w", err)
		}
	}
	return nil
}

func (s *CHOutcomeStorage) Query(ctx context.Context, oq domrepo.OutcomeQuery) ([]models.OutcomeRow, error) {
	where := []string{"1 = 1"}
	var args []interface{}
	if oq.StrategyID != "" {
		where = append(where, "strategy_id = ?")
		args = append(args, oq.StrategyID)
	}
	if oq.Track != "" {
		where = append(where, "track = ?")
		args = append(args, string(oq.Track))
	}
	if oq.From != "" {
		where = append(where, "trade_date >= toDate(?)")
		args = append(args, oq.From)
	}
	if oq.To != "" {
		where = append(where, "trade_date <= toDate(?)")
		args = append(args, oq.To)
	}
	limit := oq.Limit
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)

	q := fmt.Sprintf(`SELECT %s FROM %s FINAL WHERE %s ORDER BY trade_date, strategy_id, track LIMIT ?`,
		outcomeColumns, s.table, strings.Join(where, " AND "))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []models.OutcomeRow
	for rows.Next() {
		var (
			r                         models.OutcomeRow
			date                      time.Time
			track, dir, mode, outcome string
			ambiguous                 uint8
		)
		if err := rows.Scan(
			&date, &r.StrategyID, &track, &r.Instrument, &r.Anchor,
			&r.RangeHigh, &r.RangeLow, &r.RangeSize, &dir, &r.EntryTime,
			&r.EntryPrice, &r.StopPrice, &r.TargetPrice, &r.RiskPoints, &r.TargetPoints,
			&r.RiskDollars, &r.RewardDollars, &r.FrictionDollars, &r.RRTarget, &mode,
			&outcome, &r.Reason, &r.RMultiple, &r.ExitPrice, &r.ExitTime, &r.MAE, &r.MFE, &ambiguous,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		r.TradeDate = date.Format(time.DateOnly)
		r.Track = models.Track(track)
		r.Direction = models.Direction(dir)
		r.StopMode = models.StopMode(mode)
		r.Outcome = models.OutcomeStatus(outcome)
		r.Ambiguous = ambiguous == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *CHOutcomeStorage) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close is a no-op: the pool belongs to pkg/clickhouse.
func (s *CHOutcomeStorage) Close() error { return nil }

func refuseDiagnostic(rows []models.OutcomeRow) error {
	for _, r := range rows {
		if r.Diagnostic {
			return fmt.Errorf("%w: %s", domrepo.ErrDiagnosticRow, r.Key())
		}
	}
	return nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
