package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ORBLab/internal/domain/models"
	domrepo "ORBLab/internal/domain/repository"
	pkgch "ORBLab/pkg/clickhouse"
	applogger "ORBLab/pkg/logger"
)

// CHBarStore implements BarStore over the bars_1m table.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.BarStore = (*CHBarStore)(nil)

func NewCHBarStore(ch *pkgch.Client, l *applogger.Logger) *CHBarStore {
	return &CHBarStore{
		db:    ch.DB(),
		table: ch.Database() + "." + pkgch.BarsTable,
		l:     l,
	}
}

func (s *CHBarStore) Bars(ctx context.Context, instrument string, from, to time.Time) ([]models.Bar, error) {
	start := time.Now()
	// FINAL collapses re-ingested duplicates so timestamps stay unique.
	q := fmt.Sprintf(`
        SELECT ts, open, high, low, close, volume
        FROM %s FINAL
        WHERE instrument = ? AND ts >= ? AND ts < ?
        ORDER BY ts ASC
    `, s.table)

	rows, err := s.db.QueryContext(ctx, q, instrument, from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse bars query error",
			applogger.String("instrument", instrument),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, int(to.Sub(from)/time.Minute))
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Time = b.Time.In(from.Location())
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse bars ok",
		applogger.String("instrument", instrument),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}
