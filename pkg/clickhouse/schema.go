package clickhouse

import "fmt"

// Schema returns the DDL for the bar and outcome tables in database db.
// Outcome rows live in a ReplacingMergeTree so a re-run replaces rather
// than duplicates a (trade_date, strategy_id, track) key.
func Schema(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    instrument LowCardinality(String),
    ts         DateTime64(3, 'UTC'),
    open       Float64,
    high       Float64,
    low        Float64,
    close      Float64,
    volume     Float64
) ENGINE = ReplacingMergeTree
ORDER BY (instrument, ts)`, db, BarsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    trade_date       Date,
    strategy_id      LowCardinality(String),
    track            LowCardinality(String),
    instrument       LowCardinality(String),
    anchor           String,
    range_high       Float64,
    range_low        Float64,
    range_size       Float64,
    direction        String,
    entry_time       Nullable(DateTime64(3, 'UTC')),
    entry_price      Float64,
    stop_price       Float64,
    target_price     Float64,
    risk_points      Float64,
    target_points    Float64,
    risk_dollars     Float64,
    reward_dollars   Float64,
    friction_dollars Float64,
    rr_target        Float64,
    stop_mode        String,
    outcome          LowCardinality(String),
    reason           String,
    r_multiple       Float64,
    exit_price       Nullable(Float64),
    exit_time        Nullable(DateTime64(3, 'UTC')),
    mae_r            Float64,
    mfe_r            Float64,
    ambiguous        UInt8
) ENGINE = ReplacingMergeTree
ORDER BY (trade_date, strategy_id, track)`, db, OutcomesTable),
	}
}

// Table names inside the configured database.
const (
	BarsTable     = "bars_1m"
	OutcomesTable = "orb_outcomes"
)
