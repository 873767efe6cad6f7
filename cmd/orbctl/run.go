package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ORBLab/internal/engine"
	"ORBLab/internal/registry"
	"ORBLab/internal/repository"
	"ORBLab/internal/usecase"
	"ORBLab/pkg/config"
	"ORBLab/pkg/metrics"
	"ORBLab/pkg/util"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a date range and write outcome rows as JSON lines",
		Long: `Evaluates every (date, anchor) unit for one instrument against
<bars>/<instrument>.csv and writes one JSON row per unit and track.
Units with configuration errors are reported and skipped; they never stop the run.`,
		RunE: runBacktest,
	}
	f := cmd.Flags()
	f.String("instrument", "", "Instrument, e.g. MGC (required)")
	f.String("anchors", "", "Comma-separated HH:MM anchors; empty means every registered anchor")
	f.String("from", "", "First trade date YYYY-MM-DD (required)")
	f.String("to", "", "Last trade date YYYY-MM-DD, defaults to --from")
	f.String("bars", "data/bars", "Directory of <instrument>.csv bar files")
	f.String("rule", "first_close", "Confirmation rule (first_close|second_close|aggregated_close)")
	f.Int("agg", 5, "Aggregate minutes for aggregated_close")
	f.Int("range", 5, "Opening range minutes")
	f.Duration("horizon", 4*time.Hour, "Scan horizon after the range closes")
	f.String("tz", "UTC", "Session timezone (IANA name)")
	f.Int("workers", 4, "Parallel units")
	f.String("out", "-", "JSONL output path, - for stdout")
	f.Bool("diagnostic", false, "Evaluate without friction (rows are marked diagnostic)")
	_ = cmd.MarkFlagRequired("instrument")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	l, err := newLogger(cmd)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	str := func(name string) string { v, _ := f.GetString(name); return v }
	num := func(name string) int { v, _ := f.GetInt(name); return v }
	horizon, _ := f.GetDuration("horizon")
	diagnostic, _ := f.GetBool("diagnostic")

	bc := config.BacktestConfig{
		Workers:        num("workers"),
		RangeMinutes:   num("range"),
		ScanHorizon:    horizon,
		Rule:           str("rule"),
		AggMinutes:     num("agg"),
		Timezone:       str("tz"),
		StrategiesFile: str("strategies"),
		CostsFile:      str("costs"),
		BarsCSVDir:     str("bars"),
	}
	if err := bc.Validate(); err != nil {
		return err
	}
	loc, err := bc.Location()
	if err != nil {
		return err
	}
	strategies, err := registry.LoadStrategies(bc.StrategiesFile)
	if err != nil {
		return err
	}
	costs, err := registry.LoadCosts(bc.CostsFile)
	if err != nil {
		return err
	}

	uc := usecase.NewBacktestUseCase(
		strategies,
		costs,
		repository.NewCSVBarStore(bc.BarsCSVDir),
		nil,
		metrics.Nop{},
		l,
		usecase.BacktestConfig{
			Workers:       bc.Workers,
			RangeDuration: bc.RangeDuration(),
			ScanHorizon:   bc.ScanHorizon,
			Location:      loc,
			Rule:          bc.Rule,
			AggMinutes:    bc.AggMinutes,
		},
	)

	to := str("to")
	if to == "" {
		to = str("from")
	}
	report, err := uc.Run(cmd.Context(), usecase.BatchRequest{
		Instrument: str("instrument"),
		Anchors:    util.SplitCSV(str("anchors")),
		From:       str("from"),
		To:         to,
		Diagnostic: diagnostic,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if path := str("out"); path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = file
	}
	if err := writeJSONL(out, report); err != nil {
		return err
	}
	return printSummary(cmd.ErrOrStderr(), report)
}

func writeJSONL(w io.Writer, report *usecase.BacktestReport) error {
	enc := json.NewEncoder(w)
	for _, row := range report.Rows() {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return nil
}

func printSummary(w io.Writer, r *usecase.BacktestReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s\t%s\tunits=%d ok=%d config_errors=%d bad_data=%d failed=%d\n",
		r.RunID, r.Instrument, r.Totals.Units, r.Totals.OK, r.Totals.ConfigErrors, r.Totals.BadData, r.Totals.Failed)
	fmt.Fprintln(tw, "track\twins\tlosses\topen\tno_trade\trisk_too_small\tambiguous\twin_rate\texpectancy_r")
	for _, s := range []engine.Stats{r.Structural, r.Tradeable} {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.3f\t%.3f\n",
			s.Track, s.Wins, s.Losses, s.Open, s.NoTrade, s.RiskTooSmall, s.Ambiguous, s.WinRate, s.ExpectancyR)
	}
	for _, u := range r.Units {
		if u.Status != usecase.UnitOK {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Date, u.StrategyID, u.Status, u.Error)
		}
	}
	return tw.Flush()
}
