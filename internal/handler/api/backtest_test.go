package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ORBLab/internal/domain/models"
	domrepo "ORBLab/internal/domain/repository"
	"ORBLab/internal/registry"
	"ORBLab/internal/service/ratelimit"
	"ORBLab/internal/usecase"
	xlogger "ORBLab/pkg/logger"
)

type fakeRunner struct {
	got    usecase.BatchRequest
	report *usecase.BacktestReport
	err    error
}

func (f *fakeRunner) Run(_ context.Context, req usecase.BatchRequest) (*usecase.BacktestReport, error) {
	f.got = req
	return f.report, f.err
}

type fakeReader struct {
	got  domrepo.OutcomeQuery
	rows []models.OutcomeRow
	err  error
}

func (f *fakeReader) Query(_ context.Context, q domrepo.OutcomeQuery) ([]models.OutcomeRow, error) {
	f.got = q
	return f.rows, f.err
}

type healthFunc func(context.Context) error

func (f healthFunc) Health(ctx context.Context) error { return f(ctx) }

func newTestServer(runner BacktestRunner, reader domrepo.OutcomeReader, health HealthChecker, limiter *ratelimit.Limiter) *echo.Echo {
	rr := 2.0
	strategies := registry.NewStrategies([]registry.StrategyRecord{
		{Instrument: "MGC", Anchor: "09:00", RRTarget: &rr, StopMode: models.StopFull},
		{Instrument: "MGC", Anchor: "10:00", StopMode: models.StopFull},
	})
	e := echo.New()
	NewBacktestHandler(xlogger.Nop(), runner, reader, strategies, health, limiter).RegisterRoutes(e)
	return e
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestBacktestEndpoint(t *testing.T) {
	runner := &fakeRunner{report: &usecase.BacktestReport{RunID: "run-1", Instrument: "MGC"}}
	e := newTestServer(runner, &fakeReader{}, nil, nil)

	rec := serve(e, http.MethodPost, "/api/backtest",
		`{"instrument":"MGC","anchors":["09:00"],"from":"2024-01-02","to":"2024-01-03","rule":"second_close","persist":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MGC", runner.got.Instrument)
	assert.Equal(t, []string{"09:00"}, runner.got.Anchors)
	assert.Equal(t, "second_close", runner.got.Rule)
	assert.True(t, runner.got.Persist)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "run-1", data["run_id"])
}

func TestBacktestEndpointValidation(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestServer(runner, &fakeReader{}, nil, nil)

	cases := map[string]string{
		"missing instrument": `{"from":"2024-01-02","to":"2024-01-03"}`,
		"bad date":           `{"instrument":"MGC","from":"02/01/2024","to":"2024-01-03"}`,
		"bad anchor":         `{"instrument":"MGC","anchors":["9am"],"from":"2024-01-02","to":"2024-01-03"}`,
		"unknown rule":       `{"instrument":"MGC","from":"2024-01-02","to":"2024-01-03","rule":"third_close"}`,
		"agg too small":      `{"instrument":"MGC","from":"2024-01-02","to":"2024-01-03","agg_minutes":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(e, http.MethodPost, "/api/backtest", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, runner.got.Instrument)
}

func TestBacktestEndpointErrors(t *testing.T) {
	runner := &fakeRunner{err: errors.Join(usecase.ErrInvalidRequest, errors.New("to is before from"))}
	e := newTestServer(runner, &fakeReader{}, nil, nil)
	body := `{"instrument":"MGC","from":"2024-01-03","to":"2024-01-02"}`

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/api/backtest", body).Code)

	runner.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodPost, "/api/backtest", body).Code)
}

func TestBacktestEndpointRateLimited(t *testing.T) {
	runner := &fakeRunner{report: &usecase.BacktestReport{}}
	e := newTestServer(runner, &fakeReader{}, nil, ratelimit.New(1, 0.0001))
	body := `{"instrument":"MGC","from":"2024-01-02","to":"2024-01-02"}`

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/api/backtest", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/api/backtest", body).Code)
}

func TestOutcomesEndpoint(t *testing.T) {
	reader := &fakeReader{rows: []models.OutcomeRow{{StrategyID: "MGC_0900_E1_O5", Track: models.TrackTradeable}}}
	e := newTestServer(&fakeRunner{}, reader, nil, nil)

	rec := serve(e, http.MethodGet, "/api/outcomes?strategy_id=MGC_0900_E1_O5&from=2024-01-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MGC_0900_E1_O5", reader.got.StrategyID)
	assert.Equal(t, models.TrackTradeable, reader.got.Track)
	assert.Equal(t, "2024-01-02", reader.got.From)
	assert.Equal(t, 500, reader.got.Limit)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["total"])

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodGet, "/api/outcomes", "").Code)
	assert.Equal(t, http.StatusBadRequest,
		serve(e, http.MethodGet, "/api/outcomes?strategy_id=x&track=BOTH", "").Code)
}

func TestOutcomesEndpointWithoutReader(t *testing.T) {
	reader := &fakeReader{err: usecase.ErrNoReader}
	e := newTestServer(&fakeRunner{}, reader, nil, nil)

	rec := serve(e, http.MethodGet, "/api/outcomes?strategy_id=MGC_0900_E1_O5", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestStrategiesEndpoint(t *testing.T) {
	e := newTestServer(&fakeRunner{}, &fakeReader{}, nil, nil)

	rec := serve(e, http.MethodGet, "/api/strategies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode(t, rec)["data"].(map[string]interface{})["rows"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, usecase.UnitOK, rows[0].(map[string]interface{})["status"])
	second := rows[1].(map[string]interface{})
	assert.Equal(t, usecase.UnitConfigError, second["status"])
	assert.Contains(t, second["error"], "rr_target")
}

func TestHealthEndpoint(t *testing.T) {
	healthy := newTestServer(&fakeRunner{}, &fakeReader{}, healthFunc(func(context.Context) error { return nil }), nil)
	assert.Equal(t, http.StatusOK, serve(healthy, http.MethodGet, "/healthz", "").Code)

	down := newTestServer(&fakeRunner{}, &fakeReader{}, healthFunc(func(context.Context) error { return errors.New("ch down") }), nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, http.MethodGet, "/healthz", "").Code)
}
