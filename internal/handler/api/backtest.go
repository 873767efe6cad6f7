package api

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"ORBLab/internal/domain/models"
	domrepo "ORBLab/internal/domain/repository"
	"ORBLab/internal/middleware"
	"ORBLab/internal/service/metrics"
	"ORBLab/internal/service/ratelimit"
	"ORBLab/internal/usecase"
	xhttp "ORBLab/pkg/http"
	xlogger "ORBLab/pkg/logger"
)

// BacktestRunner runs a batch of units.
type BacktestRunner interface {
	Run(ctx context.Context, req usecase.BatchRequest) (*usecase.BacktestReport, error)
}

// HealthChecker reports outcome backend health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// BacktestHandler serves the backtest API.
type BacktestHandler struct {
	logger     *xlogger.Logger
	runner     BacktestRunner
	outcomes   domrepo.OutcomeReader
	strategies domrepo.StrategyRegistry
	health     HealthChecker
	limiter    *ratelimit.Limiter
}

func NewBacktestHandler(
	logger *xlogger.Logger,
	runner BacktestRunner,
	outcomes domrepo.OutcomeReader,
	strategies domrepo.StrategyRegistry,
	health HealthChecker,
	limiter *ratelimit.Limiter,
) *BacktestHandler {
	metrics.Register()
	return &BacktestHandler{
		logger:     logger,
		runner:     runner,
		outcomes:   outcomes,
		strategies: strategies,
		health:     health,
		limiter:    limiter,
	}
}

func (h *BacktestHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	if h.limiter != nil {
		g.POST("/backtest", h.Backtest, middleware.RateLimit(h.limiter))
	} else {
		g.POST("/backtest", h.Backtest)
	}
	g.GET("/outcomes", h.Outcomes)
	g.GET("/strategies", h.Strategies)
}

// Backtest evaluates the requested units synchronously and returns the report.
func (h *BacktestHandler) Backtest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.runner.Run(c.Request().Context(), usecase.BatchFromRequest(*req))
	if err != nil {
		metrics.APIErrors.WithLabelValues("backtest").Inc()
		if errors.Is(err, usecase.ErrInvalidRequest) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("%v", err))
		}
		h.logger.Error("backtest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("backtest failed").WithError(err))
	}
	metrics.BacktestUnits.WithLabelValues("http").Observe(float64(report.Totals.Units))
	return xhttp.SuccessResponse(c, report)
}

// Outcomes reads persisted rows back.
func (h *BacktestHandler) Outcomes(c echo.Context) error {
	req := &models.OutcomesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.outcomes.Query(c.Request().Context(), domrepo.OutcomeQuery{
		StrategyID: req.StrategyID,
		Track:      models.Track(req.Track),
		From:       req.From,
		To:         req.To,
		Limit:      req.Limit,
	})
	if err != nil {
		metrics.APIErrors.WithLabelValues("outcomes").Inc()
		if errors.Is(err, usecase.ErrNoReader) {
			return xhttp.AppErrorResponse(c, xhttp.NotImplementedError(err.Error()))
		}
		h.logger.Error("outcome query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("query outcomes failed").WithError(err))
	}
	if rows == nil {
		rows = []models.OutcomeRow{}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// StrategyView is one registry record as seen by Resolve.
type StrategyView struct {
	models.StrategyKey
	RRTarget   float64         `json:"rr_target,omitempty"`
	StopMode   models.StopMode `json:"stop_mode,omitempty"`
	SizeFilter *float64        `json:"size_filter,omitempty"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
}

// Strategies lists registry records and whether each one resolves.
func (h *BacktestHandler) Strategies(c echo.Context) error {
	keys := h.strategies.Keys()
	out := make([]StrategyView, 0, len(keys))
	for _, k := range keys {
		v := StrategyView{StrategyKey: k, Status: usecase.UnitOK}
		cfg, err := h.strategies.Resolve(k.Instrument, k.Anchor)
		if err != nil {
			v.Status, v.Error = usecase.UnitConfigError, err.Error()
		} else {
			v.RRTarget, v.StopMode, v.SizeFilter = cfg.RRTarget, cfg.StopMode, cfg.SizeFilter
		}
		out = append(out, v)
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *BacktestHandler) Health(c echo.Context) error {
	if h.health != nil {
		if err := h.health.Health(c.Request().Context()); err != nil {
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("outcome backend unavailable").WithError(err))
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
