package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"ORBLab/internal/domain/models"
	pkgkafka "ORBLab/pkg/kafka"
	applogger "ORBLab/pkg/logger"
)

var requestValidator = validator.New()

// BacktestRequestHandler consumes batch requests from Kafka. Every consumed
// request persists its rows.
type BacktestRequestHandler struct {
	topic string
	uc    *BacktestUseCase
	l     *applogger.Logger
}

var _ pkgkafka.MessageHandler = (*BacktestRequestHandler)(nil)

func NewBacktestRequestHandler(topic string, uc *BacktestUseCase, l *applogger.Logger) *BacktestRequestHandler {
	return &BacktestRequestHandler{topic: topic, uc: uc, l: l}
}

func (h *BacktestRequestHandler) Topic() string { return h.topic }

// Handle decodes and runs one request. Malformed or invalid requests are
// permanent failures so the consumer sends them to the DLQ without retrying.
func (h *BacktestRequestHandler) Handle(ctx context.Context, payload []byte) error {
	var req models.BacktestRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("%w: decode backtest request: %v", pkgkafka.ErrPermanent, err)
	}
	if err := defaults.Set(&req); err != nil {
		return fmt.Errorf("%w: defaults: %v", pkgkafka.ErrPermanent, err)
	}
	if err := requestValidator.StructCtx(ctx, &req); err != nil {
		return fmt.Errorf("%w: validate backtest request: %v", pkgkafka.ErrPermanent, err)
	}
	req.Persist = true

	report, err := h.uc.Run(ctx, BatchFromRequest(req))
	if errors.Is(err, ErrInvalidRequest) {
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	}
	if err != nil {
		return err
	}

	h.l.Info("backtest request handled",
		applogger.String("request_id", pkgkafka.RequestID(ctx)),
		applogger.String("run_id", report.RunID),
		applogger.Any("totals", report.Totals),
	)
	// sink and bar-load failures are retryable; config errors and bad data are not
	if report.Totals.Failed > 0 {
		return fmt.Errorf("backtest %s: %d of %d units failed", report.RunID, report.Totals.Failed, report.Totals.Units)
	}
	return nil
}
