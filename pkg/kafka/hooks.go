package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook runs around every handling attempt. A BeforeHandle error
// skips the handler and counts as a failed attempt.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, m kafka.Message) (context.Context, error)
	AfterHandle(ctx context.Context, m kafka.Message, err error)
}

type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ kafka.Message) (context.Context, error) {
	return ctx, nil
}

func (NoopHook) AfterHandle(context.Context, kafka.Message, error) {}

// HookFuncs adapts plain functions to ConsumerHook. Nil functions are no-ops.
type HookFuncs struct {
	Before func(context.Context, kafka.Message) (context.Context, error)
	After  func(context.Context, kafka.Message, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, m kafka.Message) (context.Context, error) {
	if h.Before == nil {
		return ctx, nil
	}
	return h.Before(ctx, m)
}

func (h HookFuncs) AfterHandle(ctx context.Context, m kafka.Message, err error) {
	if h.After != nil {
		h.After(ctx, m, err)
	}
}

type ctxKey string

// CtxRequestID holds the request id taken from the message headers.
const CtxRequestID ctxKey = "kafka_request_id"

// RequestIDHook copies the request_id header into the context.
func RequestIDHook() ConsumerHook {
	return HookFuncs{Before: func(ctx context.Context, m kafka.Message) (context.Context, error) {
		if id := Header(m, "request_id"); id != "" {
			ctx = context.WithValue(ctx, CtxRequestID, id)
		}
		return ctx, nil
	}}
}

// RequestID returns the id stored by RequestIDHook, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(CtxRequestID).(string)
	return id
}

// Header returns the first header value for key.
func Header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Chain composes hooks. Before runs in order, After in reverse.
type Chain []ConsumerHook

func (c Chain) BeforeHandle(ctx context.Context, m kafka.Message) (context.Context, error) {
	for _, h := range c {
		var err error
		if ctx, err = h.BeforeHandle(ctx, m); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

func (c Chain) AfterHandle(ctx context.Context, m kafka.Message, err error) {
	for i := len(c) - 1; i >= 0; i-- {
		c[i].AfterHandle(ctx, m, err)
	}
}
