package kafka

import (
	"context"
	"errors"
	"time"

	applogger "StratRun/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ErrEmptyMessage rejects messages without a payload.
var ErrEmptyMessage = errors.New("kafka: empty message")

// Result summarises one message's trip through its handler.
type Result struct {
	Attempts int
	Took     time.Duration
	Err      error
}

// Hook observes message delivery. Before may enrich ctx; a Before error fails
// the message without calling the handler or retrying.
type Hook interface {
	Before(ctx context.Context, km kafka.Message) (context.Context, error)
	After(ctx context.Context, km kafka.Message, res Result)
}

type NoopHook struct{}

func (NoopHook) Before(ctx context.Context, _ kafka.Message) (context.Context, error) { return ctx, nil }
func (NoopHook) After(context.Context, kafka.Message, Result)                        {}

type traceKey struct{}

// TraceID returns the trace id a Hook attached to ctx, if any.
func TraceID(ctx context.Context) string {
	s, _ := ctx.Value(traceKey{}).(string)
	return s
}

func headerValue(km kafka.Message, key string) string {
	for _, h := range km.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// LogHook carries the "trace_id" header into the context, rejects empty
// payloads and logs failed or slow deliveries.
type LogHook struct {
	l    *applogger.Logger
	slow time.Duration
}

func NewLogHook(l *applogger.Logger, slow time.Duration) *LogHook {
	return &LogHook{l: l, slow: slow}
}

func (h *LogHook) Before(ctx context.Context, km kafka.Message) (context.Context, error) {
	if len(km.Value) == 0 {
		return ctx, ErrEmptyMessage
	}
	if id := headerValue(km, "trace_id"); id != "" {
		ctx = context.WithValue(ctx, traceKey{}, id)
	}
	return ctx, nil
}

func (h *LogHook) After(ctx context.Context, km kafka.Message, res Result) {
	if h.l == nil {
		return
	}
	fields := []applogger.Field{
		applogger.String("topic", km.Topic),
		applogger.Int("partition", km.Partition),
		applogger.Int64("offset", km.Offset),
		applogger.Int("attempts", res.Attempts),
		applogger.Duration("took", res.Took),
	}
	if id := TraceID(ctx); id != "" {
		fields = append(fields, applogger.String("trace_id", id))
	}
	switch {
	case res.Err != nil:
		h.l.Error("kafka message failed", append(fields, applogger.Error(res.Err))...)
	case h.slow > 0 && res.Took > h.slow:
		h.l.Warn("kafka message slow", fields...)
	}
}

var (
	_ Hook = NoopHook{}
	_ Hook = (*LogHook)(nil)
)
