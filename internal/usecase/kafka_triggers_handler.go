package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
	pkgkafka "StratRun/pkg/kafka"
	"StratRun/pkg/util"
)

// KafkaTriggersHandler consumes scheduler callbacks from Kafka and dispatches them.
type KafkaTriggersHandler struct {
	topic      string
	dispatcher *StrategyDispatcher
	metrics    domrepo.Metrics
}

func NewKafkaTriggersHandler(topic string, dispatcher *StrategyDispatcher, metrics domrepo.Metrics) *KafkaTriggersHandler {
	return &KafkaTriggersHandler{topic: topic, dispatcher: dispatcher, metrics: metrics}
}

func (h *KafkaTriggersHandler) Topic() string { return h.topic }

// incoming message schema: {strategy, event, at, minute}; at is RFC3339 or unix seconds.
func (h *KafkaTriggersHandler) Handle(ctx context.Context, b []byte) error {
	tr, err := DecodeTrigger(b)
	if err != nil {
		h.metrics.RecordError("trigger_unmarshal")
		return err
	}
	h.metrics.RecordLatency("trigger_delay_seconds", time.Since(tr.At).Seconds())

	start := time.Now()
	err = h.dispatcher.Dispatch(ctx, tr)
	h.metrics.RecordLatency("trigger_dispatch_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("trigger_dispatch")
		return err
	}
	return nil
}

// DecodeTrigger parses a trigger message. A missing timestamp means now.
func DecodeTrigger(b []byte) (models.Trigger, error) {
	var m struct {
		Strategy string          `json:"strategy"`
		Event    string          `json:"event"`
		At       json.RawMessage `json:"at"`
		Minute   int             `json:"minute"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return models.Trigger{}, fmt.Errorf("decode trigger: %w", err)
	}
	if m.Event == "" {
		return models.Trigger{}, fmt.Errorf("decode trigger: %w: empty", ErrUnknownEvent)
	}
	tr := models.Trigger{Strategy: m.Strategy, Event: models.TriggerEvent(m.Event), Minute: m.Minute, At: time.Now()}
	if len(m.At) > 0 && string(m.At) != "null" {
		at, ok := util.ParseJSONTime(m.At)
		if !ok {
			return models.Trigger{}, fmt.Errorf("decode trigger: bad time %s", m.At)
		}
		tr.At = at
	}
	return tr, nil
}

var _ pkgkafka.MessageHandler = (*KafkaTriggersHandler)(nil)
