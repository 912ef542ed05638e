package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"StratRun/internal/domain/models"
	"StratRun/pkg/queue"
)

// JobTypeStrategyTrigger is the queue message type carrying a models.Trigger.
const JobTypeStrategyTrigger = "strategy.run"

// StrategyTriggerJob runs queued triggers through the dispatcher.
type StrategyTriggerJob struct {
	dispatcher *StrategyDispatcher
}

func NewStrategyTriggerJob(d *StrategyDispatcher) *StrategyTriggerJob {
	return &StrategyTriggerJob{dispatcher: d}
}

func (j *StrategyTriggerJob) Name() string { return "strategy-trigger" }
func (j *StrategyTriggerJob) Type() string { return JobTypeStrategyTrigger }

func (j *StrategyTriggerJob) Handle(ctx context.Context, payload json.RawMessage) error {
	tr, err := queue.Decode[models.Trigger](payload)
	if err != nil {
		return fmt.Errorf("strategy job payload: %w", err)
	}
	return j.dispatcher.Dispatch(ctx, tr)
}

var _ queue.Job = (*StrategyTriggerJob)(nil)
