package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotRunning  = errors.New("queue: not running")
	ErrUnknownType = errors.New("queue: no job for message type")
	ErrQueueFull   = errors.New("queue: full")
)

// Publisher enqueues work for a registered Job.
type Publisher interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Config tunes workers and retries. MaxLength of zero leaves the queue unbounded.
type Config struct {
	Workers    int
	MaxLength  int
	RetryLimit int
	RetryDelay time.Duration
}

// Message is the envelope stored in Redis.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// NewMessage wraps payload, JSON encoding it unless it is already raw JSON.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("queue: encode %s: %w", msgType, err)
		}
		raw = b
	}
	return Message{ID: uuid.NewString(), Type: msgType, Payload: raw, EnqueuedAt: time.Now().UTC()}, nil
}

type step int

const (
	stepDone step = iota
	stepRetry
	stepBury
)

// next decides what happens to msg after its handler returned err.
func next(msg Message, err error, retryLimit int) step {
	switch {
	case err == nil:
		return stepDone
	case errors.Is(err, context.Canceled):
		// Shutdown interrupted the job; give it another go after restart.
		return stepRetry
	case msg.Attempts < retryLimit:
		return stepRetry
	default:
		return stepBury
	}
}
