package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type trigger struct {
	Strategy string `json:"strategy"`
	Minute   int    `json:"minute"`
}

func TestNewMessageEncodesPayload(t *testing.T) {
	msg, err := NewMessage("strategy.run", trigger{Strategy: "maru", Minute: 30})
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	if msg.ID == "" || msg.Type != "strategy.run" || msg.EnqueuedAt.IsZero() {
		t.Fatalf("envelope not filled: %+v", msg)
	}

	raw, _ := json.Marshal(msg)
	var back Message
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	tr, err := Decode[trigger](back.Payload)
	if err != nil || tr.Strategy != "maru" || tr.Minute != 30 {
		t.Fatalf("decode: %+v %v", tr, err)
	}
}

func TestNewMessageKeepsRawJSON(t *testing.T) {
	msg, _ := NewMessage("strategy.run", json.RawMessage(`{"strategy":"cup"}`))
	if string(msg.Payload) != `{"strategy":"cup"}` {
		t.Fatalf("raw payload re-encoded: %s", msg.Payload)
	}
}

func TestDecodeRejectsEmpty(t *testing.T) {
	if _, err := Decode[trigger](nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := Decode[trigger](json.RawMessage(`[1,2]`)); err == nil {
		t.Fatal("expected error for wrong shape")
	}
}

func TestNextStep(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		attempts int
		err      error
		want     step
	}{
		{0, nil, stepDone},
		{0, boom, stepRetry},
		{2, boom, stepRetry},
		{3, boom, stepBury},
		{3, context.Canceled, stepRetry},
	}
	for _, c := range cases {
		if got := next(Message{Attempts: c.attempts}, c.err, 3); got != c.want {
			t.Errorf("attempts=%d err=%v: got %d want %d", c.attempts, c.err, got, c.want)
		}
	}
}

func TestPublishRequiresRunningQueue(t *testing.T) {
	q := NewRedisQueue(nil, Config{RetryDelay: time.Second}, nil)
	if err := q.PublishMessage(context.Background(), "strategy.run", trigger{}); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("want ErrNotRunning, got %v", err)
	}
	q.running = true
	if err := q.PublishMessage(context.Background(), "strategy.run", trigger{}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("want ErrUnknownType, got %v", err)
	}
}
