package hostapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domrepo "StratRun/internal/domain/repository"
)

func TestHistoryClientDecodesWindows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/history" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req historyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Bars != 2 || req.Frequency != "1m" || len(req.Symbols) != 1 {
			t.Errorf("unexpected payload %+v", req)
		}
		_, _ = w.Write([]byte(`{"data":{"TCS":[
			{"t":"2024-03-01T09:15:00Z","o":10,"h":11,"l":9,"c":10.5,"v":100},
			{"t":1709284560,"o":10.5,"h":12,"l":10,"c":11.5,"v":80}]}}`))
	}))
	defer srv.Close()

	c := NewHistoryClient(srv.URL+"/", time.Second, 1)
	got, err := c.History(context.Background(), []string{"TCS"}, 2, domrepo.TF1m)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	w := got["TCS"]
	if w.Len() != 2 || w.Frequency != "1m" {
		t.Fatalf("unexpected window %+v", w)
	}
	last, _ := w.Last()
	if last.Close != 11.5 || last.Bucket.Unix() != 1709284560 || last.Symbol != "TCS" {
		t.Fatalf("unexpected last bar %+v", last)
	}
}

func TestHistoryClientMissingSymbolFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"TCS":[]},"errors":{}}`))
	}))
	defer srv.Close()

	c := NewHistoryClient(srv.URL, time.Second, 1)
	if _, err := c.History(context.Background(), []string{"TCS", "INFY"}, 5, domrepo.TF1m); err == nil {
		t.Fatal("expected error for missing symbol")
	}
}

func TestHistoryClientRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"TCS":[{"t":"1709284500","o":1,"h":1,"l":1,"c":1,"v":1}]}}`))
	}))
	defer srv.Close()

	c := NewHistoryClient(srv.URL, time.Second, 3)
	got, err := c.History(context.Background(), []string{"TCS"}, 1, domrepo.TF1m)
	if err != nil {
		t.Fatalf("history after retries: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 || got["TCS"].Len() != 1 {
		t.Fatalf("calls=%d window=%+v", calls, got["TCS"])
	}
}

func TestHistoryClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unknown frequency", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewHistoryClient(srv.URL, time.Second, 3)
	if _, err := c.History(context.Background(), []string{"TCS"}, 1, domrepo.TF1m); err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("400 retried: %d calls", n)
	}
}
