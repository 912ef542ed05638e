package clickhouse

import (
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

func TestOptionsNative(t *testing.T) {
	cfg := ClientConfig{Port: 9000, User: "default", Database: "default", DialTimeout: time.Second}
	for _, opt := range []ClientOption{
		WithHost("ch.local"),
		WithDatabase("stratrun"),
		WithCredentials("svc", "pw"),
		WithAsyncInsert(true, false),
		WithMaxExecutionTime(30 * time.Second),
	} {
		opt(&cfg)
	}

	o := options(cfg)
	if o.Protocol != clickhouse.Native || len(o.Addr) != 1 || o.Addr[0] != "ch.local:9000" {
		t.Fatalf("unexpected addr/protocol %v %v", o.Protocol, o.Addr)
	}
	if o.Auth.Database != "stratrun" || o.Auth.Username != "svc" || o.Auth.Password != "pw" {
		t.Fatalf("unexpected auth %+v", o.Auth)
	}
	if o.Settings["async_insert"] != 1 || o.Settings["wait_for_async_insert"] != 0 || o.Settings["max_execution_time"] != 30 {
		t.Fatalf("unexpected settings %v", o.Settings)
	}
}

func TestOptionsHTTP(t *testing.T) {
	cfg := ClientConfig{Host: "::1", Port: 8123}
	WithHTTP(true)(&cfg)
	o := options(cfg)
	if o.Protocol != clickhouse.HTTP || o.Addr[0] != "[::1]:8123" {
		t.Fatalf("unexpected %v %v", o.Protocol, o.Addr)
	}
	if _, ok := o.Settings["async_insert"]; ok {
		t.Fatalf("async insert set without option: %v", o.Settings)
	}
}

func TestTimeoutsKeepDefaults(t *testing.T) {
	cfg := ClientConfig{DialTimeout: time.Second, ReadTimeout: 2 * time.Second, WriteTimeout: 3 * time.Second}
	WithTimeouts(0, 5*time.Second, 0)(&cfg)
	if cfg.DialTimeout != time.Second || cfg.ReadTimeout != 5*time.Second || cfg.WriteTimeout != 3*time.Second {
		t.Fatalf("unexpected timeouts %+v", cfg)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatal("expected error without host")
	}
}
