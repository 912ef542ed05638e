package config

import (
	"strings"
	"testing"
	"time"
)

const sample = `
environment: test
kafka:
  brokers: ["localhost:9092"]
strategies:
  - name: maru
    kind: marubozu
    securities: [TCS, INFY]
  - name: cup
    kind: cup_handle_rsi
    buy_signal_threshold: 0.7
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Server.Port != 8080 || c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("server defaults not applied: %+v", c.Server)
	}
	if c.Orders.Backend != "kafka" || c.Orders.Topic != "orders.target_percent" || c.Orders.MaxWeight != 4 {
		t.Fatalf("orders defaults not applied: %+v", c.Orders)
	}
	if c.Kafka.TriggersTopic != "strategy.triggers" || c.ClickHouse.Database != "stratrun" {
		t.Fatalf("unexpected topic/db: %s %s", c.Kafka.TriggersTopic, c.ClickHouse.Database)
	}
	if len(c.Strategies) != 2 || c.Strategies[1].BuyThreshold == nil || *c.Strategies[1].BuyThreshold != 0.7 {
		t.Fatalf("strategies not parsed: %+v", c.Strategies)
	}
	if c.Strategies[0].SellThreshold != nil {
		t.Fatalf("unset threshold should stay nil")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"bad backend":   "environment: x\norders:\n  backend: ftp\n",
		"no brokers":    "environment: x\n",
		"http no url":   "environment: x\nkafka:\n  brokers: [a]\nhistory:\n  source: http\n",
		"queue w/o rds": "environment: x\nkafka:\n  brokers: [a]\nqueue:\n  enabled: true\n",
		"dup strategy":  "environment: x\nkafka:\n  brokers: [a]\nstrategies:\n  - {name: a, kind: marubozu}\n  - {name: a, kind: triangle}\n",
		"no kind":       "environment: x\nkafka:\n  brokers: [a]\nstrategies:\n  - {name: a}\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
	if _, err := Parse([]byte("environment: x\norders:\n  backend: clickhouse\n")); err != nil {
		t.Fatalf("clickhouse backend without brokers should be valid: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	env := map[string]string{
		"STRATRUN_HTTP_PORT":     "9090",
		"STRATRUN_KAFKA_BROKERS": "k1:9092, k2:9092",
		"STRATRUN_REDIS_HOST":    "redis",
		"STRATRUN_STRATEGIES":    "cup",
		"STRATRUN_ORDERS_TOPIC":  "orders.paper",
	}
	c.applyEnv(func(k string) string { return env[k] })

	if c.Server.Port != 9090 {
		t.Fatalf("port override: %d", c.Server.Port)
	}
	if strings.Join(c.Kafka.Brokers, ",") != "k1:9092,k2:9092" {
		t.Fatalf("brokers override: %v", c.Kafka.Brokers)
	}
	if !c.Redis.Enabled || c.Redis.Host != "redis" {
		t.Fatalf("redis override: %+v", c.Redis)
	}
	if c.Orders.Topic != "orders.paper" {
		t.Fatalf("topic override: %s", c.Orders.Topic)
	}
	en := c.Enabled()
	if len(en) != 1 || en[0].Name != "cup" {
		t.Fatalf("strategy filter: %+v", en)
	}
}
