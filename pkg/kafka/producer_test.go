package kafka

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]float64{"TCS": 0.5})
	if err != nil || string(b) != `{"TCS":0.5}` {
		t.Fatalf("map: %s %v", b, err)
	}
	if b, _ := encodeValue("raw"); string(b) != "raw" {
		t.Fatalf("string re-encoded: %s", b)
	}
	if b, _ := encodeValue(json.RawMessage(`{"a":1}`)); string(b) != `{"a":1}` {
		t.Fatalf("raw json re-encoded: %s", b)
	}
	if _, err := encodeValue(make(chan int)); err == nil {
		t.Fatal("expected error for unencodable value")
	}
}

func TestCompression(t *testing.T) {
	cases := map[string]struct {
		name  string
		codec kafka.Compression
	}{
		"zstd":  {"zstd", kafka.Zstd},
		"LZ4":   {"lz4", kafka.Lz4},
		"none":  {"none", 0},
		"bogus": {"gzip", kafka.Gzip},
	}
	for in, want := range cases {
		name, codec := compression(in)
		if name != want.name || codec != want.codec {
			t.Errorf("compression(%q) = %s/%v, want %s/%v", in, name, codec, want.name, want.codec)
		}
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatal("expected error without brokers")
	}
}
