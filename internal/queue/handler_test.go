package queue

import (
	"testing"

	"github.com/rabbitmq/amqp091-go"
)

func TestRetryCount(t *testing.T) {
	if got := RetryCount(nil); got != 0 {
		t.Errorf("RetryCount(nil) = %d, want 0", got)
	}
	if got := RetryCount(amqp091.Table{"x-retries": int32(3)}); got != 3 {
		t.Errorf("RetryCount = %d, want 3", got)
	}
	if got := RetryCount(amqp091.Table{"x-retries": "not-a-number"}); got != 0 {
		t.Errorf("RetryCount with bad header = %d, want 0", got)
	}
}

func TestRetryTargetIncrements(t *testing.T) {
	target, headers := RetryTarget("layout_queue", nil)
	if target != "layout_queue_retry" {
		t.Errorf("target = %q, want layout_queue_retry", target)
	}
	if headers["x-retries"] != int32(1) {
		t.Errorf("x-retries = %v, want 1", headers["x-retries"])
	}

	target, headers = RetryTarget("layout_queue", headers)
	if target != "layout_queue_retry" {
		t.Errorf("second target = %q", target)
	}
	if headers["x-retries"] != int32(2) {
		t.Errorf("x-retries = %v, want 2", headers["x-retries"])
	}
}

func TestRetryTargetExhaustedGoesToDLQ(t *testing.T) {
	headers := amqp091.Table{"x-retries": int32(maxRetries)}
	target, _ := RetryTarget("layout_queue", headers)
	if target != "layout_queue_dlq" {
		t.Errorf("target = %q, want layout_queue_dlq", target)
	}
}

func TestDecodeLayoutRequest(t *testing.T) {
	msg, err := DecodeLayoutRequest([]byte(`{
		"graph_id": "g1",
		"entities_key": "g1/entities.json",
		"relationships_key": "g1/relationships.json"
	}`))
	if err != nil {
		t.Fatalf("DecodeLayoutRequest returned error: %v", err)
	}
	if msg.GraphID != "g1" || msg.EntitiesKey != "g1/entities.json" {
		t.Errorf("decoded message = %+v", msg)
	}
}

func TestDecodeLayoutRequestRejectsMissingGraph(t *testing.T) {
	if _, err := DecodeLayoutRequest([]byte(`{"entities_key": "x"}`)); err == nil {
		t.Error("message without graph_id accepted")
	}
	if _, err := DecodeLayoutRequest([]byte(`not json`)); err == nil {
		t.Error("malformed message accepted")
	}
}
