package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/shopspring/decimal"

	"github.com/smartkart-ai/smartkart-backend/internal/engine"
	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	"github.com/smartkart-ai/smartkart-backend/pkg/enums"
	"github.com/smartkart-ai/smartkart-backend/pkg/events"
	"github.com/smartkart-ai/smartkart-backend/pkg/logger"
	"github.com/smartkart-ai/smartkart-backend/pkg/metrics"
)

type fakePublisher struct {
	messages []*gcppubsub.Message
	getErr   error
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return fakeResult{err: f.getErr}
}

type fakeResult struct {
	err error
}

func (f fakeResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

func newTestEmitter(t *testing.T, pub *fakePublisher) *Emitter {
	t.Helper()
	emitter, err := NewEmitter(pub, logger.New(logger.Options{ServiceName: "broadcast-test", Output: io.Discard}), metrics.NewEngineMetrics(nil))
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	return emitter
}

func decodeEnvelope(t *testing.T, msg *gcppubsub.Message) events.PayloadEnvelope {
	t.Helper()
	var envelope events.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := envelope.Validate(); err != nil {
		t.Fatalf("invalid envelope: %v", err)
	}
	return envelope
}

func TestCartUpdatedCarriesCartStateAndAction(t *testing.T) {
	pub := &fakePublisher{}
	emitter := newTestEmitter(t, pub)

	cart := &models.Cart{
		CartID:      "1234",
		Active:      true,
		TotalWeight: 0.5,
		TotalPrice:  decimal.NewFromFloat(1.50),
		Items: []models.CartLineItem{
			{ProductID: "milk", Name: "Whole Milk", Quantity: 1, Weight: 0.5, Price: decimal.NewFromFloat(1.50)},
		},
	}
	emitter.CartUpdated(context.Background(), cart, enums.CartActionAdd, "Whole Milk")

	if len(pub.messages) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["event_type"] != "cart_updated" {
		t.Fatalf("unexpected event type %q", msg.Attributes["event_type"])
	}

	envelope := decodeEnvelope(t, msg)
	var payload struct {
		CartID          string  `json:"cartId"`
		TotalWeight     float64 `json:"totalWeight"`
		Action          string  `json:"action"`
		AffectedProduct string  `json:"affectedProduct"`
		Items           []struct {
			ProductID string `json:"productId"`
		} `json:"items"`
	}
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.CartID != "1234" || payload.Action != "add" || payload.AffectedProduct != "Whole Milk" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.TotalWeight != 0.5 || len(payload.Items) != 1 || payload.Items[0].ProductID != "milk" {
		t.Fatalf("cart state not spread into payload: %+v", payload)
	}
}

func TestWeightMismatchPayloadShape(t *testing.T) {
	pub := &fakePublisher{}
	emitter := newTestEmitter(t, pub)

	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	emitter.WeightMismatch(context.Background(), engine.Mismatch{
		CartID:      "1234",
		ProductName: "Flour",
		Action:      enums.CartActionAdd,
		Measured:    0.69,
		Expected:    1.0,
		Difference:  0.31,
		At:          at,
	})

	if len(pub.messages) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.messages))
	}
	envelope := decodeEnvelope(t, pub.messages[0])
	var payload map[string]any
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	for _, key := range []string{"cartId", "productName", "action", "measuredWeight", "expectedWeight", "difference", "timestamp"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("mismatch payload missing %q", key)
		}
	}
	if !envelope.OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at %v, got %v", at, envelope.OccurredAt)
	}
}

func TestUnknownTagAndWeightUpdatePublish(t *testing.T) {
	pub := &fakePublisher{}
	emitter := newTestEmitter(t, pub)

	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	emitter.UnknownTag(context.Background(), "1234", "tag-mystery", at)
	emitter.WeightUpdated(context.Background(), engine.WeightState{
		CartID:   "1234",
		Measured: 2.0,
		Expected: 1.0, Discrepancy: true,
		At: at,
	})

	if len(pub.messages) != 2 {
		t.Fatalf("expected two publishes, got %d", len(pub.messages))
	}
	if got := pub.messages[0].Attributes["event_type"]; got != "unknown_tag" {
		t.Fatalf("unexpected first event type %q", got)
	}
	if got := pub.messages[1].Attributes["event_type"]; got != "weight_update" {
		t.Fatalf("unexpected second event type %q", got)
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	pub := &fakePublisher{getErr: errors.New("broker down")}
	emitter := newTestEmitter(t, pub)

	// must not panic or propagate; the committed mutation stands
	emitter.UnknownTag(context.Background(), "1234", "tag-x", time.Now())
	if len(pub.messages) != 1 {
		t.Fatalf("expected publish attempt despite failure, got %d", len(pub.messages))
	}
}
