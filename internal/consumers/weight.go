package consumers

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/smartkart-ai/smartkart-backend/internal/engine"
	pkgerrors "github.com/smartkart-ai/smartkart-backend/pkg/errors"
	"github.com/smartkart-ai/smartkart-backend/pkg/events"
	"github.com/smartkart-ai/smartkart-backend/pkg/events/idempotency"
	"github.com/smartkart-ai/smartkart-backend/pkg/logger"
	"github.com/smartkart-ai/smartkart-backend/pkg/metrics"
)

const weightConsumer = "weight-engine"

type weightEngine interface {
	OnWeightUpdate(ctx context.Context, evt engine.WeightUpdateEvent) (*engine.WeightState, error)
}

// WeightConsumer feeds load cell readings into the weight tracker.
type WeightConsumer struct {
	engine       weightEngine
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
	metrics      *metrics.EngineMetrics
}

// NewWeightConsumer builds the weight update consumer.
func NewWeightConsumer(eng weightEngine, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger, m *metrics.EngineMetrics) (*WeightConsumer, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("weight subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &WeightConsumer{
		engine:       eng,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
		metrics:      m,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *WeightConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			c.metrics.IncRedelivery(weightConsumer)
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *WeightConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"consumer":   weightConsumer,
	})

	var envelope events.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if envelope.EventID == uuid.Nil {
		c.logg.Error(logCtx, "envelope missing event id", nil)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, weightConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var evt engine.WeightUpdateEvent
	if err := json.Unmarshal(envelope.Data, &evt); err != nil {
		c.logg.Error(logCtx, "failed to parse weight payload", err)
		return processResult{ack: true}
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = envelope.OccurredAt
	}

	state, err := c.engine.OnWeightUpdate(ctx, evt)
	if err != nil {
		// Shutdown can abort the update after the marker was written; release
		// it so the redelivered event is not treated as a duplicate.
		if ctx.Err() != nil {
			if delErr := c.idempotency.Delete(context.WithoutCancel(ctx), weightConsumer, envelope.EventID); delErr != nil {
				c.logg.Error(logCtx, "failed to release idempotency marker", delErr)
			}
			return processResult{nack: true}
		}
		appErr := pkgerrors.As(err)
		switch {
		case appErr != nil && appErr.Code() == pkgerrors.CodeValidation:
			c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "malformed weight update dropped")
		case appErr != nil && appErr.Code() == pkgerrors.CodeNotFound:
			c.logg.Warn(c.logg.WithField(logCtx, "cart_id", evt.CartID), "weight update for unknown cart dropped")
		default:
			c.logg.Error(logCtx, "weight update dropped on store failure", err)
		}
		return processResult{ack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"cart_id":     state.CartID,
		"measured":    state.Measured,
		"expected":    state.Expected,
		"discrepancy": state.Discrepancy,
	}), "weight reading applied")
	return processResult{ack: true}
}
