package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/smartkart-ai/smartkart-backend/internal/engine"
	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	"github.com/smartkart-ai/smartkart-backend/pkg/enums"
	"github.com/smartkart-ai/smartkart-backend/pkg/events"
	"github.com/smartkart-ai/smartkart-backend/pkg/logger"
	"github.com/smartkart-ai/smartkart-backend/pkg/metrics"
)

const defaultPublishTimeout = 15 * time.Second

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

// Emitter turns engine outcomes into observer-visible events on the cart
// events topic. Publishing is best-effort: the cart state already committed is
// authoritative, so failures are logged and counted, never propagated.
type Emitter struct {
	pub     publisher
	logg    *logger.Logger
	metrics *metrics.EngineMetrics
	timeout time.Duration
}

// NewEmitter builds an emitter over the narrow publisher surface.
func NewEmitter(pub publisher, logg *logger.Logger, m *metrics.EngineMetrics) (*Emitter, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Emitter{
		pub:     pub,
		logg:    logg,
		metrics: m,
		timeout: defaultPublishTimeout,
	}, nil
}

// WrapPublisher adapts a Pub/Sub publisher handle to the emitter's surface.
func WrapPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type cartUpdatedPayload struct {
	*models.Cart
	Action          enums.CartAction `json:"action"`
	AffectedProduct string           `json:"affectedProduct"`
}

type unknownTagPayload struct {
	CartID    string    `json:"cartId"`
	TagID     string    `json:"tagId"`
	Timestamp time.Time `json:"timestamp"`
}

// CartUpdated broadcasts the new cart state after a committed mutation.
func (e *Emitter) CartUpdated(ctx context.Context, cart *models.Cart, action enums.CartAction, productName string) {
	e.publish(ctx, enums.EventCartUpdated, cartUpdatedPayload{
		Cart:            cart,
		Action:          action,
		AffectedProduct: productName,
	}, time.Time{})
}

// UnknownTag broadcasts a scan that resolved to no catalog product.
func (e *Emitter) UnknownTag(ctx context.Context, cartID, tagID string, at time.Time) {
	e.publish(ctx, enums.EventUnknownTag, unknownTagPayload{
		CartID:    cartID,
		TagID:     tagID,
		Timestamp: at,
	}, at)
}

// WeightMismatch broadcasts a refused addition with its weight evidence.
func (e *Emitter) WeightMismatch(ctx context.Context, m engine.Mismatch) {
	e.publish(ctx, enums.EventWeightMismatch, m, m.At)
}

// WeightUpdated broadcasts the persisted weight snapshot.
func (e *Emitter) WeightUpdated(ctx context.Context, state engine.WeightState) {
	e.publish(ctx, enums.EventWeightUpdate, state, state.At)
}

func (e *Emitter) publish(ctx context.Context, eventType enums.EventType, payload any, occurredAt time.Time) {
	envelope, err := events.NewEnvelope(occurredAt, payload)
	if err != nil {
		e.fail(ctx, eventType, err, "encoding broadcast payload")
		return
	}
	data, err := envelope.Marshal()
	if err != nil {
		e.fail(ctx, eventType, err, "encoding broadcast envelope")
		return
	}

	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":   envelope.EventID.String(),
			"event_type": eventType.String(),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result := e.pub.Publish(publishCtx, msg)
	if result == nil {
		e.fail(ctx, eventType, errors.New("publisher returned nil result"), "publishing broadcast")
		return
	}
	if _, err := result.Get(publishCtx); err != nil {
		e.fail(ctx, eventType, err, "publishing broadcast")
	}
}

func (e *Emitter) fail(ctx context.Context, eventType enums.EventType, err error, msg string) {
	e.metrics.IncBroadcastFailure(eventType.String())
	e.logg.Error(e.logg.WithField(ctx, "event_type", eventType.String()), msg, err)
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
