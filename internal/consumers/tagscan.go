package consumers

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/smartkart-ai/smartkart-backend/internal/engine"
	"github.com/smartkart-ai/smartkart-backend/internal/recentscans"
	pkgerrors "github.com/smartkart-ai/smartkart-backend/pkg/errors"
	"github.com/smartkart-ai/smartkart-backend/pkg/events"
	"github.com/smartkart-ai/smartkart-backend/pkg/events/idempotency"
	"github.com/smartkart-ai/smartkart-backend/pkg/logger"
	"github.com/smartkart-ai/smartkart-backend/pkg/metrics"
)

const tagScanConsumer = "tag-scan-engine"

type scanEngine interface {
	OnTagScan(ctx context.Context, evt engine.TagScanEvent) (*engine.ScanResult, error)
}

type scanRecorder interface {
	Record(ctx context.Context, entry recentscans.Entry) error
}

// TagScanConsumer feeds normalized RFID reads into the reconciliation engine.
type TagScanConsumer struct {
	engine       scanEngine
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	recents      scanRecorder
	logg         *logger.Logger
	metrics      *metrics.EngineMetrics
}

// NewTagScanConsumer builds the tag scan consumer. The recent scans recorder
// is optional; reads are fed into it best-effort for the monitor page.
func NewTagScanConsumer(eng scanEngine, subscription *pubsub.Subscriber, manager *idempotency.Manager, recents scanRecorder, logg *logger.Logger, m *metrics.EngineMetrics) (*TagScanConsumer, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("tag scan subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &TagScanConsumer{
		engine:       eng,
		subscription: subscription,
		idempotency:  manager,
		recents:      recents,
		logg:         logg,
		metrics:      m,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *TagScanConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			c.metrics.IncRedelivery(tagScanConsumer)
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *TagScanConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"consumer":   tagScanConsumer,
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, tagScanConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var evt engine.TagScanEvent
	if err := json.Unmarshal(envelope.Data, &evt); err != nil {
		c.logg.Error(logCtx, "failed to parse tag scan payload", err)
		return processResult{ack: true}
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = envelope.OccurredAt
	}

	if c.recents != nil {
		entry := recentscans.Entry{EPC: evt.TagID, CartID: evt.CartID, Timestamp: evt.Timestamp}
		if err := c.recents.Record(ctx, entry); err != nil {
			c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "recent scan feed write failed")
		}
	}

	result, err := c.engine.OnTagScan(ctx, evt)
	if err != nil {
		// Shutdown can abort the scan after the marker was written; release
		// it so the redelivered event is not treated as a duplicate.
		if ctx.Err() != nil {
			if delErr := c.idempotency.Delete(context.WithoutCancel(ctx), tagScanConsumer, envelope.EventID); delErr != nil {
				c.logg.Error(logCtx, "failed to release idempotency marker", delErr)
			}
			return processResult{nack: true}
		}
		// A malformed event is rejected outright; a store failure drops the
		// event rather than retrying a stale sensor reading.
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeValidation {
			c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "malformed tag scan dropped")
		} else {
			c.logg.Error(logCtx, "tag scan dropped on store failure", err)
		}
		return processResult{ack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"cart_id": evt.CartID,
		"tag_id":  evt.TagID,
		"outcome": result.Outcome.String(),
	}), "tag scan reconciled")
	return processResult{ack: true}
}
