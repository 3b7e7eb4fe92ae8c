package controllers

import (
	"context"
	"net/http"

	"github.com/smartkart-ai/smartkart-backend/api/responses"
	"github.com/smartkart-ai/smartkart-backend/api/validators"
	"github.com/smartkart-ai/smartkart-backend/internal/engine"
	"github.com/smartkart-ai/smartkart-backend/internal/recentscans"
	pkgerrors "github.com/smartkart-ai/smartkart-backend/pkg/errors"
	"github.com/smartkart-ai/smartkart-backend/pkg/logger"
)

type scanEngine interface {
	OnTagScan(ctx context.Context, evt engine.TagScanEvent) (*engine.ScanResult, error)
}

type weightEngine interface {
	OnWeightUpdate(ctx context.Context, evt engine.WeightUpdateEvent) (*engine.WeightState, error)
}

type recentFeed interface {
	Record(ctx context.Context, entry recentscans.Entry) error
	Recent(ctx context.Context) ([]recentscans.Entry, error)
	TotalScans(ctx context.Context) (int64, error)
}

type testTagRequest struct {
	CartID string `json:"cartId" validate:"required"`
	TagID  string `json:"tagId" validate:"required"`
}

type weightRequest struct {
	CartID         string  `json:"cartId" validate:"required"`
	MeasuredWeight float64 `json:"measuredWeight" validate:"gte=0"`
}

// RFIDTestTag pushes a synthetic tag read through the reconciliation engine,
// bypassing the broker. Used by installers to verify reader wiring.
func RFIDTestTag(eng scanEngine, feed recentFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req testTagRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if feed != nil {
			err := feed.Record(r.Context(), recentscans.Entry{EPC: req.TagID, CartID: req.CartID})
			if err != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "recent scan feed write failed")
			}
		}

		result, err := eng.OnTagScan(r.Context(), engine.TagScanEvent{CartID: req.CartID, TagID: req.TagID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch result.Outcome {
		case engine.OutcomeCartNotFound:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found"))
		case engine.OutcomeUnknownTag:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no product for tag"))
		case engine.OutcomeWeightMismatch:
			mismatch := pkgerrors.New(pkgerrors.CodeWeightMismatch, "measured weight does not corroborate the scan").
				WithDetails(map[string]any{
					"measuredWeight": result.Measured,
					"expectedWeight": result.Expected,
					"difference":     result.Difference,
				})
			responses.WriteError(r.Context(), logg, w, mismatch)
		case engine.OutcomeAdded, engine.OutcomeRemoved:
			responses.WriteSuccess(w, map[string]any{
				"outcome": result.Outcome.String(),
				"action":  result.Action,
				"cart":    result.Cart,
			})
		default:
			responses.WriteSuccess(w, map[string]any{"outcome": result.Outcome.String()})
		}
	}
}

// RFIDWeight applies a load cell reading, mirroring the broker path.
func RFIDWeight(eng weightEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req weightRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := eng.OnWeightUpdate(r.Context(), engine.WeightUpdateEvent{
			CartID:         req.CartID,
			MeasuredWeight: req.MeasuredWeight,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// RFIDRecentTags returns the recent tag read feed, newest first.
func RFIDRecentTags(feed recentFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := feed.Recent(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recent scan feed unavailable"))
			return
		}
		if entries == nil {
			entries = []recentscans.Entry{}
		}
		responses.WriteSuccess(w, entries)
	}
}

// RFIDStatus reports whether the ingest side is reachable.
func RFIDStatus(feed recentFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := feed.Recent(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recent scan feed unavailable"))
			return
		}
		total, err := feed.TotalScans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recent scan feed unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"status":      "listening",
			"recentReads": len(entries),
			"totalScans":  total,
		})
	}
}
