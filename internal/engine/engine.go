package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/smartkart-ai/smartkart-backend/pkg/config"
	"github.com/smartkart-ai/smartkart-backend/pkg/db/models"
	"github.com/smartkart-ai/smartkart-backend/pkg/enums"
	pkgerrors "github.com/smartkart-ai/smartkart-backend/pkg/errors"
	"github.com/smartkart-ai/smartkart-backend/pkg/logger"
	"github.com/smartkart-ai/smartkart-backend/pkg/metrics"
)

// weightEpsilon absorbs float representation error so a delta exactly at the
// tolerance is accepted.
const weightEpsilon = 1e-9

// Params collects the engine's dependencies.
type Params struct {
	Store   CartStore
	Catalog Catalog
	Emitter Emitter
	Config  config.EngineConfig
	Logger  *logger.Logger
	Metrics *metrics.EngineMetrics
	Now     func() time.Time
}

// Engine reconciles tag scan and weight events into cart mutations. All
// processing for a given cart is serialized; carts are independent.
type Engine struct {
	store    CartStore
	catalog  Catalog
	emitter  Emitter
	cooldown *Cooldown
	weights  *WeightTracker
	locks    *cartLocks
	cfg      config.EngineConfig
	logg     *logger.Logger
	metrics  *metrics.EngineMetrics
	now      func() time.Time
}

// New wires a reconciliation engine from its dependencies.
func New(params Params) (*Engine, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}

	cooldown, err := NewCooldown(
		params.Config.CooldownWindow,
		params.Config.CooldownCapacity,
		params.Config.CooldownPurgeEvery,
		params.Metrics.AddCooldownEvictions,
	)
	if err != nil {
		return nil, err
	}

	weights, err := NewWeightTracker(params.Store, params.Config.DiscrepancyTolerance)
	if err != nil {
		return nil, err
	}

	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		store:    params.Store,
		catalog:  params.Catalog,
		emitter:  params.Emitter,
		cooldown: cooldown,
		weights:  weights,
		locks:    newCartLocks(),
		cfg:      params.Config,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// OnTagScan resolves one RFID read into a terminal outcome. A non-nil error
// means the decision could not be made at all (malformed event or store
// failure); every decided scan returns a result with a valid Outcome.
func (e *Engine) OnTagScan(ctx context.Context, evt TagScanEvent) (*ScanResult, error) {
	if evt.CartID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cartId is required")
	}
	if evt.TagID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tagId is required")
	}

	now := evt.Timestamp
	if now.IsZero() {
		now = e.now()
	}
	started := e.now()

	ctx = e.logg.WithCartID(ctx, evt.CartID)
	ctx = e.logg.WithTagID(ctx, evt.TagID)

	if !e.cooldown.Admit(evt.CartID, evt.TagID, now) {
		result := &ScanResult{Outcome: OutcomeSuppressed}
		e.observeScan(result.Outcome, started)
		return result, nil
	}

	unlock := e.locks.acquire(evt.CartID)
	defer unlock()

	result, err := e.decide(ctx, evt, now)
	if err != nil {
		return nil, err
	}

	e.observeScan(result.Outcome, started)
	e.emit(ctx, evt, result, now)
	return result, nil
}

// decide runs steps 2-7 of the reconciliation ladder under the cart lock.
func (e *Engine) decide(ctx context.Context, evt TagScanEvent, now time.Time) (*ScanResult, error) {
	cart, err := e.store.FindByCartID(ctx, evt.CartID)
	if err != nil {
		if isNotFound(err) {
			return &ScanResult{Outcome: OutcomeCartNotFound}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	product, err := e.catalog.ByRFIDTag(ctx, evt.TagID)
	if err != nil {
		if isNotFound(err) {
			return &ScanResult{Outcome: OutcomeUnknownTag, Cart: cart}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve tag")
	}

	measured := cart.MeasuredWeight

	if cart.FindItem(product.ProductID) != nil {
		return e.decideRemoval(ctx, cart, product, measured)
	}
	return e.decideAddition(ctx, cart, product, measured)
}

// decideRemoval handles the toggle branch: a repeat scan of a tag already in
// the cart is removal intent, accepted only when the scale corroborates it.
func (e *Engine) decideRemoval(ctx context.Context, cart *models.Cart, product *models.Product, measured float64) (*ScanResult, error) {
	expected := ExpectedAfter(cart.TotalWeight, -product.Weight)
	diff := math.Abs(measured - expected)

	result := &ScanResult{
		Cart:       cart,
		Product:    product,
		Action:     enums.CartActionRemove,
		Measured:   measured,
		Expected:   expected,
		Difference: diff,
	}

	if !e.withinActionTolerance(diff) {
		result.Outcome = OutcomeIgnoredRemoval
		return result, nil
	}

	cart.RemoveItem(product.ProductID)
	cart.RecomputeTotals()
	if err := e.store.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart removal")
	}

	result.Outcome = OutcomeRemoved
	return result, nil
}

func (e *Engine) decideAddition(ctx context.Context, cart *models.Cart, product *models.Product, measured float64) (*ScanResult, error) {
	expected := ExpectedAfter(cart.TotalWeight, product.Weight)
	diff := math.Abs(measured - expected)

	result := &ScanResult{
		Cart:       cart,
		Product:    product,
		Action:     enums.CartActionAdd,
		Measured:   measured,
		Expected:   expected,
		Difference: diff,
	}

	if !e.withinActionTolerance(diff) {
		result.Outcome = OutcomeWeightMismatch
		return result, nil
	}

	cart.Items = append(cart.Items, models.CartLineItem{
		CartRef:    cart.ID,
		ProductID:  product.ProductID,
		Name:       product.Name,
		Price:      product.Price,
		Weight:     product.Weight,
		Quantity:   1,
		ExpiryDate: product.ExpiryDate,
		Image:      product.Image,
	})
	cart.RecomputeTotals()
	if err := e.store.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart addition")
	}

	result.Outcome = OutcomeAdded
	return result, nil
}

// emit maps a decided outcome to its observer notification. Suppressed,
// ignored removals and cart-not-found produce nothing; the latter is replied
// to the originating connection by the transport layer.
func (e *Engine) emit(ctx context.Context, evt TagScanEvent, result *ScanResult, now time.Time) {
	switch result.Outcome {
	case OutcomeSuppressed, OutcomeCartNotFound, OutcomeIgnoredRemoval:
		return
	case OutcomeUnknownTag:
		e.emitter.UnknownTag(ctx, evt.CartID, evt.TagID, now)
	case OutcomeWeightMismatch:
		e.emitter.WeightMismatch(ctx, Mismatch{
			CartID:      evt.CartID,
			ProductName: result.Product.Name,
			Action:      enums.CartActionAdd,
			Measured:    result.Measured,
			Expected:    result.Expected,
			Difference:  result.Difference,
			At:          now,
		})
	case OutcomeAdded, OutcomeRemoved:
		e.emitter.CartUpdated(ctx, result.Cart, result.Action, result.Product.Name)
	default:
		e.logg.Error(ctx, "dropping notification", fmt.Errorf("unrecognized outcome %q", result.Outcome))
	}
}

// OnWeightUpdate applies a load cell reading under the cart's lock so the
// expected weight read stays consistent with concurrent line-item mutations.
func (e *Engine) OnWeightUpdate(ctx context.Context, evt WeightUpdateEvent) (*WeightState, error) {
	if evt.CartID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cartId is required")
	}
	if evt.MeasuredWeight < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "measuredWeight must be non-negative")
	}

	now := evt.Timestamp
	if now.IsZero() {
		now = e.now()
	}

	ctx = e.logg.WithCartID(ctx, evt.CartID)

	unlock := e.locks.acquire(evt.CartID)
	defer unlock()

	state, err := e.weights.Update(ctx, evt.CartID, evt.MeasuredWeight, now)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist weight state")
	}

	e.metrics.IncWeightUpdate()
	e.emitter.WeightUpdated(ctx, *state)
	return state, nil
}

func (e *Engine) withinActionTolerance(diff float64) bool {
	return diff <= e.cfg.ActionTolerance+weightEpsilon
}

func (e *Engine) observeScan(outcome Outcome, started time.Time) {
	e.metrics.ObserveScan(outcome.String(), e.now().Sub(started))
}

func isNotFound(err error) bool {
	appErr := pkgerrors.As(err)
	return appErr != nil && appErr.Code() == pkgerrors.CodeNotFound
}
