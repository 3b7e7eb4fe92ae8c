package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smartkart-ai/smartkart-backend/api/controllers"
	"github.com/smartkart-ai/smartkart-backend/api/middleware"
	"github.com/smartkart-ai/smartkart-backend/internal/carts"
	"github.com/smartkart-ai/smartkart-backend/internal/catalog"
	"github.com/smartkart-ai/smartkart-backend/internal/engine"
	"github.com/smartkart-ai/smartkart-backend/internal/recentscans"
	"github.com/smartkart-ai/smartkart-backend/pkg/config"
	"github.com/smartkart-ai/smartkart-backend/pkg/logger"
)

type reconciler interface {
	OnTagScan(ctx context.Context, evt engine.TagScanEvent) (*engine.ScanResult, error)
	OnWeightUpdate(ctx context.Context, evt engine.WeightUpdateEvent) (*engine.WeightState, error)
}

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         controllers.Pinger
	Redis      controllers.Pinger
	PubSub     controllers.Pinger
	Carts      carts.Service
	Catalog    catalog.Service
	Engine     reconciler
	RecentFeed *recentscans.Feed
	Registry   *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":     deps.DB,
			"redis":  deps.Redis,
			"pubsub": deps.PubSub,
		}))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/carts", func(r chi.Router) {
			r.Post("/", controllers.CartCreate(deps.Carts, logg))
			r.Get("/", controllers.CartList(deps.Carts, logg))
			r.Get("/{cartId}", controllers.CartFetch(deps.Carts, logg))
			r.Delete("/{cartId}", controllers.CartDelete(deps.Carts, logg))
			r.Post("/{cartId}/claim", controllers.CartClaim(deps.Carts, logg))
			r.Post("/{cartId}/reset", controllers.CartReset(deps.Carts, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(deps.Catalog, logg))
			r.Get("/", controllers.ProductList(deps.Catalog, logg))
			r.Get("/{productId}", controllers.ProductFetch(deps.Catalog, logg))
			r.Post("/{productId}/tag", controllers.ProductAssignTag(deps.Catalog, logg))
		})

		r.Route("/rfid", func(r chi.Router) {
			r.Post("/test-tag", controllers.RFIDTestTag(deps.Engine, deps.RecentFeed, logg))
			r.Post("/weight", controllers.RFIDWeight(deps.Engine, logg))
			r.Get("/recent-tags", controllers.RFIDRecentTags(deps.RecentFeed, logg))
			r.Get("/status", controllers.RFIDStatus(deps.RecentFeed, logg))
		})
	})

	return r
}
