package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calebmonroy/storefront-backend/api/controllers"
	"github.com/calebmonroy/storefront-backend/api/middleware"
	"github.com/calebmonroy/storefront-backend/internal/abandoned"
	"github.com/calebmonroy/storefront-backend/internal/cart"
	"github.com/calebmonroy/storefront-backend/internal/notifications"
	"github.com/calebmonroy/storefront-backend/pkg/config"
	"github.com/calebmonroy/storefront-backend/pkg/db"
	"github.com/calebmonroy/storefront-backend/pkg/enums"
	"github.com/calebmonroy/storefront-backend/pkg/logger"
	"github.com/calebmonroy/storefront-backend/pkg/redis"
)

// NewRouter wires every HTTP route for the storefront API. The metrics
// gatherer and redis client may be nil; the matching surfaces are then
// disabled rather than failing at startup.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	settingsService abandoned.SettingsService,
	reconcileService abandoned.ReconcileService,
	cartService cart.Service,
	notificationsService notifications.Service,
) http.Handler {
	var redisP redis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Storefronts read the advertised discount policy without a session.
	r.Get("/api/v1/abandoned-cart-settings", controllers.ListAbandonedCartSettings(settingsService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/admin/abandoned-cart-settings", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
			r.Get("/", controllers.ListAbandonedCartSettings(settingsService, logg))
			r.Post("/", controllers.CreateAbandonedCartSetting(settingsService, logg))
			r.Patch("/{id}", controllers.UpdateAbandonedCartSetting(settingsService, logg))
			r.Delete("/{id}", controllers.DeleteAbandonedCartSetting(settingsService, logg))
		})

		r.Route("/abandoned", func(r chi.Router) {
			r.Get("/get-discount", controllers.GetAbandonedCartDiscount(reconcileService, logg))
			r.Post("/apply-discount", controllers.ApplyAbandonedCartDiscount(reconcileService, logg))
			r.Get("/items", controllers.GetUserAbandonedItems(reconcileService, logg))
		})

		r.Get("/cart", controllers.GetCart(cartService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{id}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
