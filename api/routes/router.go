package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valcrest-online/valcrest-backend/api/controllers"
	"github.com/valcrest-online/valcrest-backend/api/middleware"
	achievementsvc "github.com/valcrest-online/valcrest-backend/internal/achievements"
	ledgersvc "github.com/valcrest-online/valcrest-backend/internal/ledger"
	ordersvc "github.com/valcrest-online/valcrest-backend/internal/orders"
	paymentsvc "github.com/valcrest-online/valcrest-backend/internal/payments"
	stocksvc "github.com/valcrest-online/valcrest-backend/internal/stock"
	votesvc "github.com/valcrest-online/valcrest-backend/internal/votes"
	wheelsvc "github.com/valcrest-online/valcrest-backend/internal/wheel"
	pkgauth "github.com/valcrest-online/valcrest-backend/pkg/auth"
	"github.com/valcrest-online/valcrest-backend/pkg/config"
	"github.com/valcrest-online/valcrest-backend/pkg/db"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
	pkgredis "github.com/valcrest-online/valcrest-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Cfg      *config.Config
	Logg     *logger.Logger
	DB       db.Pinger
	Redis    *pkgredis.Client
	Sessions pkgauth.SessionChecker
	Registry prometheus.Gatherer

	Orders       ordersvc.Service
	Payments     paymentsvc.Service
	Stock        stocksvc.Service
	Ledger       ledgersvc.Service
	Votes        votesvc.Service
	Achievements achievementsvc.Service
	Wheel        wheelsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Cfg
	logg := deps.Logg

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/bundles", controllers.ListBundles(deps.Stock, logg))
		r.Get("/achievements", controllers.AchievementCatalog(deps.Achievements, logg))
		r.Post("/orders/cancel", controllers.CancelOrder(deps.Orders, logg))
		r.Post("/orders/callback", controllers.ProviderCallback(deps.Orders, deps.Payments, cfg.GameAPI.CallbackSecret, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Post("/orders", controllers.CreateOrder(deps.Orders, logg))

		r.Route("/votes/sites", func(r chi.Router) {
			r.Get("/", controllers.ListVoteSites(deps.Votes, logg))
			r.Post("/{siteID}", controllers.SubmitVote(deps.Votes, logg))
		})

		r.Route("/achievements", func(r chi.Router) {
			r.Get("/progress", controllers.AchievementProgress(deps.Achievements, logg))
			r.Post("/check", controllers.CheckAchievements(deps.Achievements, logg))
			r.Post("/{achievementID}/claim", controllers.ClaimAchievement(deps.Achievements, logg))
		})

		r.Route("/wheel", func(r chi.Router) {
			r.Get("/", controllers.WheelStatus(deps.Wheel, logg))
			r.Post("/spin", controllers.SpinWheel(deps.Wheel, logg))
		})

		r.Get("/rewards/history", controllers.RewardHistory(deps.Ledger, logg))
	})

	return r
}
