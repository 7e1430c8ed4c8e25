package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vocalize-ai/vocalize-backend/api/controllers"
	"github.com/vocalize-ai/vocalize-backend/api/middleware"
	"github.com/vocalize-ai/vocalize-backend/internal/admin"
	authsvc "github.com/vocalize-ai/vocalize-backend/internal/auth"
	"github.com/vocalize-ai/vocalize-backend/internal/dashboard"
	"github.com/vocalize-ai/vocalize-backend/internal/gate"
	"github.com/vocalize-ai/vocalize-backend/internal/ledger"
	"github.com/vocalize-ai/vocalize-backend/internal/plans"
	subscriptionsvc "github.com/vocalize-ai/vocalize-backend/internal/subscriptions"
	"github.com/vocalize-ai/vocalize-backend/internal/usage"
	"github.com/vocalize-ai/vocalize-backend/internal/voice"
	"github.com/vocalize-ai/vocalize-backend/pkg/config"
	"github.com/vocalize-ai/vocalize-backend/pkg/db"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
	"github.com/vocalize-ai/vocalize-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            *db.Client
	Redis         *redis.Client
	Auth          authsvc.Service
	Plans         plans.Service
	Dashboard     dashboard.Service
	Subscriptions subscriptionsvc.Service
	Usage         usage.Service
	Voice         voice.Service
	Ledger        *ledger.Ledger
	Gate          *gate.Registry
	Admin         admin.Service
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
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/plans", controllers.PlansList(deps.Plans, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.Login(deps.Auth, logg))
		r.Post("/register", controllers.Register(deps.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/user/dashboard", controllers.Dashboard(deps.Dashboard, logg))
		r.Get("/gate/check", controllers.GateCheck(deps.Gate, logg))

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", controllers.SubscriptionCreate(deps.Subscriptions, logg))
			r.Get("/", controllers.SubscriptionCurrent(deps.Subscriptions, logg))
			r.Post("/cancel", controllers.SubscriptionCancel(deps.Subscriptions, logg))
		})

		r.Route("/usage", func(r chi.Router) {
			r.Get("/", controllers.UsageBalance(deps.Usage, logg))
			r.Post("/consume", controllers.UsageConsume(deps.Usage, logg))
		})

		r.Route("/voice", func(r chi.Router) {
			r.Post("/generate", controllers.VoiceGenerate(deps.Voice, logg))
			r.Get("/history", controllers.VoiceHistory(deps.Voice, logg))
			r.Route("/clones", func(r chi.Router) {
				r.Post("/", controllers.VoiceCloneCreate(deps.Voice, logg))
				r.Get("/", controllers.VoiceCloneList(deps.Voice, logg))
				r.Delete("/{id}", controllers.VoiceCloneDelete(deps.Voice, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Get("/stats", controllers.AdminStats(deps.Admin, logg))
			r.Post("/assign-plan", controllers.AdminAssignPlan(deps.Admin, logg))
		})

		r.Route("/tokens", func(r chi.Router) {
			r.Post("/consume", controllers.TokensConsume(deps.Ledger, logg))
			r.Get("/info", controllers.TokensInfo(deps.Ledger, logg))
			r.Get("/eligibility", controllers.TokensEligibility(deps.Ledger, logg))
			r.Post("/subscriptions", controllers.TokensCreate(deps.Ledger, logg))
		})
	})

	return r
}
