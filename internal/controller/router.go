package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pasarela/checkout/internal/config"
	"github.com/pasarela/checkout/internal/infrastructure/observability"
	customMW "github.com/pasarela/checkout/internal/middleware"
	"github.com/pasarela/checkout/internal/session"
)

type RouterDeps struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Sessions    *session.Manager
	Catalog     Catalog
	Gateway     Submitter
	Poller      ResultPoller
	Records     RecordStore
	Metrics     *observability.Metrics
	CORSConfig  config.CORSConfig
	Logger      zerolog.Logger
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	sessionH := NewSessionController(
		deps.Sessions, deps.Catalog, deps.Gateway, deps.Poller,
		deps.Records, deps.Metrics, deps.Logger,
	)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", sessionH.Products)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionH.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionH.Get)
				r.Post("/reset", sessionH.Reset)

				r.Post("/cart/items", sessionH.AddItem)
				r.Put("/cart/items/{productID}", sessionH.UpdateQuantity)
				r.Delete("/cart/items/{productID}", sessionH.RemoveItem)
				r.Delete("/cart", sessionH.ClearCart)

				r.Put("/forms", sessionH.SaveForms)
				r.Post("/step", sessionH.Step)
				r.Post("/try-again", sessionH.TryAgain)

				r.Post("/pay", sessionH.Pay)
				r.Post("/result", sessionH.Result)
			})
		})
	})

	return r
}
