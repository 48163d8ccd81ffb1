package http

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/minievents/eventmgmt/internal/config"
	"github.com/minievents/eventmgmt/internal/http/handlers"
	"github.com/minievents/eventmgmt/internal/http/middlewares"
	"github.com/minievents/eventmgmt/internal/observability"
	"github.com/minievents/eventmgmt/internal/repo/postgres"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func NewRouter(cfg config.Config, pool *pgxpool.Pool, rdb *redis.Client, prom *observability.Prom, gatherer prometheus.Gatherer) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("eventmgmt-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware([]string{"http://localhost:3000"}))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	// readiness pings both stores
	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}
		}
		return nil
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.StaticFile("/docs/openapi.yaml", "./docs/openapi.yaml")

	// wire up repositories
	jobsRepo := postgres.NewJobsRepo(pool, prom)
	eventsRepo := postgres.NewEventsRepo(pool, prom)
	attendeesRepo := postgres.NewAttendeesRepo(pool, jobsRepo, prom)

	eventsHandler := handlers.NewEventsHandler(eventsRepo, cfg.DefaultTimezone)
	attendeesHandler := handlers.NewAttendeesHandler(attendeesRepo)

	// registration is the only write amplification point; keep it rate limited
	var counter middlewares.CounterStore
	if rdb != nil {
		counter = middlewares.NewRedisCounterStore(rdb)
	} else {
		counter = middlewares.NewMemoryCounterStore()
	}
	limiter := middlewares.NewRateLimiter(counter, cfg.RateLimit, cfg.RateLimitWindow)

	r.POST("/events", limiter.Middleware(middlewares.KeyByIP), eventsHandler.CreateEvent)
	r.GET("/events", eventsHandler.ListEvents)
	r.GET("/events/:id", eventsHandler.GetEventByID)
	r.POST("/events/:id/register", limiter.Middleware(middlewares.KeyByIP), attendeesHandler.Register)
	r.GET("/events/:id/attendees", attendeesHandler.ListForEvent)

	return r
}
