package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ircheck/internal/app/adapters/http/handlers"
	"ircheck/internal/app/adapters/http/middlewares"
	"ircheck/internal/app/infrastructure/config"
	"ircheck/pkg/logger"
)

// Router serves the operational surface of a long-running harness: a status
// page, Prometheus metrics and pprof. Metrics and pprof sit behind a bearer
// token checked against the configured bcrypt hash.
type Router struct {
	router      *gin.Engine
	handlers    *handlers.Handlers
	middlewares *middlewares.Middlewares

	log     logger.Logger
	manager *config.Manager
}

func NewRouter(log logger.Logger, manager *config.Manager) (*Router, error) {
	r := &Router{
		router:      gin.Default(),
		handlers:    handlers.New(log, manager),
		middlewares: middlewares.New(),
		log:         log,
		manager:     manager,
	}
	cfg := manager.Get()

	auth := r.middlewares.Auth(cfg.App.AuthTokenHash)

	pprofGroup := r.router.Group("/", auth)
	pprof.Register(pprofGroup)

	r.router.GET("/metrics", auth, gin.WrapH(promhttp.Handler()))
	r.router.GET("/", r.handlers.StatusHandler)

	return r, nil
}

func (r *Router) Run() error {
	cfg := r.manager.Get()
	return r.newServer(cfg.App.ListenAddr, r.router).ListenAndServe()
}

func (r *Router) newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}
