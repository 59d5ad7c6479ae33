package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"birdsbuddy/internal/logger"
	"birdsbuddy/internal/service"
)

const (
	defaultCommandRate  = 2.0
	defaultCommandBurst = 4
	defaultHistoryTTL   = 30 * time.Second
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger

	commandRate  rate.Limit
	commandBurst int
	historyTTL   time.Duration
	historyCache *cache.Cache
	metrics      http.Handler
}

// Option tunes a Handler.
type Option func(*Handler)

// WithCommandRate limits POST /commands per client IP.
func WithCommandRate(perSec float64, burst int) Option {
	return func(h *Handler) {
		h.commandRate = rate.Limit(perSec)
		h.commandBurst = burst
	}
}

// WithHistoryCache sets how long history responses are cached.
func WithHistoryCache(ttl time.Duration) Option {
	return func(h *Handler) { h.historyTTL = ttl }
}

// WithMetrics exposes m on GET /metrics.
func WithMetrics(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{
		services:     services,
		log:          log,
		commandRate:  defaultCommandRate,
		commandBurst: defaultCommandBurst,
		historyTTL:   defaultHistoryTTL,
	}
	for _, o := range opts {
		o(h)
	}
	h.historyCache = cache.New(h.historyTTL, 2*h.historyTTL)
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAPIRoutes(router)

	// Live updates over WebSocket on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/device/state", h.getState)
		api.POST("/commands/:kind", rateLimiter(h.commandRate, h.commandBurst), h.postCommand)
		h.registerLogRoutes(api)
		api.GET("/history", cacheResponses(h.historyCache, h.historyTTL), h.getHistory)
		h.registerPushRoutes(api)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
		logs.GET("/archive", h.getArchive)
	}
}

func (h *Handler) registerPushRoutes(api *gin.RouterGroup) {
	push := api.Group("/push")
	{
		push.GET("/vapid", h.getVAPIDKey)
		push.POST("/subscriptions", h.subscribePush)
		push.DELETE("/subscriptions", h.unsubscribePush)
	}
}
