// api/routes/router.go
package routes

import (
	"context"
	"net/http"
	"time"

	"expofloor/internal/booths"
	"expofloor/internal/broadcast"
	"expofloor/internal/notifications"
	"expofloor/internal/payments"
	"expofloor/internal/reservations"
	"expofloor/internal/shared/clock"
	"expofloor/internal/shared/config"
	"expofloor/internal/shared/database"
	"expofloor/pkg/cache"
	"expofloor/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB
	log    *logger.Logger

	clk          clock.Clock
	cacheService cache.Service
	store        *booths.StateStore
	boothRepo    booths.Repository
	hub          *broadcast.Hub
	producer     notifications.EventProducer
	gateway      payments.Gateway
	coordinator  *reservations.Coordinator
}

// NewRouter creates a new router instance and wires the reservation
// engine's shared components.
func NewRouter(cfg *config.Config, db *database.DB) (*Router, error) {
	log := logger.GetDefault()
	clk := clock.NewSystem()

	var cacheService cache.Service
	if db.Redis != nil {
		cacheService = cache.NewService(db.Redis)
	}

	boothRepo := booths.NewRepository(db.GetPostgreSQL())
	store := booths.NewStateStore(boothRepo, clk, log,
		booths.WithPersistRetry(cfg.Reservation.PersistRetries, cfg.Reservation.PersistBackoff))

	hub := broadcast.NewHub(log)

	var producer notifications.EventProducer = notifications.NoopProducer{}
	if cfg.Kafka.Enabled {
		producerConfig := notifications.DefaultKafkaProducerConfig()
		producerConfig.Brokers = cfg.Kafka.Brokers
		producerConfig.Topic = cfg.Kafka.Topic
		p, err := notifications.NewKafkaEventProducer(producerConfig, log)
		if err != nil {
			return nil, err
		}
		producer = p
	}

	gateway := payments.NewMockGateway()

	reservationRepo := reservations.NewRepository(db.GetPostgreSQL())
	coordinator := reservations.NewCoordinator(
		store, reservationRepo, hub, gateway, producer, cacheService, clk, log,
		reservations.CoordinatorConfig{
			HoldDuration:   cfg.Reservation.HoldDuration,
			MaxBundleSize:  cfg.Reservation.MaxBoothsPerBundle,
			IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		})

	return &Router{
		config:       cfg,
		db:           db,
		log:          log,
		clk:          clk,
		cacheService: cacheService,
		store:        store,
		boothRepo:    boothRepo,
		hub:          hub,
		producer:     producer,
		gateway:      gateway,
		coordinator:  coordinator,
	}, nil
}

// Bootstrap loads booth state, reconciles orphaned reservations, and
// starts the expiry sweeper. Must run before the server accepts traffic.
func (r *Router) Bootstrap(ctx context.Context) error {
	if err := r.store.Load(ctx); err != nil {
		return err
	}
	if err := r.coordinator.Reconcile(ctx); err != nil {
		return err
	}
	r.coordinator.Scheduler().Start()
	return nil
}

// Shutdown stops the expiry sweeper and closes the event producer.
func (r *Router) Shutdown() {
	r.coordinator.Scheduler().Stop()
	if err := r.producer.Close(); err != nil {
		r.log.Error("failed to close event producer", "error", err)
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupBoothRoutes(api)
		r.setupReservationRoutes(api)
		r.setupBroadcastRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "expofloor-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "expofloor-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "operational",
			"api_version":       r.config.APIVersion,
			"broadcast_dropped": r.hub.Dropped(),
			"timestamp":         time.Now(),
		})
	})
}

// setupBoothRoutes configures floor plan and booth routes
func (r *Router) setupBoothRoutes(rg *gin.RouterGroup) {
	boothController := booths.NewController(r.store, r.boothRepo, r.cacheService, r.config.Redis.SnapshotTTL)
	booths.SetupBoothRoutes(rg, boothController)
}

// setupReservationRoutes configures reservation lifecycle routes
func (r *Router) setupReservationRoutes(rg *gin.RouterGroup) {
	reservationController := reservations.NewController(r.coordinator)
	reservations.SetupReservationRoutes(rg, reservationController, r.config.Payment.WebhookSecret)
}

// setupBroadcastRoutes configures the live floor plan stream
func (r *Router) setupBroadcastRoutes(rg *gin.RouterGroup) {
	broadcastController := broadcast.NewController(r.hub, r.store, r.clk)
	broadcast.SetupBroadcastRoutes(rg, broadcastController)
}
