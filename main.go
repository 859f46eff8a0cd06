package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"orderportal/server/internal/api"
	"orderportal/server/internal/backend"
	"orderportal/server/internal/config"
	"orderportal/server/internal/database"
	"orderportal/server/internal/events"
	"orderportal/server/internal/services"
	"orderportal/server/internal/session"
	"orderportal/server/internal/utils"
)

func main() {
	// .env is optional; production reads the real environment
	if err := godotenv.Load(); err != nil {
		log.Printf("ℹ️ .env not found, using process environment")
	} else {
		log.Printf("✅ Environment loaded from .env")
	}

	cfg := config.Load()
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET is required")
	}
	log.Printf("📋 Backend: %s", cfg.BackendURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// PostgreSQL (activity log)
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		log.Printf("📋 DATABASE_URL: %s", maskURL(cfg.DatabaseURL))
		conn, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Printf("⚠️ PostgreSQL unavailable, activity log disabled: %v", err)
		} else if err := database.Migrate(conn); err != nil {
			log.Printf("⚠️ Migration failed, activity log disabled: %v", err)
			_ = database.ClosePostgres(conn)
		} else {
			db = conn
			defer database.ClosePostgres(db)
		}
	} else {
		log.Printf("⚠️ DATABASE_URL not set, activity log disabled")
	}

	// Redis (reference cache and cross-instance invalidation)
	var (
		refCache services.JSONCache
		pubsub   services.PubSub
	)
	if cfg.RedisURL != "" || len(cfg.RedisSentinelAddrs) > 0 {
		redisClient, err := database.ConnectRedis(cfg.RedisURL, cfg.RedisSentinelAddrs, cfg.RedisMasterName)
		if err != nil {
			log.Printf("⚠️ Redis unavailable, running without shared cache: %v", err)
		} else {
			defer database.CloseRedis(redisClient)
			redisUtil := utils.NewRedisClient(redisClient, "portal:")
			refCache = redisUtil
			pubsub = redisUtil
		}
	} else {
		log.Printf("⚠️ REDIS_URL not set, reference cache and invalidation are local")
	}

	// Kafka (order events)
	var publisher events.Publisher = events.NoopPublisher{}
	if brokers := events.ParseKafkaBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		transport := events.NewKafkaTransport(cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaCACert)
		publisher = events.NewKafkaPublisher(brokers, cfg.KafkaTopic, transport)
		log.Printf("📡 Kafka publisher: %s -> %s", strings.Join(brokers, ","), cfg.KafkaTopic)
	} else {
		log.Printf("⚠️ KAFKA_BROKERS not set, order events are not published")
	}
	defer publisher.Close()

	policy := backend.AuthPolicy{LoginPath: cfg.LoginPath, PublicPaths: cfg.PublicPaths}
	factory, err := backend.NewFactory(cfg.BackendURL,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithCSRFNames(cfg.CSRFCookieName, cfg.CSRFHeaderName),
		backend.WithInterceptors(backend.AuthRedirect(policy)),
	)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Printf("⚠️ Unknown TIME_ZONE %q, using local time: %v", cfg.TimeZone, err)
		loc = time.Local
	}

	hub := api.NewHub()
	go hub.Run(ctx)

	bus := services.NewInvalidationBus(pubsub)
	bus.SetBroadcaster(hub)
	bus.Start(ctx)

	activity := services.NewActivityService(db)
	notifier := services.NewOrderNotifier(publisher, activity, bus)
	defer notifier.Wait()
	grouper := services.NewGrouper(cfg.Locale)

	store := session.NewStore(session.Deps{
		Factory: factory,
		Bus:     bus,
		Workflow: services.WorkflowConfig{
			RequirePaymentType: cfg.RequirePaymentType,
			Grouper:            grouper,
			Notifier:           notifier,
		},
		OrderPageSize: cfg.OrderPageSize,
		MailPageSize:  cfg.MailPageSize,
	}, cfg.SessionTTL)
	store.StartJanitor(ctx, time.Minute)

	portal := api.NewPortal(api.PortalDeps{
		Config:   cfg,
		Policy:   policy,
		Store:    store,
		Signer:   session.NewSigner(cfg.SessionSecret, cfg.SessionTTL),
		Auth:     services.NewAuthService(cfg.AuthCheckTTL),
		Detail:   services.NewOrderDetailView(grouper, notifier),
		Export:   services.NewExportService(loc),
		Refs:     services.NewReferenceCache(refCache, cfg.ReferenceCacheTTL),
		Activity: activity,
		Hub:      hub,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestID(), api.RequestLogger())
	portal.Register(r)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logMemoryStats(store.Len())
			}
		}
	}()

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🚀 Order portal listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Shutdown: %v", err)
	}
}

// maskURL hides the credentials of a connection string
func maskURL(raw string) string {
	at := strings.Index(raw, "@")
	scheme := strings.Index(raw, "://")
	if at > 0 && scheme > 0 && scheme < at {
		return raw[:scheme+3] + "***@" + raw[at+1:]
	}
	return raw
}

func logMemoryStats(sessions int) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	heapAllocMB := float64(m.HeapAlloc) / 1024 / 1024
	log.Printf("💾 Memory Stats: HeapAlloc=%.2f MB, Sys=%.2f MB, GC=%d, Goroutines=%d, Sessions=%d",
		heapAllocMB, float64(m.Sys)/1024/1024, m.NumGC, runtime.NumGoroutine(), sessions)

	if heapAllocMB > 500 {
		log.Printf("⚠️ WARNING: High memory usage detected: %.2f MB", heapAllocMB)
	}
}
