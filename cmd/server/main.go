package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/database"
	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/metrics"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/repository/memory"
	"github.com/iliyamo/bus-seat-reservation/internal/router"
	"github.com/iliyamo/bus-seat-reservation/internal/scheduler"
	"github.com/iliyamo/bus-seat-reservation/internal/service"
)

func main() {
	logger := log.New("server")
	if err := godotenv.Load(); err != nil {
		logger.Infof("no .env file loaded: %v", err)
	}
	cfg := config.Load()
	if cfg.Env == "dev" {
		logger.SetLevel(log.DEBUG)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Inventory backend
	var (
		store    booking.Store
		topology booking.RouteTopologyProvider
		settings config.SettingsStore
		db       *sql.DB
	)
	switch cfg.Store {
	case config.StoreMemory:
		mem := memory.New()
		seedDemo(mem)
		store, topology = mem, mem
		logger.Warn("using in-memory inventory; data is lost on restart")
	default:
		var err error
		db, err = database.Open(ctx, database.Options{
			User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		})
		if err != nil {
			logger.Fatalf("db open: %v", err)
		}
		defer db.Close()
		if cfg.Migrate {
			if err := database.Migrate(ctx, db); err != nil {
				logger.Fatalf("db migrate: %v", err)
			}
		}
		repo := repository.NewSettingsRepo(db)
		if err := repo.SeedDefaults(ctx, cfg.SettingDefaults()); err != nil {
			logger.Fatalf("seed settings: %v", err)
		}
		store, topology, settings = repository.NewInventory(db), repository.NewRouteRepo(db), repo
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting, response cache and settings cache disabled")
	} else {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hooks := booking.Hooks{Metrics: metrics.New(reg), Log: log.New("booking")}

	if cfg.AMQPURL != "" {
		pub := service.NewPublisher(cfg.AMQPURL)
		defer pub.Close()
		hooks.Publisher = pub
	} else {
		logger.Warn("RABBITMQ_URL not set; domain events are not published")
	}

	engine := booking.New(booking.Deps{
		Store:    store,
		Topology: topology,
		Config:   config.NewSettings(settings, rdb, cfg.SettingsCacheTTL, cfg.SettingDefaults()),
		Hooks:    hooks,
	})

	jobs := scheduler.New(log.New("scheduler"))
	jobs.Every("sweep-expired-holds", cfg.SweepInterval, engine.Holds.SweepExpired)
	jobs.Every("purge-expired-holds", cfg.PurgeInterval, engine.Holds.PurgeExpired)
	jobs.Start(ctx)

	if cfg.RunConsumer && cfg.AMQPURL != "" {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.EventLogDir)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("consumer stopped: %v", err)
			}
		}()
	}

	deps := router.Deps{
		Booking:    handler.NewBookingHandler(engine),
		Trips:      handler.NewTripHandler(engine.Capacity),
		Topology:   handler.NewTopologyHandler(engine.Topology),
		Metrics:    metrics.Handler(reg),
		JWTSecret:  cfg.JWTSecret,
		Redis:      rdb,
		ReadLimit:  config.LoadRateLimitConfig(),
		WriteLimit: config.LoadWriteRateLimitConfig(),
		Cache:      config.LoadCacheConfig(),
	}
	if db != nil {
		deps.DB = db
	}
	e := router.New(deps)
	e.Logger = log.New("echo")
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())

	go func() {
		addr := ":" + cfg.Port
		logger.Infof("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.Store)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	jobs.Wait()
}

// seedDemo fills the in-memory store with one route, bus and trip so the
// API can be exercised without MySQL.
func seedDemo(s *memory.Store) {
	route, _ := s.AddRoute("Tehran - Rasht", "Tehran", "Karaj", "Qazvin", "Rudbar", "Rasht")
	seats := make([]string, 0, 40)
	for row := 1; row <= 10; row++ {
		for _, col := range []string{"A", "B", "C", "D"} {
			seats = append(seats, fmtSeat(row, col))
		}
	}
	bus := s.AddBus("DEMO-1", len(seats), seats...)
	now := time.Now().UTC()
	s.PutTrip(model.Trip{
		BusID:              bus.ID,
		RouteID:            route.ID,
		Status:             model.TripScheduled,
		OverbookingPercent: 5,
		Capacity:           bus.Capacity,
		DepartsAt:          now.Add(24 * time.Hour),
		ArrivesAt:          now.Add(29 * time.Hour),
		CreatedAt:          now,
		UpdatedAt:          now,
	})
}

func fmtSeat(row int, col string) string {
	return strconv.Itoa(row) + col
}
