package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/lodge-booking/internal/availability"
	"github.com/iliyamo/lodge-booking/internal/config"
	"github.com/iliyamo/lodge-booking/internal/database"
	"github.com/iliyamo/lodge-booking/internal/fixture"
	"github.com/iliyamo/lodge-booking/internal/handler"
	"github.com/iliyamo/lodge-booking/internal/hold"
	"github.com/iliyamo/lodge-booking/internal/metrics"
	"github.com/iliyamo/lodge-booking/internal/middleware"
	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/queue"
	"github.com/iliyamo/lodge-booking/internal/repository"
	"github.com/iliyamo/lodge-booking/internal/router"
	"github.com/iliyamo/lodge-booking/internal/service"
	"github.com/iliyamo/lodge-booking/internal/store"
	"github.com/iliyamo/lodge-booking/internal/store/memory"
)

const (
	eventBuffer      = 256
	eventSendTimeout = 5 * time.Second
)

func main() {
	if err := config.LoadDotenv(".env"); err != nil { // .env is optional
		log.Printf("warning: %v", err)
	}
	cfg, err := config.Load() // Load environment config
	if err != nil {
		log.Fatal(err)
	}
	l := log.New(os.Stdout, "", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore := openStore(ctx, cfg, l)
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var pub service.EventPublisher = queue.Discard{}
	flushed := make(chan struct{})
	if cfg.RabbitMQURL != "" {
		async := queue.NewAsync(queue.NewPublisher(cfg.RabbitMQURL, l), eventBuffer, eventSendTimeout, l)
		go func() {
			async.Run(ctx)
			close(flushed)
		}()
		pub = async
	} else {
		close(flushed)
	}

	rdb := config.NewRedisClient() // nil when Redis is disabled or unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	res := availability.NewResolver(st, time.Now)
	holds := hold.NewManager(st, res, m, l, time.Now)
	bookings := service.NewBookingService(st, pub, m, l, time.Now)
	blockages := service.NewBlockageService(st, l, time.Now)

	bh := handler.NewBookingHandler(bookings, l)
	hh := handler.NewHoldHandler(holds, l)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.AccessLog(l, m))

	router.RegisterRoutes(e, m.Gatherer())
	router.RegisterPublic(e, router.Public{
		Catalog:  handler.NewCatalogHandler(st, res, l),
		Holds:    hh,
		Bookings: bh,
		Session:  middleware.Session(),
		Limit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:    middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})
	router.RegisterAdmin(e, router.Admin{
		Bookings:  bh,
		Blockages: handler.NewBlockageHandler(blockages, l),
		Holds:     hh,
	}, cfg.JWTSecret)

	go holds.RunPurger(ctx, cfg.HoldPurgeInterval)

	addr := ":" + cfg.Port
	l.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	l.Printf("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		l.Printf("shutdown: %v", err)
	}
	select {
	case <-flushed:
	case <-sctx.Done():
		l.Printf("shutdown: booking events still queued")
	}
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg config.Config, l *log.Logger) (store.Store, func()) {
	rooms, prices := seedData(cfg, l)

	if cfg.StoreDriver == config.DriverMemory {
		l.Printf("using in-memory store; data is lost on restart")
		return memory.New(memory.Config{L: l, Rooms: rooms, Prices: prices}), func() {}
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal(err)
	}
	s := repository.New(db)
	if err := s.Seed(ctx, rooms, prices, cfg.ReseedPrices); err != nil {
		log.Fatal(err)
	}
	return s, func() { _ = db.Close() }
}

// seedData reads the room and price files.  A missing file falls back to
// the built-in sample lodge; a malformed one is fatal.
func seedData(cfg config.Config, l *log.Logger) ([]model.Room, model.PriceConfig) {
	rooms, err := config.LoadRooms(cfg.RoomsConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		l.Printf("warning: %s not found, using sample rooms", cfg.RoomsConfigPath)
		rooms, err = fixture.Rooms(), nil
	}
	if err != nil {
		log.Fatal(err)
	}

	prices, err := config.LoadPrices(cfg.PriceConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		l.Printf("warning: %s not found, using sample prices", cfg.PriceConfigPath)
		prices, err = fixture.Prices(), nil
	}
	if err != nil {
		log.Fatal(err)
	}
	return rooms, prices
}
