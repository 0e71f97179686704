package main

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
	"github.com/rs/cors"

	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/database"
	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/middleware"
	"github.com/iliyamo/tour-booking/internal/queue"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/router"
	"github.com/iliyamo/tour-booking/internal/service"
	"github.com/iliyamo/tour-booking/internal/storage"
)

func main() {
	config.LoadDotenv()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: response cache off, local rate limiter in use")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tours := repository.NewTourRepo(db)
	ratings := repository.NewRatingRepo(db)
	bookingsRepo := repository.NewBookingRepo(db)
	feedbacks := repository.NewFeedbackRepo(db)
	items := repository.NewCatalogRepo(db)
	assets := storage.NewLocal(cfg.UploadDir, cfg.MediaURL)

	bookings := &service.Bookings{Bookings: bookingsRepo, Tours: tours}
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL)
		defer pub.Close()
		bookings.Events = pub
	}
	accounts := &service.Accounts{
		Users:          users,
		Tokens:         repository.NewTokenRepo(db),
		Assets:         assets,
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	}
	catalog := &service.Catalog{Tours: tours, Ratings: ratings, Feedbacks: feedbacks, Items: items}
	favorites := &service.Favorites{Favorites: repository.NewFavoriteRepo(db), Tours: tours}
	authoring := &service.Authoring{Tours: tours, Ratings: ratings, Items: items, Assets: assets}
	admin := &service.Admin{Users: users, Tours: tours, Bookings: bookingsRepo, Feedbacks: feedbacks, Items: items, Assets: assets}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				log.Printf("%s %s %d %s err=%v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			log.Printf("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	e.Static(cfg.MediaURL, cfg.UploadDir)

	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(accounts, assets),
		Catalog:   handler.NewCatalogHandler(catalog, assets),
		Profile:   handler.NewProfileHandler(accounts, bookings, favorites, assets),
		Authoring: handler.NewAuthoringHandler(authoring, bookings, assets),
		Admin:     handler.NewAdminHandler(admin, assets),
	}, cfg.JWTSecret, users)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}).Handler(e),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("listening on %s (env=%s)", srv.Addr, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
