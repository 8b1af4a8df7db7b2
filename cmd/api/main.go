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

	"parcel-tracking/internal/api"
	"parcel-tracking/internal/config"
	"parcel-tracking/internal/modules/locations"
	"parcel-tracking/internal/modules/parcels"
	"parcel-tracking/internal/modules/routing"
	"parcel-tracking/pkg/email"
	"parcel-tracking/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gommonlog "github.com/labstack/gommon/log"
)

func main() {
	// 1. --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(gommonlog.INFO)
	e.Validator = utils.GetValidator()

	// 2. --- Middleware ---
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	origins := []string{"http://localhost:5173"}
	if cfg.ClientOrigin != "" {
		origins = append(origins, cfg.ClientOrigin)
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// 3. --- Database Connection ---
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database configuration: %v", err)
	}
	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v\n", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}
	e.Logger.Info("Successfully connected to the database!")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 4. --- Dependency Injection ---
	// --- Locations Module ---
	hub := locations.NewHub(e.Logger, cfg.ClientOrigin)
	defer hub.Close()
	locationRepo := locations.NewLocationRepository(dbPool)
	locationService := locations.NewLocationService(locationRepo, hub)
	locationHandler := locations.NewHandler(locationService, hub)

	if cfg.AMQPURL != "" {
		go func() {
			conn, err := locations.DialAMQP(ctx, cfg.AMQPURL, 10, e.Logger)
			if err != nil {
				e.Logger.Errorf("location ingest disabled: %v", err)
				return
			}
			defer conn.Close()
			consumer := locations.NewConsumer(conn, cfg.LocationQueue, locationService, e.Logger)
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.Logger.Errorf("location consumer stopped: %v", err)
			}
		}()
	}

	// --- Parcels Module ---
	var notifier parcels.Notifier
	if cfg.EmailFrom != "" {
		sender, err := email.NewSESV2Sender(ctx, cfg.AWSRegion, cfg.EmailFrom)
		if err != nil {
			log.Fatalf("Unable to create email sender: %v", err)
		}
		templates, err := email.NewTemplateManager()
		if err != nil {
			log.Fatalf("Unable to parse email templates: %v", err)
		}
		linkFmt := ""
		if cfg.ClientOrigin != "" {
			linkFmt = cfg.ClientOrigin + "/parcels/%s"
		}
		notifier = email.NewStatusNotifier(sender, templates, linkFmt)
	}
	parcelRepo := parcels.NewRepository(dbPool)
	parcelService := parcels.NewService(parcelRepo, locationService, notifier, e.Logger)
	parcelHandler := parcels.NewHandler(parcelService)

	// --- Routing Module ---
	routeHandler := routing.NewRouteHandler(routing.NewRouteService(cfg.GoogleMapsAPIKey, cfg.AverageSpeedKMH))

	// 5. --- Initialize Router ---
	api.SetupRoutes(e, cfg.JWTSecret, parcelHandler, locationHandler, routeHandler)

	// 6. --- Start Server with graceful shutdown logic ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server an error occurred:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Server exiting")
}
