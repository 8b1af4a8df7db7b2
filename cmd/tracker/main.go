// Command tracker mounts one live tracking widget for a parcel against a
// running API and prints what the widget renders.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parcel-tracking/internal/config"
	"parcel-tracking/internal/mapview"
	"parcel-tracking/internal/models"
	"parcel-tracking/internal/tracking"
	"parcel-tracking/pkg/utils"

	gommonlog "github.com/labstack/gommon/log"
)

func main() {
	parcelID := flag.String("parcel", "", "parcel id to track (required)")
	token := flag.String("token", "", "bearer token; minted from JWT_SECRET when empty")
	userID := flag.String("user", "tracker", "user id for a minted token")
	role := flag.String("role", models.RoleAdmin, "role for a minted token")
	every := flag.Duration("every", time.Second, "how often to print the widget view")
	refresh := flag.Duration("status-refresh", 15*time.Second, "how often to reload the parcel status; 0 disables")
	geojsonOut := flag.String("geojson", "", "write the final map as GeoJSON to this file")
	flag.Parse()

	if *parcelID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	tc := cfg.Tracker

	if *token == "" {
		*token, err = utils.GenerateAccessToken(cfg.JWTSecret, *userID, *role, 12*time.Hour)
		if err != nil {
			log.Fatalf("Unable to mint token: %v", err)
		}
	}

	logger := gommonlog.New("tracker")
	logger.SetLevel(gommonlog.INFO)

	client := tracking.NewAPIClient(tc.APIURL, *token, 10*time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entity, err := client.FetchParcel(ctx, *parcelID)
	if err != nil {
		log.Fatalf("Unable to load parcel %s: %v", *parcelID, err)
	}

	maps := mapview.NewProvider()
	w := tracking.New(tracking.Options{
		Maps:                 maps,
		Dialer:               &tracking.WSDialer{BaseURL: tc.FeedURL, Token: *token, IdleTimeout: tc.PushIdleTimeout},
		Fetcher:              client,
		Directions:           client,
		Logger:               logger,
		PollInterval:         tc.PollInterval,
		ReconnectBackoff:     tc.ReconnectBackoff,
		MaxReconnectAttempts: tc.MaxReconnectAttempts,
		AnimationDuration:    tc.AnimationDuration,
		FitPaddingPx:         tc.FitPaddingPx,
	})
	if err := w.Mount(ctx, entity); err != nil {
		log.Fatalf("Unable to mount widget: %v", err)
	}
	logger.Infof("tracking parcel %s (driver %q, %s)", entity.ParcelID, entity.DriverID, entity.Status)

	enc := json.NewEncoder(os.Stdout)
	printTick := time.NewTicker(*every)
	defer printTick.Stop()

	var refreshC <-chan time.Time
	if *refresh > 0 {
		t := time.NewTicker(*refresh)
		defer t.Stop()
		refreshC = t.C
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-printTick.C:
			if err := enc.Encode(w.View()); err != nil {
				logger.Errorf("write view: %v", err)
			}
		case <-refreshC:
			latest, err := client.FetchParcel(ctx, *parcelID)
			if err != nil {
				logger.Warnf("reload parcel %s: %v", *parcelID, err)
				continue
			}
			w.SetStatus(latest.Status)
		}
	}

	if *geojsonOut != "" {
		if err := writeGeoJSON(maps.Latest(), *geojsonOut); err != nil {
			logger.Errorf("geojson export: %v", err)
		}
	}
	w.Unmount()
	logger.Infof("tracker exiting")
}

func writeGeoJSON(m *mapview.Map, path string) error {
	if m == nil {
		return nil
	}
	data, err := m.FeatureCollection().MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
