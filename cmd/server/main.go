package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"wastewatch-backend/internal/config"
	"wastewatch-backend/internal/handlers"
	"wastewatch-backend/internal/middleware"
	"wastewatch-backend/internal/services"
	"wastewatch-backend/internal/storage"
	"wastewatch-backend/internal/websocket"
)

func fatal(title string, err error, hints ...string) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("❌ FATAL ERROR: %s", title)
	log.Printf("   Error: %v", err)
	for _, h := range hints {
		log.Printf("   %s", h)
	}
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Fatal(err)
}

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 WASTEWATCH BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("📂 Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		fatal("Configuration could not be parsed", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("Configuration is incomplete", err, "Set the missing variables in the environment or .env file")
	}
	log.Printf("✅ Configuration loaded (store=%s, auth=%s)", cfg.StoreDriver, cfg.AuthMode)

	st, err := storage.Open(ctx, cfg)
	if err != nil {
		fatal("Store connection failed", err,
			"This is usually caused by:",
			"1. Wrong DATABASE_URL / MONGODB_URI format",
			"2. Database service is down",
			"3. Invalid credentials")
	}
	defer st.Close()

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	log.Println("✅ WebSocket hub started")

	reportOpts := []services.ReportOption{
		services.WithEvents(wsHub),
		services.WithEcoPoints(services.EcoPoints{OnReport: cfg.EcoPointsReport, OnResolved: cfg.EcoPointsResolved}),
	}
	if fcm := initFCM(ctx, cfg); fcm != nil {
		reportOpts = append(reportOpts, services.WithNotifier(fcm))
	}
	var geocoder services.Geocoder
	if cfg.GoogleMapsAPIKey != "" {
		g, err := services.NewGeocodingService(cfg.GoogleMapsAPIKey)
		if err != nil {
			log.Printf("⚠️  Geocoding disabled: %v", err)
		} else {
			geocoder = g
			reportOpts = append(reportOpts, services.WithGeocoder(g))
			log.Println("✅ Google geocoding enabled")
		}
	}

	var verifier services.CredentialVerifier = services.DemoVerifier{}
	if cfg.AuthMode == config.AuthModePassword {
		verifier = services.NewPasswordVerifier(st)
	}

	deps := handlers.Deps{
		Identity:       services.NewIdentityService(st, verifier),
		Reports:        services.NewReportService(st, st, reportOpts...),
		Fleet:          services.NewFleetService(st, st, wsHub),
		Analytics:      services.NewAnalyticsService(st, st),
		Hub:            wsHub,
		Geocoder:       geocoder,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.CORSOrigins,
	}

	if cfg.RateLimitEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️  Redis ping failed: %v (rate limiter fails open until it recovers)", err)
		}
		deps.ReportLimiter = middleware.NewRedisLimiter(rdb, "wastewatch:reports", cfg.ReportDailyLimit, 24*time.Hour)
		log.Printf("✅ Report rate limit: %d per user per day", cfg.ReportDailyLimit)
	} else {
		log.Println("⚠️  REDIS_ADDRESS not set, report rate limiting disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fatal("Server failed to start", err, "Port: "+cfg.Port)
		}
	case <-ctx.Done():
		log.Println("🛑 Shutdown signal received, draining connections...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Graceful shutdown failed: %v", err)
		}
		log.Println("👋 Server stopped")
	}
}

// initFCM supports both file path and base64-encoded credentials. Push
// notifications are disabled when neither works.
func initFCM(ctx context.Context, cfg *config.Config) *services.FCMService {
	if cfg.FirebaseCredentialsBase64 != "" {
		fcm, err := services.NewFCMServiceFromBase64(ctx, cfg.FirebaseCredentialsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			return nil
		}
		log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		return fcm
	}

	if cfg.FirebaseCredentialsFile == "" {
		log.Println("⚠️  No Firebase credentials configured (push notifications disabled)")
		return nil
	}
	fcm, err := services.NewFCMService(ctx, cfg.FirebaseCredentialsFile)
	if err != nil {
		log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
		return nil
	}
	log.Println("✅ Firebase Cloud Messaging initialized from file")
	return fcm
}
