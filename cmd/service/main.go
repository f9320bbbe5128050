package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atmoslabs/weather-prediction-service/internal/cache"
	"github.com/atmoslabs/weather-prediction-service/internal/circuitbreaker"
	"github.com/atmoslabs/weather-prediction-service/internal/client"
	"github.com/atmoslabs/weather-prediction-service/internal/config"
	"github.com/atmoslabs/weather-prediction-service/internal/fallback"
	"github.com/atmoslabs/weather-prediction-service/internal/geocode"
	httphandler "github.com/atmoslabs/weather-prediction-service/internal/http"
	"github.com/atmoslabs/weather-prediction-service/internal/lifecycle"
	"github.com/atmoslabs/weather-prediction-service/internal/observability"
	"github.com/atmoslabs/weather-prediction-service/internal/predict"
	"github.com/atmoslabs/weather-prediction-service/internal/service"
	"github.com/atmoslabs/weather-prediction-service/internal/synthetic"
)

func main() {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient := client.NewOpenWeatherClientWithRetry(
		cfg.WeatherAPIKey,
		cfg.WeatherCurrentURL,
		cfg.WeatherForecastURL,
		cfg.WeatherAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if !weatherClient.HasCredentials() {
		logger.Warn("no upstream API key configured; serving synthetic data only")
	}

	if cfg.CircuitBreakerEnabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			TripAfter:  cfg.CircuitBreakerTripAfter,
			CloseAfter: cfg.CircuitBreakerCloseAfter,
			Cooldown:   cfg.CircuitBreakerCooldown,
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.CircuitBreakerTransitionsTotal.WithLabelValues("weather_api", from.String(), to.String()).Inc()
				observability.CircuitBreakerState.WithLabelValues("weather_api").Set(float64(to))
			},
		})
		weatherClient.SetBreaker(cb)
		observability.CircuitBreakerState.WithLabelValues("weather_api").Set(0)
		logger.Info("circuit breaker enabled",
			zap.Int("trip_after", cfg.CircuitBreakerTripAfter),
			zap.Duration("cooldown", cfg.CircuitBreakerCooldown))
	}

	var cacheSvc cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		cacheSvc = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	seed := time.Now().UnixNano()
	weatherService := service.NewWeatherService(
		weatherClient,
		cacheSvc,
		cfg.CacheTTL,
		synthetic.NewGenerator(seed),
		predict.NewGenerator(seed),
		fallback.NewTracker(),
		cfg.MaxPredictionDays,
	)

	geocoder := geocode.NewClient(cfg.GeocodeURL, cfg.GeocodeUserAgent, cfg.GeocodeMinInterval, cfg.GeocodeTimeout)

	healthConfig := &httphandler.HealthConfig{
		DegradedWindow:       cfg.DegradedWindow,
		DegradedSyntheticPct: cfg.DegradedSyntheticPct,
		LiveUpstream:         weatherClient.HasCredentials(),
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(weatherService, geocoder, healthConfig, logger)

	if cfg.WarmCache && len(cfg.TrackedLocations) > 0 {
		warmer := cache.NewCacheWarmer(weatherService, logger)
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := warmer.Warm(warmCtx, cfg.TrackedLocations); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(context.Background(), cfg.TrackedLocations, cfg.WarmInterval); err != nil && err != context.Canceled {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		}
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(httphandler.RateLimitMiddleware(limiter))
	weatherRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	weatherRouter.HandleFunc("/current", handler.GetCurrentWeather).Methods("GET")
	weatherRouter.HandleFunc("/forecast", handler.GetForecast).Methods("GET")
	weatherRouter.HandleFunc("/prediction", handler.GetPrediction).Methods("GET")
	weatherRouter.HandleFunc("/batch", handler.PostBatch).Methods("POST")

	geocodeRouter := router.PathPrefix("/geocode").Subrouter()
	geocodeRouter.Use(httphandler.RateLimitMiddleware(limiter))
	geocodeRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	geocodeRouter.HandleFunc("", handler.Geocode).Methods("GET")

	exportRouter := router.PathPrefix("/export").Subrouter()
	exportRouter.Use(httphandler.RateLimitMiddleware(limiter))
	exportRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	exportRouter.HandleFunc("/prediction", handler.ExportPrediction).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
