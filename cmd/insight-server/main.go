// cmd/insight-server/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"infraction-insights/internal/analytics"
	"infraction-insights/internal/cache"
	"infraction-insights/internal/common/aws"
	"infraction-insights/internal/common/config"
	"infraction-insights/internal/common/database"
	"infraction-insights/internal/common/logger"
	"infraction-insights/internal/dataset"
	"infraction-insights/internal/llm"
	"infraction-insights/internal/models"
	"infraction-insights/internal/query"
	"infraction-insights/internal/router"
	"infraction-insights/internal/scheduler"
	"infraction-insights/internal/search"
	"infraction-insights/internal/sqlgen"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting insight server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	if cfg.Logging.Level != "" {
		zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	log := logger.NewZapAdapter(zapLog)

	ctx := context.Background()

	// --- Init Query Backend + Page Source ---
	var (
		backend    query.Backend
		pageSource dataset.PageSource
		dialect    = sqlgen.DialectPostgres
	)

	switch cfg.Database.Backend {
	case "sql":
		var sqlClient *database.SQLClient
		err = retryWithBackoff(func() error {
			var err error
			sqlClient, err = database.NewSQL(cfg.Database.SQL)
			if err != nil {
				return err
			}
			return sqlClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "SQL connection")

		if err != nil {
			zapLog.Fatal("sql backend failed after retries", zap.Error(err))
		}
		defer sqlClient.Close()

		backend = query.NewSQLBackend(sqlClient)
		pageSource = sqlClient
		if sqlClient.Driver == "sqlite" {
			dialect = sqlgen.DialectSQLite
		}
		zapLog.Info("SQL backend connected successfully", zap.String("driver", sqlClient.Driver))

	default: // supabase
		supabase := database.NewSupabase(cfg.Database.Supabase)
		err = retryWithBackoff(func() error {
			return supabase.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Supabase connection")

		if err != nil {
			zapLog.Fatal("supabase backend failed after retries", zap.Error(err))
		}

		backend = query.NewPostgRESTBackend(
			supabase,
			cfg.Dataset.Table,
			cfg.Database.Supabase.RPCFunction,
			cfg.Dataset.PageSize,
			cfg.Database.Supabase.MaxRows,
			log,
		)
		pageSource = supabase
		zapLog.Info("Supabase backend connected successfully")
	}

	// --- Init Cache Store ---
	var store cache.Store
	if cfg.Database.Redis.Enabled {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()

		store = cache.NewRedisStore(redis, cfg.Cache.KeyPrefix, 24*time.Hour, log)
		zapLog.Info("Redis connected successfully")
	} else {
		store = cache.NewMemoryStore(cfg.Cache.KeyPrefix)
		zapLog.Info("Using in-memory cache store")
	}

	// --- Init LLM Provider ---
	provider := llm.FromConfig(cfg.LLM)
	zapLog.Info("LLM provider ready", zap.String("provider", provider.Name()))

	maxTokens := cfg.LLM.Groq.MaxTokens
	if cfg.LLM.Provider == "anthropic" {
		maxTokens = cfg.LLM.Anthropic.MaxTokens
	}

	// --- Wire Resolution Flow ---
	engine := analytics.NewEngine(analytics.Config{
		NameMatchThreshold: cfg.Analytics.NameMatchThreshold,
		TopLimit:           cfg.Analytics.TopLimit,
	}, log)

	generator := sqlgen.NewGenerator(provider, backend, cfg.Dataset.Table, dialect, maxTokens, log)
	executor := query.NewExecutor(backend, log)
	searcher := search.NewClient(cfg.APIs, log)

	fetcher, err := dataset.NewFetcher(pageSource, dataset.Config{
		Table:    cfg.Dataset.Table,
		PageSize: cfg.Dataset.PageSize,
		MaxPages: cfg.Dataset.MaxPages,
	}, log)
	if err != nil {
		zapLog.Fatal("fetcher init failed", zap.Error(err))
	}

	var notifier scheduler.Notifier
	if cfg.Alerts.AWS.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Alerts.AWS.Region, cfg.Alerts.AWS.SNS.TopicARN)
		if err != nil {
			zapLog.Warn("SNS alerting unavailable", zap.Error(err))
		} else {
			notifier = sns
			zapLog.Info("SNS alerting enabled", zap.String("topic", cfg.Alerts.AWS.SNS.TopicARN))
		}
	}

	sched, err := scheduler.New(scheduler.Config{
		Enabled:  cfg.Refresh.Enabled,
		Hour:     cfg.Refresh.Hour,
		Timezone: cfg.Refresh.Timezone,
	}, fetcher, notifier, log)
	if err != nil {
		zapLog.Fatal("scheduler init failed", zap.Error(err))
	}

	if err := sched.Start(ctx); err != nil {
		zapLog.Fatal("scheduler start failed", zap.Error(err))
	}
	defer sched.Stop()

	resolver := router.NewResolver(
		router.Config{
			Table:       cfg.Dataset.Table,
			CachePrefix: cfg.Cache.KeyPrefix,
			CacheMaxAge: time.Duration(cfg.Cache.MaxAge) * time.Second,
		},
		engine, generator, executor, searcher, provider, sched.Dataset, store, log,
	)

	// --- HTTP API ---
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ask", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Question  string `json:"question"`
			SessionID string `json:"sessionId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			http.Error(w, "question is required", http.StatusBadRequest)
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = r.Header.Get("X-Session-ID")
		}
		if sessionID == "" {
			sessionID = models.NewSession().ID
		}

		answer := resolver.Resolve(r.Context(), sessionID, req.Question)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"answer":    answer.Text,
			"source":    answer.Source,
			"sessionId": sessionID,
		})
	})

	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		sessionID := r.Header.Get("X-Session-ID")
		if sessionID == "" {
			http.Error(w, "X-Session-ID header is required", http.StatusBadRequest)
			return
		}

		if err := resolver.ClearSession(r.Context(), sessionID); err != nil {
			log.WithError(err).Error("session clear failed", nil)
			http.Error(w, "session clear failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, sched.Refresh(r.Context()))
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"app":     cfg.App.Name,
			"version": cfg.App.Version,
			"backend": cfg.Database.Backend,
			"dataset": sched.Status(),
		})
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error during HTTP shutdown", zap.Error(err))
	}

	zapLog.Info("Insight server stopped gracefully")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
