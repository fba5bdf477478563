package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admissions-coordinator/internal/api"
	"admissions-coordinator/internal/audit"
	"admissions-coordinator/internal/calendar"
	"admissions-coordinator/internal/common/auth"
	"admissions-coordinator/internal/common/config"
	"admissions-coordinator/internal/common/database"
	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/common/observability"
	"admissions-coordinator/internal/decision"
	"admissions-coordinator/internal/notify"
	"admissions-coordinator/internal/profile"
	"admissions-coordinator/internal/schedulestore"
	"admissions-coordinator/internal/scheduling"
	"admissions-coordinator/internal/slotstore"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting admissions coordinator", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres is required; the process cannot serve anything without it.
	var pg *database.PostgresClient
	err = retryWithBackoff(ctx, log, "postgres", 5, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	})
	if err != nil {
		log.Error("postgres unavailable, exiting", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer pg.Close()

	// Redis is a cache; start degraded when it is down.
	var redisClient *database.RedisClient
	err = retryWithBackoff(ctx, log, "redis", 3, func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	})
	if err != nil {
		log.Warn("redis unavailable, outcome cache disabled", map[string]interface{}{"error": err.Error()})
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// Elasticsearch backs the best-effort audit trail.
	var auditor audit.Indexer = audit.NoOpIndexer{}
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil || es.Ping() != nil {
			log.Warn("elasticsearch unavailable, audit trail disabled", nil)
		} else {
			auditor = audit.NewESIndexer(es.Client, cfg.Database.Elasticsearch, log)
		}
	}

	var notifier notify.Notifier = notify.NoOpNotifier{}
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Notifications.AWS.Region))
		if err != nil {
			log.Warn("aws config load failed, notifications disabled", map[string]interface{}{"error": err.Error()})
		} else {
			notifier = notify.NewAWSNotifier(
				ses.NewFromConfig(awsCfg),
				sns.NewFromConfig(awsCfg),
				cfg.Notifications, log)
		}
	}

	var cache *redis.Client
	if redisClient != nil {
		cache = redisClient.Client
	}
	profiles := profile.NewStore(pg.DB, cache, cfg.Database.Redis, auditor, log)
	slots := slotstore.NewStore(pg.DB, log)
	schedules := schedulestore.NewStore(pg.DB, log)
	decisions := decision.NewStore(pg.DB, log)

	cal := calendar.NewHTTPAdapter(cfg.Calendar, log)

	coordinator := scheduling.NewCoordinator(slots, schedules, profiles, cal, notifier, auditor, cfg, log)
	decisionSvc := decision.NewService(decisions, profiles, notifier, auditor, log)

	var resolver auth.ActorResolver
	if cfg.Auth.Keycloak.URL != "" {
		resolver = auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret)
	} else {
		log.Warn("keycloak not configured, using static dev actor", nil)
		resolver = &auth.StaticResolver{Actor: auth.Actor{
			ID: "dev", Username: "dev", Roles: []string{cfg.Auth.AdminRole},
		}}
	}

	handler := api.NewHandler(coordinator, decisionSvc, profiles, slots, schedules, log)
	server := api.NewServer(cfg, handler, resolver, obs, log)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-serverErr:
		log.Error("http server failed", map[string]interface{}{"error": err.Error()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	log.Info("coordinator stopped", nil)
}

// retryWithBackoff retries fn with exponential backoff until it succeeds,
// attempts run out, or the context is cancelled.
func retryWithBackoff(ctx context.Context, log logger.Logger, name string, attempts int, fn func() error) error {
	var err error
	delay := time.Second
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		log.Warn("connection attempt failed, retrying", map[string]interface{}{
			"target":  name,
			"attempt": i,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
