package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	authhandler "havenlink/internal/auth/handler"
	authservice "havenlink/internal/auth/service"
	contracthandler "havenlink/internal/contract/handler"
	contractmetrics "havenlink/internal/contract/metrics"
	contractservice "havenlink/internal/contract/service"
	contractstore "havenlink/internal/contract/store/contract"
	discoveryhandler "havenlink/internal/discovery/handler"
	discoveryservice "havenlink/internal/discovery/service"
	"havenlink/internal/events"
	feedbackhandler "havenlink/internal/feedback/handler"
	feedbackservice "havenlink/internal/feedback/service"
	feedbackstore "havenlink/internal/feedback/store/feedback"
	identitystore "havenlink/internal/identity/store/identity"
	"havenlink/internal/jwttoken"
	messaginghandler "havenlink/internal/messaging/handler"
	messagingmetrics "havenlink/internal/messaging/metrics"
	messagingservice "havenlink/internal/messaging/service"
	messagestore "havenlink/internal/messaging/store/message"
	notificationhandler "havenlink/internal/notification/handler"
	notificationservice "havenlink/internal/notification/service"
	notificationstore "havenlink/internal/notification/store/notification"
	"havenlink/internal/platform/config"
	"havenlink/internal/platform/httpserver"
	"havenlink/internal/platform/kafka"
	"havenlink/internal/platform/logger"
	"havenlink/internal/platform/postgres"
	platformredis "havenlink/internal/platform/redis"
	profilehandler "havenlink/internal/profile/handler"
	profilemetrics "havenlink/internal/profile/metrics"
	profileservice "havenlink/internal/profile/service"
	profilestore "havenlink/internal/profile/store/profile"
	"havenlink/internal/pubsub"
	httptransport "havenlink/internal/transport/http"
	"havenlink/pkg/platform/tx"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	health := map[string]httptransport.HealthChecker{}

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		health["postgres"] = func(ctx context.Context) error { return postgres.Health(ctx, db) }
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		health["redis"] = redisClient.Health
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close()
	}

	// Stores fall back to in-memory implementations when postgres is not
	// configured, which keeps local development dependency-free.
	var (
		identities    identityStores
		txRunner      tx.Runner = tx.Noop{}
		profiles      profileStores
		contracts     contractservice.ContractStore
		messages      messagingservice.MessageStore
		notifications notificationservice.Store
		feedbackItems feedbackservice.FeedbackStore
	)
	if db != nil {
		identities = identitystore.NewPostgres(db)
		profiles = profilestore.NewPostgres(db)
		contracts = contractstore.NewPostgres(db)
		messages = messagestore.NewPostgres(db)
		notifications = notificationstore.NewPostgres(db)
		feedbackItems = feedbackstore.NewPostgres(db)
		txRunner = tx.NewSQLRunner(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		identities = identitystore.NewInMemory()
		profiles = profilestore.NewInMemory()
		contracts = contractstore.NewInMemory()
		messages = messagestore.NewInMemory()
		notifications = notificationstore.NewInMemory()
		feedbackItems = feedbackstore.NewInMemory()
	}

	var broker pubsub.Broker
	if redisClient != nil {
		broker = pubsub.NewRedisBroker(redisClient, log)
	} else {
		log.Warn("REDIS_URL not set, live push is process-local")
		broker = pubsub.NewMemoryBroker()
	}

	publisher := events.NewPublisher(producer, log)
	tokens := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer)

	notificationSvc := notificationservice.New(notifications, identities,
		notificationservice.WithLogger(log),
		notificationservice.WithBroker(broker),
	)
	authSvc := authservice.New(identities, tokens, cfg.AccessTokenTTL,
		authservice.WithLogger(log),
	)
	profileSvc := profileservice.New(identities, profiles, notificationSvc,
		profileservice.WithLogger(log),
		profileservice.WithMetrics(profilemetrics.New()),
		profileservice.WithEventPublisher(publisher),
		profileservice.WithTxRunner(txRunner),
	)
	contractSvc := contractservice.New(contracts, identities, notificationSvc,
		contractservice.WithLogger(log),
		contractservice.WithMetrics(contractmetrics.New()),
		contractservice.WithEventPublisher(publisher),
		contractservice.WithTxRunner(txRunner),
	)
	messagingSvc := messagingservice.New(messages, identities,
		messagingservice.WithLogger(log),
		messagingservice.WithMetrics(messagingmetrics.New()),
		messagingservice.WithBroker(broker),
	)
	discoverySvc := discoveryservice.New(identities, profiles,
		discoveryservice.WithLogger(log),
	)
	feedbackSvc := feedbackservice.New(feedbackItems, identities, notificationSvc,
		feedbackservice.WithLogger(log),
		feedbackservice.WithEventPublisher(publisher),
		feedbackservice.WithTxRunner(txRunner),
	)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		TokenValidator: tokens,
		Public: []httptransport.Registrar{
			authhandler.New(authSvc, log),
		},
		Protected: []httptransport.Registrar{
			profilehandler.New(profileSvc, log),
			contracthandler.New(contractSvc, log),
			messaginghandler.New(messagingSvc, broker, log),
			discoveryhandler.New(discoverySvc, log),
			notificationhandler.New(notificationSvc, log),
			feedbackhandler.New(feedbackSvc, log),
		},
		Health: health,
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// identityStores is the union of the identity store capabilities the
// services consume.
type identityStores interface {
	authservice.IdentityStore
	profileservice.IdentityStore
	discoveryservice.IdentityStore
	contractservice.IdentityStore
	messagingservice.IdentityStore
	feedbackservice.IdentityStore
	notificationservice.AdminDirectory
}

// profileStores is the union of the profile store capabilities the
// services consume.
type profileStores interface {
	profileservice.ProfileStore
	discoveryservice.ProfileStore
}
