package container

import (
	"context"
	"io"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	database "github.com/FACorreiaa/go-trip-assistant/app/db"
	"github.com/FACorreiaa/go-trip-assistant/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-assistant/config"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/auth"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/chat"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/discovery"
	generativeAI "github.com/FACorreiaa/go-trip-assistant/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/profiles"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/programs"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/sanitizer"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/suggestions"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/transport"
	travelContext "github.com/FACorreiaa/go-trip-assistant/internal/api/travel_context"
)

// Container holds all application dependencies
type Container struct {
	Config             *config.Config
	DatabaseURL        string
	Logger             *slog.Logger
	Pool               *pgxpool.Pool
	Verifier           *auth.JWTVerifier
	ProfileHandler     *profiles.ProfileHandler
	ProgramHandler     *programs.ProgramHandler
	ChatHandler        *chat.ChatHandler
	SuggestionsHandler *suggestions.SuggestionsHandler
	DiscoveryHandler   *discovery.DiscoveryHandler
	ItineraryHandler   *itinerary.ItineraryHandler

	chatService    *chat.ChatServiceImpl
	discoveryCache discovery.Cache
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	verifier, err := auth.NewJWTVerifier(cfg.JWT)
	if err != nil {
		pool.Close()
		return nil, err
	}

	metrics.InitAppMetrics()
	m := metrics.Get()

	s := sanitizer.New(logger, func(ctx context.Context, field sanitizer.FieldType) {
		m.SanitizerSuspiciousTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("field", string(field))))
	})

	executor := transport.NewExecutor(transport.Options{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxDelay:   cfg.Retry.MaxDelay,
	}, logger, transport.WithRetryHook(func(ctx context.Context, attempt int, status int) {
		m.TransportRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", strconv.Itoa(status))))
	}))
	httpClient := transport.NewHTTPClient(executor, cfg.AI.RequestTimeout)

	dispatcher, err := generativeAI.NewDispatcherFromConfig(ctx, cfg.AI, httpClient, logger)
	if err != nil {
		logger.Error("Failed to configure AI providers", slog.Any("error", err))
		pool.Close()
		return nil, err
	}

	discoveryCache, err := discovery.NewCache(cfg.Cache)
	if err != nil {
		logger.Error("Failed to configure discovery cache", slog.Any("error", err))
		pool.Close()
		return nil, err
	}

	// Repositories
	profileRepo := profiles.NewPostgresProfileRepo(pool, logger)
	programRepo := programs.NewPostgresProgramRepo(pool, logger)
	chatRepo := chat.NewPostgresChatRepo(pool, logger)

	builder := travelContext.NewBuilder(profileRepo, programRepo, logger)

	// Services
	profileService := profiles.NewProfileService(profileRepo, s, logger)
	programService := programs.NewProgramService(programRepo, s, logger)
	chatService := chat.NewChatService(chatRepo, programService, builder, dispatcher, s, logger)
	suggestionsService := suggestions.NewSuggestionsService(programRepo, builder, dispatcher, s, logger)
	discoveryService := discovery.NewDiscoveryService(builder, dispatcher, discoveryCache, s, logger)
	itineraryService := itinerary.NewItineraryService(programService, builder, dispatcher, s, logger)

	return &Container{
		Config:             cfg,
		DatabaseURL:        dbConfig.ConnectionURL,
		Logger:             logger,
		Pool:               pool,
		Verifier:           verifier,
		ProfileHandler:     profiles.NewProfileHandler(profileService, logger),
		ProgramHandler:     programs.NewProgramHandler(programService, logger),
		ChatHandler:        chat.NewChatHandler(chatService, logger),
		SuggestionsHandler: suggestions.NewSuggestionsHandler(suggestionsService, logger),
		DiscoveryHandler:   discovery.NewDiscoveryHandler(discoveryService, logger),
		ItineraryHandler:   itinerary.NewItineraryHandler(itineraryService, logger),
		chatService:        chatService,
		discoveryCache:     discoveryCache,
	}, nil
}

// Close waits for pending chat writes, then releases the cache client and the pool.
func (c *Container) Close() {
	if c.chatService != nil {
		c.chatService.Wait()
	}
	if closer, ok := c.discoveryCache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.Logger.Warn("Failed to close discovery cache", slog.Any("error", err))
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
