package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	conversationx "github.com/tanpawarit/outreach-orchestrator/agent/agents/conversation"
	orchestratorx "github.com/tanpawarit/outreach-orchestrator/agent/agents/orchestrator"
	specialistx "github.com/tanpawarit/outreach-orchestrator/agent/agents/specialist"
	contractx "github.com/tanpawarit/outreach-orchestrator/agent/contract"
	discoveryx "github.com/tanpawarit/outreach-orchestrator/agent/discovery"
	enrichmentx "github.com/tanpawarit/outreach-orchestrator/agent/enrichment"
	escalationx "github.com/tanpawarit/outreach-orchestrator/agent/escalation"
	llmx "github.com/tanpawarit/outreach-orchestrator/agent/llm"
	nodex "github.com/tanpawarit/outreach-orchestrator/agent/nodes/orchestrator"
	recordsx "github.com/tanpawarit/outreach-orchestrator/agent/records"
	statex "github.com/tanpawarit/outreach-orchestrator/agent/state"
	"github.com/tanpawarit/outreach-orchestrator/api"
	configx "github.com/tanpawarit/outreach-orchestrator/pkg/config"
	geminix "github.com/tanpawarit/outreach-orchestrator/pkg/gemini"
	_ "github.com/tanpawarit/outreach-orchestrator/pkg/logger/autoload"
	qstashx "github.com/tanpawarit/outreach-orchestrator/pkg/qstash"
	speechx "github.com/tanpawarit/outreach-orchestrator/pkg/speech"
	"google.golang.org/genai"
)

type AppConfig struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// SessionStore is "upstash" or "memory".
	SessionStore      string `envconfig:"SESSION_STORE" default:"upstash"`
	EnrichmentEnabled bool   `envconfig:"ENRICHMENT_ENABLED" default:"true"`
	DatabaseURL       string `envconfig:"DATABASE_URL"`
	EscalationRedis   string `envconfig:"ESCALATION_REDIS_URL"`
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("")

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	discoveryCfg := configx.MustNew[discoveryx.Config]("DISCOVERY")
	enrichCfg := configx.MustNew[enrichmentx.Options]("ENRICH")
	engineCfg := configx.MustNew[conversationx.Config]("CONVERSATION")
	orchCfg := configx.MustNew[orchestratorx.Config]("CAMPAIGN")

	models, err := specialistx.NewRegistry(ctx, *llmCfg, discoveryCfg.MaxLeads)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build model registry")
	}

	var geminiClient *genai.Client
	var geminiModel string
	if discoveryCfg.SearchEnabled || appCfg.EnrichmentEnabled {
		geminiCfg := configx.MustNew[geminix.Config]("GEMINI")
		geminiClient, err = geminix.NewClient(ctx, *geminiCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create gemini client")
		}
		geminiModel = geminiCfg.Model
	}

	aggregator, err := buildAggregator(*discoveryCfg, models.Scout(), geminiClient, geminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build lead aggregator")
	}

	var stage *enrichmentx.Stage
	if appCfg.EnrichmentEnabled {
		stage = enrichmentx.NewStage(enrichmentx.NewGeminiEnricher(geminiClient, geminiModel), *enrichCfg)
	}

	records, closeRecords := buildRecords(ctx, appCfg.DatabaseURL)
	defer closeRecords()

	var enricher nodex.LeadEnricher
	if stage != nil {
		enricher = stage
	}
	orch, err := orchestratorx.New(aggregator, enricher, models.Planner(), records, *orchCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build campaign orchestrator")
	}

	speechCfg := configx.MustNew[speechx.Config]("SPEECH")
	synth, err := speechx.New(*speechCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create speech synthesizer")
	}

	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	mailer, err := qstashx.NewMailer(qstashx.MustNew(*qstashCfg), qstashCfg.MailTransportURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mail dispatcher")
	}

	queue, err := escalationx.NewQueue(buildEscalationStore(ctx, appCfg.EscalationRedis), mailer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create escalation queue")
	}

	engine, err := conversationx.New(conversationx.Deps{
		Caller:      models.Caller(),
		Email:       models.Email(),
		Speech:      synth,
		Store:       buildSessionStore(appCfg.SessionStore),
		Escalations: queue,
		Records:     records,
	}, *engineCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create conversation engine")
	}
	queue.SetReanalyzer(engine)

	server := echo.New()
	server.HideBanner = true
	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())

	api.NewHandler(api.Deps{
		Campaigns:     orch,
		Conversations: engine,
		Escalations:   queue,
		Records:       records,
	}).RegisterRoutes(server)

	go func() {
		if err := server.Start(appCfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()
	log.Info().Str("addr", appCfg.HTTPAddr).Msg("outreach orchestrator started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("outreach orchestrator stopped")
}

func buildAggregator(cfg discoveryx.Config, scout contractx.LeadScout, client *genai.Client, model string) (*discoveryx.Aggregator, error) {
	dirCfgs, err := discoveryx.LoadDirectorySources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}
	sources, opts := discoveryx.DirectorySources(dirCfgs, nil)

	if cfg.SearchEnabled && client != nil {
		sources = append(sources, discoveryx.NewSearchSource(client, model, cfg.MaxLeads))
	}
	if cfg.ScoutEnabled {
		sources = append(sources, discoveryx.NewScoutSource(scout))
	}
	if len(sources) == 0 {
		return nil, errors.New("no lead sources configured")
	}

	log.Info().Int("sources", len(sources)).Msg("lead sources configured")
	return discoveryx.NewAggregator(sources, append(cfg.Options(), opts...)...), nil
}

func buildRecords(ctx context.Context, databaseURL string) (contractx.RecordStore, func()) {
	if strings.TrimSpace(databaseURL) == "" {
		log.Warn().Msg("DATABASE_URL not set, records kept in memory")
		return recordsx.NewMemoryStore(), func() {}
	}

	pgCfg := configx.MustNew[recordsx.PostgresConfig]("DATABASE")
	db, err := recordsx.OpenPostgres(*pgCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open postgres")
	}
	store := recordsx.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure records schema")
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close postgres")
		}
	}
}

func buildEscalationStore(ctx context.Context, redisURL string) escalationx.Store {
	if strings.TrimSpace(redisURL) == "" {
		log.Warn().Msg("ESCALATION_REDIS_URL not set, escalations kept in memory")
		return escalationx.NewMemoryStore()
	}

	redisCfg := configx.MustNew[escalationx.RedisConfig]("ESCALATION")
	client, err := escalationx.NewRedisClient(ctx, *redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect escalation redis")
	}
	return escalationx.NewRedisStore(client, redisCfg.KeyPrefix)
}

func buildSessionStore(kind string) statex.Store {
	if strings.EqualFold(strings.TrimSpace(kind), "memory") {
		return statex.NewMemoryStore()
	}

	upstashCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH")
	store, err := statex.NewUpstashRedisStore(*upstashCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session store")
	}
	return store
}
