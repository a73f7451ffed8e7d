package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/config"
	"github.com/yoockh/mockinterview/internal/analysis"
	"github.com/yoockh/mockinterview/internal/api/handlers"
	"github.com/yoockh/mockinterview/internal/api/middleware"
	"github.com/yoockh/mockinterview/internal/api/routes"
	"github.com/yoockh/mockinterview/internal/cache"
	"github.com/yoockh/mockinterview/internal/jobpost"
	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/providers/llm"
	"github.com/yoockh/mockinterview/internal/providers/stt"
	"github.com/yoockh/mockinterview/internal/providers/voice"
	mongorepo "github.com/yoockh/mockinterview/internal/repositories/mongo"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appDB, serviceDB, err := config.InitPostgresTiers(cfg)
	if err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if cfg.AutoMigrate {
		if err := config.Migrate(serviceDB); err != nil {
			log.Fatalf("PostgreSQL migrate error: %v", err)
		}
	}
	log.Info("PostgreSQL connected")

	rdb, err := config.InitRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	defer func() { _ = rdb.Close() }()
	log.Info("Redis connected")

	mongoClient, err := config.InitMongo(cfg.MongoURI)
	if err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	mdb := mongoClient.Database(cfg.MongoDB)
	if err := config.EnsureMongoIndexes(mdb); err != nil {
		log.WithError(err).Warn("failed to ensure mongo indexes")
	}
	log.Info("MongoDB connected")

	provider, err := newLLM(ctx, cfg)
	if err != nil {
		log.Fatalf("LLM init error: %v", err)
	}
	defer func() { _ = provider.Close() }()

	var speech stt.Provider
	if cfg.STTEnabled {
		gs, err := stt.NewGoogleSpeech(ctx, 16000)
		if err != nil {
			log.Fatalf("STT init error: %v", err)
		}
		defer func() { _ = gs.Close() }()
		speech = gs
	}

	// repositories
	resumes := pgrepo.NewResumeRepo(appDB)
	jobs := pgrepo.NewJobRepo(appDB)
	sessions := pgrepo.NewSessionRepo(appDB)
	serviceSessions := pgrepo.NewSessionRepo(serviceDB)
	questions := pgrepo.NewQuestionRepo(appDB)
	convos := pgrepo.NewConversationRepo(serviceDB)
	feedback := pgrepo.NewFeedbackRepo(serviceDB)
	buffers := mongorepo.NewBufferRepo(mdb, cfg.BufferTTL)
	kv := cache.NewRedisCache(rdb)

	// services
	queue := workers.NewAnalysisQueue(rdb)
	progressSvc := services.NewProgressService(sessions, questions, convos)
	convoSvc := services.NewConversationService(convos)
	interviewSvc := services.NewInterviewService(resumes, jobs, sessions, progressSvc, provider, queue, log)
	setupSvc := services.NewSetupService(resumes, jobs, provider, jobpost.NewScraper(nil), log)
	transcriptSvc := services.NewTranscriptionService(buffers, rdb)
	store := services.NewVoiceSessionStore(kv, buffers, cfg.VoiceSessionTTL, cfg.VoiceFallbackRouting, log)
	agentSvc := services.NewVoiceAgentService(services.VoiceAgentDeps{
		Store:       store,
		Interviews:  interviewSvc,
		Convos:      convoSvc,
		Transcripts: transcriptSvc,
		Sessions:    serviceSessions,
		Questions:   pgrepo.NewQuestionRepo(serviceDB),
		Resumes:     pgrepo.NewResumeRepo(serviceDB),
		Jobs:        pgrepo.NewJobRepo(serviceDB),
		LLM:         provider,
		STT:         speech,
		Logger:      log,
	})
	resultsSvc := services.NewResultsService(services.ResultsDeps{
		Sessions:        sessions,
		ServiceSessions: serviceSessions,
		Feedback:        feedback,
		Convos:          convos,
		Resumes:         resumes,
		Jobs:            jobs,
		Pipeline:        analysis.NewAnalyzer(provider, log),
		Cache:           kv,
		LockTTL:         cfg.AnalysisLockTTL,
		ViewTTL:         cfg.ResultsViewTTL,
		Logger:          log,
	})
	voiceAuthSvc := services.NewVoiceAuthService(interviewSvc,
		voice.NewPipelineClient(cfg.VoiceAuthURL, cfg.VoiceAPIKey, cfg.VoicePipelineID), log)
	demoSvc := services.NewDemoService(resumes, jobs, sessions, questions, convoSvc)

	pool := &workers.AnalysisWorkerPool{
		Redis:      rdb,
		Results:    resultsSvc,
		NumWorkers: cfg.AnalysisWorkers,
		Logger:     log,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("analysis worker init error: %v", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		JWT: middleware.JWTConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		DemoRoles:     cfg.DemoRoles,
		Setup:         handlers.NewSetupHandler(setupSvc),
		Interview:     handlers.NewInterviewHandler(interviewSvc, progressSvc),
		Results:       handlers.NewResultsHandler(resultsSvc),
		Voice:         handlers.NewVoiceHandler(agentSvc, cfg.VoiceWebhookSecret, log),
		VoiceAuth:     handlers.NewVoiceAuthHandler(voiceAuthSvc),
		Transcription: handlers.NewTranscriptionHandler(interviewSvc, transcriptSvc),
		WS:            handlers.NewWSHandler(interviewSvc, transcriptSvc, cfg.AllowedOrigins),
		Demo:          handlers.NewDemoHandler(demoSvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown failed")
	}
	pool.Wait()
}

func newLLM(ctx context.Context, cfg *config.App) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "vertex":
		return llm.NewVertexGemini(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.GeminiModel)
	default:
		return llm.NewGeminiAPI(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
}
