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

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/game-friend/backend/internal/audio"
	"github.com/zhouzirui/game-friend/backend/internal/config"
	"github.com/zhouzirui/game-friend/backend/internal/handler"
	"github.com/zhouzirui/game-friend/backend/internal/handler/live"
	speechHandler "github.com/zhouzirui/game-friend/backend/internal/handler/speech"
	"github.com/zhouzirui/game-friend/backend/internal/model/catalog"
	"github.com/zhouzirui/game-friend/backend/internal/service/ai"
	emotionservice "github.com/zhouzirui/game-friend/backend/internal/service/emotion"
	"github.com/zhouzirui/game-friend/backend/internal/service/session"
	"github.com/zhouzirui/game-friend/backend/internal/service/simulation"
	"github.com/zhouzirui/game-friend/backend/internal/service/speech"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	cat, err := catalog.Load(cfg.Server.CatalogFile)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	games, personas := cat.GameStore(), cat.PersonaStore()
	log.Printf("catalog loaded: %d games, %d personas", len(cat.Games), len(cat.Personas))

	var collab session.Collaborators
	if cfg.Simulation.Enabled {
		sim := simulation.New(simulation.Delays{
			Transcribe: cfg.Simulation.TranscribeDelay,
			Respond:    cfg.Simulation.RespondDelay,
			Analyze:    cfg.Simulation.AnalyzeDelay,
		}, cfg.Simulation.Seed)
		collab = session.Collaborators{
			Transcriber: sim,
			Responder:   sim,
			Analyzer:    sim,
			Synthesizer: sim,
		}
		log.Println("simulation backend enabled for collaborators without credentials")
	}

	// Initialize AI service
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - 请检查 Ark 模型相关环境变量")
		} else {
			collab.Responder = aiService
			log.Println("AI service initialized successfully")
		}

		vision, err := ai.NewVisionAnalyzer(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize vision analyzer: %v", err)
		} else {
			collab.Analyzer = vision
		}
	} else {
		log.Println("Ark 凭证未配置，跳过 AI 功能初始化")
	}

	// Initialize Speech service
	var (
		recognizer speechHandler.Recognizer
		speaker    speechHandler.Speaker
	)
	if cfg.Speech.Enabled {
		speechService := speech.NewService(cfg.Speech)
		collab.Transcriber = speechService.Transcriber()
		collab.Synthesizer = speechService.Synthesizer()
		recognizer, speaker = speechService.ASR(), speechService.TTS()

		if aiService != nil && cfg.AI.EmotionLLMEnabled {
			classifier, err := emotionservice.NewClassifier(ctx, aiService.GetChatModel(), emotionservice.Config{
				Enabled:      true,
				HistoryLimit: cfg.AI.EmotionHistoryLimit,
			})
			if err != nil {
				log.Printf("warning: failed to initialize emotion classifier: %v", err)
			} else if classifier.Enabled() {
				speechService.UseToneClassifier(classifier)
				log.Println("Emotion classifier service enabled")
			}
		} else if cfg.AI.EmotionLLMEnabled {
			log.Println("Emotion classifier requested but chat model unavailable, falling back to heuristics")
		}
		log.Println("Speech service initialized successfully")
	} else {
		log.Println("语音服务凭证未配置，跳过语音功能初始化")
	}

	if collab.Responder == nil {
		log.Println("warning: no responder available, replies will report an error")
	}

	manager := session.NewManager(games, personas, collab, session.Options{
		RequestTimeout:   cfg.Session.RequestTimeout,
		AnalysisInterval: cfg.Session.AnalysisInterval,
	})

	liveHandler := live.New(manager, collab.Transcriber, live.Options{
		Monitor: audio.MonitorConfig{
			ThresholdDB:    cfg.Voice.ThresholdDB,
			SilenceTimeout: cfg.Voice.SilenceTimeout,
			TickInterval:   cfg.Voice.TickInterval,
		},
		SampleRate:        cfg.Voice.SampleRate,
		TranscribeTimeout: cfg.Session.RequestTimeout,
		MessageRate:       rate.Limit(cfg.Server.WSMessageRate),
		MessageBurst:      cfg.Server.WSMessageBurst,
	})

	router := handler.NewRouter(handler.Dependencies{
		Games:    games,
		Personas: personas,
		Sessions: manager,
		Live:     liveHandler,
		Speech:   speechHandler.New(recognizer, speaker, personas),
	})

	startServer(ctx, cfg.Server, router)

	liveHandler.Registry().CloseAll()
	manager.Shutdown()
	log.Println("sessions closed")
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Game Friend backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
