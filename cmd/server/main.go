package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizgen/internal/api"
	"quizgen/internal/config"
	"quizgen/internal/db"
	"quizgen/internal/logger"
	"quizgen/internal/services"
	"quizgen/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal("open database", "path", cfg.Database, "error", err)
	}
	defer conn.Close()

	docs := store.NewDocumentStore(conn)
	aiService := services.NewAIService(services.ModelConfig{
		APIKey:   cfg.ModelKey,
		Endpoint: cfg.ModelEndpoint,
		Model:    cfg.ModelName,
		Timeout:  cfg.ModelTimeout,
	})
	if cfg.ModelKey == "" {
		log.Warn("no model API key configured, generation requests will fail")
	}

	questionService := services.NewQuestionService(docs, log)
	flashcardService := services.NewFlashcardService(docs)
	documentService := services.NewDocumentService(docs, cfg.UploadDir)
	generationService := services.NewGenerationService(
		services.NewPDFService(),
		aiService,
		questionService,
		log,
		cfg.MaxPromptChars,
	)

	server := api.NewServer(log, documentService, generationService, questionService, flashcardService)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ModelTimeout + 30*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", "addr", srv.Addr, "model", cfg.ModelName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	if err := server.WaitForJobs(shutdownCtx); err != nil {
		log.Warn("generation jobs cancelled at shutdown", "error", err)
	}
}
