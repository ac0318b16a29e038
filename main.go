package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/leetmentor/internal/adapter/llm"
	"github.com/xiaot623/leetmentor/internal/config"
	"github.com/xiaot623/leetmentor/internal/history"
	"github.com/xiaot623/leetmentor/internal/observability"
	"github.com/xiaot623/leetmentor/internal/policy"
	"github.com/xiaot623/leetmentor/internal/repository"
	"github.com/xiaot623/leetmentor/internal/service"
	handler "github.com/xiaot623/leetmentor/internal/transport/http"
	"github.com/xiaot623/leetmentor/internal/transport/rpc"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := observability.Init(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	log.Info("starting tutor",
		"port", cfg.HTTPPort,
		"store", cfg.StoreBackend,
		"provider", cfg.LLMProvider,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	store, err := repository.Open(cfg.StoreBackend, cfg.DatabaseURL, cfg.MaxTurnsPerSession)
	if err != nil {
		log.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize upstream gateway
	gateway, err := llm.NewGateway(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize gateway", "error", err)
		os.Exit(1)
	}

	// Initialize policy engine
	policyEngine, err := newPolicyEngine(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}
	if cfg.PolicyFile != "" {
		go func() {
			if err := policyEngine.Watch(ctx, cfg.PolicyFile); err != nil {
				log.Error("policy watcher stopped", "error", err)
			}
		}()
	}

	// Initialize service
	svc := service.New(store, history.New(cfg.HistoryWindow, cfg.NativeSystem), gateway, policyEngine, service.Options{
		Sampling: llm.SamplingConfig{
			Temperature:     cfg.Sampling.Temperature,
			TopK:            cfg.Sampling.TopK,
			TopP:            cfg.Sampling.TopP,
			MaxOutputTokens: cfg.Sampling.MaxOutputTokens,
		},
		Timeout:         cfg.LLMTimeout,
		MaxMessageChars: cfg.MaxMessageSize,
	})

	rpcServer := rpc.NewServer(svc)
	server := handler.NewServer(svc, rpcServer)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("API started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down tutor")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	rpcServer.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server gracefully", "error", err)
	}

	log.Info("tutor stopped")
}

func newPolicyEngine(ctx context.Context, cfg *config.Config) (*policy.Engine, error) {
	if cfg.PolicyFile == "" {
		return policy.NewEngine(ctx, policy.DefaultPolicy)
	}
	return policy.NewEngineFromFile(ctx, cfg.PolicyFile)
}
