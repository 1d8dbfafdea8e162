package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mobilepro.local/hunt-gateway/internal/config"
	"mobilepro.local/hunt-gateway/internal/dispatch"
	"mobilepro.local/hunt-gateway/internal/events"
	"mobilepro.local/hunt-gateway/internal/httpapi"
	"mobilepro.local/hunt-gateway/internal/model"
	"mobilepro.local/hunt-gateway/internal/scenario"
	"mobilepro.local/hunt-gateway/internal/session"
	"mobilepro.local/hunt-gateway/internal/store"
	"mobilepro.local/hunt-gateway/internal/subscribers"
	"mobilepro.local/hunt-gateway/internal/subscribers/hub"
	eventlog "mobilepro.local/hunt-gateway/internal/subscribers/logging"
	"mobilepro.local/hunt-gateway/internal/subscribers/webhook"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.HTTPAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overriding "+config.EnvHTTPAddr)
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := a.logger

	st, err := store.NewGormStore(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer a.closeStore(st)

	if cfg.Seed {
		seeded, err := store.Seed(ctx, st)
		if err != nil {
			return err
		}
		if seeded {
			logger.Info("seeded roster and question bank")
		}
	}

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	hookOpts, err := webhookOptions(cfg)
	if err != nil {
		return err
	}
	watchers := hub.New(logger)
	subs := []subscribers.Subscriber{eventlog.New(logger), watchers}
	for idx, webhookURL := range cfg.WebhookURLs {
		subs = append(subs, webhook.New(webhookSubscriberName(idx, webhookURL), webhookURL, logger, hookOpts...))
	}
	dispatcher := dispatch.New(logger, subs)

	manager, err := session.NewManager(session.ManagerConfig{
		Provider: provider,
		Options: session.Options{
			Model:           cfg.Model,
			MaxTokens:       cfg.MaxTokens,
			Temperature:     cfg.Temperature,
			ExchangeTimeout: cfg.ExchangeTimeout,
		},
		Transcripts: st,
		Scenarios:   st,
		Events:      dispatcher,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	srv := httpapi.NewServer(httpapi.Config{
		Addr:        cfg.HTTPAddr,
		Logger:      logger,
		Sessions:    manager,
		Store:       st,
		Catalog:     scenario.NewCatalog(st),
		Hub:         watchers,
		CORSOrigins: cfg.CORSOrigins,
	})
	// Streams hijack their connections, so they end through the base context
	// rather than Shutdown.
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("provider", cfg.Provider),
			zap.String("model", cfg.Model),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown error", zap.Error(err))
		}
		if err := dispatcher.Drain(shutdownCtx); err != nil {
			logger.Warn("event deliveries still pending at exit", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

// newProvider builds the configured agent backend through the model registry.
func newProvider(ctx context.Context, cfg config.Config) (model.Provider, error) {
	registry := model.NewRegistry()
	registry.Register(config.ProviderGemini, func(ctx context.Context, apiKey string) (model.Provider, error) {
		p, err := model.NewGeminiProvider(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	registry.Register(config.ProviderOpenAI, func(_ context.Context, apiKey string) (model.Provider, error) {
		return model.NewOpenAIProvider(apiKey, model.WithOpenAIBaseURL(cfg.OpenAIBaseURL)), nil
	})

	apiKey := cfg.GeminiAPIKey
	if cfg.Provider == config.ProviderOpenAI {
		apiKey = cfg.OpenAIAPIKey
	}
	return registry.Build(ctx, cfg.Provider, apiKey)
}

// webhookOptions applies the configured event filter and bearer token to
// every webhook.
func webhookOptions(cfg config.Config) ([]webhook.Option, error) {
	var opts []webhook.Option
	if len(cfg.WebhookEvents) > 0 {
		types := make([]events.Type, 0, len(cfg.WebhookEvents))
		for _, name := range cfg.WebhookEvents {
			t, err := events.ParseType(name)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", config.EnvWebhookEvents, err)
			}
			types = append(types, t)
		}
		opts = append(opts, webhook.WithEventTypes(types...))
	}
	if cfg.WebhookToken != "" {
		opts = append(opts, webhook.WithHeader("Authorization", "Bearer "+cfg.WebhookToken))
	}
	return opts, nil
}

func webhookSubscriberName(index int, webhookURL string) string {
	parsed, err := url.Parse(webhookURL)
	if err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return fmt.Sprintf("webhook-%d", index+1)
}
