package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"wassistant/internal/assistant"
	"wassistant/internal/chat"
	"wassistant/internal/config"
	"wassistant/internal/llm"
	"wassistant/internal/metrics"
	"wassistant/internal/middleware"
	"wassistant/internal/threadstore"
	_ "wassistant/middlewares/autoload" // registers all middlewares
)

// Gateway wires the store, the remote assistant, the vision model and the
// middleware chain into a chat.Service. The caller owns its lifetime and
// must call Close.
type Gateway struct {
	cfg      *config.Config
	store    threadstore.Store
	client   *assistant.OpenAIClient
	vision   chat.VisionAdapter
	metrics  *metrics.Metrics
	service  *chat.Service
	debugLog io.Closer
	logger   *slog.Logger
}

type Option func(*Gateway)

// WithVisionAdapter replaces the adapter built from configuration.
func WithVisionAdapter(a chat.VisionAdapter) Option {
	return func(g *Gateway) {
		g.vision = a
	}
}

// SetupLogging installs the process-wide slog handler on stderr.
func SetupLogging(cfg config.LoggingConfig) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// OpenStore opens the thread store named by cfg.
func OpenStore(cfg *config.Config) (threadstore.Store, error) {
	store, err := threadstore.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening thread store: %w", err)
	}
	return store, nil
}

// NewClient returns the remote assistant client for cfg.
func NewClient(cfg *config.Config) *assistant.OpenAIClient {
	return assistant.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, nil)
}

func New(cfg *config.Config, opts ...Option) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	g := &Gateway{
		cfg:     cfg,
		client:  NewClient(cfg),
		metrics: metrics.New(),
		logger:  slog.Default().With("component", "gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}

	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	g.store = store

	if g.vision == nil {
		vision, err := llm.NewAdapter(llm.Provider(cfg.Vision.Provider), cfg.Vision.Model, cfg.Vision.BaseURL, visionKey(cfg))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize vision adapter: %w", err)
		}
		g.vision = vision
	}

	resolverOpts := []assistant.ResolverOption{assistant.WithResolverObserver(g.metrics)}
	if cfg.Store.CompareAndSet {
		resolverOpts = append(resolverOpts, assistant.WithCompareAndSet())
	}
	resolver := assistant.NewResolver(g.client, store, resolverOpts...)
	orchestrator := assistant.NewOrchestrator(g.client, cfg.OpenAI.AssistantID,
		assistant.WithPollPolicy(assistant.PollPolicy{
			Interval:    cfg.Poll.Interval,
			MaxAttempts: cfg.Poll.MaxAttempts,
		}),
		assistant.WithOrchestratorObserver(g.metrics),
	)

	serviceOpts := []chat.ServiceOption{
		chat.WithVision(g.vision),
		chat.WithReplyObserver(g.metrics),
		chat.WithVisionMaxTokens(cfg.Vision.MaxTokens),
		chat.WithTurnTimeout(cfg.TurnTimeout),
	}
	if chain := g.middlewareChain(); chain != nil {
		serviceOpts = append(serviceOpts, chat.WithMiddlewareChain(chain))
	}
	g.service = chat.NewService(resolver, orchestrator, serviceOpts...)

	g.logger.Info("gateway ready",
		"store", cfg.Store.Backend,
		"vision_provider", cfg.Vision.Provider,
		"vision_model", cfg.Vision.Model)
	return g, nil
}

// visionKey reuses the OpenAI key when the vision model is also OpenAI's and
// no separate key is configured.
func visionKey(cfg *config.Config) string {
	if cfg.Vision.APIKey != "" {
		return cfg.Vision.APIKey
	}
	switch llm.Provider(cfg.Vision.Provider) {
	case llm.ProviderOpenAI, "":
		return cfg.OpenAI.APIKey
	}
	return ""
}

func (g *Gateway) middlewareChain() *middleware.Chain {
	if len(g.cfg.Middleware.Disabled) > 0 && os.Getenv(middleware.DisabledEnv) == "" {
		os.Setenv(middleware.DisabledEnv, strings.Join(g.cfg.Middleware.Disabled, ","))
	}

	var debugW io.Writer
	if path := g.cfg.Middleware.DebugLog; path != "" {
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			g.logger.Warn("failed to open middleware debug log", "path", path, "error", err)
		} else {
			g.debugLog = f
			debugW = f
		}
	}
	return middleware.NewChainFromRegistry(debugW)
}

func (g *Gateway) Service() *chat.Service { return g.service }

func (g *Gateway) Store() threadstore.Store { return g.store }

func (g *Gateway) Metrics() *metrics.Metrics { return g.metrics }

// AdminHandler serves metrics, health and thread lookups.
func (g *Gateway) AdminHandler() http.Handler {
	return metrics.NewRouter(g.metrics, g.store)
}

// Execute answers one message and returns the text to send back. It never
// fails; see chat.Service.RespondWithOptionalImage.
func (g *Gateway) Execute(ctx context.Context, req chat.Request) string {
	return g.service.RespondWithOptionalImage(ctx, req.Body, req.UserID, req.Name, req.ImagePath)
}

func (g *Gateway) Close() error {
	var errs []error
	if g.debugLog != nil {
		errs = append(errs, g.debugLog.Close())
	}
	if g.store != nil {
		errs = append(errs, g.store.Close())
	}
	return errors.Join(errs...)
}
