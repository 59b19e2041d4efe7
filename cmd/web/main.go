package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/logo-web/internal/config"
	"finitefield.org/logo-web/internal/content"
	"finitefield.org/logo-web/internal/generator"
	"finitefield.org/logo-web/internal/i18n"
	"finitefield.org/logo-web/internal/inference"
	"finitefield.org/logo-web/internal/logo"
	mw "finitefield.org/logo-web/internal/middleware"
	"finitefield.org/logo-web/internal/observability"
	"finitefield.org/logo-web/internal/ratelimit"
	"finitefield.org/logo-web/internal/results"
	"finitefield.org/logo-web/internal/secrets"
	"finitefield.org/logo-web/internal/translate"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "logo-web: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := observability.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	fetcher, err := secrets.NewFetcher(ctx,
		secrets.WithProject(os.Getenv("LOGO_WEB_SECRETS_PROJECT")),
		secrets.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	defer func() { _ = fetcher.Close() }()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var (
		addr     string
		tmplPath string
		pubPath  string
	)
	flag.StringVar(&addr, "addr", cfg.Server.Addr(), "HTTP listen address")
	flag.StringVar(&tmplPath, "templates", cfg.Site.TemplatesDir, "templates directory")
	flag.StringVar(&pubPath, "public", cfg.Site.PublicDir, "public assets directory")
	flag.Parse()
	cfg.Site.TemplatesDir = tmplPath
	cfg.Site.PublicDir = pubPath

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	go a.results.Run(ctx, janitorInterval)
	go a.ctrl.Run(ctx, janitorInterval)

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web listening",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
			zap.Bool("dev_mode", cfg.Server.DevMode),
			zap.Bool("translate", cfg.Translate.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newApp builds every handler dependency from configuration.
func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	bundle, err := i18n.Load(cfg.Site.LocalesDir, cfg.Site.DefaultLang, []string{"en", "vi"})
	if err != nil {
		return nil, fmt.Errorf("load i18n: %w", err)
	}
	views, err := newTemplateSet(cfg.Site.TemplatesDir, cfg.Server.DevMode, bundle)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	catalog := logo.DefaultCatalog()
	store := results.NewStore(results.WithTTL(cfg.Generator.ResultTTL))
	images := inference.NewClient(cfg.Inference.URL,
		inference.WithToken(cfg.Inference.Token),
		inference.WithTimeout(cfg.Inference.Timeout),
		inference.WithMaxBytes(cfg.Inference.MaxBytes),
	)
	var translator translate.Translator
	if cfg.Translate.Enabled {
		translator = translate.NewClient(cfg.Translate.URL, translate.WithAPIKey(cfg.Translate.APIKey))
	}

	ctrl := generator.New(generator.Config{
		Catalog:    catalog,
		Images:     images,
		Translator: translator,
		Results:    store,
		Logger:     logger.Named("generator"),
		Cooldown:   cfg.Generator.Cooldown,
	})

	pageTTL := 5 * time.Minute
	if cfg.Server.DevMode {
		pageTTL = 0
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		bundle:  bundle,
		catalog: catalog,
		ctrl:    ctrl,
		results: store,
		pages:   content.NewLoader(cfg.Site.ContentDir, content.WithCacheTTL(pageTTL)),
		sessions: mw.NewSessions(mw.SessionOptions{
			SigningKey: cfg.Session.SigningKey,
			Secure:     cfg.Session.Secure,
			Logger:     logger,
		}),
		limiter: ratelimit.NewFixedWindow(cfg.Generator.RateLimitPerMin, time.Minute, nil),
		views:   views,
	}, nil
}
