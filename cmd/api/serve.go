package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"b2bmarket/internal/adapter/api"
	"b2bmarket/internal/adapter/api/handler"
	"b2bmarket/internal/adapter/api/middleware"
	"b2bmarket/internal/adapter/api/router"
	"b2bmarket/internal/adapter/notification"
	"b2bmarket/internal/infrastructure/ratelimit"
	"b2bmarket/internal/infrastructure/telemetry"
	"b2bmarket/internal/infrastructure/websocket"
	"b2bmarket/internal/usecase"
	"b2bmarket/pkg/config"
	"b2bmarket/pkg/logger"
	"b2bmarket/pkg/response"
)

const shutdownTimeout = 15 * time.Second

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Configure(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		return err
	}

	opt, err := firebaseOption(cfg)
	if err != nil {
		return err
	}

	repos, err := openRepositories(ctx, cfg, opt)
	if err != nil {
		return err
	}
	defer repos.close()

	verifier, closeVerifier, err := newTokenVerifier(ctx, cfg, opt)
	if err != nil {
		return err
	}
	defer closeVerifier()

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	dispatcher := notification.NewDispatcher(cfg.NotifyTimeout,
		notification.LogSink{},
		notification.NewPushSink(wsManager),
		notification.NewAuditSink(repos.audit),
	)

	negotiationUseCase := usecase.NewNegotiationUseCase(repos.negotiations, repos.products, repos.users, dispatcher)
	intentUseCase := usecase.NewPurchaseIntentUseCase(repos.intents, repos.products, repos.negotiations, repos.audit, dispatcher)

	actionLimiter := ratelimit.NewRateLimiter(map[string]ratelimit.Policy{
		ratelimit.ActionSendMessage:       ratelimit.PerMinute(cfg.MessageRatePerMinute),
		ratelimit.ActionCreateNegotiation: ratelimit.PerHour(cfg.CreateRatePerHour),
		ratelimit.ActionCreateIntent:      ratelimit.PerHour(cfg.CreateRatePerHour),
	}, ratelimit.PerMinute(60))
	ipLimiter := ratelimit.NewRateLimiter(nil, ratelimit.PerMinute(300))
	actionLimiter.StartCleanupRoutine(30*time.Minute, ctx.Done())
	ipLimiter.StartCleanupRoutine(30*time.Minute, ctx.Done())

	authMiddleware := middleware.NewAuthMiddleware(verifier, repos.users)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.HTTPErrorHandler
	e.Validator = api.NewValidator()

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.PerIP(ipLimiter))

	router.Setup(e, router.Handlers{
		Negotiation:    handler.NewNegotiationHandler(negotiationUseCase),
		PurchaseIntent: handler.NewPurchaseIntentHandler(intentUseCase),
		Health:         handler.NewHealthHandler(cfg.StorageDriver, repos.pinger),
		WebSocket:      handler.NewWebSocketHandler(wsManager, authMiddleware, nil),
	}, authMiddleware, actionLimiter)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           otelhttp.NewHandler(e, cfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server on port %s (storage=%s, auth=%s)", cfg.ServerPort, cfg.StorageDriver, cfg.AuthProvider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown: %v", err)
		}
		if err := dispatcher.Wait(shutdownCtx); err != nil {
			logger.Warn("Notifications still in flight at shutdown: %v", err)
		}
		return shutdownTracer(shutdownCtx)
	})

	return g.Wait()
}
