package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-report-auth"
	"github.com/goliatone/go-report-auth/activitymap"
	"github.com/goliatone/go-report-auth/config"
	"github.com/goliatone/go-report-auth/logger"
	"github.com/goliatone/go-report-auth/report"
	"github.com/goliatone/go-report-auth/repository"
)

type App struct {
	config *config.BaseConfig
	logger *logger.BaseLogger
	store  auth.UserStore
	srv    router.Server[*fiber.App]
	web    *fiber.App
	auth   *auth.Auther
	auther auth.HTTPAuthenticator
	close  []func(context.Context) error
}

func (a *App) Config() *config.BaseConfig {
	return a.config
}

func (a *App) GetLogger(name string) auth.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) SetStore(store auth.UserStore) {
	a.store = store
}

func (a *App) OnClose(fn func(context.Context) error) {
	a.close = append(a.close, fn)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	lgr := logger.New(
		logger.WithLevel(cfg.LogLevel),
		logger.WithPretty(cfg.LogPretty),
		logger.WithName("app"),
	)

	if cfg.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybePrettyJSON(cfg))
		fmt.Println("============")
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		lgr.Error("http server setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		lgr.Error("auth setup failed", "error", err)
		os.Exit(1)
	}

	WithReports(ctx, app)

	go func() {
		lgr.Info("server listening", "addr", cfg.Addr())
		if err := app.srv.Serve(cfg.Addr()); err != nil {
			lgr.Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.web.ShutdownWithContext(shutdownCtx); err != nil {
		lgr.Error("server shutdown", "error", err)
	}

	for _, fn := range app.close {
		if err := fn(shutdownCtx); err != nil {
			lgr.Error("resource close", "error", err)
		}
	}
}

// WithPersistence opens the configured store
func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.Config()

	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.SQLiteDSN)
		if err != nil {
			return err
		}

		db := bun.NewDB(sqldb, sqlitedialect.New())
		if err := auth.Migrate(ctx, db); err != nil {
			return err
		}

		repo := auth.NewRepositoryManager(db)
		if err := repo.Validate(); err != nil {
			return err
		}

		app.SetStore(repo.Users())
		app.OnClose(func(context.Context) error { return db.Close() })

	default:
		mngr, err := repository.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, app.GetLogger("persistence"))
		if err != nil {
			return err
		}
		mngr.MustValidate()

		app.SetStore(mngr.Users())
		app.OnClose(mngr.Close)
	}

	app.GetLogger("persistence").Info("store ready", "driver", cfg.DatabaseDriver)
	return nil
}

// WithHTTPServer builds the router over fiber and the global middleware
func WithHTTPServer(ctx context.Context, app *App) error {
	cfg := app.Config()
	httpLogger := app.GetLogger("http")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		web := router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:      "report-api",
			ErrorHandler: errorHandler(httpLogger),
		}))

		web.Use(recover.New())
		web.Use(requestid.New())
		web.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.FrontendURL,
			AllowCredentials: true,
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		}))

		app.web = web
		return web
	})

	srv.Router().Get("/healthz", func(c router.Context) error {
		return c.JSON(router.StatusOK, map[string]string{"status": "ok"})
	}).SetName("healthz.get")

	app.srv = srv
	return nil
}

// WithHTTPAuth mounts the account routes
func WithHTTPAuth(ctx context.Context, app *App) error {
	cfg := app.Config()

	authenticator := auth.NewAuthenticator(app.store, cfg)
	authenticator.WithLogger(app.GetLogger("auth:authz"))
	authenticator.WithActivitySink(activitymap.Sink(
		app.logger.Zerolog().With().Str("logger", "auth:activity").Logger(),
	))
	app.auth = authenticator

	httpAuth, err := auth.NewHTTPAuthenticator(authenticator, cfg)
	if err != nil {
		return err
	}
	httpAuth.WithLogger(app.GetLogger("auth:http"))
	app.auther = httpAuth

	auth.RegisterAuthRoutes(app.srv.Router(),
		auth.WithAuthenticator(authenticator),
		auth.WithHTTPAuthenticator(httpAuth),
		auth.WithControllerLogger(app.GetLogger("auth:ctrl")),
		auth.WithDebug(cfg.Debug),
	)

	return nil
}

// WithReports mounts the report proxy
func WithReports(ctx context.Context, app *App) {
	cfg := app.Config()

	client := report.NewOpenRouterClient(report.OpenRouterConfig{
		APIKey:   cfg.OpenRouterAPIKey,
		BaseURL:  cfg.OpenRouterBaseURL,
		Model:    cfg.OpenRouterModel,
		SiteURL:  cfg.SiteURL,
		SiteName: cfg.SiteName,
		Timeout:  cfg.ReportTimeout,
	}, report.WithLogger(app.GetLogger("report")))

	report.RegisterRoutes(app.srv.Router(), report.NewController(client,
		report.WithControllerLogger(app.GetLogger("report:http")),
		report.WithDebug(cfg.Debug),
	))
}

func errorHandler(lgr auth.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		status, body := auth.ErrorResponse(err, "Erro interno do servidor.")
		lgr.Error("unhandled error", "path", c.OriginalURL(), "error", err)
		return c.Status(status).JSON(body)
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
