package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/cokelateh-api/internal/application/approval"
	"github.com/jhoicas/cokelateh-api/internal/application/audit"
	"github.com/jhoicas/cokelateh-api/internal/application/rd"
	"github.com/jhoicas/cokelateh-api/internal/application/session"
	"github.com/jhoicas/cokelateh-api/internal/application/stock"
	"github.com/jhoicas/cokelateh-api/internal/application/users"
	"github.com/jhoicas/cokelateh-api/internal/infrastructure/identity"
	"github.com/jhoicas/cokelateh-api/internal/infrastructure/metrics"
	"github.com/jhoicas/cokelateh-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/cokelateh-api/internal/interfaces/http"
	"github.com/jhoicas/cokelateh-api/pkg/config"
	"github.com/jhoicas/cokelateh-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Msg("migraciones aplicadas")
	}

	userRepo := postgres.NewUserRepository(pool)
	credentialRepo := postgres.NewCredentialRepository(pool)
	snapshotRepo := postgres.NewSessionSnapshotRepository(pool)
	auditRepo := postgres.NewAuditLogRepository(pool)
	ingredientRepo := postgres.NewIngredientRepository(pool)
	stockRepo := postgres.NewStockRepository(pool)
	rdRepo := postgres.NewRDRepository(pool)
	approvalRepo := postgres.NewApprovalFormRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	auditUC := audit.NewUseCase(auditRepo)

	// Sin pasarela SMS: los códigos del segundo factor se escriben en el log.
	codeSender := identity.NewLogCodeSender(log.Component("mfa"))
	provider := identity.NewProvider(credentialRepo, codeSender, identity.Config{
		CodeTTL:         cfg.Auth.MFACodeTTL,
		MaxFailedLogins: cfg.Auth.MaxFailedLogins,
		LockoutWindow:   cfg.Auth.LockoutWindow,
	}, log.Component("identity"))

	sessionLog := log.Component("session")
	sessions := session.NewRegistry(func(sid string) *session.Manager {
		return session.NewManager(session.Config{
			SessionID:           sid,
			BootstrapAdminEmail: cfg.Auth.BootstrapAdminEmail,
			LoginTimeout:        cfg.Auth.LoginTimeout,
		}, session.Deps{
			Provider:  provider,
			Users:     userRepo,
			Snapshots: snapshotRepo,
			Audit:     auditUC,
			Verifier:  codeSender,
			Log:       sessionLog,
		})
	})

	// Libera gestores inactivos; la sesión se restaura de su copia persistida.
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go sessions.Run(janitorCtx, sessionSweepInterval(cfg.Auth.SessionIdle), cfg.Auth.SessionIdle, sessionLog)

	prefix := strings.ReplaceAll(cfg.App.Name, "-", "_")
	appMetrics := metrics.New(prefix, sessions.Len)

	stockUC := stock.NewUseCase(stock.Config{
		Ceiling:      cfg.Stock.Ceiling,
		QuietWindow:  cfg.Stock.QuietWindow,
		RetryBase:    cfg.Stock.RetryBase,
		MaxRetries:   cfg.Stock.MaxRetries,
		Debounce:     cfg.Stock.Debounce,
		WriteTimeout: cfg.Stock.WriteTimeout,
	}, stock.Deps{
		Stock:       stockRepo,
		Ingredients: ingredientRepo,
		Audit:       auditUC,
		Metrics:     appMetrics,
		Scheduler:   stock.SystemScheduler(),
		IsRetryable: postgres.IsConnectionError,
		Log:         log.Component("stock"),
	})
	if err := stockUC.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("carga inicial de stock")
	}

	usersUC := users.NewUseCase(userRepo, provider, auditUC, log.Component("users"))
	rdUC := rd.NewUseCase(rdRepo, txRunner, auditUC, log.Component("rd"))
	approvalUC := approval.NewUseCase(approvalRepo, txRunner, auditUC, log.Component("approval"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	if cfg.Metrics.Enabled {
		app.Use(appMetrics.Middleware())
		app.Get(cfg.Metrics.Path, appMetrics.Handler())
	}

	// Swagger UI en local: http://localhost:<port>/docs
	if cfg.App.SwaggerFile != "" {
		if _, err := os.Stat(cfg.App.SwaggerFile); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: cfg.App.SwaggerFile,
				Path:     "docs",
				Title:    "Cokelateh API",
			}))
		} else {
			log.Warn().Str("file", cfg.App.SwaggerFile).Msg("swagger no disponible")
		}
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Sessions:     sessions,
		StockUC:      stockUC,
		ApprovalUC:   approvalUC,
		RDUC:         rdUC,
		UsersUC:      usersUC,
		AuditUC:      auditUC,
		LoginMetrics: appMetrics,
		JWT:          cfg.JWT,
		CookieSecure: cfg.HTTP.CookieSecure,
		Log:          log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Cancela guardados diferidos y reintentos en curso.
	stockUC.Close()
	stopJanitor()

	log.Info().Msg("aplicación detenida")
}

func sessionSweepInterval(idle time.Duration) time.Duration {
	if d := idle / 4; d > time.Minute {
		return d
	}
	return time.Minute
}
