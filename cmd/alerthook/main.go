// Command alerthook serves the Azure DevOps security alert webhook.
package main

import (
	"context"
	"errors"
	"expvar"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	alerts "github.com/goliatone/go-ado-alerts"
	"github.com/goliatone/go-ado-alerts/adapters/expvarmetrics"
	"github.com/goliatone/go-ado-alerts/adapters/gocommand"
	"github.com/goliatone/go-ado-alerts/adapters/gologger"
	"github.com/goliatone/go-ado-alerts/core"
	"github.com/goliatone/go-ado-alerts/inbound"
	alertmigrations "github.com/goliatone/go-ado-alerts/migrations"
	sqlstore "github.com/goliatone/go-ado-alerts/store/sql"
)

func main() {
	var (
		migrate  = flag.Bool("migrate", true, "apply embedded migrations at startup")
		logLevel = flag.String("log-level", "info", "trace, debug, info, warn or error")
		logJSON  = flag.Bool("log-json", false, "write JSON log records")
		addr     = flag.String("addr", "", "listen address, overrides HTTP_ADDR")
	)
	flag.Parse()

	logger := gologger.NewConsoleLogger(gologger.ConsoleOptions{
		Writer: os.Stdout,
		Level:  *logLevel,
		JSON:   *logJSON,
	})
	provider := gologger.NewConsoleProvider(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runtime := core.Config{}
	if strings.TrimSpace(*addr) != "" {
		runtime.HTTP.Addr = *addr
	}
	cfg, err := core.LoadConfig(ctx, core.EnvConfigLoader{}, runtime)
	if err != nil {
		logger.Fatal("config error", "error", err.Error())
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		logger.Fatal("config error", "error", "DATABASE_URL is required")
	}
	if cfg.Webhook.Secret == "" {
		logger.Warn("webhook secret is not configured, deliveries are not authenticated")
	}

	client, err := sqlstore.SharedClient(ctx, cfg)
	if err != nil {
		logger.Fatal("database connection failed", "driver", cfg.Database.Driver, "error", err.Error())
	}
	defer func() {
		if err := sqlstore.CloseSharedClient(); err != nil {
			logger.Error("database close failed", "error", err.Error())
		}
	}()

	if *migrate {
		if err := alertmigrations.Apply(ctx, client, cfg.Database.Driver); err != nil {
			logger.Fatal("migrations failed", "error", err.Error())
		}
		logger.Info("migrations applied", "driver", cfg.Database.Driver)
	}

	metrics := expvarmetrics.NewRecorder()
	metrics.Publish(expvarmetrics.DefaultName)

	facade, err := alerts.Setup(cfg, alerts.Dependencies{
		Persistence:    client,
		LoggerProvider: provider,
		Metrics:        metrics,
	})
	if err != nil {
		logger.Fatal("service setup failed", "error", err.Error())
	}

	bus := gocommand.NewRegistryAdapter(nil)
	subscriptions, err := facade.Register(bus)
	if err != nil {
		logger.Fatal("command bus setup failed", "error", err.Error())
	}
	defer subscriptions.UnsubscribeAll()
	if err := bus.Initialize(); err != nil {
		logger.Fatal("command registry init failed", "error", err.Error())
	}
	logger.Info("command bus ready", "handlers", subscriptions.Len())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	routerCfg := facade.RouterConfig()
	routerCfg.Logger = provider.GetLogger("http")
	routerCfg.MetricsHandler = expvar.Handler()
	routerCfg.Health = func(ctx context.Context) error {
		shared, err := sqlstore.SharedClient(ctx, cfg)
		if err != nil {
			return err
		}
		return shared.DB().PingContext(ctx)
	}
	engine, err := inbound.NewEngine(routerCfg)
	if err != nil {
		logger.Fatal("router setup failed", "error", err.Error())
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		logger.Info("alerthook listening",
			"addr", cfg.HTTP.Addr,
			"path", routerCfg.Path,
			"environment", cfg.Environment,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err.Error())
	}
	logger.Info("alerthook stopped")
}
