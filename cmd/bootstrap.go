package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/flameberry/PrimePatrol/config"
	"github.com/flameberry/PrimePatrol/models"
	"github.com/flameberry/PrimePatrol/observability"
	"github.com/flameberry/PrimePatrol/utils"
)

// app is what every service command needs before it starts serving.
type app struct {
	cfg     config.AppConfig
	service string
	ctx     context.Context

	stop          context.CancelFunc
	traceShutdown func(context.Context) error
}

// bootstrap loads configuration and brings up logging, Sentry and tracing for service.
// The returned context is cancelled on SIGINT or SIGTERM.
func bootstrap(service string) (*app, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment variables")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(service); err != nil {
		return nil, fmt.Errorf("invalid %s configuration: %w", service, err)
	}
	if err := utils.InitLogger(cfg.Log, service); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if on, err := observability.InitSentry(cfg.Observability.SentryDSN, cfg.App.Environment, service); err != nil {
		utils.Logger.Warn("sentry disabled", zap.Error(err))
	} else if on {
		utils.Logger.Info("sentry enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	traceShutdown, err := observability.InitTracing(ctx, cfg.Observability.ServiceName+"-"+service, cfg.Observability.OTLPEndpoint)
	if err != nil {
		stop()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	return &app{cfg: cfg, service: service, ctx: ctx, stop: stop, traceShutdown: traceShutdown}, nil
}

// close flushes telemetry. Call it once the server has returned.
func (rt *app) close() {
	rt.stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.traceShutdown(ctx); err != nil {
		utils.Logger.Warn("tracer shutdown", zap.Error(err))
	}
	observability.FlushSentry()
	_ = utils.Logger.Sync()
}

func (rt *app) serve(handler http.Handler) error {
	addr := ":" + rt.cfg.PortFor(rt.service)
	utils.Sugar.Infof("Starting %s service on %s (graceful)", rt.service, addr)
	if err := utils.GraceServer(rt.ctx, addr, handler); err != nil {
		return fmt.Errorf("%s server stopped: %w", rt.service, err)
	}
	utils.Sugar.Infof("%s service shut down gracefully", rt.service)
	return nil
}

// modelsFor lists the tables a service owns.
func modelsFor(service string) []interface{} {
	switch service {
	case config.ServicePost:
		return []interface{}{&models.Post{}, &models.WorkerActivity{}, &models.OutboxEvent{}}
	case config.ServiceWorker:
		return []interface{}{&models.Worker{}}
	case config.ServiceUser:
		return []interface{}{&models.User{}}
	default:
		return nil
	}
}
