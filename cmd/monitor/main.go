package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/ory/graceful"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/apistatus/internal/app"
	"github.com/hamed0406/apistatus/internal/config"
	"github.com/hamed0406/apistatus/internal/domain"
	"github.com/hamed0406/apistatus/internal/httpapi"
	"github.com/hamed0406/apistatus/internal/logging"
	"github.com/hamed0406/apistatus/internal/monitor"
	"github.com/hamed0406/apistatus/internal/notify"
	"github.com/hamed0406/apistatus/internal/probe"
	"github.com/hamed0406/apistatus/internal/scheduler"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	pflag.StringVar(&cfg.TargetsFile, "targets", cfg.TargetsFile, "target list (yaml, json or toml)")
	pflag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	once := pflag.Bool("once", false, "run a single check cycle and exit")
	pflag.Parse()

	if err := run(cfg, *once); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config, once bool) (err error) {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		// stdout sync fails with EINVAL on some terminals
		_ = logger.Sync()
	}()

	targets, err := config.LoadTargets(cfg.TargetsFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, closeStore(cctx))
	}()

	cycle := &monitor.Cycle{
		Logger:  logger,
		Targets: targets,
		Checker: probe.NewHTTPChecker(cfg.CheckTimeout),
		Classifier: monitor.Classifier{
			SlowAfter: cfg.SlowThreshold,
			Location:  cfg.Location(),
		},
		Store:       store,
		DiagnoseDNS: cfg.DiagnoseDNS,
	}
	if slack := notify.NewSlack(cfg.SlackWebhook); slack != nil {
		cycle.Hooks = append(cycle.Hooks, scheduler.NewAlerter(logger, notify.Multi{slack}, scheduler.AlerterConfig{
			AlertOnRecovery: cfg.AlertRecovery,
			Cooldown:        cfg.AlertCooldown,
		}))
		logger.Info("alerts_enabled", zap.Duration("cooldown", cfg.AlertCooldown), zap.Bool("recovery", cfg.AlertRecovery))
	}

	logger.Info("monitor_boot",
		zap.Int("targets", len(targets)),
		zap.String("schedule", cfg.Schedule),
		zap.String("tz", cfg.TimeZone),
		zap.String("history_policy", string(cfg.Policy())),
		zap.Int("history_limit", cfg.HistoryLimit),
	)

	if once {
		rep, err := cycle.Run(ctx)
		fmt.Printf("cycle %s: %d checked in %s (online=%d slow=%d down=%d)\n",
			rep.ID, len(rep.Outcomes), rep.Duration.Round(time.Millisecond),
			rep.Count(domain.StatusOnline), rep.Count(domain.StatusSlow), rep.Count(domain.StatusDown))
		return err
	}

	sched := scheduler.NewScheduler(logger, cycle, cfg.Schedule, cfg.Location(), cfg.RunOnStart)
	api := httpapi.NewServer(logger, cfg.AllowedOrigin)
	srv := graceful.WithDefaults(&http.Server{
		Addr:    cfg.Addr,
		Handler: api.Router(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := graceful.Graceful(srv.ListenAndServe, srv.Shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		logger.Info("api_stopped")
		return nil
	})
	return g.Wait()
}
