package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"catalogservice/pkg/catalog/app"
	"catalogservice/pkg/catalog/application/bootstrap"
	"catalogservice/pkg/catalog/infrastructure/mysql"
)

const envFileFlag = "env-file"

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		waitForKillSignalChan(getKillSignalChan())
		cancel()
	}()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("catalog stopped")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "catalog",
		Usage: "product catalog web application",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  envFileFlag,
				Value: ".env",
				Usage: "optional dotenv file loaded before reading the environment",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "wait for the store, then serve HTTP",
				Action: serve,
			},
			{
				Name:   "bootstrap",
				Usage:  "wait for the store, create the schema and seed it, then exit",
				Action: runBootstrap,
			},
		},
	}
}

func setup(c *cli.Context) (*config, func(), error) {
	cfg, err := loadConfig(c.String(envFileFlag))
	if err != nil {
		return nil, nil, err
	}

	closeLog := func() {}
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.WithError(err).Warn("Cannot open log file, logging to stderr")
		} else {
			log.SetOutput(file)
			closeLog = func() { file.Close() }
		}
	}
	return cfg, closeLog, nil
}

func runBootstrap(c *cli.Context) error {
	cfg, closeLog, err := setup(c)
	if err != nil {
		return err
	}
	defer closeLog()

	sequencer := bootstrap.NewSequencer(mysql.NewConnector(cfg.storeConfig()), cfg.bootstrapConfig())
	return sequencer.EnsureReady(c.Context)
}

func serve(c *cli.Context) error {
	cfg, closeLog, err := setup(c)
	if err != nil {
		return err
	}
	defer closeLog()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// No listener is opened until the store is ready.
	handler, err := app.NewHandler(c.Context, cfg.appConfig(registry))
	if err != nil {
		return err
	}

	servers := []*http.Server{newServer(cfg.ServeAddress, handler)}
	if cfg.MetricsAddress != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		servers = append(servers, newServer(cfg.MetricsAddress, metricsMux))
	}

	g, ctx := errgroup.WithContext(c.Context)
	for _, srv := range servers {
		g.Go(func() error {
			log.WithFields(log.Fields{"url": srv.Addr}).Info("Starting server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "listen on %s", srv.Addr)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).WithField("url", srv.Addr).Error("Failed to shut down server")
			}
		}
		return nil
	})
	return g.Wait()
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func waitForKillSignalChan(killSignalChan <-chan os.Signal) {
	killSignal := <-killSignalChan
	switch killSignal {
	case os.Interrupt:
		log.Info("Got SIGINT...")
	case syscall.SIGTERM:
		log.Info("Got SIGTERM...")
	}
}
