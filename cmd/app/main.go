package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"app/cfg"
	"app/internal/app/api"
	"app/internal/app/monitoring"
	"app/internal/app/synthesizer"
	"app/pkg/audio"
	"app/pkg/engine"
	"app/pkg/ffmpeg"
	"app/pkg/synth"
	"app/pkg/voices"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "cfg-path", "cfg/cfg.yaml", "path to config file")
	flag.Parse()

	var cfg *cfg.Config
	if cfgFile, err := os.ReadFile(cfgPath); err != nil {
		log.Fatalf("can't open %s file: %v", cfgPath, err)
	} else if err = yaml.Unmarshal(cfgFile, &cfg); err != nil {
		log.Fatal("can't unmarshal cfg.yaml file", err)
	}

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: slog.LevelInfo,
	}))

	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	monitoring.RegisterMetrics(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := voices.NewCatalog(&cfg.Voices)
	if err := catalog.Refresh(); err != nil {
		log.Fatal("failed to scan voice directory: ", err)
	}

	if catalog.Degraded() {
		logger.Warn("voice directory missing, serving empty catalog", "dir", cfg.Voices.Dir)
	} else {
		logger.Info("voice catalog ready", "voices", catalog.Len())
	}

	handle := engine.NewHandle(engine.ProcessLoader(&cfg.Engine, logger.WithGroup("engine")))
	defer handle.Close()

	queue := synth.NewQueue(handle, &cfg.Synth)
	defer queue.Close()

	encoder := audio.NewEncoder(ffmpeg.New(&cfg.Ffmpeg))

	service := synthesizer.New(logger.WithGroup("synthesizer"), catalog,
		voices.StaticAliases(cfg.Voices.Aliases), handle, queue, encoder)

	apiServer := api.NewAPI(&cfg.Api, logger.WithGroup("api"), service, catalog, handle, &cfg.Engine, reg)

	srv := &http.Server{
		Addr:           ":" + strconv.Itoa(cfg.Api.Port),
		Handler:        apiServer.NewRouter(),
		ReadTimeout:    cfg.Api.Timeout,
		MaxHeaderBytes: 1 << 20,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Api.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ListenAndServe finished", "err", err)

			return err
		}

		return nil
	})

	if cfg.Voices.Watch {
		g.Go(func() error {
			logger.Info("Starting voice directory watcher", "dir", cfg.Voices.Dir)

			return catalog.Watch(gCtx, logger.WithGroup("voices"))
		})
	}

	if cfg.Engine.Warmup {
		g.Go(func() error {
			logger.Info("Warming up model")

			if err := handle.EnsureReady(gCtx); err != nil {
				logger.Error("model warmup failed", "err", err)

				return nil // requests keep failing with 503 until reload
			}

			logger.Info("Model ready", "info", handle.Info())

			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-gCtx.Done():
		case <-stop:
			logger.Info("Interrupt triggered")
			cancel()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
