// Command cadenza runs the audio-command scheduler against the simulated
// device backend, reading commands from stdin the way the host user-agent
// would forward them. It exists for development and demos; in production
// the scheduler is embedded in the user-agent's call session.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/cadenza/internal/command"
	"github.com/MrWong99/cadenza/internal/config"
	"github.com/MrWong99/cadenza/internal/observe"
	"github.com/MrWong99/cadenza/internal/sched"
	"github.com/MrWong99/cadenza/pkg/audio/sim"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "cadenza: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "cadenza: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("cadenza starting",
		"config", *configPath,
		"audio_path", cfg.Audio.Path,
		"sample_rate", cfg.Audio.SampleRate,
		"channels", cfg.Audio.Channels,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "cadenza"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	scheduler := sched.New(sim.Player{}, sim.Capture{}, sched.Config{
		AudioPath:   cfg.Audio.Path,
		Params:      cfg.Audio.StreamParams(),
		AlertModule: cfg.Alert.Module,
		AlertDevice: cfg.Alert.Device,
	})

	router := command.NewRouter()
	command.BindScheduler(router, scheduler)

	g, gctx := errgroup.WithContext(ctx)

	// /metrics endpoint for the Prometheus exporter bridge.
	if cfg.Server.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}

		g.Go(func() error {
			slog.Info("metrics listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// Command loop: one line per command, reply on stdout. The reader runs
	// outside the group so a blocked stdin read cannot hold up shutdown;
	// the process exit reaps it.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-gctx.Done():
				return
			}
		}
	}()

	g.Go(func() error {
		defer stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil // stdin closed — shut down
				}
				if line == "" {
					continue
				}
				reply, err := router.Dispatch(line)
				if err != nil {
					slog.Warn("command rejected", "line", line, "err", err)
					continue
				}
				if reply != "" {
					fmt.Println(reply)
				}
			}
		}
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
	}

	slog.Info("shutting down")
	if cerr := scheduler.Close(); cerr != nil {
		slog.Error("scheduler close error", "err", cerr)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if terr := shutdownTelemetry(shutdownCtx); terr != nil {
		slog.Error("telemetry shutdown error", "err", terr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// newLogger builds the process logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
