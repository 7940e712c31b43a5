package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/obsidianstack/capturestack/agent/internal/api"
	"github.com/obsidianstack/capturestack/agent/internal/auth"
	"github.com/obsidianstack/capturestack/agent/internal/config"
	"github.com/obsidianstack/capturestack/agent/internal/metrics"
	"github.com/obsidianstack/capturestack/agent/internal/query"
	"github.com/obsidianstack/capturestack/agent/internal/workload"
	"github.com/obsidianstack/capturestack/agent/internal/ws"
	"github.com/obsidianstack/capturestack/pkg/async"
	"github.com/obsidianstack/capturestack/pkg/capture"
)

const shutdownTimeout = 10 * time.Second

func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runAgent(ctx, *configPath)
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// setLevel switches the default logger between Info and Debug.
func setLevel(level *slog.LevelVar, debug bool) {
	if debug {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

func runAgent(ctx context.Context, configPath string) error {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	setLevel(level, cfg.Capture.Debug)

	depth, err := capture.ParseDepthMode(cfg.Capture.DepthMode)
	if err != nil {
		return err
	}

	slog.Info("capturestack-agent starting",
		"version", version,
		"config", configPath,
		"max_stacks", cfg.Capture.MaxStacks,
		"depth_mode", depth,
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"auth_mode", cfg.Server.Auth.Mode,
	)

	st := capture.Init(
		capture.WithMaxStacks(cfg.Capture.MaxStacks),
		capture.WithDepthMode(depth),
		capture.WithEnabled(cfg.Capture.Enabled),
		capture.WithDebug(cfg.Capture.Debug),
		capture.WithLogger(logger),
	)
	go st.Run(ctx, cfg.Capture.PruneInterval)

	checker := auth.New(cfg.Server.Auth.Mode, cfg.Server.Auth.EffectiveHeader(), cfg.Server.Auth.Key())
	if cfg.Server.Auth.Mode == "apikey" && !checker.Active() {
		slog.Warn("api key auth configured but key is empty, requests are not checked",
			"key_env", cfg.Server.Auth.KeyEnv)
	}

	// gRPC: stack queries plus health.
	querySvc := query.New(st)
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(checker.UnaryInterceptor()))
	querySvc.Register(grpcSrv)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen grpc port %d: %w", cfg.Server.GRPCPort, err)
	}
	go func() {
		slog.Info("gRPC query service listening", "port", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	// applyControl keeps the logger and gRPC health in step with the store flags.
	applyControl := func(s api.ControlState) {
		setLevel(level, s.Debug)
		querySvc.SetServing(s.Enabled)
	}

	hub := ws.New(st, cfg.Server.StreamInterval)
	go hub.Run(ctx)

	reg, err := metrics.NewRegistry(st)
	if err != nil {
		return err
	}

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(st, applyControl))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", metrics.Handler(reg))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           checker.Middleware(httpMux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, cfg, func(c config.Change) {
				if c.Live() {
					st.SetEnabled(c.New.Capture.Enabled)
					st.SetDebug(c.New.Capture.Debug)
					applyControl(api.ControlState{Enabled: c.New.Capture.Enabled, Debug: c.New.Capture.Debug})
					slog.Info("config hot-reloaded",
						"enabled", c.New.Capture.Enabled,
						"debug", c.New.Capture.Debug)
				}
				if len(c.Restart) > 0 {
					slog.Warn("config changes need a restart to take effect", "fields", c.Restart)
				}
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	if cfg.Demo.Enabled {
		exec := async.NewExecutor(st, runtime.GOMAXPROCS(0), cfg.Demo.Fanout)
		defer exec.Close()
		go workload.New(st, exec, cfg.Demo.Interval, cfg.Demo.Fanout).Run(ctx)
	}

	<-ctx.Done()
	slog.Info("capturestack-agent shutting down")

	querySvc.Shutdown()
	grpcSrv.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
