package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/canopy"
	httpadapter "github.com/aretw0/canopy/pkg/adapters/http"
	"github.com/aretw0/canopy/pkg/agent"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [tree.yaml]",
		Short: "Serve agents over HTTP",
		Long: `Starts the HTTP API. With a tree definition, POST /agents starts new agents
from it and --start launches agents at boot.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd, args)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default: http.addr)")
	cmd.Flags().StringSlice("start", nil, "Agent IDs to start from the tree at boot")
	return cmd
}

func (a *app) serve(ctx context.Context, cmd *cobra.Command, args []string) error {
	addr := a.cfg.HTTP.Addr
	if cmd.Flags().Changed("addr") {
		addr, _ = cmd.Flags().GetString("addr")
	}
	startIDs, _ := cmd.Flags().GetStringSlice("start")
	if len(startIDs) > 0 && len(args) == 0 {
		return errors.New("--start needs a tree definition")
	}

	streams := httpadapter.NewStreamManager(httpadapter.WithStreamLogger(a.logger))
	sinks := []ports.EventSink{observability.NewLogSink(a.logger), streams}
	handlerOpts := []httpadapter.Option{
		httpadapter.WithLogger(a.logger),
		httpadapter.WithStreams(streams),
	}
	if a.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}
		sinks = append(sinks, metrics)
		handlerOpts = append(handlerOpts, httpadapter.WithGatherer(reg))
	}
	if a.cfg.Metrics.Tracing {
		sinks = append(sinks, observability.NewTracer(nil))
	}
	sink := observability.NewMulti(sinks...)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	mode, err := agent.ParseMode(a.cfg.Agent.Mode)
	if err != nil {
		return err
	}
	defaults := []agent.Option{
		agent.WithLogger(a.logger),
		agent.WithMode(mode),
		agent.WithInterval(a.cfg.Agent.Interval),
	}
	if store != nil {
		defaults = append(defaults, agent.WithStore(store))
	}
	manager := session.NewManager(session.WithLogger(a.logger), session.WithAgentOptions(defaults...))
	// Agents outlive the signal; StopAll checkpoints them on shutdown.
	agentCtx := context.WithoutCancel(ctx)

	if len(args) == 1 {
		path := args[0]
		exec, err := a.buildExecutor(path)
		if err != nil {
			return err
		}
		def, t, err := a.loadTree(path, exec, canopy.WithSink(sink))
		if err != nil {
			return err
		}
		handlerOpts = append(handlerOpts, httpadapter.WithTemplate(agentCtx, t))
		handlerOpts = append(handlerOpts, func(s *httpadapter.Server) {
			s.Template.Blackboard = func(values map[string]any) (domain.Blackboard, error) {
				return canopy.Blackboard(def, values)
			}
		})

		bb, err := canopy.Blackboard(def, nil)
		if err != nil {
			return err
		}
		for _, id := range startIDs {
			if _, err := manager.Start(agentCtx, id, t, agent.WithBlackboard(bb)); err != nil {
				return fmt.Errorf("start %s: %w", id, err)
			}
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpadapter.NewHandler(manager, handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", srv.Addr, "metrics", a.cfg.Metrics.Enabled)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		_ = manager.StopAll(context.Background())
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
		a.logger.Info("shutting down", "agents", manager.Len())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
		_ = srv.Close()
	}
	if err := manager.StopAll(shutdownCtx); err != nil {
		return fmt.Errorf("stop agents: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
