package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solarassess/pkg/config"
	"solarassess/pkg/gateway"
	"solarassess/pkg/history"
	"solarassess/pkg/llm/middleware/metrics"
	"solarassess/pkg/logx"
	"solarassess/pkg/webui"
	"solarassess/pkg/workflow"
)

// app holds the wired components shared by every run mode.
type app struct {
	gateway   *gateway.Client
	workflow  *workflow.Workflow
	history   *history.Store // nil when history is disabled
	usage     *metrics.InternalRecorder
	registry  *prometheus.Registry // nil when metrics are disabled
	exportDir string               // empty when artifact export is disabled
	logger    *logx.Logger
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{
		usage:  metrics.NewInternalRecorder(),
		logger: logx.NewLogger("solarassess"),
	}

	var recorder metrics.Recorder = a.usage
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder = metrics.Multi(metrics.NewPrometheusRecorder(a.registry), a.usage)
	}

	gw, err := gateway.NewFromConfig(ctx, cfg, recorder)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	a.gateway = gw
	if !gw.Available() {
		a.logger.Warn("Provider unavailable, assessments will fail until configured: %v", gw.UnavailableReason())
	} else {
		a.logger.Info("Using text model %s and image model %s", gw.TextModel(), gw.ImageModel())
	}

	opts := []workflow.Option{workflow.WithObserver(recorder)}
	if cfg.History != nil && cfg.History.Enabled {
		store, err := history.Open(config.ResolvePath(cfg.History.DBFile))
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		a.history = store
		opts = append(opts, workflow.WithHistory(store))
	}
	a.workflow = workflow.New(gw, opts...)

	if cfg.Artifacts != nil && cfg.Artifacts.Enabled {
		a.exportDir = config.ResolvePath(cfg.Artifacts.OutputDir)
	}
	return a, nil
}

// Close releases the history database.
func (a *app) Close() {
	if a.history == nil {
		return
	}
	if err := a.history.Close(); err != nil {
		a.logger.Error("Failed to close history: %v", err)
	}
}

// newWebServer wires every optional web UI surface the app provides.
func newWebServer(a *app, projectDir string) *webui.Server {
	srv := webui.NewServer(a.workflow, projectDir)
	srv.SetGatewayStatus(a.gateway)
	srv.SetUsage(a.usage)
	if a.history != nil {
		srv.SetHistory(a.history)
	}
	if a.registry != nil {
		srv.SetMetricsHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	}
	return srv
}

func runWeb(ctx context.Context, a *app, cfg config.Config, projectDir string) error {
	if cfg.WebUI == nil || !cfg.WebUI.Enabled {
		return fmt.Errorf("web UI is disabled in config; use -tui or -address/-needs")
	}

	srv := newWebServer(a, projectDir)
	if err := srv.StartServer(ctx, cfg.WebUI.Host, cfg.WebUI.Port); err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	logx.Infof("Web UI available at http://%s:%d", cfg.WebUI.Host, cfg.WebUI.Port)

	<-ctx.Done()
	logx.Infof("Shutdown requested; waiting for in-flight operations")
	srv.Wait()
	logx.Infof("Shut down cleanly")
	return nil
}
