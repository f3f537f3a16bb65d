// Package daemon runs one graph fed by one source, together with its metrics
// endpoint and control socket, until the source is exhausted or a signal
// arrives.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"firestige.xyz/pktgraph/internal/checksum"
	"firestige.xyz/pktgraph/internal/config"
	"firestige.xyz/pktgraph/internal/control"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/element"
	"firestige.xyz/pktgraph/internal/elements"
	"firestige.xyz/pktgraph/internal/graph"
	"firestige.xyz/pktgraph/internal/log"
	"firestige.xyz/pktgraph/internal/metrics"
	"firestige.xyz/pktgraph/internal/source"
)

type Daemon struct {
	config     *config.GlobalConfig
	configPath string
	registry   *element.Registry

	sink          *diag.LogSink
	graph         *graph.Graph
	runner        *graph.Runner
	control       *control.Server
	metricsServer *metrics.Server // nil if metrics disabled

	ctx         context.Context
	cancel      context.CancelFunc
	controlDone chan error
	sigChan     chan os.Signal
	stopOnce    sync.Once
	stopErr     error
}

// New loads the configuration at configPath.
func New(configPath string) (*Daemon, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	d := NewWithConfig(cfg)
	d.configPath = configPath
	return d, nil
}

// NewWithConfig uses an already validated configuration.
func NewWithConfig(cfg *config.GlobalConfig) *Daemon {
	d := &Daemon{
		config:   cfg,
		registry: elements.NewRegistry(),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d
}

// Start initializes logging, builds the graph and starts every component.
func (d *Daemon) Start() error {
	if err := log.Init(d.config.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger := log.GetLogger()
	logger.WithField("config", d.configPath).WithField("checksum", d.config.Checksum).Info("starting pktgraph")

	if err := d.startMetrics(); err != nil {
		return err
	}

	mode, err := checksum.ParseMode(d.config.Checksum)
	if err != nil {
		return err
	}
	d.sink = diag.NewLogSink(logger.WithField("component", "diag"), d.config.Diag.QueueSize)
	g, err := graph.Build(d.config.Graph, d.registry, element.NewEnv(d.sink, mode))
	if err != nil {
		d.sink.Close()
		return fmt.Errorf("failed to build graph: %w", err)
	}
	d.graph = g

	src, err := source.New(d.config.Source)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	d.runner = graph.NewRunner(g, src, d.config.Runner.BufferSize)

	if d.config.Control.Enabled {
		h := control.NewHandler(g)
		h.SetRunnerStats(d.runner.Stats)
		d.control = control.NewServer(d.config.Control.Socket, h)
		if err := d.control.Listen(); err != nil {
			return fmt.Errorf("failed to start control server: %w", err)
		}
		d.controlDone = make(chan error, 1)
		go func() { d.controlDone <- d.control.Serve(d.ctx) }()
	}

	return d.runner.Start()
}

func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		log.GetLogger().Debug("metrics server disabled")
		return nil
	}
	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
	if err := d.metricsServer.Start(d.ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

// Run blocks until the source is exhausted, SIGINT or SIGTERM arrives, or
// ctx is cancelled. SIGHUP reloads the configuration file.
func (d *Daemon) Run(ctx context.Context) error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(d.sigChan)

	logger := log.GetLogger()
	for {
		select {
		case sig := <-d.sigChan:
			if sig == syscall.SIGHUP {
				if err := d.Reload(); err != nil {
					logger.WithError(err).Error("failed to reload config")
				}
				continue
			}
			logger.WithField("signal", sig.String()).Info("received shutdown signal")
			return d.Stop()

		case <-d.runner.Done():
			logger.WithField("received", d.runner.Stats().Received).Info("source exhausted")
			return d.Stop()

		case <-ctx.Done():
			return errors.Join(ctx.Err(), d.Stop())
		}
	}
}

// Stop shuts every component down once. The capture error, if any, is
// returned.
func (d *Daemon) Stop() error {
	d.stopOnce.Do(func() {
		logger := log.GetLogger()
		var errs []error
		if d.runner != nil {
			errs = append(errs, d.runner.Stop())
		}
		if d.graph != nil {
			d.logStats()
			errs = append(errs, d.graph.Close())
		}
		d.cancel()
		if d.controlDone != nil {
			errs = append(errs, <-d.controlDone)
		}
		if d.metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			errs = append(errs, d.metricsServer.Stop(shutdownCtx))
			cancel()
		}
		if d.sink != nil {
			d.sink.Close()
			if n := d.sink.Dropped(); n > 0 {
				logger.WithField("dropped", n).Warn("diagnostic lines dropped")
			}
		}
		d.stopErr = errors.Join(errs...)
		logger.Info("pktgraph stopped")
	})
	return d.stopErr
}

func (d *Daemon) logStats() {
	logger := log.GetLogger()
	for _, s := range d.graph.Stats() {
		logger.WithFields(map[string]interface{}{
			"element":     s.Name,
			"class":       s.Class,
			"received":    s.Received,
			"consumed":    s.Consumed,
			"unconnected": s.Unconnected,
			"emitted":     s.Emitted,
		}).Info("element stats")
	}
}

// Reload re-reads the configuration file. Log settings and element
// arguments are applied in place; anything else needs a restart.
func (d *Daemon) Reload() error {
	if d.configPath == "" {
		return errors.New("no configuration file to reload")
	}
	logger := log.GetLogger()
	logger.WithField("path", d.configPath).Info("reloading configuration")

	newConfig, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	if err := log.Init(newConfig.Log); err != nil {
		logger.WithError(err).Error("failed to reinitialize logging")
	}
	d.config.Log = newConfig.Log

	applied, restart, err := d.reconfigureElements(newConfig.Graph)
	if newConfig.Graph.Entry != d.config.Graph.Entry ||
		!slices.Equal(newConfig.Graph.Connections, d.config.Graph.Connections) {
		restart = append(restart, "connections")
	}
	log.GetLogger().WithField("reconfigured", applied).WithField("requires_restart", restart).
		Info("configuration reloaded")
	return err
}

// reconfigureElements rewrites the config handler of every element whose
// arguments changed. Added, removed or reclassed elements are reported.
func (d *Daemon) reconfigureElements(next config.GraphConfig) (applied, restart []string, err error) {
	current := make(map[string]config.ElementConfig, len(d.config.Graph.Elements))
	for _, ec := range d.config.Graph.Elements {
		current[ec.Name] = ec
	}

	var errs []error
	for _, ec := range next.Elements {
		old, ok := current[ec.Name]
		delete(current, ec.Name)
		if !ok || old.Class != ec.Class {
			restart = append(restart, ec.Name)
			continue
		}
		oldArgs, newArgs := config.JoinArgs(old.Arguments()), config.JoinArgs(ec.Arguments())
		if oldArgs == newArgs {
			continue
		}
		if err := d.graph.WriteHandler(ec.Name+".config", newArgs); err != nil {
			errs = append(errs, err)
			continue
		}
		for i := range d.config.Graph.Elements {
			if d.config.Graph.Elements[i].Name == ec.Name {
				d.config.Graph.Elements[i] = ec
			}
		}
		applied = append(applied, ec.Name)
	}
	for name := range current {
		restart = append(restart, name)
	}
	return applied, restart, errors.Join(errs...)
}

// Graph returns the running graph, nil before Start.
func (d *Daemon) Graph() *graph.Graph { return d.graph }
