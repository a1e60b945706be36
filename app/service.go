// Package app wires the configuration, the synchronization engine and its
// surrounding infrastructure into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/evsync/api/admin"
	"github.com/kilianp07/evsync/config"
	"github.com/kilianp07/evsync/core/events"
	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/core/journal"
	coremon "github.com/kilianp07/evsync/core/monitoring"
	"github.com/kilianp07/evsync/core/remote"
	"github.com/kilianp07/evsync/core/syncengine"
	journalstore "github.com/kilianp07/evsync/infra/journal"
	"github.com/kilianp07/evsync/infra/logger"
	"github.com/kilianp07/evsync/infra/metrics"
	"github.com/kilianp07/evsync/infra/monitoring"
	"github.com/kilianp07/evsync/infra/mqtt"
	"github.com/kilianp07/evsync/infra/ochp"
	"github.com/kilianp07/evsync/internal/eventbus"
)

const flushTimeout = 2 * time.Second

// Service runs the synchronization engine together with the change feed,
// the outcome sinks and the metrics endpoint.
type Service struct {
	Engine *syncengine.Engine

	cfg     *config.Config
	feed    *mqtt.Feed
	sink    *metrics.MultiSink
	faults  coremon.FaultSink
	journal journal.Store
	bus     *eventbus.Bus[eventbus.Event]
	log     logger.Logger
}

// New creates a Service talking to the configured clearing house.
func New(cfg *config.Config) (*Service, error) {
	client, err := ochp.New(cfg.Remote)
	if err != nil {
		return nil, fmt.Errorf("remote client: %w", err)
	}
	return NewWithClient(cfg, client)
}

// NewWithClient creates a Service using the given remote client.
func NewWithClient(cfg *config.Config, client remote.Client) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	sink, err := metrics.NewSink(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("outcome sinks: %w", err)
	}
	faults, err := monitoring.NewSentryFaultSink(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	bus := eventbus.New[eventbus.Event](eventbus.DefaultBuffer)
	svc := &Service{cfg: cfg, sink: sink, faults: faults, bus: bus, log: logg}
	if cfg.Journal.Enabled() {
		store, err := journalstore.Open(cfg.Journal)
		if err != nil {
			_ = sink.Close()
			return nil, fmt.Errorf("journal: %w", err)
		}
		svc.journal = store
	}

	opts := []syncengine.Option{
		syncengine.WithLogger(logger.New("syncengine")),
		syncengine.WithFaultSink(faults),
		syncengine.WithBus(bus),
		syncengine.WithRecorder(sink),
	}
	if cfg.MQTT.Enabled() {
		// The feed is created after the engine; the source resolves it lazily.
		opts = append(opts, syncengine.WithStatusSource(syncengine.StatusSourceFunc(svc.snapshot)))
	}
	engine, err := syncengine.New(cfg.Sync, client, opts...)
	if err != nil {
		svc.closeJournal()
		return nil, fmt.Errorf("sync engine: %w", err)
	}
	svc.Engine = engine

	if cfg.MQTT.Enabled() {
		feed, err := mqtt.NewFeed(cfg.MQTT, engine)
		if err != nil {
			_ = engine.Close()
			svc.closeJournal()
			return nil, fmt.Errorf("change feed: %w", err)
		}
		svc.feed = feed
	}
	return svc, nil
}

func (s *Service) closeJournal() {
	if s.journal != nil {
		_ = s.journal.Close()
	}
}

func (s *Service) snapshot(ctx context.Context) ([]model.EVSE, error) {
	if s.feed == nil {
		return nil, errors.New("change feed not started")
	}
	return s.feed.Snapshot(ctx)
}

// Run starts the service and blocks until the context is cancelled or a
// component fails.
func (s *Service) Run(ctx context.Context) error {
	if s.feed != nil {
		if err := s.feed.Start(ctx); err != nil {
			return fmt.Errorf("change feed: %w", err)
		}
	}
	g, ctx := errgroup.WithContext(ctx)

	metrics.StartEventCollector(ctx, s.bus, s.sink)
	sub := s.bus.Subscribe()
	g.Go(func() error {
		defer s.bus.Unsubscribe(sub)
		s.logEvents(ctx, sub)
		return nil
	})
	if s.journal != nil {
		jsub := s.bus.Subscribe()
		g.Go(func() error {
			defer s.bus.Unsubscribe(jsub)
			journal.Collect(ctx, jsub, s.journal, logger.New("journal"))
			return nil
		})
	}

	s.Engine.Start(ctx)
	s.log.Infof("adapter %s started", s.Engine.AdapterID())

	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		g.Go(func() error {
			if err := metrics.StartPromServer(ctx, net.JoinHostPort("", port)); err != nil {
				return fmt.Errorf("prom server: %w", err)
			}
			return nil
		})
	}

	if s.cfg.API.Enabled() {
		var opts []admin.Option
		if s.journal != nil {
			opts = append(opts, admin.WithJournal(s.journal))
		}
		h := admin.NewHandler(s.Engine, s.cfg.API.Token, opts...)
		g.Go(func() error {
			if err := admin.Serve(ctx, s.cfg.API.Address, h); err != nil {
				return fmt.Errorf("admin api: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

func (s *Service) logEvents(ctx context.Context, sub <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case events.DispatchEvent:
				s.log.Debugw("dispatch", map[string]any{
					"path":    string(e.Path),
					"items":   e.Items,
					"outcome": e.Ack.Kind.String(),
					"runtime": e.Ack.Runtime.String(),
				})
			case events.CDRRejectedEvent:
				s.log.Warnw("charge detail records not forwarded", map[string]any{"records": len(e.Records)})
			}
		}
	}
}

// Close stops the feed, then the engine, and flushes every sink.
func (s *Service) Close() error {
	if s.feed != nil {
		s.feed.Stop()
	}
	var errs []error
	if err := s.Engine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	s.bus.Close()
	if err := s.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("sinks: %w", err))
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}
	if f, ok := s.faults.(interface{ Flush(time.Duration) bool }); ok {
		f.Flush(flushTimeout)
	}
	return errors.Join(errs...)
}
