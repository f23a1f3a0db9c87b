// Package app wires the coordination core together. Service is the single
// coordination context of the process: every component is constructed here
// exactly once and receives its dependencies explicitly.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apifleet "github.com/kilianp07/groundlink/api/fleet"
	"github.com/kilianp07/groundlink/app/plugins"
	"github.com/kilianp07/groundlink/config"
	"github.com/kilianp07/groundlink/core/fleet"
	coremetrics "github.com/kilianp07/groundlink/core/metrics"
	"github.com/kilianp07/groundlink/core/mission"
	"github.com/kilianp07/groundlink/core/model"
	"github.com/kilianp07/groundlink/core/router"
	"github.com/kilianp07/groundlink/core/watchdog"
	"github.com/kilianp07/groundlink/infra/logger"
	inframetrics "github.com/kilianp07/groundlink/infra/metrics"
	inframqtt "github.com/kilianp07/groundlink/infra/mqtt"
	"github.com/kilianp07/groundlink/internal/eventbus"
	"github.com/kilianp07/groundlink/internal/loop"
)

// Service orchestrates the registry, router and sequencer around the run loop.
type Service struct {
	cfg *config.Config
	log logger.Logger

	loop      *loop.Loop
	bus       *eventbus.Bus
	Registry  *fleet.Registry
	Sequencer *mission.Sequencer
	Router    *router.Router

	mqttClient *inframqtt.PahoClient
	sink       coremetrics.Sink
	kpi        *fleet.KPITracker
	bridge     *inframetrics.Bridge
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	lp := loop.New(0)
	bus := eventbus.New()

	wd := watchdog.New(lp, logger.New("watchdog"))
	reg, err := fleet.NewRegistry(wd, cfg.Fleet.Catalog, bus, logger.New("fleet"),
		time.Duration(cfg.Fleet.ContactTimeoutMS)*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("fleet registry: %w", err)
	}

	types := mission.NewTypeRegistry()
	plugins.RegisterBuiltins(types, logger.New("mission"))
	seq, err := mission.NewSequencer(types, reg, bus, logger.New("sequencer"))
	if err != nil {
		return nil, fmt.Errorf("mission sequencer: %w", err)
	}

	svc := &Service{
		cfg:       cfg,
		log:       logg,
		loop:      lp,
		bus:       bus,
		Registry:  reg,
		Sequencer: seq,
		kpi:       fleet.NewKPITracker(0),
	}

	client, err := inframqtt.NewPahoClient(cfg.MQTT, func(payload []byte) {
		lp.Submit(func() {
			if svc.Router != nil {
				svc.Router.Receive(payload)
			}
		})
	})
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	svc.mqttClient = client

	rt, err := router.New(cfg.Router, reg, wd, seq, client, bus, logger.New("router"))
	if err != nil {
		return nil, fmt.Errorf("message router: %w", err)
	}
	svc.Router = rt

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := inframetrics.NewPromSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, inframetrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	switch len(sinks) {
	case 0:
		svc.sink = coremetrics.NopSink{}
	case 1:
		svc.sink = sinks[0]
	default:
		svc.sink = inframetrics.NewMultiSink(sinks...)
	}
	svc.bridge = inframetrics.NewBridge(bus, svc.sink, svc.kpi, logg)
	return svc, nil
}

// Run executes the coordination loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	go s.bridge.Run(ctx)

	if s.cfg.Metrics.PrometheusEnabled {
		addr := ":" + s.cfg.Metrics.PrometheusPort
		go func() {
			if err := inframetrics.StartPromServer(ctx, addr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.API.Enabled {
		srv := &http.Server{Addr: s.cfg.API.Addr, Handler: apifleet.NewHandler(s)}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}

	go s.pollFleetSize(ctx)

	if len(s.cfg.Missions) > 0 {
		s.loop.Submit(func() {
			if err := s.scheduleConfigured(); err != nil {
				s.log.Errorf("mission schedule: %v", err)
			}
		})
	}

	s.loop.Run(ctx)
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	s.loop.Close()
	s.bus.Close()
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}

// scheduleConfigured builds and adds the mission batch from the configuration.
// Runs on the loop.
func (s *Service) scheduleConfigured() error {
	missions := make([]mission.Mission, 0, len(s.cfg.Missions))
	for i, spec := range s.cfg.Missions {
		m := s.Sequencer.CreateMission(spec.Type)
		if m == nil {
			return fmt.Errorf("mission %d: cannot create type %q", i, spec.Type)
		}
		if err := m.SetMissionInfo(spec.Settings); err != nil {
			return fmt.Errorf("mission %d: %w", i, err)
		}
		if err := m.SetVehicleMapping(spec.Mapping); err != nil {
			return fmt.Errorf("mission %d: %w", i, err)
		}
		missions = append(missions, m)
	}
	if err := s.Sequencer.AddMissions(missions); err != nil {
		return err
	}
	s.log.Infof("scheduled %d missions from configuration", len(missions))
	return nil
}

// pollFleetSize periodically records the active vehicle count.
func (s *Service) pollFleetSize(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.loop.Submit(func() {
				if err := s.sink.RecordFleetSize(s.Registry.ActiveCount()); err != nil {
					s.log.Errorf("fleet size metrics error: %v", err)
				}
			})
		case <-ctx.Done():
			return
		}
	}
}

// onLoop runs fn on the run loop and waits for it to finish.
func (s *Service) onLoop(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	s.loop.Submit(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FleetSnapshot implements apifleet.Provider.
func (s *Service) FleetSnapshot(ctx context.Context) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	if err := s.onLoop(ctx, func() { vehicles = s.Registry.List() }); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// MissionSnapshot implements apifleet.Provider.
func (s *Service) MissionSnapshot(ctx context.Context) (apifleet.MissionState, error) {
	var state apifleet.MissionState
	err := s.onLoop(ctx, func() {
		state = apifleet.MissionState{
			Running:      s.Sequencer.IsRunning(),
			Blocked:      s.Sequencer.Blocked(),
			CurrentIndex: s.Sequencer.CurrentIndex(),
			Statuses:     s.Sequencer.Statuses(),
		}
	})
	return state, err
}

// KPI implements apifleet.Provider.
func (s *Service) KPI(ctx context.Context) (fleet.KPI, error) {
	vehicles, err := s.FleetSnapshot(ctx)
	if err != nil {
		return fleet.KPI{}, err
	}
	return s.kpi.Compute(vehicles), nil
}

// StartSchedule implements apifleet.Provider.
func (s *Service) StartSchedule(ctx context.Context) error {
	var startErr error
	if err := s.onLoop(ctx, func() { startErr = s.Sequencer.StartMission(nil) }); err != nil {
		return err
	}
	return startErr
}
