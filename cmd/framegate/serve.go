package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/framegate/framegate"
	"github.com/framegate/framegate/framegateprom"
	"github.com/framegate/framegate/probe"
	"github.com/framegate/framegate/settings"
)

var (
	serveAddr     string
	tickRate      float64
	waveBase      float64
	waveAmplitude float64
	wavePeriod    time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a simulated host whose frame rate oscillates, and serve the governor's status and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		if tickRate <= 0 {
			return fmt.Errorf("--tick-rate must be positive")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, newSimulation(s, time.Now()))
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9100", "HTTP listen address")
	serveCmd.Flags().Float64Var(&tickRate, "tick-rate", 30, "governor ticks per second")
	serveCmd.Flags().Float64Var(&waveBase, "fps-base", 20, "mean simulated frame rate")
	serveCmd.Flags().Float64Var(&waveAmplitude, "fps-amplitude", 8, "amplitude of the simulated frame rate")
	serveCmd.Flags().DurationVar(&wavePeriod, "fps-period", 20*time.Second, "period of the simulated frame rate")
}

// simulation is a host, a governor and the controlled work it gates.
type simulation struct {
	host     *waveHost
	store    *settings.Store
	governor framegate.Governor[probe.Host]
	updates  atomic.Uint64
	ticks    atomic.Uint64
	lastFPS  atomic.Value
}

func newSimulation(s settings.Settings, start time.Time) *simulation {
	store := settings.NewStore(s)
	store.OnChange(func(e settings.ChangedEvent) {
		logger.Info("settings changed",
			"enabled", e.New.Enabled,
			"disableThreshold", e.New.DisableThreshold,
			"enableThreshold", e.New.EnableThreshold)
	})
	p := probe.Builder(probe.DefaultSources()...).
		OnSourceFailed(framegate.LogSourceFailed(logger, time.Minute)).
		Build()
	sim := &simulation{
		host:  newWaveHost(waveBase, waveAmplitude, wavePeriod, start),
		store: store,
		governor: framegate.Builder(p).
			WithConfigProvider(store).
			WithLogger(logger).
			Build(),
	}
	sim.lastFPS.Store(0.0)
	return sim
}

// tick advances the host to now and runs the controlled work if the governor allows it.
func (s *simulation) tick(now time.Time) bool {
	s.ticks.Add(1)
	s.lastFPS.Store(s.host.advance(now))
	return s.governor.Run(s.host, func() {
		s.updates.Add(1)
	})
}

func (s *simulation) run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

type status struct {
	State          string            `json:"state"`
	FPS            float64           `json:"fps"`
	Ticks          uint64            `json:"ticks"`
	Updates        uint64            `json:"updates"`
	Skipped        uint64            `json:"skipped"`
	Transitions    uint              `json:"transitions"`
	SuppressedRate uint              `json:"suppressedRate"`
	Settings       settings.Settings `json:"settings"`
}

func (s *simulation) status() status {
	g := s.governor.Gate()
	return status{
		State:          g.State().String(),
		FPS:            s.lastFPS.Load().(float64),
		Ticks:          s.ticks.Load(),
		Updates:        s.updates.Load(),
		Skipped:        s.governor.Skipped(),
		Transitions:    g.Metrics().Transitions(),
		SuppressedRate: g.Metrics().SuppressedRate(),
		Settings:       s.store.Load(),
	}
}

func (s *simulation) router(registry *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	r.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

func (s *simulation) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *simulation) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Load())
}

// handlePutSettings replaces the settings. Fields missing from the body keep their current values.
func (s *simulation) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	updated := s.store.Load()
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		http.Error(w, fmt.Sprintf("invalid settings: %v", err), http.StatusBadRequest)
		return
	}
	if err := updated.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.store.Store(updated)
	writeJSON(w, http.StatusOK, updated)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write response", "error", err)
	}
}

func serve(ctx context.Context, sim *simulation) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(framegateprom.NewCollector("framegate", sim.governor.Gate(), nil))
	server := &http.Server{
		Addr:              serveAddr,
		Handler:           sim.router(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return sim.run(ctx, time.Duration(float64(time.Second)/tickRate))
	})
	eg.Go(func() error {
		logger.Info("serving", "addr", serveAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
