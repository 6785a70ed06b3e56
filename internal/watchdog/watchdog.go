package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fentz26/tempo/internal/api"
)

// Stopper stops every session older than maxSession and reports what it
// stopped. *api.Service implements it.
type Stopper interface {
	AutoStop(ctx context.Context, maxSession time.Duration) ([]api.TimerResult, error)
}

// Stats is a snapshot of watchdog activity.
type Stats struct {
	Sweeps    int       `json:"sweeps"`
	Stopped   int       `json:"stopped"`
	Failures  int       `json:"failures"`
	LastSweep time.Time `json:"last_sweep"`
}

// Watchdog periodically auto-stops forgotten timers.
type Watchdog struct {
	stopper Stopper
	config  *Config
	log     *slog.Logger

	mu    sync.Mutex
	stats Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watchdog. A nil config means DefaultConfig.
func New(stopper Stopper, cfg *Config, log *slog.Logger) *Watchdog {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watchdog{
		stopper: stopper,
		config:  cfg,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins the watchdog loop. It does nothing when disabled.
func (w *Watchdog) Start() {
	if !w.config.Enabled() {
		w.log.Info("watchdog disabled")
		return
	}
	w.wg.Add(1)
	go w.loop()
	w.log.Info("watchdog started", "interval", w.config.Interval, "max_session", w.config.MaxSession)
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (w *Watchdog) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Watchdog) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(w.ctx)
		}
	}
}

// Sweep runs one check and returns how many timers were stopped.
func (w *Watchdog) Sweep(ctx context.Context) int {
	results, err := w.stopper.AutoStop(ctx, w.config.MaxSession)

	w.mu.Lock()
	w.stats.Sweeps++
	w.stats.Stopped += len(results)
	w.stats.LastSweep = time.Now().UTC()
	if err != nil {
		w.stats.Failures++
	}
	w.mu.Unlock()

	for _, res := range results {
		w.log.Info("timer auto-stopped", "task_id", res.Task.ID, "seconds", sessionSeconds(res))
	}
	if err != nil && ctx.Err() == nil {
		w.log.Error("watchdog sweep failed", "error", err)
	}
	return len(results)
}

func sessionSeconds(res api.TimerResult) int64 {
	if res.Session == nil {
		return 0
	}
	return res.Session.Seconds
}

// Stats returns current watchdog statistics.
func (w *Watchdog) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
