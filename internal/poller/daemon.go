package poller

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/worktrackhq/worktrack/internal/sheet"
)

// Config holds configuration for the polling daemon.
type Config struct {
	// Interval is the cadence between reconciliation cycles.
	Interval time.Duration

	// MaxBackoff caps the interval growth after repeated fetch failures.
	MaxBackoff time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults: a one second cadence capped at
// one minute of backoff.
func DefaultConfig() *Config {
	return &Config{
		Interval:   time.Second,
		MaxBackoff: time.Minute,
		Logger:     log.New(os.Stderr, "[poller] ", log.LstdFlags),
	}
}

// Daemon schedules reconciliation cycles on a fixed cadence.
//
// Cycles never overlap: a tick that arrives while a cycle is still in
// flight skips entirely rather than queuing, so a slow external fetch can
// never trigger a second concurrent cycle against the same cache and
// ledger. Repeated fetch failures double the wait between cycles up to
// MaxBackoff; a successful or skipped cycle resets it.
type Daemon struct {
	rec    *Reconciler
	config *Config

	inFlight sync.Mutex
	failures int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDaemon creates a daemon around the given reconciler.
func NewDaemon(rec *Reconciler, config *Config) (*Daemon, error) {
	if rec == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if config.MaxBackoff < config.Interval {
		config.MaxBackoff = config.Interval
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[poller] ", log.LstdFlags)
	}

	return &Daemon{
		rec:    rec,
		config: config,
	}, nil
}

// Start begins the polling loop in a background goroutine.
// Use Stop or cancel the context to shut down.
func (d *Daemon) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go d.run(ctx)

	d.config.Logger.Printf("Polling every %v", d.config.Interval)
}

// Stop shuts the daemon down and waits for an in-flight cycle to finish.
// There is no mid-cycle cancellation contract: a cycle killed at process
// exit may leave some rows reconciled and others not, which is safe
// because the per-row cache entry makes the next run reprocess any row
// not yet advanced.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.config.Logger.Println("Poller stopped")
}

// RunOnce executes a single cycle immediately, honoring the in-flight
// guard. Used by the one-shot sync command and by tests.
func (d *Daemon) RunOnce(ctx context.Context) (CycleResult, error) {
	if !d.inFlight.TryLock() {
		return CycleResult{Skipped: true}, nil
	}
	defer d.inFlight.Unlock()

	return d.rec.RunCycle(ctx)
}

func (d *Daemon) run(ctx context.Context) {
	defer d.wg.Done()

	timer := time.NewTimer(d.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			d.tick(ctx)
			timer.Reset(d.nextInterval())
		}
	}
}

// tick runs one guarded cycle and updates the failure count.
func (d *Daemon) tick(ctx context.Context) {
	if !d.inFlight.TryLock() {
		return
	}
	defer d.inFlight.Unlock()

	result, err := d.rec.RunCycle(ctx)
	if err != nil {
		d.failures++
		// Rate-limit responses are expected at this cadence; everything
		// else goes to the operational log. Neither is raised further:
		// the poller runs detached from any request cycle.
		if !sheet.IsRateLimited(err) {
			d.config.Logger.Printf("Cycle error: %v", err)
		}
		return
	}

	d.failures = 0
	if result.Logged > 0 {
		d.config.Logger.Printf("Cycle complete: %d rows, %d logged", result.Rows, result.Logged)
	}
}

// nextInterval returns the wait before the next cycle: the configured
// interval doubled per consecutive failure, capped at MaxBackoff.
func (d *Daemon) nextInterval() time.Duration {
	interval := d.config.Interval
	for i := 0; i < d.failures; i++ {
		interval *= 2
		if interval >= d.config.MaxBackoff {
			return d.config.MaxBackoff
		}
	}
	return interval
}
