/*
scheduler.go - Periodic compliance evaluation

PURPOSE:
  Evaluates every employee over a trailing window on a fixed interval so
  notifications appear without anyone calling the API. Re-evaluating the
  same days records nothing new, so overlapping windows are harmless.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Runs once immediately on Start
  - Fans out over employees with a bounded errgroup; evaluations for
    different employees share no state
  - A failing employee is logged and does not stop the others

CONFIGURATION:
  - Interval:     How often to run (default: 1 hour)
  - LookbackDays: Days before today to evaluate (default: 7)
  - Workers:      Concurrent evaluations (default: 4)
  - Enabled:      Whether the scheduler is active

USAGE:
  scheduler := NewComplianceScheduler(engine, store, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: EvaluateCompliance endpoint (manual evaluation)
  - engine/engine.go: EvaluateCompliance
*/
package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/engine"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// EmployeeLister is the part of the store the scheduler needs.
type EmployeeLister interface {
	ListEmployees(ctx context.Context) ([]worktime.Employee, error)
}

// ComplianceScheduler evaluates all employees periodically.
type ComplianceScheduler struct {
	Engine       *engine.Service
	Store        EmployeeLister
	Interval     time.Duration
	LookbackDays int
	Workers      int
	Enabled      bool
	Options      compliance.Options
	Log          logrus.FieldLogger
	Now          func() time.Time

	ticker *time.Ticker
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// RunStats summarizes one scheduler pass.
type RunStats struct {
	Employees int
	Findings  int
	Failed    int
}

// NewComplianceScheduler creates a scheduler with default settings.
func NewComplianceScheduler(eng *engine.Service, store EmployeeLister, log logrus.FieldLogger) *ComplianceScheduler {
	return &ComplianceScheduler{
		Engine:       eng,
		Store:        store,
		Interval:     time.Hour,
		LookbackDays: 7,
		Workers:      4,
		Enabled:      true,
		Options:      compliance.DefaultOptions(),
		Log:          log.WithField("component", "scheduler"),
		Now:          time.Now,
	}
}

// Start begins the scheduler.
func (cs *ComplianceScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.Log.Info("disabled, not starting")
		return
	}
	if cs.ticker != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	cs.cancel = cancel
	cs.ticker = time.NewTicker(cs.Interval)
	cs.wg.Add(1)
	go cs.run(ctx)

	cs.Log.WithField("interval", cs.Interval.String()).Info("started")
}

// Stop stops the scheduler and waits for a running pass to finish.
func (cs *ComplianceScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker == nil {
		return
	}
	cs.ticker.Stop()
	cs.cancel()
	cs.wg.Wait()
	cs.ticker = nil
	cs.Log.Info("stopped")
}

func (cs *ComplianceScheduler) run(ctx context.Context) {
	defer cs.wg.Done()

	cs.RunOnce(ctx)
	for {
		select {
		case <-cs.ticker.C:
			cs.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Window returns the period one pass evaluates: the LookbackDays days
// before today.
func (cs *ComplianceScheduler) Window() generic.Period {
	today := generic.DateOf(cs.Now())
	days := cs.LookbackDays
	if days <= 0 {
		days = 1
	}
	return generic.Period{Start: today.AddDays(-days), End: today.AddDays(-1)}
}

// RunOnce evaluates every employee once.
func (cs *ComplianceScheduler) RunOnce(ctx context.Context) RunStats {
	period := cs.Window()
	log := cs.Log.WithField("period", period.String())

	employees, err := cs.Store.ListEmployees(ctx)
	if err != nil {
		log.WithError(err).Error("list employees")
		return RunStats{}
	}

	var findings, failed atomic.Int64
	var g errgroup.Group
	workers := cs.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, emp := range employees {
		id := emp.ID
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fs, err := cs.Engine.EvaluateCompliance(ctx, id, period, engine.EvalOptions{Options: cs.Options})
			if err != nil {
				failed.Add(1)
				log.WithError(err).WithField("employee_id", id).Error("evaluation failed")
				return nil
			}
			findings.Add(int64(len(fs)))
			return nil
		})
	}
	_ = g.Wait()

	stats := RunStats{
		Employees: len(employees),
		Findings:  int(findings.Load()),
		Failed:    int(failed.Load()),
	}
	log.WithFields(logrus.Fields{
		"employees": stats.Employees,
		"findings":  stats.Findings,
		"failed":    stats.Failed,
	}).Info("pass completed")
	return stats
}
