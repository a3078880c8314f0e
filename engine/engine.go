/*
Package engine is the facade the presentation layer talks to.

PURPOSE:
  Wires the repository, the compliance checker, the flex aggregator and the
  notification deduplicator into these operations:

    ComputeDay           - net time of one employee-day (or Indeterminate)
    EvaluateCompliance   - findings for a period, recorded as notifications
    GetFlexBalance       - flex balance and traffic light
    GetFlexAverage       - mean daily flex delta over a period
    CheckRestBeforePunch - rest period a planned punch would leave
    ListNotifications    - recorded notifications of an employee

  Evaluations for different employees share no mutable state and may run
  concurrently. Within one evaluation the punches and absences are read from
  one snapshot when the repository supports it.

ERRORS:
  - generic.ErrMissingParameter: empty ID, zero date or period bound
  - generic.ErrEmployeeNotFound: unknown employee
  - generic.ErrUnknownCode: a rule emitted a code without template
  Findings and indeterminate days are results, not errors.

SEE ALSO:
  - compliance/checker.go, flextime/flextime.go, notify/dedup.go
  - api/handlers.go: HTTP adapter
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/flextime"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/metrics"
	"github.com/warp/worktime-engine/notify"
	"github.com/warp/worktime-engine/worktime"
)

// Service is safe for concurrent use.
type Service struct {
	repo          worktime.Reader
	notifications notify.Store
	checker       *compliance.Checker
	flex          flextime.Aggregator
	dedup         *notify.Deduplicator
	calendar      generic.HolidayCalendar
	workWeek      generic.WorkWeek
	log           logrus.FieldLogger
	metrics       *metrics.Recorder
	now           func() time.Time
}

type Option func(*Service)

func WithChecker(c *compliance.Checker) Option { return func(s *Service) { s.checker = c } }
func WithLogger(l logrus.FieldLogger) Option  { return func(s *Service) { s.log = l } }
func WithMetrics(m *metrics.Recorder) Option  { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option   { return func(s *Service) { s.now = now } }
func WithWorkWeek(w generic.WorkWeek) Option  { return func(s *Service) { s.workWeek = w } }

func WithCalendar(c generic.HolidayCalendar) Option {
	return func(s *Service) { s.calendar = c }
}

// WithFlex overrides the flex aggregator settings. WorkWeek, Calendar and Now
// are always taken from the service.
func WithFlex(a flextime.Aggregator) Option { return func(s *Service) { s.flex = a } }

func New(repo worktime.Reader, notifications notify.Store, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		notifications: notifications,
		checker:       compliance.DefaultChecker(),
		flex:          flextime.DefaultAggregator(),
		calendar:      generic.NoHolidays{},
		workWeek:      generic.DefaultWorkWeek(),
		log:           logrus.StandardLogger(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.flex.WorkWeek = s.workWeek
	s.flex.Calendar = s.calendar
	s.flex.Now = s.now

	s.dedup = notify.NewDeduplicator(notifications, s.log).WithClock(s.now)
	s.dedup.OnRecord = func(_ compliance.Finding, o notify.Outcome) {
		s.metrics.Notification(o.String())
	}
	return s
}

// Checker exposes the configured rule set.
func (s *Service) Checker() *compliance.Checker { return s.checker }

// =============================================================================
// COMPUTE DAY
// =============================================================================

// ComputeDay returns the duration breakdown of one employee-day.
func (s *Service) ComputeDay(ctx context.Context, id generic.EmployeeID, date generic.Date) (worktime.DayResult, error) {
	if err := generic.RequireEmployeeID(id); err != nil {
		return worktime.DayResult{}, err
	}
	if err := generic.RequireDate("date", date); err != nil {
		return worktime.DayResult{}, err
	}
	emp, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return worktime.DayResult{}, err
	}
	punches, err := s.repo.GetPunches(ctx, id, generic.Period{Start: date, End: date})
	if err != nil {
		return worktime.DayResult{}, fmt.Errorf("load punches: %w", err)
	}
	res := worktime.CalculateDay(punches, worktime.ProfileFor(emp, date))
	res.Date = date
	return res, nil
}

// =============================================================================
// EVALUATE COMPLIANCE
// =============================================================================

// EvalOptions extend compliance.Options with adapter switches.
type EvalOptions struct {
	compliance.Options

	// DryRun returns findings without recording notifications.
	DryRun bool
}

// Findings evaluates the period without side effects.
func (s *Service) Findings(ctx context.Context, id generic.EmployeeID, period generic.Period, opts compliance.Options) ([]compliance.Finding, error) {
	in, err := s.loadInput(ctx, id, period, opts)
	if err != nil {
		return nil, err
	}
	return s.checker.Evaluate(in), nil
}

// EvaluateCompliance evaluates the period and records every finding as a
// notification. Re-evaluating a period records nothing new.
func (s *Service) EvaluateCompliance(ctx context.Context, id generic.EmployeeID, period generic.Period, opts EvalOptions) (findings []compliance.Finding, err error) {
	started := s.now()
	defer func() { s.metrics.Evaluation(started, err) }()

	log := s.log.WithFields(logrus.Fields{"employee_id": id, "period": period.String()})

	findings, err = s.Findings(ctx, id, period, opts.Options)
	if err != nil {
		return nil, err
	}
	for _, f := range findings {
		s.metrics.Finding(f.Code.String())
	}
	if opts.DryRun {
		log.WithField("findings", len(findings)).Debug("dry-run evaluation")
		return findings, nil
	}

	summary, err := s.dedup.RecordAll(ctx, findings)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"findings":   len(findings),
		"created":    summary.Created,
		"suppressed": summary.Suppressed,
	}).Info("compliance evaluated")
	return findings, nil
}

func (s *Service) loadInput(ctx context.Context, id generic.EmployeeID, period generic.Period, opts compliance.Options) (*compliance.Input, error) {
	if err := generic.RequireEmployeeID(id); err != nil {
		return nil, err
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	window := s.checker.Window(period)
	var (
		emp      worktime.Employee
		punches  []worktime.TimeEntry
		absences []worktime.Absence
	)
	err := s.read(ctx, func(r worktime.Reader) error {
		var err error
		if emp, err = r.GetEmployee(ctx, id); err != nil {
			return err
		}
		if punches, err = r.GetPunches(ctx, id, window); err != nil {
			return fmt.Errorf("load punches: %w", err)
		}
		if absences, err = r.GetAbsences(ctx, id, window); err != nil {
			return fmt.Errorf("load absences: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return compliance.NewInput(emp, period, window, punches, absences, compliance.Env{
		Now:      s.now(),
		WorkWeek: s.workWeek,
		Calendar: s.calendar,
		Options:  opts,
	}), nil
}

// read runs fn against a snapshot when the repository offers one.
func (s *Service) read(ctx context.Context, fn func(worktime.Reader) error) error {
	if snap, ok := s.repo.(worktime.Snapshotter); ok {
		return snap.Snapshot(ctx, fn)
	}
	return fn(s.repo)
}

// =============================================================================
// FLEX BALANCE
// =============================================================================

// GetFlexBalance returns the balance for the query. A zero AsOf means today.
func (s *Service) GetFlexBalance(ctx context.Context, id generic.EmployeeID, q flextime.Query) (flextime.Balance, error) {
	if err := generic.RequireEmployeeID(id); err != nil {
		return flextime.Balance{}, err
	}
	if q.Period == nil && q.AsOf.IsZero() {
		q.AsOf = generic.DateOf(s.now())
	}
	period, err := q.Resolve()
	if err != nil {
		return flextime.Balance{}, err
	}

	emp, punches, absences, err := s.records(ctx, id, period)
	if err != nil {
		return flextime.Balance{}, err
	}
	return s.flex.Balance(emp, q, punches, absences)
}

// GetFlexAverage returns the mean daily flex delta over period.
func (s *Service) GetFlexAverage(ctx context.Context, id generic.EmployeeID, period generic.Period) (flextime.Average, error) {
	if err := generic.RequireEmployeeID(id); err != nil {
		return flextime.Average{}, err
	}
	if err := period.Validate(); err != nil {
		return flextime.Average{}, err
	}
	emp, punches, absences, err := s.records(ctx, id, period)
	if err != nil {
		return flextime.Average{}, err
	}
	return s.flex.Average(emp, period, punches, absences)
}

// records reads the employee with the punches and absences of period from
// one snapshot.
func (s *Service) records(ctx context.Context, id generic.EmployeeID, period generic.Period) (emp worktime.Employee, punches []worktime.TimeEntry, absences []worktime.Absence, err error) {
	err = s.read(ctx, func(r worktime.Reader) error {
		var err error
		if emp, err = r.GetEmployee(ctx, id); err != nil {
			return err
		}
		if punches, err = r.GetPunches(ctx, id, period); err != nil {
			return fmt.Errorf("load punches: %w", err)
		}
		if absences, err = r.GetAbsences(ctx, id, period); err != nil {
			return fmt.Errorf("load absences: %w", err)
		}
		return nil
	})
	return emp, punches, absences, err
}

// =============================================================================
// REST BEFORE PUNCH
// =============================================================================

// RestCheck is the rest period a planned punch would leave behind it.
type RestCheck struct {
	Violated bool
	Required generic.Duration
	Actual   generic.Duration

	// LastPunch is zero when the previous day has no punches.
	LastPunch time.Time
}

// CheckRestBeforePunch reports whether a punch at the given instant would cut
// the rest since the last punch of the previous day below the profile
// minimum. Only the first punch of a day is checked: with earlier punches on
// the same day the rest period has already ended. A punch two or more days
// back is always far enough away, so only the previous day is read.
func (s *Service) CheckRestBeforePunch(ctx context.Context, id generic.EmployeeID, at time.Time) (RestCheck, error) {
	if err := generic.RequireEmployeeID(id); err != nil {
		return RestCheck{}, err
	}
	if at.IsZero() {
		return RestCheck{}, &generic.MissingParameterError{Name: "punch time"}
	}
	date := generic.DateOf(at)
	emp, punches, _, err := s.records(ctx, id, generic.Period{Start: date.AddDays(-1), End: date})
	if err != nil {
		return RestCheck{}, err
	}

	check := RestCheck{Required: worktime.ProfileFor(emp, date).MinRest}
	var last time.Time
	for _, p := range punches {
		if p.Date == date {
			return check, nil
		}
		if p.At().After(last) {
			last = p.At()
		}
	}
	if last.IsZero() {
		return check, nil
	}
	check.LastPunch = last
	check.Actual = generic.FromStd(at.UTC().Sub(last))
	check.Violated = check.Actual < check.Required
	if check.Violated {
		s.log.WithFields(logrus.Fields{
			"employee_id": id,
			"last_punch":  last.Format(time.RFC3339),
			"rest":        check.Actual.String(),
		}).Warn("punch would violate rest period")
	}
	return check, nil
}


// =============================================================================
// NOTIFICATIONS
// =============================================================================

// ListNotifications returns the employee's notifications ordered by date and
// code.
func (s *Service) ListNotifications(ctx context.Context, id generic.EmployeeID) ([]notify.Notification, error) {
	if err := generic.RequireEmployeeID(id); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetEmployee(ctx, id); err != nil {
		return nil, err
	}
	ns, err := s.notifications.ListNotifications(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	notify.SortNotifications(ns)
	return ns, nil
}
