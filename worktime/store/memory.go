// Package store provides an in-memory repository and notification store.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/notify"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	employees     map[generic.EmployeeID]worktime.Employee
	punches       map[generic.EmployeeID][]worktime.TimeEntry
	absences      map[generic.EmployeeID][]worktime.Absence
	notifications map[notify.Key]notify.Notification
	holidays      []generic.Holiday
}

var (
	_ worktime.Repository  = (*Memory)(nil)
	_ worktime.Snapshotter = (*Memory)(nil)
	_ notify.Store         = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		employees:     make(map[generic.EmployeeID]worktime.Employee),
		punches:       make(map[generic.EmployeeID][]worktime.TimeEntry),
		absences:      make(map[generic.EmployeeID][]worktime.Absence),
		notifications: make(map[notify.Key]notify.Notification),
	}
}

// =============================================================================
// READER
// =============================================================================

func (m *Memory) GetEmployee(_ context.Context, id generic.EmployeeID) (worktime.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEmployeeLocked(id)
}

func (m *Memory) getEmployeeLocked(id generic.EmployeeID) (worktime.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return worktime.Employee{}, &generic.EmployeeNotFoundError{ID: id}
	}
	e.HoursHistory = append([]worktime.WeeklyHoursChange(nil), e.HoursHistory...)
	return e, nil
}

func (m *Memory) GetPunches(_ context.Context, id generic.EmployeeID, p generic.Period) ([]worktime.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.punchesLocked(id, p), nil
}

func (m *Memory) punchesLocked(id generic.EmployeeID, p generic.Period) []worktime.TimeEntry {
	var out []worktime.TimeEntry
	for _, e := range m.punches[id] {
		if p.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}

func (m *Memory) GetAbsences(_ context.Context, id generic.EmployeeID, p generic.Period) ([]worktime.Absence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.absencesLocked(id, p), nil
}

func (m *Memory) absencesLocked(id generic.EmployeeID, p generic.Period) []worktime.Absence {
	var out []worktime.Absence
	for _, a := range m.absences[id] {
		if _, ok := a.Period().Intersect(p); ok {
			out = append(out, a)
		}
	}
	return out
}

// Snapshot holds the read lock for the duration of fn.
func (m *Memory) Snapshot(_ context.Context, fn func(worktime.Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(lockedReader{m})
}

type lockedReader struct{ m *Memory }

func (r lockedReader) GetEmployee(_ context.Context, id generic.EmployeeID) (worktime.Employee, error) {
	return r.m.getEmployeeLocked(id)
}

func (r lockedReader) GetPunches(_ context.Context, id generic.EmployeeID, p generic.Period) ([]worktime.TimeEntry, error) {
	return r.m.punchesLocked(id, p), nil
}

func (r lockedReader) GetAbsences(_ context.Context, id generic.EmployeeID, p generic.Period) ([]worktime.Absence, error) {
	return r.m.absencesLocked(id, p), nil
}

// =============================================================================
// WRITER
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, e worktime.Employee) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, other := range m.employees {
		if id != e.ID && other.Name == e.Name {
			return fmt.Errorf("%w: name %q", generic.ErrDuplicateEmployee, e.Name)
		}
	}
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]worktime.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]worktime.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SetThresholds(_ context.Context, id generic.EmployeeID, t *worktime.Thresholds) error {
	if t != nil {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return &generic.EmployeeNotFoundError{ID: id}
	}
	e.Thresholds = t
	m.employees[id] = e
	return nil
}

func (m *Memory) AddWeeklyHoursChange(_ context.Context, id generic.EmployeeID, c worktime.WeeklyHoursChange) error {
	if !worktime.ValidWeeklyHours(c.Hours) {
		return fmt.Errorf("%w: weekly hours %d", generic.ErrInvalidInput, c.Hours)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return &generic.EmployeeNotFoundError{ID: id}
	}
	e.HoursHistory = append(e.HoursHistory, c)
	m.employees[id] = e
	return nil
}

func (m *Memory) AddPunch(_ context.Context, e worktime.TimeEntry) (worktime.TimeEntry, error) {
	if err := generic.RequireDate("punch date", e.Date); err != nil {
		return e, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[e.EmployeeID]; !ok {
		return e, &generic.EmployeeNotFoundError{ID: e.EmployeeID}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.punches[e.EmployeeID] = append(m.punches[e.EmployeeID], e)
	return e, nil
}

func (m *Memory) MarkValidated(_ context.Context, id generic.EmployeeID, through generic.Date) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i, e := range m.punches[id] {
		if !e.Validated && !e.Date.After(through) {
			m.punches[id][i].Validated = true
			n++
		}
	}
	return n, nil
}

func (m *Memory) AddAbsence(_ context.Context, a worktime.Absence) (worktime.Absence, error) {
	if err := a.Validate(); err != nil {
		return a, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[a.EmployeeID]; !ok {
		return a, &generic.EmployeeNotFoundError{ID: a.EmployeeID}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m.absences[a.EmployeeID] = append(m.absences[a.EmployeeID], a)
	return a, nil
}

func (m *Memory) SaveHoliday(_ context.Context, h generic.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	m.holidays = append(m.holidays, h)
	return nil
}

func (m *Memory) ListHolidays(_ context.Context) ([]generic.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]generic.Holiday(nil), m.holidays...), nil
}

// =============================================================================
// NOTIFICATIONS (notify.Store)
// =============================================================================

// PutNotification checks and inserts under one lock.
func (m *Memory) PutNotification(_ context.Context, n notify.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.notifications[n.Key()]; exists {
		return generic.ErrDuplicateNotification
	}
	m.notifications[n.Key()] = n
	return nil
}

func (m *Memory) ListNotifications(_ context.Context, id generic.EmployeeID) ([]notify.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []notify.Notification
	for k, n := range m.notifications {
		if k.EmployeeID == id {
			out = append(out, n)
		}
	}
	notify.SortNotifications(out)
	return out, nil
}
