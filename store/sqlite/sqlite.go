/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the working-time repository (employees, punches, absences,
  holidays) and the notification store on one SQLite database.

INTERFACES IMPLEMENTED:
  worktime.Repository:  Reader + Writer + HolidaySource
  worktime.Snapshotter: Consistent reads within one transaction
  notify.Store:         Notification persistence with natural-key dedup

INSERT-ONLY ENFORCEMENT:
  - time_entries and absences are never updated or deleted, except the
    validated flag of time_entries (false -> true only)
  - notifications are never updated or deleted
  - employees are never deleted

KEY TABLES:
  employees:             Employee records and traffic-light thresholds
  weekly_hours_history:  Contractual weekly hours by effective date
  time_entries:          Clock punches
  absences:              Vacation, sickness, training, other
  notifications:         Recorded violations
  holidays:              Public holidays (fixed or recurring)

INDEXES:
  - idx_unique_notification: Enforces one notification per
    (employee, code, date). A clash surfaces as ErrDuplicateNotification.
  - idx_time_entries_employee_date: Punch lookups (hot path)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety in addition to SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): readers don't block the
  single writer.

USAGE:
  store, err := sqlite.New("./data/worktime.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := engine.New(store, store)

SEE ALSO:
  - worktime/store.go: Repository interfaces
  - notify/notification.go: Notification store interface
  - worktime/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/notify"
	"github.com/warp/worktime-engine/worktime"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ worktime.Repository  = (*Store)(nil)
	_ worktime.Snapshotter = (*Store)(nil)
	_ notify.Store         = (*Store)(nil)
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		weekly_hours INTEGER NOT NULL CHECK (weekly_hours IN (30, 35, 40)),
		birth_date TEXT,
		supervisor_id TEXT,
		threshold_lower TEXT,
		threshold_upper TEXT,
		threshold_red_lower TEXT,
		threshold_red_upper TEXT,
		password_hash TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS weekly_hours_history (
		employee_id TEXT NOT NULL REFERENCES employees(id),
		valid_from TEXT NOT NULL,
		hours INTEGER NOT NULL CHECK (hours IN (30, 35, 40)),
		PRIMARY KEY (employee_id, valid_from)
	);

	-- Punches (insert-only, validated flag excepted)
	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		date TEXT NOT NULL,
		time TEXT NOT NULL,
		validated INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_entries_employee_date
		ON time_entries(employee_id, date);

	CREATE TABLE IF NOT EXISTS absences (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('vacation', 'sickness', 'training', 'other')),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_absences_employee_range
		ON absences(employee_id, start_date, end_date);

	-- Notifications (insert-only)
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		code INTEGER NOT NULL,
		date TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: one notification per employee, code and date
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_notification
		ON notifications(employee_id, code, date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE(date, name)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOT (worktime.Snapshotter)
// =============================================================================

// Snapshot runs fn inside one read transaction.
func (s *Store) Snapshot(ctx context.Context, fn func(worktime.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(txReader{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type txReader struct {
	tx *sql.Tx
}

func (r txReader) GetEmployee(ctx context.Context, id generic.EmployeeID) (worktime.Employee, error) {
	return getEmployee(ctx, r.tx, id)
}

func (r txReader) GetPunches(ctx context.Context, id generic.EmployeeID, p generic.Period) ([]worktime.TimeEntry, error) {
	return getPunches(ctx, r.tx, id, p)
}

func (r txReader) GetAbsences(ctx context.Context, id generic.EmployeeID, p generic.Period) ([]worktime.Absence, error) {
	return getAbsences(ctx, r.tx, id, p)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// SaveEmployee inserts or updates an employee. Hours history is written
// alongside in one transaction.
func (s *Store) SaveEmployee(ctx context.Context, emp worktime.Employee) error {
	if err := emp.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO employees (id, name, weekly_hours, birth_date, supervisor_id,
			threshold_lower, threshold_upper, threshold_red_lower, threshold_red_upper,
			password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			weekly_hours = excluded.weekly_hours,
			birth_date = excluded.birth_date,
			supervisor_id = excluded.supervisor_id,
			threshold_lower = excluded.threshold_lower,
			threshold_upper = excluded.threshold_upper,
			threshold_red_lower = excluded.threshold_red_lower,
			threshold_red_upper = excluded.threshold_red_upper,
			password_hash = excluded.password_hash
	`
	lower, upper, redLower, redUpper := thresholdColumns(emp.Thresholds)
	_, err = tx.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.WeeklyHours,
		nullDate(emp.BirthDate), nullString(string(emp.SupervisorID)),
		lower, upper, redLower, redUpper,
		nullString(emp.PasswordHash),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: name %q", generic.ErrDuplicateEmployee, emp.Name)
		}
		return fmt.Errorf("failed to save employee: %w", err)
	}

	for _, c := range emp.HoursHistory {
		if err := upsertHoursChange(ctx, tx, emp.ID, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (worktime.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployee(ctx, s.db, id)
}

const employeeColumns = `id, name, weekly_hours, birth_date, supervisor_id,
	threshold_lower, threshold_upper, threshold_red_lower, threshold_red_upper, password_hash`

func getEmployee(ctx context.Context, q querier, id generic.EmployeeID) (worktime.Employee, error) {
	row := q.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return worktime.Employee{}, &generic.EmployeeNotFoundError{ID: id}
	}
	if err != nil {
		return worktime.Employee{}, err
	}
	emp.HoursHistory, err = hoursHistory(ctx, q, id)
	return emp, err
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]worktime.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []worktime.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range employees {
		if employees[i].HoursHistory, err = hoursHistory(ctx, s.db, employees[i].ID); err != nil {
			return nil, err
		}
	}
	return employees, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(sc scanner) (worktime.Employee, error) {
	var (
		emp                              worktime.Employee
		birth, supervisor, hash          sql.NullString
		lower, upper, redLower, redUpper sql.NullString
	)
	err := sc.Scan(&emp.ID, &emp.Name, &emp.WeeklyHours, &birth, &supervisor,
		&lower, &upper, &redLower, &redUpper, &hash)
	if err != nil {
		return emp, err
	}
	if birth.Valid {
		emp.BirthDate, _ = generic.ParseDate(birth.String)
	}
	emp.SupervisorID = generic.EmployeeID(supervisor.String)
	emp.PasswordHash = hash.String
	if lower.Valid && upper.Valid && redLower.Valid && redUpper.Valid {
		emp.Thresholds = &worktime.Thresholds{
			Lower:    generic.MustParseDecimal(lower.String),
			Upper:    generic.MustParseDecimal(upper.String),
			RedLower: generic.MustParseDecimal(redLower.String),
			RedUpper: generic.MustParseDecimal(redUpper.String),
		}
	}
	return emp, nil
}

// SetThresholds replaces the employee's thresholds; nil restores defaults.
func (s *Store) SetThresholds(ctx context.Context, id generic.EmployeeID, t *worktime.Thresholds) error {
	if t != nil {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lower, upper, redLower, redUpper := thresholdColumns(t)
	res, err := s.db.ExecContext(ctx, `
		UPDATE employees SET threshold_lower = ?, threshold_upper = ?,
			threshold_red_lower = ?, threshold_red_upper = ?
		WHERE id = ?`, lower, upper, redLower, redUpper, id)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

// AddWeeklyHoursChange records a contractual change effective from c.ValidFrom.
func (s *Store) AddWeeklyHoursChange(ctx context.Context, id generic.EmployeeID, c worktime.WeeklyHoursChange) error {
	if !worktime.ValidWeeklyHours(c.Hours) {
		return fmt.Errorf("%w: weekly hours %d", generic.ErrInvalidInput, c.Hours)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := getEmployee(ctx, s.db, id); err != nil {
		return err
	}
	return upsertHoursChange(ctx, s.db, id, c)
}

func upsertHoursChange(ctx context.Context, q querier, id generic.EmployeeID, c worktime.WeeklyHoursChange) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO weekly_hours_history (employee_id, valid_from, hours)
		VALUES (?, ?, ?)
		ON CONFLICT(employee_id, valid_from) DO UPDATE SET hours = excluded.hours`,
		id, c.ValidFrom.String(), c.Hours)
	if err != nil {
		return fmt.Errorf("failed to save weekly hours change: %w", err)
	}
	return nil
}

func hoursHistory(ctx context.Context, q querier, id generic.EmployeeID) ([]worktime.WeeklyHoursChange, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT valid_from, hours FROM weekly_hours_history WHERE employee_id = ? ORDER BY valid_from", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []worktime.WeeklyHoursChange
	for rows.Next() {
		var from string
		var c worktime.WeeklyHoursChange
		if err := rows.Scan(&from, &c.Hours); err != nil {
			return nil, err
		}
		c.ValidFrom, _ = generic.ParseDate(from)
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// PUNCHES
// =============================================================================

// AddPunch inserts a punch, assigning an ID when empty.
func (s *Store) AddPunch(ctx context.Context, e worktime.TimeEntry) (worktime.TimeEntry, error) {
	if err := generic.RequireDate("punch date", e.Date); err != nil {
		return e, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := getEmployee(ctx, s.db, e.EmployeeID); err != nil {
		return e, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_entries (id, employee_id, date, time, validated, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.EmployeeID, e.Date.String(), e.Time.String(), e.Validated,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return e, fmt.Errorf("failed to add punch: %w", err)
	}
	return e, nil
}

// GetPunches returns the punches dated within p.
func (s *Store) GetPunches(ctx context.Context, id generic.EmployeeID, p generic.Period) ([]worktime.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPunches(ctx, s.db, id, p)
}

func getPunches(ctx context.Context, q querier, id generic.EmployeeID, p generic.Period) ([]worktime.TimeEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, employee_id, date, time, validated FROM time_entries
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date, time`,
		id, p.Start.String(), p.End.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []worktime.TimeEntry
	for rows.Next() {
		var e worktime.TimeEntry
		var date, tod string
		if err := rows.Scan(&e.ID, &e.EmployeeID, &date, &tod, &e.Validated); err != nil {
			return nil, err
		}
		if e.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		if e.Time, err = generic.ParseTimeOfDay(tod); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkValidated flips the validated flag of all punches up to through.
func (s *Store) MarkValidated(ctx context.Context, id generic.EmployeeID, through generic.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE time_entries SET validated = 1 WHERE employee_id = ? AND date <= ? AND validated = 0",
		id, through.String())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// =============================================================================
// ABSENCES
// =============================================================================

func (s *Store) AddAbsence(ctx context.Context, a worktime.Absence) (worktime.Absence, error) {
	if err := a.Validate(); err != nil {
		return a, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := getEmployee(ctx, s.db, a.EmployeeID); err != nil {
		return a, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO absences (id, employee_id, start_date, end_date, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.EmployeeID, a.Start.String(), a.End.String(), a.Type,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return a, fmt.Errorf("failed to add absence: %w", err)
	}
	return a, nil
}

// GetAbsences returns absences overlapping p.
func (s *Store) GetAbsences(ctx context.Context, id generic.EmployeeID, p generic.Period) ([]worktime.Absence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAbsences(ctx, s.db, id, p)
}

func getAbsences(ctx context.Context, q querier, id generic.EmployeeID, p generic.Period) ([]worktime.Absence, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, employee_id, start_date, end_date, type FROM absences
		WHERE employee_id = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date`,
		id, p.End.String(), p.Start.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []worktime.Absence
	for rows.Next() {
		var a worktime.Absence
		var start, end, typ string
		if err := rows.Scan(&a.ID, &a.EmployeeID, &start, &end, &typ); err != nil {
			return nil, err
		}
		a.Start, _ = generic.ParseDate(start)
		a.End, _ = generic.ParseDate(end)
		a.Type = worktime.AbsenceType(typ)
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// NOTIFICATIONS (notify.Store)
// =============================================================================

// PutNotification inserts n. The unique index turns a repeated key into
// generic.ErrDuplicateNotification.
func (s *Store) PutNotification(ctx context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, employee_id, code, date, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.EmployeeID, int(n.Code), n.Date.String(), n.Message,
		n.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateNotification
		}
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, id generic.EmployeeID) ([]notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, code, date, message, created_at FROM notifications
		WHERE employee_id = ?
		ORDER BY date, code`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		var n notify.Notification
		var code int
		var date, created string
		if err := rows.Scan(&n.ID, &n.EmployeeID, &code, &date, &n.Message, &created); err != nil {
			return nil, err
		}
		n.Code = compliance.Code(code)
		if n.Date, err = generic.ParseDate(date); err != nil {
			return nil, fmt.Errorf("notification %s: %w", n.ID, err)
		}
		if n.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("notification %s: parse created_at %q: %w", n.ID, created, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// SaveHoliday saves a holiday to the database.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	if err := generic.RequireDate("holiday date", h.Date); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET
			recurring = excluded.recurring`,
		h.ID, h.Date.String(), h.Name, h.Recurring,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) ListHolidays(ctx context.Context) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, date, name, recurring FROM holidays ORDER BY date")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.Holiday
	for rows.Next() {
		var h generic.Holiday
		var date string
		if err := rows.Scan(&h.ID, &date, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		if h.Date, err = generic.ParseDate(date); err != nil {
			return nil, fmt.Errorf("holiday %s: %w", h.ID, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d generic.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return nullString(d.String())
}

func nullDecimal(d decimal.Decimal) sql.NullString {
	return sql.NullString{String: d.String(), Valid: true}
}

func thresholdColumns(t *worktime.Thresholds) (lower, upper, redLower, redUpper sql.NullString) {
	if t == nil {
		return
	}
	return nullDecimal(t.Lower), nullDecimal(t.Upper), nullDecimal(t.RedLower), nullDecimal(t.RedUpper)
}

func requireAffected(res sql.Result, id generic.EmployeeID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &generic.EmployeeNotFoundError{ID: id}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
