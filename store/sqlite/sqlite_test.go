package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/engine"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/notify"
	"github.com/warp/worktime-engine/store/sqlite"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SaveEmployee(context.Background(), worktime.Employee{
		ID:          "emp-1",
		Name:        "Anna",
		WeeklyHours: 40,
	}))
	return store
}

func date(s string) generic.Date { return generic.MustParseDate(s) }

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployee_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	th := worktime.SymmetricThresholds(decimal.RequireFromString("2.5"), decimal.NewFromInt(6))

	// GIVEN: A minor with own thresholds and a weekly-hours change
	emp := worktime.Employee{
		ID:           "emp-2",
		Name:         "Carla",
		WeeklyHours:  35,
		BirthDate:    date("2009-04-01"),
		SupervisorID: "emp-1",
		Thresholds:   &th,
		HoursHistory: []worktime.WeeklyHoursChange{{ValidFrom: date("2025-06-01"), Hours: 30}},
	}
	require.NoError(t, store.SaveEmployee(ctx, emp))

	// WHEN: Reading it back
	got, err := store.GetEmployee(ctx, "emp-2")
	require.NoError(t, err)

	// THEN: Every field survives
	assert.Equal(t, "Carla", got.Name)
	assert.Equal(t, date("2009-04-01"), got.BirthDate)
	assert.Equal(t, generic.EmployeeID("emp-1"), got.SupervisorID)
	require.NotNil(t, got.Thresholds)
	assert.True(t, got.Thresholds.Upper.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, got.Thresholds.RedLower.Equal(decimal.NewFromInt(-6)))
	assert.Equal(t, 30, got.WeeklyHoursOn(date("2025-07-01")))
	assert.Equal(t, 35, got.WeeklyHoursOn(date("2025-05-31")))
}

func TestEmployee_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetEmployee(context.Background(), "ghost")

	assert.True(t, generic.IsNotFound(err))
}

func TestEmployee_DuplicateName(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveEmployee(context.Background(), worktime.Employee{ID: "emp-9", Name: "Anna", WeeklyHours: 30})

	assert.ErrorIs(t, err, generic.ErrDuplicateEmployee)
}

func TestEmployee_InvalidWeeklyHours(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveEmployee(context.Background(), worktime.Employee{ID: "emp-9", Name: "Bob", WeeklyHours: 20})

	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestSetThresholds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	th := worktime.ThresholdsFromHours(3, 8)

	require.NoError(t, store.SetThresholds(ctx, "emp-1", &th))
	got, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got.Thresholds)
	assert.True(t, got.Thresholds.RedUpper.Equal(decimal.NewFromInt(8)))

	// nil restores the defaults
	require.NoError(t, store.SetThresholds(ctx, "emp-1", nil))
	got, err = store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Nil(t, got.Thresholds)

	assert.True(t, generic.IsNotFound(store.SetThresholds(ctx, "ghost", nil)))
}

func TestAddWeeklyHoursChange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddWeeklyHoursChange(ctx, "emp-1", worktime.WeeklyHoursChange{ValidFrom: date("2025-04-01"), Hours: 35}))
	// same date replaces
	require.NoError(t, store.AddWeeklyHoursChange(ctx, "emp-1", worktime.WeeklyHoursChange{ValidFrom: date("2025-04-01"), Hours: 30}))

	got, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, got.HoursHistory, 1)
	assert.Equal(t, 30, got.WeeklyHoursOn(date("2025-04-01")))

	err = store.AddWeeklyHoursChange(ctx, "emp-1", worktime.WeeklyHoursChange{ValidFrom: date("2025-05-01"), Hours: 25})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

// =============================================================================
// PUNCHES & ABSENCES
// =============================================================================

func TestPunches_StoredAndFilteredByPeriod(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, p := range []struct{ d, tod string }{
		{"2025-03-10", "16:30"},
		{"2025-03-10", "08:00"},
		{"2025-03-11", "08:15:30"},
		{"2025-03-12", "09:00"},
	} {
		saved, err := store.AddPunch(ctx, worktime.TimeEntry{
			EmployeeID: "emp-1",
			Date:       date(p.d),
			Time:       generic.MustParseTimeOfDay(p.tod),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
	}

	got, err := store.GetPunches(ctx, "emp-1", generic.Period{Start: date("2025-03-10"), End: date("2025-03-11")})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "08:00", got[0].Time.String())
	assert.Equal(t, "08:15:30", got[2].Time.String())
}

func TestPunches_UnknownEmployee(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddPunch(context.Background(), worktime.TimeEntry{
		EmployeeID: "ghost",
		Date:       date("2025-03-10"),
		Time:       generic.NewTimeOfDay(8, 0),
	})

	assert.True(t, generic.IsNotFound(err))
}

func TestMarkValidated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, d := range []string{"2025-03-10", "2025-03-11", "2025-03-12"} {
		_, err := store.AddPunch(ctx, worktime.TimeEntry{EmployeeID: "emp-1", Date: date(d), Time: generic.NewTimeOfDay(8, 0)})
		require.NoError(t, err)
	}

	n, err := store.MarkValidated(ctx, "emp-1", date("2025-03-11"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// already validated punches are not counted again
	n, err = store.MarkValidated(ctx, "emp-1", date("2025-03-12"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetPunches(ctx, "emp-1", generic.Period{Start: date("2025-03-10"), End: date("2025-03-12")})
	require.NoError(t, err)
	for _, e := range got {
		assert.True(t, e.Validated)
	}
}

func TestAbsences_OverlapQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddAbsence(ctx, worktime.Absence{
		EmployeeID: "emp-1",
		Start:      date("2025-03-28"),
		End:        date("2025-04-04"),
		Type:       worktime.AbsenceVacation,
	})
	require.NoError(t, err)

	april, err := store.GetAbsences(ctx, "emp-1", generic.GranularityMonth.PeriodFor(date("2025-04-10")))
	require.NoError(t, err)
	require.Len(t, april, 1)
	assert.Equal(t, worktime.AbsenceVacation, april[0].Type)

	may, err := store.GetAbsences(ctx, "emp-1", generic.GranularityMonth.PeriodFor(date("2025-05-10")))
	require.NoError(t, err)
	assert.Empty(t, may)

	_, err = store.AddAbsence(ctx, worktime.Absence{EmployeeID: "emp-1", Start: date("2025-05-01"), End: date("2025-05-01"), Type: "party"})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestPutNotification_UniqueKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	n := notify.Notification{
		ID:         "n-1",
		EmployeeID: "emp-1",
		Code:       compliance.CodeRestPeriod,
		Date:       date("2025-03-11"),
		Message:    "rest",
		CreatedAt:  time.Date(2025, time.March, 12, 8, 0, 0, 0, time.UTC),
	}

	require.NoError(t, store.PutNotification(ctx, n))

	dup := n
	dup.ID = "n-2"
	assert.ErrorIs(t, store.PutNotification(ctx, dup), generic.ErrDuplicateNotification)

	other := n
	other.ID = "n-3"
	other.Code = compliance.CodeMissingPunch
	require.NoError(t, store.PutNotification(ctx, other))

	ns, err := store.ListNotifications(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.Equal(t, compliance.CodeMissingPunch, ns[0].Code)
	assert.True(t, n.CreatedAt.Equal(ns[1].CreatedAt))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveHoliday(ctx, generic.Holiday{Date: date("2025-04-18"), Name: "Karfreitag"}))
	require.NoError(t, store.SaveHoliday(ctx, generic.Holiday{Date: date("2000-11-01"), Name: "Allerheiligen", Recurring: true}))
	// same date and name updates in place
	require.NoError(t, store.SaveHoliday(ctx, generic.Holiday{Date: date("2025-04-18"), Name: "Karfreitag"}))

	hs, err := store.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 2)

	cal, err := worktime.LoadCalendar(ctx, store)
	require.NoError(t, err)
	assert.True(t, cal.IsHoliday(date("2031-11-01")))
	assert.True(t, cal.IsHoliday(date("2025-04-18")))
	assert.True(t, cal.IsHoliday(date("2025-12-25")))
}

func TestList_CorruptRowsReturnErrors(t *testing.T) {
	// GIVEN: A database with rows written outside the store
	path := filepath.Join(t.TempDir(), "worktime.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, worktime.Employee{ID: "emp-1", Name: "Anna", WeeklyHours: 40}))

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer raw.Close()

	// WHEN: A notification carries a malformed date
	_, err = raw.ExecContext(ctx, `INSERT INTO notifications (id, employee_id, code, date, message, created_at)
		VALUES ('n-bad', 'emp-1', 3, '11.03.2025', 'rest', '2025-03-12T08:00:00Z')`)
	require.NoError(t, err)

	// THEN: Listing fails instead of returning a zero date
	_, err = store.ListNotifications(ctx, "emp-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	assert.Contains(t, err.Error(), "n-bad")

	// WHEN: The date is fine but the creation time is not
	_, err = raw.ExecContext(ctx, `UPDATE notifications SET date = '2025-03-11', created_at = 'yesterday' WHERE id = 'n-bad'`)
	require.NoError(t, err)

	// THEN: Listing fails on the timestamp
	_, err = store.ListNotifications(ctx, "emp-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created_at")

	// WHEN: A holiday carries a malformed date
	_, err = raw.ExecContext(ctx, `INSERT INTO holidays (id, date, name, recurring, created_at)
		VALUES ('h-bad', 'Ostern', 'Ostermontag', 0, '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)

	// THEN: Listing holidays fails too
	_, err = store.ListHolidays(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "h-bad")
}

// =============================================================================
// ENGINE ON SQLITE
// =============================================================================

func TestEngine_EvaluatesAgainstSQLite(t *testing.T) {
	// GIVEN: A file-backed store and a short Monday
	store, err := sqlite.New(filepath.Join(t.TempDir(), "worktime.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, worktime.Employee{ID: "emp-1", Name: "Anna", WeeklyHours: 40}))
	for _, tod := range []string{"08:00", "12:00", "13:00"} {
		_, err := store.AddPunch(ctx, worktime.TimeEntry{EmployeeID: "emp-1", Date: date("2025-03-10"), Time: generic.MustParseTimeOfDay(tod)})
		require.NoError(t, err)
	}
	now := time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC)
	svc := engine.New(store, store, engine.WithClock(func() time.Time { return now }))
	period := generic.Period{Start: date("2025-03-10"), End: date("2025-03-10")}

	// WHEN: Evaluating twice
	for i := 0; i < 2; i++ {
		findings, err := svc.EvaluateCompliance(ctx, "emp-1", period, engine.EvalOptions{Options: compliance.DefaultOptions()})
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, compliance.CodeMissingPunch, findings[0].Code)
	}

	// THEN: One notification
	ns, err := svc.ListNotifications(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Contains(t, ns[0].Message, "3 punches")
}
