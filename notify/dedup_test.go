package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/notify"
	"github.com/warp/worktime-engine/worktime/store"
)

func finding(code compliance.Code, date string) compliance.Finding {
	return compliance.Finding{EmployeeID: "emp-1", Code: code, Date: generic.MustParseDate(date)}
}

func newDedup(t *testing.T) (*notify.Deduplicator, *store.Memory, *logtest.Hook) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	mem := store.NewMemory()
	clock := func() time.Time { return time.Date(2025, time.March, 20, 9, 0, 0, 0, time.UTC) }
	return notify.NewDeduplicator(mem, log).WithClock(clock), mem, hook
}

// =============================================================================
// DEDUPLICATION
// =============================================================================

func TestRecord_CreatesThenSuppresses(t *testing.T) {
	// GIVEN: An empty notification store
	dedup, mem, hook := newDedup(t)
	ctx := context.Background()
	f := finding(compliance.CodeMissingWorkday, "2025-03-11")

	// WHEN: Recording the same finding twice
	first, err := dedup.Record(ctx, f)
	require.NoError(t, err)
	second, err := dedup.Record(ctx, f)
	require.NoError(t, err)

	// THEN: Created once, then suppressed
	assert.Equal(t, notify.OutcomeCreated, first)
	assert.Equal(t, notify.OutcomeSuppressed, second)

	ns, err := mem.ListNotifications(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "No punches were recorded on 2025-03-11. Please add your working time or an absence.", ns[0].Message)
	assert.Equal(t, 2025, ns[0].CreatedAt.Year())
	assert.NotEmpty(t, ns[0].ID)

	// AND: The suppression is logged at debug level
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, "notification already recorded", hook.LastEntry().Message)
}

func TestRecord_KeyIncludesCodeAndDate(t *testing.T) {
	dedup, mem, _ := newDedup(t)
	ctx := context.Background()

	s, err := dedup.RecordAll(ctx, []compliance.Finding{
		finding(compliance.CodeMissingWorkday, "2025-03-11"),
		finding(compliance.CodeMissingWorkday, "2025-03-12"),
		{EmployeeID: "emp-1", Code: compliance.CodeMissingPunch, Date: generic.MustParseDate("2025-03-11"), Detail: "1 punches"},
		finding(compliance.CodeMissingWorkday, "2025-03-11"),
	})
	require.NoError(t, err)

	assert.Equal(t, notify.Summary{Created: 3, Suppressed: 1}, s)

	ns, err := mem.ListNotifications(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, ns, 3)
	assert.Equal(t, compliance.CodeMissingWorkday, ns[0].Code)
	assert.Equal(t, compliance.CodeMissingPunch, ns[1].Code)
	assert.Equal(t, "2025-03-12", ns[2].Date.String())
}

func TestRecord_ConcurrentSameKey(t *testing.T) {
	// GIVEN: Many goroutines recording the same finding
	dedup, mem, _ := newDedup(t)
	ctx := context.Background()
	f := finding(compliance.CodeRestPeriod, "2025-03-11")

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := dedup.Record(ctx, f)
			assert.NoError(t, err)
			if o == notify.OutcomeCreated {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// THEN: Exactly one notification exists
	assert.Equal(t, 1, created)
	ns, err := mem.ListNotifications(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, ns, 1)
}

func TestRecord_UnknownCode(t *testing.T) {
	dedup, mem, hook := newDedup(t)
	ctx := context.Background()

	_, err := dedup.Record(ctx, finding(compliance.Code(99), "2025-03-11"))

	assert.ErrorIs(t, err, generic.ErrUnknownCode)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	ns, _ := mem.ListNotifications(ctx, "emp-1")
	assert.Empty(t, ns)
}

type failingStore struct{ notify.Store }

func (failingStore) PutNotification(context.Context, notify.Notification) error {
	return errors.New("connection reset")
}

func TestRecordAll_StopsAtStoreError(t *testing.T) {
	dedup := notify.NewDeduplicator(failingStore{}, nil)

	s, err := dedup.RecordAll(context.Background(), []compliance.Finding{
		finding(compliance.CodeMissingWorkday, "2025-03-11"),
		finding(compliance.CodeMissingWorkday, "2025-03-12"),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, notify.Summary{}, s)
}

func TestRecord_OnRecordObservesOutcomes(t *testing.T) {
	dedup, _, _ := newDedup(t)
	var seen []notify.Outcome
	dedup.OnRecord = func(_ compliance.Finding, o notify.Outcome) { seen = append(seen, o) }
	f := finding(compliance.CodeMaxDailyExceeded, "2025-03-11")

	_, _ = dedup.Record(context.Background(), f)
	_, _ = dedup.Record(context.Background(), f)

	assert.Equal(t, []notify.Outcome{notify.OutcomeCreated, notify.OutcomeSuppressed}, seen)
	assert.Equal(t, "suppressed", seen[1].String())
}

// =============================================================================
// TEMPLATES
// =============================================================================

func TestRender_EveryCodeHasATemplate(t *testing.T) {
	for c := compliance.CodeMissingWorkday; c <= compliance.CodeMinorWorkWindow; c++ {
		msg, err := notify.Render(compliance.Finding{Code: c, Date: generic.MustParseDate("2025-03-11")})
		require.NoError(t, err, c.String())
		assert.NotEmpty(t, msg, c.String())
	}
}

func TestRender_FormatsDurations(t *testing.T) {
	msg, err := notify.Render(compliance.Finding{
		Code:     compliance.CodeRestPeriod,
		Date:     generic.MustParseDate("2025-03-11"),
		Observed: 10 * generic.Hour,
		Limit:    11 * generic.Hour,
	})
	require.NoError(t, err)
	assert.Equal(t, "The rest period before 2025-03-11 was 10h00m, below the required 11h00m.", msg)
}

func TestRender_TakesLimitsFromFinding(t *testing.T) {
	// GIVEN: Findings produced by a configured rule set
	date := generic.MustParseDate("2025-03-10")
	cases := []struct {
		finding compliance.Finding
		want    string
	}{
		{
			compliance.Finding{Code: compliance.CodeAverageExceeded, Date: date, Observed: generic.HoursMinutes(8, 20), Limit: generic.HoursMinutes(7, 30), Detail: "12 months"},
			"Your average daily working time of 8h20m over the last 12 months exceeds 7h30m.",
		},
		{
			compliance.Finding{Code: compliance.CodeMinorWorkdays, Date: date, Detail: "6 days (at most 5)"},
			"In the week starting 2025-03-10 you worked on too many days: 6 days (at most 5).",
		},
		{
			compliance.Finding{Code: compliance.CodeMinorWorkWindow, Date: date, Detail: "20:15 (permitted 06:00-20:00)"},
			"On 2025-03-10 a punch at 20:15 (permitted 06:00-20:00) lies outside the youth work window.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.finding.Code.String(), func(t *testing.T) {
			// WHEN: Rendering
			msg, err := notify.Render(tc.finding)

			// THEN: The message repeats the finding's own figures
			require.NoError(t, err)
			assert.Equal(t, tc.want, msg)
		})
	}
}
