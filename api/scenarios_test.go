package api_test

import (
	"context"
	"net/http"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worktime-engine/api"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime/store"
)

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_LoadViaAPI(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.ScenarioDTO](t, rec), 4)

	rec = s.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.JSONEq(t, "null", rec.Body.String())

	// WHEN: Loading the violations scenario
	rec = s.do(t, http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "violations"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: It becomes current
	rec = s.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "violations", decode[api.ScenarioDTO](t, rec).ID)

	// AND: Loading it again is rejected
	rec = s.do(t, http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "violations"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenarios_ViolationsProduceEveryAdultFinding(t *testing.T) {
	s := newServer(t)
	require.NoError(t, api.SeedScenario(context.Background(), s.mem, "violations", generic.DateOf(now)))

	rec := s.do(t, http.MethodPost, "/api/employees/demo-ben/compliance?from=2025-03-10&to=2025-03-16&dry_run=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	codes := codeNames(decode[api.ComplianceResponse](t, rec).Findings)

	assert.Equal(t, 1, codes["max_daily_exceeded"])
	assert.Equal(t, 1, codes["rest_period"])
	assert.Equal(t, 1, codes["missing_punch"])
	assert.Equal(t, 1, codes["missing_workday"])
	assert.Equal(t, 1, codes["sunday_holiday_work"])
}

func TestScenarios_YouthProducesMinorFindings(t *testing.T) {
	s := newServer(t)
	require.NoError(t, api.SeedScenario(context.Background(), s.mem, "youth", generic.DateOf(now)))

	rec := s.do(t, http.MethodPost, "/api/employees/demo-carla/compliance?from=2025-03-10&to=2025-03-16&dry_run=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	codes := codeNames(decode[api.ComplianceResponse](t, rec).Findings)

	assert.Equal(t, 1, codes["minor_weekly_hours"])
	assert.Equal(t, 1, codes["minor_workdays"])
	assert.Equal(t, 1, codes["minor_work_window"])
	assert.Zero(t, codes["max_daily_exceeded"])
}

func TestScenarios_FlexOvertimeIsRed(t *testing.T) {
	s := newServer(t)
	require.NoError(t, api.SeedScenario(context.Background(), s.mem, "flex-overtime", generic.DateOf(now)))

	rec := s.do(t, http.MethodGet, "/api/employees/demo-dana/flex?from=2025-02-20&to=2025-03-19", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decode[api.FlexBalanceDTO](t, rec)

	// 20 workdays at 8h30 net against 7h
	assert.Equal(t, 20, b.DaysWorked)
	assert.Equal(t, int64(20*90*60), b.Balance.Seconds)
	assert.Equal(t, "red", b.Status)

	rec = s.do(t, http.MethodGet, "/api/employees/demo-dana/absences?from=2025-03-27&to=2025-03-31", nil)
	assert.Len(t, decode[[]api.AbsenceDTO](t, rec), 1)
}

func TestScenarios_RegularWeekIsClean(t *testing.T) {
	s := newServer(t)
	require.NoError(t, api.SeedScenario(context.Background(), s.mem, "regular-week", generic.DateOf(now)))

	rec := s.do(t, http.MethodPost, "/api/employees/demo-anna/compliance?from=2025-03-10&to=2025-03-16&dry_run=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[api.ComplianceResponse](t, rec).Findings)
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestScheduler_RunOnce(t *testing.T) {
	// GIVEN: Two seeded employees and a scheduler looking back one week
	s := newServer(t)
	ctx := context.Background()
	today := generic.DateOf(now)
	require.NoError(t, api.SeedScenario(ctx, s.mem, "regular-week", today))
	require.NoError(t, api.SeedScenario(ctx, s.mem, "violations", today))

	log, _ := logtest.NewNullLogger()
	cs := api.NewComplianceScheduler(s.engine, s.mem, log)
	cs.Now = clock
	assert.Equal(t, "[2025-03-13, 2025-03-19]", cs.Window().String())

	// WHEN: Running a pass twice
	first := cs.RunOnce(ctx)
	second := cs.RunOnce(ctx)

	// THEN: Both employees are evaluated and notifications are not duplicated
	assert.Equal(t, 2, first.Employees)
	assert.Zero(t, first.Failed)
	assert.Positive(t, first.Findings)
	assert.Equal(t, first, second)

	ns, err := s.mem.ListNotifications(ctx, "demo-ben")
	require.NoError(t, err)
	perBen := len(ns)
	ns, err = s.mem.ListNotifications(ctx, "demo-anna")
	require.NoError(t, err)
	assert.Equal(t, first.Findings, perBen+len(ns))
}

func TestScheduler_StartStop(t *testing.T) {
	s := newServer(t)
	log, _ := logtest.NewNullLogger()
	cs := api.NewComplianceScheduler(s.engine, store.NewMemory(), log)

	cs.Start()
	cs.Start()
	cs.Stop()
	cs.Stop()

	cs.Enabled = false
	cs.Start()
	cs.Stop()
}
