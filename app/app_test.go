package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worktime-engine/app"
	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/config"
	"github.com/warp/worktime-engine/engine"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "data", "worktime.db")
	return &cfg
}

func TestBuild_WiresSQLiteEngine(t *testing.T) {
	// GIVEN: A config pointing at a fresh database with a stored holiday
	cfg := testConfig(t)
	log, _ := logtest.NewNullLogger()
	ctx := context.Background()

	a, err := app.Build(ctx, cfg, log)
	require.NoError(t, err)
	require.NoError(t, a.Store.SaveHoliday(ctx, generic.Holiday{Date: generic.MustParseDate("2025-03-12"), Name: "Company day"}))
	require.NoError(t, a.Close())

	// WHEN: Rebuilding from the same file
	a, err = app.Build(ctx, cfg, log)
	require.NoError(t, err)
	defer a.Close()

	// THEN: The stored holiday is part of the calendar
	assert.True(t, a.Calendar.IsHoliday(generic.MustParseDate("2025-03-12")))
	assert.True(t, a.Calendar.IsHoliday(generic.MustParseDate("2025-05-01")))
	assert.Same(t, a.Store, a.Notifications)
	assert.Equal(t, compliance.Options{IncludeMissingDays: true}, a.EvalOptions())

	// AND: The engine evaluates against it
	require.NoError(t, a.Store.SaveEmployee(ctx, worktime.Employee{ID: "anna", Name: "Anna", WeeklyHours: 40}))
	week := generic.Period{Start: generic.MustParseDate("2025-03-10"), End: generic.MustParseDate("2025-03-14")}
	findings, err := a.Engine.EvaluateCompliance(ctx, "anna", week, engine.EvalOptions{Options: a.EvalOptions(), DryRun: true})
	require.NoError(t, err)
	assert.Len(t, findings, 4)
}

func TestBuild_RuleSetFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Compliance.RuleSetPath = filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(cfg.Compliance.RuleSetPath, []byte(`{"rules": [{"rule": "punch_parity"}]}`), 0o644))
	log, _ := logtest.NewNullLogger()
	ctx := context.Background()

	a, err := app.Build(ctx, cfg, log)
	require.NoError(t, err)
	defer a.Close()

	// Missing workdays are not part of the rule set
	require.NoError(t, a.Store.SaveEmployee(ctx, worktime.Employee{ID: "anna", Name: "Anna", WeeklyHours: 40}))
	week := generic.Period{Start: generic.MustParseDate("2025-03-10"), End: generic.MustParseDate("2025-03-14")}
	findings, err := a.Engine.EvaluateCompliance(ctx, "anna", week, engine.EvalOptions{Options: a.EvalOptions(), DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestBuild_Errors(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Compliance.RuleSetPath = filepath.Join(t.TempDir(), "missing.json")
	_, err := app.Build(ctx, cfg, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load rule set")

	cfg = testConfig(t)
	cfg.Storage.NotificationBackend = "redis"
	cfg.Storage.RedisAddr = "127.0.0.1:1"
	_, err = app.Build(ctx, cfg, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}
