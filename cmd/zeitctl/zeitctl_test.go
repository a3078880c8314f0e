package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worktime-engine/api"
)

type cli struct {
	dir    string
	config string
	db     string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	return &cli{
		dir:    dir,
		config: filepath.Join(dir, "absent.toml"),
		db:     filepath.Join(dir, "worktime.db"),
	}
}

// run executes one zeitctl invocation with its own command context, the way
// separate shell calls would.
func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx := newCommandContext()
	ctx.now = func() time.Time { return time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC) }
	defer ctx.close()

	cmd := newRootCommand(ctx)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", c.config, "--db", c.db}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestCLI_RecordAndReport(t *testing.T) {
	c := newCLI(t)

	// GIVEN: An employee with one 9h day
	assert.Contains(t, c.mustRun(t, "employee", "add", "anna", "Anna"), "Saved employee anna (Anna, 40h/week)")
	c.mustRun(t, "punch", "anna", "2025-03-10", "08:00")
	c.mustRun(t, "punch", "anna", "2025-03-10", "17:00")

	// WHEN: Showing the day
	out := c.mustRun(t, "day", "anna", "2025-03-10")

	// THEN: The break is deducted
	assert.Contains(t, out, "Gross 9h00m  Break 30m  Net 8h30m")

	// WHEN: Checking the week
	out = c.mustRun(t, "--json", "check", "anna", "--from", "2025-03-10", "--to", "2025-03-14")
	var resp api.ComplianceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	// THEN: Four missing days plus the rolling average over the one 8h30 day
	codes := map[string]int{}
	for _, f := range resp.Findings {
		codes[f.CodeName]++
	}
	assert.Equal(t, map[string]int{"missing_workday": 4, "average_exceeded": 1}, codes)

	// AND: Checking again records nothing new
	c.mustRun(t, "check", "anna", "--from", "2025-03-10", "--to", "2025-03-14")
	out = c.mustRun(t, "--json", "notifications", "anna")
	var ns []api.NotificationDTO
	require.NoError(t, json.Unmarshal([]byte(out), &ns))
	assert.Len(t, ns, 5)

	// AND: The month-to-date flex balance is red
	out = c.mustRun(t, "--json", "flex", "anna", "--as-of", "2025-03-14")
	var bal api.FlexBalanceDTO
	require.NoError(t, json.Unmarshal([]byte(out), &bal))
	// 10 workdays: +30m on Monday, -8h on the other nine
	assert.Equal(t, int64(-(9*8*3600 - 30*60)), bal.Balance.Seconds)
	assert.Equal(t, "red", bal.Status)

	out = c.mustRun(t, "flex", "anna", "--as-of", "2025-03-14")
	assert.Contains(t, out, "1 days worked: red")
}

func TestCLI_PunchRestWarningAndFlexAverage(t *testing.T) {
	c := newCLI(t)
	c.mustRun(t, "employee", "add", "anna", "Anna")
	c.mustRun(t, "punch", "anna", "2025-03-10", "13:00")
	c.mustRun(t, "punch", "anna", "2025-03-10", "22:00")

	// WHEN: Punching in nine hours later
	out := c.mustRun(t, "punch", "anna", "2025-03-11", "07:00")

	// THEN: The punch is recorded with a warning
	assert.Contains(t, out, "Punched anna at 2025-03-11 07:00")
	assert.Contains(t, out, "Warning: The rest period since 2025-03-10 22:00 is 9h00m, below the required 11h00m.")

	c.mustRun(t, "punch", "anna", "2025-03-11", "16:00")

	// WHEN: Averaging Monday and Tuesday
	out = c.mustRun(t, "--json", "flex-average", "anna", "--from", "2025-03-10", "--to", "2025-03-11")
	var av api.FlexAverageDTO
	require.NoError(t, json.Unmarshal([]byte(out), &av))

	// THEN: Both days are 9h gross = 8h30 net, +30m each
	assert.Equal(t, 2, av.Days)
	assert.Equal(t, int64(60*60), av.Total.Seconds)
	assert.Equal(t, "30m", av.Average.Display)

	out = c.mustRun(t, "flex-average", "anna", "--from", "2025-03-10", "--to", "2025-03-11")
	assert.Contains(t, out, "over 2 days in [2025-03-10, 2025-03-11]")

	_, err := c.run(t, "flex-average", "anna", "--from", "2025-03-11", "--to", "2025-03-10")
	assert.Error(t, err)
}

func TestCLI_DryRunAndSkipMissing(t *testing.T) {
	c := newCLI(t)
	c.mustRun(t, "employee", "add", "ben", "Ben", "-w", "35")

	out := c.mustRun(t, "check", "ben", "--from", "2025-03-10", "--to", "2025-03-14", "--skip-missing")
	assert.Contains(t, out, "ben: no findings in [2025-03-10, 2025-03-14]")

	out = c.mustRun(t, "check", "ben", "--from", "2025-03-10", "--to", "2025-03-14", "--dry-run")
	assert.Contains(t, out, "dry run: no notifications recorded")

	out = c.mustRun(t, "--json", "notifications", "ben")
	assert.JSONEq(t, "[]", out)
}

func TestCLI_EmployeeSettings(t *testing.T) {
	c := newCLI(t)
	c.mustRun(t, "employee", "add", "carla", "Carla", "--birth-date", "2009-05-01", "-w", "30")

	assert.Contains(t, c.mustRun(t, "employee", "thresholds", "carla", "2", "4"), "Updated thresholds of carla")
	assert.Contains(t, c.mustRun(t, "employee", "hours", "carla", "2025-03-01", "35"), "carla works 35h/week from 2025-03-01")

	out := c.mustRun(t, "--json", "employee", "list")
	var emps []api.EmployeeDTO
	require.NoError(t, json.Unmarshal([]byte(out), &emps))
	require.Len(t, emps, 1)
	require.NotNil(t, emps[0].Thresholds)
	assert.Equal(t, "4", emps[0].Thresholds.RedUpper.String())
	require.Len(t, emps[0].HoursHistory, 1)

	out = c.mustRun(t, "employee", "list")
	assert.Contains(t, out, "Carla")
	assert.Contains(t, out, "2009-05-01")

	_, err := c.run(t, "employee", "thresholds", "carla", "2")
	assert.Error(t, err)
	c.mustRun(t, "employee", "thresholds", "carla", "--reset")
}

func TestCLI_AbsencesHolidaysAndValidation(t *testing.T) {
	c := newCLI(t)
	c.mustRun(t, "employee", "add", "anna", "Anna")
	c.mustRun(t, "punch", "anna", "2025-03-10", "08:00")

	assert.Contains(t, c.mustRun(t, "absence", "anna", "2025-03-11", "2025-03-12", "Vacation"), "Recorded vacation for anna")
	assert.Contains(t, c.mustRun(t, "holiday", "add", "2025-03-13", "Company day"), "Added holiday Company day on 2025-03-13")
	assert.Contains(t, c.mustRun(t, "holiday", "list"), "Company day")

	out := c.mustRun(t, "check", "anna", "--from", "2025-03-10", "--to", "2025-03-14", "--dry-run")
	// Monday odd punches, Friday missing
	assert.Contains(t, out, "2025-03-10")
	assert.Contains(t, out, "2025-03-14")
	assert.NotContains(t, out, "2025-03-11")

	assert.Contains(t, c.mustRun(t, "validate", "anna"), "Validated 1 punches of anna through 2025-03-20")
}

func TestCLI_Errors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(t, "punch", "ghost", "2025-03-10", "08:00")
	assert.Error(t, err)

	_, err = c.run(t, "absence", "ghost", "2025-03-10", "2025-03-11", "sabbatical")
	assert.Error(t, err)

	_, err = c.run(t, "day", "ghost", "10.03.2025")
	assert.Error(t, err)
}

func TestCLI_Seed(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun(t, "seed")
	for _, s := range api.Scenarios() {
		assert.Contains(t, out, s.ID)
	}

	assert.Contains(t, c.mustRun(t, "seed", "violations"), "Loaded scenario violations")
	_, err := c.run(t, "seed", "violations")
	assert.Error(t, err)
}

func TestCLI_Config(t *testing.T) {
	c := newCLI(t)
	path := filepath.Join(c.dir, "conf", "worktime.toml")

	// config init works without a loadable config
	c.config = filepath.Join(c.dir, "broken.toml")
	require.NoError(t, os.WriteFile(c.config, []byte("[server"), 0o644))
	assert.Contains(t, c.mustRun(t, "config", "init", "--path", path), "Wrote sample configuration")

	_, err := c.run(t, "config", "init", "--path", path)
	assert.Error(t, err)
	c.mustRun(t, "config", "init", "--path", path, "--overwrite")

	_, err = c.run(t, "config", "validate")
	assert.Error(t, err)

	c.config = path
	out := c.mustRun(t, "config", "validate")
	assert.Contains(t, out, "Configuration OK")
	assert.Contains(t, out, c.db)
}
