package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/worktime-engine/api"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

func newEmployeeCommand(ctx *commandContext) *cobra.Command {
	employeeCmd := &cobra.Command{
		Use:   "employee",
		Short: "Manage employees",
	}
	employeeCmd.AddCommand(newEmployeeAddCommand(ctx))
	employeeCmd.AddCommand(newEmployeeListCommand(ctx))
	employeeCmd.AddCommand(newEmployeeThresholdsCommand(ctx))
	employeeCmd.AddCommand(newEmployeeHoursCommand(ctx))
	return employeeCmd
}

func newEmployeeAddCommand(ctx *commandContext) *cobra.Command {
	var weeklyHours int
	var birthDate, supervisor string

	cmd := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Create or update an employee",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			emp := worktime.Employee{
				ID:           generic.EmployeeID(args[0]),
				Name:         args[1],
				WeeklyHours:  weeklyHours,
				SupervisorID: generic.EmployeeID(supervisor),
			}
			if birthDate != "" {
				if emp.BirthDate, err = generic.ParseDate(birthDate); err != nil {
					return err
				}
			}
			if err := a.Store.SaveEmployee(cmd.Context(), emp); err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, api.ToEmployeeDTO(emp))
			}
			printLine(cmd, "Saved employee %s (%s, %dh/week)", emp.ID, emp.Name, emp.WeeklyHours)
			return nil
		},
	}
	cmd.Flags().IntVarP(&weeklyHours, "weekly-hours", "w", 40, "Contractual weekly hours (30, 35 or 40)")
	cmd.Flags().StringVar(&birthDate, "birth-date", "", "Birth date (YYYY-MM-DD), enables youth rules for minors")
	cmd.Flags().StringVar(&supervisor, "supervisor", "", "Supervisor employee ID")
	return cmd
}

func newEmployeeListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			employees, err := a.Store.ListEmployees(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				dtos := make([]api.EmployeeDTO, len(employees))
				for i, e := range employees {
					dtos[i] = api.ToEmployeeDTO(e)
				}
				return writeJSON(cmd, dtos)
			}

			rows := make([][]string, 0, len(employees))
			for _, e := range employees {
				birth := "-"
				if !e.BirthDate.IsZero() {
					birth = e.BirthDate.String()
				}
				rows = append(rows, []string{
					string(e.ID),
					e.Name,
					strconv.Itoa(e.WeeklyHoursOn(ctx.today())),
					birth,
					string(e.SupervisorID),
				})
			}
			printLine(cmd, "%s", renderTable(
				[]string{"ID", "Name", "Hours/week", "Born", "Supervisor"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newEmployeeThresholdsCommand(ctx *commandContext) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "thresholds <id> [green-hours red-hours]",
		Short: "Set symmetric flex thresholds, or --reset to the defaults",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			id := generic.EmployeeID(args[0])

			var t *worktime.Thresholds
			switch {
			case reset:
			case len(args) == 3:
				green, err := decimal.NewFromString(args[1])
				if err != nil {
					return fmt.Errorf("green hours: %w", err)
				}
				red, err := decimal.NewFromString(args[2])
				if err != nil {
					return fmt.Errorf("red hours: %w", err)
				}
				v := worktime.SymmetricThresholds(green, red)
				t = &v
			default:
				return fmt.Errorf("give green and red hours, or --reset")
			}

			if err := a.Store.SetThresholds(cmd.Context(), id, t); err != nil {
				return err
			}
			printLine(cmd, "Updated thresholds of %s", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Use the system default thresholds")
	return cmd
}

func newEmployeeHoursCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "hours <id> <valid-from> <weekly-hours>",
		Short: "Record a change of the contractual weekly hours",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			from, err := generic.ParseDate(args[1])
			if err != nil {
				return err
			}
			hours, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("weekly hours: %w", err)
			}
			change := worktime.WeeklyHoursChange{ValidFrom: from, Hours: hours}
			if err := a.Store.AddWeeklyHoursChange(cmd.Context(), generic.EmployeeID(args[0]), change); err != nil {
				return err
			}
			printLine(cmd, "%s works %dh/week from %s", args[0], hours, from)
			return nil
		},
	}
}

// =============================================================================
// PUNCHES & ABSENCES
// =============================================================================

func newPunchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "punch <id> [date] [time]",
		Short: "Record a punch (defaults to now)",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			now := ctx.now()
			entry := worktime.TimeEntry{
				EmployeeID: generic.EmployeeID(args[0]),
				Date:       generic.DateOf(now),
				Time:       generic.TimeOfDayOf(now),
			}
			if len(args) > 1 {
				if entry.Date, err = generic.ParseDate(args[1]); err != nil {
					return err
				}
			}
			if len(args) > 2 {
				if entry.Time, err = generic.ParseTimeOfDay(args[2]); err != nil {
					return err
				}
			}

			check, err := a.Engine.CheckRestBeforePunch(cmd.Context(), entry.EmployeeID, entry.At())
			if err != nil {
				return err
			}
			saved, err := a.Store.AddPunch(cmd.Context(), entry)
			if err != nil {
				return err
			}
			resp := api.ToCreatePunchResponse(saved, check)
			if ctx.jsonFlag {
				return writeJSON(cmd, resp)
			}
			printLine(cmd, "Punched %s at %s %s", saved.EmployeeID, saved.Date, saved.Time)
			if resp.Warning != nil {
				printLine(cmd, "Warning: %s", resp.Warning.Message)
			}
			return nil
		},
	}
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var through string

	cmd := &cobra.Command{
		Use:   "validate <id>",
		Short: "Mark punches up to a date as validated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			date := ctx.today()
			if through != "" {
				if date, err = generic.ParseDate(through); err != nil {
					return err
				}
			}
			id := generic.EmployeeID(args[0])
			if _, err := a.Store.GetEmployee(cmd.Context(), id); err != nil {
				return err
			}
			n, err := a.Store.MarkValidated(cmd.Context(), id, date)
			if err != nil {
				return err
			}
			printLine(cmd, "Validated %d punches of %s through %s", n, id, date)
			return nil
		},
	}
	cmd.Flags().StringVar(&through, "through", "", "Last date to validate (default: today)")
	return cmd
}

func newAbsenceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "absence <id> <from> <to> <type>",
		Short: "Record an absence (vacation, sickness, training, other)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			from, err := generic.ParseDate(args[1])
			if err != nil {
				return err
			}
			to, err := generic.ParseDate(args[2])
			if err != nil {
				return err
			}
			typ, err := worktime.ParseAbsenceType(strings.ToLower(args[3]))
			if err != nil {
				return err
			}

			saved, err := a.Store.AddAbsence(cmd.Context(), worktime.Absence{
				EmployeeID: generic.EmployeeID(args[0]),
				Start:      from,
				End:        to,
				Type:       typ,
			})
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, api.ToAbsenceDTO(saved))
			}
			printLine(cmd, "Recorded %s for %s from %s to %s", saved.Type, saved.EmployeeID, saved.Start, saved.End)
			return nil
		},
	}
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func newHolidayCommand(ctx *commandContext) *cobra.Command {
	holidayCmd := &cobra.Command{
		Use:   "holiday",
		Short: "Manage the holiday calendar",
	}

	var recurring bool
	addCmd := &cobra.Command{
		Use:   "add <date> <name>",
		Short: "Add a public holiday",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			date, err := generic.ParseDate(args[0])
			if err != nil {
				return err
			}
			hol := generic.Holiday{Date: date, Name: args[1], Recurring: recurring}
			if err := a.Store.SaveHoliday(cmd.Context(), hol); err != nil {
				return err
			}
			printLine(cmd, "Added holiday %s on %s", hol.Name, hol.Date)
			return nil
		},
	}
	addCmd.Flags().BoolVar(&recurring, "recurring", false, "Repeat every year on the same day")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List holidays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			stored, err := a.Store.ListHolidays(cmd.Context())
			if err != nil {
				return err
			}
			all := append(generic.GermanFixedHolidays(), stored...)
			rows := make([][]string, 0, len(all))
			for _, h := range all {
				date := h.Date.String()
				if h.Recurring {
					date = h.Date.Time().Format("01-02") + " (yearly)"
				}
				rows = append(rows, []string{date, h.Name})
			}
			printLine(cmd, "%s", renderTable([]string{"Date", "Name"}, rows, nil))
			return nil
		},
	}

	holidayCmd.AddCommand(addCmd, listCmd)
	return holidayCmd
}
