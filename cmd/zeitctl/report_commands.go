package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/warp/worktime-engine/api"
	"github.com/warp/worktime-engine/engine"
	"github.com/warp/worktime-engine/flextime"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/notify"
)

func newDayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "day <id> [date]",
		Short: "Show gross, break and net time of one day (default: today)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			date := ctx.today()
			if len(args) > 1 {
				if date, err = generic.ParseDate(args[1]); err != nil {
					return err
				}
			}
			id := generic.EmployeeID(args[0])
			res, err := a.Engine.ComputeDay(cmd.Context(), id, date)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, api.ToDayDTO(id, res))
			}

			if res.Indeterminate {
				printLine(cmd, "%s %s: indeterminate (punches span several dates)", id, date)
				return nil
			}
			rows := make([][]string, 0, len(res.Intervals)+1)
			for _, iv := range res.Intervals {
				rows = append(rows, []string{
					iv.Start.Format("15:04"),
					iv.End.Format("15:04"),
					iv.Duration().String(),
				})
			}
			if res.Unpaired != nil {
				rows = append(rows, []string{res.Unpaired.Time.String(), "?", "unpaired"})
			}
			printLine(cmd, "%s", renderTable([]string{"In", "Out", "Duration"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			printLine(cmd, "Gross %s  Break %s  Net %s", res.Gross, res.Break, res.Net)
			return nil
		},
	}
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var from, to string
	var skipMissing, dryRun bool

	cmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Evaluate compliance rules and record notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			today := ctx.today()
			period := generic.Period{Start: today.AddDays(-7), End: today.AddDays(-1)}
			if from != "" {
				if period.Start, err = generic.ParseDate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if period.End, err = generic.ParseDate(to); err != nil {
					return err
				}
			}

			opts := engine.EvalOptions{Options: a.EvalOptions(), DryRun: dryRun}
			if skipMissing {
				opts.IncludeMissingDays = false
			}

			id := generic.EmployeeID(args[0])
			findings, err := a.Engine.EvaluateCompliance(cmd.Context(), id, period, opts)
			if err != nil {
				return err
			}

			dtos := make([]api.FindingDTO, len(findings))
			for i, f := range findings {
				dtos[i] = api.ToFindingDTO(f)
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, api.ComplianceResponse{
					EmployeeID: string(id),
					Period:     api.PeriodDTO{Start: period.Start, End: period.End},
					DryRun:     dryRun,
					Findings:   dtos,
				})
			}

			if len(dtos) == 0 {
				printLine(cmd, "%s: no findings in %s", id, period)
				return nil
			}
			rows := make([][]string, 0, len(dtos))
			for _, f := range dtos {
				rows = append(rows, []string{f.Date.String(), strconv.Itoa(f.Code), f.Message})
			}
			printLine(cmd, "%s", renderTable([]string{"Date", "Code", "Finding"}, rows, []columnAlignment{alignLeft, alignRight}))
			if dryRun {
				printLine(cmd, "dry run: no notifications recorded")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First day (default: a week ago)")
	cmd.Flags().StringVar(&to, "to", "", "Last day (default: yesterday)")
	cmd.Flags().BoolVar(&skipMissing, "skip-missing", false, "Do not report workdays without punches")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only print findings, record nothing")
	return cmd
}

func newFlexCommand(ctx *commandContext) *cobra.Command {
	var granularity, asOf string

	cmd := &cobra.Command{
		Use:   "flex <id>",
		Short: "Show the flex balance and traffic light",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			q := flextime.Query{Granularity: generic.Granularity(granularity), AsOf: ctx.today()}
			if asOf != "" {
				if q.AsOf, err = generic.ParseDate(asOf); err != nil {
					return err
				}
			}
			bal, err := a.Engine.GetFlexBalance(cmd.Context(), generic.EmployeeID(args[0]), q)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, api.ToFlexBalanceDTO(bal))
			}

			rows := make([][]string, 0, len(bal.Breakdown))
			for _, s := range bal.Breakdown {
				rows = append(rows, []string{s.Period.String(), s.Total.String(), s.Hours.String()})
			}
			printLine(cmd, "%s", renderTable([]string{"Period", "Balance", "Hours"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
			printLine(cmd, "Total %s (%s) over %s, %d days worked: %s",
				bal.Total, bal.Hours, bal.Period, bal.DaysWorked,
				renderStatus(bal.Status, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().StringVarP(&granularity, "granularity", "g", "month", "month, quarter or year")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date (default: today)")
	return cmd
}

func newFlexAverageCommand(ctx *commandContext) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "flex-average <id>",
		Short: "Show the mean daily flex delta over a period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			period := generic.GranularityMonth.ToDate(ctx.today())
			if from != "" {
				if period.Start, err = generic.ParseDate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if period.End, err = generic.ParseDate(to); err != nil {
					return err
				}
			}
			av, err := a.Engine.GetFlexAverage(cmd.Context(), generic.EmployeeID(args[0]), period)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, api.ToFlexAverageDTO(av))
			}
			printLine(cmd, "Average %s per day over %d days in %s (total %s)",
				av.Average, av.Counted(), av.Period, av.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First day (default: start of the month)")
	cmd.Flags().StringVar(&to, "to", "", "Last day (default: today)")
	return cmd
}

func newNotificationsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications <id>",
		Short: "List recorded notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ns, err := a.Engine.ListNotifications(cmd.Context(), generic.EmployeeID(args[0]))
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				dtos := make([]api.NotificationDTO, len(ns))
				for i, n := range ns {
					dtos[i] = api.ToNotificationDTO(n)
				}
				return writeJSON(cmd, dtos)
			}
			printLine(cmd, "%s", renderNotifications(ns))
			return nil
		},
	}
}

func renderNotifications(ns []notify.Notification) string {
	rows := make([][]string, 0, len(ns))
	for _, n := range ns {
		rows = append(rows, []string{
			n.Date.String(),
			strconv.Itoa(int(n.Code)),
			n.Message,
			n.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable([]string{"Date", "Code", "Message", "Recorded"}, rows, []columnAlignment{alignLeft, alignRight})
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "seed [scenario]",
		Short: "Load a demo scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list || len(args) == 0 {
				rows := [][]string{}
				for _, s := range api.Scenarios() {
					rows = append(rows, []string{s.ID, s.Description})
				}
				printLine(cmd, "%s", renderTable([]string{"Scenario", "Description"}, rows, nil))
				return nil
			}
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := api.SeedScenario(cmd.Context(), a.Store, args[0], ctx.today()); err != nil {
				return fmt.Errorf("seed %s: %w", args[0], err)
			}
			printLine(cmd, "Loaded scenario %s", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List available scenarios")
	return cmd
}
