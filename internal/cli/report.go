package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponto-labs/ponto/internal/app/report"
	"github.com/ponto-labs/ponto/internal/domain"
	"github.com/ponto-labs/ponto/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("month", "m", "", "Month to report (YYYY-MM, default current)")
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a monthly summary",
	Long: `Aggregate one calendar month: worked time per day, hour balance
against the contractual expectation, and ticket productivity.`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	month, _ := cmd.Flags().GetString("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	from, to, err := report.MonthRange(month, time.Local)
	if err != nil {
		return err
	}

	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	events, tickets, err := db.FetchRange(cmd.Context(), from, to)
	if err != nil {
		return err
	}

	rep := report.Build(events, tickets, from, to, report.Options{
		ContractualDaySeconds: cfg.Workday.ContractualSeconds(),
		LegalExtraSeconds:     cfg.Workday.LegalExtraSeconds(),
		Holidays:              cfg.Workday.HolidaySet(),
		Now:                   time.Now(),
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Report for %s\n\n", month)
	for _, b := range rep.Buckets {
		if b.WorkedSeconds == 0 && b.TicketSeconds == 0 {
			continue
		}
		marker := ""
		if lvl, extra := report.Overtime(b.WorkedSeconds, report.Options{
			ContractualDaySeconds: cfg.Workday.ContractualSeconds(),
			LegalExtraSeconds:     cfg.Workday.LegalExtraSeconds(),
		}); lvl == report.OvertimeLegalLimit {
			marker = fmt.Sprintf("  !! legal limit (+%s)", domain.FormatExtra(extra))
		} else if lvl == report.OvertimeWarning {
			marker = fmt.Sprintf("  overtime +%s", domain.FormatExtra(extra))
		}
		fmt.Fprintf(out, "  %s  worked %s  tickets %s%s\n",
			b.DateKey,
			domain.FormatHoursMinutes(b.WorkedSeconds),
			domain.FormatHoursMinutes(b.TicketSeconds),
			marker)
	}
	fmt.Fprintf(out, "\nTotal worked   %s\n", domain.FormatHoursMinutes(rep.TotalWorkedSeconds))
	fmt.Fprintf(out, "Expected       %s\n", domain.FormatHoursMinutes(rep.ExpectedSeconds))
	fmt.Fprintf(out, "Balance        %s\n", rep.Balance)
	fmt.Fprintf(out, "Productivity   %.1f%%", rep.ProductivityPercent)
	if rep.GoalMet {
		fmt.Fprint(out, "  (goal met)")
	}
	fmt.Fprintln(out)

	if len(rep.RecentTickets) > 0 {
		fmt.Fprintf(out, "\nRecent tickets\n")
		for _, tk := range rep.RecentTickets {
			fmt.Fprintf(out, "  %s  %s  %s\n", tk.WorkDate, tk.Identifier,
				domain.FormatMinutes(tk.AccumulatedSeconds))
		}
	}
	return nil
}
