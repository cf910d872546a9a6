package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

var (
	logsJSON       bool
	logsSince      string
	logsUntil      string
	logsClient     string
	logsStatus     string
	logsResolution string
	logsLimit      int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect and triage the diagnosis log",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List logged diagnoses, newest first",
	Args:  cobra.NoArgs,
	RunE:  runLogsList,
}

var logsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise uptime, latency and defects",
	Long: `Prints the dashboard summary for the selected window: uptime (OK share
of all checks), average latency, NG count, the defect histogram, NG counts
per client and the overdue NG records.`,
	Args: cobra.NoArgs,
	RunE: runLogsReport,
}

var logsOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List unresolved NG diagnoses older than 48 hours",
	Args:  cobra.NoArgs,
	RunE:  runLogsOverdue,
}

var logsResolveCmd = &cobra.Command{
	Use:   "resolve [id]",
	Short: "Mark a diagnosis as resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetResolved(cmd, args[0], true)
	},
}

var logsUnresolveCmd = &cobra.Command{
	Use:   "unresolve [id]",
	Short: "Reopen a resolved diagnosis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetResolved(cmd, args[0], false)
	},
}

func init() {
	logsCmd.PersistentFlags().BoolVar(&logsJSON, "json", false, "output as JSON")

	for _, c := range []*cobra.Command{logsListCmd, logsReportCmd} {
		c.Flags().StringVar(&logsSince, "since", "", "only records at or after this time (RFC 3339 or YYYY-MM-DD)")
		c.Flags().StringVar(&logsUntil, "until", "", "only records before this time (RFC 3339 or YYYY-MM-DD)")
		c.Flags().StringVar(&logsClient, "client", "", "only records from this client id")
		c.Flags().StringVar(&logsStatus, "status", "", "only OK or NG records")
		c.Flags().StringVar(&logsResolution, "resolution", "", "resolved or unresolved")
	}
	logsListCmd.Flags().IntVarP(&logsLimit, "limit", "n", 50, "maximum number of records")

	logsCmd.AddCommand(logsListCmd, logsReportCmd, logsOverdueCmd, logsResolveCmd, logsUnresolveCmd)
	rootCmd.AddCommand(logsCmd)
}

// logFilter builds the filter from the shared flags
func logFilter() (domain.LogFilter, error) {
	filter := domain.LogFilter{
		Resolution: domain.ResolutionFilter(strings.ToLower(strings.TrimSpace(logsResolution))),
		ClientID:   strings.TrimSpace(logsClient),
	}
	if logsStatus != "" {
		status, err := domain.ParseStatus(logsStatus)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	if logsSince != "" {
		t, err := domain.ParseFilterTime(logsSince)
		if err != nil {
			return filter, fmt.Errorf("--since: %w", err)
		}
		filter.Since = &t
	}
	if logsUntil != "" {
		t, err := domain.ParseFilterTime(logsUntil)
		if err != nil {
			return filter, fmt.Errorf("--until: %w", err)
		}
		filter.Until = &t
	}
	return filter, filter.Validate()
}

func runLogsList(cmd *cobra.Command, _ []string) error {
	filter, err := logFilter()
	if err != nil {
		return err
	}
	filter.Limit = logsLimit

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := app.Logs.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	if logsJSON {
		return outputJSON(cmd, records)
	}
	outputRecords(cmd, records)
	return nil
}

func runLogsReport(cmd *cobra.Command, _ []string) error {
	filter, err := logFilter()
	if err != nil {
		return err
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Logs.Report(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}
	if logsJSON {
		return outputJSON(cmd, report)
	}

	cmd.Printf("Total checks:     %d\n", report.Total)
	cmd.Printf("Uptime:           %s\n", formatOptional(report.UptimePercent, "%.1f%%"))
	cmd.Printf("Avg latency:      %s\n", formatOptional(report.AvgLatencyMS, "%.0f ms"))
	cmd.Printf("Critical defects: %d\n", report.NGCount)

	if len(report.DefectCounts) > 0 {
		cmd.Println()
		cmd.Println("Defects:")
		for _, d := range report.DefectCounts {
			cmd.Printf("  %-24s %d\n", d.DefectType, d.Count)
		}
	}
	if len(report.ClientFailures) > 0 {
		cmd.Println()
		cmd.Println("NG by client:")
		for _, c := range report.ClientFailures {
			cmd.Printf("  %-24s %d\n", c.ClientID, c.Failures)
		}
	}
	cmd.Println()
	if len(report.Overdue) == 0 {
		cmd.Println("No overdue NG records.")
		return nil
	}
	cmd.Printf("Overdue (%d):\n", len(report.Overdue))
	outputRecords(cmd, report.Overdue)
	return nil
}

func runLogsOverdue(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := app.Logs.Overdue(cmd.Context())
	if err != nil {
		return fmt.Errorf("overdue query failed: %w", err)
	}
	if logsJSON {
		return outputJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No overdue NG records.")
		return nil
	}
	outputRecords(cmd, records)
	return nil
}

func runSetResolved(cmd *cobra.Command, arg string, resolved bool) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return fmt.Errorf("invalid record id %q", arg)
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	var rec *domain.LogRecord
	if resolved {
		rec, err = app.Logs.Resolve(cmd.Context(), id)
	} else {
		rec, err = app.Logs.Unresolve(cmd.Context(), id)
	}
	if err != nil {
		return err
	}
	if logsJSON {
		return outputJSON(cmd, rec)
	}

	switch {
	case !rec.Resolved:
		cmd.Printf("Record %d reopened\n", rec.ID)
	case rec.ResolvedAt != nil:
		cmd.Printf("Record %d resolved at %s\n", rec.ID, rec.ResolvedAt.UTC().Format(time.RFC3339))
	default:
		cmd.Printf("Record %d resolved\n", rec.ID)
	}
	return nil
}

func outputRecords(cmd *cobra.Command, records []*domain.LogRecord) {
	if len(records) == 0 {
		cmd.Println("No records found.")
		return
	}
	for _, r := range records {
		state := "open"
		if r.Resolved {
			state = "resolved"
		}
		defect := r.DefectType
		if defect == "" {
			defect = domain.UnknownLabel
		}
		cmd.Printf("  #%-6d %s  %-12s %-2s  %-20s %.2f  %s\n",
			r.ID,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.ClientID,
			r.Status,
			defect,
			r.Confidence,
			state,
		)
	}
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}
