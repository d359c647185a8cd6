package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/report"
	"github.com/user/secdash/internal/storage"
	"github.com/user/secdash/internal/util"
)

var (
	reportType   string
	reportSearch string
	reportFormat string
	reportOutput string
	archiveID    string
	archiveLimit int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate security reports",
	Long: `Synthesize reports from a fresh snapshot of the backend.

The markdown format writes one document with Mermaid charts. JSON and CSV
write one file per report, named after the report and its date.

Examples:
  secdash report
  secdash report --format csv --type alerts
  secdash report --format json --output -
  secdash report list --search critical`,
	RunE: runReport,
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the reports available for the current data",
	RunE:  runReportList,
}

var reportArchiveCmd = &cobra.Command{
	Use:   "archive [archive-id]",
	Short: "List reports archived by the daemon, or print one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReportArchive,
}

var reportBackendCmd = &cobra.Command{
	Use:   "backend [list|generate TYPE|download ID]",
	Short: "Work with reports stored on the backend",
	Args:  cobra.RangeArgs(0, 2),
	RunE:  runReportBackend,
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportType, "type", "",
		"Report type (summary, alerts, hosts, protocols, performance)")
	reportCmd.PersistentFlags().StringVar(&reportSearch, "search", "",
		"Only reports whose name or description contains this text")
	reportCmd.Flags().StringVar(&reportFormat, "format", "markdown",
		"Output format (markdown, json, csv)")
	reportCmd.PersistentFlags().StringVarP(&reportOutput, "output", "o", "",
		"Output file or directory, - for stdout (default: report_output_dir)")

	reportArchiveCmd.Flags().StringVar(&archiveID, "id", "", "Only archived copies of this report id")
	reportArchiveCmd.Flags().IntVar(&archiveLimit, "limit", 20, "Maximum reports to list")

	for _, c := range []*cobra.Command{reportListCmd, reportArchiveCmd, reportBackendCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Print raw JSON")
	}

	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportArchiveCmd)
	reportCmd.AddCommand(reportBackendCmd)
}

// currentReports fetches a snapshot and synthesizes the filtered reports.
func currentReports() (*model.Snapshot, []model.Report, error) {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return nil, nil, err
	}

	snap := svc.Snapshot(ctx)
	reports := report.NewGenerator().Generate(snap)
	return snap, report.Filter(reports, model.ReportType(reportType), reportSearch), nil
}

func runReport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(reportFormat)
	var dlFormat model.ReportFormat
	if format != "markdown" && format != "md" {
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}
		dlFormat = f
	}

	snap, reports, err := currentReports()
	if err != nil {
		return err
	}
	printFailures(snap.Failures)

	if dlFormat == "" {
		return writeMarkdownReport(snap, reports)
	}

	if len(reports) == 0 {
		fmt.Println("No reports match")
		return nil
	}

	for _, r := range reports {
		name, data, err := report.Download(r, dlFormat)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", r.ID, err)
		}
		if reportOutput == "-" {
			os.Stdout.Write(data)
			fmt.Println()
			continue
		}
		dir := reportOutput
		if dir == "" {
			dir = cfg.ReportOutputDir
		}
		if err := util.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create report dir: %w", err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report saved to: %s\n", path)
	}
	return nil
}

func writeMarkdownReport(snap *model.Snapshot, reports []model.Report) error {
	content := report.FormatMarkdown(snap, reports)

	switch reportOutput {
	case "":
		outputPath, err := report.WriteMarkdownFile(content, cfg.ReportOutputDir)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report saved to: %s\n", outputPath)
	case "-":
		fmt.Println(content)
		return nil
	default:
		if err := os.WriteFile(reportOutput, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report saved to: %s\n", reportOutput)
	}

	fmt.Println()
	fmt.Println("Report Summary:")
	fmt.Printf("  Network: %s\n", snap.Network.Status)
	fmt.Printf("  Alerts: %d (%d high)\n", snap.AlertStats.Total, snap.AlertStats.High)
	fmt.Printf("  Hosts: %d\n", len(snap.Hosts))
	fmt.Printf("  Reports: %d\n", len(reports))
	return nil
}

func runReportList(cmd *cobra.Command, args []string) error {
	_, reports, err := currentReports()
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(reports)
	}

	printTitle(fmt.Sprintf("Reports (%d)", len(reports)))
	for _, r := range reports {
		fmt.Printf("  %-26s %-12s %-10s %s\n", r.ID, r.Type, r.Size, r.Name)
		fmt.Printf("  %s\n", labelStyle.Render(r.Description))
	}
	return nil
}

func runReportArchive(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	store := storage.NewReportStorage(db)

	if len(args) == 1 {
		a, err := store.Get(args[0])
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("archived report %s not found", args[0])
		}
		return printJSON(a)
	}

	archived, err := store.List(archiveID, archiveLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(archived)
	}

	printTitle(fmt.Sprintf("Archived Reports (%d)", len(archived)))
	for _, a := range archived {
		fmt.Printf("  %s  %s  %-26s %s\n",
			a.ArchiveID, a.CreatedAt.Local().Format("2006-01-02 15:04"), a.Report.ID, a.Report.Name)
	}
	return nil
}

func runReportBackend(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := newService()
	if err != nil {
		return err
	}

	action := "list"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "list":
		reports := svc.ListBackendReports(ctx)
		if jsonOutput {
			return printJSON(reports)
		}
		printTitle(fmt.Sprintf("Backend Reports (%d)", len(reports)))
		for _, r := range reports {
			fmt.Printf("  %-20s %-12s %-12s %-20s %s\n", r.ID, r.Type, r.Status, r.Date, r.Name)
		}
		return nil

	case "generate":
		if len(args) < 2 {
			return fmt.Errorf("generate needs a report type")
		}
		out, err := svc.GenerateBackendReport(ctx, args[1])
		if err != nil {
			return err
		}
		return printJSON(out)

	case "download":
		if len(args) < 2 {
			return fmt.Errorf("download needs a report id")
		}
		data, err := svc.DownloadBackendReport(ctx, args[1])
		if err != nil {
			return err
		}
		if reportOutput == "" || reportOutput == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(reportOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report saved to: %s\n", reportOutput)
		return nil

	default:
		return fmt.Errorf("unknown action %q", action)
	}
}
