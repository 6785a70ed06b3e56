package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/fentz26/tempo/internal/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build reports from tracked time",
}

var reportTimesheetCmd = &cobra.Command{
	Use:   "timesheet",
	Short: "Timesheet of banked sessions with amounts",
	RunE:  runReportTimesheet,
}

var (
	reportProject string
	reportFrom    string
	reportTo      string
	reportGroup   string
	reportFormat  string
	reportOutput  string
)

func init() {
	reportCmd.AddCommand(reportTimesheetCmd)

	reportTimesheetCmd.Flags().StringVar(&reportProject, "project", "", "Project ID (default all projects)")
	reportTimesheetCmd.Flags().StringVar(&reportFrom, "from", "", "Start date, inclusive (YYYY-MM-DD)")
	reportTimesheetCmd.Flags().StringVar(&reportTo, "to", "", "End date, exclusive (YYYY-MM-DD)")
	reportTimesheetCmd.Flags().StringVar(&reportGroup, "group", "day", "Grouping: none, day or week")
	reportTimesheetCmd.Flags().StringVar(&reportFormat, "format", "yaml", "Output format: json, yaml or pdf")
	reportTimesheetCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output file (default stdout; required for pdf)")
}

func runReportTimesheet(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	if _, err := report.ParseGroup(reportGroup); err != nil {
		return err
	}
	if format == report.FormatPDF && reportOutput == "" {
		return fmt.Errorf("--output is required for pdf")
	}

	q := url.Values{}
	q.Set("group", reportGroup)
	q.Set("format", string(format))
	if reportProject != "" {
		q.Set("project_id", reportProject)
	}
	if reportFrom != "" {
		q.Set("from", reportFrom)
	}
	if reportTo != "" {
		q.Set("to", reportTo)
	}

	data, err := apiGet("/reports/timesheet?" + q.Encode())
	if err != nil {
		return err
	}

	if reportOutput == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(reportOutput, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", reportOutput)
	return nil
}
