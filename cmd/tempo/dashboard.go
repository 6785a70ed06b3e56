package main

import (
	"fmt"

	"github.com/fentz26/tempo/internal/models"
	"github.com/fentz26/tempo/internal/report"
	"github.com/fentz26/tempo/internal/timer"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show totals across clients, projects, tasks and proposals",
	RunE:  runDashboard,
}

var dashboardCurrency string

func init() {
	dashboardCmd.Flags().StringVar(&dashboardCurrency, "currency", "USD", "Currency label for accepted proposals")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	var d models.Dashboard
	if err := getJSON("/dashboard", &d); err != nil {
		return err
	}

	fmt.Printf("Clients:        %d\n", d.Clients)
	fmt.Printf("Projects:       %d\n", d.Projects)
	fmt.Printf("Tasks:          %d open, %d done\n", d.OpenTasks, d.DoneTasks)
	fmt.Printf("Tracked:        %s total, %s today\n", timer.FormatSeconds(d.TrackedSeconds), timer.FormatSeconds(d.TodaySeconds))
	fmt.Printf("Proposals:      %d open, %s accepted\n", d.OpenProposals, report.FormatMoney(d.AcceptedCents, dashboardCurrency))

	if len(d.RunningTasks) == 0 {
		fmt.Println("Running:        none")
		return nil
	}
	fmt.Println("Running:")
	for _, t := range d.RunningTasks {
		fmt.Printf("  %s  since %s  (%s)\n", t.Title, formatTime(t.LastResumeAt), t.ID)
	}
	return nil
}
