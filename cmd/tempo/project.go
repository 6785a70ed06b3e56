package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/fentz26/tempo/internal/api"
	"github.com/fentz26/tempo/internal/models"
	"github.com/fentz26/tempo/internal/report"
	"github.com/fentz26/tempo/internal/timer"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectAdd,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE:  runProjectList,
}

var projectTasksCmd = &cobra.Command{
	Use:   "tasks [project-id]",
	Short: "List a project's tasks with live elapsed time",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectTasks,
}

var projectActiveCmd = &cobra.Command{
	Use:   "active [project-id]",
	Short: "Show the task whose timer is running in a project's scope",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectActive,
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive [project-id]",
	Short: "Archive a project, stopping its timers",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectArchive,
}

var projectRmCmd = &cobra.Command{
	Use:   "rm [project-id]",
	Short: "Delete a project with its tasks and sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectRm,
}

var (
	projectClient   string
	projectRate     string
	projectCurrency string
	projectArchived bool
	projectUnarch   bool
)

func init() {
	projectCmd.AddCommand(projectAddCmd, projectListCmd, projectTasksCmd, projectActiveCmd, projectArchiveCmd, projectRmCmd)

	projectAddCmd.Flags().StringVar(&projectClient, "client", "", "Owning client ID")
	projectAddCmd.Flags().StringVar(&projectRate, "rate", "", "Hourly rate, e.g. 75 or 72.50")
	projectAddCmd.Flags().StringVar(&projectCurrency, "currency", "", "ISO currency code (default USD)")

	projectListCmd.Flags().StringVar(&projectClient, "client", "", "Filter by client ID")
	projectListCmd.Flags().BoolVar(&projectArchived, "archived", false, "Include archived projects")

	projectArchiveCmd.Flags().BoolVar(&projectUnarch, "undo", false, "Unarchive instead")
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	rate, err := parseMoney(projectRate)
	if err != nil {
		return err
	}
	in := api.ProjectInput{ClientID: projectClient, Name: args[0], HourlyRateCents: rate, Currency: projectCurrency}
	var p models.Project
	if err := postJSON("/projects", in, &p); err != nil {
		return err
	}
	fmt.Printf("Created project: %s\n", p.ID)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	if projectClient != "" {
		q.Set("client_id", projectClient)
	}
	if projectArchived {
		q.Set("archived", "true")
	}
	path := "/projects"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var projects []models.Project
	if err := getJSON(path, &projects); err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tRATE\tCLIENT\tARCHIVED")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s/h\t%s\t%v\n", p.ID, truncate(p.Name, 30),
			report.FormatMoney(p.HourlyRateCents, p.Currency), p.ClientID, p.Archived)
	}
	return w.Flush()
}

func runProjectTasks(cmd *cobra.Command, args []string) error {
	var tasks []api.TaskView
	if err := getJSON("/projects/"+url.PathEscape(args[0])+"/tasks", &tasks); err != nil {
		return err
	}
	printTaskViews(tasks)
	return nil
}

func runProjectActive(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/projects/" + url.PathEscape(args[0]) + "/active")
	if err != nil {
		return err
	}
	if len(resp) == 0 {
		fmt.Println("No timer running")
		return nil
	}
	var task api.TaskView
	if err := json.Unmarshal(resp, &task); err != nil {
		return err
	}
	fmt.Printf("%s  %s  (%s)\n", timer.FormatSeconds(task.Elapsed), task.Title, task.ID)
	return nil
}

func runProjectArchive(cmd *cobra.Command, args []string) error {
	var p models.Project
	if err := patchJSON("/projects/"+url.PathEscape(args[0]), map[string]bool{"archived": !projectUnarch}, &p); err != nil {
		return err
	}
	if p.Archived {
		fmt.Printf("Archived project %s\n", p.Name)
	} else {
		fmt.Printf("Restored project %s\n", p.Name)
	}
	return nil
}

func runProjectRm(cmd *cobra.Command, args []string) error {
	if err := apiDelete("/projects/" + url.PathEscape(args[0])); err != nil {
		return err
	}
	fmt.Printf("Deleted project %s\n", args[0])
	return nil
}

func printTaskViews(tasks []api.TaskView) {
	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRI\tTIMER\tELAPSED")
	for _, t := range tasks {
		state := "stopped"
		if t.IsRunning {
			state = "running"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", t.ID, truncate(t.Title, 40), t.Status, t.Priority, state,
			timer.FormatSeconds(t.Elapsed))
	}
	w.Flush()
}
