package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/fentz26/tempo/internal/api"
	"github.com/fentz26/tempo/internal/models"
	"github.com/fentz26/tempo/internal/timer"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks and their timers",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new task",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskEditCmd = &cobra.Command{
	Use:   "edit [task-id]",
	Short: "Change a task's title, description, priority or status",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskEdit,
}

var taskStartCmd = &cobra.Command{
	Use:   "start [task-id]",
	Short: "Start a task's timer, stopping the one running in its scope",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskStart,
}

var taskStopCmd = &cobra.Command{
	Use:   "stop [task-id]",
	Short: "Stop a task's timer",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskStop,
}

var taskElapsedCmd = &cobra.Command{
	Use:   "elapsed [task-id]",
	Short: "Show a task's elapsed time",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskElapsed,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Mark a task done, stopping its timer",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

var taskRmCmd = &cobra.Command{
	Use:   "rm [task-id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRm,
}

var taskSessionsCmd = &cobra.Command{
	Use:   "sessions [task-id]",
	Short: "List a task's banked sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskSessions,
}

var (
	taskProject  string
	taskTitle    string
	taskDesc     string
	taskPriority int
	taskDue      string
	taskStatus   string
	taskRunning  string
	watchElapsed bool
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskEditCmd, taskStartCmd, taskStopCmd,
		taskElapsedCmd, taskDoneCmd, taskRmCmd, taskSessionsCmd)

	taskAddCmd.Flags().StringVar(&taskProject, "project", "", "Project ID (required)")
	taskAddCmd.Flags().StringVar(&taskTitle, "title", "", "Task title (required)")
	taskAddCmd.Flags().StringVar(&taskDesc, "desc", "", "Task description")
	taskAddCmd.Flags().IntVar(&taskPriority, "priority", 2, "Priority 1 (high) to 3 (low)")
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", "Due date (YYYY-MM-DD)")
	taskAddCmd.MarkFlagRequired("project")
	taskAddCmd.MarkFlagRequired("title")

	taskListCmd.Flags().StringVar(&taskProject, "project", "", "Filter by project ID")
	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status (todo, in_progress, done)")
	taskListCmd.Flags().StringVar(&taskRunning, "running", "", "Filter by timer state (true, false)")

	taskEditCmd.Flags().StringVar(&taskTitle, "title", "", "New title")
	taskEditCmd.Flags().StringVar(&taskDesc, "desc", "", "New description")
	taskEditCmd.Flags().IntVar(&taskPriority, "priority", 0, "New priority 1..3")
	taskEditCmd.Flags().StringVar(&taskStatus, "status", "", "New status (todo, in_progress, done)")

	taskElapsedCmd.Flags().BoolVarP(&watchElapsed, "watch", "w", false, "Keep the label updating every second")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	due, err := parseDate(taskDue)
	if err != nil {
		return err
	}
	in := api.TaskInput{ProjectID: taskProject, Title: taskTitle, Description: taskDesc, Priority: taskPriority, DueAt: due}
	var task api.TaskView
	if err := postJSON("/tasks", in, &task); err != nil {
		return err
	}
	fmt.Printf("Created task: %s\n", task.ID)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	if taskProject != "" {
		q.Set("project_id", taskProject)
	}
	if taskStatus != "" {
		q.Set("status", taskStatus)
	}
	if taskRunning != "" {
		q.Set("running", taskRunning)
	}
	path := "/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var tasks []api.TaskView
	if err := getJSON(path, &tasks); err != nil {
		return err
	}
	printTaskViews(tasks)
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	var task api.TaskView
	if err := getJSON("/tasks/"+url.PathEscape(args[0]), &task); err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", task.ID)
	fmt.Printf("Title:       %s\n", task.Title)
	if task.Description != "" {
		fmt.Printf("Description: %s\n", task.Description)
	}
	fmt.Printf("Project:     %s\n", task.ProjectID)
	fmt.Printf("Status:      %s\n", task.Status)
	fmt.Printf("Priority:    %d\n", task.Priority)
	if task.DueAt != nil {
		fmt.Printf("Due:         %s\n", task.DueAt.Format("2006-01-02"))
	}
	fmt.Printf("Running:     %v\n", task.IsRunning)
	fmt.Printf("Elapsed:     %s\n", timer.FormatSeconds(task.Elapsed))
	fmt.Printf("Resumed:     %s\n", formatTime(task.LastResumeAt))
	fmt.Printf("Stopped:     %s\n", formatTime(task.LastStopAt))
	fmt.Printf("Created:     %s\n", formatTime(&task.CreatedAt))
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	var patch models.TaskPatch
	if cmd.Flags().Changed("title") {
		patch.Title = &taskTitle
	}
	if cmd.Flags().Changed("desc") {
		patch.Description = &taskDesc
	}
	if cmd.Flags().Changed("priority") {
		patch.Priority = &taskPriority
	}
	if cmd.Flags().Changed("status") {
		s := models.TaskStatus(taskStatus)
		patch.Status = &s
	}
	if patch.Empty() {
		return fmt.Errorf("nothing to change: pass --title, --desc, --priority or --status")
	}

	var task api.TaskView
	if err := patchJSON("/tasks/"+url.PathEscape(args[0]), patch, &task); err != nil {
		return err
	}
	fmt.Printf("Updated task %s\n", task.ID)
	return nil
}

func runTaskStart(cmd *cobra.Command, args []string) error {
	var res api.TimerResult
	if err := postJSON("/tasks/"+url.PathEscape(args[0])+"/start", nil, &res); err != nil {
		return err
	}
	if res.AlreadyRunning {
		fmt.Printf("%s is already running (%s)\n", res.Task.Title, timer.FormatSeconds(res.Elapsed))
		return nil
	}
	for _, t := range res.Stopped {
		fmt.Printf("Stopped %s at %s\n", t.Title, timer.FormatSeconds(t.AccumulatedSeconds))
	}
	fmt.Printf("Started %s (%s so far)\n", res.Task.Title, timer.FormatSeconds(res.Elapsed))
	return nil
}

func runTaskStop(cmd *cobra.Command, args []string) error {
	var res api.TimerResult
	if err := postJSON("/tasks/"+url.PathEscape(args[0])+"/stop", nil, &res); err != nil {
		return err
	}
	session := int64(0)
	if res.Session != nil {
		session = res.Session.Seconds
	}
	fmt.Printf("Stopped %s: +%s, total %s\n", res.Task.Title, timer.FormatSeconds(session), timer.FormatSeconds(res.Elapsed))
	return nil
}

func runTaskElapsed(cmd *cobra.Command, args []string) error {
	if !watchElapsed {
		var v api.ElapsedView
		if err := getJSON("/tasks/"+url.PathEscape(args[0])+"/elapsed", &v); err != nil {
			return err
		}
		state := "stopped"
		if v.Running {
			state = "running"
		}
		fmt.Printf("%s (%s)\n", v.Label, state)
		return nil
	}

	// Fetch once, then recompute locally on every tick. Nothing is written.
	var task api.TaskView
	if err := getJSON("/tasks/"+url.PathEscape(args[0]), &task); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	clock := timer.SystemClock{}
	render := func(now time.Time) {
		fmt.Printf("\r%s  %s ", timer.FormatSeconds(timer.Elapsed(&task.Task, now)), task.Title)
	}
	render(clock.Now())
	timer.NewTicker(timer.DefaultTickInterval, clock).Run(ctx, render)
	fmt.Println()
	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	done := models.TaskStatusDone
	var task api.TaskView
	if err := patchJSON("/tasks/"+url.PathEscape(args[0]), models.TaskPatch{Status: &done}, &task); err != nil {
		return err
	}
	fmt.Printf("Done: %s (%s tracked)\n", task.Title, timer.FormatSeconds(task.Elapsed))
	return nil
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	if err := apiDelete("/tasks/" + url.PathEscape(args[0])); err != nil {
		return err
	}
	fmt.Printf("Deleted task %s\n", args[0])
	return nil
}

func runTaskSessions(cmd *cobra.Command, args []string) error {
	var sessions []models.TimeSession
	if err := getJSON("/tasks/"+url.PathEscape(args[0])+"/sessions", &sessions); err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	var total int64
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTOPPED\tDURATION\tSOURCE")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", formatTime(&s.StartedAt), formatTime(&s.StoppedAt),
			timer.FormatSeconds(s.Seconds), s.Source)
		total += s.Seconds
	}
	fmt.Fprintf(w, "\t\t%s\ttotal of %d\n", timer.FormatSeconds(total), len(sessions))
	return w.Flush()
}
