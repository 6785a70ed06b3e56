// Package report builds timesheets and proposal documents and renders them
// as JSON, YAML or PDF.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/fentz26/tempo/internal/models"
)

// Group selects how timesheet lines are bucketed.
type Group string

const (
	GroupNone Group = "none"
	GroupDay  Group = "day"
	GroupWeek Group = "week"
)

// ParseGroup maps a query value to a Group. Empty means GroupNone.
func ParseGroup(s string) (Group, error) {
	switch Group(s) {
	case "", GroupNone:
		return GroupNone, nil
	case GroupDay, GroupWeek:
		return Group(s), nil
	}
	return "", fmt.Errorf("unknown grouping %q", s)
}

// Query describes a timesheet request. Zero times are open bounds.
type Query struct {
	ProjectID string    `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	From      time.Time `json:"from,omitempty" yaml:"from,omitempty"`
	To        time.Time `json:"to,omitempty" yaml:"to,omitempty"`
	Group     Group     `json:"group" yaml:"group"`
}

// Line is one banked session on a timesheet.
type Line struct {
	SessionID   string               `json:"session_id" yaml:"session_id"`
	TaskID      string               `json:"task_id" yaml:"task_id"`
	TaskTitle   string               `json:"task_title" yaml:"task_title"`
	ProjectID   string               `json:"project_id" yaml:"project_id"`
	ProjectName string               `json:"project_name" yaml:"project_name"`
	StartedAt   time.Time            `json:"started_at" yaml:"started_at"`
	StoppedAt   time.Time            `json:"stopped_at" yaml:"stopped_at"`
	Seconds     int64                `json:"seconds" yaml:"seconds"`
	AmountCents int64                `json:"amount_cents" yaml:"amount_cents"`
	Source      models.SessionSource `json:"source" yaml:"source"`
}

// Bucket groups lines under one day, week or the whole range.
type Bucket struct {
	Key         string `json:"key" yaml:"key"`
	Title       string `json:"title" yaml:"title"`
	Lines       []Line `json:"lines" yaml:"lines"`
	Seconds     int64  `json:"seconds" yaml:"seconds"`
	AmountCents int64  `json:"amount_cents" yaml:"amount_cents"`
}

// Timesheet is the grouped report with grand totals.
type Timesheet struct {
	Query            Query     `json:"query" yaml:"query"`
	Currency         string    `json:"currency" yaml:"currency"`
	Buckets          []Bucket  `json:"buckets" yaml:"buckets"`
	TotalSeconds     int64     `json:"total_seconds" yaml:"total_seconds"`
	TotalAmountCents int64     `json:"total_amount_cents" yaml:"total_amount_cents"`
	GeneratedAt      time.Time `json:"generated_at" yaml:"generated_at"`
}

// MixedCurrency marks a timesheet whose projects bill in different currencies.
const MixedCurrency = "MIXED"

// Build assembles a timesheet from banked sessions. Tasks and projects
// supply titles and hourly rates; unknown IDs are reported without them.
func Build(q Query, sessions []models.TimeSession, tasks map[string]models.Task,
	projects map[string]models.Project, now time.Time) *Timesheet {
	ts := &Timesheet{Query: q, Buckets: []Bucket{}, GeneratedAt: now}

	sorted := make([]models.TimeSession, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.Before(sorted[j].StartedAt)
	})

	index := map[string]int{}
	for _, s := range sorted {
		project := projects[s.ProjectID]
		line := Line{
			SessionID:   s.ID,
			TaskID:      s.TaskID,
			TaskTitle:   tasks[s.TaskID].Title,
			ProjectID:   s.ProjectID,
			ProjectName: project.Name,
			StartedAt:   s.StartedAt,
			StoppedAt:   s.StoppedAt,
			Seconds:     s.Seconds,
			AmountCents: Amount(s.Seconds, project.HourlyRateCents),
			Source:      s.Source,
		}
		if project.Currency != "" {
			switch ts.Currency {
			case "":
				ts.Currency = project.Currency
			case project.Currency, MixedCurrency:
			default:
				ts.Currency = MixedCurrency
			}
		}

		key := GroupKey(s.StartedAt, q.Group)
		i, ok := index[key]
		if !ok {
			i = len(ts.Buckets)
			index[key] = i
			ts.Buckets = append(ts.Buckets, Bucket{Key: key, Title: GroupTitle(s.StartedAt, q.Group)})
		}
		b := &ts.Buckets[i]
		b.Lines = append(b.Lines, line)
		b.Seconds += line.Seconds
		b.AmountCents += line.AmountCents
		ts.TotalSeconds += line.Seconds
		ts.TotalAmountCents += line.AmountCents
	}
	return ts
}

// Amount prices seconds at an hourly rate, rounded to the nearest cent.
func Amount(seconds, hourlyRateCents int64) int64 {
	if seconds <= 0 || hourlyRateCents <= 0 {
		return 0
	}
	return (seconds*hourlyRateCents + 1800) / 3600
}

// GroupKey returns the bucket key of t: a date for GroupDay, an ISO week
// for GroupWeek and "all" otherwise.
func GroupKey(t time.Time, g Group) string {
	switch g {
	case GroupDay:
		return t.Format("2006-01-02")
	case GroupWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return "all"
}

// GroupTitle returns a human readable bucket heading.
func GroupTitle(t time.Time, g Group) string {
	switch g {
	case GroupDay:
		return t.Format("Monday, 02 Jan 2006")
	case GroupWeek:
		start, end := WeekRange(t)
		return fmt.Sprintf("%s - %s", start.Format("Jan 02"), end.Format("Jan 02, 2006"))
	}
	return "All sessions"
}

// WeekRange returns the Monday and Sunday of t's week.
func WeekRange(t time.Time) (time.Time, time.Time) {
	offset := int(t.Weekday())
	if offset == 0 {
		offset = 7
	}
	start := t.AddDate(0, 0, -offset+1)
	return start, start.AddDate(0, 0, 6)
}

// FormatMoney renders cents as a decimal amount with its currency code.
func FormatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
