package store

import (
	"context"
	"time"

	"github.com/fentz26/tempo/internal/models"
	"github.com/fentz26/tempo/internal/timer"
)

// Dashboard summarizes the account at now. Running sessions count towards
// the tracked totals with their live elapsed time.
func (s *Store) Dashboard(ctx context.Context, now time.Time) (*models.Dashboard, error) {
	d := &models.Dashboard{RunningTasks: []models.Task{}}

	counts := []struct {
		dst   *int
		query string
		args  []interface{}
	}{
		{&d.Clients, `SELECT COUNT(*) FROM clients`, nil},
		{&d.Projects, `SELECT COUNT(*) FROM projects WHERE archived = ?`, []interface{}{false}},
		{&d.OpenTasks, `SELECT COUNT(*) FROM tasks WHERE status != ?`, []interface{}{models.TaskStatusDone}},
		{&d.DoneTasks, `SELECT COUNT(*) FROM tasks WHERE status = ?`, []interface{}{models.TaskStatusDone}},
		{&d.OpenProposals, `SELECT COUNT(*) FROM proposals WHERE status IN (?, ?)`,
			[]interface{}{models.ProposalDraft, models.ProposalSent}},
	}
	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dst, s.q(c.query), c.args...); err != nil {
			return nil, wrapErr("dashboard", "counts", "", err)
		}
	}

	var banked int64
	if err := s.db.GetContext(ctx, &banked, `SELECT COALESCE(SUM(accumulated_seconds), 0) FROM tasks`); err != nil {
		return nil, wrapErr("dashboard", "tracked", "", err)
	}
	d.TrackedSeconds = banked

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var today []models.TimeSession
	err := s.db.SelectContext(ctx, &today, s.q(`SELECT `+sessionColumns+` FROM time_sessions WHERE stopped_at > ?`), dayStart.UTC())
	if err != nil {
		return nil, wrapErr("dashboard", "sessions", "", err)
	}
	for _, ts := range today {
		d.TodaySeconds += secondsSince(ts, dayStart)
	}

	running, err := s.RunningTasks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range running {
		t := &running[i]
		live := timer.Elapsed(t, now) - t.AccumulatedSeconds
		d.TrackedSeconds += live
		if t.LastResumeAt != nil && t.LastResumeAt.Before(dayStart) {
			live = int64(now.Sub(dayStart) / time.Second)
		}
		d.TodaySeconds += live
	}
	if running != nil {
		d.RunningTasks = running
	}

	proposals, err := s.ListProposals(ctx, "", models.ProposalAccepted)
	if err != nil {
		return nil, err
	}
	for i := range proposals {
		d.AcceptedCents += proposals[i].TotalCents()
	}
	return d, nil
}

// secondsSince returns the part of a banked session that falls after from.
// A session that started before from only counts its tail.
func secondsSince(ts models.TimeSession, from time.Time) int64 {
	if !ts.StartedAt.Before(from) {
		return ts.Seconds
	}
	if !ts.StoppedAt.After(from) {
		return 0
	}
	return int64(ts.StoppedAt.Sub(from) / time.Second)
}
