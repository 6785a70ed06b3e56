// Package timer holds the task time-tracking accumulator and its state transitions.
//
// Everything here is pure: functions take a task snapshot and a timestamp and
// return new values without touching storage.
package timer

import (
	"fmt"
	"time"

	"github.com/fentz26/tempo/internal/models"
)

// Elapsed returns the effective elapsed seconds of a task at now.
//
// For a stopped task this is AccumulatedSeconds. For a running task the
// current session is added, floored to whole seconds; a negative delta caused
// by clock skew counts as zero.
func Elapsed(task *models.Task, now time.Time) int64 {
	if task == nil {
		return 0
	}
	if !task.IsRunning || task.LastResumeAt == nil {
		return task.AccumulatedSeconds
	}
	return task.AccumulatedSeconds + sessionSeconds(*task.LastResumeAt, now)
}

// Begin returns a copy of task in the running state, resumed at now.
// A task that is already running is returned unchanged.
func Begin(task models.Task, now time.Time) models.Task {
	if task.IsRunning && task.LastResumeAt != nil {
		return task
	}
	resumed := now
	task.IsRunning = true
	task.LastResumeAt = &resumed
	task.UpdatedAt = now
	return task
}

// End returns a copy of task stopped at now with the current session banked,
// plus the session that was closed. The session is nil when the task carried
// no resume timestamp; in that case only the running flag is cleared.
func End(task models.Task, now time.Time, source models.SessionSource) (models.Task, *models.TimeSession) {
	var session *models.TimeSession
	if task.LastResumeAt != nil {
		delta := sessionSeconds(*task.LastResumeAt, now)
		task.AccumulatedSeconds += delta
		session = &models.TimeSession{
			TaskID:    task.ID,
			ProjectID: task.ProjectID,
			StartedAt: *task.LastResumeAt,
			StoppedAt: now,
			Seconds:   delta,
			Source:    source,
		}
	}
	stopped := now
	task.IsRunning = false
	task.LastResumeAt = nil
	task.LastStopAt = &stopped
	task.UpdatedAt = now
	return task, session
}

// StopPatch converts a stopped task into the partial update that persists it.
func StopPatch(task models.Task) models.TaskPatch {
	running := false
	acc := task.AccumulatedSeconds
	return models.TaskPatch{
		IsRunning:          &running,
		AccumulatedSeconds: &acc,
		ClearLastResumeAt:  true,
		LastStopAt:         task.LastStopAt,
	}
}

// StartPatch converts a started task into the partial update that persists it.
func StartPatch(task models.Task) models.TaskPatch {
	running := true
	return models.TaskPatch{
		IsRunning:    &running,
		LastResumeAt: task.LastResumeAt,
	}
}

func sessionSeconds(resumedAt, now time.Time) int64 {
	d := now.Sub(resumedAt)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// FormatSeconds renders a live label: MM:SS below an hour, H:MM:SS above.
func FormatSeconds(total int64) string {
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
