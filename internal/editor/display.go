package editor

import (
	"fmt"
	"time"
)

// Elapsed is the running timer's age at now, recomputed on every call. It is
// zero when no timer is running.
func (e *Editor) Elapsed(now time.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task == nil || !e.task.TimerRunning || e.task.TimerStart == nil {
		return 0
	}
	if d := now.Sub(*e.task.TimerStart); d > 0 {
		return d
	}
	return 0
}

// TimerLabel is what the timer button shows: the elapsed clock while running,
// StartTimerLabel otherwise.
func (e *Editor) TimerLabel(now time.Time) string {
	if !e.timerRunning() {
		return StartTimerLabel
	}
	return FormatClock(e.Elapsed(now))
}

func (e *Editor) timerRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task != nil && e.task.TimerRunning
}

// CreatedLabel formats the creation date as YYYY-MM-DD, or "" when hidden.
func (e *Editor) CreatedLabel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task == nil {
		return ""
	}
	return e.task.CreatedAt.In(e.loc).Format("2006-01-02")
}

// DisplayTitle falls back to PlaceholderTitle when no task is open.
func (e *Editor) DisplayTitle() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task == nil {
		return PlaceholderTitle
	}
	return e.task.Title
}

// FormatClock renders d as mm:ss. Minutes wrap at the hour.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%02d:%02d", int(d/time.Minute)%60, int(d/time.Second)%60)
}
