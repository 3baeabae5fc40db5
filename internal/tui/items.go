package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/s1natex/taskboard-GO/internal/editor"
	"github.com/s1natex/taskboard-GO/internal/tasks"
)

type taskItem struct {
	task tasks.Task
	now  time.Time
}

func (i taskItem) Title() string {
	if strings.TrimSpace(i.task.Title) == "" {
		return editor.PlaceholderTitle
	}
	return i.task.Title
}

func (i taskItem) Description() string {
	parts := []string{
		fmt.Sprintf("#%d", i.task.ID),
		"created " + i.createdAgo(),
	}
	switch i.task.TimerState() {
	case tasks.TimerRunning:
		parts = append(parts, "timer running")
	case tasks.TimerStopped:
		parts = append(parts, "tracked "+editor.FormatClock(i.task.TimerDuration()))
	}
	return strings.Join(parts, " · ")
}

func (i taskItem) FilterValue() string { return i.task.Title }

func (i taskItem) createdAgo() string {
	return humanize.RelTime(i.task.CreatedAt, i.now, "ago", "from now")
}
