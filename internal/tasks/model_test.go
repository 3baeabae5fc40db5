package tasks

import (
	"strconv"
	"testing"
	"time"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestPatchApply_DoesNotMutate(t *testing.T) {
	orig := Task{ID: 1, Title: "Untitled", Content: "a"}
	next := Patch{Title: String("renamed")}.Apply(orig)

	if orig.Title != "Untitled" {
		t.Fatalf("Apply mutated its input: %+v", orig)
	}
	if next.Title != "renamed" || next.Content != "a" {
		t.Fatalf("unexpected result: %+v", next)
	}
}

func TestPatchApply_TimerLifecycle(t *testing.T) {
	start := time.UnixMilli(1000)
	end := time.UnixMilli(4500)

	task := Task{ID: 1, Title: "Untitled"}
	if task.TimerState() != TimerNotStarted {
		t.Fatalf("expected not_started, got %s", task.TimerState())
	}

	task = Patch{TimerStart: Time(start), TimerRunning: Bool(true)}.Apply(task)
	if task.TimerState() != TimerRunning || !task.TimerStart.Equal(start) {
		t.Fatalf("expected running from 1000, got %+v", task)
	}

	task = Patch{TimerEnd: Time(end), TimerRunning: Bool(false), TimerDurationMS: Int64(3500)}.Apply(task)
	if task.TimerState() != TimerStopped {
		t.Fatalf("expected stopped, got %s", task.TimerState())
	}
	if task.TimerDuration() != 3500*time.Millisecond {
		t.Fatalf("expected 3.5s, got %s", task.TimerDuration())
	}

	// restarting drops the stale end but keeps the last cached duration
	task = Patch{TimerStart: Time(time.UnixMilli(9000)), TimerRunning: Bool(true)}.Apply(task)
	if task.TimerEnd != nil {
		t.Fatalf("restart should clear timer_end, got %v", task.TimerEnd)
	}
	if task.TimerDurationMS != 3500 {
		t.Fatalf("restart should keep the cached duration, got %d", task.TimerDurationMS)
	}
}

func TestPatchCopyFields_OnlyPatched(t *testing.T) {
	local := Task{ID: 1, Title: "local", Content: "typed while saving"}
	acked := Task{ID: 1, Title: "acked", Content: "stale"}

	got := Patch{Title: String("acked")}.CopyFields(local, acked)
	if got.Title != "acked" {
		t.Errorf("expected patched field from src, got %q", got.Title)
	}
	if got.Content != "typed while saving" {
		t.Errorf("unpatched field must stay, got %q", got.Content)
	}
}

func TestPatchFields(t *testing.T) {
	p := Patch{Content: String("x"), TimerRunning: Bool(false)}
	got := p.Fields()
	if len(got) != 2 || got[0] != "content" || got[1] != "timer_running" {
		t.Fatalf("unexpected fields: %v", got)
	}
	if p.Empty() || !(Patch{}).Empty() {
		t.Fatalf("Empty() mismatch")
	}
}

func TestPatchWithout(t *testing.T) {
	p := Patch{Title: String("a"), TimerRunning: Bool(true)}

	got := p.Without("title")
	if got.Title != nil || got.TimerRunning == nil {
		t.Fatalf("expected only title cleared, got %+v", got)
	}
	if p.Title == nil {
		t.Fatalf("Without mutated its receiver")
	}
	if f := p.Without("timer_running").Without("title").Fields(); len(f) != 0 {
		t.Fatalf("expected empty patch, got %v", f)
	}
}
