package tasks

import "time"

type Task struct {
	ID              int64      `json:"id"`
	BoardID         string     `json:"board_id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	TimerStart      *time.Time `json:"timer_start,omitempty"`
	TimerEnd        *time.Time `json:"timer_end,omitempty"`
	TimerRunning    bool       `json:"timer_running"`
	TimerDurationMS int64      `json:"timer_duration_ms"`
}

// TimerState is derived from the timer fields; exactly one holds at a time.
type TimerState int

const (
	TimerNotStarted TimerState = iota
	TimerRunning
	TimerStopped
)

func (s TimerState) String() string {
	switch s {
	case TimerRunning:
		return "running"
	case TimerStopped:
		return "stopped"
	default:
		return "not_started"
	}
}

func (t Task) TimerState() TimerState {
	switch {
	case t.TimerRunning:
		return TimerRunning
	case t.TimerStart != nil:
		return TimerStopped
	default:
		return TimerNotStarted
	}
}

// TimerDuration is the cached duration of the last completed run.
func (t Task) TimerDuration() time.Duration {
	return time.Duration(t.TimerDurationMS) * time.Millisecond
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title           *string    `json:"title,omitempty"`
	Content         *string    `json:"content,omitempty"`
	TimerStart      *time.Time `json:"timer_start,omitempty"`
	TimerEnd        *time.Time `json:"timer_end,omitempty"`
	TimerRunning    *bool      `json:"timer_running,omitempty"`
	TimerDurationMS *int64     `json:"timer_duration_ms,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.TimerStart == nil &&
		p.TimerEnd == nil && p.TimerRunning == nil && p.TimerDurationMS == nil
}

// Fields lists the json names of the fields the patch sets, in a stable order.
func (p Patch) Fields() []string {
	var out []string
	if p.Title != nil {
		out = append(out, "title")
	}
	if p.Content != nil {
		out = append(out, "content")
	}
	if p.TimerStart != nil {
		out = append(out, "timer_start")
	}
	if p.TimerEnd != nil {
		out = append(out, "timer_end")
	}
	if p.TimerRunning != nil {
		out = append(out, "timer_running")
	}
	if p.TimerDurationMS != nil {
		out = append(out, "timer_duration_ms")
	}
	return out
}

// Apply returns a copy of t with the patch applied. t is not modified.
// Starting the timer clears any end left over from a previous run.
func (p Patch) Apply(t Task) Task {
	out := t
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.TimerStart != nil {
		ts := *p.TimerStart
		out.TimerStart = &ts
	}
	if p.TimerEnd != nil {
		te := *p.TimerEnd
		out.TimerEnd = &te
	}
	if p.TimerRunning != nil {
		out.TimerRunning = *p.TimerRunning
		if out.TimerRunning {
			out.TimerEnd = nil
		}
	}
	if p.TimerDurationMS != nil {
		out.TimerDurationMS = *p.TimerDurationMS
	}
	return out
}

// CopyFields returns dst with every field named by p taken from src.
// Used to merge or revert only what a patch touched.
func (p Patch) CopyFields(dst, src Task) Task {
	out := dst
	if p.Title != nil {
		out.Title = src.Title
	}
	if p.Content != nil {
		out.Content = src.Content
	}
	if p.TimerStart != nil {
		out.TimerStart = src.TimerStart
	}
	if p.TimerEnd != nil || (p.TimerRunning != nil && *p.TimerRunning) {
		out.TimerEnd = src.TimerEnd
	}
	if p.TimerRunning != nil {
		out.TimerRunning = src.TimerRunning
	}
	if p.TimerDurationMS != nil {
		out.TimerDurationMS = src.TimerDurationMS
	}
	return out
}

// Without returns p with the named field (json name) unset.
func (p Patch) Without(field string) Patch {
	switch field {
	case "title":
		p.Title = nil
	case "content":
		p.Content = nil
	case "timer_start":
		p.TimerStart = nil
	case "timer_end":
		p.TimerEnd = nil
	case "timer_running":
		p.TimerRunning = nil
	case "timer_duration_ms":
		p.TimerDurationMS = nil
	}
	return p
}

func String(s string) *string { return &s }

func Bool(b bool) *bool { return &b }

func Int64(n int64) *int64 { return &n }

func Time(t time.Time) *time.Time { return &t }
