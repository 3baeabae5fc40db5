// Package editor holds the state behind the task detail dialog: the task
// being edited, its timer, and the round trips that persist each change.
//
// Every field change is forwarded to the store as soon as it happens. The
// local copy is updated optimistically, then reconciled with what the store
// acknowledged: on success the patched fields are taken from the store's
// answer, on failure they are rolled back (unless the editor was built with
// KeepOnFailure). Only the patched fields are touched in either direction, so
// two edits in flight on different fields do not overwrite each other. When
// two edits to the same field overlap, only the newer one reconciles that
// field; the older reply is ignored for it. Writes are last-write-wins
// against the store.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/s1natex/taskboard-GO/internal/tasks"
)

const (
	PlaceholderTitle   = "Untitled"
	PlaceholderContent = "Add Description to task here"
	StartTimerLabel    = "Start Timer"
)

var (
	ErrClosed          = errors.New("editor: no task open")
	ErrTimerRunning    = errors.New("editor: timer already running")
	ErrTimerNotRunning = errors.New("editor: timer not running")
)

// Store is the remote store of record.
type Store interface {
	Update(ctx context.Context, boardID string, taskID int64, p tasks.Patch) (tasks.Task, error)
	Delete(ctx context.Context, boardID string, taskID int64) error
}

type Op string

const (
	OpRename     Op = "rename"
	OpContent    Op = "edit_content"
	OpDelete     Op = "delete"
	OpTimerStart Op = "timer_start"
	OpTimerStop  Op = "timer_stop"
)

// Hooks connect the editor to the view that owns the task list. All are optional.
// They run on the goroutine that called the editor, never under its lock.
//
// OnUpdate can fire after OnClose: a write that was in flight when the
// editor closed still reports the task the store acknowledged, so the list
// stays current. Content writes are the exception; closing cancels them.
type Hooks struct {
	OnUpdate func(tasks.Task)
	OnDelete func(tasks.Task)
	OnClose  func()
	OnError  func(op Op, err error)
}

type FailurePolicy int

const (
	RollbackOnFailure FailurePolicy = iota
	KeepOnFailure
)

// Result describes how one operation settled.
type Result struct {
	Op    Op
	Patch tasks.Patch
	// Prev is the local task before the optimistic update.
	Prev tasks.Task
	// Task is the local task once the call settled.
	Task       tasks.Task
	Err        error
	RolledBack bool
	// Skipped is set when a content change arrived for a session that had
	// already been closed; nothing was sent and nothing changed.
	Skipped bool
}

func (r Result) OK() bool { return r.Err == nil && !r.Skipped }

// session is one open/close cycle. Its context is cancelled on close.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *session) closed() bool { return s.ctx.Err() != nil }

type Editor struct {
	boardID string
	store   Store
	hooks   Hooks
	policy  FailurePolicy
	now     func() time.Time
	loc     *time.Location
	logger  *slog.Logger

	mu   sync.Mutex
	task *tasks.Task
	sess *session
	// gens counts writes per patch field; a reply only reconciles the
	// fields it still holds the latest generation for
	gens map[string]uint64
}

type Option func(*Editor)

func WithHooks(h Hooks) Option { return func(e *Editor) { e.hooks = h } }

func WithClock(now func() time.Time) Option { return func(e *Editor) { e.now = now } }

func WithFailurePolicy(p FailurePolicy) Option { return func(e *Editor) { e.policy = p } }

func WithLocation(loc *time.Location) Option { return func(e *Editor) { e.loc = loc } }

func WithLogger(l *slog.Logger) Option { return func(e *Editor) { e.logger = l } }

func New(boardID string, store Store, opts ...Option) *Editor {
	e := &Editor{
		boardID: boardID,
		store:   store,
		now:     time.Now,
		loc:     time.Local,
		logger:  slog.Default(),
		gens:    map[string]uint64{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Editor) BoardID() string { return e.boardID }

// Open shows t, or hides the editor when t is nil. Any previous session ends
// without notifying the parent.
func (e *Editor) Open(t *tasks.Task) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.endSessionLocked()
	if t == nil {
		e.task = nil
		return
	}
	cp := *t
	e.task = &cp
	ctx, cancel := context.WithCancel(context.Background())
	e.sess = &session{ctx: ctx, cancel: cancel}
}

func (e *Editor) endSessionLocked() {
	if e.sess != nil {
		e.sess.cancel()
		e.sess = nil
	}
}

func (e *Editor) Visible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task != nil
}

// Task returns a copy of the task being edited.
func (e *Editor) Task() (tasks.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task == nil {
		return tasks.Task{}, false
	}
	return *e.task, true
}

// Close pushes the current task to the parent, signals closure and hides the
// editor. Content callbacks bound to this session become no-ops.
func (e *Editor) Close() (tasks.Task, bool) {
	e.mu.Lock()
	if e.task == nil {
		e.mu.Unlock()
		return tasks.Task{}, false
	}
	cur := *e.task
	e.task = nil
	e.endSessionLocked()
	e.mu.Unlock()

	if e.hooks.OnUpdate != nil {
		e.hooks.OnUpdate(cur)
	}
	if e.hooks.OnClose != nil {
		e.hooks.OnClose()
	}
	return cur, true
}

func (e *Editor) Rename(ctx context.Context, title string) Result {
	return e.mutate(ctx, OpRename, nil, func(tasks.Task) (tasks.Patch, error) {
		return tasks.Patch{Title: tasks.String(title)}, nil
	})
}

// ContentHandler returns the change callback for the rich-text field, bound to
// the session open right now. After that session closes the callback returns
// a Skipped result without touching the store or local state, and a write it
// already has in flight is cancelled.
func (e *Editor) ContentHandler() func(ctx context.Context, content string) Result {
	e.mu.Lock()
	sess := e.sess
	e.mu.Unlock()

	return func(ctx context.Context, content string) Result {
		if sess == nil || sess.closed() {
			return Result{Op: OpContent, Skipped: true}
		}
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(sess.ctx, cancel)
		defer stop()

		return e.mutate(ctx, OpContent, sess, func(tasks.Task) (tasks.Patch, error) {
			return tasks.Patch{Content: tasks.String(content)}, nil
		})
	}
}

// EditContent is ContentHandler bound to the current session and called once.
func (e *Editor) EditContent(ctx context.Context, content string) Result {
	return e.ContentHandler()(ctx, content)
}

func (e *Editor) StartTimer(ctx context.Context) Result {
	return e.mutate(ctx, OpTimerStart, nil, func(cur tasks.Task) (tasks.Patch, error) {
		if cur.TimerRunning {
			return tasks.Patch{}, ErrTimerRunning
		}
		now := e.now()
		return tasks.Patch{TimerStart: &now, TimerRunning: tasks.Bool(true)}, nil
	})
}

// StopTimer records the end time and caches end minus start as the duration.
// If the clock went backwards the end is pinned to the start, so the
// duration is zero rather than negative.
func (e *Editor) StopTimer(ctx context.Context) Result {
	return e.mutate(ctx, OpTimerStop, nil, func(cur tasks.Task) (tasks.Patch, error) {
		if !cur.TimerRunning || cur.TimerStart == nil {
			return tasks.Patch{}, ErrTimerNotRunning
		}
		end := e.now()
		if end.Before(*cur.TimerStart) {
			end = *cur.TimerStart
		}
		d := end.Sub(*cur.TimerStart)
		return tasks.Patch{
			TimerEnd:        &end,
			TimerRunning:    tasks.Bool(false),
			TimerDurationMS: tasks.Int64(d.Milliseconds()),
		}, nil
	})
}

// ToggleTimer stops a running timer and starts one otherwise.
func (e *Editor) ToggleTimer(ctx context.Context) Result {
	t, ok := e.Task()
	if ok && t.TimerRunning {
		return e.StopTimer(ctx)
	}
	return e.StartTimer(ctx)
}

func (e *Editor) Delete(ctx context.Context) Result {
	e.mu.Lock()
	if e.task == nil {
		e.mu.Unlock()
		return Result{Op: OpDelete, Err: ErrClosed}
	}
	cur := *e.task
	e.mu.Unlock()

	if err := e.store.Delete(ctx, e.boardID, cur.ID); err != nil {
		e.report(OpDelete, cur.ID, err)
		return Result{Op: OpDelete, Prev: cur, Task: cur, Err: err}
	}

	e.mu.Lock()
	if e.task != nil && e.task.ID == cur.ID {
		e.task = nil
		e.endSessionLocked()
	}
	e.mu.Unlock()

	if e.hooks.OnDelete != nil {
		e.hooks.OnDelete(cur)
	}
	return Result{Op: OpDelete, Prev: cur}
}

// Revert undoes the optimistic update of a failed result that was kept
// (KeepOnFailure). It reports false when there is nothing to undo.
func (e *Editor) Revert(res Result) (tasks.Task, bool) {
	if res.Err == nil || res.RolledBack || res.Skipped || res.Patch.Empty() {
		return tasks.Task{}, false
	}
	e.mu.Lock()
	if e.task == nil || e.task.ID != res.Prev.ID {
		e.mu.Unlock()
		return tasks.Task{}, false
	}
	cur := res.Patch.CopyFields(*e.task, res.Prev)
	e.task = &cur
	e.mu.Unlock()

	if e.hooks.OnUpdate != nil {
		e.hooks.OnUpdate(cur)
	}
	return cur, true
}

// mutate applies the patch built from the current task locally, sends it, and
// reconciles. When sess is non-nil the change is dropped if that session is no
// longer the open one.
func (e *Editor) mutate(ctx context.Context, op Op, sess *session, build func(tasks.Task) (tasks.Patch, error)) Result {
	e.mu.Lock()
	if sess != nil && (e.sess != sess || sess.closed()) {
		e.mu.Unlock()
		return Result{Op: op, Skipped: true}
	}
	if e.task == nil {
		e.mu.Unlock()
		return Result{Op: op, Err: ErrClosed}
	}
	prev := *e.task
	p, err := build(prev)
	if err != nil {
		e.mu.Unlock()
		return Result{Op: op, Prev: prev, Task: prev, Err: err}
	}
	optimistic := p.Apply(prev)
	e.task = &optimistic
	mine := e.claimLocked(p)
	e.mu.Unlock()

	acked, err := e.store.Update(ctx, e.boardID, prev.ID, p)

	res := Result{Op: op, Patch: p, Prev: prev, Err: err}

	e.mu.Lock()
	if e.task == nil || e.task.ID != prev.ID {
		// closed or replaced while the call was in flight
		e.mu.Unlock()
		if err != nil {
			if sess != nil && sess.closed() && errors.Is(err, context.Canceled) {
				res.Err = nil
				res.Skipped = true
				return res
			}
			res.Task = prev
			e.report(op, prev.ID, err)
			return res
		}
		res.Task = acked
		if e.hooks.OnUpdate != nil {
			e.hooks.OnUpdate(acked)
		}
		return res
	}

	cur := *e.task
	latest := e.latestLocked(p, mine)
	switch {
	case err == nil:
		cur = latest.CopyFields(cur, acked)
		if !acked.UpdatedAt.IsZero() {
			cur.UpdatedAt = acked.UpdatedAt
		}
	case e.policy == RollbackOnFailure:
		cur = latest.CopyFields(cur, prev)
		res.RolledBack = true
	}
	e.task = &cur
	res.Task = cur
	e.mu.Unlock()

	if err != nil {
		e.report(op, prev.ID, err)
	}
	if e.hooks.OnUpdate != nil {
		e.hooks.OnUpdate(cur)
	}
	return res
}

func (e *Editor) claimLocked(p tasks.Patch) map[string]uint64 {
	mine := make(map[string]uint64)
	for _, f := range p.Fields() {
		e.gens[f]++
		mine[f] = e.gens[f]
	}
	return mine
}

// latestLocked drops from p the fields a newer write has claimed since.
func (e *Editor) latestLocked(p tasks.Patch, mine map[string]uint64) tasks.Patch {
	for f, g := range mine {
		if e.gens[f] != g {
			p = p.Without(f)
		}
	}
	return p
}

func (e *Editor) report(op Op, taskID int64, err error) {
	e.logger.Warn(fmt.Sprintf("task_%s_failed", op),
		slog.String("board_id", e.boardID),
		slog.Int64("task_id", taskID),
		slog.String("error", err.Error()),
	)
	if e.hooks.OnError != nil {
		e.hooks.OnError(op, err)
	}
}
