package tasks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const MaxTitleLen = 200

var (
	ErrTitleRequired       = errors.New("title required")
	ErrTitleTooLong        = errors.New("title too long")
	ErrTimerStartRequired  = errors.New("timer_start required while timer is running")
	ErrTimerEndBeforeStart = errors.New("timer_end before timer_start")
	ErrNegativeDuration    = errors.New("timer_duration_ms must not be negative")
	ErrNotFound            = errors.New("task not found")
)

type Repository interface {
	Create(ctx context.Context, boardID, title, content string) (Task, error)
	List(ctx context.Context, boardID string) ([]Task, error)
	Get(ctx context.Context, boardID string, id int64) (Task, error)
	Update(ctx context.Context, boardID string, id int64, p Patch) (Task, error)
	Delete(ctx context.Context, boardID string, id int64) error
}

func checkTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return ErrTitleTooLong
	}
	return nil
}

// checkTask validates the state a write would leave behind.
func checkTask(t Task) error {
	if err := checkTitle(t.Title); err != nil {
		return err
	}
	if t.TimerRunning && t.TimerStart == nil {
		return ErrTimerStartRequired
	}
	if t.TimerStart != nil && t.TimerEnd != nil && t.TimerEnd.Before(*t.TimerStart) {
		return ErrTimerEndBeforeStart
	}
	if t.TimerDurationMS < 0 {
		return ErrNegativeDuration
	}
	return nil
}

type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]Task
	now   func() time.Time
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[int64]Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepo) Create(_ context.Context, boardID, title, content string) (Task, error) {
	if err := checkTitle(title); err != nil {
		return Task{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	now := r.now()
	t := Task{
		ID:        r.seq,
		BoardID:   boardID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.store[t.ID] = t
	return t, nil
}

func (r *InMemoryRepo) List(_ context.Context, boardID string) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Task, 0, len(r.store))
	for _, t := range r.store {
		if t.BoardID == boardID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepo) Get(_ context.Context, boardID string, id int64) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok || t.BoardID != boardID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (r *InMemoryRepo) Update(_ context.Context, boardID string, id int64, p Patch) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.store[id]
	if !ok || cur.BoardID != boardID {
		return Task{}, ErrNotFound
	}
	next := p.Apply(cur)
	if err := checkTask(next); err != nil {
		return Task{}, err
	}
	next.UpdatedAt = r.now()
	r.store[id] = next
	return next, nil
}

func (r *InMemoryRepo) Delete(_ context.Context, boardID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok || t.BoardID != boardID {
		return ErrNotFound
	}
	delete(r.store, id)
	return nil
}
