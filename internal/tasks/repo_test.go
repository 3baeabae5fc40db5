package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestInMemoryRepo_ConcurrentFieldUpdates(t *testing.T) {
	repo := NewInMemoryRepo()
	ctx := context.Background()
	task, err := repo.Create(ctx, testBoard, "Untitled", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = repo.Update(ctx, testBoard, task.ID, Patch{Title: String("renamed")})
	}()
	go func() {
		defer wg.Done()
		_, _ = repo.Update(ctx, testBoard, task.ID, Patch{Content: String("<p>body</p>")})
	}()
	wg.Wait()

	got, err := repo.Get(ctx, testBoard, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "renamed" || got.Content != "<p>body</p>" {
		t.Fatalf("patches to different fields must both land, got %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Fatalf("updated_at went backwards: %+v", got)
	}
}

func TestInMemoryRepo_Errors(t *testing.T) {
	repo := NewInMemoryRepo()
	ctx := context.Background()

	if _, err := repo.Create(ctx, testBoard, "   ", ""); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := repo.Update(ctx, testBoard, 99, Patch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, testBoard, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryRepo_TitleLimitCountsCharacters(t *testing.T) {
	repo := NewInMemoryRepo()
	ctx := context.Background()

	// 200 characters, 400 bytes
	title := strings.Repeat("ж", MaxTitleLen)
	task, err := repo.Create(ctx, testBoard, title, "")
	if err != nil {
		t.Fatalf("expected %d multi-byte characters to fit, got %v", MaxTitleLen, err)
	}
	if _, err := repo.Update(ctx, testBoard, task.ID, Patch{Title: String(title + "ж")}); !errors.Is(err, ErrTitleTooLong) {
		t.Fatalf("expected ErrTitleTooLong at %d characters, got %v", MaxTitleLen+1, err)
	}
}
