package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/interviewer/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteKeyValue(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetValue(ctx, "u1", "interviewSessions")
	if err != nil || got != nil {
		t.Fatalf("GetValue(missing) = %q, %v", got, err)
	}

	if err := s.PutValue(ctx, "u1", "userName", []byte(`"Анна"`)); err != nil {
		t.Fatalf("PutValue() error = %v", err)
	}
	if err := s.PutValue(ctx, "u1", "userName", []byte(`"Мария"`)); err != nil {
		t.Fatalf("PutValue(overwrite) error = %v", err)
	}
	if err := s.PutValue(ctx, "u2", "userName", []byte(`"Олег"`)); err != nil {
		t.Fatal(err)
	}

	got, err = s.GetValue(ctx, "u1", "userName")
	if err != nil || string(got) != `"Мария"` {
		t.Fatalf("GetValue() = %q, %v", got, err)
	}

	if err := s.DeleteValue(ctx, "u1", "userName"); err != nil {
		t.Fatalf("DeleteValue() error = %v", err)
	}
	if err := s.DeleteValue(ctx, "u1", "userName"); err != nil {
		t.Fatalf("DeleteValue(missing) error = %v", err)
	}
	if got, _ := s.GetValue(ctx, "u1", "userName"); got != nil {
		t.Fatalf("value survived delete: %q", got)
	}
	if got, _ := s.GetValue(ctx, "u2", "userName"); string(got) != `"Олег"` {
		t.Fatalf("other owner affected: %q", got)
	}
}

func TestSQLiteUsers(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if u, err := s.GetUser(ctx, "missing"); err != nil || u != nil {
		t.Fatalf("GetUser(missing) = %v, %v", u, err)
	}

	now := time.Unix(1700000000, 0)
	user := &domain.User{UserID: "u1", LastSeenAt: now, CreatedAt: now, UpdatedAt: now}
	if err := s.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}

	later := now.Add(time.Hour)
	if err := s.UpdateLastSeen(ctx, "u1", later); err != nil {
		t.Fatalf("UpdateLastSeen() error = %v", err)
	}

	got, err := s.GetUser(ctx, "u1")
	if err != nil || got == nil {
		t.Fatalf("GetUser() = %v, %v", got, err)
	}
	if !got.LastSeenAt.Equal(later) || !got.CreatedAt.Equal(now) {
		t.Fatalf("user = %+v", got)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
