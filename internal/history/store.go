// Package history persists completed interviews per device and derives
// statistics from them.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/interviewer/internal/domain"
	"github.com/ashureev/interviewer/internal/metrics"
)

// Storage keys and limits.
const (
	SessionsKey = "interviewSessions"
	Capacity    = 50
	HeadTurns   = 10
)

// KV is the device-scoped key-value storage the history lives in.
type KV interface {
	GetValue(ctx context.Context, owner, key string) ([]byte, error)
	PutValue(ctx context.Context, owner, key string, value []byte) error
	DeleteValue(ctx context.Context, owner, key string) error
}

// Completion is a finished interview ready to be recorded.
type Completion struct {
	Transcript []domain.ChatTurn
	Result     domain.InterviewResult
	Task       *domain.Task
	Violations int
}

// Store owns all reads and writes of the session history.
type Store struct {
	kv     KV
	logger *slog.Logger
	now    func() time.Time

	// mu serialises read-modify-write cycles on the session list.
	mu sync.Mutex
}

// NewStore creates a history store over kv.
func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger, now: time.Now}
}

// Append records a completed interview as the newest entry, evicting the
// oldest entries beyond Capacity.
func (s *Store) Append(ctx context.Context, owner string, c Completion) (domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadStrict(ctx, owner)
	if err != nil {
		return domain.SessionRecord{}, err
	}

	now := s.now()
	id := now.UnixMilli()
	if len(records) > 0 && id <= records[0].ID {
		id = records[0].ID + 1
	}

	record := domain.SessionRecord{
		ID:             id,
		CreatedAt:      now,
		DayOfWeek:      domain.WeekdayLabel(now),
		Score:          c.Result.Total(),
		Theory:         c.Result.TheoryScore,
		Practice:       c.Result.PracticeScore,
		Verdict:        c.Result.Verdict,
		Violations:     c.Violations,
		TranscriptHead: head(c.Transcript, HeadTurns),
		FullTranscript: c.Transcript,
		Result:         c.Result,
	}
	if c.Task != nil {
		record.TaskID = c.Task.ID
	}

	records = append([]domain.SessionRecord{record}, records...)
	if len(records) > Capacity {
		records = records[:Capacity]
	}

	data, err := json.Marshal(records)
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("encode history: %w", err)
	}
	if err := s.kv.PutValue(ctx, owner, SessionsKey, data); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("persist history: %w", err)
	}

	metrics.Default().HistoryAppends.Inc()
	s.logger.Info("Interview recorded", "user_id", owner, "record_id", record.ID, "score", record.Score)
	return record, nil
}

// List returns all records, newest first. Missing or unreadable history is
// reported as empty.
func (s *Store) List(ctx context.Context, owner string) []domain.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, owner)
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, owner string, id int64) (domain.SessionRecord, bool) {
	for _, r := range s.List(ctx, owner) {
		if r.ID == id {
			return r, true
		}
	}
	return domain.SessionRecord{}, false
}

// Clear removes all records.
func (s *Store) Clear(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.DeleteValue(ctx, owner, SessionsKey); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, owner string) []domain.SessionRecord {
	records, err := s.loadStrict(ctx, owner)
	if err != nil {
		s.logger.Warn("Failed to read history, treating as empty", "user_id", owner, "error", err)
		return []domain.SessionRecord{}
	}
	return records
}

// loadStrict reads the stored list. A missing key or an undecodable value is
// an empty history; a failed read is returned so callers never overwrite
// records they could not see.
func (s *Store) loadStrict(ctx context.Context, owner string) ([]domain.SessionRecord, error) {
	data, err := s.kv.GetValue(ctx, owner, SessionsKey)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(data) == 0 {
		return []domain.SessionRecord{}, nil
	}

	var records []domain.SessionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("Corrupt history, treating as empty", "user_id", owner, "error", err)
		return []domain.SessionRecord{}, nil
	}
	if records == nil {
		records = []domain.SessionRecord{}
	}
	return records, nil
}

func head(turns []domain.ChatTurn, n int) []domain.ChatTurn {
	if len(turns) < n {
		n = len(turns)
	}
	out := make([]domain.ChatTurn, n)
	copy(out, turns[:n])
	return out
}
