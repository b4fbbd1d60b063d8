// Package progress owns all durable user state: per-question history, the
// progress aggregate, and settings. It is the sole writer to the underlying
// storage keys; sessions mutate state exclusively through its operations.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	apperrors "certprep/internal/errors"
	"certprep/internal/logger"
	"certprep/internal/models"
	"certprep/internal/storage"
)

// Store is the single source of truth for durable user state. Mutating
// operations are serialized: each read-modify-write cycle, including the
// persisted write, completes under the lock before the next begins.
// In-memory state is authoritative for the running session; persistence is
// best-effort and write failures are logged, never rolled back.
type Store struct {
	mu      sync.Mutex
	storage storage.Store
	now     func() time.Time

	history  map[int]models.QuestionHistory
	progress models.UserProgress
	settings models.AppSettings
	ready    bool
}

// Option configures a Store.
type Option func(*Store)

// WithNow overrides the time source, for deterministic streak tests.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store over the given storage backend. Call Load before use.
func New(st storage.Store, opts ...Option) *Store {
	s := &Store{
		storage:  st,
		now:      time.Now,
		history:  make(map[int]models.QuestionHistory),
		progress: models.DefaultProgress(),
		settings: models.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the three durable records. Each key falls back to its default
// independently when absent, unreadable, or malformed; Load never fails and
// always leaves the store ready. The study streak is not refreshed here.
func (s *Store) Load(ctx context.Context) {
	log := logger.FromContext(ctx).WithPrefix("progress")
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make(map[int]models.QuestionHistory)
	if raw, err := s.storage.Get(ctx, storage.KeyQuestionHistory); err == nil {
		if jsonErr := json.Unmarshal([]byte(raw), &history); jsonErr != nil {
			log.Warn("malformed question history, starting empty: %v", jsonErr)
			history = make(map[int]models.QuestionHistory)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Error("failed to read question history: %v", err)
	}
	s.history = history

	prog := models.DefaultProgress()
	if raw, err := s.storage.Get(ctx, storage.KeyUserProgress); err == nil {
		var loaded models.UserProgress
		if jsonErr := json.Unmarshal([]byte(raw), &loaded); jsonErr != nil {
			log.Warn("malformed user progress, using defaults: %v", jsonErr)
		} else {
			if loaded.DomainProgress == nil {
				loaded.DomainProgress = models.DefaultProgress().DomainProgress
			}
			if loaded.MockExamHistory == nil {
				loaded.MockExamHistory = []models.MockExamResult{}
			}
			prog = loaded
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Error("failed to read user progress: %v", err)
	}
	s.progress = prog

	settings := models.DefaultSettings()
	if raw, err := s.storage.Get(ctx, storage.KeySettings); err == nil {
		var loaded models.AppSettings
		if jsonErr := json.Unmarshal([]byte(raw), &loaded); jsonErr != nil {
			log.Warn("malformed settings, using defaults: %v", jsonErr)
		} else {
			settings = loaded
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Error("failed to read settings: %v", err)
	}
	s.settings = settings

	s.ready = true
	log.Info("progress loaded: %d history records, %d answers, %d mock exams",
		len(s.history), s.progress.TotalQuestionsAnswered, len(s.progress.MockExamHistory))
}

// RecordAnswer records one answered question: per-question history, global
// totals, the matching domain entry when domain is recognized, and the study
// streak. Pass an empty domain to skip the domain increment.
func (s *Store) RecordAnswer(ctx context.Context, questionID int, isCorrect bool, domain models.Domain) {
	log := logger.FromContext(ctx).WithPrefix("progress")
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	h, ok := s.history[questionID]
	if !ok {
		h = models.QuestionHistory{QuestionID: questionID}
	}
	h.Attempts++
	if isCorrect {
		h.CorrectAttempts++
	}
	h.LastAttemptDate = now
	s.history[questionID] = h

	s.progress.TotalQuestionsAnswered++
	if isCorrect {
		s.progress.TotalCorrectAnswers++
	}
	if domain.Valid() {
		d := s.progress.DomainProgress[domain]
		d.Answered++
		if isCorrect {
			d.Correct++
		}
		s.progress.DomainProgress[domain] = d
	} else if domain != "" {
		log.Warn("ignoring unknown domain %q for question %d", domain, questionID)
	}

	s.refreshStreakLocked(now)

	log.Debug("answer recorded: question=%d correct=%t attempts=%d", questionID, isCorrect, h.Attempts)
	s.persistHistoryLocked(ctx)
	s.persistProgressLocked(ctx)
}

// SetBookmark sets the bookmark flag for a question, creating its history
// record (with zero attempts) on first use. Idempotent.
func (s *Store) SetBookmark(ctx context.Context, questionID int, bookmarked bool) {
	log := logger.FromContext(ctx).WithPrefix("progress")
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.history[questionID]
	if !ok {
		h = models.QuestionHistory{QuestionID: questionID}
	}
	h.Bookmarked = bookmarked
	s.history[questionID] = h

	log.Debug("bookmark set: question=%d bookmarked=%t", questionID, bookmarked)
	s.persistHistoryLocked(ctx)
}

// RecordMockExam appends the result to the exam history, folds its domain
// scores into the matching domain entries (unknown domains are ignored, no
// entries are created), adds its totals to the global counters, and
// refreshes the streak. Persisted once.
func (s *Store) RecordMockExam(ctx context.Context, result models.MockExamResult) {
	log := logger.FromContext(ctx).WithPrefix("progress")
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress.MockExamHistory = append(s.progress.MockExamHistory, result.Clone())

	for domain, score := range result.DomainScores {
		d, ok := s.progress.DomainProgress[domain]
		if !ok {
			log.Warn("ignoring exam scores for unknown domain %q", domain)
			continue
		}
		d.Answered += score.Total
		d.Correct += score.Correct
		s.progress.DomainProgress[domain] = d
	}

	s.progress.TotalQuestionsAnswered += result.TotalQuestions
	s.progress.TotalCorrectAnswers += result.Score

	s.refreshStreakLocked(s.now())

	log.Info("mock exam recorded: id=%s score=%d/%d", result.ID, result.Score, result.TotalQuestions)
	s.persistProgressLocked(ctx)
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	ShowExplanationImmediately *bool
	ShuffleOptions             *bool
}

// UpdateSettings merges the patch into the current settings and persists.
func (s *Store) UpdateSettings(ctx context.Context, patch SettingsPatch) {
	log := logger.FromContext(ctx).WithPrefix("progress")
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.ShowExplanationImmediately != nil {
		s.settings.ShowExplanationImmediately = *patch.ShowExplanationImmediately
	}
	if patch.ShuffleOptions != nil {
		s.settings.ShuffleOptions = *patch.ShuffleOptions
	}

	log.Debug("settings updated: explanation=%t shuffle=%t",
		s.settings.ShowExplanationImmediately, s.settings.ShuffleOptions)
	s.persistSettingsLocked(ctx)
}

// ResetSettings restores default settings without touching progress data.
func (s *Store) ResetSettings(ctx context.Context) {
	log := logger.FromContext(ctx).WithPrefix("progress")
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = models.DefaultSettings()
	if err := s.storage.Delete(ctx, storage.KeySettings); err != nil {
		log.Error("failed to clear settings: %v", err)
	}
	log.Info("settings reset to defaults")
}

// ResetProgress clears history and progress back to defaults. Settings are
// untouched.
func (s *Store) ResetProgress(ctx context.Context) {
	log := logger.FromContext(ctx).WithPrefix("progress")
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = make(map[int]models.QuestionHistory)
	s.progress = models.DefaultProgress()
	if err := s.storage.Delete(ctx, storage.KeyQuestionHistory); err != nil {
		log.Error("failed to clear question history: %v", err)
	}
	if err := s.storage.Delete(ctx, storage.KeyUserProgress); err != nil {
		log.Error("failed to clear user progress: %v", err)
	}
	log.Info("progress reset")
}

// SetDomainTotals records how many questions the bank holds per domain.
// Only the Total field is touched; answered/correct counts are preserved.
func (s *Store) SetDomainTotals(ctx context.Context, counts map[models.Domain]int) {
	log := logger.FromContext(ctx).WithPrefix("progress")
	s.mu.Lock()
	defer s.mu.Unlock()

	for domain, count := range counts {
		if !domain.Valid() {
			log.Warn("ignoring total for unknown domain %q", domain)
			continue
		}
		d := s.progress.DomainProgress[domain]
		d.Total = count
		s.progress.DomainProgress[domain] = d
	}
	s.persistProgressLocked(ctx)
}

// refreshStreakLocked applies the day-granularity streak policy: no prior
// study date starts a streak of 1, exactly one elapsed calendar day extends
// it, the same day leaves it alone, and any longer gap resets it to 1.
func (s *Store) refreshStreakLocked(now time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	last := s.progress.LastStudyDate
	if last == nil {
		s.progress.StudyStreak = 1
		s.progress.LastStudyDate = &today
		return
	}

	switch days := calendarDaysBetween(*last, now); {
	case days == 0:
		return
	case days == 1:
		s.progress.StudyStreak++
	default:
		s.progress.StudyStreak = 1
	}
	s.progress.LastStudyDate = &today
}

// calendarDaysBetween counts elapsed calendar days from a to b. Both dates
// are normalized to UTC midnights, where every day is exactly 24 hours, so a
// DST transition in the local zone cannot make one day look like zero.
func calendarDaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

func (s *Store) persistHistoryLocked(ctx context.Context) {
	log := logger.FromContext(ctx).WithPrefix("progress")
	raw, err := json.Marshal(s.history)
	if err != nil {
		log.Error("failed to encode question history: %v", err)
		return
	}
	if err := s.storage.Set(ctx, storage.KeyQuestionHistory, string(raw)); err != nil {
		log.Error("failed to persist question history: %v", err)
	}
}

func (s *Store) persistProgressLocked(ctx context.Context) {
	log := logger.FromContext(ctx).WithPrefix("progress")
	raw, err := json.Marshal(s.progress)
	if err != nil {
		log.Error("failed to encode user progress: %v", err)
		return
	}
	if err := s.storage.Set(ctx, storage.KeyUserProgress, string(raw)); err != nil {
		log.Error("failed to persist user progress: %v", err)
	}
}

func (s *Store) persistSettingsLocked(ctx context.Context) {
	log := logger.FromContext(ctx).WithPrefix("progress")
	raw, err := json.Marshal(s.settings)
	if err != nil {
		log.Error("failed to encode settings: %v", err)
		return
	}
	if err := s.storage.Set(ctx, storage.KeySettings, string(raw)); err != nil {
		log.Error("failed to persist settings: %v", err)
	}
}

// Ready reports whether Load has completed. An empty store that finished
// loading is ready; consumers use this to distinguish "no data" from
// "still loading".
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Settings returns the current settings.
func (s *Store) Settings() models.AppSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Progress returns a deep copy of the progress aggregate.
func (s *Store) Progress() models.UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress.Clone()
}

// History returns a copy of the per-question history map.
func (s *Store) History() map[int]models.QuestionHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]models.QuestionHistory, len(s.history))
	for id, h := range s.history {
		out[id] = h
	}
	return out
}

// MockExam looks up a recorded exam result by id.
func (s *Store) MockExam(id string) (models.MockExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.progress.MockExamHistory {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return models.MockExamResult{}, apperrors.NewNotFoundError("mock exam", id)
}
