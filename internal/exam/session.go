// Package exam implements the timed mock exam: a fixed-size random draw
// from the bank, a countdown budget, free navigation with re-answering, and
// a persisted per-domain result.
package exam

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"certprep/internal/errors"
	"certprep/internal/logger"
	"certprep/internal/models"
)

// Exam format, mirroring the real certification exam.
const (
	QuestionCount = 65
	Duration      = 90 * time.Minute
	PassThreshold = 0.70
)

// Phase is the exam lifecycle state.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseRunning    Phase = "running"
	PhaseCompleted  Phase = "completed"
)

// unanswered marks a question with no selected option.
const unanswered = -1

// Clock abstracts wall-clock time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ProgressStore is the slice of the progress store the exam reports to.
type ProgressStore interface {
	RecordMockExam(ctx context.Context, result models.MockExamResult)
}

// UnansweredError reports a submission attempted with questions still
// blank; the caller must confirm before the exam completes.
type UnansweredError struct {
	Count int
}

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("%d questions unanswered; confirmation required", e.Count)
}

// Session is one mock exam run. Safe for use from the countdown goroutine
// and the driving caller concurrently.
type Session struct {
	mu    sync.Mutex
	store ProgressStore
	bank  []models.Question
	clock Clock
	rng   *rand.Rand

	questionCount int
	duration      time.Duration
	tickInterval  time.Duration

	phase     Phase
	questions []models.Question
	answers   []int
	index     int
	startedAt time.Time
	deadline  time.Time
	countdown *countdown
	result    *models.MockExamResult
}

// Option configures a Session.
type Option func(*Session)

// WithClock injects the time source.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithRand injects the randomness source used for question sampling.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// WithQuestionCount overrides the exam question count.
func WithQuestionCount(n int) Option {
	return func(s *Session) { s.questionCount = n }
}

// WithDuration overrides the exam time budget.
func WithDuration(d time.Duration) Option {
	return func(s *Session) { s.duration = d }
}

// New creates a mock exam session over the given bank snapshot.
func New(bank []models.Question, store ProgressStore, opts ...Option) *Session {
	s := &Session{
		store:         store,
		bank:          bank,
		clock:         systemClock{},
		questionCount: QuestionCount,
		duration:      Duration,
		tickInterval:  time.Second,
		phase:         PhaseNotStarted,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Start samples min(QuestionCount, bank size) questions without replacement,
// records the start time, and begins the countdown.
func (s *Session) Start(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("exam")
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseNotStarted {
		return errors.NewSessionError("exam already started")
	}
	if len(s.bank) == 0 {
		return errors.NewValidationError("bank", "no questions available")
	}

	pool := append([]models.Question(nil), s.bank...)
	s.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	n := s.questionCount
	if n > len(pool) {
		n = len(pool)
	}
	s.questions = pool[:n]

	s.answers = make([]int, n)
	for i := range s.answers {
		s.answers[i] = unanswered
	}
	s.index = 0
	s.startedAt = s.clock.Now()
	s.deadline = s.startedAt.Add(s.duration)
	s.phase = PhaseRunning

	s.countdown = startCountdown(s.tickInterval, func() {
		s.checkExpiry(ctx)
	})

	log.Info("mock exam started: %d questions, %s budget", n, s.duration)
	return nil
}

// checkExpiry completes the exam once the deadline passes. Called from the
// countdown goroutine; a late tick after completion is a no-op.
func (s *Session) checkExpiry(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRunning {
		return
	}
	if s.clock.Now().Before(s.deadline) {
		return
	}
	logger.FromContext(ctx).WithPrefix("exam").Info("time expired, submitting automatically")
	s.completeLocked(ctx)
}

// SelectOption records the answer for the current question, overwriting any
// previous answer. Re-answering is allowed until completion.
func (s *Session) SelectOption(option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRunning {
		return errors.NewSessionError("exam is not running")
	}
	q := s.questions[s.index]
	if option < 0 || option >= len(q.Options) {
		return errors.NewValidationError("option", fmt.Sprintf("index %d out of range for %d options", option, len(q.Options)))
	}
	s.answers[s.index] = option
	return nil
}

// Next moves to the following question. Answering is not required.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotoLocked(s.index + 1)
}

// Prev moves to the previous question.
func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotoLocked(s.index - 1)
}

// Goto jumps to an arbitrary question index.
func (s *Session) Goto(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotoLocked(index)
}

func (s *Session) gotoLocked(index int) error {
	if s.phase != PhaseRunning {
		return errors.NewSessionError("exam is not running")
	}
	if index < 0 || index >= len(s.questions) {
		return errors.NewValidationError("index", fmt.Sprintf("%d out of range [0,%d)", index, len(s.questions)))
	}
	s.index = index
	return nil
}

// Submit completes the exam. With unanswered questions remaining and
// confirmed false it returns UnansweredError without completing; the caller
// confirms by retrying with confirmed true. Submitting an already completed
// exam is a no-op.
func (s *Session) Submit(ctx context.Context, confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseCompleted {
		return nil
	}
	if s.phase != PhaseRunning {
		return errors.NewSessionError("exam has not started")
	}

	if n := s.unansweredLocked(); n > 0 && !confirmed {
		return &UnansweredError{Count: n}
	}
	s.completeLocked(ctx)
	return nil
}

// completeLocked scores the exam, builds the result, reports it to the
// progress store, and cancels the countdown. Idempotent: a second
// completion attempt is a no-op.
func (s *Session) completeLocked(ctx context.Context) {
	if s.phase == PhaseCompleted {
		return
	}
	log := logger.FromContext(ctx).WithPrefix("exam")

	if s.countdown != nil {
		s.countdown.cancel()
		s.countdown = nil
	}

	score := 0
	domainScores := make(map[models.Domain]models.DomainScore)
	for i, q := range s.questions {
		ds := domainScores[q.Domain]
		ds.Total++
		if s.answers[i] == q.CorrectAnswer {
			score++
			ds.Correct++
		}
		domainScores[q.Domain] = ds
	}

	// Time spent comes from wall clock, not the countdown, to tolerate
	// suspend drift.
	completedAt := s.clock.Now()
	result := models.MockExamResult{
		ID:               uuid.NewString(),
		Date:             completedAt,
		Score:            score,
		TotalQuestions:   len(s.questions),
		TimeSpentSeconds: int(completedAt.Sub(s.startedAt).Seconds()),
		DomainScores:     domainScores,
	}
	s.result = &result
	s.phase = PhaseCompleted

	// Best-effort durability: the in-memory result stays available to the
	// result view even if persistence fails inside the store.
	s.store.RecordMockExam(ctx, result)

	log.Info("mock exam completed: id=%s score=%d/%d time=%ds", result.ID, score, len(s.questions), result.TimeSpentSeconds)
}

func (s *Session) unansweredLocked() int {
	n := 0
	for _, a := range s.answers {
		if a == unanswered {
			n++
		}
	}
	return n
}

// Close cancels the countdown on early teardown so a stray tick cannot fire
// against a torn-down session. Completion state is left as-is.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown != nil {
		s.countdown.cancel()
		s.countdown = nil
	}
}

// TimeRemaining returns the countdown budget left, derived from the clock
// and the deadline.
func (s *Session) TimeRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseNotStarted:
		return s.duration
	case PhaseRunning:
		remaining := s.deadline.Sub(s.clock.Now())
		if remaining < 0 {
			return 0
		}
		return remaining
	default:
		return 0
	}
}

// Result returns the exam result once completed.
func (s *Session) Result() (models.MockExamResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return models.MockExamResult{}, false
	}
	return s.result.Clone(), true
}

// Passed reports whether the completed exam met the pass threshold.
func (s *Session) Passed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil || s.result.TotalQuestions == 0 {
		return false
	}
	return float64(s.result.Score)/float64(s.result.TotalQuestions) >= PassThreshold
}

// Snapshot is the read-only exam state exposed to consumers.
type Snapshot struct {
	Phase         Phase
	Index         int
	Total         int
	AnsweredCount int
	Question      *models.Question
	Answer        int // unanswered is -1
	TimeRemaining time.Duration
}

// Snapshot returns the current exam state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Phase:  s.phase,
		Index:  s.index,
		Total:  len(s.questions),
		Answer: unanswered,
	}
	if s.phase == PhaseRunning {
		q := s.questions[s.index]
		snap.Question = &q
		snap.Answer = s.answers[s.index]
		snap.AnsweredCount = len(s.answers) - s.unansweredLocked()
		remaining := s.deadline.Sub(s.clock.Now())
		if remaining < 0 {
			remaining = 0
		}
		snap.TimeRemaining = remaining
	}
	return snap
}
