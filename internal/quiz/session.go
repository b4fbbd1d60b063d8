// Package quiz drives one linear pass through a derived question sequence:
// present, answer once, advance, complete.
package quiz

import (
	"context"
	"math/rand"

	"certprep/internal/errors"
	"certprep/internal/logger"
	"certprep/internal/models"
	"certprep/internal/selector"
)

// Phase is the session state.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhasePresenting Phase = "presenting"
	PhaseAnswered   Phase = "answered"
	PhaseCompleted  Phase = "completed"
	// PhaseEmpty is the valid "no questions available" outcome, distinct
	// from Loading.
	PhaseEmpty Phase = "empty"
	// PhaseFailed is terminal: the session hit an internal invariant
	// violation and must be restarted from selection.
	PhaseFailed Phase = "failed"
)

// ProgressStore is the slice of the progress store the session drives.
type ProgressStore interface {
	RecordAnswer(ctx context.Context, questionID int, isCorrect bool, domain models.Domain)
	SetBookmark(ctx context.Context, questionID int, bookmarked bool)
	History() map[int]models.QuestionHistory
	Settings() models.AppSettings
}

// Session runs one pass through a selected question sequence. It holds only
// transient per-run state; every durable mutation goes through the store.
type Session struct {
	store ProgressStore
	bank  []models.Question
	rng   *rand.Rand

	phase      Phase
	params     selector.Params
	questions  []models.Question
	presented  []selector.Presentation
	index      int
	selected   int // displayed option index, -1 when unanswered
	wasCorrect bool
	score      int
	showExpl   bool
	bookmarked bool
}

// Option configures a Session.
type Option func(*Session)

// WithRand injects the randomness source used for sampling and option
// shuffling.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) {
		s.rng = rng
	}
}

// New creates a session over the given bank snapshot. The session starts in
// Loading; call Reset to derive its question sequence.
func New(bank []models.Question, store ProgressStore, opts ...Option) *Session {
	s := &Session{
		store:    store,
		bank:     bank,
		phase:    PhaseLoading,
		selected: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reset derives the question sequence for the given params and restarts the
// session from the beginning. Derivation is synchronous: the session is in
// its new state when Reset returns.
func (s *Session) Reset(ctx context.Context, p selector.Params) {
	log := logger.FromContext(ctx).WithPrefix("quiz")

	s.phase = PhaseLoading
	s.params = p

	s.apply(selector.Derive(s.bank, s.store.History(), p, s.rng))
	log.Debug("session reset: mode=%s questions=%d phase=%s", p.Mode, len(s.questions), s.phase)
}

// apply installs a derived sequence.
func (s *Session) apply(questions []models.Question) {
	if len(questions) == 0 {
		s.questions = nil
		s.presented = nil
		s.phase = PhaseEmpty
		return
	}

	shuffle := s.store.Settings().ShuffleOptions
	s.questions = questions
	s.presented = make([]selector.Presentation, len(questions))
	for i, q := range questions {
		s.presented[i] = selector.Present(q, shuffle, s.rng)
	}
	s.index = 0
	s.selected = -1
	s.score = 0
	s.showExpl = false
	s.phase = PhasePresenting
	s.refreshBookmark()
}

// SelectOption answers the current question with the displayed option at
// position. Selection is one-shot: once answered, further selections are
// rejected until Advance.
func (s *Session) SelectOption(ctx context.Context, position int) error {
	log := logger.FromContext(ctx).WithPrefix("quiz")

	switch s.phase {
	case PhaseAnswered:
		return errors.NewValidationError("option", "question already answered")
	case PhasePresenting:
	default:
		return errors.NewSessionError("option selected outside an active question")
	}

	if s.index < 0 || s.index >= len(s.questions) {
		return s.fail(log, "current index out of bounds")
	}
	q := s.questions[s.index]
	if position < 0 || position >= len(q.Options) {
		return s.fail(log, "selected option out of bounds")
	}

	original := s.presented[s.index].OriginalIndex(position)
	correct := original == q.CorrectAnswer

	s.selected = position
	s.wasCorrect = correct
	if correct {
		s.score++
	}
	s.phase = PhaseAnswered
	if s.store.Settings().ShowExplanationImmediately {
		s.showExpl = true
	}

	// Persistence errors are absorbed by the store; scoring proceeds in
	// memory regardless.
	s.store.RecordAnswer(ctx, q.ID, correct, q.Domain)

	log.Debug("answered: question=%d correct=%t score=%d", q.ID, correct, s.score)
	return nil
}

// RevealExplanation exposes the explanation for an answered question when
// it was not shown immediately.
func (s *Session) RevealExplanation() error {
	if s.phase != PhaseAnswered {
		return errors.NewValidationError("explanation", "no answered question to explain")
	}
	s.showExpl = true
	return nil
}

// Advance moves past the answered question: to the next question, or to
// Completed after the last one.
func (s *Session) Advance(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("quiz")

	if s.phase != PhaseAnswered {
		return errors.NewValidationError("advance", "current question not answered")
	}
	if s.index >= len(s.questions) {
		return s.fail(log, "advance past end of sequence")
	}

	if s.index == len(s.questions)-1 {
		s.phase = PhaseCompleted
		log.Info("session completed: score=%d/%d", s.score, len(s.questions))
		return nil
	}

	s.index++
	s.selected = -1
	s.showExpl = false
	s.phase = PhasePresenting
	s.refreshBookmark()
	return nil
}

// ToggleBookmark flips the bookmark on the current question. Available in
// any presenting state; does not affect session flow.
func (s *Session) ToggleBookmark(ctx context.Context) error {
	if s.phase != PhasePresenting && s.phase != PhaseAnswered {
		return errors.NewValidationError("bookmark", "no current question")
	}
	q := s.questions[s.index]
	s.bookmarked = !s.bookmarked
	s.store.SetBookmark(ctx, q.ID, s.bookmarked)
	return nil
}

func (s *Session) refreshBookmark() {
	q := s.questions[s.index]
	s.bookmarked = s.store.History()[q.ID].Bookmarked
}

func (s *Session) fail(log *logger.Logger, reason string) error {
	s.phase = PhaseFailed
	log.Error("session failed: %s", reason)
	return errors.NewSessionError(reason)
}

// Snapshot is the read-only session state exposed to consumers.
type Snapshot struct {
	Phase            Phase
	Index            int
	Total            int
	Score            int
	Question         *models.Question
	Options          []string // in display order
	Selected         int      // displayed position, -1 when unanswered
	CorrectPosition  int      // displayed position of the correct answer
	WasCorrect       bool
	Bookmarked       bool
	ExplanationShown bool
	Explanation      string // empty until shown
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:    s.phase,
		Index:    s.index,
		Total:    len(s.questions),
		Score:    s.score,
		Selected: s.selected,
	}
	if s.phase == PhasePresenting || s.phase == PhaseAnswered {
		q := s.questions[s.index]
		pres := s.presented[s.index]
		snap.Question = &q
		snap.Options = pres.DisplayOptions(q)
		snap.CorrectPosition = pres.Correct
		snap.WasCorrect = s.wasCorrect
		snap.Bookmarked = s.bookmarked
		snap.ExplanationShown = s.showExpl
		if s.showExpl {
			snap.Explanation = q.Explanation
		}
	}
	return snap
}
