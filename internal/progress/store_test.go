package progress_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "certprep/internal/errors"
	"certprep/internal/models"
	"certprep/internal/progress"
	"certprep/internal/storage"
	"certprep/internal/testutil/mocks"
)

func boolPtr(b bool) *bool { return &b }

func newLoadedStore(t *testing.T, opts ...progress.Option) (*progress.Store, *storage.MemoryStore) {
	t.Helper()
	mem := storage.NewMemoryStore()
	s := progress.New(mem, opts...)
	s.Load(context.Background())
	require.True(t, s.Ready())
	return s, mem
}

func TestLoad_EmptyStorageYieldsDefaults(t *testing.T) {
	s, _ := newLoadedStore(t)

	assert.Empty(t, s.History())
	assert.Equal(t, models.DefaultSettings(), s.Settings())

	p := s.Progress()
	assert.Nil(t, p.LastStudyDate)
	assert.Zero(t, p.StudyStreak)
	assert.Len(t, p.DomainProgress, len(models.AllDomains()))
	assert.Empty(t, p.MockExamHistory)
}

func TestLoad_CorruptKeyFallsBackIndependently(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()

	// Seed a valid settings blob and a corrupt progress blob.
	require.NoError(t, mem.Set(ctx, storage.KeySettings, `{"show_explanation_immediately":false,"shuffle_options":false}`))
	require.NoError(t, mem.Set(ctx, storage.KeyUserProgress, "{definitely not json"))

	s := progress.New(mem)
	s.Load(ctx)

	assert.False(t, s.Settings().ShuffleOptions, "valid settings key must still load")
	assert.Zero(t, s.Progress().TotalQuestionsAnswered, "corrupt progress key must fall back to defaults")
	assert.True(t, s.Ready())
}

func TestLoad_StorageReadErrorStillReady(t *testing.T) {
	st := new(mocks.MockStore)
	st.On("Get", mock.Anything, mock.Anything).Return("", errors.New("disk on fire"))

	s := progress.New(st)
	s.Load(context.Background())

	assert.True(t, s.Ready())
	assert.Equal(t, models.DefaultSettings(), s.Settings())
}

func TestRecordAnswer_CreatesHistoryAndCounters(t *testing.T) {
	s, _ := newLoadedStore(t)
	ctx := context.Background()

	s.RecordAnswer(ctx, 7, true, models.DomainTechnology)

	h := s.History()[7]
	assert.Equal(t, 1, h.Attempts)
	assert.Equal(t, 1, h.CorrectAttempts)
	assert.False(t, h.Bookmarked)
	assert.False(t, h.LastAttemptDate.IsZero())

	p := s.Progress()
	assert.Equal(t, 1, p.TotalQuestionsAnswered)
	assert.Equal(t, 1, p.TotalCorrectAnswers)
	assert.Equal(t, 1, p.DomainProgress[models.DomainTechnology].Answered)
	assert.Equal(t, 1, p.DomainProgress[models.DomainTechnology].Correct)
}

func TestRecordAnswer_InvariantHoldsOverAnySequence(t *testing.T) {
	s, _ := newLoadedStore(t)
	ctx := context.Background()

	outcomes := []bool{true, false, false, true, true, false, true}
	for i, correct := range outcomes {
		s.RecordAnswer(ctx, 1+i%3, correct, models.DomainSecurity)
	}

	for id, h := range s.History() {
		assert.LessOrEqual(t, h.CorrectAttempts, h.Attempts, "question %d", id)
	}
	p := s.Progress()
	assert.LessOrEqual(t, p.TotalCorrectAnswers, p.TotalQuestionsAnswered)
	for d, dp := range p.DomainProgress {
		assert.LessOrEqual(t, dp.Correct, dp.Answered, "domain %s", d)
	}
}

func TestRecordAnswer_UnknownDomainSkipsDomainIncrement(t *testing.T) {
	s, _ := newLoadedStore(t)
	ctx := context.Background()

	s.RecordAnswer(ctx, 1, true, models.Domain("astrology"))

	p := s.Progress()
	assert.Equal(t, 1, p.TotalQuestionsAnswered)
	for d, dp := range p.DomainProgress {
		assert.Zero(t, dp.Answered, "domain %s", d)
	}
	_, exists := p.DomainProgress[models.Domain("astrology")]
	assert.False(t, exists)
}

func TestRecordAnswer_EmptyDomainAllowed(t *testing.T) {
	s, _ := newLoadedStore(t)

	s.RecordAnswer(context.Background(), 1, false, "")

	p := s.Progress()
	assert.Equal(t, 1, p.TotalQuestionsAnswered)
	assert.Zero(t, p.TotalCorrectAnswers)
}

func TestRecordAnswer_WriteFailureKeepsInMemoryState(t *testing.T) {
	st := new(mocks.MockStore)
	st.On("Get", mock.Anything, mock.Anything).Return("", storage.ErrNotFound)
	st.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("write failed"))

	s := progress.New(st)
	ctx := context.Background()
	s.Load(ctx)

	s.RecordAnswer(ctx, 5, true, models.DomainCloudConcepts)

	// In-memory state is authoritative for the running session.
	assert.Equal(t, 1, s.History()[5].Attempts)
	assert.Equal(t, 1, s.Progress().TotalQuestionsAnswered)
	st.AssertCalled(t, "Set", mock.Anything, storage.KeyQuestionHistory, mock.Anything)
}

func TestSetBookmark_Idempotent(t *testing.T) {
	s, _ := newLoadedStore(t)
	ctx := context.Background()

	s.SetBookmark(ctx, 3, true)
	s.SetBookmark(ctx, 3, true)

	history := s.History()
	require.Len(t, history, 1)
	h := history[3]
	assert.True(t, h.Bookmarked)
	assert.Zero(t, h.Attempts)
}

func TestSetBookmark_PreservesAttempts(t *testing.T) {
	s, _ := newLoadedStore(t)
	ctx := context.Background()

	s.RecordAnswer(ctx, 3, true, models.DomainTechnology)
	s.SetBookmark(ctx, 3, true)
	s.SetBookmark(ctx, 3, false)

	h := s.History()[3]
	assert.False(t, h.Bookmarked)
	assert.Equal(t, 1, h.Attempts)
	assert.Equal(t, 1, h.CorrectAttempts)
}

func TestUpdateSettings_RoundTripThroughFreshLoad(t *testing.T) {
	s, mem := newLoadedStore(t)
	ctx := context.Background()

	s.UpdateSettings(ctx, progress.SettingsPatch{ShuffleOptions: boolPtr(false)})

	fresh := progress.New(mem)
	fresh.Load(ctx)

	got := fresh.Settings()
	assert.False(t, got.ShuffleOptions)
	assert.True(t, got.ShowExplanationImmediately, "unpatched field keeps its default")
}

func TestResetSettings_LeavesProgressAlone(t *testing.T) {
	s, mem := newLoadedStore(t)
	ctx := context.Background()

	s.RecordAnswer(ctx, 1, true, models.DomainSecurity)
	s.UpdateSettings(ctx, progress.SettingsPatch{ShowExplanationImmediately: boolPtr(false)})
	s.ResetSettings(ctx)

	assert.Equal(t, models.DefaultSettings(), s.Settings())
	assert.Equal(t, 1, s.Progress().TotalQuestionsAnswered)

	_, err := mem.Get(ctx, storage.KeySettings)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResetProgress_ClearsHistoryAndProgressNotSettings(t *testing.T) {
	s, mem := newLoadedStore(t)
	ctx := context.Background()

	s.RecordAnswer(ctx, 1, true, models.DomainSecurity)
	s.SetBookmark(ctx, 2, true)
	s.UpdateSettings(ctx, progress.SettingsPatch{ShuffleOptions: boolPtr(false)})

	s.ResetProgress(ctx)

	assert.Empty(t, s.History())
	p := s.Progress()
	assert.Zero(t, p.TotalQuestionsAnswered)
	assert.Zero(t, p.StudyStreak)
	assert.False(t, s.Settings().ShuffleOptions, "settings survive a progress reset")

	_, err := mem.Get(ctx, storage.KeyQuestionHistory)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = mem.Get(ctx, storage.KeyUserProgress)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetDomainTotals_OnlyTouchesTotals(t *testing.T) {
	s, _ := newLoadedStore(t)
	ctx := context.Background()

	s.RecordAnswer(ctx, 1, true, models.DomainTechnology)
	s.SetDomainTotals(ctx, map[models.Domain]int{
		models.DomainTechnology: 120,
		models.Domain("bogus"):  9,
	})

	p := s.Progress()
	tech := p.DomainProgress[models.DomainTechnology]
	assert.Equal(t, 120, tech.Total)
	assert.Equal(t, 1, tech.Answered)
	assert.Equal(t, 1, tech.Correct)
	_, exists := p.DomainProgress[models.Domain("bogus")]
	assert.False(t, exists)
}

func TestRecordMockExam_FoldsScoresAndAppendsHistory(t *testing.T) {
	s, _ := newLoadedStore(t)
	ctx := context.Background()

	result := models.MockExamResult{
		ID:               "exam-1",
		Date:             time.Now(),
		Score:            40,
		TotalQuestions:   65,
		TimeSpentSeconds: 3600,
		DomainScores: map[models.Domain]models.DomainScore{
			models.DomainCloudConcepts: {Correct: 15, Total: 20},
			models.DomainTechnology:    {Correct: 25, Total: 45},
			models.Domain("mystery"):   {Correct: 1, Total: 1},
		},
	}
	s.RecordMockExam(ctx, result)

	p := s.Progress()
	require.Len(t, p.MockExamHistory, 1)
	assert.Equal(t, "exam-1", p.MockExamHistory[0].ID)
	assert.Equal(t, 65, p.TotalQuestionsAnswered)
	assert.Equal(t, 40, p.TotalCorrectAnswers)
	assert.Equal(t, 20, p.DomainProgress[models.DomainCloudConcepts].Answered)
	assert.Equal(t, 15, p.DomainProgress[models.DomainCloudConcepts].Correct)
	_, exists := p.DomainProgress[models.Domain("mystery")]
	assert.False(t, exists, "unknown exam domains are ignored, not created")

	got, err := s.MockExam("exam-1")
	require.NoError(t, err)
	assert.Equal(t, 40, got.Score)
}

func TestMockExam_UnknownIDNotFound(t *testing.T) {
	s, _ := newLoadedStore(t)

	_, err := s.MockExam("no-such-exam")
	var ae *apperrors.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperrors.ErrCodeNotFound, ae.Code)
}

func TestRecordMockExam_HistoryIsChronological(t *testing.T) {
	s, _ := newLoadedStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		s.RecordMockExam(ctx, models.MockExamResult{ID: id, TotalQuestions: 1})
	}

	history := s.Progress().MockExamHistory
	require.Len(t, history, 3)
	assert.Equal(t, "a", history[0].ID)
	assert.Equal(t, "c", history[2].ID)
}

func TestStreak_FirstAnswerStartsAtOne(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	s, _ := newLoadedStore(t, progress.WithNow(func() time.Time { return now }))

	s.RecordAnswer(context.Background(), 1, true, models.DomainSecurity)

	p := s.Progress()
	assert.Equal(t, 1, p.StudyStreak)
	require.NotNil(t, p.LastStudyDate)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), *p.LastStudyDate)
}

func TestStreak_SameDayDoesNotChange(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s, _ := newLoadedStore(t, progress.WithNow(func() time.Time { return now }))
	ctx := context.Background()

	s.RecordAnswer(ctx, 1, true, models.DomainSecurity)
	now = time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	s.RecordAnswer(ctx, 2, false, models.DomainSecurity)

	assert.Equal(t, 1, s.Progress().StudyStreak)
}

func TestStreak_ConsecutiveDayIncrements(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s, _ := newLoadedStore(t, progress.WithNow(func() time.Time { return now }))
	ctx := context.Background()

	s.RecordAnswer(ctx, 1, true, models.DomainSecurity)
	now = now.Add(24 * time.Hour)
	s.RecordAnswer(ctx, 2, true, models.DomainSecurity)

	p := s.Progress()
	assert.Equal(t, 2, p.StudyStreak)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), *p.LastStudyDate)
}

func TestStreak_GapResetsToOne(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s, _ := newLoadedStore(t, progress.WithNow(func() time.Time { return now }))
	ctx := context.Background()

	s.RecordAnswer(ctx, 1, true, models.DomainSecurity)
	now = now.Add(24 * time.Hour)
	s.RecordAnswer(ctx, 2, true, models.DomainSecurity)
	require.Equal(t, 2, s.Progress().StudyStreak)

	now = now.Add(3 * 24 * time.Hour)
	s.RecordAnswer(ctx, 3, true, models.DomainSecurity)

	assert.Equal(t, 1, s.Progress().StudyStreak)
}

func TestStreak_ExtendsAcrossSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Clocks spring forward on 2026-03-08, so midnight-to-midnight is only
	// 23 hours; the next calendar day must still extend the streak.
	now := time.Date(2026, 3, 8, 9, 0, 0, 0, loc)
	s, _ := newLoadedStore(t, progress.WithNow(func() time.Time { return now }))
	ctx := context.Background()

	s.RecordAnswer(ctx, 1, true, models.DomainSecurity)
	require.Equal(t, 1, s.Progress().StudyStreak)

	now = time.Date(2026, 3, 9, 9, 0, 0, 0, loc)
	s.RecordAnswer(ctx, 2, true, models.DomainSecurity)

	p := s.Progress()
	assert.Equal(t, 2, p.StudyStreak)
	require.NotNil(t, p.LastStudyDate)
	assert.Equal(t, 9, p.LastStudyDate.Day())
}

func TestStreak_NotRefreshedByLoad(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	first := progress.New(mem, progress.WithNow(func() time.Time { return now }))
	first.Load(ctx)
	first.RecordAnswer(ctx, 1, true, models.DomainSecurity)

	// Reloading a week later must not touch the persisted streak.
	later := now.Add(7 * 24 * time.Hour)
	second := progress.New(mem, progress.WithNow(func() time.Time { return later }))
	second.Load(ctx)

	assert.Equal(t, 1, second.Progress().StudyStreak)
}

func TestProgressSnapshot_IsDeepCopy(t *testing.T) {
	s, _ := newLoadedStore(t)
	ctx := context.Background()
	s.RecordAnswer(ctx, 1, true, models.DomainSecurity)

	snap := s.Progress()
	d := snap.DomainProgress[models.DomainSecurity]
	d.Correct = 999
	snap.DomainProgress[models.DomainSecurity] = d

	assert.Equal(t, 1, s.Progress().DomainProgress[models.DomainSecurity].Correct)
}

func TestHistoryPersistsAcrossStores(t *testing.T) {
	s, mem := newLoadedStore(t)
	ctx := context.Background()

	s.RecordAnswer(ctx, 42, true, models.DomainBillingPricing)
	s.SetBookmark(ctx, 42, true)

	fresh := progress.New(mem)
	fresh.Load(ctx)

	h := fresh.History()[42]
	assert.Equal(t, 1, h.Attempts)
	assert.Equal(t, 1, h.CorrectAttempts)
	assert.True(t, h.Bookmarked)
}
