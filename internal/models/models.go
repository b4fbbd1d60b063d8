package models

import "time"

// Question is a single multiple-choice question from the static bank.
// Questions are immutable once loaded.
type Question struct {
	ID            int        `json:"id"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correctAnswer"` // index into Options
	Explanation   string     `json:"explanation"`
	Domain        Domain     `json:"domain"`
	Difficulty    Difficulty `json:"difficulty"`
}

// QuestionHistory is the durable per-question record of attempts and
// bookmark state. Created lazily on first answer or first bookmark.
type QuestionHistory struct {
	QuestionID      int       `json:"question_id"`
	Attempts        int       `json:"attempts"`
	CorrectAttempts int       `json:"correct_attempts"` // invariant: <= Attempts
	LastAttemptDate time.Time `json:"last_attempt_date"`
	Bookmarked      bool      `json:"bookmarked"`
}

// DomainStats aggregates answered/correct counts against the bank total
// for one domain.
type DomainStats struct {
	Answered int `json:"answered"`
	Correct  int `json:"correct"` // invariant: <= Answered
	Total    int `json:"total"`   // bank composition, set independently
}

// DomainScore is the per-domain breakdown inside one mock exam result.
type DomainScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// MockExamResult records one completed or submitted mock exam. Immutable
// once created; appended to UserProgress.MockExamHistory in chronological
// order.
type MockExamResult struct {
	ID               string                 `json:"id"`
	Date             time.Time              `json:"date"`
	Score            int                    `json:"score"`
	TotalQuestions   int                    `json:"total_questions"`
	TimeSpentSeconds int                    `json:"time_spent_seconds"`
	DomainScores     map[Domain]DomainScore `json:"domain_scores"`
}

// Clone returns a deep copy of the result.
func (r MockExamResult) Clone() MockExamResult {
	out := r
	out.DomainScores = make(map[Domain]DomainScore, len(r.DomainScores))
	for d, s := range r.DomainScores {
		out.DomainScores[d] = s
	}
	return out
}

// UserProgress is the singleton aggregate of all study activity.
type UserProgress struct {
	LastStudyDate          *time.Time             `json:"last_study_date"`
	StudyStreak            int                    `json:"study_streak"` // consecutive calendar days
	TotalQuestionsAnswered int                    `json:"total_questions_answered"`
	TotalCorrectAnswers    int                    `json:"total_correct_answers"`
	DomainProgress         map[Domain]DomainStats `json:"domain_progress"`
	MockExamHistory        []MockExamResult       `json:"mock_exam_history"`
}

// Clone returns a deep copy of the progress aggregate.
func (p UserProgress) Clone() UserProgress {
	out := p
	if p.LastStudyDate != nil {
		d := *p.LastStudyDate
		out.LastStudyDate = &d
	}
	out.DomainProgress = make(map[Domain]DomainStats, len(p.DomainProgress))
	for d, s := range p.DomainProgress {
		out.DomainProgress[d] = s
	}
	out.MockExamHistory = make([]MockExamResult, 0, len(p.MockExamHistory))
	for _, r := range p.MockExamHistory {
		out.MockExamHistory = append(out.MockExamHistory, r.Clone())
	}
	return out
}

// AppSettings holds user-tunable behavior flags.
type AppSettings struct {
	ShowExplanationImmediately bool `json:"show_explanation_immediately"`
	ShuffleOptions             bool `json:"shuffle_options"`
}

// DefaultSettings returns the documented settings defaults.
func DefaultSettings() AppSettings {
	return AppSettings{
		ShowExplanationImmediately: true,
		ShuffleOptions:             true,
	}
}

// DefaultProgress returns a zeroed progress aggregate with every known
// domain pre-seeded.
func DefaultProgress() UserProgress {
	domains := make(map[Domain]DomainStats, len(AllDomains()))
	for _, d := range AllDomains() {
		domains[d] = DomainStats{}
	}
	return UserProgress{
		DomainProgress:  domains,
		MockExamHistory: []MockExamResult{},
	}
}
