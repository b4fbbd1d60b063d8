// Package stats derives read-only aggregates from progress snapshots for
// display. No mutation, no persistence.
package stats

import (
	"certprep/internal/exam"
	"certprep/internal/models"
)

// DomainSummary is the per-domain progress breakdown.
type DomainSummary struct {
	Domain      models.Domain
	DisplayName string
	Answered    int
	Correct     int
	Total       int
	Accuracy    float64 // correct/answered, 0 when unanswered
	Coverage    float64 // answered/total, 0 when total unknown
}

// Summary aggregates everything the statistics view shows.
type Summary struct {
	TotalAnswered  int
	TotalCorrect   int
	Accuracy       float64
	StudyStreak    int
	UniqueAnswered int // distinct questions attempted at least once
	Bookmarked     int
	Domains        []DomainSummary
	ExamCount      int
	BestExamScore  int
	LatestExam     *models.MockExamResult
	ExamPassRate   float64 // share of exams at or above the pass threshold
}

// Summarize computes display aggregates from a progress snapshot and a
// history snapshot.
func Summarize(p models.UserProgress, history map[int]models.QuestionHistory) Summary {
	s := Summary{
		TotalAnswered: p.TotalQuestionsAnswered,
		TotalCorrect:  p.TotalCorrectAnswers,
		StudyStreak:   p.StudyStreak,
	}
	if s.TotalAnswered > 0 {
		s.Accuracy = float64(s.TotalCorrect) / float64(s.TotalAnswered)
	}

	for _, h := range history {
		if h.Attempts > 0 {
			s.UniqueAnswered++
		}
		if h.Bookmarked {
			s.Bookmarked++
		}
	}

	for _, d := range models.AllDomains() {
		dp := p.DomainProgress[d]
		ds := DomainSummary{
			Domain:      d,
			DisplayName: d.DisplayName(),
			Answered:    dp.Answered,
			Correct:     dp.Correct,
			Total:       dp.Total,
		}
		if dp.Answered > 0 {
			ds.Accuracy = float64(dp.Correct) / float64(dp.Answered)
		}
		if dp.Total > 0 {
			ds.Coverage = float64(dp.Answered) / float64(dp.Total)
		}
		s.Domains = append(s.Domains, ds)
	}

	s.ExamCount = len(p.MockExamHistory)
	passed := 0
	for i := range p.MockExamHistory {
		r := p.MockExamHistory[i]
		if r.Score > s.BestExamScore {
			s.BestExamScore = r.Score
		}
		if r.TotalQuestions > 0 && float64(r.Score)/float64(r.TotalQuestions) >= exam.PassThreshold {
			passed++
		}
	}
	if s.ExamCount > 0 {
		latest := p.MockExamHistory[s.ExamCount-1].Clone()
		s.LatestExam = &latest
		s.ExamPassRate = float64(passed) / float64(s.ExamCount)
	}

	return s
}
