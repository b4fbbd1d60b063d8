// Package bank loads and validates the static question bank. The bank is
// read-only after load; sessions receive copies of its contents.
package bank

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"certprep/internal/errors"
	"certprep/internal/logger"
	"certprep/internal/models"
)

// Bank holds the validated question collection.
type Bank struct {
	questions []models.Question
	byID      map[int]models.Question
}

// Load reads the question bank from a JSON file at path.
func Load(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question bank: %w", err)
	}
	defer f.Close()
	return LoadReader(f)
}

// LoadReader parses a JSON array of questions from r. Questions that fail
// validation are skipped with a warning; the rest of the bank still loads.
func LoadReader(r io.Reader) (*Bank, error) {
	log := logger.Default().WithPrefix("bank")

	var raw []models.Question
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}

	b := &Bank{byID: make(map[int]models.Question, len(raw))}
	for _, q := range raw {
		if err := validate(q); err != nil {
			log.Warn("skipping question %d: %v", q.ID, err)
			continue
		}
		if _, dup := b.byID[q.ID]; dup {
			log.Warn("skipping duplicate question id %d", q.ID)
			continue
		}
		b.byID[q.ID] = q
		b.questions = append(b.questions, q)
	}

	log.Info("question bank loaded: %d questions across %d domains", len(b.questions), len(b.DomainCounts()))
	return b, nil
}

func validate(q models.Question) error {
	if len(q.Options) < 2 {
		return errors.NewValidationError("options", fmt.Sprintf("need at least 2 choices, got %d", len(q.Options)))
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return errors.NewValidationError("correctAnswer", fmt.Sprintf("index %d out of range for %d options", q.CorrectAnswer, len(q.Options)))
	}
	if !q.Domain.Valid() {
		return errors.NewValidationError("domain", fmt.Sprintf("unknown domain %q", q.Domain))
	}
	if !q.Difficulty.Valid() {
		return errors.NewValidationError("difficulty", fmt.Sprintf("unknown difficulty %q", q.Difficulty))
	}
	return nil
}

// Questions returns a copy of the full question sequence in load order.
func (b *Bank) Questions() []models.Question {
	return append([]models.Question(nil), b.questions...)
}

// Get returns the question with the given id.
func (b *Bank) Get(id int) (models.Question, bool) {
	q, ok := b.byID[id]
	return q, ok
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int {
	return len(b.questions)
}

// DomainCounts returns how many questions each domain contributes.
func (b *Bank) DomainCounts() map[models.Domain]int {
	counts := make(map[models.Domain]int)
	for _, q := range b.questions {
		counts[q.Domain]++
	}
	return counts
}
