// Package selector derives the ordered question sequence for a study mode
// from the bank and a history snapshot. Derivation is pure: no side effects,
// no persistence, and randomness comes from an injected source.
package selector

import (
	"math/rand"
	"time"

	"certprep/internal/models"
)

// Mode selects which subset of the bank a session runs through.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeDomain     Mode = "domain"
	ModeFull       Mode = "full"
	ModeBookmarked Mode = "bookmarked"
	ModeIncorrect  Mode = "incorrect"
)

// SampleSize caps the practice modes that draw a random subset.
const SampleSize = 10

// Params describes one derivation request.
type Params struct {
	Mode       Mode
	Domain     models.Domain // domain mode only
	QuestionID int           // single mode; 0 means "sample instead"
	Shuffle    bool          // full mode: randomize question order
}

// Derive returns the question sequence for the given params. An empty
// result is a valid outcome (no bookmarks yet, unknown domain, missing id),
// never an error. rng may be nil for a time-seeded source.
func Derive(questions []models.Question, history map[int]models.QuestionHistory, p Params, rng *rand.Rand) []models.Question {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	switch p.Mode {
	case ModeSingle:
		if p.QuestionID != 0 {
			for _, q := range questions {
				if q.ID == p.QuestionID {
					return []models.Question{q}
				}
			}
			return nil
		}
		return sample(questions, SampleSize, rng)

	case ModeDomain:
		if !p.Domain.Valid() {
			return nil
		}
		var filtered []models.Question
		for _, q := range questions {
			if q.Domain == p.Domain {
				filtered = append(filtered, q)
			}
		}
		return sample(filtered, SampleSize, rng)

	case ModeFull:
		out := append([]models.Question(nil), questions...)
		if p.Shuffle {
			rng.Shuffle(len(out), func(i, j int) {
				out[i], out[j] = out[j], out[i]
			})
		}
		return out

	case ModeBookmarked:
		var out []models.Question
		for _, q := range questions {
			if history[q.ID].Bookmarked {
				out = append(out, q)
			}
		}
		return out

	case ModeIncorrect:
		var out []models.Question
		for _, q := range questions {
			if rec, ok := history[q.ID]; ok && rec.Attempts > 0 && rec.CorrectAttempts < rec.Attempts {
				out = append(out, q)
			}
		}
		return out
	}

	return nil
}

// sample draws up to n questions uniformly at random without replacement.
func sample(questions []models.Question, n int, rng *rand.Rand) []models.Question {
	out := append([]models.Question(nil), questions...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Presentation is the per-display ordering of one question's options.
// Order[i] holds the original option index shown at position i, so scoring
// always maps a displayed choice back to the bank's correct-answer index.
type Presentation struct {
	Order   []int
	Correct int // display position of the correct answer
}

// Present computes the option ordering for one question. With shuffle off
// the ordering is the identity.
func Present(q models.Question, shuffle bool, rng *rand.Rand) Presentation {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	order := make([]int, len(q.Options))
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	p := Presentation{Order: order}
	for pos, orig := range order {
		if orig == q.CorrectAnswer {
			p.Correct = pos
			break
		}
	}
	return p
}

// OriginalIndex maps a displayed option position back to the bank index.
func (p Presentation) OriginalIndex(displayed int) int {
	return p.Order[displayed]
}

// DisplayOptions returns the option texts in presentation order.
func (p Presentation) DisplayOptions(q models.Question) []string {
	out := make([]string, len(p.Order))
	for pos, orig := range p.Order {
		out[pos] = q.Options[orig]
	}
	return out
}
