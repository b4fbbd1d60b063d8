package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"certprep/internal/models"
	"certprep/internal/storage"
)

// NewTestStore creates an in-memory SQLite-backed storage for tests.
func NewTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	st, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})
	return st
}

// SampleQuestions returns a small fixed bank covering every domain, two
// questions each, with known correct answers.
func SampleQuestions() []models.Question {
	return []models.Question{
		{
			ID:            1,
			Question:      "Which pillar of the shared responsibility model belongs to the provider?",
			Options:       []string{"Security of the cloud", "Security in the cloud", "IAM policy authoring"},
			CorrectAnswer: 0,
			Explanation:   "The provider secures the infrastructure; customers secure what they run on it.",
			Domain:        models.DomainCloudConcepts,
			Difficulty:    models.DifficultyEasy,
		},
		{
			ID:            2,
			Question:      "What is elasticity?",
			Options:       []string{"Fixed capacity planning", "Automatic scaling with demand"},
			CorrectAnswer: 1,
			Explanation:   "Elastic resources grow and shrink with load.",
			Domain:        models.DomainCloudConcepts,
			Difficulty:    models.DifficultyEasy,
		},
		{
			ID:            3,
			Question:      "Which service class runs code without managing servers?",
			Options:       []string{"Block storage", "Serverless functions", "Dedicated hosts"},
			CorrectAnswer: 1,
			Explanation:   "Function-as-a-service abstracts the underlying compute entirely.",
			Domain:        models.DomainTechnology,
			Difficulty:    models.DifficultyMedium,
		},
		{
			ID:            4,
			Question:      "Object storage is best suited for which data shape?",
			Options:       []string{"Unstructured blobs", "Relational rows"},
			CorrectAnswer: 0,
			Explanation:   "Object stores hold immutable blobs addressed by key.",
			Domain:        models.DomainTechnology,
			Difficulty:    models.DifficultyEasy,
		},
		{
			ID:            5,
			Question:      "Which control enforces least privilege?",
			Options:       []string{"Broad admin roles", "Scoped IAM policies", "Shared credentials"},
			CorrectAnswer: 1,
			Explanation:   "Scoped policies grant only the permissions a task needs.",
			Domain:        models.DomainSecurity,
			Difficulty:    models.DifficultyMedium,
		},
		{
			ID:            6,
			Question:      "Encryption at rest protects against what?",
			Options:       []string{"Network sniffing", "Physical media theft"},
			CorrectAnswer: 1,
			Explanation:   "Data on stolen disks stays unreadable without the keys.",
			Domain:        models.DomainSecurity,
			Difficulty:    models.DifficultyHard,
		},
		{
			ID:            7,
			Question:      "Which pricing model charges only for what you use?",
			Options:       []string{"Pay-as-you-go", "Upfront licensing"},
			CorrectAnswer: 0,
			Explanation:   "Usage-based billing is the cloud's default model.",
			Domain:        models.DomainBillingPricing,
			Difficulty:    models.DifficultyEasy,
		},
		{
			ID:            8,
			Question:      "What do reserved instances trade for a discount?",
			Options:       []string{"Commitment over time", "Higher on-demand rates", "Fewer regions"},
			CorrectAnswer: 0,
			Explanation:   "Committing to one or three years lowers the hourly rate.",
			Domain:        models.DomainBillingPricing,
			Difficulty:    models.DifficultyMedium,
		},
	}
}
