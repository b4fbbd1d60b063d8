package models

// Domain identifies one of the fixed exam topic categories. The set is
// closed: unknown keys must be handled explicitly by callers, never
// propagated as empty display strings.
type Domain string

const (
	DomainCloudConcepts  Domain = "cloud-concepts"
	DomainTechnology     Domain = "technology"
	DomainSecurity       Domain = "security"
	DomainBillingPricing Domain = "billing-pricing"
)

// AllDomains returns every known domain in display order.
func AllDomains() []Domain {
	return []Domain{
		DomainCloudConcepts,
		DomainTechnology,
		DomainSecurity,
		DomainBillingPricing,
	}
}

// ParseDomain maps a raw key to a Domain. The second return is false for
// unknown keys.
func ParseDomain(s string) (Domain, bool) {
	switch Domain(s) {
	case DomainCloudConcepts, DomainTechnology, DomainSecurity, DomainBillingPricing:
		return Domain(s), true
	}
	return "", false
}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	_, ok := ParseDomain(string(d))
	return ok
}

// DisplayName returns the human-readable name for the domain.
func (d Domain) DisplayName() string {
	switch d {
	case DomainCloudConcepts:
		return "Cloud Concepts"
	case DomainTechnology:
		return "Technology"
	case DomainSecurity:
		return "Security and Compliance"
	case DomainBillingPricing:
		return "Billing and Pricing"
	default:
		return "Unknown"
	}
}

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}
