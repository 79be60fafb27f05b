package model

import "fmt"

// SortPolicy orders sibling comments
type SortPolicy int

const (
	SortScoreDesc SortPolicy = iota
	SortCreationDesc
	SortCreationAsc
)

// SortPolicies lists every policy in the order the selector cycles through them
var SortPolicies = []SortPolicy{SortScoreDesc, SortCreationDesc, SortCreationAsc}

// ParseSortPolicy converts the server's defaultSortPolicy value.
func ParseSortPolicy(s string) (SortPolicy, error) {
	switch s {
	case "score-desc", "":
		return SortScoreDesc, nil
	case "creationdate-desc":
		return SortCreationDesc, nil
	case "creationdate-asc":
		return SortCreationAsc, nil
	}
	return SortScoreDesc, fmt.Errorf("unknown sort policy %q", s)
}

func (p SortPolicy) String() string {
	switch p {
	case SortCreationDesc:
		return "creationdate-desc"
	case SortCreationAsc:
		return "creationdate-asc"
	default:
		return "score-desc"
	}
}

// Label is the short human-readable name shown in the selector
func (p SortPolicy) Label() string {
	switch p {
	case SortCreationDesc:
		return "Newest"
	case SortCreationAsc:
		return "Oldest"
	default:
		return "Upvotes"
	}
}

// Next returns the policy after p in SortPolicies, wrapping around
func (p SortPolicy) Next() SortPolicy {
	for i, sp := range SortPolicies {
		if sp == p {
			return SortPolicies[(i+1)%len(SortPolicies)]
		}
	}
	return SortScoreDesc
}
