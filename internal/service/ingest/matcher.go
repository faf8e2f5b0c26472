package ingest

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
)

const (
	UnmatchedNotFound  = "not_found"
	UnmatchedAmbiguous = "ambiguous"
)

type MatchResult struct {
	EmployeeID string
	Matched    bool
	Reason     string
}

// Matcher resolves normalized device names to employees for one upload.
// Results are cached for the lifetime of the matcher.
type Matcher struct {
	directory employee.Directory
	siteID    string
	cache     map[string]MatchResult
}

func NewMatcher(directory employee.Directory, siteID string) *Matcher {
	return &Matcher{
		directory: directory,
		siteID:    siteID,
		cache:     make(map[string]MatchResult),
	}
}

// Match looks up key exactly. Several candidates are narrowed to the
// upload's site; anything still ambiguous stays unmatched.
func (m *Matcher) Match(ctx context.Context, key string) (MatchResult, error) {
	if r, ok := m.cache[key]; ok {
		return r, nil
	}
	if key == "" {
		return MatchResult{Reason: UnmatchedNotFound}, nil
	}

	candidates, err := m.directory.FindByNormalizedName(ctx, key)
	if err != nil {
		return MatchResult{}, fmt.Errorf("find employee %q: %w", key, err)
	}

	var result MatchResult
	switch len(candidates) {
	case 0:
		result = MatchResult{Reason: UnmatchedNotFound}
	case 1:
		result = MatchResult{EmployeeID: candidates[0].ID, Matched: true}
	default:
		var atSite []employee.Employee
		for _, c := range candidates {
			if c.SiteID == m.siteID {
				atSite = append(atSite, c)
			}
		}
		if len(atSite) == 1 {
			result = MatchResult{EmployeeID: atSite[0].ID, Matched: true}
		} else {
			result = MatchResult{Reason: UnmatchedAmbiguous}
		}
	}

	m.cache[key] = result
	return result, nil
}
