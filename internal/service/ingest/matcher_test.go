package ingest

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDirectory struct {
	employee.Directory
	calls int
}

func (d *countingDirectory) FindByNormalizedName(ctx context.Context, key string) ([]employee.Employee, error) {
	d.calls++
	return d.Directory.FindByNormalizedName(ctx, key)
}

func testEmployee(id, name, site string) employee.Employee {
	return employee.Employee{
		ID:               id,
		FullName:         name,
		NormalizedName:   NormalizeName(name),
		SiteID:           site,
		EmploymentStatus: employee.EmploymentStatusActive,
	}
}

func TestMatcher_Match(t *testing.T) {
	ctx := context.Background()
	dir := &countingDirectory{Directory: memory.NewDirectory(
		testEmployee("e1", "Juan Dela Cruz", "site-a"),
		testEmployee("e2", "Maria Santos", "site-a"),
		testEmployee("e3", "Maria Santos", "site-b"),
		testEmployee("e4", "Pedro Cruz", "site-b"),
		testEmployee("e5", "Pedro Cruz", "site-c"),
	)}
	m := NewMatcher(dir, "site-a")

	tests := []struct {
		name     string
		key      string
		expected MatchResult
	}{
		{"single candidate", "juan dela cruz", MatchResult{EmployeeID: "e1", Matched: true}},
		{"upload site breaks the tie", "maria santos", MatchResult{EmployeeID: "e2", Matched: true}},
		{"ambiguous across other sites", "pedro cruz", MatchResult{Reason: UnmatchedAmbiguous}},
		{"unknown", "nobody", MatchResult{Reason: UnmatchedNotFound}},
		{"empty key", "", MatchResult{Reason: UnmatchedNotFound}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Match(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	calls := dir.calls
	_, err := m.Match(ctx, "juan dela cruz")
	require.NoError(t, err)
	assert.Equal(t, calls, dir.calls, "repeat lookups are served from the cache")
}

func TestMatcher_NoFuzzyMatching(t *testing.T) {
	m := NewMatcher(memory.NewDirectory(testEmployee("e1", "Juan Dela Cruz", "site-a")), "site-a")

	got, err := m.Match(context.Background(), NormalizeName("Juan Dela Cruz Jr"))
	require.NoError(t, err)
	assert.False(t, got.Matched)
}
