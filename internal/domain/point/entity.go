package point

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeTardy          Type = "tardy"
	TypeUndertime      Type = "undertime"
	TypeTardyUndertime Type = "tardy_undertime"
	TypeNoCallNoShow   Type = "no_call_no_show"
	TypeFailedBioIn    Type = "failed_bio_in"
	TypeFailedBioOut   Type = "failed_bio_out"
	TypeOther          Type = "other" // manual only
)

var TypeValues = []string{
	string(TypeTardy),
	string(TypeUndertime),
	string(TypeTardyUndertime),
	string(TypeNoCallNoShow),
	string(TypeFailedBioIn),
	string(TypeFailedBioOut),
	string(TypeOther),
}

// Point is a disciplinary attendance point. System points are derived from
// exactly one attendance record; manual points are entered by an administrator.
type Point struct {
	ID                 string
	EmployeeID         string
	AttendanceRecordID *string
	PointType          Type
	Points             decimal.Decimal
	ShiftDate          time.Time
	IsManual           bool
	ExpiresAt          time.Time
	IsExcused          bool
	ExcusedBy          *string
	ExcuseReason       *string
	ExcusedAt          *time.Time
	CreatedBy          *string
	Notes              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsExpired is evaluated at read time, never stored.
func (p Point) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// IsGBROEligible reports whether the point can still be cleared by a
// good-behavior roll-off.
func (p Point) IsGBROEligible(now time.Time, policy Policy) bool {
	return policy.IsGBROType(p.PointType) && !p.IsExcused && !p.IsExpired(now)
}

// Policy holds the point value table and expiry rules.
type Policy struct {
	Values       map[Type]decimal.Decimal
	ExpiryDays   int
	GBROEligible []Type
}

func DefaultPolicy() Policy {
	return Policy{
		Values: map[Type]decimal.Decimal{
			TypeTardy:          decimal.RequireFromString("0.5"),
			TypeUndertime:      decimal.RequireFromString("0.5"),
			TypeTardyUndertime: decimal.NewFromInt(1),
			TypeNoCallNoShow:   decimal.NewFromInt(1),
			TypeFailedBioIn:    decimal.Zero,
			TypeFailedBioOut:   decimal.Zero,
		},
		ExpiryDays:   90,
		GBROEligible: []Type{TypeTardy, TypeUndertime, TypeTardyUndertime},
	}
}

// Value returns the configured value of t; zero means t is not point-bearing.
func (p Policy) Value(t Type) decimal.Decimal {
	if v, ok := p.Values[t]; ok {
		return v
	}
	return decimal.Zero
}

func (p Policy) IsGBROType(t Type) bool {
	return slices.Contains(p.GBROEligible, t)
}

// ExpiresAt is midnight of shiftDate plus ExpiryDays, in shiftDate's location.
func (p Policy) ExpiresAt(shiftDate time.Time) time.Time {
	return time.Date(shiftDate.Year(), shiftDate.Month(), shiftDate.Day()+p.ExpiryDays, 0, 0, 0, 0, shiftDate.Location())
}

// Statistics aggregates an employee's points over a shift-date range at a given instant.
type Statistics struct {
	EmployeeID        string
	TotalPoints       decimal.Decimal
	ActivePoints      decimal.Decimal
	ExpiredPoints     decimal.Decimal
	ExcusedPoints     decimal.Decimal
	TotalCount        int
	ActiveCount       int
	ExpiredCount      int
	ExcusedCount      int
	CountByType       map[Type]int
	GBROEligibleCount int
}

// SyncOutcome is what syncing a record's system point did.
type SyncOutcome string

const (
	SyncNone      SyncOutcome = "none"
	SyncCreated   SyncOutcome = "created"
	SyncUpdated   SyncOutcome = "updated"
	SyncUnchanged SyncOutcome = "unchanged"
	SyncRemoved   SyncOutcome = "removed"
)
