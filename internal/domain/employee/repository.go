package employee

import "context"

// Directory resolves device-reported names to employees. Lookups are exact on
// the normalized key; several candidates are returned only when the same
// normalized name exists at more than one site. Inactive employees are never
// returned, so their old device names fall out as unmatched.
type Directory interface {
	FindByNormalizedName(ctx context.Context, normalizedName string) ([]Employee, error)
	GetByID(ctx context.Context, id string) (Employee, error)
}
