// Package memory holds mutex-guarded, in-process implementations of the
// repository interfaces. Service tests run against it.
package memory

import (
	"context"
	"time"
)

// Transactor runs fn directly. Each repository guards itself; there is no rollback.
type Transactor struct{}

func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var now = time.Now

func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
