package pointers

import (
	"time"

	"github.com/google/uuid"
)

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T { return &v }

func Float64(v float64) *float64 { return &v }
func Int(v int) *int             { return &v }
func String(v string) *string    { return &v }

func UUID(v uuid.UUID) *uuid.UUID { return &v }

// UTC returns a pointer to v normalised to UTC, or nil for nil.
func UTC(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := v.UTC()
	return &t
}
