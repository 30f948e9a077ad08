package queue

import (
	"mixdown/internal/services"
)

// ErrConflict is returned when a guarded transition matched zero rows,
// meaning another actor changed the job first.
var ErrConflict = services.ErrConflict

// ErrNotFound is returned when a job, artifact, or record does not exist.
var ErrNotFound = services.ErrNotFound
