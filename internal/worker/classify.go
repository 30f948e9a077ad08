package worker

import (
	"errors"
	"strings"

	"mixdown/internal/services"
)

// failureClass decides what happens after a stage error.
type failureClass int

const (
	// failTemporary errors are retried with backoff until attempts run out.
	failTemporary failureClass = iota
	// failPermanent errors fail the job immediately; retrying the same
	// inputs cannot change the outcome.
	failPermanent
)

// permanentSignatures are message fragments that mean the inputs themselves
// are broken.
var permanentSignatures = []string{
	"enoent",
	"invalid file",
	"ffmpeg rejected",
	"no audio stream",
	"not a valid wav",
}

// temporarySignatures are message fragments pointing at infrastructure
// weather rather than the job.
var temporarySignatures = []string{
	"econnrefused",
	"enotfound",
	"etimedout",
	"timeout",
	"timed out",
	"network",
	"connection",
	"ebusy",
	"emfile",
	"enfile",
}

// classify maps a stage error to its failure class. Error markers win over
// message sniffing; unknown errors default to temporary so a transient blip
// never permanently kills a paid job.
func classify(err error) failureClass {
	switch {
	case errors.Is(err, services.ErrPermanent),
		errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrNotFound):
		return failPermanent
	case errors.Is(err, services.ErrTransient),
		errors.Is(err, services.ErrTimeout),
		errors.Is(err, services.ErrRateLimited),
		errors.Is(err, services.ErrExternalTool):
		return failTemporary
	}

	message := strings.ToLower(err.Error())
	for _, signature := range permanentSignatures {
		if strings.Contains(message, signature) {
			return failPermanent
		}
	}
	for _, signature := range temporarySignatures {
		if strings.Contains(message, signature) {
			return failTemporary
		}
	}
	return failTemporary
}
