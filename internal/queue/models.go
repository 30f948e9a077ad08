package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a mixing job.
type Status string

const (
	// Standard lane.
	StatusUploaded   Status = "uploaded"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"

	// Extended editing lane.
	StatusPrepping  Status = "prepping"
	StatusPrepReady Status = "prep_ready"
	StatusAIMixing  Status = "ai_mixing"
	StatusAIOk      Status = "ai_ok"
	StatusEditing   Status = "editing"
	StatusMastering Status = "mastering"
	StatusRendering Status = "rendering"
	StatusComplete  Status = "complete"

	// Absorbing failure state for both lanes.
	StatusFailed Status = "failed"
)

var allStatuses = []Status{
	StatusUploaded,
	StatusPaid,
	StatusProcessing,
	StatusDone,
	StatusPrepping,
	StatusPrepReady,
	StatusAIMixing,
	StatusAIOk,
	StatusEditing,
	StatusMastering,
	StatusRendering,
	StatusComplete,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := statusSet[status]
	return status, ok
}

// IsTerminal reports whether a status can never change again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusComplete, StatusFailed:
		return true
	}
	return false
}

// InFlight reports whether a worker owns the job in this status.
func (s Status) InFlight() bool {
	_, ok := inFlightRestart[s]
	return ok
}

// inFlightRestart maps each worker-owned status to the status a stale job
// returns to when its lease expires.
var inFlightRestart = map[Status]Status{
	StatusProcessing: StatusPaid,
	StatusPrepping:   StatusUploaded,
	StatusAIMixing:   StatusPrepReady,
	StatusMastering:  StatusEditing,
	StatusRendering:  StatusEditing,
}

// leasableStatuses are the statuses the worker loop picks up, oldest first.
var leasableStatuses = []Status{
	StatusPaid,
	StatusProcessing,
	StatusPrepping,
	StatusAIMixing,
	StatusMastering,
}

// InstPolicy controls instrumental-chain handling during mixing.
type InstPolicy string

const (
	InstPolicyBypass InstPolicy = "bypass"
	InstPolicySafety InstPolicy = "safety"
	InstPolicyRescue InstPolicy = "rescue"
)

// ParseInstPolicy validates a raw policy string, defaulting to safety.
func ParseInstPolicy(raw string) InstPolicy {
	switch InstPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case InstPolicyBypass:
		return InstPolicyBypass
	case InstPolicyRescue:
		return InstPolicyRescue
	default:
		return InstPolicySafety
	}
}

// Job is a mixing job persisted in SQLite.
type Job struct {
	ID               string
	OwnerID          string
	PlanCode         string
	Status           Status
	InstrumentalPath string
	VocalPath        string
	ResultPath       string
	PresetKey        string
	InstPolicy       InstPolicy
	MicroAdjustJSON  string
	OffsetMS         int
	TempoRatio       float64
	TargetLUFS       float64
	MeasuredLUFS     float64
	TruePeak         float64
	PrepArtifactID   string
	AIOkArtifactID   string
	FinalArtifactID  string
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ArtifactKind names the three artifact classes a job can own.
type ArtifactKind string

const (
	ArtifactPrep  ArtifactKind = "prep"
	ArtifactAIOk  ArtifactKind = "ai_ok"
	ArtifactFinal ArtifactKind = "final"
)

// Artifact is a rendered intermediate or final output with a lifetime.
type Artifact struct {
	ID          string
	JobID       string
	Kind        ArtifactKind
	StoragePath string
	ExpiresAt   time.Time
	MetaJSON    string
	CreatedAt   time.Time
}

// Expired reports whether the artifact's lifetime has passed at the given instant.
func (a *Artifact) Expired(now time.Time) bool {
	return !a.ExpiresAt.After(now)
}

// IdempotencyStatus is the state of a stored idempotency key.
type IdempotencyStatus string

const (
	IdempotencyProcessing IdempotencyStatus = "processing"
	IdempotencyCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord stores one guarded operation's state and replay bytes.
type IdempotencyRecord struct {
	Key       string
	Status    IdempotencyStatus
	Response  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentEvent is a processed webhook event, keyed by the gateway's event id.
type PaymentEvent struct {
	EventID     string
	Type        string
	JobID       string
	ProcessedAt time.Time
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total    int
	Waiting  int
	InFlight int
	Failed   int
	Finished int
}
