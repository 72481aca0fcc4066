package domain

import "time"

// DeadlineSource names the field a deadline candidate came from.
type DeadlineSource string

const (
	SourceMarketEndDate           DeadlineSource = "market.endDate"
	SourceEventEndDate            DeadlineSource = "event.endDate"
	SourceConditionResolutionTime DeadlineSource = "condition.resolutionTime"
)

// DeadlineCandidate is one parsed deadline. At is always in UTC.
type DeadlineCandidate struct {
	Source DeadlineSource
	At     time.Time
}

// Status is the classification of a record at a given instant.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusUndated Status = "undated"
)

// Urgency is a coarse label derived from the hours left before a deadline.
type Urgency string

const (
	UrgencyCritical Urgency = "critical" // under 1 hour
	UrgencyUrgent   Urgency = "urgent"   // under 24 hours
	UrgencySoon     Urgency = "soon"     // under 7 days
	UrgencyNormal   Urgency = "normal"
)

// ResolvedMarket is a record together with its chosen deadline, evaluated at
// one instant. HoursRemaining is negative for expired records.
type ResolvedMarket struct {
	Record         RawMarket
	Deadline       DeadlineCandidate
	HoursRemaining float64
}
