package domain

// AnomalyKind classifies data problems that are corrected, not rejected
type AnomalyKind string

const (
	AnomalyNegativeHours  AnomalyKind = "NEGATIVE_HOURS"
	AnomalyExcessiveHours AnomalyKind = "EXCESSIVE_HOURS"
	AnomalyAmbiguousRate  AnomalyKind = "AMBIGUOUS_RATE"
)

// Anomaly is a data-integrity finding attached to a computed day
type Anomaly struct {
	Kind    AnomalyKind `json:"kind"`
	Message string      `json:"message"`
}
