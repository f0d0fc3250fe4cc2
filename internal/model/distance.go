package model

import "time"

// FusedDistance is the per-vehicle front/rear distance produced by sensor
// fusion. A nil side means no sensor reported it. The latest FusedDistance
// supersedes the previous one by arrival order; delivery is at-least-once
// and not in-order, so sample timestamps are not the ordering authority.
type FusedDistance struct {
	VehicleID string
	Front     *float64 // meters
	Rear      *float64 // meters
	Timestamp time.Time
}

// VelocityEstimate is the signed rate of change of distance per side,
// derived from the two most recent fused samples. Negative means the gap is
// shrinking (closing). Nil until two samples exist for that side with a
// positive time delta.
type VelocityEstimate struct {
	FrontMps *float64
	RearMps  *float64
}

// DecisionResult is the outcome of one rule evaluation. It is consumed
// immediately by the brake coordinator and never persisted.
type DecisionResult struct {
	VehicleID string
	Triggered bool
	Reason    string
	Distance  *float64
	Rate      *float64
}

// Decision reasons, first match wins in rule order.
const (
	ReasonCriticalNear = "critical-near"
	ReasonWarningNear  = "warning-near"
	ReasonDeviation    = "deviation"
)
