package domain

import "time"

// AlertType classifies machine alerts.
type AlertType string

const (
	AlertTypeMaintenance    AlertType = "MAINTENANCE"
	AlertTypeMachineFailure AlertType = "MACHINE_FAILURE"
)

func (t AlertType) String() string { return string(t) }

func (t AlertType) IsValid() bool {
	return t == AlertTypeMaintenance || t == AlertTypeMachineFailure
}

// AlertSeverity ranks alert urgency.
type AlertSeverity string

const (
	AlertSeverityHigh   AlertSeverity = "HIGH"
	AlertSeverityMedium AlertSeverity = "MEDIUM"
	AlertSeverityLow    AlertSeverity = "LOW"
)

func (s AlertSeverity) String() string { return string(s) }

// Alert is a machine condition notification. MAINTENANCE alerts are
// deduplicated: at most one unresolved alert per machine may exist at a time.
// MACHINE_FAILURE alerts always fire; a new failure event is never suppressed.
type Alert struct {
	ID          string
	Type        AlertType
	Severity    AlertSeverity
	MachineID   string
	MachineName string
	Message     string
	Resolved    bool
	CreatedAt   time.Time
}
