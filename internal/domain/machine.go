package domain

import (
	"fmt"
	"strings"
	"time"
)

// MachineStatus represents the operational state of a machine.
type MachineStatus string

const (
	MachineStatusAvailable MachineStatus = "AVAILABLE"
	MachineStatusRunning   MachineStatus = "RUNNING"
	MachineStatusPaused    MachineStatus = "PAUSED"
	MachineStatusError     MachineStatus = "ERROR"
)

func (s MachineStatus) String() string { return string(s) }

func (s MachineStatus) IsValid() bool {
	switch s {
	case MachineStatusAvailable, MachineStatusRunning, MachineStatusPaused, MachineStatusError:
		return true
	}
	return false
}

func ParseMachineStatusFromString(s string) (MachineStatus, error) {
	st := MachineStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid machine status %q", ErrValidation, s)
	}
	return st, nil
}

// maintenanceInterval is the fixed gap between maintenance dates.
const maintenanceIntervalMonths = 3

// Machine is a physical production machine. Status alone does not prove the
// machine is free for a new batch; callers must also verify that no active
// batch references it.
type Machine struct {
	ID                  string
	Name                string
	ManufactureDate     time.Time
	LastMaintenanceDate *time.Time
	NextMaintenanceDue  *time.Time
	Status              MachineStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (m *Machine) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: machine name is required", ErrValidation)
	}
	if m.ManufactureDate.IsZero() {
		return fmt.Errorf("%w: manufacture date is required", ErrValidation)
	}
	return nil
}

// RecomputeMaintenanceDue derives the next due date from the last
// maintenance date. Must be called whenever the maintenance date changes.
func (m *Machine) RecomputeMaintenanceDue() {
	if m.LastMaintenanceDate == nil {
		m.NextMaintenanceDue = nil
		return
	}
	due := m.LastMaintenanceDate.AddDate(0, maintenanceIntervalMonths, 0)
	m.NextMaintenanceDue = &due
}

// MaintenanceDue reports whether maintenance is due on or before today.
func (m *Machine) MaintenanceDue(today time.Time) bool {
	return m.NextMaintenanceDue != nil && !m.NextMaintenanceDue.After(today)
}
