package beds

import (
	"errors"
	"fmt"

	"github.com/hackgods/ward-dashboard/internal/hospital"
)

var (
	ErrBedNotFound        = errors.New("bed not found")
	ErrBedOccupied        = errors.New("bed already has a patient")
	ErrBedNotOccupied     = errors.New("bed has no patient to discharge")
	ErrInvalidTransition  = errors.New("invalid bed status transition")
	ErrNoOpenDialog       = errors.New("no assignment dialog open for bed")
	ErrPatientUnavailable = errors.New("patient is not available for assignment")
	ErrSubmissionInFlight = errors.New("a submission for this bed is already in progress")
	ErrLockNotAcquired    = errors.New("bed lock not acquired")
)

// Action is something the view may offer for a bed.
type Action string

const (
	ActionAssign         Action = "assign"
	ActionDischarge      Action = "discharge"
	ActionSetMaintenance Action = "set_maintenance"
	ActionReserve        Action = "reserve"
	ActionSetAvailable   Action = "set_available"
)

// AllowedActions lists what the view exposes for b. Occupied beds only offer
// discharge, so a bed can never go straight from Occupied to Maintenance.
func AllowedActions(b hospital.Bed) []Action {
	if b.Patient != nil {
		return []Action{ActionDischarge}
	}
	switch b.Status {
	case hospital.BedAvailable:
		return []Action{ActionAssign, ActionSetMaintenance, ActionReserve}
	case hospital.BedReserved:
		return []Action{ActionAssign, ActionSetAvailable}
	case hospital.BedMaintenance:
		return []Action{ActionSetAvailable}
	}
	return []Action{}
}

func CanAssign(b hospital.Bed) error {
	if b.Patient != nil || b.Status == hospital.BedOccupied {
		return fmt.Errorf("bed %s: %w", b.ID, ErrBedOccupied)
	}
	if b.Status != hospital.BedAvailable && b.Status != hospital.BedReserved {
		return fmt.Errorf("bed %s is %s: %w", b.ID, b.Status, ErrInvalidTransition)
	}
	return nil
}

func CanDischarge(b hospital.Bed) error {
	if b.Status != hospital.BedOccupied || b.Patient == nil {
		return fmt.Errorf("bed %s: %w", b.ID, ErrBedNotOccupied)
	}
	return nil
}

// statusTransitions are the moves reachable through an explicit status toggle.
// Occupied is entered and left only through assign and discharge.
var statusTransitions = map[hospital.BedStatus][]hospital.BedStatus{
	hospital.BedAvailable:   {hospital.BedMaintenance, hospital.BedReserved},
	hospital.BedMaintenance: {hospital.BedAvailable},
	hospital.BedReserved:    {hospital.BedAvailable},
}

func ValidateTransition(b hospital.Bed, to hospital.BedStatus) error {
	if b.Patient == nil {
		for _, allowed := range statusTransitions[b.Status] {
			if allowed == to {
				return nil
			}
		}
	}
	return fmt.Errorf("bed %s: %s -> %s: %w", b.ID, b.Status, to, ErrInvalidTransition)
}
