package mobilitygoal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mobility/mobility/internal/domain/prescription"
	"github.com/mobility/mobility/internal/platform/db"
)

// ErrNoStoredGoals is returned when a patient has no active goals to seed
// a session from.
var ErrNoStoredGoals = errors.New("no stored mobility goals for patient")

// maxActiveGoals bounds the active-goal lookup; a commit writes one goal
// per prescription field.
const maxActiveGoals = 50

type Service struct {
	goals Repository
	tx    db.TxRunner
}

func NewService(goals Repository, tx db.TxRunner) *Service {
	return &Service{goals: goals, tx: tx}
}

// Commit is a finalized prescription handed over by a session.
type Commit struct {
	PatientID    string
	SessionID    uuid.UUID
	SetBy        string
	Entries      []prescription.GoalEntry
	Acknowledged bool
}

// CommitPrescription supersedes the patient's active goals and stores the
// new entries, all in one transaction.
func (s *Service) CommitPrescription(ctx context.Context, c Commit) ([]*MobilityGoal, error) {
	if c.PatientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}
	if len(c.Entries) == 0 {
		return nil, fmt.Errorf("at least one goal entry is required")
	}
	for _, e := range c.Entries {
		if !e.Type.Valid() {
			return nil, fmt.Errorf("invalid goal type: %s", e.Type)
		}
		if e.Unit != prescription.UnitFor(e.Type) {
			return nil, fmt.Errorf("invalid unit %q for goal type %s", e.Unit, e.Type)
		}
	}

	var sessionID *uuid.UUID
	if c.SessionID != uuid.Nil {
		id := c.SessionID
		sessionID = &id
	}

	var created []*MobilityGoal
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.goals.SupersedeActive(ctx, c.PatientID); err != nil {
			return fmt.Errorf("supersede active goals: %w", err)
		}
		for _, e := range c.Entries {
			g := &MobilityGoal{
				PatientID:            c.PatientID,
				SessionID:            sessionID,
				GoalType:             e.Type,
				TargetValue:          e.Value,
				Unit:                 e.Unit,
				LifecycleStatus:      StatusActive,
				AdvisoryAcknowledged: c.Acknowledged,
				SetBy:                c.SetBy,
			}
			if err := s.goals.Create(ctx, g); err != nil {
				return fmt.Errorf("create %s goal: %w", e.Type, err)
			}
			created = append(created, g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// StoredBaseline rebuilds a baseline recommendation from the patient's
// active goals.
func (s *Service) StoredBaseline(ctx context.Context, patientID string) (prescription.Baseline, error) {
	if patientID == "" {
		return prescription.Baseline{}, fmt.Errorf("patient_id is required")
	}
	goals, _, err := s.goals.ListByPatient(ctx, patientID, StatusActive, maxActiveGoals, 0)
	if err != nil {
		return prescription.Baseline{}, err
	}
	if len(goals) == 0 {
		return prescription.Baseline{}, ErrNoStoredGoals
	}

	entries := make([]prescription.GoalEntry, len(goals))
	for i, g := range goals {
		entries[i] = g.Entry()
	}
	b, err := prescription.BaselineFromGoals(entries)
	if err != nil {
		return prescription.Baseline{}, fmt.Errorf("%w: %v", ErrNoStoredGoals, err)
	}
	return b, nil
}

func (s *Service) GetGoal(ctx context.Context, id uuid.UUID) (*MobilityGoal, error) {
	return s.goals.GetByID(ctx, id)
}

func (s *Service) GetGoalByFHIRID(ctx context.Context, fhirID string) (*MobilityGoal, error) {
	return s.goals.GetByFHIRID(ctx, fhirID)
}

var validStatuses = map[string]bool{
	"": true, StatusActive: true, StatusCancelled: true,
}

func (s *Service) ListByPatient(ctx context.Context, patientID, status string, limit, offset int) ([]*MobilityGoal, int, error) {
	if patientID == "" {
		return nil, 0, fmt.Errorf("patient_id is required")
	}
	if !validStatuses[status] {
		return nil, 0, fmt.Errorf("invalid lifecycle_status: %s", status)
	}
	return s.goals.ListByPatient(ctx, patientID, status, limit, offset)
}
