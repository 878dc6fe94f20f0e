package mobilitygoal

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("mobility goal not found")

type Repository interface {
	Create(ctx context.Context, g *MobilityGoal) error
	GetByID(ctx context.Context, id uuid.UUID) (*MobilityGoal, error)
	GetByFHIRID(ctx context.Context, fhirID string) (*MobilityGoal, error)
	// ListByPatient filters by lifecycle status unless status is empty.
	ListByPatient(ctx context.Context, patientID, status string, limit, offset int) ([]*MobilityGoal, int, error)
	// SupersedeActive cancels every active goal of the patient.
	SupersedeActive(ctx context.Context, patientID string) (int64, error)
}
