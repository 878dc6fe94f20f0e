package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/mobility/mobility/internal/domain/prescription"
)

// BaselineSource records where a session's baseline recommendation came from.
type BaselineSource string

const (
	SourceRequest     BaselineSource = "request"
	SourceStoredGoals BaselineSource = "stored_goals"
	SourceRiskService BaselineSource = "risk_service"
)

// Session holds one clinician's in-progress prescription between requests.
type Session struct {
	ID             uuid.UUID          `json:"id"`
	PatientID      string             `json:"patient_id"`
	StartedBy      string             `json:"started_by,omitempty"`
	BaselineSource BaselineSource     `json:"baseline_source"`
	State          prescription.State `json:"state"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// View is the API representation of a session, with derived values.
type View struct {
	ID               uuid.UUID                `json:"id"`
	PatientID        string                   `json:"patient_id"`
	BaselineSource   BaselineSource           `json:"baseline_source"`
	Acuity           prescription.AcuityClass `json:"acuity"`
	Mode             prescription.Mode        `json:"mode"`
	MaintainEnergy   bool                     `json:"maintain_energy"`
	Parameters       prescription.Parameters  `json:"parameters"`
	TotalDailyEnergy float64                  `json:"total_daily_energy"`
	TargetEnergy     float64                  `json:"target_energy"`
	Baseline         prescription.Baseline    `json:"baseline"`
	BaselineEnergy   float64                  `json:"baseline_energy"`
	Advisories       []prescription.Advisory  `json:"advisories"`
	Acknowledged     bool                     `json:"acknowledged"`
	ReadyToCommit    bool                     `json:"ready_to_commit"`
	Goals            []prescription.GoalEntry `json:"goals"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

func (s *Session) View() View {
	st := s.State
	advisories := st.Advisories
	if advisories == nil {
		advisories = []prescription.Advisory{}
	}
	return View{
		ID:               s.ID,
		PatientID:        s.PatientID,
		BaselineSource:   s.BaselineSource,
		Acuity:           st.Acuity,
		Mode:             st.Mode,
		MaintainEnergy:   st.MaintainEnergy(),
		Parameters:       st.Parameters,
		TotalDailyEnergy: st.TotalDailyEnergy(),
		TargetEnergy:     st.TargetEnergy,
		Baseline:         st.Baseline,
		BaselineEnergy:   st.Baseline.Energy(),
		Advisories:       advisories,
		Acknowledged:     st.Acknowledged,
		ReadyToCommit:    st.ReadyToCommit(),
		Goals:            prescription.GoalEntries(st.Parameters),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}
