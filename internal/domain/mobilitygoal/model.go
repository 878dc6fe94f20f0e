package mobilitygoal

import (
	"time"

	"github.com/google/uuid"

	"github.com/mobility/mobility/internal/domain/prescription"
	"github.com/mobility/mobility/internal/platform/fhir"
)

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

const goalTypeSystem = "urn:mobility:goal-type"

// MobilityGoal maps to the mobility_goal table: one field of a committed
// prescription (FHIR Goal resource).
type MobilityGoal struct {
	ID                   uuid.UUID          `db:"id" json:"id"`
	FHIRID               string             `db:"fhir_id" json:"fhir_id"`
	PatientID            string             `db:"patient_id" json:"patient_id"`
	SessionID            *uuid.UUID         `db:"session_id" json:"session_id,omitempty"`
	GoalType             prescription.Field `db:"goal_type" json:"goal_type"`
	TargetValue          float64            `db:"target_value" json:"target_value"`
	Unit                 string             `db:"unit" json:"unit"`
	LifecycleStatus      string             `db:"lifecycle_status" json:"lifecycle_status"`
	AdvisoryAcknowledged bool               `db:"advisory_acknowledged" json:"advisory_acknowledged"`
	SetBy                string             `db:"set_by" json:"set_by,omitempty"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}

// Entry returns the goal as a wire-contract goal entry.
func (g *MobilityGoal) Entry() prescription.GoalEntry {
	return prescription.GoalEntry{Type: g.GoalType, Value: g.TargetValue, Unit: g.Unit}
}

var goalDescriptions = map[prescription.Field]string{
	prescription.FieldPower:      "Cycle ergometer power",
	prescription.FieldDuration:   "Exercise duration per session",
	prescription.FieldResistance: "Ergometer resistance level",
	prescription.FieldSessions:   "Exercise sessions per day",
	prescription.FieldEnergy:     "Total daily exercise energy",
}

var ucumCodes = map[string]string{
	prescription.UnitWatts:    "W",
	prescription.UnitMinutes:  "min",
	prescription.UnitLevel:    "{level}",
	prescription.UnitSessions: "/d",
	prescription.UnitEnergy:   "W.min",
}

func (g *MobilityGoal) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType":    "Goal",
		"id":              g.FHIRID,
		"lifecycleStatus": g.LifecycleStatus,
		"category": []fhir.CodeableConcept{{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/goal-category",
				Code:   "physiotherapy",
			}},
		}},
		"description": fhir.CodeableConcept{Text: goalDescriptions[g.GoalType]},
		"subject":     fhir.Reference{Reference: fhir.FormatReference("Patient", g.PatientID)},
		"target": []map[string]interface{}{{
			"measure": fhir.CodeableConcept{
				Coding: []fhir.Coding{{System: goalTypeSystem, Code: string(g.GoalType)}},
			},
			"detailQuantity": fhir.Quantity{
				Value:  g.TargetValue,
				Unit:   g.Unit,
				System: "http://unitsofmeasure.org",
				Code:   ucumCodes[g.Unit],
			},
		}},
		"startDate": g.CreatedAt.Format("2006-01-02"),
		"meta": fhir.Meta{
			LastUpdated: g.UpdatedAt,
		},
	}
	if g.SetBy != "" {
		result["expressedBy"] = fhir.Reference{Reference: fhir.FormatReference("Practitioner", g.SetBy)}
	}
	if g.AdvisoryAcknowledged {
		result["note"] = []map[string]string{{"text": "Set above advisory thresholds; clinician acknowledged the override."}}
	}
	return result
}
