package prescription

import (
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned for an event type the reducer does not know.
var ErrUnknownEvent = errors.New("unknown prescription event")

// Mode is the session's energy-invariant mode.
type Mode string

const (
	// ModeFree clamps each edited field independently.
	ModeFree Mode = "free"
	// ModeEnergyLocked routes every edit through Recalibrate.
	ModeEnergyLocked Mode = "energy_locked"
)

// EventType names a state transition.
type EventType string

const (
	EventEdit                 EventType = "edit"
	EventToggleMaintainEnergy EventType = "toggle_maintain_energy"
	EventAutoOptimize         EventType = "auto_optimize"
	EventReset                EventType = "reset"
	EventAcknowledge          EventType = "acknowledge"
)

// Event is one UI or API interaction with a prescription session.
type Event struct {
	Type  EventType `json:"type"`
	Field Field     `json:"field,omitempty"`
	Value float64   `json:"value,omitempty"`
}

// State is the authoritative prescription session state.
type State struct {
	Parameters   Parameters     `json:"parameters"`
	Baseline     Baseline       `json:"baseline"`
	Patient      PatientContext `json:"patient"`
	Acuity       AcuityClass    `json:"acuity"`
	Mode         Mode           `json:"mode"`
	TargetEnergy float64        `json:"target_energy"`
	Advisories   []Advisory     `json:"advisories,omitempty"`
	Acknowledged bool           `json:"acknowledged"`
}

// TotalDailyEnergy returns the energy of the current parameters.
func (s State) TotalDailyEnergy() float64 { return s.Parameters.TotalDailyEnergy() }

// MaintainEnergy reports whether the energy invariant is enforced.
func (s State) MaintainEnergy() bool { return s.Mode == ModeEnergyLocked }

// ReadyToCommit reports whether the state may be handed to goal storage.
func (s State) ReadyToCommit() bool {
	return s.Acknowledged || !RequiresAcknowledgement(s.Advisories)
}

// NewState seeds a session from a baseline recommendation.
func (e *Engine) NewState(baseline Baseline, pc PatientContext, maintainEnergy bool) State {
	a := e.ClassifyAcuity(pc)
	s := State{
		Baseline: baseline,
		Patient:  pc,
		Acuity:   a,
		Mode:     ModeFree,
	}
	s.Parameters = e.baselineParameters(baseline, a)
	s.TargetEnergy = e.policy.Editing(a).Energy.Clamp(baseline.Energy())
	if maintainEnergy {
		s.Mode = ModeEnergyLocked
	}
	s.Advisories = e.Advise(s.Parameters, baseline.Energy())
	return s
}

func (e *Engine) baselineParameters(baseline Baseline, a AcuityClass) Parameters {
	b := e.policy.Editing(a)
	resistance := PowerToResistance(baseline.WattGoal)
	if baseline.ResistanceLevel != nil {
		resistance = float64(*baseline.ResistanceLevel)
	}
	return Parameters{
		PowerWatts:      clampField(b, FieldPower, baseline.WattGoal),
		DurationMinutes: clampField(b, FieldDuration, baseline.DurationMinPerSession),
		ResistanceLevel: clampInt(b, FieldResistance, resistance),
		SessionsPerDay:  clampInt(b, FieldSessions, float64(baseline.SessionsPerDay)),
	}
}

// Reduce applies ev to s and returns the next state. s is not modified.
func (e *Engine) Reduce(s State, ev Event) (State, error) {
	next := s
	next.Advisories = append([]Advisory(nil), s.Advisories...)

	switch ev.Type {
	case EventEdit:
		if !ev.Field.Valid() {
			return s, fmt.Errorf("%w: %q", ErrUnknownField, ev.Field)
		}
		if next.Mode == ModeEnergyLocked || ev.Field == FieldEnergy {
			r, err := e.Recalibrate(s.Parameters, ev.Field, ev.Value, s.TargetEnergy, s.Acuity)
			if err != nil {
				return s, err
			}
			next.Parameters = r.Parameters
			next.TargetEnergy = r.TargetEnergy
		} else {
			p, err := e.ApplyFree(s.Parameters, ev.Field, ev.Value, s.Acuity)
			if err != nil {
				return s, err
			}
			next.Parameters = p
		}

	case EventToggleMaintainEnergy:
		if next.Mode == ModeEnergyLocked {
			next.Mode = ModeFree
			return next, nil
		}
		// The current energy is held as is, even outside the editable
		// energy range, so the invariant holds on entry.
		next.Mode = ModeEnergyLocked
		next.TargetEnergy = s.Parameters.TotalDailyEnergy()
		if next.TargetEnergy <= 0 {
			next.TargetEnergy = e.policy.Editing(s.Acuity).Energy.Clamp(s.Baseline.Energy())
		}
		return next, nil

	case EventAutoOptimize:
		next.Parameters = e.Rescale(s.Baseline, ev.Value, s.Patient)
		next.TargetEnergy = e.policy.Rescaling(s.Acuity).Energy.Clamp(ev.Value)

	case EventReset:
		next.Parameters = e.baselineParameters(s.Baseline, s.Acuity)
		next.TargetEnergy = e.policy.Editing(s.Acuity).Energy.Clamp(s.Baseline.Energy())

	case EventAcknowledge:
		next.Acknowledged = true
		return next, nil

	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}

	if next.Parameters != s.Parameters {
		next.Acknowledged = false
	}
	next.Advisories = e.Advise(next.Parameters, s.Baseline.Energy())
	return next, nil
}
