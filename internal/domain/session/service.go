package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mobility/mobility/internal/domain/mobilitygoal"
	"github.com/mobility/mobility/internal/domain/prescription"
	"github.com/mobility/mobility/internal/platform/riskclient"
	"github.com/mobility/mobility/internal/platform/telemetry"
)

var (
	// ErrAcknowledgementRequired is returned by Commit while an override
	// advisory has not been acknowledged.
	ErrAcknowledgementRequired = errors.New("override advisories must be acknowledged before commit")
	// ErrNoBaseline means no baseline recommendation exists for the patient.
	ErrNoBaseline = errors.New("no baseline recommendation available for patient")
	// ErrBaselineUnavailable wraps a failed risk-service lookup.
	ErrBaselineUnavailable = errors.New("baseline recommendation service unavailable")
	// ErrInvalidRequest wraps a malformed start request.
	ErrInvalidRequest = errors.New("invalid prescription session request")
)

// GoalStore persists committed prescriptions and supplies stored baselines.
type GoalStore interface {
	StoredBaseline(ctx context.Context, patientID string) (prescription.Baseline, error)
	CommitPrescription(ctx context.Context, c mobilitygoal.Commit) ([]*mobilitygoal.MobilityGoal, error)
}

// RecommendationSource is the risk-scoring service.
type RecommendationSource interface {
	Recommendation(ctx context.Context, patientID string) (*riskclient.Recommendation, error)
}

// Metrics receives session lifecycle counts.
type Metrics interface {
	Inc(name string, labels ...telemetry.Label)
}

type nopMetrics struct{}

func (nopMetrics) Inc(string, ...telemetry.Label) {}

type Service struct {
	engine  *prescription.Engine
	repo    Repository
	goals   GoalStore
	risk    RecommendationSource
	ttl     time.Duration
	logger  zerolog.Logger
	metrics Metrics
	now     func() time.Time
}

// NewService wires the session service. risk may be nil, in which case
// sessions need an inline baseline or stored goals.
func NewService(engine *prescription.Engine, repo Repository, goals GoalStore, risk RecommendationSource, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		engine:  engine,
		repo:    repo,
		goals:   goals,
		risk:    risk,
		ttl:     ttl,
		logger:  logger,
		metrics: nopMetrics{},
		now:     time.Now,
	}
}

// SetMetrics routes lifecycle counts to m.
func (s *Service) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

type StartRequest struct {
	PatientID      string                       `json:"patient_id"`
	Baseline       *prescription.Baseline       `json:"baseline,omitempty"`
	Patient        *prescription.PatientContext `json:"patient,omitempty"`
	MaintainEnergy bool                         `json:"maintain_energy"`
	StartedBy      string                       `json:"-"`
}

func validateBaseline(b prescription.Baseline) error {
	if b.WattGoal <= 0 {
		return fmt.Errorf("baseline watt_goal must be positive")
	}
	if b.DurationMinPerSession <= 0 {
		return fmt.Errorf("baseline duration_min_per_session must be positive")
	}
	if b.SessionsPerDay <= 0 {
		return fmt.Errorf("baseline sessions_per_day must be positive")
	}
	return nil
}

// Start opens a session. The baseline is taken from the request, else from
// the patient's stored goals, else from the risk service.
func (s *Service) Start(ctx context.Context, req StartRequest) (*Session, error) {
	if req.PatientID == "" {
		return nil, fmt.Errorf("%w: patient_id is required", ErrInvalidRequest)
	}

	var (
		baseline prescription.Baseline
		source   BaselineSource
		found    bool
	)
	if req.Baseline != nil {
		if err := validateBaseline(*req.Baseline); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		baseline, source, found = *req.Baseline, SourceRequest, true
	} else {
		b, err := s.goals.StoredBaseline(ctx, req.PatientID)
		switch {
		case err == nil:
			baseline, source, found = b, SourceStoredGoals, true
		case !errors.Is(err, mobilitygoal.ErrNoStoredGoals):
			return nil, fmt.Errorf("load stored goals: %w", err)
		}
	}

	var patient prescription.PatientContext
	if req.Patient != nil {
		patient = *req.Patient
	}

	if !found || req.Patient == nil {
		rec, err := s.recommendation(ctx, req.PatientID)
		switch {
		case err == nil:
			if req.Patient == nil {
				patient = rec.Patient
			}
			if !found {
				if err := validateBaseline(rec.Baseline); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrBaselineUnavailable, err)
				}
				baseline, source, found = rec.Baseline, SourceRiskService, true
			}
		case !found:
			return nil, err
		default:
			// Baseline is known; acuity falls back to the general class.
			s.logger.Warn().Err(err).Str("patient_id", req.PatientID).Msg("patient context unavailable")
		}
	}

	now := s.now().UTC()
	sess := &Session{
		ID:             uuid.New(),
		PatientID:      req.PatientID,
		StartedBy:      req.StartedBy,
		BaselineSource: source,
		State:          s.engine.NewState(baseline, patient, req.MaintainEnergy),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Save(ctx, sess, s.ttl); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.metrics.Inc("sessions_started", telemetry.L("baseline_source", string(source)))

	s.logger.Info().
		Str("session_id", sess.ID.String()).
		Str("patient_id", sess.PatientID).
		Str("baseline_source", string(source)).
		Str("acuity", string(sess.State.Acuity)).
		Msg("session started")
	return sess, nil
}

func (s *Service) recommendation(ctx context.Context, patientID string) (*riskclient.Recommendation, error) {
	if s.risk == nil {
		return nil, ErrNoBaseline
	}
	rec, err := s.risk.Recommendation(ctx, patientID)
	if errors.Is(err, riskclient.ErrPatientNotFound) {
		return nil, ErrNoBaseline
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaselineUnavailable, err)
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.Get(ctx, id)
}

// Apply reduces the events in order and stores the result. Nothing is
// stored when any event is rejected.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, events ...prescription.Event) (*Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	state := sess.State
	for _, ev := range events {
		state, err = s.engine.Reduce(state, ev)
		if err != nil {
			s.metrics.Inc("session_events_rejected", telemetry.L("type", string(ev.Type)))
			return nil, err
		}
	}
	sess.State = state
	sess.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, sess, s.ttl); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	for _, ev := range events {
		s.metrics.Inc("session_events", telemetry.L("type", string(ev.Type)))
	}
	return sess, nil
}

// Commit hands the finalized prescription to goal storage and closes the
// session. The session is removed before the goals are written, so a
// commit cannot be replayed; it is restored if the write fails.
func (s *Service) Commit(ctx context.Context, id uuid.UUID, setBy string) ([]*mobilitygoal.MobilityGoal, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	st := sess.State
	if !st.ReadyToCommit() {
		return nil, ErrAcknowledgementRequired
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("close session: %w", err)
	}

	acknowledged := st.Acknowledged && prescription.RequiresAcknowledgement(st.Advisories)
	goals, err := s.goals.CommitPrescription(ctx, mobilitygoal.Commit{
		PatientID:    sess.PatientID,
		SessionID:    sess.ID,
		SetBy:        setBy,
		Entries:      prescription.GoalEntries(st.Parameters),
		Acknowledged: acknowledged,
	})
	if err != nil {
		if rerr := s.repo.Save(ctx, sess, s.ttl); rerr != nil {
			s.logger.Error().Err(rerr).Str("session_id", id.String()).Msg("session not restored after failed commit")
		}
		return nil, fmt.Errorf("commit prescription: %w", err)
	}
	s.metrics.Inc("session_commits", telemetry.L("acknowledged", strconv.FormatBool(acknowledged)))

	s.logger.Info().
		Str("session_id", id.String()).
		Str("patient_id", sess.PatientID).
		Str("set_by", setBy).
		Float64("total_daily_energy", st.TotalDailyEnergy()).
		Int("advisories", len(st.Advisories)).
		Msg("session committed")
	return goals, nil
}

func (s *Service) Discard(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.Inc("session_discards")
	s.logger.Info().Str("session_id", id.String()).Msg("session discarded")
	return nil
}
