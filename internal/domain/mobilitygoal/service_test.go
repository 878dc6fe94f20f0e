package mobilitygoal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/mobility/mobility/internal/domain/prescription"
	"github.com/mobility/mobility/internal/platform/db"
)

type mockGoalRepo struct {
	store  map[uuid.UUID]*MobilityGoal
	order  []uuid.UUID
	failOn prescription.Field
}

func newMockGoalRepo() *mockGoalRepo { return &mockGoalRepo{store: make(map[uuid.UUID]*MobilityGoal)} }
func (m *mockGoalRepo) Create(_ context.Context, g *MobilityGoal) error {
	if g.GoalType == m.failOn { return fmt.Errorf("insert failed") }
	g.ID = uuid.New(); if g.FHIRID == "" { g.FHIRID = g.ID.String() }; m.store[g.ID] = g; m.order = append(m.order, g.ID); return nil
}
func (m *mockGoalRepo) GetByID(_ context.Context, id uuid.UUID) (*MobilityGoal, error) {
	g, ok := m.store[id]; if !ok { return nil, ErrNotFound }; return g, nil
}
func (m *mockGoalRepo) GetByFHIRID(_ context.Context, fhirID string) (*MobilityGoal, error) {
	for _, g := range m.store { if g.FHIRID == fhirID { return g, nil } }; return nil, ErrNotFound
}
func (m *mockGoalRepo) ListByPatient(_ context.Context, pid, status string, limit, offset int) ([]*MobilityGoal, int, error) {
	var r []*MobilityGoal
	for _, id := range m.order { g := m.store[id]; if g.PatientID == pid && (status == "" || g.LifecycleStatus == status) { r = append(r, g) } }
	return r, len(r), nil
}
func (m *mockGoalRepo) SupersedeActive(_ context.Context, pid string) (int64, error) {
	var n int64
	for _, g := range m.store { if g.PatientID == pid && g.LifecycleStatus == StatusActive { g.LifecycleStatus = StatusCancelled; n++ } }
	return n, nil
}

// recordingTx counts units of work and rolls the mock back on failure.
type recordingTx struct {
	repo  *mockGoalRepo
	calls int
}

func (r *recordingTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	snapshot := make(map[uuid.UUID]MobilityGoal, len(r.repo.store))
	for id, g := range r.repo.store { snapshot[id] = *g }
	order := append([]uuid.UUID(nil), r.repo.order...)
	if err := fn(ctx); err != nil {
		r.repo.store = make(map[uuid.UUID]*MobilityGoal, len(snapshot))
		for id, g := range snapshot { g := g; r.repo.store[id] = &g }
		r.repo.order = order
		return err
	}
	return nil
}

var _ db.TxRunner = (*recordingTx)(nil)

func newTestService() (*Service, *mockGoalRepo, *recordingTx) {
	repo := newMockGoalRepo()
	tx := &recordingTx{repo: repo}
	return NewService(repo, tx), repo, tx
}

func testEntries() []prescription.GoalEntry {
	return prescription.GoalEntries(prescription.Parameters{
		PowerWatts: 46.67, DurationMinutes: 11.25, ResistanceLevel: 9, SessionsPerDay: 2,
	})
}

func TestCommitPrescription_Success(t *testing.T) {
	svc, _, tx := newTestService()
	goals, err := svc.CommitPrescription(context.Background(), Commit{
		PatientID: "pat-1", SessionID: uuid.New(), SetBy: "pt-7", Entries: testEntries(),
	})
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if len(goals) != 5 { t.Fatalf("expected 5 goals, got %d", len(goals)) }
	if tx.calls != 1 { t.Errorf("expected a single transaction, got %d", tx.calls) }
	want := []prescription.Field{prescription.FieldPower, prescription.FieldDuration, prescription.FieldResistance, prescription.FieldSessions, prescription.FieldEnergy}
	for i, g := range goals {
		if g.GoalType != want[i] { t.Errorf("goal %d type = %s, want %s", i, g.GoalType, want[i]) }
		if g.LifecycleStatus != StatusActive { t.Errorf("goal %d status = %s", i, g.LifecycleStatus) }
		if g.SessionID == nil { t.Errorf("goal %d missing session id", i) }
		if g.SetBy != "pt-7" { t.Errorf("goal %d set_by = %s", i, g.SetBy) }
	}
	if math.Abs(goals[4].TargetValue-1050.075) > 1e-9 { t.Errorf("energy goal should be unrounded, got %v", goals[4].TargetValue) }
}

func TestCommitPrescription_SupersedesPrevious(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	first, _ := svc.CommitPrescription(ctx, Commit{PatientID: "pat-1", Entries: testEntries()})
	svc.CommitPrescription(ctx, Commit{PatientID: "pat-2", Entries: testEntries()})
	if _, err := svc.CommitPrescription(ctx, Commit{PatientID: "pat-1", Entries: testEntries()}); err != nil { t.Fatalf("unexpected error: %v", err) }

	for _, g := range first {
		if repo.store[g.ID].LifecycleStatus != StatusCancelled { t.Errorf("previous %s goal should be cancelled", g.GoalType) }
	}
	active, _, _ := repo.ListByPatient(ctx, "pat-1", StatusActive, 50, 0)
	if len(active) != 5 { t.Errorf("expected 5 active goals for pat-1, got %d", len(active)) }
	other, _, _ := repo.ListByPatient(ctx, "pat-2", StatusActive, 50, 0)
	if len(other) != 5 { t.Errorf("other patient's goals must stay active, got %d", len(other)) }
}

func TestCommitPrescription_RollsBackOnFailure(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	first, _ := svc.CommitPrescription(ctx, Commit{PatientID: "pat-1", Entries: testEntries()})

	repo.failOn = prescription.FieldSessions
	if _, err := svc.CommitPrescription(ctx, Commit{PatientID: "pat-1", Entries: testEntries()}); err == nil { t.Fatal("expected error") }

	for _, g := range first {
		if repo.store[g.ID].LifecycleStatus != StatusActive { t.Errorf("%s goal should still be active after rollback", g.GoalType) }
	}
	if len(repo.store) != 5 { t.Errorf("expected no partial inserts, store has %d goals", len(repo.store)) }
}

func TestCommitPrescription_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.CommitPrescription(ctx, Commit{Entries: testEntries()}); err == nil { t.Error("expected error for missing patient") }
	if _, err := svc.CommitPrescription(ctx, Commit{PatientID: "pat-1"}); err == nil { t.Error("expected error for empty entries") }
	bad := []prescription.GoalEntry{{Type: "cadence", Value: 35, Unit: "rpm"}}
	if _, err := svc.CommitPrescription(ctx, Commit{PatientID: "pat-1", Entries: bad}); err == nil { t.Error("expected error for unknown goal type") }
	wrongUnit := []prescription.GoalEntry{{Type: prescription.FieldPower, Value: 35, Unit: "minutes"}}
	if _, err := svc.CommitPrescription(ctx, Commit{PatientID: "pat-1", Entries: wrongUnit}); err == nil { t.Error("expected error for mismatched unit") }
}

func TestStoredBaseline(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	svc.CommitPrescription(ctx, Commit{PatientID: "pat-1", Entries: prescription.GoalEntries(prescription.Parameters{PowerWatts: 35, DurationMinutes: 15, ResistanceLevel: 5, SessionsPerDay: 2})})
	svc.CommitPrescription(ctx, Commit{PatientID: "pat-1", Entries: testEntries()})

	b, err := svc.StoredBaseline(ctx, "pat-1")
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if b.WattGoal != 46.67 || b.DurationMinPerSession != 11.25 || b.SessionsPerDay != 2 { t.Errorf("baseline should come from the latest commit, got %+v", b) }
	if b.ResistanceLevel == nil || *b.ResistanceLevel != 9 { t.Errorf("expected resistance 9, got %v", b.ResistanceLevel) }
}

func TestStoredBaseline_NoGoals(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.StoredBaseline(context.Background(), "pat-1"); !errors.Is(err, ErrNoStoredGoals) { t.Errorf("expected ErrNoStoredGoals, got %v", err) }
	if _, err := svc.StoredBaseline(context.Background(), ""); err == nil { t.Error("expected error for missing patient") }
}

func TestStoredBaseline_Incomplete(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	svc.CommitPrescription(ctx, Commit{PatientID: "pat-1", Entries: testEntries()[:1]})
	if _, err := svc.StoredBaseline(ctx, "pat-1"); !errors.Is(err, ErrNoStoredGoals) { t.Errorf("expected ErrNoStoredGoals for partial goals, got %v", err) }
}

func TestListByPatient_InvalidStatus(t *testing.T) {
	svc, _, _ := newTestService()
	if _, _, err := svc.ListByPatient(context.Background(), "pat-1", "bogus", 20, 0); err == nil { t.Error("expected error") }
	if _, _, err := svc.ListByPatient(context.Background(), "", "", 20, 0); err == nil { t.Error("expected error for missing patient") }
}
