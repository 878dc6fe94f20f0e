package mobilitygoal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mobility/mobility/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const goalCols = `id, fhir_id, patient_id, session_id, goal_type, target_value, unit,
	lifecycle_status, advisory_acknowledged, set_by, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*MobilityGoal, error) {
	var g MobilityGoal
	err := row.Scan(&g.ID, &g.FHIRID, &g.PatientID, &g.SessionID, &g.GoalType,
		&g.TargetValue, &g.Unit, &g.LifecycleStatus, &g.AdvisoryAcknowledged,
		&g.SetBy, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *repoPG) Create(ctx context.Context, g *MobilityGoal) error {
	g.ID = uuid.New()
	if g.FHIRID == "" {
		g.FHIRID = g.ID.String()
	}
	if g.LifecycleStatus == "" {
		g.LifecycleStatus = StatusActive
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO mobility_goal (id, fhir_id, patient_id, session_id, goal_type,
			target_value, unit, lifecycle_status, advisory_acknowledged, set_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		g.ID, g.FHIRID, g.PatientID, g.SessionID, g.GoalType,
		g.TargetValue, g.Unit, g.LifecycleStatus, g.AdvisoryAcknowledged, g.SetBy,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MobilityGoal, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+goalCols+` FROM mobility_goal WHERE id = $1`, id))
}

func (r *repoPG) GetByFHIRID(ctx context.Context, fhirID string) (*MobilityGoal, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+goalCols+` FROM mobility_goal WHERE fhir_id = $1`, fhirID))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID, status string, limit, offset int) ([]*MobilityGoal, int, error) {
	where := ` WHERE patient_id = $1`
	args := []interface{}{patientID}
	if status != "" {
		where += ` AND lifecycle_status = $2`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM mobility_goal`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + goalCols + ` FROM mobility_goal` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, goal_type LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*MobilityGoal
	for rows.Next() {
		g, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, g)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SupersedeActive(ctx context.Context, patientID string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE mobility_goal SET lifecycle_status = $2, updated_at = NOW()
		WHERE patient_id = $1 AND lifecycle_status = $3`,
		patientID, StatusCancelled, StatusActive)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
