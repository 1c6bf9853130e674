package repository

import (
	"context"
	"database/sql"
	"fmt"

	"surveystream-data/internal/domain"
)

type PostgresTargetsRepository struct {
	db *sql.DB
}

func NewPostgresTargetsRepository(db *sql.DB) *PostgresTargetsRepository {
	return &PostgresTargetsRepository{db: db}
}

func (r *PostgresTargetsRepository) ListTargets(ctx context.Context, formUID string) ([]*domain.Target, error) {
	if formUID == "" {
		return []*domain.Target{}, nil
	}

	q := `
		SELECT
			target_uid::text,
			form_uid::text,
			target_id,
			language,
			gender,
			location_uid::text
		FROM targets
		WHERE form_uid = $1
		ORDER BY target_id
	`
	rows, err := r.db.QueryContext(ctx, q, formUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Target{}
	for rows.Next() {
		var t domain.Target
		if err := rows.Scan(&t.TargetUID, &t.FormUID, &t.TargetID,
			&t.Language, &t.Gender, &t.LocationUID); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *PostgresTargetsRepository) GetTarget(ctx context.Context, targetUID string) (*domain.Target, error) {
	if targetUID == "" {
		return nil, fmt.Errorf("target_uid is required")
	}

	q := `
		SELECT
			target_uid::text,
			form_uid::text,
			target_id,
			language,
			gender,
			location_uid::text
		FROM targets
		WHERE target_uid = $1
	`
	var t domain.Target
	err := r.db.QueryRowContext(ctx, q, targetUID).Scan(
		&t.TargetUID,
		&t.FormUID,
		&t.TargetID,
		&t.Language,
		&t.Gender,
		&t.LocationUID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("target not found: target_uid=%s", targetUID)}
		}
		return nil, err
	}
	return &t, nil
}

func (r *PostgresTargetsRepository) ListTargetStatuses(ctx context.Context, formUID string) ([]*domain.TargetStatus, error) {
	if formUID == "" {
		return []*domain.TargetStatus{}, nil
	}

	q := `
		SELECT
			ts.target_uid::text,
			ts.target_assignable,
			ts.final_status
		FROM target_statuses ts
		JOIN targets t ON t.target_uid = ts.target_uid
		WHERE t.form_uid = $1
	`
	rows, err := r.db.QueryContext(ctx, q, formUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.TargetStatus{}
	for rows.Next() {
		var s domain.TargetStatus
		if err := rows.Scan(&s.TargetUID, &s.TargetAssignable, &s.FinalStatus); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// UpsertTargetStatus: status-pipeline write path (one row per target)
func (r *PostgresTargetsRepository) UpsertTargetStatus(ctx context.Context, status *domain.TargetStatus) error {
	if status == nil || status.TargetUID == "" {
		return fmt.Errorf("target_uid is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO target_statuses (target_uid, target_assignable, final_status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (target_uid)
		 DO UPDATE SET target_assignable = EXCLUDED.target_assignable,
		               final_status = EXCLUDED.final_status`,
		status.TargetUID, status.TargetAssignable, status.FinalStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert target status: %w", err)
	}
	return nil
}
