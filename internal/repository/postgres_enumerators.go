package repository

import (
	"context"
	"database/sql"
	"fmt"

	"surveystream-data/internal/domain"
)

type PostgresEnumeratorsRepository struct {
	db *sql.DB
}

func NewPostgresEnumeratorsRepository(db *sql.DB) *PostgresEnumeratorsRepository {
	return &PostgresEnumeratorsRepository{db: db}
}

func (r *PostgresEnumeratorsRepository) ListByForm(ctx context.Context, formUID string) ([]*domain.Enumerator, error) {
	if formUID == "" {
		return []*domain.Enumerator{}, nil
	}

	q := `
		SELECT
			e.enumerator_uid::text,
			e.survey_uid::text,
			e.enumerator_id,
			e.name,
			e.email,
			e.language,
			e.gender,
			e.location_uid::text
		FROM enumerators e
		JOIN surveyor_forms sf ON sf.enumerator_uid = e.enumerator_uid
		WHERE sf.form_uid = $1
		ORDER BY e.enumerator_id
	`
	rows, err := r.db.QueryContext(ctx, q, formUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Enumerator{}
	for rows.Next() {
		var e domain.Enumerator
		if err := rows.Scan(&e.EnumeratorUID, &e.SurveyUID, &e.EnumeratorID,
			&e.Name, &e.Email, &e.Language, &e.Gender, &e.LocationUID); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *PostgresEnumeratorsRepository) GetEnumerator(ctx context.Context, enumeratorUID string) (*domain.Enumerator, error) {
	if enumeratorUID == "" {
		return nil, fmt.Errorf("enumerator_uid is required")
	}

	q := `
		SELECT
			enumerator_uid::text,
			survey_uid::text,
			enumerator_id,
			name,
			email,
			language,
			gender,
			location_uid::text
		FROM enumerators
		WHERE enumerator_uid = $1
	`
	var e domain.Enumerator
	err := r.db.QueryRowContext(ctx, q, enumeratorUID).Scan(
		&e.EnumeratorUID,
		&e.SurveyUID,
		&e.EnumeratorID,
		&e.Name,
		&e.Email,
		&e.Language,
		&e.Gender,
		&e.LocationUID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("enumerator not found: enumerator_uid=%s", enumeratorUID)}
		}
		return nil, err
	}
	return &e, nil
}

func (r *PostgresEnumeratorsRepository) ListFormStatuses(ctx context.Context, formUID string) ([]*domain.SurveyorForm, error) {
	if formUID == "" {
		return []*domain.SurveyorForm{}, nil
	}

	q := `
		SELECT
			enumerator_uid::text,
			form_uid::text,
			status
		FROM surveyor_forms
		WHERE form_uid = $1
	`
	rows, err := r.db.QueryContext(ctx, q, formUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.SurveyorForm{}
	for rows.Next() {
		var sf domain.SurveyorForm
		if err := rows.Scan(&sf.EnumeratorUID, &sf.FormUID, &sf.Status); err != nil {
			return nil, err
		}
		out = append(out, &sf)
	}
	return out, rows.Err()
}

func (r *PostgresEnumeratorsRepository) UpdateFormStatus(ctx context.Context, enumeratorUID, formUID, status string) error {
	if enumeratorUID == "" || formUID == "" {
		return fmt.Errorf("enumerator_uid and form_uid are required")
	}
	switch status {
	case domain.EnumeratorStatusActive, domain.EnumeratorStatusTempInactive, domain.EnumeratorStatusDropout:
	default:
		return fmt.Errorf("invalid status: %s", status)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE surveyor_forms SET status = $1 WHERE enumerator_uid = $2 AND form_uid = $3`,
		status, enumeratorUID, formUID,
	)
	if err != nil {
		return fmt.Errorf("failed to update form status: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf(
			"surveyor form status not found: enumerator_uid=%s form_uid=%s", enumeratorUID, formUID)}
	}
	return nil
}
