package repository

import (
	"context"
	"database/sql"
	"fmt"

	"surveystream-data/internal/domain"
)

type PostgresPermissionsRepository struct {
	db *sql.DB
}

func NewPostgresPermissionsRepository(db *sql.DB) *PostgresPermissionsRepository {
	return &PostgresPermissionsRepository{db: db}
}

// GetPermission: missing row means no access (most restrictive default)
func (r *PostgresPermissionsRepository) GetPermission(ctx context.Context, userUID, surveyUID, resource string) (*domain.SurveyPermission, error) {
	if userUID == "" || surveyUID == "" || resource == "" {
		return nil, fmt.Errorf("user_uid, survey_uid and resource are required")
	}

	q := `
		SELECT
			user_uid::text,
			survey_uid::text,
			resource,
			can_read,
			can_write
		FROM survey_permissions
		WHERE user_uid = $1 AND survey_uid = $2 AND resource = $3
		LIMIT 1
	`
	var p domain.SurveyPermission
	err := r.db.QueryRowContext(ctx, q, userUID, surveyUID, resource).Scan(
		&p.UserUID,
		&p.SurveyUID,
		&p.Resource,
		&p.CanRead,
		&p.CanWrite,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return &domain.SurveyPermission{
				UserUID:   userUID,
				SurveyUID: surveyUID,
				Resource:  resource,
				CanRead:   false,
				CanWrite:  false,
			}, nil
		}
		return nil, err
	}
	return &p, nil
}
