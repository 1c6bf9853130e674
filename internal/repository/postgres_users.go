package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"surveystream-data/internal/domain"
)

type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

// ============================================
// Role operations
// ============================================

func (r *PostgresUsersRepository) ListRoles(ctx context.Context, surveyUID string) ([]*domain.Role, error) {
	if surveyUID == "" {
		return []*domain.Role{}, nil
	}

	q := `
		SELECT
			role_uid::text,
			survey_uid::text,
			role_name,
			level
		FROM roles
		WHERE survey_uid = $1
		ORDER BY level
	`
	rows, err := r.db.QueryContext(ctx, q, surveyUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Role{}
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.RoleUID, &role.SurveyUID, &role.RoleName, &role.Level); err != nil {
			return nil, err
		}
		out = append(out, &role)
	}
	return out, rows.Err()
}

// ============================================
// User operations
// ============================================

// ListUsers: users with a hierarchy entry for the survey, languages and
// location links aggregated per user
func (r *PostgresUsersRepository) ListUsers(ctx context.Context, surveyUID string) ([]*domain.User, error) {
	if surveyUID == "" {
		return []*domain.User{}, nil
	}

	q := `
		SELECT
			u.user_uid::text,
			u.name,
			u.email,
			u.gender,
			COALESCE(ARRAY_AGG(DISTINCT ul.language) FILTER (WHERE ul.language IS NOT NULL), '{}'),
			COALESCE(ARRAY_AGG(DISTINCT uloc.location_uid::text) FILTER (WHERE uloc.location_uid IS NOT NULL), '{}')
		FROM users u
		JOIN user_hierarchy uh ON uh.user_uid = u.user_uid AND uh.survey_uid = $1
		LEFT JOIN user_languages ul ON ul.user_uid = u.user_uid AND ul.survey_uid = $1
		LEFT JOIN user_locations uloc ON uloc.user_uid = u.user_uid AND uloc.survey_uid = $1
		GROUP BY u.user_uid, u.name, u.email, u.gender
		ORDER BY u.name
	`
	rows, err := r.db.QueryContext(ctx, q, surveyUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.UserUID, &u.Name, &u.Email, &u.Gender,
			pq.Array(&u.Languages), pq.Array(&u.LocationUIDs)); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (r *PostgresUsersRepository) GetUser(ctx context.Context, userUID string) (*domain.User, error) {
	if userUID == "" {
		return nil, fmt.Errorf("user_uid is required")
	}

	q := `
		SELECT
			u.user_uid::text,
			u.name,
			u.email,
			u.gender,
			COALESCE(ARRAY_AGG(DISTINCT ul.language) FILTER (WHERE ul.language IS NOT NULL), '{}'),
			COALESCE(ARRAY_AGG(DISTINCT uloc.location_uid::text) FILTER (WHERE uloc.location_uid IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_languages ul ON ul.user_uid = u.user_uid
		LEFT JOIN user_locations uloc ON uloc.user_uid = u.user_uid
		WHERE u.user_uid = $1
		GROUP BY u.user_uid, u.name, u.email, u.gender
	`
	var u domain.User
	err := r.db.QueryRowContext(ctx, q, userUID).Scan(
		&u.UserUID,
		&u.Name,
		&u.Email,
		&u.Gender,
		pq.Array(&u.Languages),
		pq.Array(&u.LocationUIDs),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("user not found: user_uid=%s", userUID)}
		}
		return nil, err
	}
	return &u, nil
}

// ============================================
// Hierarchy operations
// ============================================

func (r *PostgresUsersRepository) ListHierarchy(ctx context.Context, surveyUID string) ([]*domain.UserHierarchyEntry, error) {
	if surveyUID == "" {
		return []*domain.UserHierarchyEntry{}, nil
	}

	q := `
		SELECT
			user_uid::text,
			survey_uid::text,
			role_uid::text,
			parent_user_uid::text
		FROM user_hierarchy
		WHERE survey_uid = $1
	`
	rows, err := r.db.QueryContext(ctx, q, surveyUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.UserHierarchyEntry{}
	for rows.Next() {
		var e domain.UserHierarchyEntry
		if err := rows.Scan(&e.UserUID, &e.SurveyUID, &e.RoleUID, &e.ParentUserUID); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
