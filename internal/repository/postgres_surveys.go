package repository

import (
	"context"
	"database/sql"
	"fmt"

	"surveystream-data/internal/domain"
)

type PostgresSurveysRepository struct {
	db *sql.DB
}

func NewPostgresSurveysRepository(db *sql.DB) *PostgresSurveysRepository {
	return &PostgresSurveysRepository{db: db}
}

// ============================================
// Survey operations
// ============================================

func (r *PostgresSurveysRepository) ListSurveys(ctx context.Context) ([]*domain.Survey, error) {
	q := `
		SELECT
			survey_uid::text,
			survey_id,
			survey_name,
			prime_geo_level_uid::text,
			created_at,
			updated_at
		FROM surveys
		ORDER BY survey_id
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Survey{}
	for rows.Next() {
		var s domain.Survey
		if err := rows.Scan(&s.SurveyUID, &s.SurveyID, &s.SurveyName,
			&s.PrimeGeoLevelUID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *PostgresSurveysRepository) GetSurvey(ctx context.Context, surveyUID string) (*domain.Survey, error) {
	if surveyUID == "" {
		return nil, fmt.Errorf("survey_uid is required")
	}

	q := `
		SELECT
			survey_uid::text,
			survey_id,
			survey_name,
			prime_geo_level_uid::text,
			created_at,
			updated_at
		FROM surveys
		WHERE survey_uid = $1
	`
	var s domain.Survey
	err := r.db.QueryRowContext(ctx, q, surveyUID).Scan(
		&s.SurveyUID,
		&s.SurveyID,
		&s.SurveyName,
		&s.PrimeGeoLevelUID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("survey not found: survey_uid=%s", surveyUID)}
		}
		return nil, err
	}
	return &s, nil
}

func (r *PostgresSurveysRepository) SetPrimeGeoLevel(ctx context.Context, surveyUID, geoLevelUID string) error {
	if surveyUID == "" || geoLevelUID == "" {
		return fmt.Errorf("survey_uid and geo_level_uid are required")
	}

	// the level must belong to the survey
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM geo_levels WHERE geo_level_uid = $1 AND survey_uid = $2)`,
		geoLevelUID, surveyUID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return &domain.NotFoundError{Message: fmt.Sprintf("geo level not found for survey: geo_level_uid=%s", geoLevelUID)}
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE surveys SET prime_geo_level_uid = $1, updated_at = NOW() WHERE survey_uid = $2`,
		geoLevelUID, surveyUID,
	)
	if err != nil {
		return fmt.Errorf("failed to set prime geo level: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("survey not found: survey_uid=%s", surveyUID)}
	}
	return nil
}

// ============================================
// GeoLevel operations
// ============================================

func (r *PostgresSurveysRepository) ListGeoLevels(ctx context.Context, surveyUID string) ([]*domain.GeoLevel, error) {
	if surveyUID == "" {
		return []*domain.GeoLevel{}, nil
	}

	q := `
		SELECT
			geo_level_uid::text,
			survey_uid::text,
			geo_level_name,
			level
		FROM geo_levels
		WHERE survey_uid = $1
		ORDER BY level
	`
	rows, err := r.db.QueryContext(ctx, q, surveyUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.GeoLevel{}
	for rows.Next() {
		var g domain.GeoLevel
		if err := rows.Scan(&g.GeoLevelUID, &g.SurveyUID, &g.GeoLevelName, &g.Level); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

// ============================================
// Location operations
// ============================================

func (r *PostgresSurveysRepository) ListLocations(ctx context.Context, surveyUID string) ([]*domain.Location, error) {
	if surveyUID == "" {
		return []*domain.Location{}, nil
	}

	q := `
		SELECT
			location_uid::text,
			survey_uid::text,
			geo_level_uid::text,
			parent_location_uid::text,
			location_id,
			location_name
		FROM locations
		WHERE survey_uid = $1
		ORDER BY location_id
	`
	rows, err := r.db.QueryContext(ctx, q, surveyUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Location{}
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.LocationUID, &l.SurveyUID, &l.GeoLevelUID,
			&l.ParentLocationUID, &l.LocationID, &l.LocationName); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// ============================================
// Form operations
// ============================================

func (r *PostgresSurveysRepository) GetForm(ctx context.Context, formUID string) (*domain.Form, error) {
	if formUID == "" {
		return nil, fmt.Errorf("form_uid is required")
	}

	q := `
		SELECT
			form_uid::text,
			survey_uid::text,
			scto_form_id,
			form_name,
			created_at
		FROM forms
		WHERE form_uid = $1
	`
	var f domain.Form
	err := r.db.QueryRowContext(ctx, q, formUID).Scan(
		&f.FormUID,
		&f.SurveyUID,
		&f.SCTOFormID,
		&f.FormName,
		&f.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("form not found: form_uid=%s", formUID)}
		}
		return nil, err
	}
	return &f, nil
}

func (r *PostgresSurveysRepository) ListForms(ctx context.Context, surveyUID string) ([]*domain.Form, error) {
	if surveyUID == "" {
		return []*domain.Form{}, nil
	}

	q := `
		SELECT
			form_uid::text,
			survey_uid::text,
			scto_form_id,
			form_name,
			created_at
		FROM forms
		WHERE survey_uid = $1
		ORDER BY scto_form_id
	`
	rows, err := r.db.QueryContext(ctx, q, surveyUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Form{}
	for rows.Next() {
		var f domain.Form
		if err := rows.Scan(&f.FormUID, &f.SurveyUID, &f.SCTOFormID, &f.FormName, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *PostgresSurveysRepository) CreateForm(ctx context.Context, form *domain.Form) (string, error) {
	if form == nil || form.SurveyUID == "" || form.SCTOFormID == "" {
		return "", fmt.Errorf("survey_uid and scto_form_id are required")
	}

	var formUID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO forms (survey_uid, scto_form_id, form_name)
		 VALUES ($1, $2, $3)
		 RETURNING form_uid::text`,
		form.SurveyUID, form.SCTOFormID, form.FormName,
	).Scan(&formUID)
	if err != nil {
		return "", fmt.Errorf("failed to create form: %w", err)
	}
	return formUID, nil
}
