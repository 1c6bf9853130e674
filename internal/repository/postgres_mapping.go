package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"surveystream-data/internal/domain"
)

type PostgresMappingRepository struct {
	db *sql.DB
}

func NewPostgresMappingRepository(db *sql.DB) *PostgresMappingRepository {
	return &PostgresMappingRepository{db: db}
}

// ============================================
// Criteria set (module-questionnaire configuration)
// ============================================

func (r *PostgresMappingRepository) GetCriteria(ctx context.Context, surveyUID string) ([]string, error) {
	if surveyUID == "" {
		return []string{}, nil
	}

	var criteria []string
	err := r.db.QueryRowContext(ctx,
		`SELECT criteria FROM mapping_criteria WHERE survey_uid = $1`,
		surveyUID,
	).Scan(pq.Array(&criteria))
	if err != nil {
		if err == sql.ErrNoRows {
			return []string{}, nil
		}
		return nil, err
	}
	return criteria, nil
}

func (r *PostgresMappingRepository) PutCriteria(ctx context.Context, surveyUID string, criteria []string) error {
	if surveyUID == "" {
		return fmt.Errorf("survey_uid is required")
	}
	for _, c := range criteria {
		if !domain.ValidCriterion(c) {
			return fmt.Errorf("invalid mapping criterion: %s", c)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mapping_criteria (survey_uid, criteria)
		 VALUES ($1, $2)
		 ON CONFLICT (survey_uid)
		 DO UPDATE SET criteria = EXCLUDED.criteria, updated_at = NOW()`,
		surveyUID, pq.Array(criteria),
	)
	if err != nil {
		return fmt.Errorf("failed to store mapping criteria: %w", err)
	}
	return nil
}

// ============================================
// Override operations
// ============================================

func (r *PostgresMappingRepository) ListConfigs(ctx context.Context, formUID, entityKind string) ([]*domain.MappingConfig, error) {
	if formUID == "" {
		return []*domain.MappingConfig{}, nil
	}

	q := `
		SELECT
			config_uid::text,
			form_uid::text,
			entity_kind,
			mapping_values,
			mapped_to
		FROM mapping_configs
		WHERE form_uid = $1 AND entity_kind = $2
		ORDER BY config_uid
	`
	rows, err := r.db.QueryContext(ctx, q, formUID, entityKind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.MappingConfig{}
	for rows.Next() {
		var mc domain.MappingConfig
		var mappingValuesRaw, mappedToRaw []byte
		if err := rows.Scan(&mc.ConfigUID, &mc.FormUID, &mc.EntityKind,
			&mappingValuesRaw, &mappedToRaw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(mappingValuesRaw, &mc.MappingValues); err != nil {
			return nil, fmt.Errorf("failed to decode mapping_values for config %s: %w", mc.ConfigUID, err)
		}
		if err := json.Unmarshal(mappedToRaw, &mc.MappedTo); err != nil {
			return nil, fmt.Errorf("failed to decode mapped_to for config %s: %w", mc.ConfigUID, err)
		}
		out = append(out, &mc)
	}
	return out, rows.Err()
}

// PutConfig: create when ConfigUID is empty, otherwise full-row update
func (r *PostgresMappingRepository) PutConfig(ctx context.Context, config *domain.MappingConfig) (string, error) {
	if config == nil || config.FormUID == "" {
		return "", fmt.Errorf("form_uid is required")
	}
	if config.EntityKind != domain.EntityKindTarget && config.EntityKind != domain.EntityKindSurveyor {
		return "", fmt.Errorf("invalid entity_kind: %s", config.EntityKind)
	}

	mappingValuesRaw, err := json.Marshal(config.MappingValues)
	if err != nil {
		return "", err
	}
	mappedToRaw, err := json.Marshal(config.MappedTo)
	if err != nil {
		return "", err
	}

	if config.ConfigUID == "" {
		var configUID string
		err := r.db.QueryRowContext(ctx,
			`INSERT INTO mapping_configs (form_uid, entity_kind, mapping_values, mapped_to)
			 VALUES ($1, $2, $3, $4)
			 RETURNING config_uid::text`,
			config.FormUID, config.EntityKind, mappingValuesRaw, mappedToRaw,
		).Scan(&configUID)
		if err != nil {
			return "", fmt.Errorf("failed to create mapping config: %w", err)
		}
		return configUID, nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE mapping_configs
		 SET mapping_values = $1, mapped_to = $2
		 WHERE config_uid = $3 AND form_uid = $4 AND entity_kind = $5`,
		mappingValuesRaw, mappedToRaw, config.ConfigUID, config.FormUID, config.EntityKind,
	)
	if err != nil {
		return "", fmt.Errorf("failed to update mapping config: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return "", &domain.NotFoundError{Message: fmt.Sprintf("mapping config not found: config_uid=%s", config.ConfigUID)}
	}
	return config.ConfigUID, nil
}

func (r *PostgresMappingRepository) DeleteConfig(ctx context.Context, configUID string) error {
	if configUID == "" {
		return fmt.Errorf("config_uid is required")
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM mapping_configs WHERE config_uid = $1`, configUID)
	if err != nil {
		return fmt.Errorf("failed to delete mapping config: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("mapping config not found: config_uid=%s", configUID)}
	}
	return nil
}

func (r *PostgresMappingRepository) DeleteAllConfigs(ctx context.Context, formUID, entityKind string) (int, error) {
	if formUID == "" {
		return 0, fmt.Errorf("form_uid is required")
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM mapping_configs WHERE form_uid = $1 AND entity_kind = $2`,
		formUID, entityKind,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset mapping configs: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// PruneStaleConfigs: overrides are defined against the current criteria
// set, never against history. After the set changes, any override
// referencing a criterion outside the new set is removed.
func (r *PostgresMappingRepository) PruneStaleConfigs(ctx context.Context, surveyUID string, criteria []string) (int, error) {
	if surveyUID == "" {
		return 0, fmt.Errorf("survey_uid is required")
	}

	q := `
		SELECT
			mc.config_uid::text,
			mc.form_uid::text,
			mc.entity_kind,
			mc.mapping_values,
			mc.mapped_to
		FROM mapping_configs mc
		JOIN forms f ON f.form_uid = mc.form_uid
		WHERE f.survey_uid = $1
	`
	rows, err := r.db.QueryContext(ctx, q, surveyUID)
	if err != nil {
		return 0, err
	}

	var stale []string
	for rows.Next() {
		var mc domain.MappingConfig
		var mappingValuesRaw, mappedToRaw []byte
		if err := rows.Scan(&mc.ConfigUID, &mc.FormUID, &mc.EntityKind,
			&mappingValuesRaw, &mappedToRaw); err != nil {
			rows.Close()
			return 0, err
		}
		if err := json.Unmarshal(mappingValuesRaw, &mc.MappingValues); err != nil {
			rows.Close()
			return 0, err
		}
		if err := json.Unmarshal(mappedToRaw, &mc.MappedTo); err != nil {
			rows.Close()
			return 0, err
		}
		if !mc.UsesOnlyCriteria(criteria) {
			stale = append(stale, mc.ConfigUID)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(stale) == 0 {
		return 0, nil
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM mapping_configs WHERE config_uid = ANY($1)`, pq.Array(stale))
	if err != nil {
		return 0, fmt.Errorf("failed to prune stale mapping configs: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}
