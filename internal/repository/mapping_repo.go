package repository

import (
	"context"

	"surveystream-data/internal/domain"
)

// MappingRepository the active criteria set per survey plus persisted
// manual overrides per form
type MappingRepository interface {
	// Criteria set (module-questionnaire configuration), in stored order
	GetCriteria(ctx context.Context, surveyUID string) ([]string, error)
	PutCriteria(ctx context.Context, surveyUID string, criteria []string) error

	// Override operations
	ListConfigs(ctx context.Context, formUID, entityKind string) ([]*domain.MappingConfig, error)
	PutConfig(ctx context.Context, config *domain.MappingConfig) (string, error)
	DeleteConfig(ctx context.Context, configUID string) error

	// DeleteAllConfigs removes every override for the form and kind
	// (the reset operation); returns the number of rows removed.
	DeleteAllConfigs(ctx context.Context, formUID, entityKind string) (int, error)

	// PruneStaleConfigs removes overrides referencing criteria outside the
	// active set; called when the criteria set is updated.
	PruneStaleConfigs(ctx context.Context, surveyUID string, criteria []string) (int, error)
}
