package repository

import (
	"context"

	"surveystream-data/internal/domain"
)

// EnumeratorsRepository enumerators and their per-form statuses
type EnumeratorsRepository interface {
	// ListByForm returns enumerators holding a surveyor_forms row for the form
	ListByForm(ctx context.Context, formUID string) ([]*domain.Enumerator, error)
	GetEnumerator(ctx context.Context, enumeratorUID string) (*domain.Enumerator, error)

	// Form status operations
	ListFormStatuses(ctx context.Context, formUID string) ([]*domain.SurveyorForm, error)
	UpdateFormStatus(ctx context.Context, enumeratorUID, formUID, status string) error
}
