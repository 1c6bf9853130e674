package repository

import (
	"context"

	"surveystream-data/internal/domain"
)

// SurveysRepository surveys, geo levels, the location tree and forms.
// Strongly typed domain models, no map[string]any.
type SurveysRepository interface {
	// Survey operations
	ListSurveys(ctx context.Context) ([]*domain.Survey, error)
	GetSurvey(ctx context.Context, surveyUID string) (*domain.Survey, error)
	SetPrimeGeoLevel(ctx context.Context, surveyUID, geoLevelUID string) error

	// GeoLevel operations (ordered by level ascending)
	ListGeoLevels(ctx context.Context, surveyUID string) ([]*domain.GeoLevel, error)

	// Location operations
	ListLocations(ctx context.Context, surveyUID string) ([]*domain.Location, error)

	// Form operations
	GetForm(ctx context.Context, formUID string) (*domain.Form, error)
	ListForms(ctx context.Context, surveyUID string) ([]*domain.Form, error)
	CreateForm(ctx context.Context, form *domain.Form) (string, error)
}
