package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"surveystream-data/internal/domain"
)

// MemorySurveysRepo in-memory SurveysRepository for tests and local runs
type MemorySurveysRepo struct {
	mu        sync.RWMutex
	surveys   map[string]*domain.Survey
	geoLevels map[string]*domain.GeoLevel
	locations map[string]*domain.Location
	forms     map[string]*domain.Form
}

func NewMemorySurveysRepo() *MemorySurveysRepo {
	return &MemorySurveysRepo{
		surveys:   map[string]*domain.Survey{},
		geoLevels: map[string]*domain.GeoLevel{},
		locations: map[string]*domain.Location{},
		forms:     map[string]*domain.Form{},
	}
}

// ============================================
// Seeding helpers (test setup)
// ============================================

func (r *MemorySurveysRepo) SeedSurvey(s *domain.Survey) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.SurveyUID == "" {
		s.SurveyUID = uuid.NewString()
	}
	cp := *s
	r.surveys[s.SurveyUID] = &cp
	return s.SurveyUID
}

func (r *MemorySurveysRepo) SeedGeoLevel(g *domain.GeoLevel) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g.GeoLevelUID == "" {
		g.GeoLevelUID = uuid.NewString()
	}
	cp := *g
	r.geoLevels[g.GeoLevelUID] = &cp
	return g.GeoLevelUID
}

func (r *MemorySurveysRepo) SeedLocation(l *domain.Location) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.LocationUID == "" {
		l.LocationUID = uuid.NewString()
	}
	cp := *l
	r.locations[l.LocationUID] = &cp
	return l.LocationUID
}

// ============================================
// SurveysRepository
// ============================================

func (r *MemorySurveysRepo) ListSurveys(ctx context.Context) ([]*domain.Survey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Survey{}
	for _, s := range r.surveys {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SurveyID < out[j].SurveyID })
	return out, nil
}

func (r *MemorySurveysRepo) GetSurvey(ctx context.Context, surveyUID string) (*domain.Survey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.surveys[surveyUID]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("survey not found: survey_uid=%s", surveyUID)}
	}
	cp := *s
	return &cp, nil
}

func (r *MemorySurveysRepo) SetPrimeGeoLevel(ctx context.Context, surveyUID, geoLevelUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surveys[surveyUID]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("survey not found: survey_uid=%s", surveyUID)}
	}
	g, ok := r.geoLevels[geoLevelUID]
	if !ok || g.SurveyUID != surveyUID {
		return &domain.NotFoundError{Message: fmt.Sprintf("geo level not found for survey: geo_level_uid=%s", geoLevelUID)}
	}
	s.PrimeGeoLevelUID = sql.NullString{String: geoLevelUID, Valid: true}
	return nil
}

func (r *MemorySurveysRepo) ListGeoLevels(ctx context.Context, surveyUID string) ([]*domain.GeoLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.GeoLevel{}
	for _, g := range r.geoLevels {
		if g.SurveyUID == surveyUID {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (r *MemorySurveysRepo) ListLocations(ctx context.Context, surveyUID string) ([]*domain.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Location{}
	for _, l := range r.locations {
		if l.SurveyUID == surveyUID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

func (r *MemorySurveysRepo) GetForm(ctx context.Context, formUID string) (*domain.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.forms[formUID]
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("form not found: form_uid=%s", formUID)}
	}
	cp := *f
	return &cp, nil
}

func (r *MemorySurveysRepo) ListForms(ctx context.Context, surveyUID string) ([]*domain.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Form{}
	for _, f := range r.forms {
		if f.SurveyUID == surveyUID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SCTOFormID < out[j].SCTOFormID })
	return out, nil
}

func (r *MemorySurveysRepo) CreateForm(ctx context.Context, form *domain.Form) (string, error) {
	if form == nil || form.SurveyUID == "" {
		return "", fmt.Errorf("survey_uid is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.surveys[form.SurveyUID]; !ok {
		return "", &domain.NotFoundError{Message: fmt.Sprintf("survey not found: survey_uid=%s", form.SurveyUID)}
	}
	if form.FormUID == "" {
		form.FormUID = uuid.NewString()
	}
	cp := *form
	r.forms[form.FormUID] = &cp
	return form.FormUID, nil
}
