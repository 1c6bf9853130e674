package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"surveystream-data/internal/domain"
)

// MemoryMappingRepo in-memory MappingRepository for tests and local runs.
// PruneStaleConfigs needs the form -> survey link, so the repo keeps a
// small form index seeded alongside the configs.
type MemoryMappingRepo struct {
	mu         sync.RWMutex
	criteria   map[string][]string // survey_uid -> active criteria set
	configs    map[string]*domain.MappingConfig
	formSurvey map[string]string // form_uid -> survey_uid
}

func NewMemoryMappingRepo() *MemoryMappingRepo {
	return &MemoryMappingRepo{
		criteria:   map[string][]string{},
		configs:    map[string]*domain.MappingConfig{},
		formSurvey: map[string]string{},
	}
}

// SeedFormSurvey registers the form -> survey link used by PruneStaleConfigs
func (r *MemoryMappingRepo) SeedFormSurvey(formUID, surveyUID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formSurvey[formUID] = surveyUID
}

func (r *MemoryMappingRepo) GetCriteria(ctx context.Context, surveyUID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.criteria[surveyUID]))
	copy(out, r.criteria[surveyUID])
	return out, nil
}

func (r *MemoryMappingRepo) PutCriteria(ctx context.Context, surveyUID string, criteria []string) error {
	if surveyUID == "" {
		return fmt.Errorf("survey_uid is required")
	}
	for _, c := range criteria {
		if !domain.ValidCriterion(c) {
			return fmt.Errorf("invalid mapping criterion: %s", c)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]string, len(criteria))
	copy(cp, criteria)
	r.criteria[surveyUID] = cp
	return nil
}

func (r *MemoryMappingRepo) ListConfigs(ctx context.Context, formUID, entityKind string) ([]*domain.MappingConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.MappingConfig{}
	for _, mc := range r.configs {
		if mc.FormUID == formUID && mc.EntityKind == entityKind {
			cp := *mc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConfigUID < out[j].ConfigUID })
	return out, nil
}

func (r *MemoryMappingRepo) PutConfig(ctx context.Context, config *domain.MappingConfig) (string, error) {
	if config == nil || config.FormUID == "" {
		return "", fmt.Errorf("form_uid is required")
	}
	if config.EntityKind != domain.EntityKindTarget && config.EntityKind != domain.EntityKindSurveyor {
		return "", fmt.Errorf("invalid entity_kind: %s", config.EntityKind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if config.ConfigUID == "" {
		cp := *config
		cp.ConfigUID = uuid.NewString()
		r.configs[cp.ConfigUID] = &cp
		return cp.ConfigUID, nil
	}

	existing, ok := r.configs[config.ConfigUID]
	if !ok || existing.FormUID != config.FormUID || existing.EntityKind != config.EntityKind {
		return "", &domain.NotFoundError{Message: fmt.Sprintf("mapping config not found: config_uid=%s", config.ConfigUID)}
	}
	cp := *config
	r.configs[config.ConfigUID] = &cp
	return config.ConfigUID, nil
}

func (r *MemoryMappingRepo) DeleteConfig(ctx context.Context, configUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[configUID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("mapping config not found: config_uid=%s", configUID)}
	}
	delete(r.configs, configUID)
	return nil
}

func (r *MemoryMappingRepo) DeleteAllConfigs(ctx context.Context, formUID, entityKind string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for uid, mc := range r.configs {
		if mc.FormUID == formUID && mc.EntityKind == entityKind {
			delete(r.configs, uid)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryMappingRepo) PruneStaleConfigs(ctx context.Context, surveyUID string, criteria []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for uid, mc := range r.configs {
		if r.formSurvey[mc.FormUID] != surveyUID {
			continue
		}
		if !mc.UsesOnlyCriteria(criteria) {
			delete(r.configs, uid)
			removed++
		}
	}
	return removed, nil
}
