package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/repository"
)

// ============================================
// Service interface + result shapes
// ============================================

// MappingRow one entity of a mapping listing: its raw criteria tuple,
// the tuple it resolves under (post-override) and the resolved
// supervisor, null when the bucket is Pending. When the Location
// criterion is active, LocationID/LocationName carry the display
// identity of the prime-level ancestor whose uid sits in the tuple.
type MappingRow struct {
	EntityUID       string               `json:"entity_uid"`
	EntityID        string               `json:"entity_id"`
	Name            string               `json:"name,omitempty"`
	CriteriaValues  domain.CriteriaTuple `json:"mapping_criteria_values"`
	EffectiveValues domain.CriteriaTuple `json:"effective_criteria_values"`
	LocationID      *string              `json:"location_id,omitempty"`
	LocationName    *string              `json:"location_name,omitempty"`
	SupervisorUID   *string              `json:"supervisor_uid"`
	SupervisorName  *string              `json:"supervisor_name"`
	SupervisorEmail *string              `json:"supervisor_email"`
	MappingStatus   string               `json:"mapping_status"`
}

// MappingBucket one equal-criteria bucket of the mapping summary.
// Buckets with zero entities are omitted. SupervisorCriteriaValues
// lists the criteria tuples of the bucket's supervisors (all of their
// expanded tuples, so a multi-language supervisor shows every value).
type MappingBucket struct {
	CriteriaValues           domain.CriteriaTuple   `json:"criteria_values"`
	EntityCount              int                    `json:"entity_count"`
	SupervisorCount          int                    `json:"supervisor_count"`
	SupervisorCriteriaValues []domain.CriteriaTuple `json:"supervisor_mapping_criteria_values,omitempty"`
	MappingStatus            string                 `json:"mapping_status"`
}

// MappingService the criteria mapping engine: computed mapping of
// targets/enumerators to bottom-level supervisors under the survey's
// active criteria set, with persisted manual overrides on top.
type MappingService interface {
	ComputeMapping(ctx context.Context, formUID, entityKind string) ([]*MappingRow, error)
	ComputeMappingSummary(ctx context.Context, formUID, entityKind string) ([]*MappingBucket, error)

	ListConfigs(ctx context.Context, formUID, entityKind string) ([]*domain.MappingConfig, error)
	PutConfig(ctx context.Context, config *domain.MappingConfig) (string, error)
	DeleteConfig(ctx context.Context, configUID string) error
	// ResetConfigs removes every override for the form and kind;
	// idempotent, a second call is a no-op returning zero.
	ResetConfigs(ctx context.Context, formUID, entityKind string) (int, error)

	GetCriteria(ctx context.Context, formUID string) ([]string, error)
	// UpdateCriteria replaces the survey's active criteria set and prunes
	// overrides referencing criteria outside the new set; returns the
	// number pruned.
	UpdateCriteria(ctx context.Context, formUID string, criteria []string) (int, error)
}

type mappingService struct {
	surveysRepo     repository.SurveysRepository
	usersRepo       repository.UsersRepository
	targetsRepo     repository.TargetsRepository
	enumeratorsRepo repository.EnumeratorsRepository
	mappingRepo     repository.MappingRepository
	locationService LocationHierarchyService
	logger          *zap.Logger
}

func NewMappingService(
	surveysRepo repository.SurveysRepository,
	usersRepo repository.UsersRepository,
	targetsRepo repository.TargetsRepository,
	enumeratorsRepo repository.EnumeratorsRepository,
	mappingRepo repository.MappingRepository,
	locationService LocationHierarchyService,
	logger *zap.Logger,
) MappingService {
	return &mappingService{
		surveysRepo:     surveysRepo,
		usersRepo:       usersRepo,
		targetsRepo:     targetsRepo,
		enumeratorsRepo: enumeratorsRepo,
		mappingRepo:     mappingRepo,
		locationService: locationService,
		logger:          logger,
	}
}

// ============================================
// Computation
// ============================================

// mappingComputation everything loaded for one compute call
type mappingComputation struct {
	entities         []*mappingEntity
	entityTuples     map[string][]domain.CriteriaTuple // entity uid -> raw tuples
	effectiveOf      func(raw domain.CriteriaTuple) domain.CriteriaTuple
	supervisorsByKey map[string]map[string]bool          // tuple key -> distinct supervisor uids
	supervisorInfo   map[string]*mappingEntity           // supervisor uid -> identity
	supervisorTuples map[string][]domain.CriteriaTuple   // supervisor uid -> expanded tuples
	locationByUID    map[string]domain.LocationAncestor  // prime location uid -> display identity
	criteriaOrder    []criterionEvaluator
}

func (s *mappingService) prepare(ctx context.Context, formUID, entityKind string) (*mappingComputation, error) {
	form, err := s.surveysRepo.GetForm(ctx, formUID)
	if err != nil {
		return nil, err
	}
	surveyUID := form.SurveyUID

	criteriaNames, err := s.mappingRepo.GetCriteria(ctx, surveyUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping criteria: %w", err)
	}
	if len(criteriaNames) == 0 {
		return nil, &domain.ConfigurationError{Message: "Mapping criteria not configured for the survey"}
	}

	entities, err := s.loadEntities(ctx, formUID, entityKind)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		if entityKind == domain.EntityKindTarget {
			return nil, &domain.ConfigurationError{Message: "Targets are not available for this form"}
		}
		return nil, &domain.ConfigurationError{Message: "Enumerators are not available for this form"}
	}

	candidates, err := s.loadSupervisorCandidates(ctx, surveyUID)
	if err != nil {
		return nil, err
	}

	// Location compression only when the Location criterion is active
	var primeByLocation map[string]string
	var locationByUID map[string]domain.LocationAncestor
	for _, n := range criteriaNames {
		if n == domain.CriterionLocation {
			survey, err := s.surveysRepo.GetSurvey(ctx, surveyUID)
			if err != nil {
				return nil, err
			}
			if !survey.PrimeGeoLevelUID.Valid {
				return nil, &domain.ConfigurationError{Message: "Prime geo level not configured"}
			}
			hierarchy, err := s.locationService.Resolve(ctx, surveyUID)
			if err != nil {
				return nil, err
			}
			primeByLocation = make(map[string]string, len(hierarchy))
			locationByUID = make(map[string]domain.LocationAncestor, len(hierarchy))
			for uid, h := range hierarchy {
				primeByLocation[uid] = h.PrimeAncestorUID
				// every chain ends at the location itself
				locationByUID[uid] = h.Ancestors[len(h.Ancestors)-1]
			}
			break
		}
	}

	evaluators, err := buildCriteria(criteriaNames, primeByLocation)
	if err != nil {
		return nil, err
	}

	comp := &mappingComputation{
		entities:         entities,
		entityTuples:     map[string][]domain.CriteriaTuple{},
		supervisorsByKey: map[string]map[string]bool{},
		supervisorInfo:   map[string]*mappingEntity{},
		supervisorTuples: map[string][]domain.CriteriaTuple{},
		locationByUID:    locationByUID,
		criteriaOrder:    evaluators,
	}

	for _, e := range entities {
		comp.entityTuples[e.UID] = expandTuples(e, evaluators)
	}
	for _, c := range candidates {
		comp.supervisorInfo[c.UID] = c
		tuples := expandTuples(c, evaluators)
		comp.supervisorTuples[c.UID] = tuples
		for _, t := range tuples {
			key := t.Key()
			if comp.supervisorsByKey[key] == nil {
				comp.supervisorsByKey[key] = map[string]bool{}
			}
			comp.supervisorsByKey[key][c.UID] = true
		}
	}

	configs, err := s.mappingRepo.ListConfigs(ctx, formUID, entityKind)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping configs: %w", err)
	}
	comp.effectiveOf = func(raw domain.CriteriaTuple) domain.CriteriaTuple {
		for _, mc := range configs {
			if raw.Equals(mc.MappingValues) {
				return mc.MappedTo
			}
		}
		return raw
	}
	return comp, nil
}

func (s *mappingService) loadEntities(ctx context.Context, formUID, entityKind string) ([]*mappingEntity, error) {
	switch entityKind {
	case domain.EntityKindTarget:
		targets, err := s.targetsRepo.ListTargets(ctx, formUID)
		if err != nil {
			return nil, fmt.Errorf("failed to list targets: %w", err)
		}
		out := make([]*mappingEntity, 0, len(targets))
		for _, t := range targets {
			e := &mappingEntity{UID: t.TargetUID, ID: t.TargetID}
			if t.Language.Valid {
				e.Languages = []string{t.Language.String}
			}
			if t.Gender.Valid {
				e.Gender = t.Gender.String
			}
			if t.LocationUID.Valid {
				e.LocationUIDs = []string{t.LocationUID.String}
			}
			out = append(out, e)
		}
		return out, nil
	case domain.EntityKindSurveyor:
		enums, err := s.enumeratorsRepo.ListByForm(ctx, formUID)
		if err != nil {
			return nil, fmt.Errorf("failed to list enumerators: %w", err)
		}
		out := make([]*mappingEntity, 0, len(enums))
		for _, en := range enums {
			e := &mappingEntity{UID: en.EnumeratorUID, ID: en.EnumeratorID, Name: en.Name, Email: en.Email}
			if en.Language.Valid {
				e.Languages = []string{en.Language.String}
			}
			if en.Gender.Valid {
				e.Gender = en.Gender.String
			}
			if en.LocationUID.Valid {
				e.LocationUIDs = []string{en.LocationUID.String}
			}
			out = append(out, e)
		}
		return out, nil
	}
	return nil, fmt.Errorf("invalid entity kind: %s", entityKind)
}

// loadSupervisorCandidates returns users at the survey's bottom
// supervisor role level (the largest configured level), with their
// multi-valued languages and locations
func (s *mappingService) loadSupervisorCandidates(ctx context.Context, surveyUID string) ([]*mappingEntity, error) {
	roles, err := s.usersRepo.ListRoles(ctx, surveyUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	if len(roles) == 0 {
		return nil, &domain.ConfigurationError{Message: "Roles not configured for the survey"}
	}
	bottomLevel := roles[0].Level
	bottomRoles := map[string]bool{}
	for _, r := range roles {
		if r.Level > bottomLevel {
			bottomLevel = r.Level
		}
	}
	for _, r := range roles {
		if r.Level == bottomLevel {
			bottomRoles[r.RoleUID] = true
		}
	}

	entries, err := s.usersRepo.ListHierarchy(ctx, surveyUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user hierarchy: %w", err)
	}
	users, err := s.usersRepo.ListUsers(ctx, surveyUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	userByUID := map[string]*domain.User{}
	for _, u := range users {
		userByUID[u.UserUID] = u
	}

	out := []*mappingEntity{}
	for _, entry := range entries {
		if !bottomRoles[entry.RoleUID] {
			continue
		}
		u, ok := userByUID[entry.UserUID]
		if !ok {
			continue
		}
		e := &mappingEntity{
			UID:          u.UserUID,
			ID:           u.Email,
			Name:         u.Name,
			Email:        u.Email,
			Languages:    []string(u.Languages),
			LocationUIDs: []string(u.LocationUIDs),
		}
		if u.Gender.Valid {
			e.Gender = u.Gender.String
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *mappingService) ComputeMapping(ctx context.Context, formUID, entityKind string) ([]*MappingRow, error) {
	comp, err := s.prepare(ctx, formUID, entityKind)
	if err != nil {
		return nil, err
	}

	out := make([]*MappingRow, 0, len(comp.entities))
	for _, e := range comp.entities {
		for _, raw := range comp.entityTuples[e.UID] {
			effective := comp.effectiveOf(raw)
			supervisors := comp.supervisorsByKey[effective.Key()]

			row := &MappingRow{
				EntityUID:       e.UID,
				EntityID:        e.ID,
				Name:            e.Name,
				CriteriaValues:  raw,
				EffectiveValues: effective,
				MappingStatus:   domain.MappingStatusPending,
			}
			if comp.locationByUID != nil {
				for _, cv := range raw {
					if cv.Criteria != domain.CriterionLocation || cv.Value == "" {
						continue
					}
					if loc, ok := comp.locationByUID[cv.Value]; ok {
						locID, locName := loc.LocationID, loc.LocationName
						row.LocationID = &locID
						row.LocationName = &locName
					}
					break
				}
			}
			if len(supervisors) == 1 {
				row.MappingStatus = domain.MappingStatusComplete
				for uid := range supervisors {
					sup := comp.supervisorInfo[uid]
					supUID, supName, supEmail := sup.UID, sup.Name, sup.Email
					row.SupervisorUID = &supUID
					row.SupervisorName = &supName
					row.SupervisorEmail = &supEmail
				}
			}
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

func (s *mappingService) ComputeMappingSummary(ctx context.Context, formUID, entityKind string) ([]*MappingBucket, error) {
	comp, err := s.prepare(ctx, formUID, entityKind)
	if err != nil {
		return nil, err
	}

	buckets := map[string]*MappingBucket{}
	for _, e := range comp.entities {
		for _, raw := range comp.entityTuples[e.UID] {
			effective := comp.effectiveOf(raw)
			key := effective.Key()
			b, ok := buckets[key]
			if !ok {
				b = &MappingBucket{
					CriteriaValues:           effective,
					SupervisorCount:          len(comp.supervisorsByKey[key]),
					SupervisorCriteriaValues: supervisorTuplesOf(comp, key),
					MappingStatus:            domain.MappingStatusPending,
				}
				if b.SupervisorCount == 1 {
					b.MappingStatus = domain.MappingStatusComplete
				}
				buckets[key] = b
			}
			b.EntityCount++
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*MappingBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, buckets[k])
	}
	return out, nil
}

// supervisorTuplesOf the deduplicated criteria tuples of every
// supervisor landing in the bucket, sorted by canonical key
func supervisorTuplesOf(comp *mappingComputation, bucketKey string) []domain.CriteriaTuple {
	var out []domain.CriteriaTuple
	seen := map[string]bool{}
	for uid := range comp.supervisorsByKey[bucketKey] {
		for _, t := range comp.supervisorTuples[uid] {
			k := t.Key()
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ============================================
// Override management
// ============================================

func (s *mappingService) ListConfigs(ctx context.Context, formUID, entityKind string) ([]*domain.MappingConfig, error) {
	if _, err := s.surveysRepo.GetForm(ctx, formUID); err != nil {
		return nil, err
	}
	return s.mappingRepo.ListConfigs(ctx, formUID, entityKind)
}

func (s *mappingService) PutConfig(ctx context.Context, config *domain.MappingConfig) (string, error) {
	if config == nil {
		return "", fmt.Errorf("config is required")
	}
	form, err := s.surveysRepo.GetForm(ctx, config.FormUID)
	if err != nil {
		return "", err
	}
	criteria, err := s.mappingRepo.GetCriteria(ctx, form.SurveyUID)
	if err != nil {
		return "", fmt.Errorf("failed to load mapping criteria: %w", err)
	}
	if len(criteria) == 0 {
		return "", &domain.ConfigurationError{Message: "Mapping criteria not configured for the survey"}
	}
	// Overrides are defined against the current criteria set only
	if !config.UsesOnlyCriteria(criteria) {
		return "", &domain.ConfigurationError{Message: "Mapping config references criteria outside the active criteria set"}
	}
	return s.mappingRepo.PutConfig(ctx, config)
}

func (s *mappingService) DeleteConfig(ctx context.Context, configUID string) error {
	return s.mappingRepo.DeleteConfig(ctx, configUID)
}

func (s *mappingService) ResetConfigs(ctx context.Context, formUID, entityKind string) (int, error) {
	if _, err := s.surveysRepo.GetForm(ctx, formUID); err != nil {
		return 0, err
	}
	removed, err := s.mappingRepo.DeleteAllConfigs(ctx, formUID, entityKind)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Mapping configs reset",
		zap.String("form_uid", formUID),
		zap.String("entity_kind", entityKind),
		zap.Int("removed", removed),
	)
	return removed, nil
}

// ============================================
// Criteria set management
// ============================================

func (s *mappingService) GetCriteria(ctx context.Context, formUID string) ([]string, error) {
	form, err := s.surveysRepo.GetForm(ctx, formUID)
	if err != nil {
		return nil, err
	}
	return s.mappingRepo.GetCriteria(ctx, form.SurveyUID)
}

func (s *mappingService) UpdateCriteria(ctx context.Context, formUID string, criteria []string) (int, error) {
	form, err := s.surveysRepo.GetForm(ctx, formUID)
	if err != nil {
		return 0, err
	}
	for _, c := range criteria {
		if !domain.ValidCriterion(c) {
			return 0, fmt.Errorf("invalid mapping criterion: %s", c)
		}
	}
	if err := s.mappingRepo.PutCriteria(ctx, form.SurveyUID, criteria); err != nil {
		return 0, err
	}
	pruned, err := s.mappingRepo.PruneStaleConfigs(ctx, form.SurveyUID, criteria)
	if err != nil {
		return 0, fmt.Errorf("failed to prune stale mapping configs: %w", err)
	}
	if pruned > 0 {
		s.logger.Info("Pruned stale mapping configs after criteria update",
			zap.String("survey_uid", form.SurveyUID),
			zap.Int("pruned", pruned),
		)
	}
	return pruned, nil
}
