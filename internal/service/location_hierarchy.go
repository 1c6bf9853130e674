package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/repository"
)

// LocationHierarchyService resolves a survey's full location tree:
// per-location ancestor chains plus the compression to the survey's prime
// geo level. Recomputed from the flat location rows on every call,
// trading CPU for freshness.
type LocationHierarchyService interface {
	// Resolve computes the ancestor chain and prime-level ancestor for
	// every location of the survey.
	Resolve(ctx context.Context, surveyUID string) (map[string]*domain.LocationHierarchy, error)
}

type locationHierarchyService struct {
	surveysRepo repository.SurveysRepository
	logger      *zap.Logger
}

func NewLocationHierarchyService(surveysRepo repository.SurveysRepository, logger *zap.Logger) LocationHierarchyService {
	return &locationHierarchyService{
		surveysRepo: surveysRepo,
		logger:      logger,
	}
}

// Resolve builds a parent -> children index from the flat row set and
// walks it breadth-first from the level-1 roots, accumulating each
// location's chain on top of its parent's. A malformed tree (parent
// outside the survey, level skip, cycle/orphan) fails the whole
// computation rather than silently truncating chains.
func (s *locationHierarchyService) Resolve(ctx context.Context, surveyUID string) (map[string]*domain.LocationHierarchy, error) {
	survey, err := s.surveysRepo.GetSurvey(ctx, surveyUID)
	if err != nil {
		return nil, err
	}

	geoLevels, err := s.surveysRepo.ListGeoLevels(ctx, surveyUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list geo levels: %w", err)
	}
	levelByGeoUID := map[string]*domain.GeoLevel{}
	primeLevel := 0
	for _, g := range geoLevels {
		levelByGeoUID[g.GeoLevelUID] = g
	}
	if survey.PrimeGeoLevelUID.Valid {
		if g, ok := levelByGeoUID[survey.PrimeGeoLevelUID.String]; ok {
			primeLevel = g.Level
		}
	}

	locations, err := s.surveysRepo.ListLocations(ctx, surveyUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	byUID := map[string]*domain.Location{}
	children := map[string][]*domain.Location{}
	var roots []*domain.Location
	for _, l := range locations {
		byUID[l.LocationUID] = l
	}
	for _, l := range locations {
		g, ok := levelByGeoUID[l.GeoLevelUID]
		if !ok {
			return nil, &domain.IntegrityError{Message: fmt.Sprintf(
				"location %s references unknown geo level %s", l.LocationUID, l.GeoLevelUID)}
		}
		if !l.ParentLocationUID.Valid {
			if g.Level != 1 {
				return nil, &domain.IntegrityError{Message: fmt.Sprintf(
					"location %s has no parent but is at level %d", l.LocationUID, g.Level)}
			}
			roots = append(roots, l)
			continue
		}
		parent, ok := byUID[l.ParentLocationUID.String]
		if !ok {
			return nil, &domain.IntegrityError{Message: fmt.Sprintf(
				"location %s has parent %s outside the survey", l.LocationUID, l.ParentLocationUID.String)}
		}
		pg := levelByGeoUID[parent.GeoLevelUID]
		if pg == nil || g.Level != pg.Level+1 {
			return nil, &domain.IntegrityError{Message: fmt.Sprintf(
				"location %s at level %d has parent at non-adjacent level", l.LocationUID, g.Level)}
		}
		children[parent.LocationUID] = append(children[parent.LocationUID], l)
	}

	result := make(map[string]*domain.LocationHierarchy, len(locations))
	queue := roots
	for len(queue) > 0 {
		l := queue[0]
		queue = queue[1:]

		g := levelByGeoUID[l.GeoLevelUID]
		var chain []domain.LocationAncestor
		if l.ParentLocationUID.Valid {
			parent := result[l.ParentLocationUID.String]
			chain = append(chain, parent.Ancestors...)
		}
		chain = append(chain, domain.LocationAncestor{
			LocationUID:  l.LocationUID,
			Level:        g.Level,
			GeoLevelName: g.GeoLevelName,
			LocationName: l.LocationName,
			LocationID:   l.LocationID,
		})

		h := &domain.LocationHierarchy{
			LocationUID: l.LocationUID,
			Ancestors:   chain,
		}
		if primeLevel > 0 {
			for _, a := range chain {
				if a.Level == primeLevel {
					h.PrimeAncestorUID = a.LocationUID
					break
				}
			}
		}
		result[l.LocationUID] = h
		queue = append(queue, children[l.LocationUID]...)
	}

	// Unreached rows mean a cycle or an orphan subtree
	if len(result) != len(locations) {
		return nil, &domain.IntegrityError{Message: fmt.Sprintf(
			"location tree is malformed: resolved %d of %d locations", len(result), len(locations))}
	}
	return result, nil
}
