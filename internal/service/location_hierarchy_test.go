package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/repository"
)

// seedLocationTree a three-level State > District > Village tree:
//
//	TELANGANA
//	  ADILABAD
//	    DIMMADURTHY
//	    YAKARPALLY
//	  NIRMAL
//	    KUPTI
//
// Prime geo level is District.
type locationFixture struct {
	repo      *repository.MemorySurveysRepo
	surveyUID string

	state     string
	adilabad  string
	nirmal    string
	villages  map[string]string // name -> uid
	primeUID  string
	stateLvl  string
	distLvl   string
	villLvl   string
}

func seedLocationTree(t *testing.T) *locationFixture {
	t.Helper()
	repo := repository.NewMemorySurveysRepo()

	surveyUID := repo.SeedSurvey(&domain.Survey{SurveyID: "AGRI01", SurveyName: "Agri Survey"})

	stateLvl := repo.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "State", Level: 1})
	distLvl := repo.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "District", Level: 2})
	villLvl := repo.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "Village", Level: 3})
	require.NoError(t, repo.SetPrimeGeoLevel(context.Background(), surveyUID, distLvl))

	state := repo.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: stateLvl,
		LocationID: "1", LocationName: "TELANGANA",
	})
	adilabad := repo.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: distLvl,
		ParentLocationUID: sql.NullString{String: state, Valid: true},
		LocationID:        "101", LocationName: "ADILABAD",
	})
	nirmal := repo.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: distLvl,
		ParentLocationUID: sql.NullString{String: state, Valid: true},
		LocationID:        "102", LocationName: "NIRMAL",
	})

	villages := map[string]string{}
	villages["DIMMADURTHY"] = repo.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: villLvl,
		ParentLocationUID: sql.NullString{String: adilabad, Valid: true},
		LocationID:        "10101", LocationName: "DIMMADURTHY",
	})
	villages["YAKARPALLY"] = repo.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: villLvl,
		ParentLocationUID: sql.NullString{String: adilabad, Valid: true},
		LocationID:        "10102", LocationName: "YAKARPALLY",
	})
	villages["KUPTI"] = repo.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: villLvl,
		ParentLocationUID: sql.NullString{String: nirmal, Valid: true},
		LocationID:        "10201", LocationName: "KUPTI",
	})

	return &locationFixture{
		repo: repo, surveyUID: surveyUID,
		state: state, adilabad: adilabad, nirmal: nirmal,
		villages: villages, primeUID: distLvl,
		stateLvl: stateLvl, distLvl: distLvl, villLvl: villLvl,
	}
}

func TestLocationHierarchyResolve(t *testing.T) {
	fx := seedLocationTree(t)
	svc := NewLocationHierarchyService(fx.repo, zap.NewNop())

	result, err := svc.Resolve(context.Background(), fx.surveyUID)
	require.NoError(t, err)
	assert.Len(t, result, 6)

	// Chain length equals the location's level, levels strictly increase
	// and the chain ends at the location itself
	for uid, h := range result {
		require.NotEmpty(t, h.Ancestors)
		last := h.Ancestors[len(h.Ancestors)-1]
		assert.Equal(t, uid, last.LocationUID)
		assert.Equal(t, last.Level, len(h.Ancestors))
		for i := 1; i < len(h.Ancestors); i++ {
			assert.Equal(t, h.Ancestors[i-1].Level+1, h.Ancestors[i].Level)
		}
	}

	// Villages compress to their district at the prime geo level
	dimm := result[fx.villages["DIMMADURTHY"]]
	require.NotNil(t, dimm)
	assert.Equal(t, fx.adilabad, dimm.PrimeAncestorUID)
	assert.Equal(t, []string{"TELANGANA", "ADILABAD", "DIMMADURTHY"}, ancestorNames(dimm))

	kupti := result[fx.villages["KUPTI"]]
	assert.Equal(t, fx.nirmal, kupti.PrimeAncestorUID)

	// A prime-level location is its own prime ancestor; the root is above
	// the prime level and has none
	assert.Equal(t, fx.adilabad, result[fx.adilabad].PrimeAncestorUID)
	assert.Empty(t, result[fx.state].PrimeAncestorUID)
}

func ancestorNames(h *domain.LocationHierarchy) []string {
	out := make([]string, 0, len(h.Ancestors))
	for _, a := range h.Ancestors {
		out = append(out, a.LocationName)
	}
	return out
}

func TestLocationHierarchyResolve_NoPrimeGeoLevel(t *testing.T) {
	repo := repository.NewMemorySurveysRepo()
	surveyUID := repo.SeedSurvey(&domain.Survey{SurveyID: "S1", SurveyName: "S1"})
	lvl := repo.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "District", Level: 1})
	loc := repo.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: lvl, LocationID: "1", LocationName: "A",
	})

	svc := NewLocationHierarchyService(repo, zap.NewNop())
	result, err := svc.Resolve(context.Background(), surveyUID)
	require.NoError(t, err)
	// Resolution still works; compression is simply unavailable
	assert.Empty(t, result[loc].PrimeAncestorUID)
}

func TestLocationHierarchyResolve_RootAtWrongLevel(t *testing.T) {
	repo := repository.NewMemorySurveysRepo()
	surveyUID := repo.SeedSurvey(&domain.Survey{SurveyID: "S1", SurveyName: "S1"})
	repo.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "State", Level: 1})
	distLvl := repo.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "District", Level: 2})

	// District without a parent
	repo.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: distLvl, LocationID: "101", LocationName: "ADILABAD",
	})

	svc := NewLocationHierarchyService(repo, zap.NewNop())
	_, err := svc.Resolve(context.Background(), surveyUID)
	var integrity *domain.IntegrityError
	require.ErrorAs(t, err, &integrity)
}

func TestLocationHierarchyResolve_NonAdjacentParent(t *testing.T) {
	repo := repository.NewMemorySurveysRepo()
	surveyUID := repo.SeedSurvey(&domain.Survey{SurveyID: "S1", SurveyName: "S1"})
	stateLvl := repo.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "State", Level: 1})
	repo.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "District", Level: 2})
	villLvl := repo.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "Village", Level: 3})

	state := repo.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: stateLvl, LocationID: "1", LocationName: "TELANGANA",
	})
	// Village parented directly to the state, skipping the district level
	repo.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: villLvl,
		ParentLocationUID: sql.NullString{String: state, Valid: true},
		LocationID:        "10101", LocationName: "DIMMADURTHY",
	})

	svc := NewLocationHierarchyService(repo, zap.NewNop())
	_, err := svc.Resolve(context.Background(), surveyUID)
	var integrity *domain.IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Contains(t, integrity.Message, "non-adjacent")
}

func TestLocationHierarchyResolve_Cycle(t *testing.T) {
	repo := repository.NewMemorySurveysRepo()
	surveyUID := repo.SeedSurvey(&domain.Survey{SurveyID: "S1", SurveyName: "S1"})
	distLvl := repo.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "District", Level: 1})
	villLvl := repo.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "Village", Level: 2})

	// Two villages pointing at each other instead of a district
	repo.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: distLvl, LocationID: "101", LocationName: "ADILABAD",
	})
	v1 := "v1-cycle"
	v2 := "v2-cycle"
	repo.SeedLocation(&domain.Location{
		LocationUID: v1, SurveyUID: surveyUID, GeoLevelUID: villLvl,
		ParentLocationUID: sql.NullString{String: v2, Valid: true},
		LocationID:        "10101", LocationName: "A",
	})
	repo.SeedLocation(&domain.Location{
		LocationUID: v2, SurveyUID: surveyUID, GeoLevelUID: villLvl,
		ParentLocationUID: sql.NullString{String: v1, Valid: true},
		LocationID:        "10102", LocationName: "B",
	})

	svc := NewLocationHierarchyService(repo, zap.NewNop())
	_, err := svc.Resolve(context.Background(), surveyUID)
	var integrity *domain.IntegrityError
	require.ErrorAs(t, err, &integrity)
}

func TestLocationHierarchyResolve_SurveyNotFound(t *testing.T) {
	repo := repository.NewMemorySurveysRepo()
	svc := NewLocationHierarchyService(repo, zap.NewNop())
	_, err := svc.Resolve(context.Background(), "missing")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
