package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/repository"
)

// mappingFixture two districts under their prime geo level, one
// bottom-level supervisor per district:
//
//	ADILABAD (prime) <- villages V1, V2 <- supervisor sup1 (Telugu)
//	NIRMAL   (prime) <- village V3      <- supervisor sup2 (Hindi, Telugu)
type mappingFixture struct {
	surveys     *repository.MemorySurveysRepo
	users       *repository.MemoryUsersRepo
	targets     *repository.MemoryTargetsRepo
	enumerators *repository.MemoryEnumeratorsRepo
	mapping     *repository.MemoryMappingRepo
	svc         MappingService

	surveyUID string
	formUID   string
	adilabad  string
	nirmal    string
	v1, v2, v3 string
	sup1, sup2 string
}

func seedMappingFixture(t *testing.T) *mappingFixture {
	t.Helper()
	ctx := context.Background()

	surveys := repository.NewMemorySurveysRepo()
	users := repository.NewMemoryUsersRepo()
	targets := repository.NewMemoryTargetsRepo()
	enumerators := repository.NewMemoryEnumeratorsRepo()
	mapping := repository.NewMemoryMappingRepo()

	surveyUID := surveys.SeedSurvey(&domain.Survey{SurveyID: "AGRI01", SurveyName: "Agri Survey"})
	distLvl := surveys.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "District", Level: 1})
	villLvl := surveys.SeedGeoLevel(&domain.GeoLevel{SurveyUID: surveyUID, GeoLevelName: "Village", Level: 2})
	require.NoError(t, surveys.SetPrimeGeoLevel(ctx, surveyUID, distLvl))

	adilabad := surveys.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: distLvl, LocationID: "101", LocationName: "ADILABAD",
	})
	nirmal := surveys.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: distLvl, LocationID: "102", LocationName: "NIRMAL",
	})
	v1 := surveys.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: villLvl,
		ParentLocationUID: sql.NullString{String: adilabad, Valid: true},
		LocationID:        "10101", LocationName: "DIMMADURTHY",
	})
	v2 := surveys.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: villLvl,
		ParentLocationUID: sql.NullString{String: adilabad, Valid: true},
		LocationID:        "10102", LocationName: "YAKARPALLY",
	})
	v3 := surveys.SeedLocation(&domain.Location{
		SurveyUID: surveyUID, GeoLevelUID: villLvl,
		ParentLocationUID: sql.NullString{String: nirmal, Valid: true},
		LocationID:        "10201", LocationName: "KUPTI",
	})

	formUID, err := surveys.CreateForm(ctx, &domain.Form{
		SurveyUID: surveyUID, SCTOFormID: "agri_round_1", FormName: "Agri Round 1",
	})
	require.NoError(t, err)
	mapping.SeedFormSurvey(formUID, surveyUID)

	coreRole := users.SeedRole(&domain.Role{SurveyUID: surveyUID, RoleName: "Core User", Level: 0})
	dcRole := users.SeedRole(&domain.Role{SurveyUID: surveyUID, RoleName: "District Coordinator", Level: 2})

	core := users.SeedUser(&domain.User{Name: "Core", Email: "core@example.org"})
	sup1 := users.SeedUser(&domain.User{
		Name: "Sup One", Email: "sup1@example.org",
		Gender:       sql.NullString{String: "Female", Valid: true},
		Languages:    pq.StringArray{"Telugu"},
		LocationUIDs: pq.StringArray{v1},
	})
	sup2 := users.SeedUser(&domain.User{
		Name: "Sup Two", Email: "sup2@example.org",
		Gender:       sql.NullString{String: "Male", Valid: true},
		Languages:    pq.StringArray{"Hindi", "Telugu"},
		LocationUIDs: pq.StringArray{v3},
	})

	users.SeedHierarchyEntry(&domain.UserHierarchyEntry{UserUID: core, SurveyUID: surveyUID, RoleUID: coreRole})
	users.SeedHierarchyEntry(&domain.UserHierarchyEntry{
		UserUID: sup1, SurveyUID: surveyUID, RoleUID: dcRole,
		ParentUserUID: sql.NullString{String: core, Valid: true},
	})
	users.SeedHierarchyEntry(&domain.UserHierarchyEntry{
		UserUID: sup2, SurveyUID: surveyUID, RoleUID: dcRole,
		ParentUserUID: sql.NullString{String: core, Valid: true},
	})

	targets.SeedTarget(&domain.Target{
		FormUID: formUID, TargetID: "1",
		Language:    sql.NullString{String: "Telugu", Valid: true},
		LocationUID: sql.NullString{String: v1, Valid: true},
	})
	targets.SeedTarget(&domain.Target{
		FormUID: formUID, TargetID: "2",
		Language:    sql.NullString{String: "Hindi", Valid: true},
		LocationUID: sql.NullString{String: v2, Valid: true},
	})
	targets.SeedTarget(&domain.Target{
		FormUID: formUID, TargetID: "3",
		Language:    sql.NullString{String: "Hindi", Valid: true},
		LocationUID: sql.NullString{String: v3, Valid: true},
	})

	locSvc := NewLocationHierarchyService(surveys, zap.NewNop())
	svc := NewMappingService(surveys, users, targets, enumerators, mapping, locSvc, zap.NewNop())

	return &mappingFixture{
		surveys: surveys, users: users, targets: targets,
		enumerators: enumerators, mapping: mapping, svc: svc,
		surveyUID: surveyUID, formUID: formUID,
		adilabad: adilabad, nirmal: nirmal,
		v1: v1, v2: v2, v3: v3, sup1: sup1, sup2: sup2,
	}
}

func (fx *mappingFixture) setCriteria(t *testing.T, criteria ...string) {
	t.Helper()
	require.NoError(t, fx.mapping.PutCriteria(context.Background(), fx.surveyUID, criteria))
}

func TestComputeMapping_LocationCriterion(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionLocation)

	rows, err := fx.svc.ComputeMapping(context.Background(), fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Targets 1 and 2 compress to ADILABAD, covered by sup1 alone
	assert.Equal(t, "1", rows[0].EntityID)
	assert.Equal(t, domain.MappingStatusComplete, rows[0].MappingStatus)
	require.NotNil(t, rows[0].SupervisorUID)
	assert.Equal(t, fx.sup1, *rows[0].SupervisorUID)
	assert.Equal(t, "sup1@example.org", *rows[0].SupervisorEmail)

	assert.Equal(t, domain.MappingStatusComplete, rows[1].MappingStatus)
	assert.Equal(t, fx.sup1, *rows[1].SupervisorUID)

	// Target 3 compresses to NIRMAL, covered by sup2
	assert.Equal(t, "3", rows[2].EntityID)
	assert.Equal(t, fx.sup2, *rows[2].SupervisorUID)

	// Raw tuple carries the prime ancestor uid, not the village uid
	assert.Equal(t, domain.CriteriaTuple{{Criteria: "Location", Value: fx.adilabad}}, rows[0].CriteriaValues)
	assert.Equal(t, rows[0].CriteriaValues, rows[0].EffectiveValues)

	// Rows carry the prime ancestor's display identity alongside its uid
	require.NotNil(t, rows[0].LocationID)
	assert.Equal(t, "101", *rows[0].LocationID)
	assert.Equal(t, "ADILABAD", *rows[0].LocationName)
	require.NotNil(t, rows[2].LocationName)
	assert.Equal(t, "102", *rows[2].LocationID)
	assert.Equal(t, "NIRMAL", *rows[2].LocationName)
}

func TestComputeMapping_NoLocationDisplayWithoutLocationCriterion(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionLanguage)

	rows, err := fx.svc.ComputeMapping(context.Background(), fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)
	for _, r := range rows {
		assert.Nil(t, r.LocationID)
		assert.Nil(t, r.LocationName)
	}
}

func TestComputeMapping_PendingOnMultipleSupervisors(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionLocation)

	// Second supervisor covering ADILABAD makes the bucket ambiguous
	extra := fx.users.SeedUser(&domain.User{
		Name: "Sup Extra", Email: "sup3@example.org",
		LocationUIDs: pq.StringArray{fx.v2},
	})
	dcRole := findRoleByName(t, fx.users, fx.surveyUID, "District Coordinator")
	fx.users.SeedHierarchyEntry(&domain.UserHierarchyEntry{
		UserUID: extra, SurveyUID: fx.surveyUID, RoleUID: dcRole,
	})

	rows, err := fx.svc.ComputeMapping(context.Background(), fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)

	assert.Equal(t, domain.MappingStatusPending, rows[0].MappingStatus)
	assert.Nil(t, rows[0].SupervisorUID)
	// NIRMAL is unaffected
	assert.Equal(t, domain.MappingStatusComplete, rows[2].MappingStatus)
}

func findRoleByName(t *testing.T, users *repository.MemoryUsersRepo, surveyUID, name string) string {
	t.Helper()
	roles, err := users.ListRoles(context.Background(), surveyUID)
	require.NoError(t, err)
	for _, r := range roles {
		if r.RoleName == name {
			return r.RoleUID
		}
	}
	t.Fatalf("role %s not found", name)
	return ""
}

func TestComputeMapping_LanguageCriterion(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionLanguage)

	rows, err := fx.svc.ComputeMapping(context.Background(), fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Telugu is spoken by both supervisors: ambiguous
	assert.Equal(t, "1", rows[0].EntityID)
	assert.Equal(t, domain.MappingStatusPending, rows[0].MappingStatus)

	// Hindi is spoken only by sup2
	assert.Equal(t, domain.MappingStatusComplete, rows[1].MappingStatus)
	assert.Equal(t, fx.sup2, *rows[1].SupervisorUID)
	assert.Equal(t, fx.sup2, *rows[2].SupervisorUID)
}

func TestComputeMapping_OverridePrecedence(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionLanguage)
	ctx := context.Background()

	// A Marathi target has no matching supervisor
	fx.targets.SeedTarget(&domain.Target{
		FormUID: fx.formUID, TargetID: "4",
		Language: sql.NullString{String: "Marathi", Valid: true},
	})
	rows, err := fx.svc.ComputeMapping(ctx, fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, domain.MappingStatusPending, rows[3].MappingStatus)

	// Overriding Marathi -> Hindi re-buckets it under sup2
	configUID, err := fx.svc.PutConfig(ctx, &domain.MappingConfig{
		FormUID:       fx.formUID,
		EntityKind:    domain.EntityKindTarget,
		MappingValues: domain.CriteriaTuple{{Criteria: "Language", Value: "Marathi"}},
		MappedTo:      domain.CriteriaTuple{{Criteria: "Language", Value: "Hindi"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, configUID)

	rows, err = fx.svc.ComputeMapping(ctx, fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)
	marathi := rows[3]
	assert.Equal(t, domain.MappingStatusComplete, marathi.MappingStatus)
	assert.Equal(t, fx.sup2, *marathi.SupervisorUID)
	// Raw tuple is preserved alongside the effective one
	assert.Equal(t, "Marathi", marathi.CriteriaValues[0].Value)
	assert.Equal(t, "Hindi", marathi.EffectiveValues[0].Value)

	// Deleting the override reverts the bucket
	require.NoError(t, fx.svc.DeleteConfig(ctx, configUID))
	rows, err = fx.svc.ComputeMapping(ctx, fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)
	assert.Equal(t, domain.MappingStatusPending, rows[3].MappingStatus)
}

func TestComputeMappingSummary(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionLanguage)

	buckets, err := fx.svc.ComputeMappingSummary(context.Background(), fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	byLang := map[string]*MappingBucket{}
	for _, b := range buckets {
		byLang[b.CriteriaValues[0].Value] = b
	}
	require.Contains(t, byLang, "Hindi")
	require.Contains(t, byLang, "Telugu")

	assert.Equal(t, 2, byLang["Hindi"].EntityCount)
	assert.Equal(t, 1, byLang["Hindi"].SupervisorCount)
	assert.Equal(t, domain.MappingStatusComplete, byLang["Hindi"].MappingStatus)

	assert.Equal(t, 1, byLang["Telugu"].EntityCount)
	assert.Equal(t, 2, byLang["Telugu"].SupervisorCount)
	assert.Equal(t, domain.MappingStatusPending, byLang["Telugu"].MappingStatus)

	// Buckets expose their supervisors' criteria values; sup2 speaks both
	// languages, so the Hindi bucket shows Telugu as well
	assert.Equal(t, []domain.CriteriaTuple{
		{{Criteria: "Language", Value: "Hindi"}},
		{{Criteria: "Language", Value: "Telugu"}},
	}, byLang["Hindi"].SupervisorCriteriaValues)
	assert.Equal(t, []domain.CriteriaTuple{
		{{Criteria: "Language", Value: "Hindi"}},
		{{Criteria: "Language", Value: "Telugu"}},
	}, byLang["Telugu"].SupervisorCriteriaValues)
}

func TestComputeMapping_SurveyorEntities(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionLanguage)

	fx.enumerators.SeedEnumerator(&domain.Enumerator{
		SurveyUID: fx.surveyUID, EnumeratorID: "EN-1", Name: "Enum One", Email: "en1@example.org",
		Language: sql.NullString{String: "Hindi", Valid: true},
	}, fx.formUID, "")

	rows, err := fx.svc.ComputeMapping(context.Background(), fx.formUID, domain.EntityKindSurveyor)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "EN-1", rows[0].EntityID)
	assert.Equal(t, domain.MappingStatusComplete, rows[0].MappingStatus)
	assert.Equal(t, fx.sup2, *rows[0].SupervisorUID)
}

func TestComputeMapping_ManualCriterion(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionManual)

	// Manual collapses everything into one bucket with both supervisors
	buckets, err := fx.svc.ComputeMappingSummary(context.Background(), fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, 3, buckets[0].EntityCount)
	assert.Equal(t, 2, buckets[0].SupervisorCount)
	assert.Equal(t, domain.MappingStatusPending, buckets[0].MappingStatus)
}

// ============================================
// Configuration errors
// ============================================

func TestComputeMapping_NoCriteria(t *testing.T) {
	fx := seedMappingFixture(t)

	_, err := fx.svc.ComputeMapping(context.Background(), fx.formUID, domain.EntityKindTarget)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Mapping criteria not configured for the survey", cfgErr.Message)
}

func TestComputeMapping_NoPrimeGeoLevel(t *testing.T) {
	ctx := context.Background()
	surveys := repository.NewMemorySurveysRepo()
	users := repository.NewMemoryUsersRepo()
	targets := repository.NewMemoryTargetsRepo()
	enumerators := repository.NewMemoryEnumeratorsRepo()
	mapping := repository.NewMemoryMappingRepo()

	surveyUID := surveys.SeedSurvey(&domain.Survey{SurveyID: "S1", SurveyName: "S1"})
	formUID, err := surveys.CreateForm(ctx, &domain.Form{SurveyUID: surveyUID, SCTOFormID: "f1", FormName: "F1"})
	require.NoError(t, err)
	mapping.SeedFormSurvey(formUID, surveyUID)
	require.NoError(t, mapping.PutCriteria(ctx, surveyUID, []string{domain.CriterionLocation}))

	role := users.SeedRole(&domain.Role{SurveyUID: surveyUID, RoleName: "DC", Level: 1})
	sup := users.SeedUser(&domain.User{Name: "S", Email: "s@example.org"})
	users.SeedHierarchyEntry(&domain.UserHierarchyEntry{UserUID: sup, SurveyUID: surveyUID, RoleUID: role})
	targets.SeedTarget(&domain.Target{FormUID: formUID, TargetID: "1"})

	locSvc := NewLocationHierarchyService(surveys, zap.NewNop())
	svc := NewMappingService(surveys, users, targets, enumerators, mapping, locSvc, zap.NewNop())

	_, err = svc.ComputeMapping(ctx, formUID, domain.EntityKindTarget)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Prime geo level not configured", cfgErr.Message)
}

func TestComputeMapping_NoTargets(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionLanguage)

	// Surveyor mapping with no enumerators on the form
	_, err := fx.svc.ComputeMapping(context.Background(), fx.formUID, domain.EntityKindSurveyor)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Enumerators are not available for this form", cfgErr.Message)
}

func TestComputeMapping_NoRoles(t *testing.T) {
	ctx := context.Background()
	surveys := repository.NewMemorySurveysRepo()
	users := repository.NewMemoryUsersRepo()
	targets := repository.NewMemoryTargetsRepo()
	enumerators := repository.NewMemoryEnumeratorsRepo()
	mapping := repository.NewMemoryMappingRepo()

	surveyUID := surveys.SeedSurvey(&domain.Survey{SurveyID: "S1", SurveyName: "S1"})
	formUID, err := surveys.CreateForm(ctx, &domain.Form{SurveyUID: surveyUID, SCTOFormID: "f1", FormName: "F1"})
	require.NoError(t, err)
	mapping.SeedFormSurvey(formUID, surveyUID)
	require.NoError(t, mapping.PutCriteria(ctx, surveyUID, []string{domain.CriterionLanguage}))
	targets.SeedTarget(&domain.Target{FormUID: formUID, TargetID: "1"})

	locSvc := NewLocationHierarchyService(surveys, zap.NewNop())
	svc := NewMappingService(surveys, users, targets, enumerators, mapping, locSvc, zap.NewNop())

	_, err = svc.ComputeMapping(ctx, formUID, domain.EntityKindTarget)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Roles not configured for the survey", cfgErr.Message)
}

// ============================================
// Config and criteria management
// ============================================

func TestPutConfig_RejectsInactiveCriteria(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionLanguage)

	_, err := fx.svc.PutConfig(context.Background(), &domain.MappingConfig{
		FormUID:       fx.formUID,
		EntityKind:    domain.EntityKindTarget,
		MappingValues: domain.CriteriaTuple{{Criteria: "Gender", Value: "Female"}},
		MappedTo:      domain.CriteriaTuple{{Criteria: "Gender", Value: "Male"}},
	})
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestResetConfigs_Idempotent(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionLanguage)
	ctx := context.Background()

	_, err := fx.svc.PutConfig(ctx, &domain.MappingConfig{
		FormUID:       fx.formUID,
		EntityKind:    domain.EntityKindTarget,
		MappingValues: domain.CriteriaTuple{{Criteria: "Language", Value: "Marathi"}},
		MappedTo:      domain.CriteriaTuple{{Criteria: "Language", Value: "Hindi"}},
	})
	require.NoError(t, err)

	removed, err := fx.svc.ResetConfigs(ctx, fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = fx.svc.ResetConfigs(ctx, fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestUpdateCriteria_PrunesStaleConfigs(t *testing.T) {
	fx := seedMappingFixture(t)
	fx.setCriteria(t, domain.CriterionLocation, domain.CriterionLanguage)
	ctx := context.Background()

	_, err := fx.svc.PutConfig(ctx, &domain.MappingConfig{
		FormUID:    fx.formUID,
		EntityKind: domain.EntityKindTarget,
		MappingValues: domain.CriteriaTuple{
			{Criteria: "Location", Value: fx.adilabad},
			{Criteria: "Language", Value: "Marathi"},
		},
		MappedTo: domain.CriteriaTuple{
			{Criteria: "Location", Value: fx.adilabad},
			{Criteria: "Language", Value: "Hindi"},
		},
	})
	require.NoError(t, err)

	// Dropping Language from the criteria set prunes the override
	pruned, err := fx.svc.UpdateCriteria(ctx, fx.formUID, []string{domain.CriterionLocation})
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	configs, err := fx.svc.ListConfigs(ctx, fx.formUID, domain.EntityKindTarget)
	require.NoError(t, err)
	assert.Empty(t, configs)

	got, err := fx.svc.GetCriteria(ctx, fx.formUID)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.CriterionLocation}, got)
}

func TestUpdateCriteria_RejectsUnknownCriterion(t *testing.T) {
	fx := seedMappingFixture(t)
	_, err := fx.svc.UpdateCriteria(context.Background(), fx.formUID, []string{"Age"})
	require.Error(t, err)
}
