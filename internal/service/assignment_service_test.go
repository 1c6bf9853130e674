package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/repository"
)

type assignmentFixture struct {
	targets     *repository.MemoryTargetsRepo
	enumerators *repository.MemoryEnumeratorsRepo
	assignments *repository.MemoryAssignmentsRepo
	svc         AssignmentService

	formUID    string
	targetUIDs []string // four targets, target_id "1".."4"
	e1, e2     string
}

func seedAssignmentFixture(t *testing.T) *assignmentFixture {
	t.Helper()

	targets := repository.NewMemoryTargetsRepo()
	enumerators := repository.NewMemoryEnumeratorsRepo()
	assignments := repository.NewMemoryAssignmentsRepo(targets, enumerators)

	formUID := "form-1"
	targetUIDs := make([]string, 0, 4)
	for i := 1; i <= 4; i++ {
		uid := targets.SeedTarget(&domain.Target{
			FormUID:  formUID,
			TargetID: fmt.Sprintf("%d", i),
		})
		targetUIDs = append(targetUIDs, uid)
	}

	e1 := enumerators.SeedEnumerator(&domain.Enumerator{
		SurveyUID: "survey-1", EnumeratorID: "EN-1", Name: "Enum One", Email: "en1@example.org",
	}, formUID, "")
	e2 := enumerators.SeedEnumerator(&domain.Enumerator{
		SurveyUID: "survey-1", EnumeratorID: "EN-2", Name: "Enum Two", Email: "en2@example.org",
	}, formUID, "")

	svc := NewAssignmentService(assignments, targets, enumerators, nil, "", zap.NewNop())
	return &assignmentFixture{
		targets: targets, enumerators: enumerators, assignments: assignments, svc: svc,
		formUID: formUID, targetUIDs: targetUIDs, e1: e1, e2: e2,
	}
}

func pairsTo(enumeratorUID string, targetUIDs ...string) []domain.AssignmentPair {
	out := make([]domain.AssignmentPair, 0, len(targetUIDs))
	for _, tUID := range targetUIDs {
		uid := enumeratorUID
		out = append(out, domain.AssignmentPair{TargetUID: tUID, EnumeratorUID: &uid})
	}
	return out
}

func TestApplyAssignments(t *testing.T) {
	fx := seedAssignmentFixture(t)
	ctx := context.Background()

	counts, err := fx.svc.ApplyAssignments(ctx, ApplyAssignmentsRequest{
		FormUID: fx.formUID,
		Pairs:   pairsTo(fx.e1, fx.targetUIDs[0], fx.targetUIDs[1]),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, counts.AssignmentsCount)
	assert.Equal(t, 2, counts.NewAssignmentsCount)
	assert.Equal(t, 0, counts.ReAssignmentsCount)

	resp, err := fx.svc.ListAssignments(ctx, ListAssignmentsRequest{FormUID: fx.formUID})
	require.NoError(t, err)
	require.Len(t, resp.Items, 4)
	assert.Nil(t, resp.Pagination)

	require.NotNil(t, resp.Items[0].AssignedEnumeratorUID)
	assert.Equal(t, fx.e1, *resp.Items[0].AssignedEnumeratorUID)
	assert.Equal(t, "EN-1", resp.Items[0].EnumeratorID.String)
	assert.Nil(t, resp.Items[2].AssignedEnumeratorUID)

	// Moving target 1 to e2 classifies as a re-assignment
	counts, err = fx.svc.ApplyAssignments(ctx, ApplyAssignmentsRequest{
		FormUID: fx.formUID,
		Pairs:   pairsTo(fx.e2, fx.targetUIDs[0]),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.ReAssignmentsCount)
	assert.Equal(t, 0, counts.NewAssignmentsCount)
}

func TestApplyAssignments_MissingTarget(t *testing.T) {
	fx := seedAssignmentFixture(t)

	_, err := fx.svc.ApplyAssignments(context.Background(), ApplyAssignmentsRequest{
		FormUID: fx.formUID,
		Pairs:   pairsTo(fx.e1, "10"),
	})
	require.Error(t, err)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "The following target_uid's were not found for this form: 10", notFound.Message)
}

func TestApplyAssignments_AtomicOnUnassignableTarget(t *testing.T) {
	fx := seedAssignmentFixture(t)
	ctx := context.Background()

	// Target 3 finished its survey and is no longer assignable
	require.NoError(t, fx.svc.UpsertTargetStatus(ctx, &domain.TargetStatus{
		TargetUID:        fx.targetUIDs[2],
		TargetAssignable: sql.NullBool{Bool: false, Valid: true},
	}))

	_, err := fx.svc.ApplyAssignments(ctx, ApplyAssignmentsRequest{
		FormUID: fx.formUID,
		Pairs:   pairsTo(fx.e1, fx.targetUIDs[0], fx.targetUIDs[1], fx.targetUIDs[2]),
	})
	var unassignable *domain.UnassignableTargetError
	require.ErrorAs(t, err, &unassignable)
	assert.Equal(t, "The following targets are not assignable: 3", err.Error())

	// The whole batch rolled back: the valid pairs did not land either
	resp, err := fx.svc.ListAssignments(ctx, ListAssignmentsRequest{FormUID: fx.formUID})
	require.NoError(t, err)
	for _, v := range resp.Items {
		assert.Nil(t, v.AssignedEnumeratorUID)
	}
}

func TestApplyAssignments_DropoutEnumeratorRejected(t *testing.T) {
	fx := seedAssignmentFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.svc.UpdateSurveyorStatus(ctx, fx.e2, fx.formUID, domain.EnumeratorStatusDropout))

	_, err := fx.svc.ApplyAssignments(ctx, ApplyAssignmentsRequest{
		FormUID: fx.formUID,
		Pairs:   pairsTo(fx.e2, fx.targetUIDs[0]),
	})
	var ineligible *domain.IneligibleEnumeratorError
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, "The following enumerators have status Dropout and cannot be assigned: EN-2", err.Error())
}

func TestUpdateSurveyorStatus_DropoutReleasesAssignments(t *testing.T) {
	fx := seedAssignmentFixture(t)
	ctx := context.Background()

	_, err := fx.svc.ApplyAssignments(ctx, ApplyAssignmentsRequest{
		FormUID: fx.formUID,
		Pairs:   pairsTo(fx.e1, fx.targetUIDs...),
	})
	require.NoError(t, err)

	require.NoError(t, fx.svc.UpdateSurveyorStatus(ctx, fx.e1, fx.formUID, domain.EnumeratorStatusDropout))

	// All four targets are unassigned again
	resp, err := fx.svc.ListAssignments(ctx, ListAssignmentsRequest{FormUID: fx.formUID})
	require.NoError(t, err)
	require.Len(t, resp.Items, 4)
	for _, v := range resp.Items {
		assert.Nil(t, v.AssignedEnumeratorUID)
	}

	// And the dropout no longer appears in productivity
	prod, err := fx.svc.Productivity(ctx, fx.formUID)
	require.NoError(t, err)
	require.Len(t, prod, 1)
	assert.Equal(t, "EN-2", prod[0].EnumeratorID)
}

func TestUpdateSurveyorStatus_TempInactiveKeepsAssignments(t *testing.T) {
	fx := seedAssignmentFixture(t)
	ctx := context.Background()

	_, err := fx.svc.ApplyAssignments(ctx, ApplyAssignmentsRequest{
		FormUID: fx.formUID,
		Pairs:   pairsTo(fx.e1, fx.targetUIDs[0]),
	})
	require.NoError(t, err)

	require.NoError(t, fx.svc.UpdateSurveyorStatus(ctx, fx.e1, fx.formUID, domain.EnumeratorStatusTempInactive))

	resp, err := fx.svc.ListAssignments(ctx, ListAssignmentsRequest{FormUID: fx.formUID})
	require.NoError(t, err)
	require.NotNil(t, resp.Items[0].AssignedEnumeratorUID)
	assert.Equal(t, fx.e1, *resp.Items[0].AssignedEnumeratorUID)
}

func TestUpdateSurveyorStatus_UnknownEnumerator(t *testing.T) {
	fx := seedAssignmentFixture(t)
	err := fx.svc.UpdateSurveyorStatus(context.Background(), "missing", fx.formUID, domain.EnumeratorStatusDropout)
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestProductivity(t *testing.T) {
	fx := seedAssignmentFixture(t)
	ctx := context.Background()

	_, err := fx.svc.ApplyAssignments(ctx, ApplyAssignmentsRequest{
		FormUID: fx.formUID,
		Pairs:   pairsTo(fx.e1, fx.targetUIDs[0], fx.targetUIDs[1]),
	})
	require.NoError(t, err)

	// Target 1 completes after assignment
	require.NoError(t, fx.svc.UpsertTargetStatus(ctx, &domain.TargetStatus{
		TargetUID:        fx.targetUIDs[0],
		TargetAssignable: sql.NullBool{Bool: false, Valid: true},
		FinalStatus:      sql.NullString{String: "Fully complete", Valid: true},
	}))

	prod, err := fx.svc.Productivity(ctx, fx.formUID)
	require.NoError(t, err)
	require.Len(t, prod, 2)

	assert.Equal(t, "EN-1", prod[0].EnumeratorID)
	assert.Equal(t, 2, prod[0].TotalAssigned)
	assert.Equal(t, 1, prod[0].TotalComplete)
	assert.Equal(t, 1, prod[0].TotalPending)

	assert.Equal(t, "EN-2", prod[1].EnumeratorID)
	assert.Equal(t, 0, prod[1].TotalAssigned)
}

func TestListAssignments_Pagination(t *testing.T) {
	fx := seedAssignmentFixture(t)
	ctx := context.Background()

	resp, err := fx.svc.ListAssignments(ctx, ListAssignmentsRequest{
		FormUID: fx.formUID, Page: 2, PerPage: 3,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, 4, resp.Pagination.Count)
	assert.Equal(t, 2, resp.Pagination.Pages)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "4", resp.Items[0].TargetID)
}

func TestListAssignments_MissingFormUID(t *testing.T) {
	fx := seedAssignmentFixture(t)
	_, err := fx.svc.ListAssignments(context.Background(), ListAssignmentsRequest{})
	require.Error(t, err)
}
