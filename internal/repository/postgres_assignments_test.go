package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveystream-data/internal/domain"
)

func newAssignmentsMock(t *testing.T) (*PostgresAssignmentsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresAssignmentsRepository(db), mock
}

func expectBatchFacts(mock sqlmock.Sqlmock, formUID string) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM targets t")).
		WithArgs(formUID).
		WillReturnRows(sqlmock.NewRows([]string{"target_uid", "target_id", "target_assignable"}).
			AddRow("t1", "1", nil).
			AddRow("t2", "2", nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM enumerators e")).
		WithArgs(formUID).
		WillReturnRows(sqlmock.NewRows([]string{"enumerator_uid", "enumerator_id", "status"}).
			AddRow("e1", "EN-1", "Active").
			AddRow("e2", "EN-2", "Active"))
}

func TestPostgresApplyBatch(t *testing.T) {
	repo, mock := newAssignmentsMock(t)
	formUID := "form-1"
	e2 := "e2"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(formUID).
		WillReturnRows(sqlmock.NewRows([]string{"target_uid", "enumerator_uid"}).
			AddRow("t1", "e1"))
	expectBatchFacts(mock, formUID)

	upsert := regexp.QuoteMeta("INSERT INTO assignments")
	mock.ExpectExec(upsert).WithArgs("t1", "e2", formUID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsert).WithArgs("t2", "e2", formUID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	counts, err := repo.ApplyBatch(context.Background(), formUID, []domain.AssignmentPair{
		{TargetUID: "t1", EnumeratorUID: &e2},
		{TargetUID: "t2", EnumeratorUID: &e2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, counts.AssignmentsCount)
	assert.Equal(t, 1, counts.NewAssignmentsCount)
	assert.Equal(t, 1, counts.ReAssignmentsCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A validation failure rolls the transaction back before any write
func TestPostgresApplyBatch_RollbackOnMissingTarget(t *testing.T) {
	repo, mock := newAssignmentsMock(t)
	formUID := "form-1"
	e1 := "e1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(formUID).
		WillReturnRows(sqlmock.NewRows([]string{"target_uid", "enumerator_uid"}))
	expectBatchFacts(mock, formUID)
	mock.ExpectRollback()

	_, err := repo.ApplyBatch(context.Background(), formUID, []domain.AssignmentPair{
		{TargetUID: "t1", EnumeratorUID: &e1},
		{TargetUID: "10", EnumeratorUID: &e1},
	})
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "The following target_uid's were not found for this form: 10", notFound.Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyBatch_UnassignableRollsBack(t *testing.T) {
	repo, mock := newAssignmentsMock(t)
	formUID := "form-1"
	e1 := "e1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(formUID).
		WillReturnRows(sqlmock.NewRows([]string{"target_uid", "enumerator_uid"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM targets t")).
		WithArgs(formUID).
		WillReturnRows(sqlmock.NewRows([]string{"target_uid", "target_id", "target_assignable"}).
			AddRow("t1", "1", true).
			AddRow("t2", "2", false))
	mock.ExpectQuery(regexp.QuoteMeta("FROM enumerators e")).
		WithArgs(formUID).
		WillReturnRows(sqlmock.NewRows([]string{"enumerator_uid", "enumerator_id", "status"}).
			AddRow("e1", "EN-1", "Active"))
	mock.ExpectRollback()

	_, err := repo.ApplyBatch(context.Background(), formUID, []domain.AssignmentPair{
		{TargetUID: "t1", EnumeratorUID: &e1},
		{TargetUID: "t2", EnumeratorUID: &e1},
	})
	var unassignable *domain.UnassignableTargetError
	require.ErrorAs(t, err, &unassignable)
	assert.Equal(t, []string{"2"}, unassignable.TargetIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyBatch_EmptyBatch(t *testing.T) {
	repo, mock := newAssignmentsMock(t)

	counts, err := repo.ApplyBatch(context.Background(), "form-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.AssignmentsCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReleaseByEnumerator(t *testing.T) {
	repo, mock := newAssignmentsMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM assignments")).
		WithArgs("form-1", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"target_uid"}).
			AddRow("t1").
			AddRow("t2"))

	released, err := repo.ReleaseByEnumerator(context.Background(), "form-1", "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, released)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProductivity(t *testing.T) {
	repo, mock := newAssignmentsMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM enumerators e")).
		WithArgs("form-1").
		WillReturnRows(sqlmock.NewRows([]string{"enumerator_uid", "enumerator_id", "name", "total_assigned", "total_complete"}).
			AddRow("e1", "EN-1", "Enum One", 5, 2))

	prod, err := repo.Productivity(context.Background(), "form-1")
	require.NoError(t, err)
	require.Len(t, prod, 1)
	assert.Equal(t, 5, prod[0].TotalAssigned)
	assert.Equal(t, 2, prod[0].TotalComplete)
	assert.Equal(t, 3, prod[0].TotalPending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByForm(t *testing.T) {
	repo, mock := newAssignmentsMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN assignments a")).
		WithArgs("form-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"target_uid", "target_id", "language", "gender", "location_uid",
			"enumerator_uid", "enumerator_id", "name", "email",
		}).
			AddRow("t1", "1", "Telugu", "Female", "loc-1", "e1", "EN-1", "Enum One", "en1@example.org").
			AddRow("t2", "2", nil, nil, nil, nil, nil, nil, nil))

	views, err := repo.ListByForm(context.Background(), "form-1")
	require.NoError(t, err)
	require.Len(t, views, 2)

	require.NotNil(t, views[0].AssignedEnumeratorUID)
	assert.Equal(t, "e1", *views[0].AssignedEnumeratorUID)
	assert.Equal(t, "EN-1", views[0].EnumeratorID.String)
	assert.Nil(t, views[1].AssignedEnumeratorUID)
	assert.False(t, views[1].Language.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}
