package repository

import (
	"context"
	"database/sql"

	"surveystream-data/internal/domain"
)

// AssignmentView one row of the assignments list: the target joined with
// its currently assigned enumerator (nulls when unassigned)
type AssignmentView struct {
	TargetUID             string         `json:"target_uid"`
	TargetID              string         `json:"target_id"`
	Language              sql.NullString `json:"-"`
	Gender                sql.NullString `json:"-"`
	LocationUID           sql.NullString `json:"-"`
	AssignedEnumeratorUID *string        `json:"assigned_enumerator_uid"`
	EnumeratorID          sql.NullString `json:"-"`
	EnumeratorName        sql.NullString `json:"-"`
	EnumeratorEmail       sql.NullString `json:"-"`
}

// ToJSON flattens nullable columns for the response payload
func (v AssignmentView) ToJSON() map[string]any {
	m := map[string]any{
		"target_uid":              v.TargetUID,
		"target_id":               v.TargetID,
		"assigned_enumerator_uid": v.AssignedEnumeratorUID,
	}
	if v.Language.Valid {
		m["language"] = v.Language.String
	}
	if v.Gender.Valid {
		m["gender"] = v.Gender.String
	}
	if v.LocationUID.Valid {
		m["location_uid"] = v.LocationUID.String
	}
	if v.EnumeratorID.Valid {
		m["enumerator_id"] = v.EnumeratorID.String
	}
	if v.EnumeratorName.Valid {
		m["enumerator_name"] = v.EnumeratorName.String
	}
	if v.EnumeratorEmail.Valid {
		m["enumerator_email"] = v.EnumeratorEmail.String
	}
	return m
}

// AssignmentsRepository the one-row-per-target assignment table.
//
// ApplyBatch validates and mutates inside a single transaction: it locks the
// form's current rows, loads the batch facts, runs
// domain.ValidateAssignmentBatch, classifies against the pre-mutation state
// and upserts. Any validation failure rolls the whole batch back.
type AssignmentsRepository interface {
	ListByForm(ctx context.Context, formUID string) ([]*AssignmentView, error)
	ApplyBatch(ctx context.Context, formUID string, pairs []domain.AssignmentPair) (*domain.AssignmentCounts, error)

	// ReleaseByEnumerator deletes every assignment row held by the
	// enumerator on the form (dropout release); returns freed target_uids.
	ReleaseByEnumerator(ctx context.Context, formUID, enumeratorUID string) ([]string, error)

	// Productivity computes per-enumerator totals on read against live
	// target statuses (never stored).
	Productivity(ctx context.Context, formUID string) ([]*domain.EnumeratorProductivity, error)
}
