package domain

import (
	"database/sql"
)

// Target survey respondent/unit (targets table)
// LocationUID is the target's own location, not necessarily at the
// survey's prime geo level.
type Target struct {
	TargetUID   string         `db:"target_uid"`
	FormUID     string         `db:"form_uid"`
	TargetID    string         `db:"target_id"` // NOT NULL, upload-provided id
	Language    sql.NullString `db:"language"`
	Gender      sql.NullString `db:"gender"`
	LocationUID sql.NullString `db:"location_uid"`
}

// TargetStatus derived survey-progress status (target_statuses table)
// Written by the data-quality pipeline, read-only here.
// TargetAssignable semantics: NULL = not yet computed, treated as
// assignable; false = survey complete, blocks the whole batch.
type TargetStatus struct {
	TargetUID        string       `db:"target_uid"`
	TargetAssignable sql.NullBool `db:"target_assignable"`
	FinalStatus      sql.NullString `db:"final_status"`
}
