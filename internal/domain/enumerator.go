package domain

import (
	"database/sql"
)

// Enumerator form status values (surveyor_forms.status)
const (
	EnumeratorStatusActive       = "Active"
	EnumeratorStatusTempInactive = "Temp. Inactive"
	EnumeratorStatusDropout      = "Dropout"
)

// Enumerator field surveyor/monitor (enumerators table)
type Enumerator struct {
	EnumeratorUID string         `db:"enumerator_uid"`
	SurveyUID     string         `db:"survey_uid"`
	EnumeratorID  string         `db:"enumerator_id"` // NOT NULL, upload-provided id
	Name          string         `db:"name"`          // NOT NULL
	Email         string         `db:"email"`         // NOT NULL
	Language      sql.NullString `db:"language"`
	Gender        sql.NullString `db:"gender"`
	LocationUID   sql.NullString `db:"location_uid"`
}

// SurveyorForm per-form enumerator status row (surveyor_forms table)
type SurveyorForm struct {
	EnumeratorUID string `db:"enumerator_uid"`
	FormUID       string `db:"form_uid"`
	Status        string `db:"status"` // Active | Temp. Inactive | Dropout
}
