package domain

import (
	"database/sql"
)

// Form a survey's data-collection form (forms table)
// SCTOFormID is the form's id on the SurveyCTO server.
type Form struct {
	FormUID    string       `db:"form_uid"`
	SurveyUID  string       `db:"survey_uid"`
	SCTOFormID string       `db:"scto_form_id"` // NOT NULL
	FormName   string       `db:"form_name"`    // NOT NULL
	CreatedAt  sql.NullTime `db:"created_at"`
}
