package domain

import (
	"database/sql"
)

// Survey survey domain model (surveys table)
type Survey struct {
	SurveyUID        string         `db:"survey_uid"`
	SurveyID         string         `db:"survey_id"`   // human-readable short code
	SurveyName       string         `db:"survey_name"` // NOT NULL
	PrimeGeoLevelUID sql.NullString `db:"prime_geo_level_uid"` // nullable: unset until configured
	CreatedAt        sql.NullTime   `db:"created_at"`
	UpdatedAt        sql.NullTime   `db:"updated_at"`
}

// GeoLevel one level of a survey's location tree (geo_levels table)
// Level 1 is the top of the tree; levels are unique per survey.
type GeoLevel struct {
	GeoLevelUID  string `db:"geo_level_uid"`
	SurveyUID    string `db:"survey_uid"`
	GeoLevelName string `db:"geo_level_name"` // NOT NULL, e.g. "State", "District"
	Level        int    `db:"level"`          // NOT NULL, 1-based
}

// Location one node of a survey's location tree (locations table)
// Every non-root location has exactly one parent at the immediately
// preceding geo level.
type Location struct {
	LocationUID       string         `db:"location_uid"`
	SurveyUID         string         `db:"survey_uid"`
	GeoLevelUID       string         `db:"geo_level_uid"`
	ParentLocationUID sql.NullString `db:"parent_location_uid"` // nullable: NULL for level-1 roots
	LocationID        string         `db:"location_id"`         // NOT NULL, upload-provided code
	LocationName      string         `db:"location_name"`       // NOT NULL
}

// LocationAncestor one step of a location's resolved ancestor chain
type LocationAncestor struct {
	LocationUID  string `json:"location_uid"`
	Level        int    `json:"level"`
	GeoLevelName string `json:"geo_level_name"`
	LocationName string `json:"location_name"`
	LocationID   string `json:"location_id"`
}

// LocationHierarchy resolved hierarchy entry for one location.
// Ancestors are ordered root-first and end with the location itself.
// PrimeAncestorUID is empty when the survey has no prime geo level
// configured or the chain does not reach it.
type LocationHierarchy struct {
	LocationUID      string             `json:"location_uid"`
	Ancestors        []LocationAncestor `json:"ancestors"`
	PrimeAncestorUID string             `json:"prime_ancestor_uid"`
}
