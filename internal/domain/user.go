package domain

import (
	"database/sql"

	"github.com/lib/pq"
)

// Role survey role (roles table)
// Level 0 is the core team; larger levels are more junior. The largest
// configured level is the bottom supervisor level, i.e. the pool of
// supervisor candidates for mapping.
type Role struct {
	RoleUID   string `db:"role_uid"`
	SurveyUID string `db:"survey_uid"`
	RoleName  string `db:"role_name"` // NOT NULL
	Level     int    `db:"level"`     // NOT NULL, 0 = core
}

// User user domain model (users table)
// Languages and LocationUIDs are multi-valued: a supervisor speaking two
// languages appears as two virtual candidates during mapping.
type User struct {
	UserUID      string         `db:"user_uid"`
	Name         string         `db:"name"`  // NOT NULL
	Email        string         `db:"email"` // NOT NULL
	Gender       sql.NullString `db:"gender"`
	Languages    pq.StringArray `db:"languages"`     // from user_languages
	LocationUIDs pq.StringArray `db:"location_uids"` // from user_locations
}

// UserHierarchyEntry one node of a survey's user/role tree (user_hierarchy table)
// A user has at most one entry per survey; level increases strictly from
// parent to child.
type UserHierarchyEntry struct {
	UserUID       string         `db:"user_uid"`
	SurveyUID     string         `db:"survey_uid"`
	RoleUID       string         `db:"role_uid"`
	ParentUserUID sql.NullString `db:"parent_user_uid"` // nullable: NULL for core users
}

// UserAncestor one step of a user's resolved supervisor chain,
// ordered most senior (lowest role level) first
type UserAncestor struct {
	UserUID  string `json:"user_uid"`
	RoleName string `json:"role_name"`
	Level    int    `json:"level"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}
