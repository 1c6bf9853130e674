package domain

// Permission-gate resource names (survey_permissions.resource)
const (
	ResourceMapping     = "Mapping"
	ResourceAssignments = "Assignments"
	ResourceTargets     = "Targets"
)

// SurveyPermission one permission row for a user on a survey resource
// (survey_permissions table). Managed by the admin surface, read-only here.
type SurveyPermission struct {
	UserUID   string `db:"user_uid"`
	SurveyUID string `db:"survey_uid"`
	Resource  string `db:"resource"` // Mapping | Assignments | Targets
	CanRead   bool   `db:"can_read"`
	CanWrite  bool   `db:"can_write"`
}
