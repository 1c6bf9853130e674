package httpapi

import (
	"net/http"
	"sort"

	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/service"
)

// UserHierarchyHandler the user/role tree surface: descendant sets for
// access scoping and supervisor chains for display
type UserHierarchyHandler struct {
	userService service.UserHierarchyService
	gate        *PermissionGate
	logger      *zap.Logger
}

func NewUserHierarchyHandler(
	userService service.UserHierarchyService,
	gate *PermissionGate,
	logger *zap.Logger,
) *UserHierarchyHandler {
	return &UserHierarchyHandler{
		userService: userService,
		gate:        gate,
		logger:      logger,
	}
}

type userHierarchyResponse struct {
	UserUID     string                `json:"user_uid"`
	IsCoreUser  bool                  `json:"is_core_user"`
	Descendants []string              `json:"descendants"`
	Ancestors   []domain.UserAncestor `json:"ancestors"`
}

// GetUserHierarchy GET /user-hierarchy?survey_uid=&user_uid=
func (h *UserHierarchyHandler) GetUserHierarchy(w http.ResponseWriter, r *http.Request) {
	surveyUID := r.URL.Query().Get("survey_uid")
	userUID := r.URL.Query().Get("user_uid")
	if surveyUID == "" || userUID == "" {
		FailError(w, http.StatusBadRequest, "survey_uid and user_uid are required")
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionRead) {
		return
	}

	descendants, err := h.userService.Descendants(r.Context(), surveyUID, userUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	ancestors, err := h.userService.AncestorsWithRoles(r.Context(), surveyUID, userUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	isCore, err := h.userService.IsCoreUser(r.Context(), surveyUID, userUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	uids := make([]string, 0, len(descendants))
	for uid := range descendants {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	Ok(w, userHierarchyResponse{
		UserUID:     userUID,
		IsCoreUser:  isCore,
		Descendants: uids,
		Ancestors:   ancestors,
	})
}
