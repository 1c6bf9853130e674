package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/repository"
	"surveystream-data/internal/service"
)

// EntityHandler thin read surfaces for targets and enumerators plus the
// surveyor status entry point of the status pipeline
type EntityHandler struct {
	targetsRepo       repository.TargetsRepository
	enumeratorsRepo   repository.EnumeratorsRepository
	surveysRepo       repository.SurveysRepository
	assignmentService service.AssignmentService
	gate              *PermissionGate
	logger            *zap.Logger
}

func NewEntityHandler(
	targetsRepo repository.TargetsRepository,
	enumeratorsRepo repository.EnumeratorsRepository,
	surveysRepo repository.SurveysRepository,
	assignmentService service.AssignmentService,
	gate *PermissionGate,
	logger *zap.Logger,
) *EntityHandler {
	return &EntityHandler{
		targetsRepo:       targetsRepo,
		enumeratorsRepo:   enumeratorsRepo,
		surveysRepo:       surveysRepo,
		assignmentService: assignmentService,
		gate:              gate,
		logger:            logger,
	}
}

func (h *EntityHandler) surveyUIDForForm(w http.ResponseWriter, r *http.Request, formUID string) (string, bool) {
	if formUID == "" {
		FailError(w, http.StatusBadRequest, "form_uid is required")
		return "", false
	}
	form, err := h.surveysRepo.GetForm(r.Context(), formUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return "", false
	}
	return form.SurveyUID, true
}

type targetResponse struct {
	TargetUID   string `json:"target_uid"`
	TargetID    string `json:"target_id"`
	Language    string `json:"language,omitempty"`
	Gender      string `json:"gender,omitempty"`
	LocationUID string `json:"location_uid,omitempty"`
}

// GetTargets GET /targets?form_uid=
func (h *EntityHandler) GetTargets(w http.ResponseWriter, r *http.Request) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceTargets, ActionRead) {
		return
	}

	targets, err := h.targetsRepo.ListTargets(r.Context(), formUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	out := make([]targetResponse, 0, len(targets))
	for _, t := range targets {
		resp := targetResponse{TargetUID: t.TargetUID, TargetID: t.TargetID}
		if t.Language.Valid {
			resp.Language = t.Language.String
		}
		if t.Gender.Valid {
			resp.Gender = t.Gender.String
		}
		if t.LocationUID.Valid {
			resp.LocationUID = t.LocationUID.String
		}
		out = append(out, resp)
	}
	Ok(w, out)
}

type enumeratorResponse struct {
	EnumeratorUID string `json:"enumerator_uid"`
	EnumeratorID  string `json:"enumerator_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Language      string `json:"language,omitempty"`
	Gender        string `json:"gender,omitempty"`
	LocationUID   string `json:"location_uid,omitempty"`
	Status        string `json:"status,omitempty"`
}

// GetEnumerators GET /enumerators?form_uid=
func (h *EntityHandler) GetEnumerators(w http.ResponseWriter, r *http.Request) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceAssignments, ActionRead) {
		return
	}

	enums, err := h.enumeratorsRepo.ListByForm(r.Context(), formUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	statuses, err := h.enumeratorsRepo.ListFormStatuses(r.Context(), formUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	statusByUID := map[string]string{}
	for _, sf := range statuses {
		statusByUID[sf.EnumeratorUID] = sf.Status
	}

	out := make([]enumeratorResponse, 0, len(enums))
	for _, e := range enums {
		resp := enumeratorResponse{
			EnumeratorUID: e.EnumeratorUID,
			EnumeratorID:  e.EnumeratorID,
			Name:          e.Name,
			Email:         e.Email,
			Status:        statusByUID[e.EnumeratorUID],
		}
		if e.Language.Valid {
			resp.Language = e.Language.String
		}
		if e.Gender.Valid {
			resp.Gender = e.Gender.String
		}
		if e.LocationUID.Valid {
			resp.LocationUID = e.LocationUID.String
		}
		out = append(out, resp)
	}
	Ok(w, out)
}

type patchSurveyorStatusRequest struct {
	FormUID string `json:"form_uid"`
	Status  string `json:"status"`
}

// PatchSurveyorStatus PATCH /enumerators/{enumerator_uid}/status.
// A Dropout transition releases every assignment the enumerator holds
// on the form.
func (h *EntityHandler) PatchSurveyorStatus(w http.ResponseWriter, r *http.Request, enumeratorUID string) {
	var req patchSurveyorStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		FailError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	surveyUID, ok := h.surveyUIDForForm(w, r, req.FormUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceAssignments, ActionWrite) {
		return
	}

	if err := h.assignmentService.UpdateSurveyorStatus(r.Context(), enumeratorUID, req.FormUID, req.Status); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	OkMessage(w, "Surveyor status updated", nil)
}
