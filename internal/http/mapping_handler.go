package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/repository"
	"surveystream-data/internal/service"
)

// MappingHandler the criteria mapping surface: computed mapping,
// bucket summaries, overrides and the active criteria set
type MappingHandler struct {
	mappingService service.MappingService
	surveysRepo    repository.SurveysRepository
	gate           *PermissionGate
	logger         *zap.Logger
}

func NewMappingHandler(
	mappingService service.MappingService,
	surveysRepo repository.SurveysRepository,
	gate *PermissionGate,
	logger *zap.Logger,
) *MappingHandler {
	return &MappingHandler{
		mappingService: mappingService,
		surveysRepo:    surveysRepo,
		gate:           gate,
		logger:         logger,
	}
}

// surveyUIDForForm resolves the form's survey for the permission gate;
// writes the error response on failure
func (h *MappingHandler) surveyUIDForForm(w http.ResponseWriter, r *http.Request, formUID string) (string, bool) {
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

// GetMapping GET .../targets-mapping or .../surveyors-mapping
func (h *MappingHandler) GetMapping(w http.ResponseWriter, r *http.Request, entityKind string) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionRead) {
		return
	}

	rows, err := h.mappingService.ComputeMapping(r.Context(), formUID, entityKind)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	Ok(w, rows)
}

// GetMappingSummary GET .../targets-mapping-config (computed buckets)
func (h *MappingHandler) GetMappingSummary(w http.ResponseWriter, r *http.Request, entityKind string) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionRead) {
		return
	}

	buckets, err := h.mappingService.ComputeMappingSummary(r.Context(), formUID, entityKind)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	Ok(w, buckets)
}

type putMappingConfigRequest struct {
	ConfigUID     string               `json:"config_uid"`
	MappingValues domain.CriteriaTuple `json:"mapping_values"`
	MappedTo      domain.CriteriaTuple `json:"mapped_to"`
}

// PutMappingConfig PUT .../targets-mapping-config (create or update an override)
func (h *MappingHandler) PutMappingConfig(w http.ResponseWriter, r *http.Request, entityKind string) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionWrite) {
		return
	}

	var req putMappingConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		FailError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	configUID, err := h.mappingService.PutConfig(r.Context(), &domain.MappingConfig{
		ConfigUID:     req.ConfigUID,
		FormUID:       formUID,
		EntityKind:    entityKind,
		MappingValues: req.MappingValues,
		MappedTo:      req.MappedTo,
	})
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	Ok(w, map[string]string{"config_uid": configUID})
}

// DeleteMappingConfig DELETE .../targets-mapping-config?config_uid=
func (h *MappingHandler) DeleteMappingConfig(w http.ResponseWriter, r *http.Request, entityKind string) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionWrite) {
		return
	}

	configUID := r.URL.Query().Get("config_uid")
	if configUID == "" {
		FailError(w, http.StatusBadRequest, "config_uid is required")
		return
	}
	if err := h.mappingService.DeleteConfig(r.Context(), configUID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	OkMessage(w, "Mapping config deleted", nil)
}

// ResetMappingConfigs DELETE .../targets-mapping-config/reset?form_uid=
// Idempotent: resetting an already-clean form succeeds with zero removed.
func (h *MappingHandler) ResetMappingConfigs(w http.ResponseWriter, r *http.Request, entityKind string) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionWrite) {
		return
	}

	removed, err := h.mappingService.ResetConfigs(r.Context(), formUID, entityKind)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	OkMessage(w, "Mapping configs reset", map[string]int{"removed": removed})
}

// GetCriteria GET /mapping/criteria?form_uid=
func (h *MappingHandler) GetCriteria(w http.ResponseWriter, r *http.Request) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionRead) {
		return
	}

	criteria, err := h.mappingService.GetCriteria(r.Context(), formUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	Ok(w, map[string]any{"criteria": criteria})
}

type putCriteriaRequest struct {
	Criteria []string `json:"criteria"`
}

// PutCriteria PUT /mapping/criteria?form_uid= — replaces the survey's
// active criteria set and prunes overrides referencing dropped criteria
func (h *MappingHandler) PutCriteria(w http.ResponseWriter, r *http.Request) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionWrite) {
		return
	}

	var req putCriteriaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		FailError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pruned, err := h.mappingService.UpdateCriteria(r.Context(), formUID, req.Criteria)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	OkMessage(w, "Mapping criteria updated", map[string]int{"pruned_configs": pruned})
}
