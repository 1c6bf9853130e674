package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/repository"
	"surveystream-data/internal/service"
)

// SurveyHandler surveys, geo levels, the resolved location tree, prime
// geo level configuration and form registration
type SurveyHandler struct {
	surveysRepo     repository.SurveysRepository
	locationService service.LocationHierarchyService
	sctoClient      *service.SCTOClient // nil disables server-side form verification
	gate            *PermissionGate
	logger          *zap.Logger
}

func NewSurveyHandler(
	surveysRepo repository.SurveysRepository,
	locationService service.LocationHierarchyService,
	sctoClient *service.SCTOClient,
	gate *PermissionGate,
	logger *zap.Logger,
) *SurveyHandler {
	return &SurveyHandler{
		surveysRepo:     surveysRepo,
		locationService: locationService,
		sctoClient:      sctoClient,
		gate:            gate,
		logger:          logger,
	}
}

type surveyResponse struct {
	SurveyUID        string `json:"survey_uid"`
	SurveyID         string `json:"survey_id"`
	SurveyName       string `json:"survey_name"`
	PrimeGeoLevelUID string `json:"prime_geo_level_uid,omitempty"`
}

// GetSurveys GET /surveys
func (h *SurveyHandler) GetSurveys(w http.ResponseWriter, r *http.Request) {
	surveys, err := h.surveysRepo.ListSurveys(r.Context())
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	out := make([]surveyResponse, 0, len(surveys))
	for _, s := range surveys {
		resp := surveyResponse{
			SurveyUID:  s.SurveyUID,
			SurveyID:   s.SurveyID,
			SurveyName: s.SurveyName,
		}
		if s.PrimeGeoLevelUID.Valid {
			resp.PrimeGeoLevelUID = s.PrimeGeoLevelUID.String
		}
		out = append(out, resp)
	}
	Ok(w, out)
}

// GetGeoLevels GET /surveys/{survey_uid}/geo-levels
func (h *SurveyHandler) GetGeoLevels(w http.ResponseWriter, r *http.Request, surveyUID string) {
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionRead) {
		return
	}
	levels, err := h.surveysRepo.ListGeoLevels(r.Context(), surveyUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	Ok(w, levels)
}

type locationResponse struct {
	LocationUID      string                    `json:"location_uid"`
	LocationID       string                    `json:"location_id"`
	LocationName     string                    `json:"location_name"`
	GeoLevelUID      string                    `json:"geo_level_uid"`
	Ancestors        []domain.LocationAncestor `json:"ancestors"`
	PrimeAncestorUID string                    `json:"prime_ancestor_uid,omitempty"`
}

// GetLocations GET /surveys/{survey_uid}/locations — flat rows enriched
// with each location's resolved ancestor chain
func (h *SurveyHandler) GetLocations(w http.ResponseWriter, r *http.Request, surveyUID string) {
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionRead) {
		return
	}
	locations, err := h.surveysRepo.ListLocations(r.Context(), surveyUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	hierarchy, err := h.locationService.Resolve(r.Context(), surveyUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	out := make([]locationResponse, 0, len(locations))
	for _, l := range locations {
		resp := locationResponse{
			LocationUID:  l.LocationUID,
			LocationID:   l.LocationID,
			LocationName: l.LocationName,
			GeoLevelUID:  l.GeoLevelUID,
		}
		if hl, ok := hierarchy[l.LocationUID]; ok {
			resp.Ancestors = hl.Ancestors
			resp.PrimeAncestorUID = hl.PrimeAncestorUID
		}
		out = append(out, resp)
	}
	Ok(w, out)
}

type putPrimeGeoLevelRequest struct {
	GeoLevelUID string `json:"geo_level_uid"`
}

// PutPrimeGeoLevel PUT /surveys/{survey_uid}/prime-geo-level
func (h *SurveyHandler) PutPrimeGeoLevel(w http.ResponseWriter, r *http.Request, surveyUID string) {
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionWrite) {
		return
	}
	var req putPrimeGeoLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		FailError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GeoLevelUID == "" {
		FailError(w, http.StatusBadRequest, "geo_level_uid is required")
		return
	}
	if err := h.surveysRepo.SetPrimeGeoLevel(r.Context(), surveyUID, req.GeoLevelUID); err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	OkMessage(w, "Prime geo level updated", nil)
}

// GetForms GET /forms?survey_uid=
func (h *SurveyHandler) GetForms(w http.ResponseWriter, r *http.Request) {
	surveyUID := r.URL.Query().Get("survey_uid")
	if surveyUID == "" {
		FailError(w, http.StatusBadRequest, "survey_uid is required")
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceMapping, ActionRead) {
		return
	}
	forms, err := h.surveysRepo.ListForms(r.Context(), surveyUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	Ok(w, forms)
}

type createFormRequest struct {
	SurveyUID  string `json:"survey_uid"`
	SCTOFormID string `json:"scto_form_id"`
	FormName   string `json:"form_name"`
}

// CreateForm POST /forms — registers a form; when a SurveyCTO client is
// configured the scto_form_id is verified against the server first
func (h *SurveyHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	var req createFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		FailError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SurveyUID == "" || req.SCTOFormID == "" {
		FailError(w, http.StatusBadRequest, "survey_uid and scto_form_id are required")
		return
	}
	if !h.gate.Require(w, r, req.SurveyUID, domain.ResourceMapping, ActionWrite) {
		return
	}

	if h.sctoClient != nil {
		def, err := h.sctoClient.GetFormDefinition(req.SCTOFormID)
		if err != nil {
			h.logger.Error("SurveyCTO form verification failed",
				zap.String("scto_form_id", req.SCTOFormID),
				zap.Error(err),
			)
			FailError(w, http.StatusBadGateway, "failed to verify form on SurveyCTO server")
			return
		}
		if def == nil {
			FailMessage(w, http.StatusNotFound, "Form not found on SurveyCTO server: "+req.SCTOFormID)
			return
		}
		if req.FormName == "" {
			req.FormName = def.Title
		}
	}

	formUID, err := h.surveysRepo.CreateForm(r.Context(), &domain.Form{
		SurveyUID:  req.SurveyUID,
		SCTOFormID: req.SCTOFormID,
		FormName:   req.FormName,
	})
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	Ok(w, map[string]string{"form_uid": formUID})
}
