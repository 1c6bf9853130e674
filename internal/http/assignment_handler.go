package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/repository"
	"surveystream-data/internal/service"
)

// AssignmentHandler the assignment surface: listing, bulk apply,
// productivity and xlsx export
type AssignmentHandler struct {
	assignmentService service.AssignmentService
	surveysRepo       repository.SurveysRepository
	gate              *PermissionGate
	logger            *zap.Logger
}

func NewAssignmentHandler(
	assignmentService service.AssignmentService,
	surveysRepo repository.SurveysRepository,
	gate *PermissionGate,
	logger *zap.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
		surveysRepo:       surveysRepo,
		gate:              gate,
		logger:            logger,
	}
}

func (h *AssignmentHandler) surveyUIDForForm(w http.ResponseWriter, r *http.Request, formUID string) (string, bool) {
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

// GetAssignments GET /assignments?form_uid=&page=&per_page=
func (h *AssignmentHandler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceAssignments, ActionRead) {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	resp, err := h.assignmentService.ListAssignments(r.Context(), service.ListAssignmentsRequest{
		FormUID: formUID,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	rows := make([]map[string]any, 0, len(resp.Items))
	for _, v := range resp.Items {
		rows = append(rows, v.ToJSON())
	}
	if resp.Pagination != nil {
		OkPaginated(w, rows, resp.Pagination)
		return
	}
	Ok(w, rows)
}

type applyAssignmentsRequest struct {
	FormUID     string                  `json:"form_uid"`
	Assignments []domain.AssignmentPair `json:"assignments"`
}

// ApplyAssignments PUT /assignments — all-or-nothing bulk apply
func (h *AssignmentHandler) ApplyAssignments(w http.ResponseWriter, r *http.Request) {
	var req applyAssignmentsRequest
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

	counts, err := h.assignmentService.ApplyAssignments(r.Context(), service.ApplyAssignmentsRequest{
		FormUID: req.FormUID,
		Pairs:   req.Assignments,
	})
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	OkMessage(w, "Assignments applied", counts)
}

// GetProductivity GET /assignments/productivity?form_uid=
func (h *AssignmentHandler) GetProductivity(w http.ResponseWriter, r *http.Request) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceAssignments, ActionRead) {
		return
	}

	stats, err := h.assignmentService.Productivity(r.Context(), formUID)
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}
	Ok(w, stats)
}

// ExportAssignments GET /assignments/export?form_uid= — xlsx download
func (h *AssignmentHandler) ExportAssignments(w http.ResponseWriter, r *http.Request) {
	formUID := r.URL.Query().Get("form_uid")
	surveyUID, ok := h.surveyUIDForForm(w, r, formUID)
	if !ok {
		return
	}
	if !h.gate.Require(w, r, surveyUID, domain.ResourceAssignments, ActionRead) {
		return
	}

	resp, err := h.assignmentService.ListAssignments(r.Context(), service.ListAssignmentsRequest{FormUID: formUID})
	if err != nil {
		WriteDomainError(w, h.logger, err)
		return
	}

	rows := make([]map[string]any, 0, len(resp.Items))
	for _, v := range resp.Items {
		rows = append(rows, v.ToJSON())
	}
	data, err := GenerateAssignmentsExport(rows)
	if err != nil {
		h.logger.Error("Failed to generate assignments export", zap.Error(err))
		FailError(w, http.StatusInternalServerError, "failed to generate export")
		return
	}

	filename := fmt.Sprintf("assignments_%s_%s.xlsx", formUID, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
