package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/models"
	"surveystream-data/internal/repository"
	"surveystream-data/pkg/redisx"
)

// ============================================
// Service interface + request/response shapes
// ============================================

// ListAssignmentsRequest paginated listing of a form's assignments
type ListAssignmentsRequest struct {
	FormUID string
	Page    int
	PerPage int
}

// ListAssignmentsResponse assignment rows plus pagination metadata.
// Pagination is nil when the whole set fits one default page.
type ListAssignmentsResponse struct {
	Items      []*repository.AssignmentView
	Pagination *models.Pagination
}

// ApplyAssignmentsRequest one bulk apply: all-or-nothing
type ApplyAssignmentsRequest struct {
	FormUID string
	Pairs   []domain.AssignmentPair
}

// AssignmentService the assignment manager: bulk atomic apply with
// eligibility enforcement, dropout release and on-read productivity.
type AssignmentService interface {
	ListAssignments(ctx context.Context, req ListAssignmentsRequest) (*ListAssignmentsResponse, error)
	ApplyAssignments(ctx context.Context, req ApplyAssignmentsRequest) (*domain.AssignmentCounts, error)
	Productivity(ctx context.Context, formUID string) ([]*domain.EnumeratorProductivity, error)

	// UpdateSurveyorStatus updates an enumerator's per-form status. A
	// transition to Dropout releases every assignment the enumerator
	// holds on the form (targets become unassigned, not deleted).
	UpdateSurveyorStatus(ctx context.Context, enumeratorUID, formUID, status string) error

	// UpsertTargetStatus is the status-pipeline write path for
	// target_assignable / final_status
	UpsertTargetStatus(ctx context.Context, status *domain.TargetStatus) error
}

type assignmentService struct {
	assignmentsRepo repository.AssignmentsRepository
	targetsRepo     repository.TargetsRepository
	enumeratorsRepo repository.EnumeratorsRepository
	redisClient     *redis.Client // nil disables event publishing
	assignmentStream string
	logger          *zap.Logger
}

func NewAssignmentService(
	assignmentsRepo repository.AssignmentsRepository,
	targetsRepo repository.TargetsRepository,
	enumeratorsRepo repository.EnumeratorsRepository,
	redisClient *redis.Client,
	assignmentStream string,
	logger *zap.Logger,
) AssignmentService {
	return &assignmentService{
		assignmentsRepo:  assignmentsRepo,
		targetsRepo:      targetsRepo,
		enumeratorsRepo:  enumeratorsRepo,
		redisClient:      redisClient,
		assignmentStream: assignmentStream,
		logger:           logger,
	}
}

func (s *assignmentService) ListAssignments(ctx context.Context, req ListAssignmentsRequest) (*ListAssignmentsResponse, error) {
	if req.FormUID == "" {
		return nil, fmt.Errorf("form_uid is required")
	}
	items, err := s.assignmentsRepo.ListByForm(ctx, req.FormUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	resp := &ListAssignmentsResponse{Items: items}
	if req.Page > 0 {
		p := models.NewPagination(len(items), req.Page, req.PerPage)
		lo, hi := p.Bounds()
		resp.Items = items[lo:hi]
		resp.Pagination = p
	}
	return resp, nil
}

func (s *assignmentService) ApplyAssignments(ctx context.Context, req ApplyAssignmentsRequest) (*domain.AssignmentCounts, error) {
	if req.FormUID == "" {
		return nil, fmt.Errorf("form_uid is required")
	}

	counts, err := s.assignmentsRepo.ApplyBatch(ctx, req.FormUID, req.Pairs)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Assignments applied",
		zap.String("form_uid", req.FormUID),
		zap.Int("assignments_count", counts.AssignmentsCount),
		zap.Int("new_assignments_count", counts.NewAssignmentsCount),
		zap.Int("re_assignments_count", counts.ReAssignmentsCount),
		zap.Int("no_changes_count", counts.NoChangesCount),
	)

	s.publishAssignmentEvent(req.FormUID, "apply", counts)
	return counts, nil
}

func (s *assignmentService) Productivity(ctx context.Context, formUID string) ([]*domain.EnumeratorProductivity, error) {
	if formUID == "" {
		return nil, fmt.Errorf("form_uid is required")
	}
	return s.assignmentsRepo.Productivity(ctx, formUID)
}

func (s *assignmentService) UpdateSurveyorStatus(ctx context.Context, enumeratorUID, formUID, status string) error {
	if err := s.enumeratorsRepo.UpdateFormStatus(ctx, enumeratorUID, formUID, status); err != nil {
		return err
	}

	if status != domain.EnumeratorStatusDropout {
		return nil
	}

	released, err := s.assignmentsRepo.ReleaseByEnumerator(ctx, formUID, enumeratorUID)
	if err != nil {
		return fmt.Errorf("failed to release assignments after dropout: %w", err)
	}
	s.logger.Info("Released assignments after dropout",
		zap.String("enumerator_uid", enumeratorUID),
		zap.String("form_uid", formUID),
		zap.Int("released", len(released)),
	)
	s.publishAssignmentEvent(formUID, "dropout_release", &domain.AssignmentCounts{
		AssignmentsCount: len(released),
	})
	return nil
}

func (s *assignmentService) UpsertTargetStatus(ctx context.Context, status *domain.TargetStatus) error {
	return s.targetsRepo.UpsertTargetStatus(ctx, status)
}

// publishAssignmentEvent fire-and-forget summary event to the assignment
// stream; failures are logged only, never surfaced to the caller
func (s *assignmentService) publishAssignmentEvent(formUID, event string, counts *domain.AssignmentCounts) {
	if s.redisClient == nil || s.assignmentStream == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload := map[string]interface{}{
		"event":                 event,
		"form_uid":              formUID,
		"assignments_count":     counts.AssignmentsCount,
		"new_assignments_count": counts.NewAssignmentsCount,
		"re_assignments_count":  counts.ReAssignmentsCount,
		"no_changes_count":      counts.NoChangesCount,
	}
	if _, err := redisx.PublishJSONToStream(ctx, s.redisClient, s.assignmentStream, payload); err != nil {
		s.logger.Warn("Failed to publish assignment event",
			zap.String("stream", s.assignmentStream),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
