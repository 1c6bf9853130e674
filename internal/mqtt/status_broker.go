package mqtt

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"surveystream-data/internal/domain"
	"surveystream-data/internal/service"
	commonmqtt "surveystream-data/pkg/mqtt"
)

// StatusBroker consumes status-pipeline events from the MQTT topic:
// target assignability updates and surveyor form-status updates. A
// Dropout transition releases the enumerator's assignments via the
// assignment service, same as the HTTP status patch.
type StatusBroker struct {
	assignmentService service.AssignmentService
	topic             string
	logger            *zap.Logger
}

func NewStatusBroker(assignmentService service.AssignmentService, topic string, logger *zap.Logger) *StatusBroker {
	return &StatusBroker{
		assignmentService: assignmentService,
		topic:             topic,
		logger:            logger,
	}
}

// statusMessage one status-pipeline event. event_type selects the
// payload fields that apply.
type statusMessage struct {
	EventType string `json:"event_type"` // "target_status" | "surveyor_status"

	// target_status fields
	TargetUID        string `json:"target_uid,omitempty"`
	TargetAssignable *bool  `json:"target_assignable,omitempty"`
	FinalStatus      string `json:"final_status,omitempty"`

	// surveyor_status fields
	EnumeratorUID string `json:"enumerator_uid,omitempty"`
	FormUID       string `json:"form_uid,omitempty"`
	Status        string `json:"status,omitempty"`
}

// HandleMessage processes one MQTT payload: a single event or an array
// of events. A bad event is logged and skipped, not fatal to the batch.
func (b *StatusBroker) HandleMessage(topic string, payload []byte) error {
	var messages []statusMessage
	if err := json.Unmarshal(payload, &messages); err != nil {
		var single statusMessage
		if err := json.Unmarshal(payload, &single); err != nil {
			return fmt.Errorf("failed to unmarshal status message: %w", err)
		}
		messages = []statusMessage{single}
	}

	ctx := context.Background()
	for _, msg := range messages {
		if err := b.processMessage(ctx, &msg); err != nil {
			b.logger.Error("Failed to process status message",
				zap.String("event_type", msg.EventType),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (b *StatusBroker) processMessage(ctx context.Context, msg *statusMessage) error {
	switch msg.EventType {
	case "target_status":
		return b.handleTargetStatus(ctx, msg)
	case "surveyor_status":
		return b.handleSurveyorStatus(ctx, msg)
	default:
		b.logger.Debug("Unhandled status event type", zap.String("event_type", msg.EventType))
		return nil
	}
}

func (b *StatusBroker) handleTargetStatus(ctx context.Context, msg *statusMessage) error {
	if msg.TargetUID == "" {
		return fmt.Errorf("target_status event without target_uid")
	}
	status := &domain.TargetStatus{TargetUID: msg.TargetUID}
	if msg.TargetAssignable != nil {
		status.TargetAssignable = sql.NullBool{Bool: *msg.TargetAssignable, Valid: true}
	}
	if msg.FinalStatus != "" {
		status.FinalStatus = sql.NullString{String: msg.FinalStatus, Valid: true}
	}
	if err := b.assignmentService.UpsertTargetStatus(ctx, status); err != nil {
		return err
	}
	b.logger.Info("Target status updated via status pipeline",
		zap.String("target_uid", msg.TargetUID),
	)
	return nil
}

func (b *StatusBroker) handleSurveyorStatus(ctx context.Context, msg *statusMessage) error {
	if msg.EnumeratorUID == "" || msg.FormUID == "" {
		return fmt.Errorf("surveyor_status event without enumerator_uid/form_uid")
	}
	if err := b.assignmentService.UpdateSurveyorStatus(ctx, msg.EnumeratorUID, msg.FormUID, msg.Status); err != nil {
		return err
	}
	b.logger.Info("Surveyor status updated via status pipeline",
		zap.String("enumerator_uid", msg.EnumeratorUID),
		zap.String("form_uid", msg.FormUID),
		zap.String("status", msg.Status),
	)
	return nil
}

// Start subscribes to the status topic
func (b *StatusBroker) Start(client *commonmqtt.Client) error {
	if err := client.Subscribe(b.topic, 1, b.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", b.topic, err)
	}
	b.logger.Info("Status broker started", zap.String("topic", b.topic))
	return nil
}

// Stop unsubscribes from the status topic
func (b *StatusBroker) Stop(client *commonmqtt.Client) error {
	if err := client.Unsubscribe(b.topic); err != nil {
		b.logger.Error("Failed to unsubscribe", zap.Error(err))
		return err
	}
	b.logger.Info("Status broker stopped")
	return nil
}
