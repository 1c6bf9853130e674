package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SCTOFormDefinition the subset of a SurveyCTO form definition the forms
// surface needs: enough to confirm the form exists and show its title
type SCTOFormDefinition struct {
	FormID  string `json:"formId"`
	Title   string `json:"title"`
	Version string `json:"version"`
}

// SCTOClient SurveyCTO server API client. Used to verify a scto_form_id
// exists on the server before a form is registered; out of the core
// mapping/assignment path.
type SCTOClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewSCTOClient(baseURL, username, password string, logger *zap.Logger) *SCTOClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetBasicAuth(username, password).
		SetHeader("Accept", "application/json")

	return &SCTOClient{
		httpClient: client,
		logger:     logger,
	}
}

// GetFormDefinition fetches the form's design metadata from the
// SurveyCTO server; (nil, nil) when the server reports no such form
func (c *SCTOClient) GetFormDefinition(sctoFormID string) (*SCTOFormDefinition, error) {
	c.logger.Info("Fetching SurveyCTO form definition",
		zap.String("scto_form_id", sctoFormID),
	)

	var def SCTOFormDefinition
	resp, err := c.httpClient.R().
		SetResult(&def).
		Get(fmt.Sprintf("/api/v2/forms/%s/design", sctoFormID))
	if err != nil {
		c.logger.Error("SurveyCTO API call failed",
			zap.String("scto_form_id", sctoFormID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to call SurveyCTO API: %w", err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		c.logger.Error("SurveyCTO API returned error",
			zap.String("scto_form_id", sctoFormID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("SurveyCTO API error: status %d", resp.StatusCode())
	}

	if def.FormID == "" {
		def.FormID = sctoFormID
	}
	return &def, nil
}
