package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bakehouse-platform/production-service/internal/domain"
	"github.com/bakehouse-platform/production-service/pkg/cloudevents"
	"github.com/bakehouse-platform/production-service/pkg/errors"
	"github.com/bakehouse-platform/production-service/pkg/logging"
	"github.com/bakehouse-platform/production-service/pkg/resilience"
)

// WorkflowStepDTO represents one step of a workflow fetched from recipe-service
type WorkflowStepDTO struct {
	Name              string   `json:"name"`
	Kind              string   `json:"kind"`
	DurationMinutes   int      `json:"durationMinutes"`
	RequiredEquipment []string `json:"requiredEquipment,omitempty"`
	Activities        []string `json:"activities,omitempty"`
	Conditions        []string `json:"conditions,omitempty"`
}

// WorkflowDTO represents a workflow definition fetched from recipe-service
type WorkflowDTO struct {
	WorkflowID string            `json:"workflowId"`
	Name       string            `json:"name"`
	Steps      []WorkflowStepDTO `json:"steps"`
}

// WorkflowServiceClient fetches workflow definitions from recipe-service.
// Implements domain.WorkflowSource. Definitions are immutable per id, so
// successful lookups are cached for the lifetime of the client.
type WorkflowServiceClient struct {
	baseURL        string
	httpClient     *http.Client
	circuitBreaker *resilience.CircuitBreaker
	logger         *logging.Logger

	mu    sync.RWMutex
	cache map[string]*domain.WorkflowDefinition
}

// NewWorkflowServiceClient creates a new WorkflowServiceClient
func NewWorkflowServiceClient(baseURL string, logger *logging.Logger) *WorkflowServiceClient {
	config := &resilience.CircuitBreakerConfig{
		Name:                  "recipe-service",
		MaxRequests:           3,
		Interval:              60 * time.Second,
		Timeout:               30 * time.Second,
		FailureThreshold:      5,
		FailureRatioThreshold: 0.5,
		MinRequestsToTrip:     10,
	}

	var slogLogger *slog.Logger
	if logger != nil && logger.Logger != nil {
		slogLogger = logger.Logger
	} else {
		slogLogger = slog.Default()
	}

	return &WorkflowServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		circuitBreaker: resilience.NewCircuitBreaker(config, slogLogger),
		logger:         logger,
		cache:          make(map[string]*domain.WorkflowDefinition),
	}
}

// GetWorkflowByID resolves a workflow definition by id.
// Implements domain.WorkflowSource.
func (c *WorkflowServiceClient) GetWorkflowByID(ctx context.Context, workflowID string) (*domain.WorkflowDefinition, error) {
	c.mu.RLock()
	if cached, ok := c.cache[workflowID]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.fetchWorkflow(ctx, workflowID)
	})
	if err != nil {
		return nil, err
	}

	workflow := result.(*domain.WorkflowDefinition)

	c.mu.Lock()
	c.cache[workflowID] = workflow
	c.mu.Unlock()

	return workflow, nil
}

// fetchWorkflow performs the HTTP lookup against recipe-service
func (c *WorkflowServiceClient) fetchWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowDefinition, error) {
	url := fmt.Sprintf("%s/api/v1/workflows/%s", c.baseURL, workflowID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(cloudevents.HeaderWorkflowID, workflowID)
	if correlationID, ok := ctx.Value(logging.CorrelationIDKey).(string); ok && correlationID != "" {
		req.Header.Set(cloudevents.HeaderCorrelationID, correlationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.ErrNotFoundWithID("workflow", workflowID)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recipe service returned status %d", resp.StatusCode)
	}

	var dto WorkflowDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("failed to decode workflow response: %w", err)
	}

	return toDomainWorkflow(&dto), nil
}

// toDomainWorkflow converts a WorkflowDTO to domain.WorkflowDefinition
func toDomainWorkflow(dto *WorkflowDTO) *domain.WorkflowDefinition {
	steps := make([]domain.StepTemplate, 0, len(dto.Steps))
	for _, s := range dto.Steps {
		steps = append(steps, domain.StepTemplate{
			Name:              s.Name,
			Kind:              domain.StepKind(s.Kind),
			DurationEstimate:  time.Duration(s.DurationMinutes) * time.Minute,
			RequiredEquipment: s.RequiredEquipment,
			Activities:        s.Activities,
			Conditions:        s.Conditions,
		})
	}
	return &domain.WorkflowDefinition{
		WorkflowID: dto.WorkflowID,
		Name:       dto.Name,
		Steps:      steps,
	}
}
