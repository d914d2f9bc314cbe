package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakehouse-platform/production-service/internal/domain"
)

const sourdoughWorkflowJSON = `{
	"workflowId": "WF-SOURDOUGH",
	"name": "Sourdough Loaf",
	"steps": [
		{
			"name": "Mix dough",
			"kind": "active",
			"durationMinutes": 30,
			"requiredEquipment": ["mixer-1"],
			"activities": ["combine", "knead"]
		},
		{
			"name": "Bulk ferment",
			"kind": "sleep",
			"durationMinutes": 240,
			"conditions": ["temperature 24-26C"]
		},
		{
			"name": "Bake",
			"kind": "active",
			"durationMinutes": 45,
			"requiredEquipment": ["deck-oven-1"]
		}
	]
}`

func TestWorkflowServiceClient_GetWorkflowByID(t *testing.T) {
	tests := []struct {
		name        string
		setupServer func() *httptest.Server
		workflowID  string
		wantErr     bool
		errContains string
	}{
		{
			name: "Successfully get workflow",
			setupServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, http.MethodGet, r.Method)
					assert.Equal(t, "/api/v1/workflows/WF-SOURDOUGH", r.URL.Path)
					assert.Equal(t, "application/json", r.Header.Get("Accept"))
					assert.Equal(t, "WF-SOURDOUGH", r.Header.Get("X-Bakery-Workflow-ID"))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusOK)
					w.Write([]byte(sourdoughWorkflowJSON))
				}))
			},
			workflowID: "WF-SOURDOUGH",
			wantErr:    false,
		},
		{
			name: "Workflow not found",
			setupServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNotFound)
				}))
			},
			workflowID:  "WF-MISSING",
			wantErr:     true,
			errContains: "not found",
		},
		{
			name: "Service returns error status",
			setupServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
				}))
			},
			workflowID:  "WF-SOURDOUGH",
			wantErr:     true,
			errContains: "returned status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := tt.setupServer()
			defer server.Close()

			client := NewWorkflowServiceClient(server.URL, nil)
			workflow, err := client.GetWorkflowByID(context.Background(), tt.workflowID)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, workflow)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, workflow)
				assert.Equal(t, tt.workflowID, workflow.WorkflowID)
				assert.Equal(t, "Sourdough Loaf", workflow.Name)
				require.Len(t, workflow.Steps, 3)
				assert.Equal(t, domain.StepKindActive, workflow.Steps[0].Kind)
				assert.Equal(t, 30*time.Minute, workflow.Steps[0].DurationEstimate)
				assert.Equal(t, domain.StepKindSleep, workflow.Steps[1].Kind)
				assert.Equal(t, 4*time.Hour, workflow.Steps[1].DurationEstimate)
				assert.Equal(t, []string{"deck-oven-1"}, workflow.Steps[2].RequiredEquipment)
				assert.Equal(t, 5*time.Hour+15*time.Minute, workflow.TotalDuration())
			}
		})
	}
}

func TestWorkflowServiceClient_CachesDefinitions(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(sourdoughWorkflowJSON))
	}))
	defer server.Close()

	client := NewWorkflowServiceClient(server.URL, nil)

	first, err := client.GetWorkflowByID(context.Background(), "WF-SOURDOUGH")
	require.NoError(t, err)

	second, err := client.GetWorkflowByID(context.Background(), "WF-SOURDOUGH")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestWorkflowServiceClient_DoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(sourdoughWorkflowJSON))
	}))
	defer server.Close()

	client := NewWorkflowServiceClient(server.URL, nil)

	_, err := client.GetWorkflowByID(context.Background(), "WF-SOURDOUGH")
	assert.Error(t, err)

	workflow, err := client.GetWorkflowByID(context.Background(), "WF-SOURDOUGH")
	require.NoError(t, err)
	assert.Equal(t, "WF-SOURDOUGH", workflow.WorkflowID)
	assert.Equal(t, int32(2), hits.Load())
}
