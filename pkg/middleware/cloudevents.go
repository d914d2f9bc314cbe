package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/bakehouse-platform/production-service/pkg/cloudevents"
	"github.com/bakehouse-platform/production-service/pkg/logging"
)

// CloudEvents extension context keys
const (
	ContextKeyBakeryCorrelationID = "bakeryCorrelationId"
	ContextKeyBakeryBatchID       = "bakeryBatchId"
	ContextKeyBakeryScheduleID    = "bakeryScheduleId"
	ContextKeyBakeryWorkflowID    = "bakeryWorkflowId"
)

// CloudEvents middleware extracts bakery CloudEvents extensions from HTTP
// headers and adds them to the request context for downstream logging and
// propagation across bakery services.
func CloudEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(cloudevents.HeaderCorrelationID)
		batchID := c.GetHeader(cloudevents.HeaderBatchID)
		scheduleID := c.GetHeader(cloudevents.HeaderScheduleID)
		workflowID := c.GetHeader(cloudevents.HeaderWorkflowID)

		if correlationID != "" {
			c.Set(ContextKeyBakeryCorrelationID, correlationID)
			c.Header(cloudevents.HeaderCorrelationID, correlationID)
		}
		if batchID != "" {
			c.Set(ContextKeyBakeryBatchID, batchID)
			c.Header(cloudevents.HeaderBatchID, batchID)
		}
		if scheduleID != "" {
			c.Set(ContextKeyBakeryScheduleID, scheduleID)
			c.Header(cloudevents.HeaderScheduleID, scheduleID)
		}
		if workflowID != "" {
			c.Set(ContextKeyBakeryWorkflowID, workflowID)
			c.Header(cloudevents.HeaderWorkflowID, workflowID)
		}

		// Enrich the Go context so the logging package picks these up
		ctx := logging.ContextWithCloudEventExtensions(
			c.Request.Context(),
			correlationID,
			batchID,
			scheduleID,
			workflowID,
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetBakeryCorrelationID extracts the bakery correlation ID from Gin context
func GetBakeryCorrelationID(c *gin.Context) string {
	return contextString(c, ContextKeyBakeryCorrelationID)
}

// GetBakeryBatchID extracts the batch ID from Gin context
func GetBakeryBatchID(c *gin.Context) string {
	return contextString(c, ContextKeyBakeryBatchID)
}

// GetBakeryScheduleID extracts the schedule ID from Gin context
func GetBakeryScheduleID(c *gin.Context) string {
	return contextString(c, ContextKeyBakeryScheduleID)
}

// GetBakeryWorkflowID extracts the workflow ID from Gin context
func GetBakeryWorkflowID(c *gin.Context) string {
	return contextString(c, ContextKeyBakeryWorkflowID)
}

func contextString(c *gin.Context, key string) string {
	if val, exists := c.Get(key); exists {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// CloudEventExtensions holds all bakery CloudEvent extension values
type CloudEventExtensions struct {
	CorrelationID string
	BatchID       string
	ScheduleID    string
	WorkflowID    string
}

// GetCloudEventExtensions extracts all CloudEvent extensions from Gin context
func GetCloudEventExtensions(c *gin.Context) CloudEventExtensions {
	return CloudEventExtensions{
		CorrelationID: GetBakeryCorrelationID(c),
		BatchID:       GetBakeryBatchID(c),
		ScheduleID:    GetBakeryScheduleID(c),
		WorkflowID:    GetBakeryWorkflowID(c),
	}
}

// PropagationCloudEventHeaders returns bakery CloudEvents headers for propagation to downstream services
func PropagationCloudEventHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string)

	if id := GetBakeryCorrelationID(c); id != "" {
		headers[cloudevents.HeaderCorrelationID] = id
	}
	if id := GetBakeryBatchID(c); id != "" {
		headers[cloudevents.HeaderBatchID] = id
	}
	if id := GetBakeryScheduleID(c); id != "" {
		headers[cloudevents.HeaderScheduleID] = id
	}
	if id := GetBakeryWorkflowID(c); id != "" {
		headers[cloudevents.HeaderWorkflowID] = id
	}

	return headers
}
