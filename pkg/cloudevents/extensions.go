package cloudevents

// CloudEvents extension attribute names for cross-service correlation.
// Extension names are lowercase alphanumerics per the CloudEvents spec.
const (
	ExtCorrelationID = "bakerycorrelationid"
	ExtBatchID       = "bakerybatchid"
	ExtScheduleID    = "bakeryscheduleid"
	ExtWorkflowID    = "bakeryworkflowid"
)

// HTTP header names carrying the extensions between services
const (
	HeaderCorrelationID = "X-Bakery-Correlation-ID"
	HeaderBatchID       = "X-Bakery-Batch-ID"
	HeaderScheduleID    = "X-Bakery-Schedule-ID"
	HeaderWorkflowID    = "X-Bakery-Workflow-ID"
)

// ExtensionsOf returns the populated extension attributes of an event
func ExtensionsOf(event *BakeryCloudEvent) map[string]string {
	ext := make(map[string]string)
	if event.CorrelationID != "" {
		ext[ExtCorrelationID] = event.CorrelationID
	}
	if event.BatchID != "" {
		ext[ExtBatchID] = event.BatchID
	}
	if event.ScheduleID != "" {
		ext[ExtScheduleID] = event.ScheduleID
	}
	if event.WorkflowID != "" {
		ext[ExtWorkflowID] = event.WorkflowID
	}
	return ext
}
