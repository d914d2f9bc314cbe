package application

import "time"

// ScheduleDTO represents a production schedule in responses
type ScheduleDTO struct {
	ScheduleID        string            `json:"scheduleId"`
	ScheduleDate      time.Time         `json:"scheduleDate"`
	WorkdayStart      time.Time         `json:"workdayStart"`
	WorkdayEnd        time.Time         `json:"workdayEnd"`
	Status            string            `json:"status"`
	Staff             []StaffMemberDTO  `json:"staff"`
	Stations          []StationDTO      `json:"stations"`
	PlannedBatchIDs   []string          `json:"plannedBatchIds"`
	CompletedBatchIDs []string          `json:"completedBatchIds"`
	Progress          float64           `json:"progress"`
	Notes             string            `json:"notes,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// StaffMemberDTO represents a rostered worker
type StaffMemberDTO struct {
	StaffID   string    `json:"staffId"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Skills    []string  `json:"skills,omitempty"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// StationDTO represents a rostered equipment station
type StationDTO struct {
	StationID string `json:"stationId"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Capacity  int    `json:"capacity"`
}

// BatchDTO represents a production batch in responses
type BatchDTO struct {
	BatchID            string     `json:"batchId"`
	ScheduleID         string     `json:"scheduleId"`
	Name               string     `json:"name"`
	WorkflowID         string     `json:"workflowId"`
	ProductID          string     `json:"productId,omitempty"`
	PlannedQuantity    int        `json:"plannedQuantity"`
	ActualQuantity     *int       `json:"actualQuantity,omitempty"`
	Unit               string     `json:"unit"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	PlannedStart       time.Time  `json:"plannedStart"`
	PlannedEnd         time.Time  `json:"plannedEnd"`
	ActualStart        *time.Time `json:"actualStart,omitempty"`
	ActualEnd          *time.Time `json:"actualEnd,omitempty"`
	CurrentStepIndex   int        `json:"currentStepIndex"`
	PauseReason        string     `json:"pauseReason,omitempty"`
	Progress           float64    `json:"progress"`
	AssignedStaffIDs   []string   `json:"assignedStaffIds"`
	AllocatedEquipment []string   `json:"allocatedEquipment"`
	Steps              []StepDTO  `json:"steps"`
	Issues             []IssueDTO `json:"issues,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// BatchListDTO represents a simplified batch for list operations
type BatchListDTO struct {
	BatchID         string    `json:"batchId"`
	ScheduleID      string    `json:"scheduleId"`
	Name            string    `json:"name"`
	WorkflowID      string    `json:"workflowId"`
	Status          string    `json:"status"`
	Priority        string    `json:"priority"`
	PlannedQuantity int       `json:"plannedQuantity"`
	Unit            string    `json:"unit"`
	PlannedStart    time.Time `json:"plannedStart"`
	PlannedEnd      time.Time `json:"plannedEnd"`
	Progress        float64   `json:"progress"`
	OpenIssues      int       `json:"openIssues"`
}

// StepDTO represents a production step in responses
type StepDTO struct {
	StepID              string            `json:"stepId"`
	StepIndex           int               `json:"stepIndex"`
	Name                string            `json:"name"`
	Kind                string            `json:"kind"`
	Status              string            `json:"status"`
	Progress            float64           `json:"progress"`
	PlannedStart        *time.Time        `json:"plannedStart,omitempty"`
	PlannedEnd          *time.Time        `json:"plannedEnd,omitempty"`
	ActualStart         *time.Time        `json:"actualStart,omitempty"`
	ActualEnd           *time.Time        `json:"actualEnd,omitempty"`
	HasIssues           bool              `json:"hasIssues"`
	Activities          []string          `json:"activities,omitempty"`
	CompletedActivities []string          `json:"completedActivities,omitempty"`
	QualityResults      []QualityCheckDTO `json:"qualityResults,omitempty"`
	Notes               string            `json:"notes,omitempty"`
}

// IssueDTO represents a reported production issue
type IssueDTO struct {
	IssueID     string     `json:"issueId"`
	BatchID     string     `json:"batchId"`
	StepID      string     `json:"stepId,omitempty"`
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	Description string     `json:"description"`
	ReportedBy  string     `json:"reportedBy"`
	ReportedAt  time.Time  `json:"reportedAt"`
	Status      string     `json:"status"`
	Resolution  string     `json:"resolution,omitempty"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// QualityCheckDTO represents a recorded quality check
type QualityCheckDTO struct {
	CheckID      string           `json:"checkId"`
	StepID       string           `json:"stepId"`
	PerformedBy  string           `json:"performedBy"`
	PerformedAt  time.Time        `json:"performedAt"`
	Checks       []CheckResultDTO `json:"checks"`
	OverallScore float64          `json:"overallScore"`
	Passed       bool             `json:"passed"`
	Notes        string           `json:"notes,omitempty"`
}

// CheckResultDTO is one named measurement within a quality check
type CheckResultDTO struct {
	Name  string  `json:"name" binding:"required"`
	Score float64 `json:"score" binding:"min=0,max=100"`
}

// PlanResultDTO represents the outcome of a planning run
type PlanResultDTO struct {
	ScheduleID      string          `json:"scheduleId"`
	Capacity        CapacityDTO     `json:"capacity"`
	DemandAnalysis  *DemandAnalysis `json:"demandAnalysis"`
	Batches         []BatchListDTO  `json:"batches"`
	Conflicts       []PlanConflict  `json:"conflicts"`
	Recommendations []string        `json:"recommendations"`
	EfficiencyScore float64         `json:"efficiencyScore"`
}

// CapacityDTO represents computed capacity for a schedule day
type CapacityDTO struct {
	AvailableWorkers  int             `json:"availableWorkers"`
	TotalStaffHours   float64         `json:"totalStaffHours"`
	AvailableStations int             `json:"availableStations"`
	Bottlenecks       []BottleneckDTO `json:"bottlenecks"`
}

// BottleneckDTO represents a detected capacity constraint
type BottleneckDTO struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// BatchStatusDTO is the live monitoring view of a batch
type BatchStatusDTO struct {
	BatchID          string  `json:"batchId"`
	Status           string  `json:"status"`
	Progress         float64 `json:"progress"`
	CurrentStepIndex int     `json:"currentStepIndex"`
	CurrentStepName  string  `json:"currentStepName,omitempty"`
	CurrentStepState string  `json:"currentStepState,omitempty"`
	IsOverdue        bool    `json:"isOverdue"`
	DelayMinutes     int     `json:"delayMinutes"`
	OpenIssues       int     `json:"openIssues"`
	Monitored        bool    `json:"monitored"`
}

// StepUpdateResultDTO is returned by step-level mutations; WaitReason is set
// when the update left the batch blocked on a precondition
type StepUpdateResultDTO struct {
	Batch      *BatchDTO `json:"batch"`
	WaitReason string    `json:"waitReason,omitempty"`
}

// CreateScheduleRequest is the API request for creating a schedule
type CreateScheduleRequest struct {
	ScheduleDate string           `json:"scheduleDate" binding:"required"`
	WorkdayStart string           `json:"workdayStart" binding:"required"`
	WorkdayEnd   string           `json:"workdayEnd" binding:"required"`
	Staff        []StaffMemberDTO `json:"staff" binding:"required,min=1"`
	Stations     []StationDTO     `json:"stations" binding:"required,min=1"`
	Notes        string           `json:"notes"`
}

// PlanScheduleRequest is the API request for planning a schedule
type PlanScheduleRequest struct {
	Demand []DemandItemRequest `json:"demand" binding:"required,min=1"`
}

// DemandItemRequest is one requested production run in the planning API
type DemandItemRequest struct {
	WorkflowID string `json:"workflowId" binding:"required"`
	ProductID  string `json:"productId"`
	Name       string `json:"name" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
	Unit       string `json:"unit" binding:"required"`
	Priority   string `json:"priority"`
}
