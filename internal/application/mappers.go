package application

import (
	"fmt"
	"time"

	"github.com/bakehouse-platform/production-service/internal/domain"
)

// ToScheduleDTO converts a domain schedule to a DTO
func ToScheduleDTO(schedule *domain.ProductionSchedule) *ScheduleDTO {
	staff := make([]StaffMemberDTO, 0, len(schedule.Staff))
	for _, w := range schedule.Staff {
		staff = append(staff, StaffMemberDTO{
			StaffID:   w.StaffID,
			Name:      w.Name,
			Role:      w.Role,
			Skills:    w.Skills,
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
		})
	}

	stations := make([]StationDTO, 0, len(schedule.Stations))
	for _, s := range schedule.Stations {
		stations = append(stations, StationDTO{
			StationID: s.StationID,
			Name:      s.Name,
			Type:      s.Type,
			Capacity:  s.Capacity,
		})
	}

	return &ScheduleDTO{
		ScheduleID:        schedule.ScheduleID,
		ScheduleDate:      schedule.ScheduleDate,
		WorkdayStart:      schedule.WorkdayStart,
		WorkdayEnd:        schedule.WorkdayEnd,
		Status:            string(schedule.Status),
		Staff:             staff,
		Stations:          stations,
		PlannedBatchIDs:   schedule.PlannedBatchIDs,
		CompletedBatchIDs: schedule.CompletedBatchIDs,
		Progress:          schedule.Progress(),
		Notes:             schedule.Notes,
		CreatedAt:         schedule.CreatedAt,
		UpdatedAt:         schedule.UpdatedAt,
	}
}

// ToBatchDTO converts a domain batch to a DTO
func ToBatchDTO(batch *domain.ProductionBatch) *BatchDTO {
	steps := make([]StepDTO, 0, len(batch.Steps))
	for i := range batch.Steps {
		steps = append(steps, toStepDTO(&batch.Steps[i]))
	}

	issues := make([]IssueDTO, 0, len(batch.Issues))
	for _, issue := range batch.Issues {
		issues = append(issues, toIssueDTO(issue))
	}

	return &BatchDTO{
		BatchID:            batch.BatchID,
		ScheduleID:         batch.ScheduleID,
		Name:               batch.Name,
		WorkflowID:         batch.WorkflowID,
		ProductID:          batch.ProductID,
		PlannedQuantity:    batch.PlannedQuantity,
		ActualQuantity:     batch.ActualQuantity,
		Unit:               batch.Unit,
		Status:             string(batch.Status),
		Priority:           string(batch.Priority),
		PlannedStart:       batch.PlannedStart,
		PlannedEnd:         batch.PlannedEnd,
		ActualStart:        batch.ActualStart,
		ActualEnd:          batch.ActualEnd,
		CurrentStepIndex:   batch.CurrentStepIndex,
		PauseReason:        batch.PauseReason,
		Progress:           batch.Progress(),
		AssignedStaffIDs:   batch.AssignedStaffIDs,
		AllocatedEquipment: batch.AllocatedEquipment,
		Steps:              steps,
		Issues:             issues,
		Notes:              batch.Notes,
		CreatedAt:          batch.CreatedAt,
		UpdatedAt:          batch.UpdatedAt,
	}
}

// ToBatchDTOs converts a slice of domain batches to DTOs
func ToBatchDTOs(batches []*domain.ProductionBatch) []BatchDTO {
	dtos := make([]BatchDTO, 0, len(batches))
	for _, b := range batches {
		dtos = append(dtos, *ToBatchDTO(b))
	}
	return dtos
}

// ToBatchListDTO converts a domain batch to a list DTO
func ToBatchListDTO(batch *domain.ProductionBatch) BatchListDTO {
	return BatchListDTO{
		BatchID:         batch.BatchID,
		ScheduleID:      batch.ScheduleID,
		Name:            batch.Name,
		WorkflowID:      batch.WorkflowID,
		Status:          string(batch.Status),
		Priority:        string(batch.Priority),
		PlannedQuantity: batch.PlannedQuantity,
		Unit:            batch.Unit,
		PlannedStart:    batch.PlannedStart,
		PlannedEnd:      batch.PlannedEnd,
		Progress:        batch.Progress(),
		OpenIssues:      batch.OpenIssueCount(),
	}
}

// ToBatchListDTOs converts a slice of domain batches to list DTOs
func ToBatchListDTOs(batches []*domain.ProductionBatch) []BatchListDTO {
	dtos := make([]BatchListDTO, 0, len(batches))
	for _, b := range batches {
		dtos = append(dtos, ToBatchListDTO(b))
	}
	return dtos
}

func toStepDTO(step *domain.ProductionStep) StepDTO {
	results := make([]QualityCheckDTO, 0, len(step.QualityResults))
	for _, qc := range step.QualityResults {
		results = append(results, toQualityCheckDTO(qc))
	}

	return StepDTO{
		StepID:              step.StepID,
		StepIndex:           step.StepIndex,
		Name:                step.Name,
		Kind:                string(step.Kind),
		Status:              string(step.Status),
		Progress:            step.Progress,
		PlannedStart:        step.PlannedStart,
		PlannedEnd:          step.PlannedEnd,
		ActualStart:         step.ActualStart,
		ActualEnd:           step.ActualEnd,
		HasIssues:           step.HasIssues,
		Activities:          step.Activities,
		CompletedActivities: step.CompletedActivities,
		QualityResults:      results,
		Notes:               step.Notes,
	}
}

func toIssueDTO(issue domain.Issue) IssueDTO {
	return IssueDTO{
		IssueID:     issue.IssueID,
		BatchID:     issue.BatchID,
		StepID:      issue.StepID,
		Type:        issue.Type,
		Severity:    string(issue.Severity),
		Description: issue.Description,
		ReportedBy:  issue.ReportedBy,
		ReportedAt:  issue.ReportedAt,
		Status:      string(issue.Status),
		Resolution:  issue.Resolution,
		ResolvedAt:  issue.ResolvedAt,
	}
}

func toQualityCheckDTO(check domain.QualityCheck) QualityCheckDTO {
	checks := make([]CheckResultDTO, 0, len(check.Checks))
	for _, c := range check.Checks {
		checks = append(checks, CheckResultDTO{Name: c.Name, Score: c.Score})
	}

	return QualityCheckDTO{
		CheckID:      check.CheckID,
		StepID:       check.StepID,
		PerformedBy:  check.PerformedBy,
		PerformedAt:  check.PerformedAt,
		Checks:       checks,
		OverallScore: check.OverallScore,
		Passed:       check.Passed,
		Notes:        check.Notes,
	}
}

// ToPlanResultDTO converts a planner result to a DTO
func ToPlanResultDTO(scheduleID string, result *PlanResult) *PlanResultDTO {
	bottlenecks := make([]BottleneckDTO, 0, len(result.Capacity.Bottlenecks))
	for _, b := range result.Capacity.Bottlenecks {
		bottlenecks = append(bottlenecks, BottleneckDTO{
			Type:     b.Type,
			Severity: b.Severity,
			Message:  b.Message,
		})
	}

	return &PlanResultDTO{
		ScheduleID: scheduleID,
		Capacity: CapacityDTO{
			AvailableWorkers:  result.Capacity.AvailableWorkers,
			TotalStaffHours:   result.Capacity.TotalStaffHours,
			AvailableStations: result.Capacity.AvailableStations,
			Bottlenecks:       bottlenecks,
		},
		DemandAnalysis:  result.DemandAnalysis,
		Batches:         ToBatchListDTOs(result.Batches),
		Conflicts:       result.Allocation.Conflicts,
		Recommendations: result.Recommendations,
		EfficiencyScore: result.EfficiencyScore,
	}
}

// ToBatchStatusDTO converts a domain snapshot to the live status DTO
func ToBatchStatusDTO(snapshot domain.BatchSnapshot, monitored bool) *BatchStatusDTO {
	return &BatchStatusDTO{
		BatchID:          snapshot.BatchID,
		Status:           string(snapshot.Status),
		Progress:         snapshot.Progress,
		CurrentStepIndex: snapshot.CurrentStepIndex,
		CurrentStepName:  snapshot.CurrentStepName,
		CurrentStepState: string(snapshot.CurrentStepState),
		IsOverdue:        snapshot.IsOverdue,
		DelayMinutes:     snapshot.DelayMinutes,
		OpenIssues:       snapshot.OpenIssues,
		Monitored:        monitored,
	}
}

// ToCreateScheduleCommand parses the API request into a command
func ToCreateScheduleCommand(req CreateScheduleRequest) (CreateScheduleCommand, error) {
	scheduleDate, err := time.Parse("2006-01-02", req.ScheduleDate)
	if err != nil {
		return CreateScheduleCommand{}, fmt.Errorf("invalid scheduleDate %q, expected YYYY-MM-DD", req.ScheduleDate)
	}
	workdayStart, err := time.Parse(time.RFC3339, req.WorkdayStart)
	if err != nil {
		return CreateScheduleCommand{}, fmt.Errorf("invalid workdayStart %q, expected RFC3339", req.WorkdayStart)
	}
	workdayEnd, err := time.Parse(time.RFC3339, req.WorkdayEnd)
	if err != nil {
		return CreateScheduleCommand{}, fmt.Errorf("invalid workdayEnd %q, expected RFC3339", req.WorkdayEnd)
	}

	return CreateScheduleCommand{
		ScheduleDate: scheduleDate,
		WorkdayStart: workdayStart,
		WorkdayEnd:   workdayEnd,
		Staff:        toDomainStaff(req.Staff),
		Stations:     toDomainStations(req.Stations),
		Notes:        req.Notes,
	}, nil
}

// ToPlanScheduleCommand converts the planning request into a command
func ToPlanScheduleCommand(scheduleID string, req PlanScheduleRequest) PlanScheduleCommand {
	return PlanScheduleCommand{
		ScheduleID: scheduleID,
		Demand:     toDemandItems(req.Demand),
	}
}

// toDomainStaff converts staff DTOs to domain staff members
func toDomainStaff(dtos []StaffMemberDTO) []domain.StaffMember {
	staff := make([]domain.StaffMember, 0, len(dtos))
	for _, d := range dtos {
		staff = append(staff, domain.StaffMember{
			StaffID:   d.StaffID,
			Name:      d.Name,
			Role:      d.Role,
			Skills:    d.Skills,
			StartTime: d.StartTime,
			EndTime:   d.EndTime,
		})
	}
	return staff
}

// toDomainStations converts station DTOs to domain stations
func toDomainStations(dtos []StationDTO) []domain.Station {
	stations := make([]domain.Station, 0, len(dtos))
	for _, d := range dtos {
		stations = append(stations, domain.Station{
			StationID: d.StationID,
			Name:      d.Name,
			Type:      d.Type,
			Capacity:  d.Capacity,
		})
	}
	return stations
}

// toDemandItems converts demand requests to planner demand items
func toDemandItems(reqs []DemandItemRequest) []DemandItem {
	items := make([]DemandItem, 0, len(reqs))
	for _, r := range reqs {
		priority := domain.Priority(r.Priority)
		if !priority.IsValid() {
			priority = domain.PriorityMedium
		}
		items = append(items, DemandItem{
			WorkflowID: r.WorkflowID,
			ProductID:  r.ProductID,
			Name:       r.Name,
			Quantity:   r.Quantity,
			Unit:       r.Unit,
			Priority:   priority,
		})
	}
	return items
}
