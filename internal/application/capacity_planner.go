package application

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bakehouse-platform/production-service/internal/domain"
)

// PlannerConstraints tunes the capacity planning algorithms
type PlannerConstraints struct {
	MaxBatchSize       int           `json:"maxBatchSize"`
	BatchGap           time.Duration `json:"batchGap"`
	MaxWorkersPerBatch int           `json:"maxWorkersPerBatch"`
}

// DefaultPlannerConstraints returns the standard planning parameters
func DefaultPlannerConstraints() PlannerConstraints {
	return PlannerConstraints{
		MaxBatchSize:       50,
		BatchGap:           15 * time.Minute,
		MaxWorkersPerBatch: 2,
	}
}

// DemandItem is one requested production run
type DemandItem struct {
	WorkflowID string          `json:"workflowId"`
	ProductID  string          `json:"productId,omitempty"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Unit       string          `json:"unit"`
	Priority   domain.Priority `json:"priority"`
}

// WorkflowDemand aggregates demand per workflow
type WorkflowDemand struct {
	WorkflowID    string        `json:"workflowId"`
	WorkflowName  string        `json:"workflowName"`
	TotalQuantity int           `json:"totalQuantity"`
	ItemCount     int           `json:"itemCount"`
	Duration      time.Duration `json:"duration"`
}

// DemandAnalysis summarizes a day's raw demand
type DemandAnalysis struct {
	TotalItems         int                       `json:"totalItems"`
	TotalQuantity      int                       `json:"totalQuantity"`
	TotalEstimatedTime time.Duration             `json:"totalEstimatedTime"`
	ByWorkflow         map[string]WorkflowDemand `json:"byWorkflow"`
	PriorityHistogram  map[domain.Priority]int   `json:"priorityHistogram"`
	RequiredEquipment  []string                  `json:"requiredEquipment"`
	ComplexityScore    float64                   `json:"complexityScore"`
}

// PlanConflict is a recorded, non-fatal failure to satisfy a scheduling or
// resource requirement
type PlanConflict struct {
	BatchID string `json:"batchId,omitempty"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ResourceAssignment records which resources a batch received
type ResourceAssignment struct {
	BatchID     string   `json:"batchId"`
	ResourceIDs []string `json:"resourceIds"`
}

// AllocationResult is the outcome of resource allocation across a plan
type AllocationResult struct {
	StaffAllocations     []ResourceAssignment `json:"staffAllocations"`
	EquipmentAllocations []ResourceAssignment `json:"equipmentAllocations"`
	Conflicts            []PlanConflict       `json:"conflicts"`
}

// PlanResult is the full output of a planning run. Partial infeasibility is
// expressed through Conflicts, never by failing the plan.
type PlanResult struct {
	Capacity        domain.Capacity           `json:"capacity"`
	DemandAnalysis  *DemandAnalysis           `json:"demandAnalysis"`
	Batches         []*domain.ProductionBatch `json:"batches"`
	Allocation      AllocationResult          `json:"allocation"`
	Recommendations []string                  `json:"recommendations"`
	EfficiencyScore float64                   `json:"efficiencyScore"`
}

// CapacityPlanner transforms raw demand into a resource-allocated set of
// production batches under a day's capacity constraints
type CapacityPlanner struct {
	workflows   domain.WorkflowSource
	constraints PlannerConstraints
}

// NewCapacityPlanner creates a new CapacityPlanner
func NewCapacityPlanner(workflows domain.WorkflowSource, constraints PlannerConstraints) *CapacityPlanner {
	if constraints.MaxBatchSize <= 0 {
		constraints.MaxBatchSize = 50
	}
	if constraints.BatchGap <= 0 {
		constraints.BatchGap = 15 * time.Minute
	}
	if constraints.MaxWorkersPerBatch <= 0 {
		constraints.MaxWorkersPerBatch = 2
	}
	return &CapacityPlanner{
		workflows:   workflows,
		constraints: constraints,
	}
}

// AnalyzeDemand resolves each demand item's workflow and aggregates the
// day's total estimated time, per-workflow demand, priority histogram and
// the union of required equipment. The complexity score is a bounded
// heuristic used only for advisory recommendations.
func (p *CapacityPlanner) AnalyzeDemand(ctx context.Context, items []DemandItem) (*DemandAnalysis, error) {
	analysis := &DemandAnalysis{
		ByWorkflow:        make(map[string]WorkflowDemand),
		PriorityHistogram: make(map[domain.Priority]int),
		RequiredEquipment: make([]string, 0),
	}

	equipmentSeen := make(map[string]bool)
	for _, item := range items {
		workflow, err := p.workflows.GetWorkflowByID(ctx, item.WorkflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workflow %s: %w", item.WorkflowID, err)
		}

		duration := workflow.TotalDuration()
		analysis.TotalItems++
		analysis.TotalQuantity += item.Quantity
		analysis.TotalEstimatedTime += duration
		analysis.PriorityHistogram[item.Priority]++

		wd := analysis.ByWorkflow[item.WorkflowID]
		wd.WorkflowID = workflow.WorkflowID
		wd.WorkflowName = workflow.Name
		wd.TotalQuantity += item.Quantity
		wd.ItemCount++
		wd.Duration = duration
		analysis.ByWorkflow[item.WorkflowID] = wd

		for _, e := range workflow.RequiredEquipment() {
			if !equipmentSeen[e] {
				equipmentSeen[e] = true
				analysis.RequiredEquipment = append(analysis.RequiredEquipment, e)
			}
		}
	}

	distinctWorkflows := float64(len(analysis.ByWorkflow))
	urgent := float64(analysis.PriorityHistogram[domain.PriorityUrgent])
	high := float64(analysis.PriorityHistogram[domain.PriorityHigh])
	analysis.ComplexityScore = math.Min(10,
		0.2*distinctWorkflows+
			0.3*math.Log10(float64(analysis.TotalQuantity)+1)+
			0.4*urgent+
			0.2*high)

	return analysis, nil
}

// GenerateBatches turns demand items into time-boxed planned batches. Items
// are sorted urgent > high > medium > low with larger quantities first, split
// into sub-batches capped at MaxBatchSize, and laid out along a single time
// cursor from the workday start. Sub-batches that no longer fit before the
// workday end are surfaced as conflicts, never silently dropped.
func (p *CapacityPlanner) GenerateBatches(ctx context.Context, scheduleID string, items []DemandItem, workdayStart, workdayEnd time.Time) ([]*domain.ProductionBatch, []PlanConflict, error) {
	sorted := make([]DemandItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority.Rank() != sorted[j].Priority.Rank() {
			return sorted[i].Priority.Rank() > sorted[j].Priority.Rank()
		}
		// Larger batches schedule earlier for throughput.
		return sorted[i].Quantity > sorted[j].Quantity
	})

	batches := make([]*domain.ProductionBatch, 0)
	conflicts := make([]PlanConflict, 0)
	cursor := workdayStart
	sequence := 0

	for _, item := range sorted {
		workflow, err := p.workflows.GetWorkflowByID(ctx, item.WorkflowID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve workflow %s: %w", item.WorkflowID, err)
		}
		workflowDuration := workflow.TotalDuration()

		remaining := item.Quantity
		part := 0
		for remaining > 0 {
			qty := remaining
			if qty > p.constraints.MaxBatchSize {
				qty = p.constraints.MaxBatchSize
			}

			// A sub-batch runs for its share of the full workflow duration.
			duration := time.Duration(float64(workflowDuration) * float64(qty) / float64(p.constraints.MaxBatchSize))
			if duration > workflowDuration {
				duration = workflowDuration
			}

			if cursor.Add(duration).After(workdayEnd) {
				conflicts = append(conflicts, PlanConflict{
					Type: "unscheduled_demand",
					Message: fmt.Sprintf("%d %s of %s (workflow %s) do not fit before workday end",
						remaining, item.Unit, item.Name, item.WorkflowID),
				})
				break
			}

			sequence++
			part++
			batchID := generateBatchID(workdayStart, sequence)
			name := item.Name
			if item.Quantity > p.constraints.MaxBatchSize {
				name = fmt.Sprintf("%s (part %d)", item.Name, part)
			}

			batch, err := domain.NewProductionBatch(batchID, name, workflow, qty, item.Unit, item.Priority, cursor, cursor.Add(duration))
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create batch for workflow %s: %w", item.WorkflowID, err)
			}
			batch.ScheduleID = scheduleID
			batch.ProductID = item.ProductID
			batches = append(batches, batch)

			cursor = cursor.Add(duration + p.constraints.BatchGap)
			remaining -= qty
		}
	}

	return batches, conflicts, nil
}

// AllocateResources walks planned batches in schedule order and reserves
// staff and equipment through the ledger. Unmet requirements become
// conflicts so callers can present partial plans for human resolution.
func (p *CapacityPlanner) AllocateResources(batches []*domain.ProductionBatch, ledger *domain.ResourceLedger, staff []domain.StaffMember, stations []domain.Station) AllocationResult {
	result := AllocationResult{
		StaffAllocations:     make([]ResourceAssignment, 0, len(batches)),
		EquipmentAllocations: make([]ResourceAssignment, 0, len(batches)),
		Conflicts:            make([]PlanConflict, 0),
	}

	stationByID := make(map[string]bool, len(stations))
	for _, s := range stations {
		stationByID[s.StationID] = true
	}

	for _, batch := range batches {
		start, end := batch.PlannedStart, batch.PlannedEnd

		// Staff candidates: workers whose shift covers part of the window,
		// earliest-available-first.
		candidates := make([]string, 0, len(staff))
		for _, w := range staff {
			if w.StartTime.Before(end) && start.Before(w.EndTime) {
				candidates = append(candidates, w.StaffID)
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return ledger.NextFreeTime(candidates[i], start).Before(ledger.NextFreeTime(candidates[j], start))
		})

		assignedStaff, err := ledger.Allocate(candidates, start, end, batch.BatchID, p.constraints.MaxWorkersPerBatch)
		if err != nil {
			result.Conflicts = append(result.Conflicts, PlanConflict{
				BatchID: batch.BatchID,
				Type:    "staff",
				Message: err.Error(),
			})
		}
		if len(assignedStaff) == 0 {
			result.Conflicts = append(result.Conflicts, PlanConflict{
				BatchID: batch.BatchID,
				Type:    "staff",
				Message: "no staff available for the planned window",
			})
		} else if len(assignedStaff) < p.constraints.MaxWorkersPerBatch {
			result.Conflicts = append(result.Conflicts, PlanConflict{
				BatchID: batch.BatchID,
				Type:    "staff",
				Message: fmt.Sprintf("only %d of %d workers available", len(assignedStaff), p.constraints.MaxWorkersPerBatch),
			})
		}
		result.StaffAllocations = append(result.StaffAllocations, ResourceAssignment{
			BatchID:     batch.BatchID,
			ResourceIDs: assignedStaff,
		})

		// Equipment: named stations when the workflow requires them,
		// otherwise any free station.
		assignedEquipment := make([]string, 0)
		if len(batch.RequiredEquipment) > 0 {
			for _, name := range batch.RequiredEquipment {
				if !stationByID[name] {
					result.Conflicts = append(result.Conflicts, PlanConflict{
						BatchID: batch.BatchID,
						Type:    "equipment",
						Message: fmt.Sprintf("required station %s is not on the roster", name),
					})
					continue
				}
				got, err := ledger.Allocate([]string{name}, start, end, batch.BatchID, 1)
				if err != nil || len(got) == 0 {
					result.Conflicts = append(result.Conflicts, PlanConflict{
						BatchID: batch.BatchID,
						Type:    "equipment",
						Message: fmt.Sprintf("station %s is not free in the planned window", name),
					})
					continue
				}
				assignedEquipment = append(assignedEquipment, got...)
			}
		} else {
			anyStation := make([]string, 0, len(stations))
			for _, s := range stations {
				anyStation = append(anyStation, s.StationID)
			}
			got, err := ledger.Allocate(anyStation, start, end, batch.BatchID, 1)
			if err != nil || len(got) == 0 {
				result.Conflicts = append(result.Conflicts, PlanConflict{
					BatchID: batch.BatchID,
					Type:    "equipment",
					Message: "no station free in the planned window",
				})
			}
			assignedEquipment = append(assignedEquipment, got...)
		}
		result.EquipmentAllocations = append(result.EquipmentAllocations, ResourceAssignment{
			BatchID:     batch.BatchID,
			ResourceIDs: assignedEquipment,
		})

		batch.AssignResources(assignedStaff, assignedEquipment)
	}

	return result
}

// Plan runs the full pipeline: demand analysis, batch generation and
// resource allocation, plus the advisory efficiency score and
// recommendations
func (p *CapacityPlanner) Plan(ctx context.Context, schedule *domain.ProductionSchedule, ledger *domain.ResourceLedger, items []DemandItem) (*PlanResult, error) {
	analysis, err := p.AnalyzeDemand(ctx, items)
	if err != nil {
		return nil, err
	}

	capacity := ledger.Availability(schedule.Staff, schedule.Stations, schedule.WorkdayStart, schedule.WorkdayEnd)

	batches, scheduleConflicts, err := p.GenerateBatches(ctx, schedule.ScheduleID, items, schedule.WorkdayStart, schedule.WorkdayEnd)
	if err != nil {
		return nil, err
	}

	allocation := p.AllocateResources(batches, ledger, schedule.Staff, schedule.Stations)
	allocation.Conflicts = append(scheduleConflicts, allocation.Conflicts...)

	utilization := 0.0
	if schedule.WorkdayDuration() > 0 {
		utilization = float64(analysis.TotalEstimatedTime) / float64(schedule.WorkdayDuration())
	}

	result := &PlanResult{
		Capacity:        capacity,
		DemandAnalysis:  analysis,
		Batches:         batches,
		Allocation:      allocation,
		EfficiencyScore: efficiencyScore(utilization, len(capacity.Bottlenecks), analysis.ComplexityScore),
	}
	result.Recommendations = recommendations(result, utilization)

	return result, nil
}

// efficiencyScore is advisory, never authoritative. It starts at 100 and is
// penalized for over- and under-utilization, bottlenecks and complexity.
func efficiencyScore(utilization float64, bottlenecks int, complexity float64) float64 {
	score := 100.0
	if utilization > 1 {
		score -= 50 * (utilization - 1)
	} else if utilization < 0.6 {
		score -= 20 * (0.6 - utilization)
	}
	score -= 10 * float64(bottlenecks)
	if complexity > 3 {
		score -= 5 * (complexity - 3)
	}
	return math.Max(0, math.Min(100, score))
}

func recommendations(result *PlanResult, utilization float64) []string {
	recs := make([]string, 0)
	if utilization > 1 {
		recs = append(recs, "demand exceeds the workday; consider an extra shift or deferring low-priority items")
	} else if utilization < 0.6 {
		recs = append(recs, "capacity is under-utilized; consider pulling demand forward")
	}
	for _, b := range result.Capacity.Bottlenecks {
		recs = append(recs, "bottleneck: "+b.Message)
	}
	if n := len(result.Allocation.Conflicts); n > 0 {
		recs = append(recs, fmt.Sprintf("%d scheduling conflict(s) need manual resolution", n))
	}
	if result.DemandAnalysis.ComplexityScore > 7 {
		recs = append(recs, "high plan complexity; consider splitting the day across supervisors")
	}
	return recs
}

// generateBatchID generates a unique batch ID
func generateBatchID(day time.Time, sequence int) string {
	return fmt.Sprintf("PB-%s-%03d", day.Format("20060102"), sequence)
}
