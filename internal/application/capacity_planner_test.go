package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakehouse-platform/production-service/internal/domain"
)

type stubWorkflowSource struct {
	workflows map[string]*domain.WorkflowDefinition
}

func (s *stubWorkflowSource) GetWorkflowByID(_ context.Context, workflowID string) (*domain.WorkflowDefinition, error) {
	workflow, ok := s.workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("workflow %s not found", workflowID)
	}
	return workflow, nil
}

func testWorkflows() domain.WorkflowSource {
	return &stubWorkflowSource{workflows: map[string]*domain.WorkflowDefinition{
		"wf-sourdough": {
			WorkflowID: "wf-sourdough",
			Name:       "Country Sourdough",
			Steps: []domain.StepTemplate{
				{Name: "Mix dough", Kind: domain.StepKindActive, DurationEstimate: 30 * time.Minute, RequiredEquipment: []string{"mixer-1"}},
				{Name: "Bulk ferment", Kind: domain.StepKindSleep, DurationEstimate: 2 * time.Hour},
				{Name: "Bake", Kind: domain.StepKindActive, DurationEstimate: 30 * time.Minute, RequiredEquipment: []string{"deck-oven-1"}},
			},
		},
		"wf-baguette": {
			WorkflowID: "wf-baguette",
			Name:       "Baguette",
			Steps: []domain.StepTemplate{
				{Name: "Mix and shape", Kind: domain.StepKindActive, DurationEstimate: 40 * time.Minute, RequiredEquipment: []string{"mixer-1"}},
				{Name: "Bake", Kind: domain.StepKindActive, DurationEstimate: 20 * time.Minute, RequiredEquipment: []string{"deck-oven-1"}},
			},
		},
	}}
}

func workday() (time.Time, time.Time) {
	start := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	return start, start.Add(10 * time.Hour)
}

func TestCapacityPlanner_AnalyzeDemand(t *testing.T) {
	planner := NewCapacityPlanner(testWorkflows(), DefaultPlannerConstraints())

	t.Run("Aggregates demand per workflow", func(t *testing.T) {
		analysis, err := planner.AnalyzeDemand(context.Background(), []DemandItem{
			{WorkflowID: "wf-sourdough", Name: "Country Sourdough", Quantity: 40, Unit: "loaves", Priority: domain.PriorityHigh},
			{WorkflowID: "wf-sourdough", Name: "Country Sourdough", Quantity: 20, Unit: "loaves", Priority: domain.PriorityMedium},
			{WorkflowID: "wf-baguette", Name: "Baguette", Quantity: 60, Unit: "pieces", Priority: domain.PriorityUrgent},
		})
		require.NoError(t, err)

		assert.Equal(t, 3, analysis.TotalItems)
		assert.Equal(t, 120, analysis.TotalQuantity)
		assert.Equal(t, 7*time.Hour, analysis.TotalEstimatedTime)
		assert.Equal(t, 60, analysis.ByWorkflow["wf-sourdough"].TotalQuantity)
		assert.Equal(t, 2, analysis.ByWorkflow["wf-sourdough"].ItemCount)
		assert.Equal(t, 1, analysis.PriorityHistogram[domain.PriorityUrgent])
		assert.ElementsMatch(t, []string{"mixer-1", "deck-oven-1"}, analysis.RequiredEquipment)
		assert.Greater(t, analysis.ComplexityScore, 0.0)
		assert.LessOrEqual(t, analysis.ComplexityScore, 10.0)
	})

	t.Run("Unknown workflow fails the analysis", func(t *testing.T) {
		_, err := planner.AnalyzeDemand(context.Background(), []DemandItem{
			{WorkflowID: "wf-ghost", Name: "Ghost Bread", Quantity: 10, Priority: domain.PriorityLow},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wf-ghost")
	})
}

func TestCapacityPlanner_GenerateBatches(t *testing.T) {
	planner := NewCapacityPlanner(testWorkflows(), DefaultPlannerConstraints())
	dayStart, dayEnd := workday()

	t.Run("Splits oversized demand and spaces sub-batches", func(t *testing.T) {
		batches, conflicts, err := planner.GenerateBatches(context.Background(), "PS-1", []DemandItem{
			{WorkflowID: "wf-sourdough", Name: "Country Sourdough", Quantity: 80, Unit: "loaves", Priority: domain.PriorityHigh},
		}, dayStart, dayEnd)
		require.NoError(t, err)
		require.Empty(t, conflicts)
		require.Len(t, batches, 2)

		first, second := batches[0], batches[1]
		assert.Equal(t, "PB-20250602-001", first.BatchID)
		assert.Equal(t, "Country Sourdough (part 1)", first.Name)
		assert.Equal(t, 50, first.PlannedQuantity)
		assert.Equal(t, dayStart, first.PlannedStart)
		assert.Equal(t, dayStart.Add(3*time.Hour), first.PlannedEnd)

		assert.Equal(t, "Country Sourdough (part 2)", second.Name)
		assert.Equal(t, 30, second.PlannedQuantity)
		// 15 minute changeover after the first sub-batch
		assert.Equal(t, first.PlannedEnd.Add(15*time.Minute), second.PlannedStart)
		// 30/50 of the 3h workflow
		assert.Equal(t, 108*time.Minute, second.PlannedEnd.Sub(second.PlannedStart))
		assert.Equal(t, "PS-1", second.ScheduleID)
	})

	t.Run("Urgent demand schedules first", func(t *testing.T) {
		batches, conflicts, err := planner.GenerateBatches(context.Background(), "PS-1", []DemandItem{
			{WorkflowID: "wf-sourdough", Name: "Country Sourdough", Quantity: 40, Unit: "loaves", Priority: domain.PriorityMedium},
			{WorkflowID: "wf-baguette", Name: "Baguette", Quantity: 30, Unit: "pieces", Priority: domain.PriorityUrgent},
		}, dayStart, dayEnd)
		require.NoError(t, err)
		require.Empty(t, conflicts)
		require.Len(t, batches, 2)

		assert.Equal(t, "Baguette", batches[0].Name)
		assert.Equal(t, dayStart, batches[0].PlannedStart)
		assert.True(t, batches[1].PlannedStart.After(batches[0].PlannedEnd))
	})

	t.Run("Ties break toward larger quantities", func(t *testing.T) {
		batches, _, err := planner.GenerateBatches(context.Background(), "PS-1", []DemandItem{
			{WorkflowID: "wf-baguette", Name: "Small run", Quantity: 10, Unit: "pieces", Priority: domain.PriorityMedium},
			{WorkflowID: "wf-baguette", Name: "Big run", Quantity: 45, Unit: "pieces", Priority: domain.PriorityMedium},
		}, dayStart, dayEnd)
		require.NoError(t, err)
		require.Len(t, batches, 2)
		assert.Equal(t, "Big run", batches[0].Name)
	})

	t.Run("Overflow becomes a conflict instead of failing", func(t *testing.T) {
		batches, conflicts, err := planner.GenerateBatches(context.Background(), "PS-1", []DemandItem{
			{WorkflowID: "wf-sourdough", Name: "Country Sourdough", Quantity: 100, Unit: "loaves", Priority: domain.PriorityHigh},
		}, dayStart, dayStart.Add(4*time.Hour))
		require.NoError(t, err)

		// Only the first 3h sub-batch fits in a 4h day
		require.Len(t, batches, 1)
		require.Len(t, conflicts, 1)
		assert.Equal(t, "unscheduled_demand", conflicts[0].Type)
		assert.Contains(t, conflicts[0].Message, "50 loaves")
	})
}

func TestCapacityPlanner_AllocateResources(t *testing.T) {
	planner := NewCapacityPlanner(testWorkflows(), DefaultPlannerConstraints())
	dayStart, _ := workday()

	staff := []domain.StaffMember{
		{StaffID: "baker-1", StartTime: dayStart, EndTime: dayStart.Add(10 * time.Hour)},
		{StaffID: "baker-2", StartTime: dayStart, EndTime: dayStart.Add(10 * time.Hour)},
	}
	stations := []domain.Station{
		{StationID: "mixer-1"},
		{StationID: "deck-oven-1"},
	}

	newLedger := func() *domain.ResourceLedger {
		ledger := domain.NewResourceLedger()
		ledger.RegisterStaff(staff)
		ledger.RegisterStations(stations)
		return ledger
	}

	workflow, err := testWorkflows().GetWorkflowByID(context.Background(), "wf-sourdough")
	require.NoError(t, err)

	newBatch := func(t *testing.T, id string, start time.Time) *domain.ProductionBatch {
		t.Helper()
		batch, err := domain.NewProductionBatch(id, "Country Sourdough", workflow, 40, "loaves", domain.PriorityHigh, start, start.Add(3*time.Hour))
		require.NoError(t, err)
		return batch
	}

	t.Run("Assigns staff and named equipment", func(t *testing.T) {
		batch := newBatch(t, "PB-1", dayStart)

		result := planner.AllocateResources([]*domain.ProductionBatch{batch}, newLedger(), staff, stations)

		assert.Empty(t, result.Conflicts)
		require.Len(t, result.StaffAllocations, 1)
		assert.ElementsMatch(t, []string{"baker-1", "baker-2"}, result.StaffAllocations[0].ResourceIDs)
		require.Len(t, result.EquipmentAllocations, 1)
		assert.ElementsMatch(t, []string{"mixer-1", "deck-oven-1"}, result.EquipmentAllocations[0].ResourceIDs)
		assert.ElementsMatch(t, []string{"baker-1", "baker-2"}, batch.AssignedStaffIDs)
	})

	t.Run("Overlapping batches surface conflicts", func(t *testing.T) {
		first := newBatch(t, "PB-1", dayStart)
		second := newBatch(t, "PB-2", dayStart)

		result := planner.AllocateResources([]*domain.ProductionBatch{first, second}, newLedger(), staff, stations)

		require.NotEmpty(t, result.Conflicts)
		types := make(map[string]int)
		for _, c := range result.Conflicts {
			types[c.Type]++
			assert.Equal(t, "PB-2", c.BatchID)
		}
		assert.Equal(t, 1, types["staff"])
		assert.Equal(t, 2, types["equipment"])
	})

	t.Run("Missing roster station reported", func(t *testing.T) {
		batch := newBatch(t, "PB-1", dayStart)

		result := planner.AllocateResources([]*domain.ProductionBatch{batch}, newLedger(), staff, stations[:1])

		require.Len(t, result.Conflicts, 1)
		assert.Equal(t, "equipment", result.Conflicts[0].Type)
		assert.Contains(t, result.Conflicts[0].Message, "deck-oven-1")
	})
}

func TestCapacityPlanner_Plan(t *testing.T) {
	planner := NewCapacityPlanner(testWorkflows(), DefaultPlannerConstraints())
	dayStart, dayEnd := workday()

	schedule, err := domain.NewProductionSchedule("PS-20250602-1",
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), dayStart, dayEnd,
		[]domain.StaffMember{
			{StaffID: "baker-1", StartTime: dayStart, EndTime: dayEnd},
			{StaffID: "baker-2", StartTime: dayStart, EndTime: dayEnd},
		},
		[]domain.Station{
			{StationID: "mixer-1"},
			{StationID: "deck-oven-1"},
		},
	)
	require.NoError(t, err)

	result, err := planner.Plan(context.Background(), schedule, schedule.BuildLedger(), []DemandItem{
		{WorkflowID: "wf-sourdough", Name: "Country Sourdough", Quantity: 50, Unit: "loaves", Priority: domain.PriorityHigh},
		{WorkflowID: "wf-baguette", Name: "Baguette", Quantity: 40, Unit: "pieces", Priority: domain.PriorityMedium},
	})
	require.NoError(t, err)

	assert.Len(t, result.Batches, 2)
	assert.Equal(t, 2, result.Capacity.AvailableWorkers)
	assert.Empty(t, result.Allocation.Conflicts)
	assert.Greater(t, result.EfficiencyScore, 0.0)
	assert.LessOrEqual(t, result.EfficiencyScore, 100.0)
	assert.NotNil(t, result.Recommendations)

	// Each batch got staff and both its named stations
	for _, assignment := range result.Allocation.StaffAllocations {
		assert.NotEmpty(t, assignment.ResourceIDs)
	}
	for _, assignment := range result.Allocation.EquipmentAllocations {
		assert.Len(t, assignment.ResourceIDs, 2)
	}
}
