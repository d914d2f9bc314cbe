package domain

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger() *ResourceLedger {
	ledger := NewResourceLedger()
	ledger.RegisterStaff([]StaffMember{
		{StaffID: "baker-1", Name: "Baker One"},
		{StaffID: "baker-2", Name: "Baker Two"},
	})
	ledger.RegisterStations([]Station{
		{StationID: "mixer-1", Name: "Spiral Mixer", Type: "mixer", Capacity: 1},
		{StationID: "deck-oven-1", Name: "Deck Oven", Type: "oven", Capacity: 4},
	})
	return ledger
}

func window(hour, durMinutes int) (time.Time, time.Time) {
	start := time.Date(2025, 6, 2, hour, 0, 0, 0, time.UTC)
	return start, start.Add(time.Duration(durMinutes) * time.Minute)
}

func TestResourceLedger_Allocate(t *testing.T) {
	t.Run("Allocate free resource", func(t *testing.T) {
		ledger := testLedger()
		start, end := window(6, 60)

		assigned, err := ledger.Allocate([]string{"baker-1"}, start, end, "PB-1", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"baker-1"}, assigned)
	})

	t.Run("Overlapping window skips busy resource", func(t *testing.T) {
		ledger := testLedger()
		start, end := window(6, 60)
		_, err := ledger.Allocate([]string{"baker-1"}, start, end, "PB-1", 1)
		require.NoError(t, err)

		// Same window, baker-1 busy, falls through to baker-2
		assigned, err := ledger.Allocate([]string{"baker-1", "baker-2"}, start, end, "PB-2", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"baker-2"}, assigned)
	})

	t.Run("Adjacent windows do not conflict", func(t *testing.T) {
		ledger := testLedger()
		start, end := window(6, 60)
		_, err := ledger.Allocate([]string{"mixer-1"}, start, end, "PB-1", 1)
		require.NoError(t, err)

		// Half-open intervals: [6:00, 7:00) and [7:00, 8:00) share an endpoint
		assigned, err := ledger.Allocate([]string{"mixer-1"}, end, end.Add(time.Hour), "PB-2", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"mixer-1"}, assigned)
	})

	t.Run("Partial allocation returns fewer than max", func(t *testing.T) {
		ledger := testLedger()
		start, end := window(6, 60)
		_, err := ledger.Allocate([]string{"baker-1"}, start, end, "PB-1", 1)
		require.NoError(t, err)

		assigned, err := ledger.Allocate([]string{"baker-1", "baker-2"}, start, end, "PB-2", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"baker-2"}, assigned)
	})

	t.Run("Unknown resource", func(t *testing.T) {
		ledger := testLedger()
		start, end := window(6, 60)

		_, err := ledger.Allocate([]string{"ghost"}, start, end, "PB-1", 1)
		assert.ErrorIs(t, err, ErrResourceUnknown)
	})

	t.Run("Invalid window", func(t *testing.T) {
		ledger := testLedger()
		start, _ := window(6, 60)

		_, err := ledger.Allocate([]string{"baker-1"}, start, start, "PB-1", 1)
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})
}

func TestResourceLedger_Release(t *testing.T) {
	ledger := testLedger()
	start, end := window(6, 60)

	_, err := ledger.Allocate([]string{"baker-1"}, start, end, "PB-1", 1)
	require.NoError(t, err)
	_, err = ledger.Allocate([]string{"mixer-1"}, start, end, "PB-1", 1)
	require.NoError(t, err)

	t.Run("Release frees the resource for reallocation", func(t *testing.T) {
		require.NoError(t, ledger.Release("baker-1", "PB-1"))

		assigned, err := ledger.Allocate([]string{"baker-1"}, start, end, "PB-2", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"baker-1"}, assigned)
	})

	t.Run("ReleaseBatch frees every held resource", func(t *testing.T) {
		ledger.ReleaseBatch("PB-1")
		assert.Empty(t, ledger.AllocationsFor("mixer-1"))
	})

	t.Run("Release on unknown resource fails", func(t *testing.T) {
		assert.ErrorIs(t, ledger.Release("ghost", "PB-1"), ErrResourceUnknown)
	})
}

func TestResourceLedger_NextFreeTime(t *testing.T) {
	ledger := testLedger()
	start, end := window(6, 60)
	_, err := ledger.Allocate([]string{"deck-oven-1"}, start, end, "PB-1", 1)
	require.NoError(t, err)
	_, err = ledger.Allocate([]string{"deck-oven-1"}, end, end.Add(30*time.Minute), "PB-2", 1)
	require.NoError(t, err)

	t.Run("Free before first allocation", func(t *testing.T) {
		from := start.Add(-time.Hour)
		assert.Equal(t, from, ledger.NextFreeTime("deck-oven-1", from))
	})

	t.Run("Busy window pushes to end of contiguous allocations", func(t *testing.T) {
		assert.Equal(t, end.Add(30*time.Minute), ledger.NextFreeTime("deck-oven-1", start.Add(10*time.Minute)))
	})

	t.Run("Unregistered resource is always free", func(t *testing.T) {
		assert.Equal(t, start, ledger.NextFreeTime("ghost", start))
	})
}

func TestResourceLedger_ConcurrentAllocation(t *testing.T) {
	ledger := testLedger()
	start, end := window(6, 60)

	const attempts = 50
	results := make(chan []string, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assigned, err := ledger.Allocate([]string{"mixer-1"}, start, end, fmt.Sprintf("PB-%d", n), 1)
			assert.NoError(t, err)
			results <- assigned
		}(i)
	}
	wg.Wait()
	close(results)

	winners := 0
	for assigned := range results {
		if len(assigned) > 0 {
			winners++
		}
	}

	// Exactly one goroutine may win the window
	assert.Equal(t, 1, winners)
	assert.NoError(t, ledger.CheckInvariant())
}

func TestResourceLedger_Availability(t *testing.T) {
	ledger := NewResourceLedger()
	dayStart := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(10 * time.Hour)

	staff := []StaffMember{
		{StaffID: "baker-1", StartTime: dayStart, EndTime: dayStart.Add(8 * time.Hour)},
		{StaffID: "baker-2", StartTime: dayStart.Add(2 * time.Hour), EndTime: dayEnd},
		{StaffID: "baker-3", StartTime: dayEnd, EndTime: dayEnd.Add(8 * time.Hour)}, // night shift, outside window
	}
	stations := []Station{
		{StationID: "mixer-1"},
		{StationID: "deck-oven-1"},
	}

	capacity := ledger.Availability(staff, stations, dayStart, dayEnd)

	assert.Equal(t, 2, capacity.AvailableWorkers)
	assert.InDelta(t, 16.0, capacity.TotalStaffHours, 0.001)
	assert.Equal(t, 2, capacity.AvailableStations)
	assert.Empty(t, capacity.Bottlenecks)

	t.Run("Single worker flags staff bottleneck", func(t *testing.T) {
		capacity := ledger.Availability(staff[:1], stations, dayStart, dayEnd)
		require.NotEmpty(t, capacity.Bottlenecks)
		assert.Equal(t, "staff", capacity.Bottlenecks[0].Type)
	})
}
