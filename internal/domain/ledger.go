package domain

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Errors
var (
	ErrResourceUnknown = errors.New("resource is not registered in the ledger")
	ErrLedgerCorrupted = errors.New("ledger invariant violated: overlapping allocations")
	ErrInvalidWindow   = errors.New("allocation window end must be after start")
)

// ResourceKind distinguishes staff from equipment stations
type ResourceKind string

const (
	ResourceKindStaff   ResourceKind = "staff"
	ResourceKindStation ResourceKind = "station"
)

// StaffMember is a worker available on a schedule day
type StaffMember struct {
	StaffID   string    `bson:"staffId" json:"staffId"`
	Name      string    `bson:"name" json:"name"`
	Role      string    `bson:"role" json:"role"`
	Skills    []string  `bson:"skills" json:"skills"`
	StartTime time.Time `bson:"startTime" json:"startTime"`
	EndTime   time.Time `bson:"endTime" json:"endTime"`
}

// Station is an equipment station available on a schedule day
type Station struct {
	StationID string `bson:"stationId" json:"stationId"`
	Name      string `bson:"name" json:"name"`
	Type      string `bson:"type" json:"type"`
	Capacity  int    `bson:"capacity" json:"capacity"`
}

// Allocation is a reservation of one resource for one batch over a half-open
// time interval [Start, End)
type Allocation struct {
	ResourceID string    `bson:"resourceId" json:"resourceId"`
	BatchID    string    `bson:"batchId" json:"batchId"`
	Start      time.Time `bson:"start" json:"start"`
	End        time.Time `bson:"end" json:"end"`
}

// Bottleneck describes a detected capacity constraint
type Bottleneck struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Capacity is the computed availability of staff and stations for a window
type Capacity struct {
	AvailableWorkers  int          `json:"availableWorkers"`
	TotalStaffHours   float64      `json:"totalStaffHours"`
	AvailableStations int          `json:"availableStations"`
	Bottlenecks       []Bottleneck `json:"bottlenecks"`
}

// ResourceLedger tracks non-overlapping time allocations of staff and
// stations for one schedule day. Allocation is atomic per resource: a
// candidate is reserved under its own lock, so concurrent batch starts can
// never double-book a resource.
type ResourceLedger struct {
	mu        sync.RWMutex
	resources map[string]*ledgerEntry
}

type ledgerEntry struct {
	mu          sync.Mutex
	resourceID  string
	kind        ResourceKind
	allocations []Allocation
}

// NewResourceLedger creates an empty ledger
func NewResourceLedger() *ResourceLedger {
	return &ResourceLedger{
		resources: make(map[string]*ledgerEntry),
	}
}

// RegisterStaff adds staff members as allocatable resources
func (l *ResourceLedger) RegisterStaff(staff []StaffMember) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range staff {
		if _, ok := l.resources[s.StaffID]; !ok {
			l.resources[s.StaffID] = &ledgerEntry{resourceID: s.StaffID, kind: ResourceKindStaff}
		}
	}
}

// RegisterStations adds equipment stations as allocatable resources
func (l *ResourceLedger) RegisterStations(stations []Station) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range stations {
		if _, ok := l.resources[s.StationID]; !ok {
			l.resources[s.StationID] = &ledgerEntry{resourceID: s.StationID, kind: ResourceKindStation}
		}
	}
}

func (l *ResourceLedger) entry(resourceID string) *ledgerEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resources[resourceID]
}

// overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Allocate scans candidates in input order and reserves each one whose
// existing allocations do not overlap [start, end), until max resources are
// assigned. It returns the assigned resource ids, which may be fewer than
// max; the caller decides how to handle a partial allocation.
func (l *ResourceLedger) Allocate(candidateIDs []string, start, end time.Time, batchID string, max int) ([]string, error) {
	if !end.After(start) {
		return nil, ErrInvalidWindow
	}

	assigned := make([]string, 0, max)
	for _, id := range candidateIDs {
		if len(assigned) >= max {
			break
		}
		entry := l.entry(id)
		if entry == nil {
			return assigned, fmt.Errorf("%w: %s", ErrResourceUnknown, id)
		}

		entry.mu.Lock()
		free := true
		for _, a := range entry.allocations {
			if overlaps(a.Start, a.End, start, end) {
				free = false
				break
			}
		}
		if free {
			entry.allocations = append(entry.allocations, Allocation{
				ResourceID: id,
				BatchID:    batchID,
				Start:      start,
				End:        end,
			})
			assigned = append(assigned, id)
		}
		entry.mu.Unlock()
	}

	return assigned, nil
}

// Release removes all allocations for batchID on the given resource
func (l *ResourceLedger) Release(resourceID, batchID string) error {
	entry := l.entry(resourceID)
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrResourceUnknown, resourceID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	kept := entry.allocations[:0]
	for _, a := range entry.allocations {
		if a.BatchID != batchID {
			kept = append(kept, a)
		}
	}
	entry.allocations = kept
	return nil
}

// ReleaseBatch removes every allocation held by batchID across all resources;
// used on cancellation and failure
func (l *ResourceLedger) ReleaseBatch(batchID string) {
	l.mu.RLock()
	entries := make([]*ledgerEntry, 0, len(l.resources))
	for _, e := range l.resources {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	for _, entry := range entries {
		entry.mu.Lock()
		kept := entry.allocations[:0]
		for _, a := range entry.allocations {
			if a.BatchID != batchID {
				kept = append(kept, a)
			}
		}
		entry.allocations = kept
		entry.mu.Unlock()
	}
}

// AllocationsFor returns a copy of the allocations held by a resource
func (l *ResourceLedger) AllocationsFor(resourceID string) []Allocation {
	entry := l.entry(resourceID)
	if entry == nil {
		return nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return append([]Allocation(nil), entry.allocations...)
}

// NextFreeTime returns the earliest instant at or after from when the
// resource has no allocation in effect
func (l *ResourceLedger) NextFreeTime(resourceID string, from time.Time) time.Time {
	entry := l.entry(resourceID)
	if entry == nil {
		return from
	}

	entry.mu.Lock()
	allocs := append([]Allocation(nil), entry.allocations...)
	entry.mu.Unlock()

	sort.Slice(allocs, func(i, j int) bool { return allocs[i].Start.Before(allocs[j].Start) })

	t := from
	for _, a := range allocs {
		if !t.Before(a.End) {
			continue
		}
		if t.Before(a.Start) {
			return t
		}
		t = a.End
	}
	return t
}

// CheckInvariant verifies that no resource holds overlapping allocations.
// A violation indicates ledger corruption and is surfaced for operator
// review rather than repaired silently.
func (l *ResourceLedger) CheckInvariant() error {
	l.mu.RLock()
	entries := make([]*ledgerEntry, 0, len(l.resources))
	for _, e := range l.resources {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	for _, entry := range entries {
		entry.mu.Lock()
		allocs := append([]Allocation(nil), entry.allocations...)
		entry.mu.Unlock()

		sort.Slice(allocs, func(i, j int) bool { return allocs[i].Start.Before(allocs[j].Start) })
		for i := 1; i < len(allocs); i++ {
			if allocs[i].Start.Before(allocs[i-1].End) {
				return fmt.Errorf("%w: resource %s, batches %s and %s",
					ErrLedgerCorrupted, entry.resourceID, allocs[i-1].BatchID, allocs[i].BatchID)
			}
		}
	}
	return nil
}

// Availability computes capacity and bottlenecks for a roster over a window.
// A worker counts as available when their shift overlaps the window; staff
// hours are the summed overlap durations.
func (l *ResourceLedger) Availability(staff []StaffMember, stations []Station, windowStart, windowEnd time.Time) Capacity {
	capacity := Capacity{Bottlenecks: make([]Bottleneck, 0)}

	for _, w := range staff {
		if !overlaps(w.StartTime, w.EndTime, windowStart, windowEnd) {
			continue
		}
		capacity.AvailableWorkers++

		start := w.StartTime
		if windowStart.After(start) {
			start = windowStart
		}
		end := w.EndTime
		if windowEnd.Before(end) {
			end = windowEnd
		}
		capacity.TotalStaffHours += end.Sub(start).Hours()
	}

	capacity.AvailableStations = len(stations)

	if capacity.AvailableWorkers < 2 {
		capacity.Bottlenecks = append(capacity.Bottlenecks, Bottleneck{
			Type:     "staff",
			Severity: "high",
			Message:  fmt.Sprintf("only %d worker(s) available in the window", capacity.AvailableWorkers),
		})
	}
	if capacity.AvailableStations < 2 {
		capacity.Bottlenecks = append(capacity.Bottlenecks, Bottleneck{
			Type:     "equipment",
			Severity: "high",
			Message:  fmt.Sprintf("only %d station(s) available", capacity.AvailableStations),
		})
	}
	if capacity.AvailableWorkers > 0 && capacity.AvailableStations > 0 {
		ratio := float64(capacity.AvailableWorkers) / float64(capacity.AvailableStations)
		if ratio < 0.5 || ratio > 2.0 {
			capacity.Bottlenecks = append(capacity.Bottlenecks, Bottleneck{
				Type:     "balance",
				Severity: "medium",
				Message:  fmt.Sprintf("staff-to-station ratio %.2f outside [0.5, 2.0]", ratio),
			})
		}
	}

	return capacity
}
