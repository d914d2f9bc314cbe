package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrScheduleNotDraft    = errors.New("schedule can only be planned from draft status")
	ErrScheduleNotPlanned  = errors.New("schedule can only be activated from planned status")
	ErrScheduleClosed      = errors.New("schedule is already completed or cancelled")
	ErrInvalidWorkday      = errors.New("workday end must be after workday start")
	ErrBatchNotInSchedule  = errors.New("batch is not part of this schedule")
	ErrBatchAlreadyPlanned = errors.New("batch is already planned in this schedule")
)

// ScheduleStatus represents the lifecycle state of a production schedule
type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "draft"
	ScheduleStatusPlanned   ScheduleStatus = "planned"
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// ProductionSchedule is the aggregate for one day of production. It binds the
// staff and station rosters to the set of planned batches and rolls up
// day-level progress.
type ProductionSchedule struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ScheduleID        string             `bson:"scheduleId" json:"scheduleId"`
	ScheduleDate      time.Time          `bson:"scheduleDate" json:"scheduleDate"`
	WorkdayStart      time.Time          `bson:"workdayStart" json:"workdayStart"`
	WorkdayEnd        time.Time          `bson:"workdayEnd" json:"workdayEnd"`
	Staff             []StaffMember      `bson:"staff" json:"staff"`
	Stations          []Station          `bson:"stations" json:"stations"`
	PlannedBatchIDs   []string           `bson:"plannedBatchIds" json:"plannedBatchIds"`
	CompletedBatchIDs []string           `bson:"completedBatchIds" json:"completedBatchIds"`
	Status            ScheduleStatus     `bson:"status" json:"status"`
	Notes             string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents      []DomainEvent      `bson:"-" json:"-"`
}

// NewProductionSchedule creates a draft schedule for a day
func NewProductionSchedule(scheduleID string, date, workdayStart, workdayEnd time.Time, staff []StaffMember, stations []Station) (*ProductionSchedule, error) {
	if !workdayEnd.After(workdayStart) {
		return nil, ErrInvalidWorkday
	}

	now := time.Now()
	schedule := &ProductionSchedule{
		ScheduleID:        scheduleID,
		ScheduleDate:      date,
		WorkdayStart:      workdayStart,
		WorkdayEnd:        workdayEnd,
		Staff:             append([]StaffMember(nil), staff...),
		Stations:          append([]Station(nil), stations...),
		PlannedBatchIDs:   make([]string, 0),
		CompletedBatchIDs: make([]string, 0),
		Status:            ScheduleStatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
		DomainEvents:      make([]DomainEvent, 0),
	}

	schedule.AddDomainEvent(&ScheduleCreatedEvent{
		ScheduleID:   scheduleID,
		ScheduleDate: date,
		CreatedAt:    now,
	})

	return schedule, nil
}

// BuildLedger creates a resource ledger seeded with this schedule's rosters
func (s *ProductionSchedule) BuildLedger() *ResourceLedger {
	ledger := NewResourceLedger()
	ledger.RegisterStaff(s.Staff)
	ledger.RegisterStations(s.Stations)
	return ledger
}

// AttachBatch records a planned batch on the schedule
func (s *ProductionSchedule) AttachBatch(batchID string) error {
	if s.Status != ScheduleStatusDraft && s.Status != ScheduleStatusPlanned {
		return ErrScheduleClosed
	}
	for _, id := range s.PlannedBatchIDs {
		if id == batchID {
			return ErrBatchAlreadyPlanned
		}
	}
	s.PlannedBatchIDs = append(s.PlannedBatchIDs, batchID)
	s.UpdatedAt = time.Now()
	return nil
}

// MarkPlanned transitions the schedule from draft to planned
func (s *ProductionSchedule) MarkPlanned() error {
	if s.Status != ScheduleStatusDraft {
		return ErrScheduleNotDraft
	}
	s.changeStatus(ScheduleStatusPlanned)
	return nil
}

// Activate opens the schedule for execution
func (s *ProductionSchedule) Activate() error {
	if s.Status != ScheduleStatusPlanned {
		return ErrScheduleNotPlanned
	}
	s.changeStatus(ScheduleStatusActive)
	return nil
}

// MarkBatchCompleted records a finished batch; the schedule completes when
// every planned batch has finished
func (s *ProductionSchedule) MarkBatchCompleted(batchID string) error {
	found := false
	for _, id := range s.PlannedBatchIDs {
		if id == batchID {
			found = true
			break
		}
	}
	if !found {
		return ErrBatchNotInSchedule
	}
	for _, id := range s.CompletedBatchIDs {
		if id == batchID {
			return nil
		}
	}

	s.CompletedBatchIDs = append(s.CompletedBatchIDs, batchID)
	s.UpdatedAt = time.Now()

	if s.Status == ScheduleStatusActive && len(s.CompletedBatchIDs) == len(s.PlannedBatchIDs) {
		s.changeStatus(ScheduleStatusCompleted)
	}
	return nil
}

// Cancel cancels the schedule
func (s *ProductionSchedule) Cancel(reason string) error {
	if s.Status == ScheduleStatusCompleted || s.Status == ScheduleStatusCancelled {
		return ErrScheduleClosed
	}
	s.Notes = appendNote(s.Notes, "cancelled: "+reason)
	s.changeStatus(ScheduleStatusCancelled)
	return nil
}

// Progress returns the fraction of planned batches completed, in percent
func (s *ProductionSchedule) Progress() float64 {
	if len(s.PlannedBatchIDs) == 0 {
		return 0
	}
	return float64(len(s.CompletedBatchIDs)) / float64(len(s.PlannedBatchIDs)) * 100
}

func (s *ProductionSchedule) changeStatus(target ScheduleStatus) {
	old := s.Status
	now := time.Now()
	s.Status = target
	s.UpdatedAt = now
	s.AddDomainEvent(&ScheduleStatusChangedEvent{
		ScheduleID: s.ScheduleID,
		OldStatus:  string(old),
		NewStatus:  string(target),
		ChangedAt:  now,
	})
}

// WorkdayDuration returns the length of the workday
func (s *ProductionSchedule) WorkdayDuration() time.Duration {
	return s.WorkdayEnd.Sub(s.WorkdayStart)
}

// Validate checks the schedule's internal consistency
func (s *ProductionSchedule) Validate() error {
	if !s.WorkdayEnd.After(s.WorkdayStart) {
		return ErrInvalidWorkday
	}
	if len(s.CompletedBatchIDs) > len(s.PlannedBatchIDs) {
		return fmt.Errorf("schedule %s has more completed than planned batches", s.ScheduleID)
	}
	return nil
}

// AddDomainEvent adds a domain event to the schedule
func (s *ProductionSchedule) AddDomainEvent(event DomainEvent) {
	s.DomainEvents = append(s.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (s *ProductionSchedule) ClearDomainEvents() {
	s.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (s *ProductionSchedule) GetDomainEvents() []DomainEvent {
	return s.DomainEvents
}
