package domain

import (
	"context"
	"time"
)

// StepKind classifies how a workflow step is performed
type StepKind string

const (
	StepKindActive StepKind = "active" // Hands-on work (mixing, shaping, decorating)
	StepKindSleep  StepKind = "sleep"  // Unattended waits (proofing, resting, cooling)
	StepKindManual StepKind = "manual" // Manual checkpoints requiring sign-off
)

// WorkflowDefinition is an immutable named production process template.
// It is owned by the workflow catalog, never mutated by this service.
type WorkflowDefinition struct {
	WorkflowID string         `json:"workflowId"`
	Name       string         `json:"name"`
	Steps      []StepTemplate `json:"steps"`
}

// StepTemplate describes one ordered stage of a workflow
type StepTemplate struct {
	Name              string        `json:"name"`
	Kind              StepKind      `json:"kind"`
	DurationEstimate  time.Duration `json:"durationEstimate"`
	RequiredEquipment []string      `json:"requiredEquipment,omitempty"`
	Activities        []string      `json:"activities,omitempty"`
	Conditions        []string      `json:"conditions,omitempty"`
}

// TotalDuration returns the summed duration estimate of all steps
func (w *WorkflowDefinition) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range w.Steps {
		total += s.DurationEstimate
	}
	return total
}

// RequiredEquipment returns the deduplicated equipment names across all steps
func (w *WorkflowDefinition) RequiredEquipment() []string {
	seen := make(map[string]bool)
	equipment := make([]string, 0)
	for _, s := range w.Steps {
		for _, e := range s.RequiredEquipment {
			if !seen[e] {
				seen[e] = true
				equipment = append(equipment, e)
			}
		}
	}
	return equipment
}

// WorkflowSource resolves workflow definitions by id.
// Implementations are read-only; a definition is immutable per id.
type WorkflowSource interface {
	GetWorkflowByID(ctx context.Context, workflowID string) (*WorkflowDefinition, error)
}
